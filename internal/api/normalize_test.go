package api

import (
	"reflect"
	"testing"

	"github.com/crmchat/internal/model"
)

func TestDecodeListShapes(t *testing.T) {
	want := []model.Role{{ID: "r1", Name: "Manager"}, {ID: "r2", Name: "Clerk"}}
	list := `[{"id":"r1","name":"Manager"},{"id":"r2","name":"Clerk"}]`
	cases := []struct {
		name string
		body string
	}{
		{"bare array", list},
		{"success data", `{"success":true,"data":` + list + `}`},
		{"data only", `{"data":` + list + `}`},
		{"items", `{"items":` + list + `}`},
		{"data items", `{"data":{"items":` + list + `}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeList[model.Role]([]byte(tc.body))
			if err != nil {
				t.Fatalf("decodeList: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %#v want %#v", got, want)
			}
		})
	}
}

func TestDecodeListEmpty(t *testing.T) {
	for _, body := range []string{"", "null", "[]", `{"success":true,"data":null}`, `{"items":[]}`} {
		got, err := decodeList[model.Role]([]byte(body))
		if err != nil {
			t.Fatalf("%q: %v", body, err)
		}
		if len(got) != 0 {
			t.Fatalf("%q: expected empty list, got %#v", body, got)
		}
	}
}

func TestDecodeListFailures(t *testing.T) {
	cases := map[string]string{
		`{"success":false,"error":"no access"}`:       "no access",
		`{"success":false,"message":"bad request"}`:   "bad request",
		`{"success":false}`:                           "request failed",
		`{"payload":{"message":"rejected by proxy"}}`: "rejected by proxy",
	}
	for body, msg := range cases {
		_, err := decodeList[model.Role]([]byte(body))
		if err == nil || err.Error() != msg {
			t.Fatalf("%s: got %v want %q", body, err, msg)
		}
	}
	if _, err := decodeList[model.Role]([]byte(`{"foo":1}`)); err != ErrUnexpectedShape {
		t.Fatalf("unknown object: got %v", err)
	}
	if _, err := decodeList[model.Role]([]byte(`"text"`)); err != ErrUnexpectedShape {
		t.Fatalf("scalar: got %v", err)
	}
}

func TestDecodeObjectUnwrapsData(t *testing.T) {
	for _, body := range []string{
		`{"id":"u1","username":"anna"}`,
		`{"success":true,"data":{"id":"u1","username":"anna"}}`,
	} {
		got, err := decodeObject[model.UserPublic]([]byte(body))
		if err != nil {
			t.Fatalf("%s: %v", body, err)
		}
		if got.ID != "u1" || got.Username != "anna" {
			t.Fatalf("%s: got %#v", body, got)
		}
	}
	if _, err := decodeObject[model.UserPublic]([]byte(`{"success":false,"error":"email taken"}`)); err == nil || err.Error() != "email taken" {
		t.Fatalf("expected failure, got %v", err)
	}
}

func TestDecodePageHasMore(t *testing.T) {
	body := `{"messages":[{"id":"b","created_at":"2026-01-01T10:01:00Z"},{"id":"a","created_at":"2026-01-01T10:00:00Z"}],"has_more":true}`
	page, err := decodePage([]byte(body), 50)
	if err != nil {
		t.Fatalf("decodePage: %v", err)
	}
	if !page.HasMore || len(page.Messages) != 2 || page.Messages[0].ID != "a" {
		t.Fatalf("got %#v", page)
	}

	page, err = decodePage([]byte(`[{"id":"a"},{"id":"b"}]`), 2)
	if err != nil {
		t.Fatalf("decodePage: %v", err)
	}
	if !page.HasMore {
		t.Fatalf("full page without flag must report more history")
	}
	page, err = decodePage([]byte(`{"data":[{"id":"a"}]}`), 2)
	if err != nil || page.HasMore || len(page.Messages) != 1 {
		t.Fatalf("short page: %#v %v", page, err)
	}
}
