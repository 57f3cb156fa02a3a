package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crmchat/internal/model"
	"github.com/crmchat/internal/storage/memory"
)

func newTestServer(t *testing.T, r chi.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/api", Token: "tok", Timeout: 5 * time.Second, Cache: memory.New(), CacheTTL: time.Minute})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchMessagesSendsCursorAndToken(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/channels/{channelID}/messages", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no token"})
			return
		}
		if chi.URLParam(req, "channelID") != "c1" || req.URL.Query().Get("before") != "m20" || req.URL.Query().Get("limit") != "20" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad query " + req.URL.RawQuery})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"messages": []model.Message{{ID: "m1", ChannelID: "c1", Body: "hi"}},
			"has_more": false,
		})
	})
	c := newTestServer(t, r)

	page, err := c.FetchMessages(context.Background(), "c1", "m20", 20)
	if err != nil {
		t.Fatalf("FetchMessages: %v", err)
	}
	if len(page.Messages) != 1 || page.Messages[0].ID != "m1" || page.HasMore {
		t.Fatalf("got %#v", page)
	}
}

func TestStatusErrorSentinels(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/channels/{channelID}", func(w http.ResponseWriter, req *http.Request) {
		switch chi.URLParam(req, "channelID") {
		case "secret":
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a member"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "channel not found"})
		}
	})
	c := newTestServer(t, r)

	_, err := c.FetchChannel(context.Background(), "secret")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusForbidden {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if se.Error() != "http 403: not a member" {
		t.Fatalf("message: %q", se.Error())
	}
	if _, err := c.FetchChannel(context.Background(), "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSendMessageKeepsNonce(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/channels/{channelID}/messages", func(w http.ResponseWriter, req *http.Request) {
		var d model.Draft
		if err := json.NewDecoder(req.Body).Decode(&d); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": model.Message{ID: "srv-1", ChannelID: d.ChannelID, Body: d.Body}})
	})
	c := newTestServer(t, r)

	msg, err := c.SendMessage(context.Background(), model.Draft{ChannelID: "c1", Body: "hello", ClientNonce: "n-1"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.ID != "srv-1" || msg.ClientNonce != "n-1" {
		t.Fatalf("got %#v", msg)
	}
}

func TestRolesAreCached(t *testing.T) {
	var hits atomic.Int32
	r := chi.NewRouter()
	r.Get("/api/departments/{departmentID}/roles", func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []model.Role{{ID: "r1", Name: "Sales lead"}}})
	})
	c := newTestServer(t, r)

	for i := 0; i < 3; i++ {
		roles, err := c.FetchRoles(context.Background(), "d1")
		if err != nil {
			t.Fatalf("FetchRoles: %v", err)
		}
		if len(roles) != 1 || roles[0].DepartmentID != "d1" {
			t.Fatalf("got %#v", roles)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one backend call, got %d", hits.Load())
	}
}

func TestAttachmentsListAndDownload(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/channels/{channelID}/attachments", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, []model.Attachment{{ID: "a1", FileName: "../report.pdf", FileURL: "/files/a1"}})
	})
	r.Get("/api/files/{id}", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("PDF-DATA"))
	})
	r.Post("/api/attachments/{id}/forward", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	c := newTestServer(t, r)
	ctx := context.Background()

	atts, err := c.FetchChannelAttachments(ctx, AttachmentQuery{ChannelID: "c1", Limit: 10})
	if err != nil {
		t.Fatalf("FetchChannelAttachments: %v", err)
	}
	if len(atts) != 1 || atts[0].ChannelID != "c1" {
		t.Fatalf("got %#v", atts)
	}

	dir := t.TempDir()
	path, err := c.DownloadAttachment(ctx, atts[0], dir)
	if err != nil {
		t.Fatalf("DownloadAttachment: %v", err)
	}
	if path != filepath.Join(dir, "report.pdf") {
		t.Fatalf("file must stay inside dir, got %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "PDF-DATA" {
		t.Fatalf("content: %q %v", data, err)
	}

	ok, err := c.ForwardAttachment(ctx, "a1", []string{"c2"}, "fyi")
	if err != nil || !ok {
		t.Fatalf("ForwardAttachment: %v %v", ok, err)
	}
	if _, err := c.ForwardAttachment(ctx, "a1", nil, ""); err == nil {
		t.Fatalf("expected error without targets")
	}
}

func TestForwardAttachmentBackendRefusal(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/attachments/{id}/forward", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "file expired"})
	})
	c := newTestServer(t, r)
	ok, err := c.ForwardAttachment(context.Background(), "a1", []string{"c2"}, "")
	if ok || err == nil {
		t.Fatalf("expected refusal, got %v %v", ok, err)
	}
}

func TestRateLimitBlocksUntilContextDone(t *testing.T) {
	r := chi.NewRouter()
	r.Delete("/api/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	c := New(Options{BaseURL: srv.URL + "/api", RequestsPerSecond: 1})

	for i := 0; i < 2; i++ {
		if err := c.DeleteMessage(context.Background(), "m1"); err != nil {
			t.Fatalf("call %d within burst: %v", i, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := c.DeleteMessage(ctx, "m1"); err == nil {
		t.Fatal("third call must wait past the deadline")
	}
}
