package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/crmchat/internal/storage"
)

type department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestClientRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)

	want := []department{{ID: "d1", Name: "Sales"}}
	if err := c.SetJSON(ctx, storage.DepartmentsKey(), want, time.Minute); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	var got []department
	if err := c.GetJSON(ctx, storage.DepartmentsKey(), &got); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("got %#v", got)
	}

	mr.FastForward(2 * time.Minute)
	if err := c.GetJSON(ctx, storage.DepartmentsKey(), &got); !errors.Is(err, storage.ErrMiss) {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
}

func TestClientDeleteAndCorruptValue(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)

	_ = c.SetJSON(ctx, "a", 1, 0)
	_ = c.SetJSON(ctx, "b", 2, 0)
	if err := c.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var n int
	if err := c.GetJSON(ctx, "a", &n); !errors.Is(err, storage.ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := c.Delete(ctx); err != nil {
		t.Fatalf("Delete without keys: %v", err)
	}

	if err := mr.Set("broken", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	err := c.GetJSON(ctx, "broken", &n)
	if err == nil || errors.Is(err, storage.ErrMiss) {
		t.Fatalf("corrupt value must be a decode error, got %v", err)
	}
}

func TestNewFailsWhenServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := New(ctx, "redis://"+addr); err == nil {
		t.Fatal("expected ping error")
	}
}
