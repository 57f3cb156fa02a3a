package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/crmchat/internal/storage"
)

type item struct {
	val []byte
	exp time.Time
}

// Client is an in-process TTL cache. A zero ttl means no expiry.
type Client struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

func New() *Client {
	return &Client{items: make(map[string]item), now: time.Now}
}

func (c *Client) Close() error { return nil }

func (c *Client) GetJSON(ctx context.Context, key string, dst any) error {
	c.mu.RLock()
	v, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || (!v.exp.IsZero() && c.now().After(v.exp)) {
		return storage.ErrMiss
	}
	if err := json.Unmarshal(v.val, dst); err != nil {
		return fmt.Errorf("memory.GetJSON %s: %w", key, err)
	}
	return nil
}

func (c *Client) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("memory.SetJSON %s: %w", key, err)
	}
	it := item{val: data}
	if ttl > 0 {
		it.exp = c.now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = it
	c.sweepLocked()
	return nil
}

func (c *Client) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

// sweepLocked drops expired entries on write so the map does not grow unbounded.
func (c *Client) sweepLocked() {
	now := c.now()
	for k, v := range c.items {
		if !v.exp.IsZero() && now.After(v.exp) {
			delete(c.items, k)
		}
	}
}
