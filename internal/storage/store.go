package storage

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache — кеш редко меняющихся справочников клиента: отделы, роли по отделу,
// списки вложений канала. Значения хранятся как JSON.
// Реализации: redis.Client (общий кеш), memory.Client (по умолчанию, без Redis).
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Key helpers keep the key layout in one place.
func DepartmentsKey() string                 { return "crm:departments" }
func RolesKey(departmentID string) string    { return "crm:roles:" + departmentID }
func AttachmentsKey(channelID string) string { return "chat:attachments:" + channelID }
