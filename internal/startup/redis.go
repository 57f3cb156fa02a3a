package startup

import (
	"context"
	"time"

	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/storage"
	"github.com/crmchat/internal/storage/memory"
	redisstorage "github.com/crmchat/internal/storage/redis"
)

const (
	initialBackoff = 2 * time.Second
	maxBackoff     = 30 * time.Second
)

// ConnectCache возвращает кеш справочников: Redis, если задан redisURL, иначе кеш в памяти.
// Redis недоступен дольше maxWait — работаем с кешем в памяти.
func ConnectCache(ctx context.Context, redisURL string, maxWait time.Duration) storage.Cache {
	if redisURL == "" {
		return memory.New()
	}
	client, err := ConnectRedisWithRetry(ctx, redisURL, maxWait, "cache: ")
	if err != nil {
		logger.Errorf("cache: redis unavailable, falling back to memory: %v", err)
		return memory.New()
	}
	logger.Infof("cache: redis connected")
	return client
}

// ConnectRedisWithRetry подключается к Redis с повторами.
// logPrefix добавляется к сообщениям лога (например "cache: ").
func ConnectRedisWithRetry(ctx context.Context, redisURL string, maxWait time.Duration, logPrefix string) (*redisstorage.Client, error) {
	deadline := time.Now().Add(maxWait)
	backoff := initialBackoff
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		client, err := redisstorage.New(pingCtx, redisURL)
		cancel()
		if err == nil {
			return client, nil
		}
		if time.Now().Add(backoff).After(deadline) {
			logger.Errorf("%sredis (gave up after %v): %v", logPrefix, maxWait, err)
			return nil, err
		}
		logger.Errorf("%sredis connect failed, retry in %v: %v", logPrefix, backoff, err)
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff = nextBackoff(backoff)
	}
}

// nextBackoff удваивает задержку, не превышая maxBackoff.
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
