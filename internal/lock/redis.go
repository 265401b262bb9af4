package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pfrederiksen/event-discovery/internal/logger"
)

var errHeld = errors.New("lock held by another process")

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DefaultWait bounds how long Acquire waits for a held lock
const DefaultWait = 2 * time.Minute

// Redis is a Locker shared by every process using the same key. The key
// expires after ttl so a crashed holder cannot block others forever.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	wait   time.Duration
}

// NewRedis creates a Redis lock on key
func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	return &Redis{client: client, key: key, ttl: ttl, wait: DefaultWait}
}

// SetWait bounds how long Acquire waits while another process holds the
// lock. Zero or less keeps DefaultWait.
func (r *Redis) SetWait(d time.Duration) {
	if d > 0 {
		r.wait = d
	}
}

func (r *Redis) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = r.wait
	return b
}

func (r *Redis) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()

	try := func() error {
		ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
		if err != nil {
			// Only a held lock is worth waiting for
			return backoff.Permanent(err)
		}
		if !ok {
			return errHeld
		}
		return nil
	}
	if err := backoff.Retry(try, backoff.WithContext(r.backOff(), ctx)); err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", r.key, err)
	}

	release := func() {
		// The caller's ctx may already be done; release on a fresh one.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, r.client, []string{r.key}, token).Err(); err != nil {
			logger.Warn("Failed to release lock", logger.Fields{"key": r.key, "error": err.Error()})
		}
	}
	return release, nil
}
