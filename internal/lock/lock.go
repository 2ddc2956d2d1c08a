// Package lock provides short-lived named locks used to serialise work on a
// single key, such as registering one username.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrHeld is returned when another holder owns the key.
var ErrHeld = errors.New("lock: key is held")

// Locker acquires a lock on key for at most ttl. The returned release func is
// safe to call once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// InMemory is a process-local locker for single-instance deployments and tests.
type InMemory struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewInMemory creates an empty in-memory locker.
func NewInMemory() *InMemory {
	return &InMemory{held: make(map[string]time.Time)}
}

// Acquire takes key unless a live holder exists.
func (l *InMemory) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, ErrHeld
	}
	exp := now.Add(ttl)
	l.held[key] = exp

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// Only drop our own entry; an expired lock may have been retaken.
			if cur, ok := l.held[key]; ok && cur.Equal(exp) {
				delete(l.held, key)
			}
		})
	}, nil
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis shares locks across instances using SET NX PX.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis builds a locker whose keys are namespaced by prefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "absensi:lock:"
	}
	return &Redis{client: client, prefix: prefix}
}

// Acquire sets key with a random token if absent.
func (l *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	full := l.prefix + key
	ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{full}, token).Err(); err != nil {
				log.Warn().Err(err).Str("key", full).Msg("lock release failed")
			}
		})
	}, nil
}
