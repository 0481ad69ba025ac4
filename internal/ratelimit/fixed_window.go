package ratelimit

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLimited is returned when a key has exhausted its attempts in the current
// window.
var ErrLimited = errors.New("rate limited")

// Config controls one fixed-window limiter instance.
type Config struct {
	// Prefix namespaces the Redis keys, e.g. "reset-request".
	Prefix string
	// MaxAttempts per key per window.
	MaxAttempts int
	// Window is the fixed window length, applied as the key TTL.
	Window time.Duration
	// FailOpen allows requests through when Redis is unreachable. The reset
	// protocol stays correct without the limiter, so outages must not turn
	// into a denial of service for legitimate resets.
	FailOpen bool
}

// FixedWindow counts attempts per key with INCR and expires the counter at the
// end of the window. The first INCR in a window sets the TTL.
type FixedWindow struct {
	redis  *redis.Client
	config Config
}

func NewFixedWindow(client *redis.Client, cfg Config) *FixedWindow {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return &FixedWindow{redis: client, config: cfg}
}

// Allow consumes one attempt for each non-empty key. Keys are checked in
// order; the first exhausted one fails the whole call with ErrLimited.
func (l *FixedWindow) Allow(ctx context.Context, keys ...string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if err := l.consume(ctx, l.config.Prefix+":"+key); err != nil {
			return err
		}
	}
	return nil
}

func (l *FixedWindow) consume(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return l.unavailable(err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return l.unavailable(err)
		}
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrLimited
	}
	return nil
}

func (l *FixedWindow) unavailable(err error) error {
	if l.config.FailOpen {
		log.Printf("ratelimit: redis unavailable, failing open: %v", err)
		return nil
	}
	return err
}
