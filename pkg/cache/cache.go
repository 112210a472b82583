package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Close() error
}

// Key joins parts with ':' into a cache key.
func Key(parts ...interface{}) string {
	if len(parts) == 0 {
		return ""
	}
	key := fmt.Sprint(parts[0])
	for _, p := range parts[1:] {
		key = fmt.Sprintf("%s:%v", key, p)
	}
	return key
}
