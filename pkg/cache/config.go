package cache

import (
	"net"
	"strconv"
	"time"
)

// RedisOption configures NewRedisCache.
type RedisOption func(*RedisConfig)

// RedisConfig is the connection setup NewRedisCache starts from.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	IOTimeout    time.Duration
	Prefix       string
}

// WithRedisAddr points the client at host:port.
func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) {
		c.Addr = joinHostPort(host, port)
	}
}

// WithRedisAuth selects the logical database and the AUTH password, if any.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

func WithRedisPool(size, minIdle int) RedisOption {
	return func(c *RedisConfig) {
		if size > 0 {
			c.PoolSize = size
		}
		if minIdle >= 0 {
			c.MinIdleConns = minIdle
		}
	}
}

// WithRedisTimeouts bounds connecting and each read or write.
func WithRedisTimeouts(dial, io time.Duration) RedisOption {
	return func(c *RedisConfig) {
		if dial > 0 {
			c.DialTimeout = dial
		}
		if io > 0 {
			c.IOTimeout = io
		}
	}
}

// WithRedisPrefix namespaces every key as "<prefix>:<key>". Empty disables it.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

// MemoryOption configures NewMemoryCache.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	maxSize int
	sweep   time.Duration
}

// WithMemoryMaxSize caps the number of keys; the least recently used key goes first.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *memoryConfig) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithMemorySweep sets how often expired keys are purged.
func WithMemorySweep(every time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		if every > 0 {
			c.sweep = every
		}
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
