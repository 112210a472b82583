package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type ProducerOption func(*ProducerConfig)

// ProducerConfig is the writer setup NewProducer starts from.
type ProducerConfig struct {
	Brokers     []string
	Compression string
	// Acks is -1 for all in-sync replicas, 1 for the leader only, 0 for none.
	Acks        int
	MaxAttempts int

	BatchSize    int
	BatchBytes   int
	Linger       time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration

	Async     bool
	KeyHashed bool
	Metrics   prometheus.Registerer
}

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Compression:  "gzip",
		Acks:         -1,
		MaxAttempts:  3,
		BatchSize:    1,
		BatchBytes:   1 << 20,
		Linger:       100 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		KeyHashed:    true,
	}
}

func WithBrokers(brokers ...string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = append([]string(nil), brokers...)
	}
}

// WithCompression accepts gzip, snappy, lz4 or zstd; anything else falls back to gzip.
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Compression = codec
	}
}

// WithDelivery sets the acknowledgement level and how many times the writer retries a batch.
func WithDelivery(acks, maxAttempts int) ProducerOption {
	return func(c *ProducerConfig) {
		c.Acks = acks
		if maxAttempts > 0 {
			c.MaxAttempts = maxAttempts
		}
	}
}

// WithBatching flushes a batch at size messages, bytes bytes or after linger, whichever comes first.
func WithBatching(size, bytes int, linger time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.BatchSize = size
		}
		if bytes > 0 {
			c.BatchBytes = bytes
		}
		if linger > 0 {
			c.Linger = linger
		}
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}

// WithAsync makes Publish return before the broker acknowledges.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.Async = async
	}
}

// WithKeyHashing routes equal keys to the same partition so per-symbol order holds.
func WithKeyHashing(on bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.KeyHashed = on
	}
}

// WithMetrics registers producer metrics on reg. Without it nothing is recorded.
func WithMetrics(reg prometheus.Registerer) ProducerOption {
	return func(c *ProducerConfig) {
		c.Metrics = reg
	}
}
