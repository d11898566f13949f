package recorder

import (
	"fmt"
	"time"
)

const (
	defaultQueueSize = 1024
	defaultBatchSize = 64
)

var defaultFlushInterval = time.Second

// Config controls the asynchronous journal writer.
type Config struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultConfig returns a baseline configuration for the writer.
func DefaultConfig() Config {
	return Config{
		QueueSize:     defaultQueueSize,
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
	}
}

func (c Config) withDefaults() Config {
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = defaultFlushInterval
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.QueueSize < 0 {
		return fmt.Errorf("queue size must be >= 0")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch size must be >= 0")
	}
	if c.BatchSize > c.QueueSize && c.QueueSize > 0 {
		return fmt.Errorf("batch size %d exceeds queue size %d", c.BatchSize, c.QueueSize)
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("flush interval must be >= 0")
	}
	return nil
}
