package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Redis   RedisConfig
	Badger  BadgerConfig

	// SweepInterval is the memory backend's eviction period. Zero selects
	// DefaultSweepInterval.
	SweepInterval time.Duration
}

// Open builds the backend named by opts.Backend. An empty name selects memory.
func Open(opts Options, logger zerolog.Logger) (Cache, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendMemory:
		if opts.SweepInterval > 0 {
			return NewMemory(WithSweepInterval(opts.SweepInterval)), nil
		}
		return NewMemory(), nil
	case BackendRedis:
		return NewRedis(opts.Redis), nil
	case BackendBadger:
		return NewBadger(opts.Badger, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
