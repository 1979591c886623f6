package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// BadgerConfig configures the embedded Badger backend.
type BadgerConfig struct {
	// Path is the on-disk directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory.
	InMemory bool
}

// BadgerCache persists entries in an embedded Badger store so a single
// instance keeps its cache across restarts.
type BadgerCache struct {
	db *badger.DB
}

// NewBadger opens a Badger store.
func NewBadger(cfg BadgerConfig, logger zerolog.Logger) (*BadgerCache, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(badgerLogger{logger: logger.With().Str("component", "badger").Logger()})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

// Get implements Cache.
func (c *BadgerCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements Cache.
func (c *BadgerCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

// Ping implements Cache.
func (c *BadgerCache) Ping(context.Context) error {
	if c.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close implements Cache.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

// badgerLogger routes Badger's internal logging through zerolog.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}
