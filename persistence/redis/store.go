// Package redis persists the history document to a Redis key, for
// processes that already run against Redis and want the audit trail to
// survive host-local disk loss.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gomodule/redigo/redis"

	"github.com/dnstools/requestq/errors"
	redisconn "github.com/dnstools/requestq/internal/redis"
	"github.com/dnstools/requestq/item"
)

// Store implements history.Persister on top of a Redis key. The whole
// history document is written as a single JSON value, matching the file
// store's document format.
type Store struct {
	pool    *redis.Pool
	options Options
}

// NewStore creates a new Redis history store
func NewStore(options Options) *Store {
	if options.Key == "" {
		options.Key = DefaultOptions().Key
	}
	return &Store{options: options}
}

// Connect establishes connection to Redis
func (s *Store) Connect(ctx context.Context) error {
	s.pool = redisconn.NewPool(s.options.connOptions())

	// Test connection
	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return errors.NewConnectionError(s.options.URI,
			fmt.Errorf("ping failed: %w", err))
	}

	return nil
}

// Close closes the Redis connection pool
func (s *Store) Close() error {
	if s.pool != nil {
		return s.pool.Close()
	}
	return nil
}

// Health checks the Redis connection health
func (s *Store) Health() error {
	if s.pool == nil {
		return errors.ErrNotConnected
	}

	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return errors.NewConnectionError(s.options.URI,
			fmt.Errorf("health check failed: %w", err))
	}

	return nil
}

// Save writes the full history document to the configured key.
func (s *Store) Save(entries []item.Snapshot) error {
	if s.pool == nil {
		return errors.ErrNotConnected
	}

	if entries == nil {
		entries = []item.Snapshot{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return errors.NewPersistenceError("save", s.options.Key, err)
	}

	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("SET", s.options.Key, data); err != nil {
		return errors.NewPersistenceError("save", s.options.Key, err)
	}
	return nil
}

// Load reads the history document back. A missing key is not an error,
// it just means no history has been written yet.
func (s *Store) Load() ([]item.Snapshot, error) {
	if s.pool == nil {
		return nil, errors.ErrNotConnected
	}

	conn := s.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", s.options.Key))
	if err == redis.ErrNil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewPersistenceError("load", s.options.Key, err)
	}

	var entries []item.Snapshot
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.NewPersistenceError("load", s.options.Key, err)
	}
	return entries, nil
}
