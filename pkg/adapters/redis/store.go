// Package redis implements ports.JournalStore on Redis.
//
// Every record is a JSON string under <prefix><id>. A sorted set <prefix>index scores the
// IDs by start time (unix milliseconds) so List can answer most recent first.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/loadkit/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces the keys of the journal.
const DefaultPrefix = "loadkit:journal:"

// Store implements ports.JournalStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires records after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New connects to the Redis server at addr.
func New(addr, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) index() string {
	return s.prefix + "index"
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Append stores the record and indexes it by start time.
func (s *Store) Append(ctx context.Context, record domain.LoadRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.key(record.ID), data, s.ttl)
		pipe.ZAdd(ctx, s.index(), backend.Z{
			Score:  float64(record.StartedAt.UnixMilli()),
			Member: record.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error appending record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (domain.LoadRecord, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.LoadRecord{}, domain.ErrRecordNotFound
		}
		return domain.LoadRecord{}, fmt.Errorf("redis error loading record: %w", err)
	}

	var rec domain.LoadRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.LoadRecord{}, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return rec, nil
}

// List returns records, most recent first. Index entries whose record expired are removed.
func (s *Store) List(ctx context.Context, limit int) ([]domain.LoadRecord, error) {
	ids, err := s.client.ZRevRange(ctx, s.index(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error listing records: %w", err)
	}
	if len(ids) == 0 {
		return []domain.LoadRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error loading records: %w", err)
	}

	records := make([]domain.LoadRecord, 0, len(ids))
	var expired []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		if limit > 0 && len(records) >= limit {
			continue
		}
		var rec domain.LoadRecord
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %s: %w", ids[i], err)
		}
		records = append(records, rec)
	}

	if len(expired) > 0 {
		if err := s.client.ZRem(ctx, s.index(), expired...).Err(); err != nil {
			return nil, fmt.Errorf("redis error cleaning index: %w", err)
		}
	}
	return records, nil
}
