package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/aretw0/otec/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "otec:"

// farFuture is the index score of logs without a TTL (2100-01-01).
const farFuture = 4102444800

// Store implements ports.LogStore using Redis.
// Each entity's log is a list of JSON records; a sorted set indexes entities by expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration of entity logs, refreshed on every Append.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client returns the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(entityID int) string {
	return s.prefix + "log:" + strconv.Itoa(entityID)
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Append pushes the record onto the entity's list.
func (s *Store) Append(ctx context.Context, entityID int, rec domain.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	score := float64(farFuture)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key(entityID), data)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(entityID), s.ttl)
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: strconv.Itoa(entityID),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// Load returns the entity's records in append order.
func (s *Store) Load(ctx context.Context, entityID int) ([]domain.Record, error) {
	vals, err := s.client.LRange(ctx, s.key(entityID), 0, -1).Result()
	if err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("failed to read from redis: %w", err)
	}
	if len(vals) == 0 {
		return nil, domain.ErrEntityNotFound
	}

	recs := make([]domain.Record, len(vals))
	for i, v := range vals {
		if err := json.Unmarshal([]byte(v), &recs[i]); err != nil {
			return nil, fmt.Errorf("%w: entity %d record %d: %v", domain.ErrCorruptLog, entityID, i, err)
		}
	}
	return recs, nil
}

// Delete removes the entity's log and index entry.
func (s *Store) Delete(ctx context.Context, entityID int) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(entityID))
	pipe.ZRem(ctx, s.indexKey(), strconv.Itoa(entityID))

	_, err := pipe.Exec(ctx)
	return err
}

// List returns live entity IDs.
// Expired entries are pruned from the index lazily.
func (s *Store) List(ctx context.Context) ([]int, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired entities: %w", err)
	}

	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
