// Package redis keeps the document under a single Redis string key.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"bikerental/pkg/domain"
)

var _ domain.DocumentBackend = (*Store)(nil)

// DefaultKey is used when no key is configured.
const DefaultKey = "bikerental:document"

// Store persists the document with SET, which replaces the value atomically.
type Store struct {
	client *redis.Client
	key    string
}

// NewStore wraps an existing client.
func NewStore(client *redis.Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Open dials addr and verifies the server answers PING.
func Open(ctx context.Context, addr, key string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewStore(client, key), nil
}

func (s *Store) Driver() domain.StorageDriver { return domain.StorageRedis }

// Key returns the key holding the document.
func (s *Store) Key() string { return s.key }

func (s *Store) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrDocumentAbsent
		}
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}
	return data, nil
}

func (s *Store) Commit(ctx context.Context, payload []byte) error {
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }
