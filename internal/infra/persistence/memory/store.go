// Package memory provides an in-process document backend for tests and
// ephemeral runs.
package memory

import (
	"context"
	"sync"

	"bikerental/pkg/domain"
)

var _ domain.DocumentBackend = (*Store)(nil)

// Store holds the last committed payload in memory. CommitErr, when set, is
// returned by every Commit so callers can exercise failure paths.
type Store struct {
	mu        sync.Mutex
	payload   []byte
	commits   int
	CommitErr error
	LoadErr   error
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{} }

// Seed sets the stored payload without counting a commit.
func (s *Store) Seed(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = append([]byte(nil), payload...)
}

func (s *Store) Driver() domain.StorageDriver { return domain.StorageMemory }

func (s *Store) Load(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	if s.payload == nil {
		return nil, domain.ErrDocumentAbsent
	}
	return append([]byte(nil), s.payload...), nil
}

func (s *Store) Commit(_ context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CommitErr != nil {
		return s.CommitErr
	}
	s.payload = append([]byte(nil), payload...)
	s.commits++
	return nil
}

// Commits reports how many commits succeeded.
func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

func (s *Store) Close() error { return nil }
