// Package store provides the sole read and write path to the rental document.
//
// Reads load and decode the whole document from the backend on every call.
// Writes are handed to a single writer goroutine over a channel and committed
// one at a time in enqueue order, so two writes never interleave on the
// backend. Nothing is cached between calls: callers own a full
// read-modify-write cycle per operation and overlapping cycles may lose
// updates.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"bikerental/pkg/domain"
)

// ErrClosed is wrapped in the StorageError returned by writes issued before
// Start or after Close.
var ErrClosed = errors.New("store closed")

const defaultQueueSize = 64

// CommitHook runs on the writer goroutine after a successful commit and
// receives the committed payload.
type CommitHook func(ctx context.Context, payload []byte)

// WriteObserver receives write outcomes for metrics.
type WriteObserver interface {
	ObserveWrite(driver domain.StorageDriver, success bool, duration time.Duration)
	ObserveQueueDepth(depth int)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for failed writes and hooks.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithQueueSize sets the writer channel capacity.
func WithQueueSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithCommitHook registers a hook invoked after every successful commit.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) {
		if hook != nil {
			s.hooks = append(s.hooks, hook)
		}
	}
}

// WithObserver attaches a write observer.
func WithObserver(o WriteObserver) Option {
	return func(s *Store) { s.observer = o }
}

// Store serializes document writes through one goroutine.
type Store struct {
	backend   domain.DocumentBackend
	logger    *slog.Logger
	hooks     []CommitHook
	observer  WriteObserver
	queueSize int

	mu      sync.RWMutex
	started bool
	closed  bool
	queue   chan writeRequest
	wg      sync.WaitGroup
}

type writeRequest struct {
	ctx     context.Context
	payload []byte
	result  chan error
}

// New constructs a store over backend. Call Start before issuing writes.
func New(backend domain.DocumentBackend, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = make(chan writeRequest, s.queueSize)
	return s
}

// Start launches the writer goroutine. Calling Start twice is a no-op.
func (s *Store) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	s.wg.Add(1)
	go s.loop()
}

// Close stops accepting writes, waits for queued writes to drain and closes
// the backend.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.backend.Close()
}

// Driver reports the backend driver.
func (s *Store) Driver() domain.StorageDriver { return s.backend.Driver() }

// Ping checks the backend can be read without initializing it.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.backend.Load(ctx); err != nil && !errors.Is(err, domain.ErrDocumentAbsent) {
		return domain.StorageError{Op: "ping", Err: err}
	}
	return nil
}

// Read loads and decodes the document. An absent document is initialized,
// persisted and returned.
func (s *Store) Read(ctx context.Context) (domain.Document, error) {
	payload, err := s.backend.Load(ctx)
	if errors.Is(err, domain.ErrDocumentAbsent) {
		doc := domain.NewDocument()
		if err := s.Write(ctx, doc); err != nil {
			return domain.Document{}, err
		}
		return doc, nil
	}
	if err != nil {
		return domain.Document{}, domain.StorageError{Op: "read", Err: err}
	}
	var doc domain.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.Document{}, domain.StorageError{Op: "decode", Err: err}
	}
	doc.Normalize()
	return doc, nil
}

// Write encodes the document and waits for the writer goroutine to commit
// it. Writes queued earlier always finish first. Once queued the write is
// committed even if ctx is cancelled.
func (s *Store) Write(ctx context.Context, doc domain.Document) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return domain.StorageError{Op: "encode", Err: err}
	}
	return s.enqueue(ctx, payload)
}

// Update runs one read-modify-write cycle. The document is written only when
// fn succeeds. No lock is held between the read and the write.
func (s *Store) Update(ctx context.Context, fn func(*domain.Document) error) error {
	doc, err := s.Read(ctx)
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	return s.Write(ctx, doc)
}

func (s *Store) enqueue(ctx context.Context, payload []byte) error {
	req := writeRequest{
		ctx:     context.WithoutCancel(ctx),
		payload: payload,
		result:  make(chan error, 1),
	}
	s.mu.RLock()
	if !s.started || s.closed {
		s.mu.RUnlock()
		return domain.StorageError{Op: "write", Err: ErrClosed}
	}
	s.queue <- req
	s.mu.RUnlock()
	return <-req.result
}

func (s *Store) loop() {
	defer s.wg.Done()
	for req := range s.queue {
		req.result <- s.commit(req)
		if s.observer != nil {
			s.observer.ObserveQueueDepth(len(s.queue))
		}
	}
}

func (s *Store) commit(req writeRequest) error {
	started := time.Now()
	err := s.backend.Commit(req.ctx, req.payload)
	if s.observer != nil {
		s.observer.ObserveWrite(s.backend.Driver(), err == nil, time.Since(started))
	}
	if err != nil {
		s.logger.Error("document write failed",
			"driver", s.backend.Driver(),
			"bytes", len(req.payload),
			"err", err,
		)
		return domain.StorageError{Op: "write", Err: err}
	}
	for _, hook := range s.hooks {
		hook(req.ctx, req.payload)
	}
	return nil
}
