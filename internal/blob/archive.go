package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SnapshotPrefix namespaces archived documents inside the blob store.
const SnapshotPrefix = "snapshots/"

const (
	snapshotContentType = "application/json"
	snapshotTimeLayout  = "20060102T150405.000000000Z"
)

// Archiver copies every committed document into a blob store. Its Archive
// method has the shape of a store commit hook.
type Archiver struct {
	store  Store
	logger *slog.Logger
	keep   int
	now    func() time.Time
	newID  func() string
}

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithArchiveLogger sets the logger used for archive failures.
func WithArchiveLogger(logger *slog.Logger) ArchiverOption {
	return func(a *Archiver) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRetention keeps only the newest n snapshots; n <= 0 keeps all.
func WithRetention(n int) ArchiverOption {
	return func(a *Archiver) { a.keep = n }
}

// NewArchiver wraps store.
func NewArchiver(store Store, opts ...ArchiverOption) *Archiver {
	a := &Archiver{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Driver reports the underlying blob driver.
func (a *Archiver) Driver() Driver { return a.store.Driver() }

// Archive stores payload as a new snapshot and applies retention. Failures
// are logged and never returned.
func (a *Archiver) Archive(ctx context.Context, payload []byte) {
	name := a.now().UTC().Format(snapshotTimeLayout) + "-" + a.newID() + ".json"
	info, err := a.store.Put(ctx, SnapshotPrefix+name, bytes.NewReader(payload), PutOptions{ContentType: snapshotContentType})
	if err != nil {
		a.logger.Error("archive snapshot", "driver", a.store.Driver(), "snapshot", name, "error", err)
		return
	}
	a.logger.Debug("snapshot archived", "driver", a.store.Driver(), "snapshot", name, "size_bytes", info.Size)
	if a.keep > 0 {
		if err := a.prune(ctx); err != nil {
			a.logger.Error("prune snapshots", "driver", a.store.Driver(), "error", err)
		}
	}
}

func (a *Archiver) prune(ctx context.Context) error {
	infos, err := a.store.List(ctx, SnapshotPrefix)
	if err != nil {
		return err
	}
	var errs []error
	for len(infos) > a.keep {
		if _, err := a.store.Delete(ctx, infos[0].Key); err != nil {
			errs = append(errs, err)
		}
		infos = infos[1:]
	}
	return errors.Join(errs...)
}

// Snapshots lists archived snapshots oldest first. Keys are reported without
// SnapshotPrefix.
func (a *Archiver) Snapshots(ctx context.Context) ([]Info, error) {
	infos, err := a.store.List(ctx, SnapshotPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Info, len(infos))
	for i, info := range infos {
		info.Key = strings.TrimPrefix(info.Key, SnapshotPrefix)
		out[i] = info
	}
	return out, nil
}

// Snapshot returns one archived document by the name Snapshots reports.
// Unknown or malformed names yield an error wrapping ErrNotFound.
func (a *Archiver) Snapshot(ctx context.Context, name string) (Info, []byte, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return Info{}, nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	info, body, err := a.store.Get(ctx, SnapshotPrefix+name)
	if err != nil {
		return Info{}, nil, err
	}
	defer func() { _ = body.Close() }()
	data, err := io.ReadAll(body)
	if err != nil {
		return Info{}, nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	info.Key = name
	return info, data, nil
}
