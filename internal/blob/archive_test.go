package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"bikerental/internal/infra/blob/memory"
)

func newTestArchiver(store Store, opts ...ArchiverOption) *Archiver {
	a := NewArchiver(store, opts...)
	tick := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	seq := 0
	a.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	a.newID = func() string {
		seq++
		return fmt.Sprintf("id%d", seq)
	}
	return a
}

func TestArchiveStoresTimestampedSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	a := newTestArchiver(store)
	a.Archive(ctx, []byte(`{"bikes":[]}`))

	snaps, err := a.Snapshots(ctx)
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Key != "20240101T100001.000000000Z-id1.json" {
		t.Fatalf("unexpected snapshots %+v", snaps)
	}
	info, data, err := a.Snapshot(ctx, snaps[0].Key)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if string(data) != `{"bikes":[]}` || info.ContentType != "application/json" || info.Key != snaps[0].Key {
		t.Fatalf("unexpected snapshot %+v %s", info, data)
	}
	if _, err := store.Head(ctx, SnapshotPrefix+snaps[0].Key); err != nil {
		t.Fatalf("blob should live under the snapshot prefix: %v", err)
	}
}

func TestArchiveRetentionKeepsNewest(t *testing.T) {
	ctx := context.Background()
	a := newTestArchiver(memory.New(), WithRetention(2))
	for i := 0; i < 4; i++ {
		a.Archive(ctx, []byte(fmt.Sprintf(`{"n":%d}`, i)))
	}
	snaps, err := a.Snapshots(ctx)
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %+v", snaps)
	}
	_, data, err := a.Snapshot(ctx, snaps[1].Key)
	if err != nil || string(data) != `{"n":3}` {
		t.Fatalf("newest snapshot should be kept, got %s err=%v", data, err)
	}
	if !strings.HasSuffix(snaps[0].Key, "-id3.json") {
		t.Fatalf("oldest kept snapshot should be the third, got %s", snaps[0].Key)
	}
}

func TestSnapshotRejectsUnsafeNames(t *testing.T) {
	a := newTestArchiver(memory.New())
	for _, name := range []string{"", "../data.json", "nested/x.json", `a\b`, "missing.json"} {
		if _, _, err := a.Snapshot(context.Background(), name); !errors.Is(err, ErrNotFound) {
			t.Fatalf("name %q: expected ErrNotFound, got %v", name, err)
		}
	}
}

type failingStore struct {
	Store
	putErr error
}

func (f failingStore) Put(context.Context, string, io.Reader, PutOptions) (Info, error) {
	return Info{}, f.putErr
}

func TestArchiveFailureIsLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	a := newTestArchiver(failingStore{Store: memory.New(), putErr: errors.New("bucket gone")}, WithArchiveLogger(logger))
	a.Archive(context.Background(), []byte(`{}`))
	out := buf.String()
	if !strings.Contains(out, "archive snapshot") || !strings.Contains(out, "bucket gone") {
		t.Fatalf("expected logged failure, got %q", out)
	}
	if a.Driver() != DriverMemory {
		t.Fatalf("unexpected driver %s", a.Driver())
	}
}
