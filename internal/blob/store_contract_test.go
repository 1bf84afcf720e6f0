package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"bikerental/internal/config"
)

func contractStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	fsStore, err := Open(ctx, config.Archive{Driver: "fs", FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	memStore, err := Open(ctx, config.Archive{Driver: "memory"})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	return map[string]Store{
		"fs":     fsStore,
		"memory": memStore,
		"s3":     NewMockS3ForTests(),
	}
}

func TestStoresShareContract(t *testing.T) {
	for name, store := range contractStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			opts := PutOptions{ContentType: "application/json", Metadata: map[string]string{"kind": "snapshot"}}
			info, err := store.Put(ctx, "snapshots/a.json", strings.NewReader(`{"a":1}`), opts)
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Size != 7 || info.ETag == "" {
				t.Fatalf("unexpected put info %+v", info)
			}
			if _, err := store.Put(ctx, "snapshots/a.json", strings.NewReader(`{}`), PutOptions{}); !errors.Is(err, ErrExists) {
				t.Fatalf("second put should fail with ErrExists, got %v", err)
			}
			if _, err := store.Put(ctx, "snapshots/b.json", strings.NewReader(`{"b":2}`), opts); err != nil {
				t.Fatalf("put b: %v", err)
			}
			if _, err := store.Put(ctx, "other/c.json", strings.NewReader(`{}`), PutOptions{}); err != nil {
				t.Fatalf("put c: %v", err)
			}

			head, err := store.Head(ctx, "snapshots/a.json")
			if err != nil {
				t.Fatalf("head: %v", err)
			}
			if head.ContentType != "application/json" || head.Metadata["kind"] != "snapshot" {
				t.Fatalf("unexpected head %+v", head)
			}

			got, body, err := store.Get(ctx, "snapshots/a.json")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			data, _ := io.ReadAll(body)
			_ = body.Close()
			if string(data) != `{"a":1}` || got.Size != 7 {
				t.Fatalf("unexpected get %+v %s", got, data)
			}

			list, err := store.List(ctx, "snapshots/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 2 || list[0].Key != "snapshots/a.json" || list[1].Key != "snapshots/b.json" {
				t.Fatalf("unexpected list %+v", list)
			}

			existed, err := store.Delete(ctx, "snapshots/a.json")
			if err != nil || !existed {
				t.Fatalf("delete: existed=%v err=%v", existed, err)
			}
			existed, err = store.Delete(ctx, "snapshots/a.json")
			if err != nil || existed {
				t.Fatalf("second delete: existed=%v err=%v", existed, err)
			}
			if _, err := store.Head(ctx, "snapshots/a.json"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("head after delete should be ErrNotFound, got %v", err)
			}
			if _, _, err := store.Get(ctx, "snapshots/a.json"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("get after delete should be ErrNotFound, got %v", err)
			}
			if store.Driver() != Driver(name) {
				t.Fatalf("unexpected driver %s", store.Driver())
			}
		})
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.Archive{Driver: "ftp"}); err == nil || !strings.Contains(err.Error(), "unknown blob driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
	if _, err := Open(context.Background(), config.Archive{Driver: "s3"}); err == nil || !strings.Contains(err.Error(), "bucket") {
		t.Fatalf("expected missing bucket error, got %v", err)
	}
}
