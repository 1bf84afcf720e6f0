package domain

import "context"

// StorageDriver identifies a concrete document backend implementation.
type StorageDriver string

const (
	StorageFile     StorageDriver = "file"     // JSON file on local disk (default)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageRedis    StorageDriver = "redis"    // single redis key
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
)

// DocumentBackend persists the serialized document. Implementations store and
// return opaque bytes; parsing and write ordering belong to the store above them.
type DocumentBackend interface {
	// Load returns the last committed payload or ErrDocumentAbsent.
	Load(ctx context.Context) ([]byte, error)
	// Commit replaces the stored payload. Readers must observe either the
	// previous payload or the new one, never a mix.
	Commit(ctx context.Context, payload []byte) error
	Driver() StorageDriver
	Close() error
}
