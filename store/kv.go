// Package store provides the key-value persistence boundary underneath
// the raw block stores of spec §4.5.5/§6: a small KV interface plus a
// LevelDB-backed implementation and an in-memory implementation for
// tests. The cache's segment snapshot does not use it; it is written to
// an io.Writer. Grounded on daglabs-btcd/database/ffldb's use of goleveldb
// (database/ffldb/ldb/cursor.go) for the cursor/prefix-scan idiom.
package store

import "github.com/pkg/errors"

// ErrNotFound is returned by Get when the key is absent, matching the
// teacher's database.ErrNotFound sentinel usage pattern.
var ErrNotFound = errors.New("store: key not found")

// KV is the persistence boundary a raw block store (rawblockstore.Store)
// is built on.
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	NewBatch() Batch
	Cursor(prefix []byte) Cursor
	Close() error
}

// Batch accumulates writes for atomic application, mirroring the
// teacher's use of leveldb.Batch through its own database layer.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Commit() error
}

// Cursor iterates a key range under a common prefix, shaped after
// daglabs-btcd/database/ffldb/ldb.LevelDBCursor.
type Cursor interface {
	First() bool
	Next() bool
	Seek(key []byte) error
	Key() ([]byte, error)
	Value() ([]byte, error)
	Close() error
}
