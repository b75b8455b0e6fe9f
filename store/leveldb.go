package store

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is a KV backed by a goleveldb database, grounded on
// daglabs-btcd/database/ffldb's goleveldb wrapping.
type LevelDB struct {
	ldb *leveldb.DB
}

// OpenLevelDB opens (creating if absent) a LevelDB-backed KV at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "store: failed to open leveldb at %s", path)
	}
	return &LevelDB{ldb: db}, nil
}

// Get implements KV.
func (db *LevelDB) Get(key []byte) ([]byte, error) {
	v, err := db.ldb.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: get failed")
	}
	return v, nil
}

// Put implements KV.
func (db *LevelDB) Put(key, value []byte) error {
	return errors.Wrap(db.ldb.Put(key, value, nil), "store: put failed")
}

// Delete implements KV.
func (db *LevelDB) Delete(key []byte) error {
	return errors.Wrap(db.ldb.Delete(key, nil), "store: delete failed")
}

// Close implements KV.
func (db *LevelDB) Close() error {
	return errors.Wrap(db.ldb.Close(), "store: close failed")
}

// NewBatch implements KV.
func (db *LevelDB) NewBatch() Batch {
	return &levelDBBatch{db: db.ldb, batch: new(leveldb.Batch)}
}

type levelDBBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelDBBatch) Put(key, value []byte) { b.batch.Put(key, value) }
func (b *levelDBBatch) Delete(key []byte)     { b.batch.Delete(key) }
func (b *levelDBBatch) Commit() error {
	return errors.Wrap(b.db.Write(b.batch, nil), "store: batch commit failed")
}

// Cursor implements KV, matching daglabs-btcd/database/ffldb/ldb's
// prefix-scan cursor shape.
func (db *LevelDB) Cursor(prefix []byte) Cursor {
	it := db.ldb.NewIterator(util.BytesPrefix(prefix), nil)
	return &levelDBCursor{it: it, prefix: prefix}
}

type levelDBCursor struct {
	it     iterator.Iterator
	prefix []byte
	closed bool
}

func (c *levelDBCursor) First() bool {
	if c.closed {
		return false
	}
	return c.it.First()
}

func (c *levelDBCursor) Next() bool {
	if c.closed {
		return false
	}
	return c.it.Next()
}

func (c *levelDBCursor) Seek(key []byte) error {
	if c.closed {
		return errors.New("store: cannot seek a closed cursor")
	}
	if !c.it.Seek(key) {
		return ErrNotFound
	}
	if !bytes.Equal(c.it.Key(), key) {
		return ErrNotFound
	}
	return nil
}

func (c *levelDBCursor) Key() ([]byte, error) {
	if c.closed {
		return nil, errors.New("store: cannot read the key of a closed cursor")
	}
	full := c.it.Key()
	if full == nil {
		return nil, ErrNotFound
	}
	return bytes.TrimPrefix(full, c.prefix), nil
}

func (c *levelDBCursor) Value() ([]byte, error) {
	if c.closed {
		return nil, errors.New("store: cannot read the value of a closed cursor")
	}
	v := c.it.Value()
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

func (c *levelDBCursor) Close() error {
	if c.closed {
		return errors.New("store: cursor already closed")
	}
	c.closed = true
	c.it.Release()
	return nil
}
