package store

import (
	"bytes"
	"sort"
	"sync"
)

// Memory is an in-memory KV used by tests and by callers that don't need
// durability (e.g. validating a candidate chain before committing it).
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory KV.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements KV.
func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// Put implements KV.
func (m *Memory) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp
	return nil
}

// Delete implements KV.
func (m *Memory) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

// Close implements KV; a no-op for the in-memory backend.
func (m *Memory) Close() error { return nil }

// NewBatch implements KV.
func (m *Memory) NewBatch() Batch {
	return &memoryBatch{m: m}
}

type memoryOp struct {
	key     []byte
	value   []byte
	deleted bool
}

type memoryBatch struct {
	m   *Memory
	ops []memoryOp
}

func (b *memoryBatch) Put(key, value []byte) {
	b.ops = append(b.ops, memoryOp{key: key, value: value})
}

func (b *memoryBatch) Delete(key []byte) {
	b.ops = append(b.ops, memoryOp{key: key, deleted: true})
}

func (b *memoryBatch) Commit() error {
	b.m.mu.Lock()
	defer b.m.mu.Unlock()
	for _, op := range b.ops {
		if op.deleted {
			delete(b.m.data, string(op.key))
			continue
		}
		cp := make([]byte, len(op.value))
		copy(cp, op.value)
		b.m.data[string(op.key)] = cp
	}
	return nil
}

// Cursor implements KV with a snapshot of the matching keys taken at
// cursor-open time, sorted lexicographically.
func (m *Memory) Cursor(prefix []byte) Cursor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &memoryCursor{m: m, prefix: prefix, keys: keys, pos: -1}
}

type memoryCursor struct {
	m      *Memory
	prefix []byte
	keys   []string
	pos    int
	closed bool
}

func (c *memoryCursor) First() bool {
	if c.closed || len(c.keys) == 0 {
		return false
	}
	c.pos = 0
	return true
}

func (c *memoryCursor) Next() bool {
	if c.closed {
		return false
	}
	c.pos++
	return c.pos < len(c.keys)
}

func (c *memoryCursor) Seek(key []byte) error {
	if c.closed {
		return ErrNotFound
	}
	full := append(append([]byte(nil), c.prefix...), key...)
	idx := sort.SearchStrings(c.keys, string(full))
	if idx >= len(c.keys) || c.keys[idx] != string(full) {
		return ErrNotFound
	}
	c.pos = idx
	return nil
}

func (c *memoryCursor) Key() ([]byte, error) {
	if c.closed || c.pos < 0 || c.pos >= len(c.keys) {
		return nil, ErrNotFound
	}
	return bytes.TrimPrefix([]byte(c.keys[c.pos]), c.prefix), nil
}

func (c *memoryCursor) Value() ([]byte, error) {
	if c.closed || c.pos < 0 || c.pos >= len(c.keys) {
		return nil, ErrNotFound
	}
	return c.m.Get([]byte(c.keys[c.pos]))
}

func (c *memoryCursor) Close() error {
	c.closed = true
	return nil
}
