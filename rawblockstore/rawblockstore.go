// Package rawblockstore implements the append-log sequence container of
// spec §4.4: a sequential store of opaque raw block blobs supporting
// push_back/pop_back/random read/split(n), backed by the store.KV
// persistence boundary. Grounded on
// original_source/src/CryptoNoteCore/MainChainStorage.cpp's push_back/
// pop_back/operator[]/size/clear shape, extended with Split since the
// original never needed to hand a range off to a child segment in one
// call (BlockchainCache::split does it with a pair of vector erases
// instead).
package rawblockstore

import (
	"encoding/binary"
	"fmt"

	"github.com/amjuarez/bytecoin-sub003/store"
	"github.com/pkg/errors"
)

// ErrOutOfRange mirrors MainChainStorage::getBlockByIndex's
// std::out_of_range on an index past the end of the container.
var ErrOutOfRange = errors.New("rawblockstore: index out of range")

// RawBlock is the opaque payload the container stores: the encoded block
// header bytes plus the encoded bytes of each transaction in the block, in
// order (miner transaction first).
type RawBlock struct {
	BlockBytes        []byte
	TransactionsBytes [][]byte
}

// Store is a sequence container over RawBlock backed by a KV, keyed by
// the sequence's own 0-based local index; Split copies the moved tail
// into the child's KV under new local keys starting again at 0.
type Store struct {
	kv    store.KV
	count uint32
}

const countKey = "count"

// Open attaches a Store to kv, recovering count from a prior run.
func Open(kv store.KV) (*Store, error) {
	s := &Store{kv: kv}
	v, err := kv.Get([]byte(countKey))
	if errors.Is(err, store.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "rawblockstore: failed to read count")
	}
	if len(v) != 4 {
		return nil, errors.New("rawblockstore: corrupt count record")
	}
	s.count = binary.LittleEndian.Uint32(v)
	return s, nil
}

func blockKey(index uint32) []byte {
	return []byte(fmt.Sprintf("block/%010d", index))
}

func encodeRawBlock(rb RawBlock) []byte {
	buf := make([]byte, 0, len(rb.BlockBytes)+16)
	var lenbuf [4]byte
	binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(rb.BlockBytes)))
	buf = append(buf, lenbuf[:]...)
	buf = append(buf, rb.BlockBytes...)
	binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(rb.TransactionsBytes)))
	buf = append(buf, lenbuf[:]...)
	for _, tx := range rb.TransactionsBytes {
		binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(tx)))
		buf = append(buf, lenbuf[:]...)
		buf = append(buf, tx...)
	}
	return buf
}

func decodeRawBlock(data []byte) (RawBlock, error) {
	var rb RawBlock
	if len(data) < 4 {
		return rb, errors.New("rawblockstore: truncated raw block record")
	}
	blockLen := binary.LittleEndian.Uint32(data)
	data = data[4:]
	if uint32(len(data)) < blockLen {
		return rb, errors.New("rawblockstore: truncated block bytes")
	}
	rb.BlockBytes = append([]byte(nil), data[:blockLen]...)
	data = data[blockLen:]
	if len(data) < 4 {
		return rb, errors.New("rawblockstore: truncated transaction count")
	}
	txCount := binary.LittleEndian.Uint32(data)
	data = data[4:]
	rb.TransactionsBytes = make([][]byte, 0, txCount)
	for i := uint32(0); i < txCount; i++ {
		if len(data) < 4 {
			return rb, errors.New("rawblockstore: truncated transaction length")
		}
		txLen := binary.LittleEndian.Uint32(data)
		data = data[4:]
		if uint32(len(data)) < txLen {
			return rb, errors.New("rawblockstore: truncated transaction bytes")
		}
		rb.TransactionsBytes = append(rb.TransactionsBytes, append([]byte(nil), data[:txLen]...))
		data = data[txLen:]
	}
	return rb, nil
}

func (s *Store) putCount(n uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], n)
	if err := s.kv.Put([]byte(countKey), buf[:]); err != nil {
		return errors.Wrap(err, "rawblockstore: failed to persist count")
	}
	s.count = n
	return nil
}

// Len returns the number of raw blocks currently stored, mirroring
// MainChainStorage::getBlockCount.
func (s *Store) Len() uint32 { return s.count }

// PushBack appends rawBlock to the end of the sequence, mirroring
// MainChainStorage::pushBlock / storage.push_back.
func (s *Store) PushBack(rawBlock RawBlock) error {
	if err := s.kv.Put(blockKey(s.count), encodeRawBlock(rawBlock)); err != nil {
		return errors.Wrap(err, "rawblockstore: push_back failed")
	}
	return s.putCount(s.count + 1)
}

// PopBack removes the last raw block, mirroring MainChainStorage::popBlock
// / storage.pop_back. Popping an empty store is a no-op, matching the
// underlying vector semantics of doing nothing useful on an empty pop
// (callers are expected not to pop an empty segment).
func (s *Store) PopBack() error {
	if s.count == 0 {
		return nil
	}
	last := s.count - 1
	if err := s.kv.Delete(blockKey(last)); err != nil {
		return errors.Wrap(err, "rawblockstore: pop_back failed")
	}
	return s.putCount(last)
}

// Get returns the raw block at index, mirroring
// MainChainStorage::getBlockByIndex's bounds check and operator[].
func (s *Store) Get(index uint32) (RawBlock, error) {
	if index >= s.count {
		return RawBlock{}, ErrOutOfRange
	}
	v, err := s.kv.Get(blockKey(index))
	if err != nil {
		return RawBlock{}, errors.Wrap(err, "rawblockstore: get failed")
	}
	return decodeRawBlock(v)
}

// Clear removes every stored block, mirroring MainChainStorage::clear.
func (s *Store) Clear() error {
	for i := uint32(0); i < s.count; i++ {
		if err := s.kv.Delete(blockKey(i)); err != nil {
			return errors.Wrap(err, "rawblockstore: clear failed")
		}
	}
	return s.putCount(0)
}

// Split moves elements [n, Len()) out of s and into a freshly-opened Store
// backed by childKV, truncating s to [0, n). This backs
// BlockchainCache::split's move of the raw-block range owned by a new
// child segment; the original never needed to express this as a single
// call because its in-process std::vector supported range erase/copy
// directly, but the contract (child owns the tail, parent keeps the head)
// is the same.
func (s *Store) Split(n uint32, childKV store.KV) (*Store, error) {
	if n > s.count {
		return nil, ErrOutOfRange
	}
	child := &Store{kv: childKV}
	for i := n; i < s.count; i++ {
		rb, err := s.Get(i)
		if err != nil {
			return nil, errors.Wrap(err, "rawblockstore: split read failed")
		}
		if err := child.PushBack(rb); err != nil {
			return nil, errors.Wrap(err, "rawblockstore: split write failed")
		}
	}
	for i := n; i < s.count; i++ {
		if err := s.kv.Delete(blockKey(i)); err != nil {
			return nil, errors.Wrap(err, "rawblockstore: split truncate failed")
		}
	}
	if err := s.putCount(n); err != nil {
		return nil, err
	}
	return child, nil
}
