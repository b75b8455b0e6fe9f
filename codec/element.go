package codec

import (
	"io"

	"github.com/amjuarez/bytecoin-sub003/crypto"
)

// WriteHash writes a fixed 32-byte hash with no length prefix.
func WriteHash(w io.Writer, h crypto.Hash256) error {
	_, err := w.Write(h[:])
	return err
}

// ReadHash reads a fixed 32-byte hash with no length prefix.
func ReadHash(r io.Reader) (crypto.Hash256, error) {
	var h crypto.Hash256
	_, err := io.ReadFull(r, h[:])
	return h, err
}

// WriteHashes writes a varint count followed by that many fixed hashes.
func WriteHashes(w io.Writer, hashes []crypto.Hash256) error {
	if err := WriteVarint(w, uint64(len(hashes))); err != nil {
		return err
	}
	for _, h := range hashes {
		if err := WriteHash(w, h); err != nil {
			return err
		}
	}
	return nil
}

// ReadHashes reads a varint count followed by that many fixed hashes.
func ReadHashes(r io.Reader) ([]crypto.Hash256, error) {
	n, err := ReadVarint(r)
	if err != nil {
		return nil, err
	}
	hashes := make([]crypto.Hash256, n)
	for i := range hashes {
		if hashes[i], err = ReadHash(r); err != nil {
			return nil, err
		}
	}
	return hashes, nil
}

// ErrWriter wraps an io.Writer and sticks on the first error encountered,
// silently no-opping subsequent writes — the same "don't bother checking
// every line" pattern daglabs-btcd/wire/common.go relies on for its
// multi-field writeElements helpers, reimplemented explicitly here since
// this package does not share that file's unexported helper.
type ErrWriter struct {
	w   io.Writer
	Err error
}

// NewErrWriter wraps w for sticky-error writes.
func NewErrWriter(w io.Writer) *ErrWriter {
	return &ErrWriter{w: w}
}

// Varint writes a varint if no previous error has occurred.
func (e *ErrWriter) Varint(v uint64) {
	if e.Err != nil {
		return
	}
	e.Err = WriteVarint(e.w, v)
}

// Hash writes a fixed hash if no previous error has occurred.
func (e *ErrWriter) Hash(h crypto.Hash256) {
	if e.Err != nil {
		return
	}
	e.Err = WriteHash(e.w, h)
}

// Bytes writes a length-prefixed byte slice if no previous error has occurred.
func (e *ErrWriter) Bytes(b []byte) {
	if e.Err != nil {
		return
	}
	e.Err = WriteBytes(e.w, b)
}

// Bool writes a bool byte if no previous error has occurred.
func (e *ErrWriter) Bool(v bool) {
	if e.Err != nil {
		return
	}
	e.Err = WriteBool(e.w, v)
}

// Uint32 writes a fixed 4-byte integer if no previous error has occurred.
func (e *ErrWriter) Uint32(v uint32) {
	if e.Err != nil {
		return
	}
	e.Err = WriteUint32(e.w, v)
}

// Uint64 writes a fixed 8-byte integer if no previous error has occurred.
func (e *ErrWriter) Uint64(v uint64) {
	if e.Err != nil {
		return
	}
	e.Err = WriteUint64(e.w, v)
}
