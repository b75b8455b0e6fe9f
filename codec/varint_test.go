package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 16384, 1 << 40, ^uint64(0)}
	for _, v := range values {
		var buf bytes.Buffer
		require.NoError(t, WriteVarint(&buf, v))
		got, err := ReadVarint(&buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, 0, buf.Len(), "no trailing bytes left for value %d", v)
	}
}

func TestVarintRejectsNonCanonicalEncoding(t *testing.T) {
	// 0x00 alone encodes 0 canonically. 0x80 0x00 encodes the same value
	// with a redundant continuation byte and must be rejected.
	buf := bytes.NewReader([]byte{0x80, 0x00})
	_, err := ReadVarint(buf)
	require.ErrorIs(t, err, ErrNonCanonicalVarint)
}

func TestVarintRejectsNonCanonicalHighChunk(t *testing.T) {
	// 1 encodes as 0x01. 0x81 0x00 is a non-canonical 2-byte encoding of 1.
	buf := bytes.NewReader([]byte{0x81, 0x00})
	_, err := ReadVarint(buf)
	require.ErrorIs(t, err, ErrNonCanonicalVarint)
}

func TestVarintAcceptsInteriorZeroChunks(t *testing.T) {
	// 1<<14 canonically encodes as 0x80 0x80 0x01: the zero chunks carry
	// continuation bits and are not an overlong encoding.
	buf := bytes.NewReader([]byte{0x80, 0x80, 0x01})
	got, err := ReadVarint(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(1)<<14, got)
}

func TestVarintRejectsOverflow(t *testing.T) {
	// Nine 0xFF bytes followed by 0x01 is the canonical encoding of the
	// maximum 64-bit value; the same prefix followed by 0x02 names 2^64
	// and must be rejected, as must an encoding that keeps the
	// continuation bit going past ten bytes.
	maxEncoding := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}
	got, err := ReadVarint(bytes.NewReader(maxEncoding))
	require.NoError(t, err)
	require.Equal(t, ^uint64(0), got)

	over := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02}
	_, err = ReadVarint(bytes.NewReader(over))
	require.ErrorIs(t, err, ErrVarintOverflow)

	tooLong := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x81, 0x01}
	_, err = ReadVarint(bytes.NewReader(tooLong))
	require.ErrorIs(t, err, ErrVarintOverflow)

	_, _, err = DecodeVarintBytes(over)
	require.ErrorIs(t, err, ErrVarintOverflow)
}

func TestBoolRejectsNonCanonicalByte(t *testing.T) {
	buf := bytes.NewReader([]byte{2})
	_, err := ReadBool(buf)
	require.Error(t, err)
}

func TestBytesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{1, 2, 3, 4, 5}
	require.NoError(t, WriteBytes(&buf, payload))
	got, err := ReadBytes(&buf, 0)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestReadBytesRejectsOverBound(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBytes(&buf, make([]byte, 100)))
	_, err := ReadBytes(&buf, 10)
	require.Error(t, err)
}
