package address

import (
	"strings"
	"testing"

	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/stretchr/testify/require"
)

func testAddress() AccountPublicAddress {
	return AccountPublicAddress{
		SpendPublicKey: crypto.FastHash([]byte("spend")),
		ViewPublicKey:  crypto.FastHash([]byte("view")),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	addr := testAddress()
	s := Encode(6, addr)
	got, err := Decode(6, s)
	require.NoError(t, err)
	require.Equal(t, addr, got)
}

func TestDecodeRejectsCorruptedChecksum(t *testing.T) {
	s := Encode(6, testAddress())
	// Flip the last character to another alphabet member.
	last := s[len(s)-1]
	replacement := byte('2')
	if last == replacement {
		replacement = '3'
	}
	corrupted := s[:len(s)-1] + string(replacement)
	_, err := Decode(6, corrupted)
	require.Error(t, err)
}

func TestDecodeRejectsWrongPrefix(t *testing.T) {
	s := Encode(6, testAddress())
	_, err := Decode(7, s)
	require.ErrorIs(t, err, ErrWrongPrefix)
}

func TestDecodeRejectsNonAlphabetCharacter(t *testing.T) {
	s := Encode(6, testAddress())
	_, err := Decode(6, strings.Replace(s, s[:1], "0", 1))
	require.ErrorIs(t, err, ErrInvalidBase58)
}

func TestDecodeRejectsImpossibleLength(t *testing.T) {
	_, err := Decode(6, "1")
	require.ErrorIs(t, err, ErrInvalidBase58)
}

func TestBase58BlockRoundTrip(t *testing.T) {
	for n := 1; n <= 20; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i * 7)
		}
		decoded, err := decodeBase58(encodeBase58(data))
		require.NoError(t, err)
		require.Equal(t, data, decoded)
	}
}
