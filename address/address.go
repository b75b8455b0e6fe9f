// Package address implements the public address string format of spec
// §6: base58 over a varint network prefix, the account's spend and view
// public keys, and an embedded 4-byte fast-hash checksum. The block-wise
// base58 variant is CryptoNote's, not bitcoin's leading-zero-preserving
// big-integer form.
package address

import (
	"bytes"

	"github.com/amjuarez/bytecoin-sub003/codec"
	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/pkg/errors"
)

// checksumSize is the number of leading fast-hash bytes appended to the
// payload before base58 encoding.
const checksumSize = 4

var (
	// ErrChecksumMismatch describes an error where decoding failed due
	// to a bad checksum.
	ErrChecksumMismatch = errors.New("address: checksum mismatch")

	// ErrWrongPrefix is returned when a decoded address carries a
	// network prefix other than the expected one.
	ErrWrongPrefix = errors.New("address: wrong network prefix")

	// ErrMalformed is returned when the payload is not a varint prefix
	// followed by exactly two public keys.
	ErrMalformed = errors.New("address: malformed payload")
)

// AccountPublicAddress is the public half of an account: the key
// incoming payments are addressed to and the key a view wallet scans
// with.
type AccountPublicAddress struct {
	SpendPublicKey crypto.PublicKey
	ViewPublicKey  crypto.PublicKey
}

// Encode renders addr as the base58 address string for the network
// identified by prefix (config.Params.PublicAddressBase58Prefix).
func Encode(prefix uint64, addr AccountPublicAddress) string {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = codec.WriteVarint(&buf, prefix)
	buf.Write(addr.SpendPublicKey[:])
	buf.Write(addr.ViewPublicKey[:])

	checksum := crypto.FastHash(buf.Bytes())
	buf.Write(checksum[:checksumSize])
	return encodeBase58(buf.Bytes())
}

// Decode parses s, verifies its embedded checksum and network prefix,
// and returns the account keys it carries. Key well-formedness beyond
// shape (curve membership) belongs to the crypto primitives boundary
// and is the caller's to enforce before using the keys.
func Decode(prefix uint64, s string) (AccountPublicAddress, error) {
	var addr AccountPublicAddress

	data, err := decodeBase58(s)
	if err != nil {
		return addr, err
	}
	if len(data) <= checksumSize {
		return addr, ErrMalformed
	}

	payload, checksum := data[:len(data)-checksumSize], data[len(data)-checksumSize:]
	expected := crypto.FastHash(payload)
	if !bytes.Equal(checksum, expected[:checksumSize]) {
		return addr, ErrChecksumMismatch
	}

	gotPrefix, n, err := codec.DecodeVarintBytes(payload)
	if err != nil {
		return addr, ErrMalformed
	}
	if gotPrefix != prefix {
		return addr, ErrWrongPrefix
	}
	keys := payload[n:]
	if len(keys) != 2*crypto.HashSize {
		return addr, ErrMalformed
	}
	copy(addr.SpendPublicKey[:], keys[:crypto.HashSize])
	copy(addr.ViewPublicKey[:], keys[crypto.HashSize:])
	return addr, nil
}
