// Package crypto provides the primitive types and hash functions the core
// ledger engine treats as an external boundary: fixed-size keys, signatures
// and hashes, plus the fast and tree hashes the core computes itself.
//
// Slow (proof-of-work) hashing and ring-signature verification are
// deliberately left behind the Primitives interface below — spec §1 scopes
// the cryptographic primitives out of the core and specifies them only at
// their interface boundary.
package crypto

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/sha3"
)

// HashSize is the size in bytes of a Hash256 value.
const HashSize = 32

// SignatureSize is the size in bytes of a ring/multisignature element.
const SignatureSize = 64

// Hash256 is an opaque 32-byte value used for block hashes, transaction
// hashes, payment ids, public keys, key images and secret keys. It is
// totally ordered by lexicographic byte order.
type Hash256 [HashSize]byte

// Signature is a 64-byte ring-signature element.
type Signature [SignatureSize]byte

// PublicKey, SecretKey and KeyImage are all Hash256-shaped per spec §3.
type (
	PublicKey = Hash256
	SecretKey = Hash256
	KeyImage  = Hash256
)

// String renders the hash as lowercase hex, most significant byte first —
// CryptoNote hashes are not byte-reversed for display the way Bitcoin's are.
func (h Hash256) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero hash.
func (h Hash256) IsZero() bool {
	return h == Hash256{}
}

// Less implements the lexicographic total order required by spec §3.
func (h Hash256) Less(other Hash256) bool {
	return bytes.Compare(h[:], other[:]) < 0
}

// HashFromBytes copies b into a new Hash256, erroring if the length is wrong.
func HashFromBytes(b []byte) (Hash256, error) {
	var h Hash256
	if len(b) != HashSize {
		return h, fmt.Errorf("crypto: invalid hash length %d, expected %d", len(b), HashSize)
	}
	copy(h[:], b)
	return h, nil
}

// HashFromHex decodes a hex string into a Hash256.
func HashFromHex(s string) (Hash256, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash256{}, err
	}
	return HashFromBytes(b)
}

// SortHashes sorts hashes in place by lexicographic byte order.
func SortHashes(hashes []Hash256) {
	sort.Slice(hashes, func(i, j int) bool { return hashes[i].Less(hashes[j]) })
}

// FastHash computes the generic object hash used for transaction hash,
// block prefix hash and payment-id extraction: CryptoNote's cn_fast_hash,
// which is Keccak-256 as originally specified (the pre-NIST-padding
// variant), not SHA3-256.
func FastHash(data []byte) Hash256 {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out Hash256
	copy(out[:], h.Sum(nil))
	return out
}

// FastHashConcat hashes the concatenation of several byte slices without an
// intermediate allocation beyond the underlying hash.Hash buffer.
func FastHashConcat(parts ...[]byte) Hash256 {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash256
	copy(out[:], h.Sum(nil))
	return out
}
