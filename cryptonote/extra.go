package cryptonote

import (
	"github.com/amjuarez/bytecoin-sub003/codec"
	"github.com/amjuarez/bytecoin-sub003/crypto"
)

// Extra field tags, matching TX_EXTRA_* in cryptonote_format_utils.h.
const (
	ExtraTagPadding     byte = 0x00
	ExtraTagPubKey      byte = 0x01
	ExtraTagNonce       byte = 0x02
	ExtraTagMergeMining byte = 0x03
	ExtraNoncePaymentID byte = 0x00
)

// ExtractTxPublicKey scans extra for the TX_EXTRA_PUBKEY field, matching
// get_tx_pub_key_from_extra. Returns ok=false if extra carries no public
// key field.
func ExtractTxPublicKey(extra []byte) (key crypto.PublicKey, ok bool) {
	for i := 0; i < len(extra); {
		tag := extra[i]
		i++
		switch tag {
		case ExtraTagPadding:
			// Padding runs until the first nonzero byte or end of buffer.
			for i < len(extra) && extra[i] == 0 {
				i++
			}
		case ExtraTagPubKey:
			if i+crypto.HashSize > len(extra) {
				return key, false
			}
			copy(key[:], extra[i:i+crypto.HashSize])
			return key, true
		case ExtraTagNonce:
			if i >= len(extra) {
				return key, false
			}
			size := int(extra[i])
			i++
			i += size
		case ExtraTagMergeMining:
			if i >= len(extra) {
				return key, false
			}
			size := int(extra[i])
			i++
			i += size
		default:
			return key, false
		}
	}
	return key, false
}

// ExtractPaymentID scans extra for a TX_EXTRA_NONCE field carrying a
// plain (unencrypted) payment id, matching get_payment_id_from_tx_extra.
// Returns ok=false when extra carries no nonce field, the nonce isn't a
// payment-id-shaped nonce, or the payment id is the encrypted
// (short-form) variant this engine does not index.
func ExtractPaymentID(extra []byte) (id crypto.Hash256, ok bool) {
	for i := 0; i < len(extra); {
		tag := extra[i]
		i++
		switch tag {
		case ExtraTagPadding:
			for i < len(extra) && extra[i] == 0 {
				i++
			}
		case ExtraTagPubKey:
			if i+crypto.HashSize > len(extra) {
				return id, false
			}
			i += crypto.HashSize
		case ExtraTagNonce:
			if i >= len(extra) {
				return id, false
			}
			size := int(extra[i])
			i++
			if i+size > len(extra) {
				return id, false
			}
			nonce := extra[i : i+size]
			i += size
			if len(nonce) == 1+crypto.HashSize && nonce[0] == ExtraNoncePaymentID {
				copy(id[:], nonce[1:])
				return id, true
			}
		case ExtraTagMergeMining:
			if i >= len(extra) {
				return id, false
			}
			size := int(extra[i])
			i++
			i += size
		default:
			return id, false
		}
	}
	return id, false
}

// MergeMiningTag is the tagged field a merge-mined parent chain's miner
// transaction carries in its extra, committing to an auxiliary chain's
// block tree via a merkle root.
type MergeMiningTag struct {
	Depth      uint64
	MerkleRoot crypto.Hash256
}

// ExtractMergeMiningTag scans extra for the TX_EXTRA_MERGE_MINING_TAG
// field. Fails with ErrMergeMiningTagMissing when absent (the
// WrongMergeMiningTag case of spec §4.1) and ErrMerkleBranchTooDeep when
// the tag's depth exceeds 256 (spec §4.1's MerkleBranchTooDeep case).
func ExtractMergeMiningTag(extra []byte) (MergeMiningTag, error) {
	for i := 0; i < len(extra); {
		tag := extra[i]
		i++
		switch tag {
		case ExtraTagPadding:
			for i < len(extra) && extra[i] == 0 {
				i++
			}
		case ExtraTagPubKey:
			if i+crypto.HashSize > len(extra) {
				return MergeMiningTag{}, errMergeMiningTagMissing
			}
			i += crypto.HashSize
		case ExtraTagNonce:
			if i >= len(extra) {
				return MergeMiningTag{}, errMergeMiningTagMissing
			}
			size := int(extra[i])
			i++
			i += size
		case ExtraTagMergeMining:
			if i >= len(extra) {
				return MergeMiningTag{}, errMergeMiningTagMissing
			}
			size := int(extra[i])
			i++
			if i+size > len(extra) {
				return MergeMiningTag{}, errMergeMiningTagMissing
			}
			payload := extra[i : i+size]
			depth, n, err := codec.DecodeVarintBytes(payload)
			if err != nil {
				return MergeMiningTag{}, errMergeMiningTagMissing
			}
			if depth > 256 {
				return MergeMiningTag{}, errMerkleBranchTooDeep
			}
			if len(payload)-n != crypto.HashSize {
				return MergeMiningTag{}, errMergeMiningTagMissing
			}
			var root crypto.Hash256
			copy(root[:], payload[n:])
			return MergeMiningTag{Depth: depth, MerkleRoot: root}, nil
		default:
			return MergeMiningTag{}, errMergeMiningTagMissing
		}
	}
	return MergeMiningTag{}, errMergeMiningTagMissing
}
