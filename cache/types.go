// Package cache implements the segmented blockchain cache of spec §4.5:
// one BlockchainCache per segment, owning a contiguous height range and
// the multi-keyed indices (by height, by hash, by payment id, by
// block-in-height) needed to validate future blocks without rebuilding
// global output numbering on every reorg.
//
// The locking and parent/child wiring idiom is grounded on
// daglabs-btcd/blockdag/dag.go's BlockDAG (a single RWMutex guarding the
// index, blockCount and virtual-tip fields together); the indices
// themselves and every operation's semantics are ported line-by-line from
// original_source/src/CryptoNoteCore/BlockchainCache.cpp.
package cache

import (
	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/cryptonote"
	"github.com/amjuarez/bytecoin-sub003/validator"
)

// CachedBlockInfo is the dense per-block summary spec §3 defines,
// indexed within a segment by local height offset.
type CachedBlockInfo struct {
	BlockHash                    crypto.Hash256
	Timestamp                    uint64
	BlockSize                    uint64
	CumulativeDifficulty         uint64
	AlreadyGeneratedCoins        uint64
	AlreadyGeneratedTransactions uint64
	MajorVersion                 uint8
	MinorVersion                 uint8
}

// CachedTransactionInfo is the per-segment transaction record of spec
// §3: a dense summary plus the global indices this segment assigned to
// each of the transaction's outputs for amount-keyed lookups.
type CachedTransactionInfo struct {
	BlockIndex       uint32
	TransactionIndex uint16
	TransactionHash  crypto.Hash256
	UnlockTime       uint64
	Outputs          []cryptonote.OutputTarget
	GlobalIndexes    []uint64
}

// SpentKeyImage identifies that the ring signature of some input at
// BlockIndex spent the output ring referenced by KeyImage.
type SpentKeyImage struct {
	BlockIndex uint32
	KeyImage   crypto.KeyImage
}

// PackedOutIndex locates an output by its position in the chain: the
// block it was created in, the transaction's index within that block,
// and the output's index within that transaction.
type PackedOutIndex struct {
	BlockIndex       uint32
	TransactionIndex uint16
	OutputIndex      uint16
}

// OutputGlobalIndexesForAmount is the per-amount global-index ledger of
// spec §3: outputs[i]'s global index is StartIndex+i. StartIndex is
// inherited from the parent segment's running total at the moment this
// segment first touched the amount.
type OutputGlobalIndexesForAmount struct {
	StartIndex uint64
	Outputs    []PackedOutIndex
}

// MultisignatureOutputID identifies a spent multisignature output by
// amount and global index; an alias of validator.MultisignatureOutputID
// so the two packages share one shape for the spend records that travel
// between PushBlock's input and GetPushedBlockInfo's output.
type MultisignatureOutputID = validator.MultisignatureOutputID

// txKey composite-indexes CachedTransactionInfo by (blockIndex,
// transactionIndex), spec §4.5's "(blockIndex, transactionIndex) unique
// composite" index.
type txKey struct {
	blockIndex       uint32
	transactionIndex uint16
}

// timestampEntry is one row of the timestamp-sorted block index.
type timestampEntry struct {
	timestamp  uint64
	blockIndex uint32
}

// OutputReference identifies an output by the hash of its containing
// transaction and its index within that transaction, the form
// ExtractKeyOutputReferences returns.
type OutputReference struct {
	TransactionHash crypto.Hash256
	OutputIndex     uint16
}
