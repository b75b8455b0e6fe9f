// Package cryptonote defines the block and transaction domain types the
// rest of the ledger engine operates on, and their canonical binary
// encoding. Shapes are ported field-for-field from
// original_source/src/cryptonote_core/cryptonote_basic.h; encoding follows
// the variant tag bytes fixed there (VARIANT_TAG(binary_archive, ...)).
//
// The struct layout mirrors daglabs-btcd/wire/blockheader.go's separation
// of a header type from the full block, and its BlockHash()-memoization
// idiom (cachedHash computed lazily and cached on the CachedBlock wrapper).
package cryptonote

import (
	"github.com/amjuarez/bytecoin-sub003/crypto"
)

// Input tag bytes, matching VARIANT_TAG(binary_archive, ...) in
// cryptonote_basic.h exactly.
const (
	InputTagGenerate       byte = 0xff
	InputTagToScript       byte = 0x00
	InputTagToScriptHash   byte = 0x01
	InputTagToKey          byte = 0x02
	InputTagMultisignature byte = 0x03
)

// Output tag bytes.
const (
	OutputTagToScript       byte = 0x00
	OutputTagToScriptHash   byte = 0x01
	OutputTagToKey          byte = 0x02
	OutputTagMultisignature byte = 0x03
)

// Object tag bytes for top-level serialized objects.
const (
	ObjectTagTransaction byte = 0xcc
	ObjectTagBlock       byte = 0xbb
)

// Block major versions, matching BLOCK_MAJOR_VERSION_1/2/3 in
// cryptonote_config.h.
const (
	BlockMajorVersion1 uint8 = 1
	BlockMajorVersion2 uint8 = 2
	BlockMajorVersion3 uint8 = 3
)

// BlockMinorVersion0/1 are the minor-version values UpgradeDetector votes on.
const (
	BlockMinorVersion0 uint8 = 0
	BlockMinorVersion1 uint8 = 1
)

// InputGenerate is the sole miner-tx input: a coinbase with no signatures.
type InputGenerate struct {
	Height uint64
}

// InputToKey spends a ring of decoy-mixed outputs identified by their
// per-amount global index offsets, and commits to the real output's key
// image to prevent double spends.
type InputToKey struct {
	Amount     uint64
	KeyOffsets []uint64
	KeyImage   crypto.KeyImage
}

// AbsoluteOutputIndexes decodes KeyOffsets (stored on the wire as
// relative, prefix-sum-encoded deltas to keep small ring members cheap
// to encode) back into the absolute per-amount global indexes the ring
// actually references, per spec §3's "relativeOutputOffsets decodes to
// absolute global indices by prefix-sum".
func (in *InputToKey) AbsoluteOutputIndexes() []uint64 {
	out := make([]uint64, len(in.KeyOffsets))
	var running uint64
	for i, off := range in.KeyOffsets {
		running += off
		out[i] = running
	}
	return out
}

// InputMultisignature spends a single multisignature output.
type InputMultisignature struct {
	Amount      uint64
	Signatures  uint32
	OutputIndex uint64
}

// Input is a tagged union over the three input kinds this engine handles.
// TransactionInputToScript/ToScriptHash exist in the original format but
// carry no fields and are rejected at decode time (never constructed on
// mainnet); InputGenerate/InputToKey/InputMultisignature are the only
// variants this core constructs or validates.
type Input struct {
	Generate       *InputGenerate
	ToKey          *InputToKey
	Multisignature *InputMultisignature
}

// Tag returns this input's canonical variant tag byte.
func (in Input) Tag() (byte, error) {
	switch {
	case in.Generate != nil:
		return InputTagGenerate, nil
	case in.ToKey != nil:
		return InputTagToKey, nil
	case in.Multisignature != nil:
		return InputTagMultisignature, nil
	default:
		return 0, errEmptyInput
	}
}

// OutputToKey is a one-time output spendable by whoever can derive the
// matching key image from this public key.
type OutputToKey struct {
	Key crypto.PublicKey
}

// OutputMultisignature requires RequiredSignatures of the listed Keys to
// spend.
type OutputMultisignature struct {
	Keys               []crypto.PublicKey
	RequiredSignatures uint32
}

// OutputTarget is a tagged union over the two output kinds this engine
// indexes.
type OutputTarget struct {
	ToKey          *OutputToKey
	Multisignature *OutputMultisignature
}

// Tag returns this output target's canonical variant tag byte.
func (t OutputTarget) Tag() (byte, error) {
	switch {
	case t.ToKey != nil:
		return OutputTagToKey, nil
	case t.Multisignature != nil:
		return OutputTagMultisignature, nil
	default:
		return 0, errEmptyOutput
	}
}

// Output pairs an amount with its spending target.
type Output struct {
	Amount uint64
	Target OutputTarget
}

// TransactionPrefix is the unsigned body of a transaction: version,
// unlock time, inputs, outputs and the free-form extra field (which
// carries the transaction public key and, for miner txs in a merge-mined
// chain, the merge-mining tag).
type TransactionPrefix struct {
	Version    uint64
	UnlockTime uint64
	Inputs     []Input
	Outputs    []Output
	Extra      []byte
}

// Transaction is a TransactionPrefix plus one ring signature per
// ToKey/Multisignature input. InputGenerate carries zero signatures.
type Transaction struct {
	TransactionPrefix
	Signatures [][]crypto.Signature
}

// SignatureCount returns how many signature elements in is expected to
// carry, matching Transaction::getSignatureSize in the original.
func (in Input) SignatureCount() int {
	switch {
	case in.Generate != nil:
		return 0
	case in.ToKey != nil:
		return len(in.ToKey.KeyOffsets)
	case in.Multisignature != nil:
		return int(in.Multisignature.Signatures)
	default:
		return 0
	}
}

// BlockHeader carries the fields common to every major version. Version 1
// blocks serialize Timestamp/PrevID/Nonce directly; version 2+ blocks move
// those fields into the merge-mining ParentBlock and serialize only PrevID
// here (see EncodeBlockHeader).
type BlockHeader struct {
	MajorVersion uint8
	MinorVersion uint8
	Nonce        uint32
	Timestamp    uint64
	PrevID       crypto.Hash256
}

// ParentBlock is the merge-mining auxiliary header embedded in major
// version 2+ blocks: an independent proof-of-work header for a foreign
// chain, with a merkle branch tying this chain's block hash into its
// coinbase.
type ParentBlock struct {
	MajorVersion         uint8
	MinorVersion         uint8
	Timestamp            uint64
	PrevID               crypto.Hash256
	Nonce                uint32
	MinerTx              Transaction
	NumberOfTransactions uint64
	MinerTxBranch        []crypto.Hash256
	BlockchainBranch     []crypto.Hash256
}

// Block is a full block: header, optional merge-mining parent, the miner
// (coinbase) transaction, and the hashes of the transactions it includes.
type Block struct {
	BlockHeader
	ParentBlock ParentBlock
	MinerTx     Transaction
	TxHashes    []crypto.Hash256
}

// IsGenesis reports whether b has no previous block, identifying the root
// of a segment tree.
func (b *Block) IsGenesis() bool {
	return b.PrevID.IsZero()
}
