package cryptonote

import (
	"bytes"
	"sync"

	"github.com/amjuarez/bytecoin-sub003/codec"
	"github.com/amjuarez/bytecoin-sub003/crypto"
)

// CachedTransaction wraps a Transaction with a memoized hash and prefix
// hash, the way daglabs-btcd/wire's blockheader caches BlockHash() lazily
// instead of recomputing it on every call. Built once per transaction at
// decode time and passed down to BlockchainCache.PushBlock; the cache
// itself never recomputes a hash it has already been handed.
type CachedTransaction struct {
	Transaction *Transaction

	once       sync.Once
	hash       crypto.Hash256
	hashErr    error
	prefixOnce sync.Once
	prefixHash crypto.Hash256
	prefixErr  error
}

// NewCachedTransaction wraps tx for hash memoization.
func NewCachedTransaction(tx *Transaction) *CachedTransaction {
	return &CachedTransaction{Transaction: tx}
}

// Hash returns tx's full-encoding hash, computing and caching it on first
// call.
func (c *CachedTransaction) Hash() (crypto.Hash256, error) {
	c.once.Do(func() {
		c.hash, c.hashErr = TransactionHash(c.Transaction)
	})
	return c.hash, c.hashErr
}

// PrefixHash returns the hash of tx's unsigned prefix, computing and
// caching it on first call.
func (c *CachedTransaction) PrefixHash() (crypto.Hash256, error) {
	c.prefixOnce.Do(func() {
		c.prefixHash, c.prefixErr = PrefixHash(&c.Transaction.TransactionPrefix)
	})
	return c.prefixHash, c.prefixErr
}

// Amounts returns the per-input and per-output amounts of the wrapped
// transaction, the shape Currency.IsFusionTransaction and the reward
// calculation consume.
func (c *CachedTransaction) Amounts() (inputs []uint64, outputs []uint64) {
	for _, in := range c.Transaction.Inputs {
		switch {
		case in.ToKey != nil:
			inputs = append(inputs, in.ToKey.Amount)
		case in.Multisignature != nil:
			inputs = append(inputs, in.Multisignature.Amount)
		}
	}
	for _, out := range c.Transaction.Outputs {
		outputs = append(outputs, out.Amount)
	}
	return inputs, outputs
}

// Fee returns the difference between input and output amounts, 0 for a
// miner transaction (which has no KeyInput/MultisignatureInput amounts to
// sum).
func (c *CachedTransaction) Fee() uint64 {
	in, out := c.Amounts()
	var sumIn, sumOut uint64
	for _, a := range in {
		sumIn += a
	}
	for _, a := range out {
		sumOut += a
	}
	if sumIn < sumOut {
		return 0
	}
	return sumIn - sumOut
}

// MaxMixin returns the largest ring size (KeyOffsets length) across the
// transaction's KeyInputs, 0 if it carries none (a miner transaction).
func (c *CachedTransaction) MaxMixin() int {
	max := 0
	for _, in := range c.Transaction.Inputs {
		if in.ToKey == nil {
			continue
		}
		if n := len(in.ToKey.KeyOffsets); n > max {
			max = n
		}
	}
	return max
}

// BinarySize returns the byte length of the transaction's canonical
// encoding, the size figure that feeds GetBlockReward's penalty
// computation and the per-block size-limit check.
func (c *CachedTransaction) BinarySize() (int, error) {
	var buf bytes.Buffer
	if err := EncodeTransaction(&buf, c.Transaction); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}

// CachedBlock wraps a Block with a memoized id hash. For major version 1
// the id is FastHash of the header+miner-tx-root+tx-count encoding; for
// version 2+ it additionally folds in the parent block per
// get_block_hash / get_block_longhash semantics: computeBlockHash encodes
// the ParentBlock itself with EncodeParentBlock.
type CachedBlock struct {
	Block *Block

	once    sync.Once
	hash    crypto.Hash256
	hashErr error
}

// NewCachedBlock wraps b for hash memoization.
func NewCachedBlock(b *Block) *CachedBlock {
	return &CachedBlock{Block: b}
}

// Hash returns the block's id hash, computing and caching it on first
// call. It hashes the header fields, the miner transaction's hash, and
// the merkle root of the body transaction hashes prefixed by the miner
// tx hash — get_block_hash in cryptonote_format_utils.cpp.
func (c *CachedBlock) Hash() (crypto.Hash256, error) {
	c.once.Do(func() {
		c.hash, c.hashErr = computeBlockHash(c.Block)
	})
	return c.hash, c.hashErr
}

func computeBlockHash(b *Block) (crypto.Hash256, error) {
	minerTxHash, err := TransactionHash(&b.MinerTx)
	if err != nil {
		return crypto.Hash256{}, err
	}
	leaves := make([]crypto.Hash256, 0, 1+len(b.TxHashes))
	leaves = append(leaves, minerTxHash)
	leaves = append(leaves, b.TxHashes...)
	root := crypto.TreeHash(leaves)

	var buf bytes.Buffer
	if err := EncodeBlockHeader(&buf, &b.BlockHeader); err != nil {
		return crypto.Hash256{}, err
	}
	if b.MajorVersion >= BlockMajorVersion2 {
		if err := EncodeParentBlock(&buf, &b.ParentBlock); err != nil {
			return crypto.Hash256{}, err
		}
	}
	if err := codec.WriteHash(&buf, root); err != nil {
		return crypto.Hash256{}, err
	}
	if err := codec.WriteVarint(&buf, uint64(1+len(b.TxHashes))); err != nil {
		return crypto.Hash256{}, err
	}

	// The id hash is computed over a length-prefixed blob of the above
	// encoding (get_object_hash wraps the block-header-plus-root bytes in
	// one more varint-length prefix before hashing), matching
	// get_block_hash's "block_size" treatment.
	var outer bytes.Buffer
	if err := codec.WriteVarint(&outer, uint64(buf.Len())); err != nil {
		return crypto.Hash256{}, err
	}
	outer.Write(buf.Bytes())
	return crypto.FastHash(outer.Bytes()), nil
}
