package cache

import (
	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/cryptonote"
	"github.com/amjuarez/bytecoin-sub003/rawblockstore"
	"github.com/amjuarez/bytecoin-sub003/validator"
	"github.com/pkg/errors"
)

// ErrNotTip is returned by PushBlock when the candidate block does not
// extend this segment's current top, spec §4.5.1's first precondition.
var ErrNotTip = errors.New("cache: block does not extend segment tip")

// ErrDuplicateBlock is returned by PushBlock when the candidate block's
// hash is already known along this segment's chain.
var ErrDuplicateBlock = errors.New("cache: block hash already present")

// PushBlock appends a validated block to this segment, the tip-only
// mutation of spec §4.5.1. cachedTransactions carries only the body
// transactions (not the miner transaction, which lives on cachedBlock);
// state carries the key images and multisignature outputs this block's
// inputs spend, already checked unspent as of blockIndex-1 by the
// caller — PushBlock does not re-validate anything, it only records.
//
// Per spec Open Question 4, double-spend detection between two inputs of
// the same candidate block is the caller's (validator's) responsibility:
// PushBlock trusts that state contains no internal duplicate, and
// validator.State.HasKeyImage/HasMultisignature exist precisely so a
// caller can check that before calling here.
//
// The only runtime failures PushBlock can itself produce are hashing the
// block and its transactions and the raw-block append (a storage
// operation); all are attempted first, before any in-memory index is
// touched, so a failure here leaves the segment
// byte-for-byte as it was — the "revert all in-memory side effects"
// contract of spec §4.5.1 falls out for free rather than needing an
// explicit undo log.
func (c *BlockchainCache) PushBlock(
	cachedBlock *cryptonote.CachedBlock,
	cachedTransactions []*cryptonote.CachedTransaction,
	state *validator.State,
	blockSize uint64,
	generatedCoins uint64,
	blockDifficulty uint64,
	rawBlock rawblockstore.RawBlock,
) error {
	blockHash, err := cachedBlock.Hash()
	if err != nil {
		return errors.Wrap(err, "cache: failed to hash block")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	blockIndex := c.startIndex + uint32(len(c.blockInfos))
	if _, ok := c.blockHashIndex[blockHash]; ok || (c.parent != nil && c.parent.HasBlock(blockHash)) {
		return ErrDuplicateBlock
	}
	if cachedBlock.Block.PrevID != c.tipHashLocked() {
		return ErrNotTip
	}

	allTxs := make([]*cryptonote.CachedTransaction, 0, len(cachedTransactions)+1)
	allTxs = append(allTxs, cryptonote.NewCachedTransaction(&cachedBlock.Block.MinerTx))
	allTxs = append(allTxs, cachedTransactions...)
	for _, ctx := range allTxs {
		if _, err := ctx.Hash(); err != nil {
			return errors.Wrap(err, "cache: failed to hash transaction")
		}
	}

	if err := c.rawBlocks.PushBack(rawBlock); err != nil {
		return errors.Wrap(err, "cache: failed to append raw block")
	}

	prevCumDiff, prevCoins, prevTxCount := c.prevCumulativeLocked(blockIndex)

	info := CachedBlockInfo{
		BlockHash:                    blockHash,
		Timestamp:                    cachedBlock.Block.Timestamp,
		BlockSize:                    blockSize,
		CumulativeDifficulty:         prevCumDiff + blockDifficulty,
		AlreadyGeneratedCoins:        prevCoins + generatedCoins,
		AlreadyGeneratedTransactions: prevTxCount + uint64(len(cachedTransactions)) + 1,
		MajorVersion:                 cachedBlock.Block.MajorVersion,
		MinorVersion:                 cachedBlock.Block.MinorVersion,
	}
	c.blockInfos = append(c.blockInfos, info)
	c.blockHashIndex[blockHash] = blockIndex
	c.insertTimestampLocked(info.Timestamp, blockIndex)

	for _, ki := range state.SpentKeyImages {
		c.spentKeyImages = append(c.spentKeyImages, SpentKeyImage{BlockIndex: blockIndex, KeyImage: ki})
		c.spentKeyImageByHash[ki] = blockIndex
	}
	for _, m := range state.SpentMultisignatureGlobalIdx {
		c.spentMultisigOutputsByBlock[blockIndex] = append(c.spentMultisigOutputsByBlock[blockIndex], m)
		c.spentMultisigOutputs[m] = struct{}{}
	}

	for txIndex, ctx := range allTxs {
		if err := c.pushTransactionLocked(blockIndex, uint16(txIndex), ctx); err != nil {
			return err
		}
	}

	log.Debugf("pushed block %s at height %d (%d transactions)", blockHash, blockIndex, len(allTxs))
	return nil
}

func (c *BlockchainCache) pushTransactionLocked(blockIndex uint32, txIndex uint16, ctx *cryptonote.CachedTransaction) error {
	txHash, err := ctx.Hash()
	if err != nil {
		return errors.Wrap(err, "cache: failed to hash transaction")
	}

	tx := ctx.Transaction
	globalIndexes := make([]uint64, len(tx.Outputs))
	outputs := make([]cryptonote.OutputTarget, len(tx.Outputs))
	for outIdx, out := range tx.Outputs {
		outputs[outIdx] = out.Target
		poi := PackedOutIndex{BlockIndex: blockIndex, TransactionIndex: txIndex, OutputIndex: uint16(outIdx)}
		switch {
		case out.Target.ToKey != nil:
			globalIndexes[outIdx] = c.insertKeyOutputLocked(out.Amount, poi, blockIndex)
		case out.Target.Multisignature != nil:
			globalIndexes[outIdx] = c.insertMultisignatureOutputLocked(out.Amount, poi, blockIndex)
		}
	}

	info := &CachedTransactionInfo{
		BlockIndex:       blockIndex,
		TransactionIndex: txIndex,
		TransactionHash:  txHash,
		UnlockTime:       tx.UnlockTime,
		Outputs:          outputs,
		GlobalIndexes:    globalIndexes,
	}
	c.transactions[txHash] = info
	c.transactionsByTx[txKey{blockIndex, txIndex}] = info

	if paymentID, ok := cryptonote.ExtractPaymentID(tx.Extra); ok {
		c.paymentIds[paymentID] = append(c.paymentIds[paymentID], txHash)
	}
	return nil
}

// insertKeyOutputLocked assigns amount's next global index to poi,
// initializing the per-amount entry's StartIndex from the parent
// segment's running total the first time this segment touches amount,
// per spec §4.5.1 step 5.
func (c *BlockchainCache) insertKeyOutputLocked(amount uint64, poi PackedOutIndex, blockIndex uint32) uint64 {
	entry, ok := c.keyOutputsGlobalIndexes[amount]
	if !ok {
		entry = &OutputGlobalIndexesForAmount{}
		if c.parent != nil {
			entry.StartIndex = c.parent.GetKeyOutputsCountForAmount(amount, blockIndex)
		}
		c.keyOutputsGlobalIndexes[amount] = entry
	}
	entry.Outputs = append(entry.Outputs, poi)
	return entry.StartIndex + uint64(len(entry.Outputs)) - 1
}

// insertMultisignatureOutputLocked is insertKeyOutputLocked's symmetric
// counterpart for multisignature outputs.
func (c *BlockchainCache) insertMultisignatureOutputLocked(amount uint64, poi PackedOutIndex, blockIndex uint32) uint64 {
	entry, ok := c.multisignatureStorage[amount]
	if !ok {
		entry = &OutputGlobalIndexesForAmount{}
		if c.parent != nil {
			entry.StartIndex = c.parent.GetMultisignatureCountForAmount(amount, blockIndex)
		}
		c.multisignatureStorage[amount] = entry
	}
	entry.Outputs = append(entry.Outputs, poi)
	return entry.StartIndex + uint64(len(entry.Outputs)) - 1
}

// prevCumulativeLocked returns the cumulative totals as of blockIndex-1,
// reading this segment's own last entry, or the parent's entry at
// blockIndex-1 when this is the segment's first push, or all-zero when
// blockIndex is 0 (genesis has no predecessor).
func (c *BlockchainCache) prevCumulativeLocked(blockIndex uint32) (cumDiff, coins, txCount uint64) {
	if blockIndex == 0 {
		return 0, 0, 0
	}
	if len(c.blockInfos) > 0 {
		last := c.blockInfos[len(c.blockInfos)-1]
		return last.CumulativeDifficulty, last.AlreadyGeneratedCoins, last.AlreadyGeneratedTransactions
	}
	if c.parent != nil {
		info, err := c.parent.GetBlockInfo(blockIndex - 1)
		if err == nil {
			return info.CumulativeDifficulty, info.AlreadyGeneratedCoins, info.AlreadyGeneratedTransactions
		}
	}
	return 0, 0, 0
}

// tipHashLocked returns the hash of this segment's current top block, or
// the zero hash if the entire chain (this segment and its ancestors) is
// still empty — the state a genesis block's PrevID must match.
func (c *BlockchainCache) tipHashLocked() (hash crypto.Hash256) {
	if len(c.blockInfos) > 0 {
		return c.blockInfos[len(c.blockInfos)-1].BlockHash
	}
	if c.parent != nil {
		h, err := c.parent.GetBlockInfo(c.startIndex - 1)
		if err == nil {
			return h.BlockHash
		}
	}
	return hash
}

// insertTimestampLocked keeps the timestamp index sorted by timestamp,
// inserting via binary search — blocks are usually but not strictly
// monotonic in timestamp, so a plain append-and-assume-sorted would
// break GetBlockHashesByTimestamps' range search.
func (c *BlockchainCache) insertTimestampLocked(timestamp uint64, blockIndex uint32) {
	entry := timestampEntry{timestamp: timestamp, blockIndex: blockIndex}
	idx := sortSearchTimestamps(c.timestampIndex, timestamp)
	c.timestampIndex = append(c.timestampIndex, timestampEntry{})
	copy(c.timestampIndex[idx+1:], c.timestampIndex[idx:])
	c.timestampIndex[idx] = entry
}
