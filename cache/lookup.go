package cache

import (
	"github.com/amjuarez/bytecoin-sub003/crypto"
)

// CheckIfSpent reports whether keyImage is already recorded as spent
// anywhere along this segment's chain, as of (and including) the block
// at asOfHeight. A key image recorded at a height above asOfHeight does
// not count as spent yet, matching spec §4.5.4's "as of" semantics used
// when validating a candidate block against its own parent height.
func (c *BlockchainCache) CheckIfSpent(keyImage crypto.KeyImage, asOfHeight uint32) bool {
	c.mu.RLock()
	if height, ok := c.spentKeyImageByHash[keyImage]; ok {
		c.mu.RUnlock()
		return height <= asOfHeight
	}
	parent := c.parent
	c.mu.RUnlock()
	if parent == nil {
		return false
	}
	return parent.CheckIfSpent(keyImage, asOfHeight)
}

// CheckIfSpentMultisignature reports whether the multisignature output
// identified by (amount, globalIndex) is already spent as of asOfHeight.
func (c *BlockchainCache) CheckIfSpentMultisignature(amount, globalIndex uint64, asOfHeight uint32) bool {
	id := MultisignatureOutputID{Amount: amount, GlobalIndex: globalIndex}
	c.mu.RLock()
	for blockIndex, ids := range c.spentMultisigOutputsByBlock {
		if blockIndex > asOfHeight {
			continue
		}
		for _, spent := range ids {
			if spent == id {
				c.mu.RUnlock()
				return true
			}
		}
	}
	parent := c.parent
	c.mu.RUnlock()
	if parent == nil {
		return false
	}
	return parent.CheckIfSpentMultisignature(amount, globalIndex, asOfHeight)
}

// GetKeyOutputsCountForAmount returns the number of key outputs that
// exist for amount as of (and including) blockIndex, walking to the
// parent when this segment has never recorded the amount. This is also
// how a child segment seeds a fresh per-amount entry's StartIndex (see
// insertKeyOutputLocked).
func (c *BlockchainCache) GetKeyOutputsCountForAmount(amount uint64, blockIndex uint32) uint64 {
	c.mu.RLock()
	if entry, ok := c.keyOutputsGlobalIndexes[amount]; ok {
		n := blockIndexUpperBound(entry.Outputs, blockIndex+1)
		total := entry.StartIndex + uint64(n)
		c.mu.RUnlock()
		return total
	}
	parent := c.parent
	c.mu.RUnlock()
	if parent == nil {
		return 0
	}
	return parent.GetKeyOutputsCountForAmount(amount, blockIndex)
}

// GetMultisignatureCountForAmount is GetKeyOutputsCountForAmount's
// symmetric counterpart for multisignature outputs.
func (c *BlockchainCache) GetMultisignatureCountForAmount(amount uint64, blockIndex uint32) uint64 {
	c.mu.RLock()
	if entry, ok := c.multisignatureStorage[amount]; ok {
		n := blockIndexUpperBound(entry.Outputs, blockIndex+1)
		total := entry.StartIndex + uint64(n)
		c.mu.RUnlock()
		return total
	}
	parent := c.parent
	c.mu.RUnlock()
	if parent == nil {
		return 0
	}
	return parent.GetMultisignatureCountForAmount(amount, blockIndex)
}

// ExtractKeyOutputKeys resolves globalIndexes (this segment's flattened
// per-amount numbering for amount) to the PackedOutIndex each one names,
// walking to the parent for indexes below this segment's own StartIndex.
// Returns false if any requested index does not exist yet.
func (c *BlockchainCache) ExtractKeyOutputKeys(amount uint64, globalIndexes []uint64) ([]PackedOutIndex, bool) {
	c.mu.RLock()
	entry, ok := c.keyOutputsGlobalIndexes[amount]
	var local, remote []uint64
	if ok {
		for _, gi := range globalIndexes {
			if gi >= entry.StartIndex {
				local = append(local, gi)
			} else {
				remote = append(remote, gi)
			}
		}
	} else {
		remote = globalIndexes
	}
	parent := c.parent
	var out []PackedOutIndex
	if len(remote) > 0 {
		if parent == nil {
			c.mu.RUnlock()
			return nil, false
		}
		resolved, ok := parent.ExtractKeyOutputKeys(amount, remote)
		if !ok {
			c.mu.RUnlock()
			return nil, false
		}
		out = append(out, resolved...)
	}
	for _, gi := range local {
		offset := gi - entry.StartIndex
		if offset >= uint64(len(entry.Outputs)) {
			c.mu.RUnlock()
			return nil, false
		}
		out = append(out, entry.Outputs[offset])
	}
	c.mu.RUnlock()
	return out, true
}

// ExtractKeyOutputReferences resolves the same global indexes as
// ExtractKeyOutputKeys but to the (transaction hash, output index) pairs
// callers building a transaction prefix hash for verification need.
func (c *BlockchainCache) ExtractKeyOutputReferences(amount uint64, globalIndexes []uint64) ([]OutputReference, bool) {
	packed, ok := c.ExtractKeyOutputKeys(amount, globalIndexes)
	if !ok {
		return nil, false
	}
	out := make([]OutputReference, len(packed))
	for i, poi := range packed {
		info, err := c.GetTransactionInfoByIndex(poi.BlockIndex, poi.TransactionIndex)
		if err != nil {
			return nil, false
		}
		out[i] = OutputReference{TransactionHash: info.TransactionHash, OutputIndex: poi.OutputIndex}
	}
	return out, true
}

// GetTransactionInfo resolves a transaction by its hash, walking to the
// parent on a local miss — the by-hash counterpart of
// GetTransactionInfoByIndex, for callers (package explorer) that already
// know the hash rather than the (blockIndex, transactionIndex) pair.
func (c *BlockchainCache) GetTransactionInfo(txHash crypto.Hash256) (*CachedTransactionInfo, error) {
	c.mu.RLock()
	if info, ok := c.transactions[txHash]; ok {
		c.mu.RUnlock()
		return info, nil
	}
	parent := c.parent
	c.mu.RUnlock()
	if parent == nil {
		return nil, ErrNotFound
	}
	return parent.GetTransactionInfo(txHash)
}

// GetTransactionInfoByIndex resolves a transaction by its (blockIndex,
// transactionIndex) composite key, walking to the parent on a local miss.
func (c *BlockchainCache) GetTransactionInfoByIndex(blockIndex uint32, transactionIndex uint16) (*CachedTransactionInfo, error) {
	c.mu.RLock()
	if info, ok := c.transactionsByTx[txKey{blockIndex, transactionIndex}]; ok {
		c.mu.RUnlock()
		return info, nil
	}
	parent := c.parent
	c.mu.RUnlock()
	if parent == nil {
		return nil, ErrNotFound
	}
	return parent.GetTransactionInfoByIndex(blockIndex, transactionIndex)
}

// GetTransactionHashesByPaymentId returns every transaction hash tagged
// with paymentID anywhere along this segment's chain.
func (c *BlockchainCache) GetTransactionHashesByPaymentId(paymentID crypto.Hash256) []crypto.Hash256 {
	c.mu.RLock()
	out := append([]crypto.Hash256(nil), c.paymentIds[paymentID]...)
	parent := c.parent
	c.mu.RUnlock()
	if parent != nil {
		out = append(parent.GetTransactionHashesByPaymentId(paymentID), out...)
	}
	return out
}

// GetBlockHashesByTimestamps returns the hashes of every block whose
// timestamp falls in [timestampBegin, timestampBegin+secondsCount),
// walking the full chain.
func (c *BlockchainCache) GetBlockHashesByTimestamps(timestampBegin uint64, secondsCount uint64) []crypto.Hash256 {
	timestampEnd := timestampBegin + secondsCount
	c.mu.RLock()
	lo := sortSearchTimestamps(c.timestampIndex, timestampBegin)
	var out []crypto.Hash256
	for i := lo; i < len(c.timestampIndex) && c.timestampIndex[i].timestamp < timestampEnd; i++ {
		info := c.blockInfos[c.localIndex(c.timestampIndex[i].blockIndex)]
		out = append(out, info.BlockHash)
	}
	parent := c.parent
	c.mu.RUnlock()
	if parent != nil {
		out = append(parent.GetBlockHashesByTimestamps(timestampBegin, secondsCount), out...)
	}
	return out
}

// GetLastTimestamps returns up to count timestamps ending at
// headHeight, oldest first, per spec §4.5.4's retargeting-window
// contract (consumed directly by currency.Currency.NextDifficulty,
// which trims its *newest* end to drop the configured difficulty lag).
func (c *BlockchainCache) GetLastTimestamps(count uint64, headHeight uint32) []uint64 {
	infos := c.getLastBlockInfos(count, headHeight)
	out := make([]uint64, len(infos))
	for i, info := range infos {
		out[i] = info.Timestamp
	}
	return out
}

// GetLastCumulativeDifficulties is GetLastTimestamps' counterpart for
// cumulative difficulty.
func (c *BlockchainCache) GetLastCumulativeDifficulties(count uint64, headHeight uint32) []uint64 {
	infos := c.getLastBlockInfos(count, headHeight)
	out := make([]uint64, len(infos))
	for i, info := range infos {
		out[i] = info.CumulativeDifficulty
	}
	return out
}

// GetLastBlocksSizes returns up to count block sizes ending at
// headHeight, oldest first, for the median-size penalty calculation
// (currency.Currency.GetBlockReward's medianSize input — order is
// immaterial there since the median sorts its input).
func (c *BlockchainCache) GetLastBlocksSizes(count uint64, headHeight uint32) []uint64 {
	infos := c.getLastBlockInfos(count, headHeight)
	out := make([]uint64, len(infos))
	for i, info := range infos {
		out[i] = info.BlockSize
	}
	return out
}

// getLastBlockInfos walks backward from headHeight collecting up to
// count CachedBlockInfo, crossing into the parent chain as needed, then
// reverses the result to oldest-first — the order
// currency.Currency.NextDifficulty's windowed algorithms assume (they
// trim the *front* of the slice to apply the difficulty lag, which only
// makes sense chronologically).
func (c *BlockchainCache) getLastBlockInfos(count uint64, headHeight uint32) []CachedBlockInfo {
	out := make([]CachedBlockInfo, 0, count)
	seg := c
	height := headHeight
	for uint64(len(out)) < count {
		seg.mu.RLock()
		if !seg.ownsHeight(height) {
			parent := seg.parent
			seg.mu.RUnlock()
			if parent == nil {
				break
			}
			seg = parent
			continue
		}
		li := seg.localIndex(height)
		out = append(out, seg.blockInfos[li])
		seg.mu.RUnlock()
		if height == 0 {
			break
		}
		height--
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// GetDifficultyForNextBlock computes the proof-of-work difficulty the
// block at headHeight+1 must satisfy, gathering the trailing
// (timestamp, cumulativeDifficulty) window currency.Currency's
// retargeting algorithms expect.
func (c *BlockchainCache) GetDifficultyForNextBlock(majorVersion uint8, headHeight uint32) uint64 {
	count := c.currency.DifficultyBlocksCount(majorVersion)
	timestamps := c.GetLastTimestamps(count, headHeight)
	cumulativeDifficulties := c.GetLastCumulativeDifficulties(count, headHeight)
	return c.currency.NextDifficulty(majorVersion, headHeight+1, timestamps, cumulativeDifficulties)
}
