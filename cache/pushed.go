package cache

import (
	"github.com/amjuarez/bytecoin-sub003/rawblockstore"
	"github.com/amjuarez/bytecoin-sub003/validator"
)

// PushedBlockInfo is everything GetPushedBlockInfo reconstructs about a
// block this segment holds: the raw bytes as stored, and the derived
// values PushBlock computed at push time, recovered here by subtracting
// the previous block's running totals rather than being stored
// redundantly per block.
type PushedBlockInfo struct {
	RawBlock        rawblockstore.RawBlock
	BlockSize       uint64
	BlockDifficulty uint64
	GeneratedCoins  uint64
	State           *validator.State
}

// GetPushedBlockInfo reconstructs the full record PushBlock was called
// with for the block at blockIndex, per spec §4.5.3. It only looks at
// this segment directly: blockIndex must be owned locally (ownsHeight),
// matching the original's "pushed block info is retrieved from the
// segment that holds the block, not walked up the parent chain" scoping
// — a caller wanting a block from an ancestor segment calls
// GetPushedBlockInfo on that ancestor directly.
func (c *BlockchainCache) GetPushedBlockInfo(blockIndex uint32) (PushedBlockInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.ownsHeight(blockIndex) {
		return PushedBlockInfo{}, ErrNotFound
	}

	localIdx := blockIndex - c.startIndex
	rawBlock, err := c.rawBlocks.Get(localIdx)
	if err != nil {
		return PushedBlockInfo{}, err
	}

	info := c.blockInfos[c.localIndex(blockIndex)]
	var prevCumDiff, prevCoins uint64
	if blockIndex > c.startIndex {
		prev := c.blockInfos[c.localIndex(blockIndex)-1]
		prevCumDiff, prevCoins = prev.CumulativeDifficulty, prev.AlreadyGeneratedCoins
	} else if c.parent != nil {
		prevInfo, err := c.parent.GetBlockInfo(blockIndex - 1)
		if err == nil {
			prevCumDiff, prevCoins = prevInfo.CumulativeDifficulty, prevInfo.AlreadyGeneratedCoins
		}
	}

	state := validator.New()
	for _, ski := range c.spentKeyImages {
		if ski.BlockIndex == blockIndex {
			state.AddSpentKeyImage(ski.KeyImage)
		}
	}
	for _, id := range c.spentMultisigOutputsByBlock[blockIndex] {
		state.AddSpentMultisignature(id.Amount, id.GlobalIndex)
	}

	return PushedBlockInfo{
		RawBlock:        rawBlock,
		BlockSize:       info.BlockSize,
		BlockDifficulty: info.CumulativeDifficulty - prevCumDiff,
		GeneratedCoins:  info.AlreadyGeneratedCoins - prevCoins,
		State:           state,
	}, nil
}
