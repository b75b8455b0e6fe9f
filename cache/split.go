package cache

import (
	"sort"

	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/store"
	"github.com/pkg/errors"
)

// ErrInvalidSplitIndex is returned by Split when splitBlockIndex does not
// satisfy spec §4.5.2's precondition startIndex < splitBlockIndex <=
// topIndex.
var ErrInvalidSplitIndex = errors.New("cache: invalid split index")

// Split partitions this tip segment at splitBlockIndex: blocks
// [startIndex, splitBlockIndex) remain in c, and blocks
// [splitBlockIndex, topIndex] move into a newly constructed child
// segment returned to the caller, per spec §4.5.2. childKV backs the new
// segment's raw-block store; the tree.Tree arena is responsible for
// allocating it (the cache package owns no storage-allocation policy of
// its own).
//
// The defining correctness property (spec §4.5.2, §8 property 1) is that
// every output's global index is unchanged by the split: an output that
// lived at StartIndex+i before the split lives at the same global index
// afterward, split across the two segments' StartIndex fields.
func (c *BlockchainCache) Split(splitBlockIndex uint32, childKV store.KV) (*BlockchainCache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blockInfos) == 0 {
		return nil, ErrInvalidSplitIndex
	}
	topIndex := c.topBlockIndexLocked()
	if splitBlockIndex <= c.startIndex || splitBlockIndex > topIndex {
		return nil, ErrInvalidSplitIndex
	}

	childRaw, err := c.rawBlocks.Split(splitBlockIndex-c.startIndex, childKV)
	if err != nil {
		return nil, errors.Wrap(err, "cache: failed to split raw block store")
	}

	child := newSegment(c.currency, splitBlockIndex, c, childRaw)
	localSplit := c.localIndex(splitBlockIndex)

	movedTxHashes := c.splitBlockInfosLocked(child, localSplit, splitBlockIndex)
	c.splitTransactionsLocked(child, splitBlockIndex)
	c.splitPaymentIdsLocked(child, movedTxHashes)
	c.splitSpentKeyImagesLocked(child, splitBlockIndex)
	c.splitAmountIndexLocked(c.keyOutputsGlobalIndexes, child.keyOutputsGlobalIndexes, splitBlockIndex)
	c.splitAmountIndexLocked(c.multisignatureStorage, child.multisignatureStorage, splitBlockIndex)
	c.splitSpentMultisigLocked(child, splitBlockIndex)

	child.children = c.children
	for _, grandchild := range child.children {
		grandchild.mu.Lock()
		grandchild.parent = child
		grandchild.mu.Unlock()
	}
	c.children = []*BlockchainCache{child}

	log.Debugf("split segment at height %d into [%d,%d) / [%d,%d]", splitBlockIndex, c.startIndex, splitBlockIndex, splitBlockIndex, topIndex)
	return child, nil
}

// splitBlockInfosLocked moves blockInfos, blockHashIndex and
// timestampIndex entries at or above splitBlockIndex to child, returning
// the set of transaction hashes whose containing block moved (used by
// splitPaymentIdsLocked to follow them).
func (c *BlockchainCache) splitBlockInfosLocked(child *BlockchainCache, localSplit int, splitBlockIndex uint32) map[crypto.Hash256]struct{} {
	child.blockInfos = append(child.blockInfos, c.blockInfos[localSplit:]...)
	c.blockInfos = c.blockInfos[:localSplit]

	for hash, height := range c.blockHashIndex {
		if height >= splitBlockIndex {
			child.blockHashIndex[hash] = height
			delete(c.blockHashIndex, hash)
		}
	}

	var kept []timestampEntry
	for _, e := range c.timestampIndex {
		if e.blockIndex >= splitBlockIndex {
			child.timestampIndex = append(child.timestampIndex, e)
		} else {
			kept = append(kept, e)
		}
	}
	c.timestampIndex = kept
	sort.Slice(child.timestampIndex, func(i, j int) bool {
		return child.timestampIndex[i].timestamp < child.timestampIndex[j].timestamp
	})

	moved := make(map[crypto.Hash256]struct{})
	for hash, info := range c.transactions {
		if info.BlockIndex >= splitBlockIndex {
			moved[hash] = struct{}{}
		}
	}
	return moved
}

func (c *BlockchainCache) splitTransactionsLocked(child *BlockchainCache, splitBlockIndex uint32) {
	for hash, info := range c.transactions {
		if info.BlockIndex >= splitBlockIndex {
			child.transactions[hash] = info
			delete(c.transactions, hash)
		}
	}
	for key, info := range c.transactionsByTx {
		if key.blockIndex >= splitBlockIndex {
			child.transactionsByTx[key] = info
			delete(c.transactionsByTx, key)
		}
	}
}

// splitPaymentIdsLocked moves each (paymentId -> txHash) pair whose
// txHash is in moved to child, per spec §4.5.2's "when a transaction
// moves, any payment-id entry pointing to that txHash also moves".
func (c *BlockchainCache) splitPaymentIdsLocked(child *BlockchainCache, moved map[crypto.Hash256]struct{}) {
	for paymentID, hashes := range c.paymentIds {
		var keep, move []crypto.Hash256
		for _, h := range hashes {
			if _, ok := moved[h]; ok {
				move = append(move, h)
			} else {
				keep = append(keep, h)
			}
		}
		if len(move) > 0 {
			child.paymentIds[paymentID] = append(child.paymentIds[paymentID], move...)
		}
		if len(keep) == 0 {
			delete(c.paymentIds, paymentID)
		} else {
			c.paymentIds[paymentID] = keep
		}
	}
}

func (c *BlockchainCache) splitSpentKeyImagesLocked(child *BlockchainCache, splitBlockIndex uint32) {
	cut := keyImageLowerBound(c.spentKeyImages, splitBlockIndex)
	child.spentKeyImages = append(child.spentKeyImages, c.spentKeyImages[cut:]...)
	for _, ski := range child.spentKeyImages {
		child.spentKeyImageByHash[ski.KeyImage] = ski.BlockIndex
		delete(c.spentKeyImageByHash, ski.KeyImage)
	}
	c.spentKeyImages = c.spentKeyImages[:cut]
}

// splitAmountIndexLocked implements spec §4.5.2's per-amount move for
// both keyOutputsGlobalIndexes and multisignatureStorage (identical
// shape, shared logic): the suffix of outputs whose BlockIndex is at or
// above splitBlockIndex moves to child's entry for the same amount, with
// the child's StartIndex computed so the moved outputs' global indices
// are unchanged. If the parent's remaining entry becomes empty it is
// erased, matching "if the resulting lower-half entry becomes empty,
// erase it from self".
func (c *BlockchainCache) splitAmountIndexLocked(parentIdx, childIdx map[uint64]*OutputGlobalIndexesForAmount, splitBlockIndex uint32) {
	for amount, entry := range parentIdx {
		cut := blockIndexUpperBound(entry.Outputs, splitBlockIndex)
		k := len(entry.Outputs) - cut
		if k == 0 {
			continue
		}
		childEntry := &OutputGlobalIndexesForAmount{
			StartIndex: entry.StartIndex + uint64(len(entry.Outputs)) - uint64(k),
			Outputs:    append([]PackedOutIndex(nil), entry.Outputs[cut:]...),
		}
		childIdx[amount] = childEntry
		entry.Outputs = entry.Outputs[:cut]
		if len(entry.Outputs) == 0 {
			delete(parentIdx, amount)
		}
	}
}

func (c *BlockchainCache) splitSpentMultisigLocked(child *BlockchainCache, splitBlockIndex uint32) {
	for blockIndex, ids := range c.spentMultisigOutputsByBlock {
		if blockIndex < splitBlockIndex {
			continue
		}
		child.spentMultisigOutputsByBlock[blockIndex] = ids
		delete(c.spentMultisigOutputsByBlock, blockIndex)
		for _, id := range ids {
			child.spentMultisigOutputs[id] = struct{}{}
			delete(c.spentMultisigOutputs, id)
		}
	}
}
