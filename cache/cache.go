package cache

import (
	"sort"
	"sync"

	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/currency"
	"github.com/amjuarez/bytecoin-sub003/logs"
	"github.com/amjuarez/bytecoin-sub003/rawblockstore"
	"github.com/pkg/errors"
)

var log = logs.New("CACHE")

// ErrNotFound is returned by lookups that walk the full segment chain
// without finding the requested record.
var ErrNotFound = errors.New("cache: not found")

// BlockchainCache is one segment of the segment tree: an immutable-below-
// its-top slice of the chain owning its own indices, chained to a parent
// segment for anything it doesn't carry locally. Only the tip segment of
// the active chain accepts PushBlock; every other segment is read-only.
//
// parent is a plain pointer rather than a weak reference: spec §4.5
// models it as weak so a parent's lifetime isn't prolonged by a child
// the active chain no longer reaches, but in this port every segment is
// reachable from tree.Tree's active tip or one of its tracked
// alternative tips, and tree.Tree never drops either, so no segment is
// ever released while the tree lives and this package needs no
// weak-pointer discipline of its own.
type BlockchainCache struct {
	mu sync.RWMutex

	currency *currency.Currency

	startIndex uint32
	parent     *BlockchainCache
	children   []*BlockchainCache

	blockInfos     []CachedBlockInfo
	blockHashIndex map[crypto.Hash256]uint32 // absolute height
	timestampIndex []timestampEntry          // sorted by timestamp

	transactions     map[crypto.Hash256]*CachedTransactionInfo
	transactionsByTx map[txKey]*CachedTransactionInfo

	spentKeyImages      []SpentKeyImage // sorted by BlockIndex (append order)
	spentKeyImageByHash map[crypto.KeyImage]uint32

	keyOutputsGlobalIndexes map[uint64]*OutputGlobalIndexesForAmount
	multisignatureStorage   map[uint64]*OutputGlobalIndexesForAmount

	spentMultisigOutputs        map[MultisignatureOutputID]struct{}
	spentMultisigOutputsByBlock map[uint32][]MultisignatureOutputID

	paymentIds map[crypto.Hash256][]crypto.Hash256

	rawBlocks *rawblockstore.Store
}

// New constructs the genesis segment (startIndex 0, no parent).
func New(cur *currency.Currency, rawBlocks *rawblockstore.Store) *BlockchainCache {
	return newSegment(cur, 0, nil, rawBlocks)
}

func newSegment(cur *currency.Currency, startIndex uint32, parent *BlockchainCache, rawBlocks *rawblockstore.Store) *BlockchainCache {
	return &BlockchainCache{
		currency:                    cur,
		startIndex:                  startIndex,
		parent:                      parent,
		blockHashIndex:              make(map[crypto.Hash256]uint32),
		transactions:                make(map[crypto.Hash256]*CachedTransactionInfo),
		transactionsByTx:            make(map[txKey]*CachedTransactionInfo),
		spentKeyImageByHash:         make(map[crypto.KeyImage]uint32),
		keyOutputsGlobalIndexes:     make(map[uint64]*OutputGlobalIndexesForAmount),
		multisignatureStorage:       make(map[uint64]*OutputGlobalIndexesForAmount),
		spentMultisigOutputs:        make(map[MultisignatureOutputID]struct{}),
		spentMultisigOutputsByBlock: make(map[uint32][]MultisignatureOutputID),
		paymentIds:                  make(map[crypto.Hash256][]crypto.Hash256),
		rawBlocks:                   rawBlocks,
	}
}

// NewChild constructs a fresh empty segment starting at startIndex with
// parent as its ancestor, for package tree to attach as a new branch
// (either the continuation cache.Split produces, or a brand new
// alternative-chain tip). It does not register the child on parent's
// children slice; call AttachChild for that.
func NewChild(cur *currency.Currency, startIndex uint32, parent *BlockchainCache, rawBlocks *rawblockstore.Store) *BlockchainCache {
	return newSegment(cur, startIndex, parent, rawBlocks)
}

// AttachChild registers child as one of parent's children, for package
// tree to wire a freshly built alternative branch into the segment tree.
func AttachChild(parent, child *BlockchainCache) {
	parent.mu.Lock()
	defer parent.mu.Unlock()
	parent.children = append(parent.children, child)
}

// StartIndex returns the height of this segment's first block.
func (c *BlockchainCache) StartIndex() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.startIndex
}

// Parent returns this segment's parent, or nil at the root.
func (c *BlockchainCache) Parent() *BlockchainCache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.parent
}

// Children returns a snapshot of this segment's current children.
func (c *BlockchainCache) Children() []*BlockchainCache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*BlockchainCache, len(c.children))
	copy(out, c.children)
	return out
}

// BlockCount returns the number of blocks this segment itself holds
// (excluding ancestors).
func (c *BlockchainCache) BlockCount() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uint32(len(c.blockInfos))
}

// IsEmpty reports whether this segment holds no blocks yet.
func (c *BlockchainCache) IsEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blockInfos) == 0
}

// TopBlockIndex returns the height of the highest block this segment
// directly holds. On an empty segment it does not panic: it returns
// StartIndex-1 (wrapping to math.MaxUint32 for an empty root), so
// callers check IsEmpty first, matching
// BlockchainCache::getTopBlockIndex's precondition that the segment is
// never queried while empty.
func (c *BlockchainCache) TopBlockIndex() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topBlockIndexLocked()
}

func (c *BlockchainCache) topBlockIndexLocked() uint32 {
	return c.startIndex + uint32(len(c.blockInfos)) - 1
}

// localIndex converts an absolute height into this segment's local
// blockInfos offset.
func (c *BlockchainCache) localIndex(blockIndex uint32) int {
	return int(blockIndex - c.startIndex)
}

// ownsHeight reports whether blockIndex falls within this segment's own
// (not ancestors') range.
func (c *BlockchainCache) ownsHeight(blockIndex uint32) bool {
	if blockIndex < c.startIndex {
		return false
	}
	li := c.localIndex(blockIndex)
	return li >= 0 && li < len(c.blockInfos)
}

// BlockVersionAt returns the (major, minor) version of the block at
// height, satisfying upgrade.HistorySource.
func (c *BlockchainCache) BlockVersionAt(height uint32) (major, minor uint8, ok bool) {
	info, err := c.GetBlockInfo(height)
	if err != nil {
		return 0, 0, false
	}
	return info.MajorVersion, info.MinorVersion, true
}

// TopHeight returns the height of this segment's chain tip (including
// ancestors), satisfying upgrade.HistorySource.
func (c *BlockchainCache) TopHeight() (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.blockInfos) > 0 {
		return c.topBlockIndexLocked(), true
	}
	if c.parent != nil {
		return c.parent.TopHeight()
	}
	return 0, false
}

// GetBlockInfo returns the CachedBlockInfo at blockIndex, walking to the
// parent if this segment doesn't own that height.
func (c *BlockchainCache) GetBlockInfo(blockIndex uint32) (CachedBlockInfo, error) {
	c.mu.RLock()
	if c.ownsHeight(blockIndex) {
		info := c.blockInfos[c.localIndex(blockIndex)]
		c.mu.RUnlock()
		return info, nil
	}
	parent := c.parent
	c.mu.RUnlock()
	if parent == nil {
		return CachedBlockInfo{}, ErrNotFound
	}
	return parent.GetBlockInfo(blockIndex)
}

// GetRawBlock returns the raw block bytes stored for blockIndex, walking
// to the parent if this segment doesn't own that height. Unlike
// GetPushedBlockInfo (which only answers for blockIndex-owning segments,
// matching the original's per-segment scoping), this is the general
// "read a block for the explorer/RPC view" lookup spec §6's getBlocks
// needs, which must work from any leaf toward the root.
func (c *BlockchainCache) GetRawBlock(blockIndex uint32) (rawblockstore.RawBlock, error) {
	c.mu.RLock()
	if c.ownsHeight(blockIndex) {
		rb, err := c.rawBlocks.Get(blockIndex - c.startIndex)
		c.mu.RUnlock()
		return rb, err
	}
	parent := c.parent
	c.mu.RUnlock()
	if parent == nil {
		return rawblockstore.RawBlock{}, ErrNotFound
	}
	return parent.GetRawBlock(blockIndex)
}

// HasBlock reports whether hash is known anywhere along this segment's
// chain.
func (c *BlockchainCache) HasBlock(hash crypto.Hash256) bool {
	c.mu.RLock()
	if _, ok := c.blockHashIndex[hash]; ok {
		c.mu.RUnlock()
		return true
	}
	parent := c.parent
	c.mu.RUnlock()
	if parent == nil {
		return false
	}
	return parent.HasBlock(hash)
}

// GetBlockIndexByHash returns the height of the block identified by
// hash, walking to the parent on a local miss.
func (c *BlockchainCache) GetBlockIndexByHash(hash crypto.Hash256) (uint32, bool) {
	c.mu.RLock()
	if idx, ok := c.blockHashIndex[hash]; ok {
		c.mu.RUnlock()
		return idx, true
	}
	parent := c.parent
	c.mu.RUnlock()
	if parent == nil {
		return 0, false
	}
	return parent.GetBlockIndexByHash(hash)
}

// HasTransaction reports whether txHash is known anywhere along this
// segment's chain.
func (c *BlockchainCache) HasTransaction(txHash crypto.Hash256) bool {
	c.mu.RLock()
	if _, ok := c.transactions[txHash]; ok {
		c.mu.RUnlock()
		return true
	}
	parent := c.parent
	c.mu.RUnlock()
	if parent == nil {
		return false
	}
	return parent.HasTransaction(txHash)
}

// GetBlockIndexContainingTx returns the height of the block containing
// txHash, walking to the parent on a local miss.
func (c *BlockchainCache) GetBlockIndexContainingTx(txHash crypto.Hash256) (uint32, bool) {
	c.mu.RLock()
	if info, ok := c.transactions[txHash]; ok {
		bi := info.BlockIndex
		c.mu.RUnlock()
		return bi, true
	}
	parent := c.parent
	c.mu.RUnlock()
	if parent == nil {
		return 0, false
	}
	return parent.GetBlockIndexContainingTx(txHash)
}

// blockIndexUpperBound returns the count of entries in outputs whose
// BlockIndex is strictly less than asOfHeight, via binary search —
// outputs within a segment are always appended in non-decreasing
// BlockIndex order since PushBlock only ever extends the tip.
func blockIndexUpperBound(outputs []PackedOutIndex, asOfHeight uint32) int {
	return sort.Search(len(outputs), func(i int) bool {
		return outputs[i].BlockIndex >= asOfHeight
	})
}

// keyImageLowerBound returns the first index in a BlockIndex-sorted
// SpentKeyImage slice whose BlockIndex is >= target.
func keyImageLowerBound(images []SpentKeyImage, target uint32) int {
	return sort.Search(len(images), func(i int) bool {
		return images[i].BlockIndex >= target
	})
}

// sortSearchTimestamps returns the insertion point for timestamp within
// a timestamp-sorted index, the lowest index whose entry is >= timestamp.
func sortSearchTimestamps(index []timestampEntry, timestamp uint64) int {
	return sort.Search(len(index), func(i int) bool {
		return index[i].timestamp >= timestamp
	})
}
