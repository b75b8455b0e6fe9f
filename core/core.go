// Package core is the protocol coordinator of spec §2 (component J) and
// §6: the surface the sync task, transaction pool and RPC layers talk
// to. It owns the tree.Tree, decodes incoming raw blocks, drives batch
// ingest with block-granular cancellation, and fans out observer
// notifications — the role CryptoNoteProtocolHandler and ICore's
// observer manager share in
// original_source/src/CryptoNoteProtocol/CryptoNoteProtocolHandler.cpp.
// It performs no network I/O itself; peers, timeouts and wire framing
// belong to the transport layer outside this module.
package core

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/amjuarez/bytecoin-sub003/bcerror"
	"github.com/amjuarez/bytecoin-sub003/cache"
	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/cryptonote"
	"github.com/amjuarez/bytecoin-sub003/currency"
	"github.com/amjuarez/bytecoin-sub003/logs"
	"github.com/amjuarez/bytecoin-sub003/rawblockstore"
	"github.com/amjuarez/bytecoin-sub003/tree"
)

var log = logs.New("CORE")

// Observer receives the notification hooks of spec §6. Callbacks run
// synchronously on the mutating goroutine and must not call back into
// Core.
type Observer interface {
	// BlockchainUpdated fires after every successful block ingestion,
	// with the hashes added to the active chain and to side chains.
	BlockchainUpdated(newBlocks, alternativeBlocks []crypto.Hash256)

	// PoolUpdated fires when the external transaction pool reports a
	// change through NotifyPoolUpdated.
	PoolUpdated()

	// BlockchainSynchronized fires once the sync driver declares the
	// node caught up with its peers.
	BlockchainSynchronized(topHeight uint32, topHash crypto.Hash256)
}

// Core coordinates the segment tree with everything outside it.
type Core struct {
	currency *currency.Currency
	tree     *tree.Tree

	mu           sync.RWMutex
	observers    []Observer
	synchronized bool
}

// New builds a Core over an existing segment tree.
func New(cur *currency.Currency, t *tree.Tree) *Core {
	return &Core{currency: cur, tree: t}
}

// AddObserver registers o for all future notifications.
func (c *Core) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// RemoveObserver unregisters o.
func (c *Core) RemoveObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.observers {
		if existing == o {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}

func (c *Core) snapshotObservers() []Observer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Observer(nil), c.observers...)
}

// Tree exposes the underlying segment tree for collaborators (the pool
// validates its transactions against the active tip's CheckIfSpent /
// ExtractKeyOutputPublicKeys directly, per spec §6).
func (c *Core) Tree() *tree.Tree {
	return c.tree
}

// decodeRawBlock parses a wire raw block into its block and body
// transactions, checking that the body matches the hashes the block
// commits to — the same pairing check handle_incoming_blocks performs
// before handing anything to the cache. A block whose major version
// exceeds the known maximum is reported as ReasonWrongVersion, every
// other parse failure as ReasonDeserializationFailed.
func decodeRawBlock(raw rawblockstore.RawBlock) (*cryptonote.Block, []*cryptonote.Transaction, bcerror.RejectReason) {
	// This engine tracks a single chain, so a v2+ block's blockchain
	// branch to the merge-mining tag always has depth 0.
	block, err := cryptonote.DecodeBlock(bytes.NewReader(raw.BlockBytes), 0)
	if err != nil {
		if errors.Is(err, cryptonote.ErrWrongVersion) {
			return nil, nil, bcerror.ReasonWrongVersion
		}
		return nil, nil, bcerror.ReasonDeserializationFailed
	}
	if len(raw.TransactionsBytes) != len(block.TxHashes) {
		return nil, nil, bcerror.ReasonDeserializationFailed
	}
	transactions := make([]*cryptonote.Transaction, len(raw.TransactionsBytes))
	for i, txBytes := range raw.TransactionsBytes {
		tx, err := cryptonote.DecodeTransaction(bytes.NewReader(txBytes))
		if err != nil {
			return nil, nil, bcerror.ReasonDeserializationFailed
		}
		hash, err := cryptonote.TransactionHash(tx)
		if err != nil || hash != block.TxHashes[i] {
			return nil, nil, bcerror.ReasonDeserializationFailed
		}
		transactions[i] = tx
	}
	return block, transactions, bcerror.ReasonNone
}

// AddBlock ingests one raw block per spec §6's addBlock: decode, pair
// the body transactions against the block's committed hashes, and hand
// the result to the tree. now is the wall-clock unix time used for
// timestamp bounds. Observers are notified on success.
func (c *Core) AddBlock(raw rawblockstore.RawBlock, now uint64) bcerror.AddBlockResult {
	block, transactions, reason := decodeRawBlock(raw)
	if reason != bcerror.ReasonNone {
		return bcerror.RejectedWith(reason)
	}
	result := c.tree.AddBlock(block, transactions, now)
	c.notifyBlockAdded(block, result)
	return result
}

func (c *Core) notifyBlockAdded(block *cryptonote.Block, result bcerror.AddBlockResult) {
	var mainHashes, altHashes []crypto.Hash256
	hash, err := cryptonote.NewCachedBlock(block).Hash()
	if err != nil {
		return
	}
	switch result.Kind {
	case bcerror.AddedToMain, bcerror.AddedToAlternativeAndSwitched:
		mainHashes = []crypto.Hash256{hash}
	case bcerror.AddedToAlternative:
		altHashes = []crypto.Hash256{hash}
	default:
		return
	}
	for _, o := range c.snapshotObservers() {
		o.BlockchainUpdated(mainHashes, altHashes)
	}
}

// AddBlocks ingests a batch of raw blocks in order, checking ctx between
// blocks per spec §5's block-level cancellation contract: a cancelled
// batch leaves the cache at the last fully-pushed block and returns
// bcerror.OperationCancelled alongside the results so far. Ingestion
// also stops at the first rejected block, mirroring the protocol
// handler dropping the rest of a peer's span once one block fails.
func (c *Core) AddBlocks(ctx context.Context, raws []rawblockstore.RawBlock, now uint64) ([]bcerror.AddBlockResult, error) {
	results := make([]bcerror.AddBlockResult, 0, len(raws))
	for _, raw := range raws {
		select {
		case <-ctx.Done():
			return results, bcerror.OperationCancelled
		default:
		}
		result := c.AddBlock(raw, now)
		results = append(results, result)
		if result.Kind == bcerror.Rejected {
			log.Warnf("batch ingest stopped: block rejected: %s", result.Reason)
			break
		}
	}
	return results, nil
}

// AddTransactionToPool pre-validates a raw transaction on behalf of the
// external pool, per spec §6: the pool owns admission and broadcast
// policy, but the spend checks run against the cache here. A
// transaction passes when it decodes, every key input's ring resolves
// to existing unlocked outputs with an unspent key image, and every
// multisignature input is unspent. now is the wall-clock unix time for
// unlock interpretation.
func (c *Core) AddTransactionToPool(rawTx []byte, now uint64) bool {
	tx, err := cryptonote.DecodeTransaction(bytes.NewReader(rawTx))
	if err != nil {
		return false
	}
	tip := c.topSegment()
	if tip.IsEmpty() {
		return false
	}
	topHeight := tip.TopBlockIndex()
	for _, in := range tx.Inputs {
		switch {
		case in.ToKey != nil:
			if tip.CheckIfSpent(in.ToKey.KeyImage, topHeight) {
				return false
			}
			_, result := tip.ExtractKeyOutputPublicKeys(in.ToKey.Amount, topHeight, in.ToKey.AbsoluteOutputIndexes(), now)
			if result != cache.ExtractOutputKeysSucceeded {
				return false
			}
		case in.Multisignature != nil:
			if tip.CheckIfSpentMultisignature(in.Multisignature.Amount, in.Multisignature.OutputIndex, topHeight) {
				return false
			}
		default:
			// A base input never belongs in a pool transaction.
			return false
		}
	}
	return true
}

// NotifyPoolUpdated relays an external transaction pool change to every
// observer; the pool itself lives outside this module.
func (c *Core) NotifyPoolUpdated() {
	for _, o := range c.snapshotObservers() {
		o.PoolUpdated()
	}
}

// IsSynchronized reports whether the sync driver has declared the node
// caught up.
func (c *Core) IsSynchronized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synchronized
}

// MarkSynchronized records that initial sync has completed and notifies
// observers with the current top, the on_connection_synchronized
// transition of the original handler.
func (c *Core) MarkSynchronized() {
	c.mu.Lock()
	if c.synchronized {
		c.mu.Unlock()
		return
	}
	c.synchronized = true
	c.mu.Unlock()

	tip := c.tree.Tip()
	if tip.IsEmpty() {
		return
	}
	height := tip.TopBlockIndex()
	info, err := tip.GetBlockInfo(height)
	if err != nil {
		return
	}
	for _, o := range c.snapshotObservers() {
		o.BlockchainSynchronized(height, info.BlockHash)
	}
}

// RewardBlocksWindow returns the trailing window length the median block
// size penalty is computed over.
func (c *Core) RewardBlocksWindow() uint64 {
	return c.currency.Params().RewardBlocksWindow
}

// FullRewardMaxBlockSize returns twice the full-reward zone for
// majorVersion: the largest block size GetBlockReward accepts when the
// median is at or below the zone (the bound it signals TooBig above). A
// block of exactly this size earns a reward of zero.
func (c *Core) FullRewardMaxBlockSize(majorVersion uint8) uint64 {
	return 2 * c.currency.BlockGrantedFullRewardZoneByBlockVersion(majorVersion)
}

// topSegment returns the active tip segment, which reaches the whole
// chain through its parent links.
func (c *Core) topSegment() *cache.BlockchainCache {
	return c.tree.Tip()
}
