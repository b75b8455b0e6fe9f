// Package tree coordinates the segment tree of package cache into a
// single active blockchain per spec §4.6: tracking every known branch
// tip, switching the active tip on a heavier alternative chain. Unlike
// the original's detach/orphan-collect/replay/abort dance, this port's
// cache segments already support multiple children natively, so a reorg
// here is a validated push onto the relevant side branch followed by an
// atomic tip pointer swap — see DESIGN.md for why that is an equivalent,
// simpler replacement for the original's replay machinery. Grounded on
// daglabs-btcd/blockdag.BlockDAG's addBlock orchestration (dag.go), which
// plays the same role of owning the active-tip pointer above a DAG of
// immutable block records.
package tree

import (
	"bytes"
	"sync"

	"github.com/amjuarez/bytecoin-sub003/bcerror"
	"github.com/amjuarez/bytecoin-sub003/cache"
	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/cryptonote"
	"github.com/amjuarez/bytecoin-sub003/currency"
	"github.com/amjuarez/bytecoin-sub003/logs"
	"github.com/amjuarez/bytecoin-sub003/rawblockstore"
	"github.com/amjuarez/bytecoin-sub003/store"
	"github.com/amjuarez/bytecoin-sub003/upgrade"
)

var log = logs.New("TREE")

// KVFactory allocates a fresh store.KV for a new segment created by a
// split or a new alternative branch, letting the caller choose the
// backing (in-memory for tests, a LevelDB table keyed by segment id in
// production).
type KVFactory func() (store.KV, error)

// Tree owns the active chain's tip segment and every alternative branch
// tip still being tracked, and is the only component that mutates any
// segment's membership in the tree (cache.BlockchainCache.Split never
// decides policy, only mechanics).
type Tree struct {
	mu sync.RWMutex

	currency   *currency.Currency
	primitives crypto.Primitives
	kvFactory  KVFactory

	root *cache.BlockchainCache
	tip  *cache.BlockchainCache

	alternativeTips []*cache.BlockchainCache

	detectors map[uint8]*upgrade.Detector
}

// New constructs a Tree rooted at the given genesis segment, which must
// already be the active chain's tip (typically freshly built via
// cache.New, or restored via cache.Deserialize).
func New(cur *currency.Currency, prim crypto.Primitives, kvFactory KVFactory, root *cache.BlockchainCache) *Tree {
	t := &Tree{
		currency:   cur,
		primitives: prim,
		kvFactory:  kvFactory,
		root:       root,
		tip:        root,
		detectors:  make(map[uint8]*upgrade.Detector),
	}
	p := cur.Params()
	for _, v := range []uint8{2, 3} {
		d := upgrade.New(v, p)
		d.Init(root)
		t.detectors[v] = d
	}
	return t
}

// Tip returns the current active chain's tip segment.
func (t *Tree) Tip() *cache.BlockchainCache {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tip
}

// AlternativeTips returns a snapshot of every tracked side-branch tip.
func (t *Tree) AlternativeTips() []*cache.BlockchainCache {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*cache.BlockchainCache, len(t.alternativeTips))
	copy(out, t.alternativeTips)
	return out
}

// candidateBlock bundles a decoded block with the pieces AddBlock and
// validateBlock need repeatedly: its cached hash/transactions and the
// raw bytes to hand back to rawblockstore.
type candidateBlock struct {
	cached *cryptonote.CachedBlock
	txs    []*cryptonote.CachedTransaction
	raw    rawblockstore.RawBlock
}

// AddBlock implements spec §6's addBlock: decode, validate, and either
// extend the active tip, extend a tracked side branch and possibly
// switch, or start a brand new side branch off a historical ancestor.
// now is the caller-supplied wall-clock time in unix seconds used for
// the block's timestamp bounds check.
func (t *Tree) AddBlock(block *cryptonote.Block, transactions []*cryptonote.Transaction, now uint64) bcerror.AddBlockResult {
	cb, err := buildCandidate(block, transactions)
	if err != nil {
		return bcerror.RejectedWith(bcerror.ReasonDeserializationFailed)
	}

	blockHash, err := cb.cached.Hash()
	if err != nil {
		return bcerror.RejectedWith(bcerror.ReasonDeserializationFailed)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tip.HasBlock(blockHash) {
		return bcerror.Exists()
	}
	for _, alt := range t.alternativeTips {
		if alt.HasBlock(blockHash) {
			return bcerror.Exists()
		}
	}

	if t.tip.IsEmpty() {
		return t.pushGenesis(cb, now)
	}

	mainTipHash, err := t.segmentTipHash(t.tip)
	if err == nil && block.PrevID == mainTipHash {
		return t.extendSegment(t.tip, cb, now, false)
	}

	for i, alt := range t.alternativeTips {
		altHash, err := t.segmentTipHash(alt)
		if err != nil {
			continue
		}
		if block.PrevID == altHash {
			return t.extendAlternative(i, alt, cb, now)
		}
	}

	return t.forkFromAncestor(cb, now)
}

func (t *Tree) pushGenesis(cb *candidateBlock, now uint64) bcerror.AddBlockResult {
	result, reason := t.validateBlock(t.tip, 0, false, cb, now)
	if reason != bcerror.ReasonNone {
		return bcerror.RejectedWith(reason)
	}
	if err := t.tip.PushBlock(cb.cached, cb.txs, result.state, result.blockSize, result.generatedCoins, result.blockDifficulty, cb.raw); err != nil {
		return bcerror.RejectedWith(bcerror.ReasonDeserializationFailed)
	}
	t.notifyDetectors(t.tip, 0)
	return bcerror.Main()
}

// extendSegment validates cb against segment's current tip and pushes it
// on success. isAlternative is false only when segment is the active
// chain's tip; pushing onto an alternative branch never itself returns
// bcerror.Main even if segment happens to equal t.tip, since that case
// is handled by the caller directly.
func (t *Tree) extendSegment(segment *cache.BlockchainCache, cb *candidateBlock, now uint64, isAlternative bool) bcerror.AddBlockResult {
	parentHeight := segment.TopBlockIndex()
	result, reason := t.validateBlock(segment, parentHeight, true, cb, now)
	if reason != bcerror.ReasonNone {
		return bcerror.RejectedWith(reason)
	}
	if err := segment.PushBlock(cb.cached, cb.txs, result.state, result.blockSize, result.generatedCoins, result.blockDifficulty, cb.raw); err != nil {
		return bcerror.RejectedWith(bcerror.ReasonDeserializationFailed)
	}
	t.notifyDetectors(segment, parentHeight+1)
	if !isAlternative {
		return bcerror.Main()
	}
	return bcerror.Alternative()
}

// extendAlternative pushes cb onto the i'th tracked alternative tip, then
// compares cumulative difficulty against the active chain to decide
// whether this triggers a reorg (tip switch).
func (t *Tree) extendAlternative(i int, alt *cache.BlockchainCache, cb *candidateBlock, now uint64) bcerror.AddBlockResult {
	result := t.extendSegment(alt, cb, now, true)
	if result.Kind != bcerror.AddedToAlternative {
		return result
	}
	return t.maybeSwitchTip(i)
}

// forkFromAncestor handles a block whose parent is neither the active
// tip nor any tracked alternative tip: it names a block buried somewhere
// in chain history, so a brand new side branch is created there. If the
// ancestor height isn't already a segment boundary, the owning segment
// is split first so the new branch attaches as a sibling of the
// ancestor's existing continuation, preserving every output's global
// index in both halves per spec §8 property 1.
func (t *Tree) forkFromAncestor(cb *candidateBlock, now uint64) bcerror.AddBlockResult {
	block := cb.cached.Block
	ancestorHeight, ok := t.tip.GetBlockIndexByHash(block.PrevID)
	if !ok {
		return bcerror.RejectedWith(bcerror.ReasonParentNotFound)
	}

	owner := findOwningSegment(t.tip, ancestorHeight)
	if owner == nil {
		return bcerror.RejectedWith(bcerror.ReasonParentNotFound)
	}

	if owner.TopBlockIndex() != ancestorHeight {
		childKV, err := t.kvFactory()
		if err != nil {
			return bcerror.RejectedWith(bcerror.ReasonDeserializationFailed)
		}
		// Split reparents owner's existing children under the new
		// segment, so every tracked tip that used to descend through
		// owner keeps walking through the same objects via its parent
		// chain. A tip that was owner itself now ends at ancestorHeight,
		// so it is moved to the split-off segment holding its old top.
		splitChild, err := owner.Split(ancestorHeight+1, childKV)
		if err != nil {
			return bcerror.RejectedWith(bcerror.ReasonDeserializationFailed)
		}
		if t.tip == owner {
			t.tip = splitChild
		}
		for i, alt := range t.alternativeTips {
			if alt == owner {
				t.alternativeTips[i] = splitChild
			}
		}
	}

	branchKV, err := t.kvFactory()
	if err != nil {
		return bcerror.RejectedWith(bcerror.ReasonDeserializationFailed)
	}
	branchRaw, err := rawblockstore.Open(branchKV)
	if err != nil {
		return bcerror.RejectedWith(bcerror.ReasonDeserializationFailed)
	}
	branch := cache.NewChild(t.currency, ancestorHeight+1, owner, branchRaw)

	result, reason := t.validateBlock(branch, ancestorHeight, true, cb, now)
	if reason != bcerror.ReasonNone {
		return bcerror.RejectedWith(reason)
	}
	if err := branch.PushBlock(cb.cached, cb.txs, result.state, result.blockSize, result.generatedCoins, result.blockDifficulty, cb.raw); err != nil {
		return bcerror.RejectedWith(bcerror.ReasonDeserializationFailed)
	}
	cache.AttachChild(owner, branch)
	t.notifyDetectors(branch, ancestorHeight+1)

	t.alternativeTips = append(t.alternativeTips, branch)
	return t.maybeSwitchTip(len(t.alternativeTips) - 1)
}

// findOwningSegment walks up from leaf looking for the segment whose own
// range contains height.
func findOwningSegment(leaf *cache.BlockchainCache, height uint32) *cache.BlockchainCache {
	for s := leaf; s != nil; s = s.Parent() {
		if height >= s.StartIndex() && !s.IsEmpty() && height <= s.TopBlockIndex() {
			return s
		}
	}
	return nil
}

// maybeSwitchTip compares the i'th alternative tip's cumulative
// difficulty against the active chain's and, if heavier, swaps them:
// the old main tip becomes a tracked alternative and the side branch
// becomes the new active chain, matching spec §4.6's reorg trigger.
func (t *Tree) maybeSwitchTip(i int) bcerror.AddBlockResult {
	alt := t.alternativeTips[i]
	altDiff, ok := segmentCumulativeDifficulty(alt)
	if !ok {
		return bcerror.Alternative()
	}
	mainDiff, ok := segmentCumulativeDifficulty(t.tip)
	if !ok || altDiff <= mainDiff {
		return bcerror.Alternative()
	}

	oldTip := t.tip
	t.tip = alt
	t.alternativeTips[i] = oldTip
	log.Infof("reorg: switched active tip, new height %d, difficulty %d", alt.TopBlockIndex(), altDiff)
	return bcerror.Switched()
}

func segmentCumulativeDifficulty(segment *cache.BlockchainCache) (uint64, bool) {
	if segment.IsEmpty() {
		return 0, false
	}
	info, err := segment.GetBlockInfo(segment.TopBlockIndex())
	if err != nil {
		return 0, false
	}
	return info.CumulativeDifficulty, true
}

func (t *Tree) segmentTipHash(segment *cache.BlockchainCache) (hash crypto.Hash256, err error) {
	if segment.IsEmpty() {
		return hash, nil
	}
	info, err := segment.GetBlockInfo(segment.TopBlockIndex())
	if err != nil {
		return hash, err
	}
	return info.BlockHash, nil
}

// notifyDetectors feeds the pushed block's version into every tracked
// upgrade detector, keeping the voting windows current.
func (t *Tree) notifyDetectors(segment *cache.BlockchainCache, height uint32) {
	info, err := segment.GetBlockInfo(height)
	if err != nil {
		return
	}
	for _, d := range t.detectors {
		d.BlockPushed(height, info.MajorVersion, info.MinorVersion, segment)
	}
}

func buildCandidate(block *cryptonote.Block, transactions []*cryptonote.Transaction) (*candidateBlock, error) {
	cb := &candidateBlock{cached: cryptonote.NewCachedBlock(block)}
	cb.txs = make([]*cryptonote.CachedTransaction, len(transactions))
	for i, tx := range transactions {
		cb.txs[i] = cryptonote.NewCachedTransaction(tx)
	}
	raw, err := encodeRawBlock(block, transactions)
	if err != nil {
		return nil, err
	}
	cb.raw = raw
	return cb, nil
}

func encodeRawBlock(block *cryptonote.Block, transactions []*cryptonote.Transaction) (rawblockstore.RawBlock, error) {
	var blockBuf bytes.Buffer
	if err := cryptonote.EncodeBlock(&blockBuf, block); err != nil {
		return rawblockstore.RawBlock{}, err
	}
	txBytes := make([][]byte, len(transactions))
	for i, tx := range transactions {
		var txBuf bytes.Buffer
		if err := cryptonote.EncodeTransaction(&txBuf, tx); err != nil {
			return rawblockstore.RawBlock{}, err
		}
		txBytes[i] = txBuf.Bytes()
	}
	return rawblockstore.RawBlock{BlockBytes: blockBuf.Bytes(), TransactionsBytes: txBytes}, nil
}
