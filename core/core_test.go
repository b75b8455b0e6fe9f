package core

import (
	"bytes"
	"context"
	"testing"

	"github.com/amjuarez/bytecoin-sub003/bcerror"
	"github.com/amjuarez/bytecoin-sub003/cache"
	"github.com/amjuarez/bytecoin-sub003/config"
	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/cryptonote"
	"github.com/amjuarez/bytecoin-sub003/currency"
	"github.com/amjuarez/bytecoin-sub003/rawblockstore"
	"github.com/amjuarez/bytecoin-sub003/store"
	"github.com/amjuarez/bytecoin-sub003/tree"
	"github.com/stretchr/testify/require"
)

func testCore(t *testing.T) *Core {
	t.Helper()
	p, err := config.NewBuilder().Build()
	require.NoError(t, err)
	cur := currency.New(p)
	raw, err := rawblockstore.Open(store.NewMemory())
	require.NoError(t, err)
	root := cache.New(cur, raw)
	kvFactory := func() (store.KV, error) { return store.NewMemory(), nil }
	return New(cur, tree.New(cur, crypto.StdPrimitives{}, kvFactory, root))
}

// buildBlock mirrors the tree tests' block shape: 200s timestamp spacing
// keeps every retargeted difficulty at 1, which StdPrimitives always
// satisfies.
func buildBlock(prev crypto.Hash256, height uint32) *cryptonote.Block {
	return &cryptonote.Block{
		BlockHeader: cryptonote.BlockHeader{
			MajorVersion: cryptonote.BlockMajorVersion1,
			Timestamp:    1000 + uint64(height)*200,
			PrevID:       prev,
		},
		MinerTx: cryptonote.Transaction{
			TransactionPrefix: cryptonote.TransactionPrefix{
				Version: 1,
				Inputs:  []cryptonote.Input{{Generate: &cryptonote.InputGenerate{Height: uint64(height)}}},
				Outputs: []cryptonote.Output{{
					Amount: 0,
					Target: cryptonote.OutputTarget{ToKey: &cryptonote.OutputToKey{
						Key: crypto.FastHash([]byte{byte(height), byte(height >> 8)}),
					}},
				}},
			},
		},
	}
}

func encodeRaw(t *testing.T, b *cryptonote.Block) rawblockstore.RawBlock {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, cryptonote.EncodeBlock(&buf, b))
	return rawblockstore.RawBlock{BlockBytes: buf.Bytes()}
}

func blockHash(t *testing.T, b *cryptonote.Block) crypto.Hash256 {
	t.Helper()
	h, err := cryptonote.NewCachedBlock(b).Hash()
	require.NoError(t, err)
	return h
}

// recordingObserver captures every notification for assertions.
type recordingObserver struct {
	mainBlocks   []crypto.Hash256
	altBlocks    []crypto.Hash256
	poolUpdates  int
	synchronized bool
	syncedHeight uint32
}

func (r *recordingObserver) BlockchainUpdated(newBlocks, alternativeBlocks []crypto.Hash256) {
	r.mainBlocks = append(r.mainBlocks, newBlocks...)
	r.altBlocks = append(r.altBlocks, alternativeBlocks...)
}

func (r *recordingObserver) PoolUpdated() { r.poolUpdates++ }

func (r *recordingObserver) BlockchainSynchronized(topHeight uint32, _ crypto.Hash256) {
	r.synchronized = true
	r.syncedHeight = topHeight
}

func TestAddBlockDecodesAndNotifies(t *testing.T) {
	c := testCore(t)
	obs := &recordingObserver{}
	c.AddObserver(obs)

	var zero crypto.Hash256
	genesis := buildBlock(zero, 0)
	result := c.AddBlock(encodeRaw(t, genesis), 1000000)
	require.Equal(t, bcerror.AddedToMain, result.Kind)
	require.Equal(t, []crypto.Hash256{blockHash(t, genesis)}, obs.mainBlocks)

	result = c.AddBlock(encodeRaw(t, genesis), 1000000)
	require.Equal(t, bcerror.AlreadyExists, result.Kind)
	require.Len(t, obs.mainBlocks, 1, "duplicates do not re-notify")
}

func TestAddBlockRejectsGarbageBytes(t *testing.T) {
	c := testCore(t)
	result := c.AddBlock(rawblockstore.RawBlock{BlockBytes: []byte{0xde, 0xad}}, 1000000)
	require.Equal(t, bcerror.Rejected, result.Kind)
	require.Equal(t, bcerror.ReasonDeserializationFailed, result.Reason)
}

func TestAddBlockReportsWrongVersionForUnknownMajor(t *testing.T) {
	c := testCore(t)
	// A header leading with major version 9 — above the known maximum —
	// is WrongVersion, not a generic deserialization failure.
	result := c.AddBlock(rawblockstore.RawBlock{BlockBytes: []byte{0x09, 0x00}}, 1000000)
	require.Equal(t, bcerror.Rejected, result.Kind)
	require.Equal(t, bcerror.ReasonWrongVersion, result.Reason)
}

func TestAddBlocksStopsOnCancellation(t *testing.T) {
	c := testCore(t)
	var zero crypto.Hash256
	genesis := buildBlock(zero, 0)
	b1 := buildBlock(blockHash(t, genesis), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := c.AddBlocks(ctx, []rawblockstore.RawBlock{encodeRaw(t, genesis), encodeRaw(t, b1)}, 1000000)
	require.ErrorIs(t, err, bcerror.OperationCancelled)
	require.Empty(t, results)

	results, err = c.AddBlocks(context.Background(), []rawblockstore.RawBlock{encodeRaw(t, genesis), encodeRaw(t, b1)}, 1000000)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, uint32(1), c.Tree().Tip().TopBlockIndex())
}

func TestGetBlockchainTopAndDetailQueries(t *testing.T) {
	c := testCore(t)
	var zero crypto.Hash256
	genesis := buildBlock(zero, 0)
	require.Equal(t, bcerror.AddedToMain, c.AddBlock(encodeRaw(t, genesis), 1000000).Kind)
	b1 := buildBlock(blockHash(t, genesis), 1)
	require.Equal(t, bcerror.AddedToMain, c.AddBlock(encodeRaw(t, b1), 1000000).Kind)

	top, err := c.GetBlockchainTop()
	require.NoError(t, err)
	require.Equal(t, uint32(1), top.Height)
	require.Equal(t, blockHash(t, b1), top.Hash)

	byHeight, err := c.GetBlockDetailsByHeights([]uint32{0, 1})
	require.NoError(t, err)
	require.Len(t, byHeight, 2)
	require.Equal(t, blockHash(t, genesis), byHeight[0].Hash)

	byHash, err := c.GetBlockDetailsByHashes([]crypto.Hash256{blockHash(t, b1)})
	require.NoError(t, err)
	require.Equal(t, uint32(1), byHash[0].Height)

	_, err = c.GetBlockDetailsByHashes([]crypto.Hash256{crypto.FastHash([]byte("unknown"))})
	require.ErrorIs(t, err, ErrBlockNotFound)

	byTime, err := c.GetBlockDetailsByTimestamps(1000, 100, 10)
	require.NoError(t, err)
	require.Len(t, byTime, 1)
	require.Equal(t, uint32(0), byTime[0].Height)
}

func TestGetTransactionsFindsMinerTx(t *testing.T) {
	c := testCore(t)
	var zero crypto.Hash256
	genesis := buildBlock(zero, 0)
	require.Equal(t, bcerror.AddedToMain, c.AddBlock(encodeRaw(t, genesis), 1000000).Kind)

	minerHash, err := cryptonote.TransactionHash(&genesis.MinerTx)
	require.NoError(t, err)

	details, err := c.GetTransactions([]crypto.Hash256{minerHash})
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Equal(t, minerHash, details[0].Hash)
	require.True(t, details[0].InBlockchain)

	_, err = c.GetTransactions([]crypto.Hash256{crypto.FastHash([]byte("missing"))})
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestAddTransactionToPoolChecksInputsAgainstTip(t *testing.T) {
	c := testCore(t)
	var zero crypto.Hash256
	genesis := buildBlock(zero, 0)
	require.Equal(t, bcerror.AddedToMain, c.AddBlock(encodeRaw(t, genesis), 1000000).Kind)

	spend := &cryptonote.Transaction{
		TransactionPrefix: cryptonote.TransactionPrefix{
			Version: 1,
			Inputs: []cryptonote.Input{{ToKey: &cryptonote.InputToKey{
				Amount:     0,
				KeyOffsets: []uint64{0},
				KeyImage:   crypto.FastHash([]byte("pool-key-image")),
			}}},
			Outputs: []cryptonote.Output{{
				Amount: 0,
				Target: cryptonote.OutputTarget{ToKey: &cryptonote.OutputToKey{Key: crypto.FastHash([]byte("dest"))}},
			}},
		},
		Signatures: [][]crypto.Signature{{{}}},
	}
	var buf bytes.Buffer
	require.NoError(t, cryptonote.EncodeTransaction(&buf, spend))
	require.True(t, c.AddTransactionToPool(buf.Bytes(), 1000000))

	require.False(t, c.AddTransactionToPool([]byte{0xba, 0xad}, 1000000))

	spend.Inputs[0].ToKey.KeyOffsets = []uint64{9}
	buf.Reset()
	require.NoError(t, cryptonote.EncodeTransaction(&buf, spend))
	require.False(t, c.AddTransactionToPool(buf.Bytes(), 1000000),
		"a ring member that does not exist fails admission")
}

func TestMarkSynchronizedNotifiesOnce(t *testing.T) {
	c := testCore(t)
	obs := &recordingObserver{}
	c.AddObserver(obs)

	var zero crypto.Hash256
	require.Equal(t, bcerror.AddedToMain, c.AddBlock(encodeRaw(t, buildBlock(zero, 0)), 1000000).Kind)

	require.False(t, c.IsSynchronized())
	c.MarkSynchronized()
	require.True(t, c.IsSynchronized())
	require.True(t, obs.synchronized)
	require.Equal(t, uint32(0), obs.syncedHeight)

	obs.synchronized = false
	c.MarkSynchronized()
	require.False(t, obs.synchronized, "second call is a no-op")

	c.NotifyPoolUpdated()
	require.Equal(t, 1, obs.poolUpdates)
}
