package tree

import (
	"testing"

	"github.com/amjuarez/bytecoin-sub003/bcerror"
	"github.com/amjuarez/bytecoin-sub003/cache"
	"github.com/amjuarez/bytecoin-sub003/config"
	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/cryptonote"
	"github.com/amjuarez/bytecoin-sub003/currency"
	"github.com/amjuarez/bytecoin-sub003/rawblockstore"
	"github.com/amjuarez/bytecoin-sub003/store"
	"github.com/stretchr/testify/require"
)

// testTree builds a fresh Tree over an empty genesis segment, backed by
// in-memory KVs throughout.
func testTree(t *testing.T) *Tree {
	t.Helper()
	p, err := config.NewBuilder().Build()
	require.NoError(t, err)
	cur := currency.New(p)
	raw, err := rawblockstore.Open(store.NewMemory())
	require.NoError(t, err)
	root := cache.New(cur, raw)
	kvFactory := func() (store.KV, error) { return store.NewMemory(), nil }
	return New(cur, crypto.StdPrimitives{}, kvFactory, root)
}

// buildBlock constructs a version-1 block extending prev at height. nonce
// only distinguishes otherwise-identical blocks at the same height (two
// competing miners); the 200s timestamp spacing keeps every retargeted
// difficulty at 1 (see nextDifficultyDefault: ceil(workDone*target/timeSpan)
// with a target of 120s never exceeds 1 once blocks are spaced past it),
// which StdPrimitives' placeholder SlowHash always satisfies regardless of
// its output.
func buildBlock(prev crypto.Hash256, height uint32, nonce uint32) *cryptonote.Block {
	return &cryptonote.Block{
		BlockHeader: cryptonote.BlockHeader{
			MajorVersion: cryptonote.BlockMajorVersion1,
			Timestamp:    1000 + uint64(height)*200,
			Nonce:        nonce,
			PrevID:       prev,
		},
		MinerTx: cryptonote.Transaction{
			TransactionPrefix: cryptonote.TransactionPrefix{
				Version: 1,
				Inputs:  []cryptonote.Input{{Generate: &cryptonote.InputGenerate{Height: uint64(height)}}},
				Outputs: []cryptonote.Output{{
					Amount: 0,
					Target: cryptonote.OutputTarget{ToKey: &cryptonote.OutputToKey{
						Key: crypto.FastHash([]byte{byte(height), byte(height >> 8), byte(nonce), byte(nonce >> 8)}),
					}},
				}},
			},
		},
	}
}

func blockHash(t *testing.T, b *cryptonote.Block) crypto.Hash256 {
	t.Helper()
	h, err := cryptonote.NewCachedBlock(b).Hash()
	require.NoError(t, err)
	return h
}

func TestAddBlockExtendsMainChainAndRejectsDuplicate(t *testing.T) {
	tr := testTree(t)
	var zero crypto.Hash256

	genesis := buildBlock(zero, 0, 0)
	require.Equal(t, bcerror.AddedToMain, tr.AddBlock(genesis, nil, 1000000).Kind)

	result := tr.AddBlock(genesis, nil, 1000000)
	require.Equal(t, bcerror.AlreadyExists, result.Kind)

	genesisHash := blockHash(t, genesis)
	b1 := buildBlock(genesisHash, 1, 0)
	result = tr.AddBlock(b1, nil, 1000000)
	require.Equal(t, bcerror.AddedToMain, result.Kind)
	require.Equal(t, uint32(1), tr.Tip().TopBlockIndex())
}

func TestAddBlockRejectsUnknownParent(t *testing.T) {
	tr := testTree(t)
	var zero crypto.Hash256
	genesis := buildBlock(zero, 0, 0)
	require.Equal(t, bcerror.AddedToMain, tr.AddBlock(genesis, nil, 1000000).Kind)

	orphan := buildBlock(crypto.FastHash([]byte("nowhere")), 5, 0)
	result := tr.AddBlock(orphan, nil, 1000000)
	require.Equal(t, bcerror.Rejected, result.Kind)
	require.Equal(t, bcerror.ReasonParentNotFound, result.Reason)
}

func TestAddBlockRejectsUnlockOverflowAndInvalidOutput(t *testing.T) {
	tr := testTree(t)
	var zero crypto.Hash256

	overflow := buildBlock(zero, 0, 0)
	overflow.MinerTx.UnlockTime = ^uint64(0)
	result := tr.AddBlock(overflow, nil, 1000000)
	require.Equal(t, bcerror.Rejected, result.Kind)
	require.Equal(t, bcerror.ReasonUnlockTimeOverflow, result.Reason)

	// A multisignature output demanding more signatures than it has keys.
	badOut := buildBlock(zero, 0, 1)
	badOut.MinerTx.Outputs[0].Target = cryptonote.OutputTarget{Multisignature: &cryptonote.OutputMultisignature{
		Keys:               []crypto.PublicKey{crypto.FastHash([]byte("lone-key"))},
		RequiredSignatures: 2,
	}}
	result = tr.AddBlock(badOut, nil, 1000000)
	require.Equal(t, bcerror.Rejected, result.Kind)
	require.Equal(t, bcerror.ReasonInvalidOutput, result.Reason)
}

// TestAddBlockRejectsDuplicateKeyImageWithinBlock covers the rejection
// distinct from DoubleSpend: the same key image used twice inside one
// candidate block, caught against the in-flight validator state rather
// than the chain's spent-image index.
func TestAddBlockRejectsDuplicateKeyImageWithinBlock(t *testing.T) {
	tr := testTree(t)
	var zero crypto.Hash256
	genesis := buildBlock(zero, 0, 0)
	require.Equal(t, bcerror.AddedToMain, tr.AddBlock(genesis, nil, 1000000).Kind)

	ki := crypto.FastHash([]byte("reused-image"))
	ringInput := func() cryptonote.Input {
		return cryptonote.Input{ToKey: &cryptonote.InputToKey{
			Amount:     0,
			KeyOffsets: []uint64{0},
			KeyImage:   ki,
		}}
	}
	spend := &cryptonote.Transaction{
		TransactionPrefix: cryptonote.TransactionPrefix{
			Version: 1,
			Inputs:  []cryptonote.Input{ringInput(), ringInput()},
			Outputs: []cryptonote.Output{{
				Amount: 0,
				Target: cryptonote.OutputTarget{ToKey: &cryptonote.OutputToKey{Key: crypto.FastHash([]byte("dest"))}},
			}},
		},
		Signatures: [][]crypto.Signature{{{}}, {{}}},
	}
	txHash, err := cryptonote.TransactionHash(spend)
	require.NoError(t, err)

	b1 := buildBlock(blockHash(t, genesis), 1, 0)
	b1.TxHashes = []crypto.Hash256{txHash}
	result := tr.AddBlock(b1, []*cryptonote.Transaction{spend}, 1000000)
	require.Equal(t, bcerror.Rejected, result.Kind)
	require.Equal(t, bcerror.ReasonDuplicateKeyImage, result.Reason)
}

// TestAddBlockReorgsToHeavierAlternative covers spec's reorg scenario: a
// side branch forked off a common ancestor is tracked without disturbing
// the active chain until it accumulates more work, at which point AddBlock
// reports a switch and the tree's tip moves over to it.
func TestAddBlockReorgsToHeavierAlternative(t *testing.T) {
	tr := testTree(t)
	var zero crypto.Hash256

	genesis := buildBlock(zero, 0, 0)
	require.Equal(t, bcerror.AddedToMain, tr.AddBlock(genesis, nil, 1000000).Kind)
	genesisHash := blockHash(t, genesis)

	main1 := buildBlock(genesisHash, 1, 1)
	require.Equal(t, bcerror.AddedToMain, tr.AddBlock(main1, nil, 1000000).Kind)
	main1Hash := blockHash(t, main1)

	main2 := buildBlock(main1Hash, 2, 1)
	require.Equal(t, bcerror.AddedToMain, tr.AddBlock(main2, nil, 1000000).Kind)
	require.Equal(t, uint32(2), tr.Tip().TopBlockIndex())

	// A side branch forking off genesis is tracked as an alternative tip;
	// at equal height/work it must not disturb the active chain.
	alt1 := buildBlock(genesisHash, 1, 2)
	result := tr.AddBlock(alt1, nil, 1000000)
	require.Equal(t, bcerror.AddedToAlternative, result.Kind)
	alt1Hash := blockHash(t, alt1)

	alt2 := buildBlock(alt1Hash, 2, 2)
	result = tr.AddBlock(alt2, nil, 1000000)
	require.Equal(t, bcerror.AddedToAlternative, result.Kind)
	require.Equal(t, uint32(2), tr.Tip().TopBlockIndex())

	// Extending the alternative branch past the main chain's cumulative
	// difficulty triggers the reorg.
	alt2Hash := blockHash(t, alt2)
	alt3 := buildBlock(alt2Hash, 3, 2)
	result = tr.AddBlock(alt3, nil, 1000000)
	require.Equal(t, bcerror.AddedToAlternativeAndSwitched, result.Kind)
	require.Equal(t, uint32(3), tr.Tip().TopBlockIndex())

	tipHash, err := cryptonote.NewCachedBlock(alt3).Hash()
	require.NoError(t, err)
	require.True(t, tr.Tip().HasBlock(tipHash))

	// the old main chain is now tracked as an alternative tip.
	alts := tr.AlternativeTips()
	require.Len(t, alts, 1)
	require.True(t, alts[0].HasBlock(main1Hash))
}
