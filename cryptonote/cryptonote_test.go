package cryptonote

import (
	"bytes"
	"testing"

	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeInputRoundTrip(t *testing.T) {
	cases := []Input{
		{Generate: &InputGenerate{Height: 42}},
		{ToKey: &InputToKey{
			Amount:     100,
			KeyOffsets: []uint64{1, 2, 3},
			KeyImage:   crypto.FastHash([]byte("key-image")),
		}},
		{Multisignature: &InputMultisignature{Amount: 7, Signatures: 3, OutputIndex: 9}},
	}
	for _, in := range cases {
		var buf bytes.Buffer
		require.NoError(t, EncodeInput(&buf, in))
		got, err := DecodeInput(&buf)
		require.NoError(t, err)
		require.Equal(t, in, got)
		require.Zero(t, buf.Len())
	}
}

func TestEncodeDecodeOutputTargetRoundTrip(t *testing.T) {
	cases := []OutputTarget{
		{ToKey: &OutputToKey{Key: crypto.FastHash([]byte("one-time-key"))}},
		{Multisignature: &OutputMultisignature{
			Keys:               []crypto.PublicKey{crypto.FastHash([]byte("a")), crypto.FastHash([]byte("b"))},
			RequiredSignatures: 2,
		}},
	}
	for _, target := range cases {
		var buf bytes.Buffer
		require.NoError(t, EncodeOutputTarget(&buf, target))
		got, err := DecodeOutputTarget(&buf)
		require.NoError(t, err)
		require.Equal(t, target, got)
	}
}

func TestEncodeDecodeTransactionRoundTripCoinbase(t *testing.T) {
	tx := &Transaction{
		TransactionPrefix: TransactionPrefix{
			Version: 1,
			Inputs:  []Input{{Generate: &InputGenerate{Height: 5}}},
			Outputs: []Output{{
				Amount: 1000,
				Target: OutputTarget{ToKey: &OutputToKey{Key: crypto.FastHash([]byte("miner"))}},
			}},
			Extra: []byte{1, 2, 3},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeTransaction(&buf, tx))
	got, err := DecodeTransaction(&buf)
	require.NoError(t, err)
	require.Equal(t, tx.TransactionPrefix, got.TransactionPrefix)
	require.Empty(t, got.Signatures)
}

func TestEncodeDecodeTransactionRoundTripSpend(t *testing.T) {
	tx := &Transaction{
		TransactionPrefix: TransactionPrefix{
			Version: 1,
			Inputs: []Input{{ToKey: &InputToKey{
				Amount:     100,
				KeyOffsets: []uint64{4, 5},
				KeyImage:   crypto.FastHash([]byte("spent")),
			}}},
			Outputs: []Output{{
				Amount: 100,
				Target: OutputTarget{ToKey: &OutputToKey{Key: crypto.FastHash([]byte("recipient"))}},
			}},
		},
		Signatures: [][]crypto.Signature{{{}, {}}},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeTransaction(&buf, tx))
	got, err := DecodeTransaction(&buf)
	require.NoError(t, err)
	require.Equal(t, tx.TransactionPrefix, got.TransactionPrefix)
	require.Equal(t, tx.Signatures, got.Signatures)
}

func TestEncodeDecodeBlockRoundTripVersion1(t *testing.T) {
	block := &Block{
		BlockHeader: BlockHeader{
			MajorVersion: BlockMajorVersion1,
			Timestamp:    12345,
			Nonce:        77,
			PrevID:       crypto.FastHash([]byte("prev")),
		},
		MinerTx: Transaction{
			TransactionPrefix: TransactionPrefix{
				Version: 1,
				Inputs:  []Input{{Generate: &InputGenerate{Height: 10}}},
				Outputs: []Output{{
					Amount: 500,
					Target: OutputTarget{ToKey: &OutputToKey{Key: crypto.FastHash([]byte("miner"))}},
				}},
			},
		},
		TxHashes: []crypto.Hash256{crypto.FastHash([]byte("tx1")), crypto.FastHash([]byte("tx2"))},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeBlock(&buf, block))
	got, err := DecodeBlock(&buf, 0)
	require.NoError(t, err)

	require.Equal(t, block.BlockHeader, got.BlockHeader)
	require.Equal(t, block.MinerTx, got.MinerTx)
	require.Equal(t, block.TxHashes, got.TxHashes)
}

func TestCachedBlockHashIsStableAndMemoized(t *testing.T) {
	block := &Block{
		BlockHeader: BlockHeader{
			MajorVersion: BlockMajorVersion1,
			Timestamp:    1,
			PrevID:       crypto.FastHash([]byte("genesis-parent")),
		},
		MinerTx: Transaction{
			TransactionPrefix: TransactionPrefix{
				Version: 1,
				Inputs:  []Input{{Generate: &InputGenerate{Height: 0}}},
				Outputs: []Output{{
					Amount: 0,
					Target: OutputTarget{ToKey: &OutputToKey{Key: crypto.FastHash([]byte("k"))}},
				}},
			},
		},
	}
	cb := NewCachedBlock(block)
	h1, err := cb.Hash()
	require.NoError(t, err)
	h2, err := cb.Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	want, err := computeBlockHash(block)
	require.NoError(t, err)
	require.Equal(t, want, h1)
}

func TestCachedTransactionAmountsAndFee(t *testing.T) {
	tx := &Transaction{
		TransactionPrefix: TransactionPrefix{
			Version: 1,
			Inputs: []Input{{ToKey: &InputToKey{
				Amount:     150,
				KeyOffsets: []uint64{0},
				KeyImage:   crypto.FastHash([]byte("ki")),
			}}},
			Outputs: []Output{
				{Amount: 100, Target: OutputTarget{ToKey: &OutputToKey{Key: crypto.FastHash([]byte("o1"))}}},
				{Amount: 30, Target: OutputTarget{ToKey: &OutputToKey{Key: crypto.FastHash([]byte("o2"))}}},
			},
		},
	}
	ct := NewCachedTransaction(tx)
	in, out := ct.Amounts()
	require.Equal(t, []uint64{150}, in)
	require.Equal(t, []uint64{100, 30}, out)
	require.Equal(t, uint64(20), ct.Fee())
}
