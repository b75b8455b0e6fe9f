// Package explorer builds the read-only block/transaction detail views
// spec §6 exposes to the blockchain explorer: BlockDetails and
// TransactionDetails, assembled from a BlockchainCache segment plus the
// currency rules, without owning any state of its own. Grounded on
// original_source/src/BlockchainExplorer/BlockchainExplorerDataBuilder.cpp
// (fillBlockDetails/fillTransactionDetails), field for field.
package explorer

import (
	"bytes"
	"sort"

	"github.com/amjuarez/bytecoin-sub003/cache"
	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/cryptonote"
	"github.com/amjuarez/bytecoin-sub003/currency"
	"github.com/pkg/errors"
)

// ErrIncomplete is returned when a block or transaction detail view
// cannot be fully assembled (a referenced block, transaction, or reward
// figure is missing), mirroring fillBlockDetails/fillTransactionDetails
// returning false rather than a partial struct.
var ErrIncomplete = errors.New("explorer: could not assemble details")

// TransactionExtraDetails decomposes a transaction's opaque extra field
// into its recognized tagged sub-fields, alongside the raw bytes.
type TransactionExtraDetails struct {
	Raw       []byte
	Padding   []int
	PublicKey []crypto.PublicKey
	Nonce     [][]byte
}

// TransactionInputGenerateDetails is the detail view of a miner input.
type TransactionInputGenerateDetails struct {
	Height uint64
}

// OutputReferenceDetails locates the output an input's ring or
// multisignature spend resolved to, the last such reference found for a
// KeyInput ring (matching the original's outputReferences.back()).
type OutputReferenceDetails struct {
	TransactionHash crypto.Hash256
	Number          uint16
}

// TransactionInputToKeyDetails is the detail view of a ring-signed
// key input.
type TransactionInputToKeyDetails struct {
	Mixin      int
	KeyOffsets []uint64
	KeyImage   crypto.KeyImage
	Output     OutputReferenceDetails
}

// TransactionInputMultisignatureDetails is the detail view of a
// multisignature input.
type TransactionInputMultisignatureDetails struct {
	Signatures uint32
	Output     OutputReferenceDetails
}

// TransactionInputDetails is a tagged union over the three input kinds,
// each carrying the amount it spends alongside its kind-specific detail.
type TransactionInputDetails struct {
	Amount         uint64
	Generate       *TransactionInputGenerateDetails
	ToKey          *TransactionInputToKeyDetails
	Multisignature *TransactionInputMultisignatureDetails
}

// TransactionOutputToKeyDetails is the detail view of a one-time output.
type TransactionOutputToKeyDetails struct {
	Key crypto.PublicKey
}

// TransactionOutputMultisignatureDetails is the detail view of a
// multisignature output.
type TransactionOutputMultisignatureDetails struct {
	Keys               []crypto.PublicKey
	RequiredSignatures uint32
}

// TransactionOutputDetails is a tagged union over the two output kinds,
// carrying the global index this chain assigned the output.
type TransactionOutputDetails struct {
	Amount      uint64
	GlobalIndex uint64
	ToKey       *TransactionOutputToKeyDetails
	Multisig    *TransactionOutputMultisignatureDetails
}

// TransactionDetails is spec §6's read view of a single transaction.
type TransactionDetails struct {
	Hash               crypto.Hash256
	Size               int
	Fee                uint64
	TotalInputsAmount  uint64
	TotalOutputsAmount uint64
	Mixin              int
	UnlockTime         uint64
	Timestamp          uint64
	PaymentID          crypto.Hash256
	InBlockchain       bool
	BlockHash          crypto.Hash256
	BlockHeight        uint32
	Extra              TransactionExtraDetails
	Signatures         [][]crypto.Signature
	Inputs             []TransactionInputDetails
	Outputs            []TransactionOutputDetails
}

// BlockDetails is spec §6's read view of a single block, including the
// full detail of every transaction it contains (miner transaction
// first).
type BlockDetails struct {
	MajorVersion                 uint8
	MinorVersion                 uint8
	Timestamp                    uint64
	PrevBlockHash                crypto.Hash256
	Nonce                        uint32
	IsOrphaned                   bool
	Height                       uint32
	Hash                         crypto.Hash256
	Difficulty                   uint64
	Reward                       uint64
	BaseReward                   uint64
	BlockSize                    uint64
	TransactionsCumulativeSize   uint64
	AlreadyGeneratedCoins        uint64
	AlreadyGeneratedTransactions uint64
	SizeMedian                   uint64
	Penalty                      float64
	TotalFeeAmount               uint64
	Transactions                 []TransactionDetails
}

// Builder assembles BlockDetails/TransactionDetails views from a
// BlockchainCache segment, the way BlockchainExplorerDataBuilder wraps
// an ICore reference. It holds no state of its own.
type Builder struct {
	currency *currency.Currency
	tip      *cache.BlockchainCache
}

// New constructs a Builder that reads through tip (normally the active
// chain's tip segment, since every ancestor height is reachable by
// walking tip's parent chain).
func New(cur *currency.Currency, tip *cache.BlockchainCache) *Builder {
	return &Builder{currency: cur, tip: tip}
}

// median matches BlockchainExplorerDataBuilder::median: the plain
// (non-interpolated) middle element of the sorted input, averaging the
// two middle elements for an even-sized slice. v is sorted in place.
func median(v []uint64) uint64 {
	if len(v) == 0 {
		return 0
	}
	if len(v) == 1 {
		return v[0]
	}
	sort.Slice(v, func(i, j int) bool { return v[i] < v[j] })
	n := len(v) / 2
	if len(v)%2 == 1 {
		return v[n]
	}
	return (v[n-1] + v[n]) / 2
}

// FillBlockDetails assembles the BlockDetails view of the block at
// height, ported field-for-field from
// BlockchainExplorerDataBuilder::fillBlockDetails.
func (b *Builder) FillBlockDetails(height uint32) (BlockDetails, error) {
	info, err := b.tip.GetBlockInfo(height)
	if err != nil {
		return BlockDetails{}, errors.Wrap(err, "explorer: block not found")
	}
	raw, err := b.tip.GetRawBlock(height)
	if err != nil {
		return BlockDetails{}, errors.Wrap(err, "explorer: raw block not found")
	}
	block, err := cryptonote.DecodeBlock(bytes.NewReader(raw.BlockBytes), 0)
	if err != nil {
		return BlockDetails{}, errors.Wrap(err, "explorer: failed to decode block")
	}

	canonicalIndex, ok := b.tip.GetBlockIndexByHash(info.BlockHash)
	isOrphaned := !ok || canonicalIndex != height

	d := BlockDetails{
		MajorVersion:  block.MajorVersion,
		MinorVersion:  block.MinorVersion,
		Timestamp:     block.Timestamp,
		PrevBlockHash: block.PrevID,
		Nonce:         block.Nonce,
		IsOrphaned:    isOrphaned,
		Height:        height,
		Hash:          info.BlockHash,
		Difficulty:    info.CumulativeDifficulty,
	}
	for _, out := range block.MinerTx.Outputs {
		d.Reward += out.Amount
	}

	sizesWindow := b.currency.Params().RewardBlocksWindow
	var heightForWindow uint32
	if height > 0 {
		heightForWindow = height - 1
	}
	sizes := b.tip.GetLastBlocksSizes(sizesWindow, heightForWindow)
	d.SizeMedian = median(sizes)

	d.TransactionsCumulativeSize = info.BlockSize

	headerSize, err := encodedSize(func(buf *bytes.Buffer) error { return cryptonote.EncodeBlock(buf, block) })
	if err != nil {
		return BlockDetails{}, err
	}
	minerTxSize, err := encodedSize(func(buf *bytes.Buffer) error { return cryptonote.EncodeTransaction(buf, &block.MinerTx) })
	if err != nil {
		return BlockDetails{}, err
	}
	d.BlockSize = uint64(headerSize) + d.TransactionsCumulativeSize - uint64(minerTxSize)

	d.AlreadyGeneratedCoins = info.AlreadyGeneratedCoins
	d.AlreadyGeneratedTransactions = info.AlreadyGeneratedTransactions

	var prevGeneratedCoins uint64
	if height > 0 {
		prevInfo, err := b.tip.GetBlockInfo(height - 1)
		if err != nil {
			return BlockDetails{}, errors.Wrap(err, "explorer: previous block not found")
		}
		prevGeneratedCoins = prevInfo.AlreadyGeneratedCoins
	}
	maxReward, _, ok := b.currency.GetBlockReward(block.MajorVersion, d.SizeMedian, 0, prevGeneratedCoins, 0)
	if !ok {
		return BlockDetails{}, ErrIncomplete
	}
	currentReward, _, ok := b.currency.GetBlockReward(block.MajorVersion, d.SizeMedian, d.TransactionsCumulativeSize, prevGeneratedCoins, 0)
	if !ok {
		return BlockDetails{}, ErrIncomplete
	}
	d.BaseReward = maxReward
	switch {
	case maxReward == 0 && currentReward == 0:
		d.Penalty = 0
	case maxReward < currentReward:
		return BlockDetails{}, ErrIncomplete
	default:
		d.Penalty = float64(maxReward-currentReward) / float64(maxReward)
	}

	d.Transactions = make([]TransactionDetails, 0, 1+len(block.TxHashes))
	minerDetails, err := b.FillTransactionDetails(&block.MinerTx, block.Timestamp)
	if err != nil {
		return BlockDetails{}, err
	}
	d.Transactions = append(d.Transactions, minerDetails)

	for i := range raw.TransactionsBytes {
		tx, err := cryptonote.DecodeTransaction(bytes.NewReader(raw.TransactionsBytes[i]))
		if err != nil {
			return BlockDetails{}, errors.Wrap(err, "explorer: failed to decode transaction")
		}
		txDetails, err := b.FillTransactionDetails(tx, block.Timestamp)
		if err != nil {
			return BlockDetails{}, err
		}
		d.Transactions = append(d.Transactions, txDetails)
		d.TotalFeeAmount += txDetails.Fee
	}
	return d, nil
}

func encodedSize(encode func(*bytes.Buffer) error) (int, error) {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}

// FillTransactionDetails assembles the TransactionDetails view of tx,
// ported field-for-field from
// BlockchainExplorerDataBuilder::fillTransactionDetails. blockTimestamp
// is the timestamp of the caller-known containing block (0 when unknown,
// in which case the containing block is looked up to recover it, exactly
// as the original's timestamp==0 branch does).
func (b *Builder) FillTransactionDetails(tx *cryptonote.Transaction, blockTimestamp uint64) (TransactionDetails, error) {
	ctx := cryptonote.NewCachedTransaction(tx)
	hash, err := ctx.Hash()
	if err != nil {
		return TransactionDetails{}, errors.Wrap(err, "explorer: failed to hash transaction")
	}

	d := TransactionDetails{
		Hash:      hash,
		Timestamp: blockTimestamp,
	}

	if blockHeight, ok := b.tip.GetBlockIndexContainingTx(hash); ok {
		d.InBlockchain = true
		d.BlockHeight = blockHeight
		if info, err := b.tip.GetBlockInfo(blockHeight); err == nil {
			d.BlockHash = info.BlockHash
			if d.Timestamp == 0 {
				d.Timestamp = info.Timestamp
			}
		}
	}

	size, err := ctx.BinarySize()
	if err != nil {
		return TransactionDetails{}, errors.Wrap(err, "explorer: failed to size transaction")
	}
	d.Size = size
	d.UnlockTime = tx.UnlockTime

	inputs, outputs := ctx.Amounts()
	for _, a := range outputs {
		d.TotalOutputsAmount += a
	}
	for _, a := range inputs {
		d.TotalInputsAmount += a
	}

	isGenerate := len(tx.Inputs) > 0 && tx.Inputs[0].Generate != nil
	if isGenerate {
		d.Fee = 0
		d.Mixin = 0
	} else {
		d.Fee = ctx.Fee()
		d.Mixin = ctx.MaxMixin()
	}

	if paymentID, ok := cryptonote.ExtractPaymentID(tx.Extra); ok {
		d.PaymentID = paymentID
	}
	d.Extra = fillTxExtra(tx.Extra)

	d.Signatures = make([][]crypto.Signature, len(tx.Signatures))
	for i, sigs := range tx.Signatures {
		d.Signatures[i] = append([]crypto.Signature(nil), sigs...)
	}

	d.Inputs = make([]TransactionInputDetails, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		detail, err := b.fillInputDetails(tx, in)
		if err != nil {
			return TransactionDetails{}, err
		}
		d.Inputs = append(d.Inputs, detail)
	}

	d.Outputs = make([]TransactionOutputDetails, len(tx.Outputs))
	globalIndexes := b.outputGlobalIndexes(hash, tx.Outputs)
	for i, out := range tx.Outputs {
		od := TransactionOutputDetails{Amount: out.Amount, GlobalIndex: globalIndexes[i]}
		switch {
		case out.Target.ToKey != nil:
			od.ToKey = &TransactionOutputToKeyDetails{Key: out.Target.ToKey.Key}
		case out.Target.Multisignature != nil:
			od.Multisig = &TransactionOutputMultisignatureDetails{
				Keys:               append([]crypto.PublicKey(nil), out.Target.Multisignature.Keys...),
				RequiredSignatures: out.Target.Multisignature.RequiredSignatures,
			}
		}
		d.Outputs[i] = od
	}

	return d, nil
}

// fillInputDetails resolves a single input's detail view, including the
// ring/multisignature reference resolution
// BlockchainExplorerDataBuilder::fillTransactionDetails performs via
// core.scanOutputkeysForIndices / core.getMultisigOutputReference. A
// reference that cannot be resolved (the output predates what this
// segment chain can reach) is left zero-valued rather than failing the
// whole view, since an explorer showing partial input detail for very
// old pruned history is preferable to refusing the page entirely.
func (b *Builder) fillInputDetails(tx *cryptonote.Transaction, in cryptonote.Input) (TransactionInputDetails, error) {
	switch {
	case in.Generate != nil:
		var amount uint64
		for _, out := range tx.Outputs {
			amount += out.Amount
		}
		return TransactionInputDetails{
			Amount:   amount,
			Generate: &TransactionInputGenerateDetails{Height: in.Generate.Height},
		}, nil
	case in.ToKey != nil:
		offsets, err := absoluteOffsets(in.ToKey.KeyOffsets)
		if err != nil {
			return TransactionInputDetails{}, err
		}
		detail := &TransactionInputToKeyDetails{
			Mixin:      len(in.ToKey.KeyOffsets),
			KeyOffsets: in.ToKey.KeyOffsets,
			KeyImage:   in.ToKey.KeyImage,
		}
		if refs, ok := b.tip.ExtractKeyOutputReferences(in.ToKey.Amount, offsets); ok && len(refs) > 0 {
			last := refs[len(refs)-1]
			detail.Output = OutputReferenceDetails{TransactionHash: last.TransactionHash, Number: last.OutputIndex}
		}
		return TransactionInputDetails{Amount: in.ToKey.Amount, ToKey: detail}, nil
	case in.Multisignature != nil:
		detail := &TransactionInputMultisignatureDetails{Signatures: in.Multisignature.Signatures}
		if refs, ok := b.tip.ExtractKeyOutputReferences(in.Multisignature.Amount, []uint64{in.Multisignature.OutputIndex}); ok && len(refs) > 0 {
			detail.Output = OutputReferenceDetails{TransactionHash: refs[0].TransactionHash, Number: refs[0].OutputIndex}
		}
		return TransactionInputDetails{Amount: in.Multisignature.Amount, Multisignature: detail}, nil
	default:
		return TransactionInputDetails{}, errors.New("explorer: empty input")
	}
}

// absoluteOffsets prefix-sums in.ToKey.KeyOffsets (relative output
// offsets) into the absolute global indexes they decode to, matching
// the decoding convention spec §3 describes for KeyInput.
func absoluteOffsets(relative []uint64) ([]uint64, error) {
	abs := make([]uint64, len(relative))
	var running uint64
	for i, rel := range relative {
		running += rel
		abs[i] = running
	}
	return abs, nil
}

// outputGlobalIndexes resolves the global index this chain assigned
// each of tx's outputs, falling back to all-zero (matching the
// original's get_tx_outputs_gindexs failure fallback) when the
// transaction isn't indexed by this segment chain.
func (b *Builder) outputGlobalIndexes(hash crypto.Hash256, outputs []cryptonote.Output) []uint64 {
	out := make([]uint64, len(outputs))
	info, err := b.tip.GetTransactionInfo(hash)
	if err != nil || len(info.GlobalIndexes) != len(outputs) {
		return out
	}
	copy(out, info.GlobalIndexes)
	return out
}

func fillTxExtra(raw []byte) TransactionExtraDetails {
	d := TransactionExtraDetails{Raw: append([]byte(nil), raw...)}
	for i := 0; i < len(raw); {
		tag := raw[i]
		i++
		switch tag {
		case cryptonote.ExtraTagPadding:
			start := i
			for i < len(raw) && raw[i] == 0 {
				i++
			}
			d.Padding = append(d.Padding, i-start+1)
		case cryptonote.ExtraTagPubKey:
			if i+crypto.HashSize > len(raw) {
				return d
			}
			var key crypto.PublicKey
			copy(key[:], raw[i:i+crypto.HashSize])
			d.PublicKey = append(d.PublicKey, key)
			i += crypto.HashSize
		case cryptonote.ExtraTagNonce:
			if i >= len(raw) {
				return d
			}
			size := int(raw[i])
			i++
			if i+size > len(raw) {
				return d
			}
			d.Nonce = append(d.Nonce, append([]byte(nil), raw[i:i+size]...))
			i += size
		case cryptonote.ExtraTagMergeMining:
			if i >= len(raw) {
				return d
			}
			size := int(raw[i])
			i++
			i += size
		default:
			return d
		}
	}
	return d
}
