package core

import (
	"bytes"

	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/cryptonote"
	"github.com/amjuarez/bytecoin-sub003/explorer"
	"github.com/pkg/errors"
)

// ErrBlockNotFound is returned by the query surface when a requested
// block is not reachable on the active chain.
var ErrBlockNotFound = errors.New("core: block not found")

// ErrTransactionNotFound is returned when a requested transaction is not
// on the active chain.
var ErrTransactionNotFound = errors.New("core: transaction not found")

// GetBlockDetailsByHeights assembles the explorer view for each
// requested height on the active chain.
func (c *Core) GetBlockDetailsByHeights(heights []uint32) ([]explorer.BlockDetails, error) {
	builder := explorer.New(c.currency, c.topSegment())
	out := make([]explorer.BlockDetails, len(heights))
	for i, height := range heights {
		details, err := builder.FillBlockDetails(height)
		if err != nil {
			return nil, errors.Wrapf(ErrBlockNotFound, "height %d", height)
		}
		out[i] = details
	}
	return out, nil
}

// GetBlockDetailsByHashes resolves each hash to its height on the active
// chain and assembles the explorer view. A hash only reachable on a side
// branch is reported as not found, matching spec §8's post-reorg
// reachability scenario.
func (c *Core) GetBlockDetailsByHashes(hashes []crypto.Hash256) ([]explorer.BlockDetails, error) {
	tip := c.topSegment()
	builder := explorer.New(c.currency, tip)
	out := make([]explorer.BlockDetails, len(hashes))
	for i, hash := range hashes {
		height, ok := tip.GetBlockIndexByHash(hash)
		if !ok {
			return nil, errors.Wrapf(ErrBlockNotFound, "hash %s", hash)
		}
		details, err := builder.FillBlockDetails(height)
		if err != nil {
			return nil, errors.Wrapf(ErrBlockNotFound, "hash %s", hash)
		}
		out[i] = details
	}
	return out, nil
}

// GetBlockDetailsByTimestamps returns the views of up to limit blocks
// whose timestamps fall in [timestampBegin, timestampBegin+secondsCount).
func (c *Core) GetBlockDetailsByTimestamps(timestampBegin, secondsCount uint64, limit int) ([]explorer.BlockDetails, error) {
	tip := c.topSegment()
	hashes := tip.GetBlockHashesByTimestamps(timestampBegin, secondsCount)
	if limit > 0 && len(hashes) > limit {
		hashes = hashes[:limit]
	}
	return c.GetBlockDetailsByHashes(hashes)
}

// GetBlockchainTop returns the view of the active chain's tip block.
func (c *Core) GetBlockchainTop() (explorer.BlockDetails, error) {
	tip := c.topSegment()
	if tip.IsEmpty() {
		return explorer.BlockDetails{}, ErrBlockNotFound
	}
	builder := explorer.New(c.currency, tip)
	return builder.FillBlockDetails(tip.TopBlockIndex())
}

// getTransactionInBlock recovers the decoded transaction for hash from
// the raw block that contains it.
func (c *Core) getTransactionInBlock(hash crypto.Hash256) (*cryptonote.Transaction, uint64, error) {
	tip := c.topSegment()
	info, err := tip.GetTransactionInfo(hash)
	if err != nil {
		return nil, 0, ErrTransactionNotFound
	}
	raw, err := tip.GetRawBlock(info.BlockIndex)
	if err != nil {
		return nil, 0, ErrTransactionNotFound
	}
	blockInfo, err := tip.GetBlockInfo(info.BlockIndex)
	if err != nil {
		return nil, 0, ErrTransactionNotFound
	}

	if info.TransactionIndex == 0 {
		block, err := cryptonote.DecodeBlock(bytes.NewReader(raw.BlockBytes), 0)
		if err != nil {
			return nil, 0, ErrTransactionNotFound
		}
		return &block.MinerTx, blockInfo.Timestamp, nil
	}
	bodyIndex := int(info.TransactionIndex) - 1
	if bodyIndex >= len(raw.TransactionsBytes) {
		return nil, 0, ErrTransactionNotFound
	}
	tx, err := cryptonote.DecodeTransaction(bytes.NewReader(raw.TransactionsBytes[bodyIndex]))
	if err != nil {
		return nil, 0, ErrTransactionNotFound
	}
	return tx, blockInfo.Timestamp, nil
}

// GetTransactions assembles the explorer view for each requested
// transaction hash on the active chain.
func (c *Core) GetTransactions(hashes []crypto.Hash256) ([]explorer.TransactionDetails, error) {
	builder := explorer.New(c.currency, c.topSegment())
	out := make([]explorer.TransactionDetails, len(hashes))
	for i, hash := range hashes {
		tx, timestamp, err := c.getTransactionInBlock(hash)
		if err != nil {
			return nil, err
		}
		details, err := builder.FillTransactionDetails(tx, timestamp)
		if err != nil {
			return nil, ErrTransactionNotFound
		}
		out[i] = details
	}
	return out, nil
}

// GetTransactionsByPaymentId returns the views of every transaction on
// the active chain tagged with paymentID.
func (c *Core) GetTransactionsByPaymentId(paymentID crypto.Hash256) ([]explorer.TransactionDetails, error) {
	hashes := c.topSegment().GetTransactionHashesByPaymentId(paymentID)
	return c.GetTransactions(hashes)
}
