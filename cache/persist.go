package cache

import (
	"io"

	"github.com/amjuarez/bytecoin-sub003/codec"
	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/cryptonote"
	"github.com/amjuarez/bytecoin-sub003/currency"
	"github.com/amjuarez/bytecoin-sub003/rawblockstore"
	"github.com/pkg/errors"
)

// snapshotVersion is the leading integer of every segment snapshot; a
// loader seeing any other value discards the snapshot and rebuilds from
// raw blocks.
const snapshotVersion = 1

// Serialize writes this segment's own state (not its ancestors', and not
// its raw blocks, which rawblockstore persists independently) per spec
// §4.5.5. Only the primary records are written; the secondary indices
// (blockHashIndex, timestampIndex, transactionsByTx,
// spentKeyImageByHash, spentMultisigOutputs) are cheap to rebuild from
// them and so are not duplicated on disk, the same "derive, don't
// persist" trade the teacher's wire codec makes for checksums it can
// recompute instead of storing.
func (c *BlockchainCache) Serialize(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ew := codec.NewErrWriter(w)
	ew.Varint(snapshotVersion)
	ew.Uint32(c.startIndex)

	ew.Varint(uint64(len(c.blockInfos)))
	for _, info := range c.blockInfos {
		ew.Hash(info.BlockHash)
		ew.Uint64(info.Timestamp)
		ew.Uint64(info.BlockSize)
		ew.Uint64(info.CumulativeDifficulty)
		ew.Uint64(info.AlreadyGeneratedCoins)
		ew.Uint64(info.AlreadyGeneratedTransactions)
		ew.Uint32(uint32(info.MajorVersion))
		ew.Uint32(uint32(info.MinorVersion))
	}
	if ew.Err != nil {
		return errors.Wrap(ew.Err, "cache: failed to serialize block infos")
	}

	if err := writeTransactions(ew, c.transactions); err != nil {
		return err
	}
	if err := writeSpentKeyImages(ew, c.spentKeyImages); err != nil {
		return err
	}
	if err := writeAmountIndex(ew, c.keyOutputsGlobalIndexes); err != nil {
		return err
	}
	if err := writeAmountIndex(ew, c.multisignatureStorage); err != nil {
		return err
	}
	if err := writeSpentMultisig(ew, c.spentMultisigOutputsByBlock); err != nil {
		return err
	}
	if err := writePaymentIds(ew, c.paymentIds); err != nil {
		return err
	}
	return nil
}

func writeTransactions(ew *codec.ErrWriter, transactions map[crypto.Hash256]*CachedTransactionInfo) error {
	ew.Varint(uint64(len(transactions)))
	for hash, info := range transactions {
		ew.Hash(hash)
		ew.Uint32(info.BlockIndex)
		ew.Varint(uint64(info.TransactionIndex))
		ew.Uint64(info.UnlockTime)
		ew.Varint(uint64(len(info.GlobalIndexes)))
		for _, gi := range info.GlobalIndexes {
			ew.Uint64(gi)
		}
		ew.Varint(uint64(len(info.Outputs)))
		for _, out := range info.Outputs {
			if err := writeOutputTarget(ew, out); err != nil {
				return err
			}
		}
	}
	if ew.Err != nil {
		return errors.Wrap(ew.Err, "cache: failed to serialize transactions")
	}
	return nil
}

func writeOutputTarget(ew *codec.ErrWriter, out cryptonote.OutputTarget) error {
	tag, err := out.Tag()
	if err != nil {
		return errors.Wrap(err, "cache: cannot serialize empty output target")
	}
	ew.Uint32(uint32(tag))
	switch {
	case out.ToKey != nil:
		ew.Hash(out.ToKey.Key)
	case out.Multisignature != nil:
		ew.Varint(uint64(len(out.Multisignature.Keys)))
		for _, k := range out.Multisignature.Keys {
			ew.Hash(k)
		}
		ew.Uint32(out.Multisignature.RequiredSignatures)
	}
	return ew.Err
}

func readOutputTarget(r io.Reader) (cryptonote.OutputTarget, error) {
	tag32, err := codec.ReadUint32(r)
	if err != nil {
		return cryptonote.OutputTarget{}, err
	}
	switch byte(tag32) {
	case cryptonote.OutputTagToKey:
		key, err := codec.ReadHash(r)
		if err != nil {
			return cryptonote.OutputTarget{}, err
		}
		return cryptonote.OutputTarget{ToKey: &cryptonote.OutputToKey{Key: key}}, nil
	case cryptonote.OutputTagMultisignature:
		n, err := codec.ReadVarint(r)
		if err != nil {
			return cryptonote.OutputTarget{}, err
		}
		keys := make([]crypto.PublicKey, n)
		for i := range keys {
			if keys[i], err = codec.ReadHash(r); err != nil {
				return cryptonote.OutputTarget{}, err
			}
		}
		required, err := codec.ReadUint32(r)
		if err != nil {
			return cryptonote.OutputTarget{}, err
		}
		return cryptonote.OutputTarget{Multisignature: &cryptonote.OutputMultisignature{Keys: keys, RequiredSignatures: required}}, nil
	default:
		return cryptonote.OutputTarget{}, &cryptonote.ErrUnknownTag{Context: "persisted output target", Tag: byte(tag32)}
	}
}

func writeSpentKeyImages(ew *codec.ErrWriter, images []SpentKeyImage) error {
	ew.Varint(uint64(len(images)))
	for _, ski := range images {
		ew.Uint32(ski.BlockIndex)
		ew.Hash(ski.KeyImage)
	}
	if ew.Err != nil {
		return errors.Wrap(ew.Err, "cache: failed to serialize spent key images")
	}
	return nil
}

func writeAmountIndex(ew *codec.ErrWriter, idx map[uint64]*OutputGlobalIndexesForAmount) error {
	ew.Varint(uint64(len(idx)))
	for amount, entry := range idx {
		ew.Uint64(amount)
		ew.Uint64(entry.StartIndex)
		ew.Varint(uint64(len(entry.Outputs)))
		for _, poi := range entry.Outputs {
			ew.Uint32(poi.BlockIndex)
			ew.Varint(uint64(poi.TransactionIndex))
			ew.Varint(uint64(poi.OutputIndex))
		}
	}
	if ew.Err != nil {
		return errors.Wrap(ew.Err, "cache: failed to serialize amount index")
	}
	return nil
}

func writeSpentMultisig(ew *codec.ErrWriter, byBlock map[uint32][]MultisignatureOutputID) error {
	ew.Varint(uint64(len(byBlock)))
	for blockIndex, ids := range byBlock {
		ew.Uint32(blockIndex)
		ew.Varint(uint64(len(ids)))
		for _, id := range ids {
			ew.Uint64(id.Amount)
			ew.Uint64(id.GlobalIndex)
		}
	}
	if ew.Err != nil {
		return errors.Wrap(ew.Err, "cache: failed to serialize spent multisignature outputs")
	}
	return nil
}

func writePaymentIds(ew *codec.ErrWriter, idx map[crypto.Hash256][]crypto.Hash256) error {
	ew.Varint(uint64(len(idx)))
	for paymentID, hashes := range idx {
		ew.Hash(paymentID)
		ew.Varint(uint64(len(hashes)))
		for _, h := range hashes {
			ew.Hash(h)
		}
	}
	if ew.Err != nil {
		return errors.Wrap(ew.Err, "cache: failed to serialize payment ids")
	}
	return nil
}

// Deserialize reads back a segment written by Serialize, re-deriving the
// secondary indices (blockHashIndex, timestampIndex, transactionsByTx,
// spentKeyImageByHash, spentMultisigOutputs) from the primary records.
// The caller supplies cur, parent and rawBlocks exactly as it would to
// newSegment — only the mutable per-segment state travels through the
// snapshot.
func Deserialize(r io.Reader, cur *currency.Currency, parent *BlockchainCache, rawBlocks *rawblockstore.Store) (*BlockchainCache, error) {
	version, err := codec.ReadVarint(r)
	if err != nil {
		return nil, errors.Wrap(err, "cache: failed to read snapshot version")
	}
	if version != snapshotVersion {
		return nil, errors.Errorf("cache: unsupported snapshot version %d", version)
	}
	startIndex, err := codec.ReadUint32(r)
	if err != nil {
		return nil, errors.Wrap(err, "cache: failed to read start index")
	}
	c := newSegment(cur, startIndex, parent, rawBlocks)

	blockCount, err := codec.ReadVarint(r)
	if err != nil {
		return nil, errors.Wrap(err, "cache: failed to read block count")
	}
	c.blockInfos = make([]CachedBlockInfo, blockCount)
	for i := range c.blockInfos {
		info := &c.blockInfos[i]
		if info.BlockHash, err = codec.ReadHash(r); err != nil {
			return nil, errors.Wrap(err, "cache: failed to read block hash")
		}
		if info.Timestamp, err = codec.ReadUint64(r); err != nil {
			return nil, errors.Wrap(err, "cache: failed to read timestamp")
		}
		if info.BlockSize, err = codec.ReadUint64(r); err != nil {
			return nil, errors.Wrap(err, "cache: failed to read block size")
		}
		if info.CumulativeDifficulty, err = codec.ReadUint64(r); err != nil {
			return nil, errors.Wrap(err, "cache: failed to read cumulative difficulty")
		}
		if info.AlreadyGeneratedCoins, err = codec.ReadUint64(r); err != nil {
			return nil, errors.Wrap(err, "cache: failed to read generated coins")
		}
		if info.AlreadyGeneratedTransactions, err = codec.ReadUint64(r); err != nil {
			return nil, errors.Wrap(err, "cache: failed to read generated transaction count")
		}
		major, err := codec.ReadUint32(r)
		if err != nil {
			return nil, errors.Wrap(err, "cache: failed to read major version")
		}
		info.MajorVersion = uint8(major)
		minor, err := codec.ReadUint32(r)
		if err != nil {
			return nil, errors.Wrap(err, "cache: failed to read minor version")
		}
		info.MinorVersion = uint8(minor)
		height := startIndex + uint32(i)
		c.blockHashIndex[info.BlockHash] = height
		c.insertTimestampLocked(info.Timestamp, height)
	}

	if err := readTransactions(r, c); err != nil {
		return nil, err
	}
	if err := readSpentKeyImages(r, c); err != nil {
		return nil, err
	}
	if c.keyOutputsGlobalIndexes, err = readAmountIndex(r); err != nil {
		return nil, err
	}
	if c.multisignatureStorage, err = readAmountIndex(r); err != nil {
		return nil, err
	}
	if err := readSpentMultisig(r, c); err != nil {
		return nil, err
	}
	if err := readPaymentIds(r, c); err != nil {
		return nil, err
	}
	return c, nil
}

func readTransactions(r io.Reader, c *BlockchainCache) error {
	n, err := codec.ReadVarint(r)
	if err != nil {
		return errors.Wrap(err, "cache: failed to read transaction count")
	}
	for i := uint64(0); i < n; i++ {
		hash, err := codec.ReadHash(r)
		if err != nil {
			return errors.Wrap(err, "cache: failed to read transaction hash")
		}
		info := &CachedTransactionInfo{TransactionHash: hash}
		if info.BlockIndex, err = codec.ReadUint32(r); err != nil {
			return errors.Wrap(err, "cache: failed to read transaction block index")
		}
		txIdx, err := codec.ReadVarint(r)
		if err != nil {
			return errors.Wrap(err, "cache: failed to read transaction index")
		}
		info.TransactionIndex = uint16(txIdx)
		if info.UnlockTime, err = codec.ReadUint64(r); err != nil {
			return errors.Wrap(err, "cache: failed to read unlock time")
		}
		giCount, err := codec.ReadVarint(r)
		if err != nil {
			return errors.Wrap(err, "cache: failed to read global index count")
		}
		info.GlobalIndexes = make([]uint64, giCount)
		for j := range info.GlobalIndexes {
			if info.GlobalIndexes[j], err = codec.ReadUint64(r); err != nil {
				return errors.Wrap(err, "cache: failed to read global index")
			}
		}
		outCount, err := codec.ReadVarint(r)
		if err != nil {
			return errors.Wrap(err, "cache: failed to read output count")
		}
		info.Outputs = make([]cryptonote.OutputTarget, outCount)
		for j := range info.Outputs {
			if info.Outputs[j], err = readOutputTarget(r); err != nil {
				return errors.Wrap(err, "cache: failed to read output target")
			}
		}
		c.transactions[hash] = info
		c.transactionsByTx[txKey{info.BlockIndex, info.TransactionIndex}] = info
	}
	return nil
}

func readSpentKeyImages(r io.Reader, c *BlockchainCache) error {
	n, err := codec.ReadVarint(r)
	if err != nil {
		return errors.Wrap(err, "cache: failed to read spent key image count")
	}
	c.spentKeyImages = make([]SpentKeyImage, n)
	for i := range c.spentKeyImages {
		ski := &c.spentKeyImages[i]
		if ski.BlockIndex, err = codec.ReadUint32(r); err != nil {
			return errors.Wrap(err, "cache: failed to read spent key image block index")
		}
		if ski.KeyImage, err = codec.ReadHash(r); err != nil {
			return errors.Wrap(err, "cache: failed to read spent key image")
		}
		c.spentKeyImageByHash[ski.KeyImage] = ski.BlockIndex
	}
	return nil
}

func readAmountIndex(r io.Reader) (map[uint64]*OutputGlobalIndexesForAmount, error) {
	n, err := codec.ReadVarint(r)
	if err != nil {
		return nil, errors.Wrap(err, "cache: failed to read amount index size")
	}
	idx := make(map[uint64]*OutputGlobalIndexesForAmount, n)
	for i := uint64(0); i < n; i++ {
		amount, err := codec.ReadUint64(r)
		if err != nil {
			return nil, errors.Wrap(err, "cache: failed to read amount")
		}
		entry := &OutputGlobalIndexesForAmount{}
		if entry.StartIndex, err = codec.ReadUint64(r); err != nil {
			return nil, errors.Wrap(err, "cache: failed to read amount start index")
		}
		outCount, err := codec.ReadVarint(r)
		if err != nil {
			return nil, errors.Wrap(err, "cache: failed to read amount output count")
		}
		entry.Outputs = make([]PackedOutIndex, outCount)
		for j := range entry.Outputs {
			poi := &entry.Outputs[j]
			if poi.BlockIndex, err = codec.ReadUint32(r); err != nil {
				return nil, errors.Wrap(err, "cache: failed to read packed out index block")
			}
			txIdx, err := codec.ReadVarint(r)
			if err != nil {
				return nil, errors.Wrap(err, "cache: failed to read packed out index tx")
			}
			poi.TransactionIndex = uint16(txIdx)
			outIdx, err := codec.ReadVarint(r)
			if err != nil {
				return nil, errors.Wrap(err, "cache: failed to read packed out index output")
			}
			poi.OutputIndex = uint16(outIdx)
		}
		idx[amount] = entry
	}
	return idx, nil
}

func readSpentMultisig(r io.Reader, c *BlockchainCache) error {
	n, err := codec.ReadVarint(r)
	if err != nil {
		return errors.Wrap(err, "cache: failed to read spent multisignature block count")
	}
	for i := uint64(0); i < n; i++ {
		blockIndex, err := codec.ReadUint32(r)
		if err != nil {
			return errors.Wrap(err, "cache: failed to read spent multisignature block index")
		}
		idCount, err := codec.ReadVarint(r)
		if err != nil {
			return errors.Wrap(err, "cache: failed to read spent multisignature id count")
		}
		ids := make([]MultisignatureOutputID, idCount)
		for j := range ids {
			if ids[j].Amount, err = codec.ReadUint64(r); err != nil {
				return errors.Wrap(err, "cache: failed to read spent multisignature amount")
			}
			if ids[j].GlobalIndex, err = codec.ReadUint64(r); err != nil {
				return errors.Wrap(err, "cache: failed to read spent multisignature global index")
			}
			c.spentMultisigOutputs[ids[j]] = struct{}{}
		}
		c.spentMultisigOutputsByBlock[blockIndex] = ids
	}
	return nil
}

func readPaymentIds(r io.Reader, c *BlockchainCache) error {
	n, err := codec.ReadVarint(r)
	if err != nil {
		return errors.Wrap(err, "cache: failed to read payment id count")
	}
	for i := uint64(0); i < n; i++ {
		paymentID, err := codec.ReadHash(r)
		if err != nil {
			return errors.Wrap(err, "cache: failed to read payment id")
		}
		hashCount, err := codec.ReadVarint(r)
		if err != nil {
			return errors.Wrap(err, "cache: failed to read payment id hash count")
		}
		hashes := make([]crypto.Hash256, hashCount)
		for j := range hashes {
			if hashes[j], err = codec.ReadHash(r); err != nil {
				return errors.Wrap(err, "cache: failed to read payment id transaction hash")
			}
		}
		c.paymentIds[paymentID] = hashes
	}
	return nil
}
