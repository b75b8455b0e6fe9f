package cryptonote

import (
	"bytes"
	"io"

	"github.com/amjuarez/bytecoin-sub003/codec"
	"github.com/amjuarez/bytecoin-sub003/crypto"
)

// EncodeBlockHeader writes the version-dependent header fields, matching
// BlockHeader::BEGIN_SERIALIZE in cryptonote_basic.h: version 1 blocks
// carry Timestamp/PrevID/Nonce directly, version 2+ blocks carry only
// PrevID and move the rest into the merge-mining ParentBlock.
func EncodeBlockHeader(w io.Writer, h *BlockHeader) error {
	ew := codec.NewErrWriter(w)
	ew.Varint(uint64(h.MajorVersion))
	ew.Varint(uint64(h.MinorVersion))
	if ew.Err != nil {
		return ew.Err
	}
	switch h.MajorVersion {
	case BlockMajorVersion1:
		ew.Varint(h.Timestamp)
		ew.Hash(h.PrevID)
		ew.Uint32(h.Nonce)
	default:
		ew.Hash(h.PrevID)
	}
	return ew.Err
}

// DecodeBlockHeader reads the version-dependent header fields.
func DecodeBlockHeader(r io.Reader) (*BlockHeader, error) {
	h := &BlockHeader{}
	major, err := codec.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	h.MajorVersion = uint8(major)
	if major > uint64(BlockMajorVersion3) {
		return nil, ErrWrongVersion
	}
	minor, err := codec.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	h.MinorVersion = uint8(minor)
	switch h.MajorVersion {
	case BlockMajorVersion1:
		if h.Timestamp, err = codec.ReadVarint(r); err != nil {
			return nil, err
		}
		if h.PrevID, err = codec.ReadHash(r); err != nil {
			return nil, err
		}
		var nonce uint32
		if nonce, err = codec.ReadUint32(r); err != nil {
			return nil, err
		}
		h.Nonce = nonce
	default:
		if h.PrevID, err = codec.ReadHash(r); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// EncodeParentBlock writes the merge-mining auxiliary header, matching
// ParentBlockSerializer with hashingSerialization=false, headerOnly=false.
func EncodeParentBlock(w io.Writer, pb *ParentBlock) error {
	ew := codec.NewErrWriter(w)
	ew.Varint(uint64(pb.MajorVersion))
	if ew.Err != nil {
		return ew.Err
	}
	if pb.MajorVersion > BlockMajorVersion1 {
		return errParentBlockVersion
	}
	ew.Varint(uint64(pb.MinorVersion))
	ew.Varint(pb.Timestamp)
	ew.Hash(pb.PrevID)
	ew.Uint32(pb.Nonce)
	ew.Varint(pb.NumberOfTransactions)
	if ew.Err != nil {
		return ew.Err
	}
	if pb.NumberOfTransactions < 1 {
		return errParentBlockTxCount
	}
	for _, h := range pb.MinerTxBranch {
		ew.Hash(h)
	}
	if ew.Err != nil {
		return ew.Err
	}
	if err := EncodeTransaction(w, &pb.MinerTx); err != nil {
		return err
	}
	for _, h := range pb.BlockchainBranch {
		ew.Hash(h)
	}
	return ew.Err
}

// DecodeParentBlock reads the merge-mining auxiliary header. branchDepth
// is the merkle-branch depth the caller expects (derived from
// numberOfTransactions via crypto.TreeDepth) and mmDepth is the
// merge-mining tag depth extracted from the miner tx's extra field; both
// are required up front because the original format's arrays are
// length-prefixed only implicitly, by these derived values.
func DecodeParentBlock(r io.Reader, branchDepth, mmDepth int) (*ParentBlock, error) {
	pb := &ParentBlock{}
	major, err := codec.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	pb.MajorVersion = uint8(major)
	if pb.MajorVersion > BlockMajorVersion1 {
		return nil, errParentBlockVersion
	}
	minor, err := codec.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	pb.MinorVersion = uint8(minor)
	if pb.Timestamp, err = codec.ReadVarint(r); err != nil {
		return nil, err
	}
	if pb.PrevID, err = codec.ReadHash(r); err != nil {
		return nil, err
	}
	if pb.Nonce, err = codec.ReadUint32(r); err != nil {
		return nil, err
	}
	numTx, err := codec.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	pb.NumberOfTransactions = numTx
	if pb.NumberOfTransactions < 1 {
		return nil, errParentBlockTxCount
	}
	pb.MinerTxBranch = make([]crypto.Hash256, branchDepth)
	for i := range pb.MinerTxBranch {
		if pb.MinerTxBranch[i], err = codec.ReadHash(r); err != nil {
			return nil, err
		}
	}
	minerTx, err := DecodeTransaction(r)
	if err != nil {
		return nil, err
	}
	pb.MinerTx = *minerTx
	pb.BlockchainBranch = make([]crypto.Hash256, mmDepth)
	for i := range pb.BlockchainBranch {
		if pb.BlockchainBranch[i], err = codec.ReadHash(r); err != nil {
			return nil, err
		}
	}
	return pb, nil
}

// EncodeBlock writes a full block. Version 2+ blocks interleave the
// merge-mining parent block between the header and the miner tx, matching
// Block::BEGIN_SERIALIZE_OBJECT.
func EncodeBlock(w io.Writer, b *Block) error {
	if err := EncodeBlockHeader(w, &b.BlockHeader); err != nil {
		return err
	}
	if b.MajorVersion >= BlockMajorVersion2 {
		if err := EncodeParentBlock(w, &b.ParentBlock); err != nil {
			return err
		}
	}
	if err := EncodeTransaction(w, &b.MinerTx); err != nil {
		return err
	}
	return codec.WriteHashes(w, b.TxHashes)
}

// DecodeBlock reads a full block. mmDepth is required for version 2+
// blocks per DecodeParentBlock's contract; pass 0 for version 1 blocks.
func DecodeBlock(r io.Reader, mmDepth int) (*Block, error) {
	header, err := DecodeBlockHeader(r)
	if err != nil {
		return nil, err
	}
	b := &Block{BlockHeader: *header}
	if header.MajorVersion >= BlockMajorVersion2 {
		// numberOfTransactions isn't known before reading the varint that
		// immediately precedes the branch, so the parent block is decoded
		// in a single call that also derives the branch depth from it.
		pb, err := decodeParentBlockSelfDescribing(r, mmDepth)
		if err != nil {
			return nil, err
		}
		b.ParentBlock = *pb
	}
	minerTx, err := DecodeTransaction(r)
	if err != nil {
		return nil, err
	}
	b.MinerTx = *minerTx
	if b.TxHashes, err = codec.ReadHashes(r); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeParentBlockSelfDescribing(r io.Reader, mmDepth int) (*ParentBlock, error) {
	pb := &ParentBlock{}
	major, err := codec.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	pb.MajorVersion = uint8(major)
	if pb.MajorVersion > BlockMajorVersion1 {
		return nil, errParentBlockVersion
	}
	minor, err := codec.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	pb.MinorVersion = uint8(minor)
	if pb.Timestamp, err = codec.ReadVarint(r); err != nil {
		return nil, err
	}
	if pb.PrevID, err = codec.ReadHash(r); err != nil {
		return nil, err
	}
	if pb.Nonce, err = codec.ReadUint32(r); err != nil {
		return nil, err
	}
	numTx, err := codec.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	if numTx < 1 {
		return nil, errParentBlockTxCount
	}
	pb.NumberOfTransactions = numTx
	branchDepth := crypto.TreeDepth(int(numTx))
	pb.MinerTxBranch = make([]crypto.Hash256, branchDepth)
	for i := range pb.MinerTxBranch {
		if pb.MinerTxBranch[i], err = codec.ReadHash(r); err != nil {
			return nil, err
		}
	}
	minerTx, err := DecodeTransaction(r)
	if err != nil {
		return nil, err
	}
	pb.MinerTx = *minerTx
	pb.BlockchainBranch = make([]crypto.Hash256, mmDepth)
	for i := range pb.BlockchainBranch {
		if pb.BlockchainBranch[i], err = codec.ReadHash(r); err != nil {
			return nil, err
		}
	}
	return pb, nil
}

// TransactionHash returns the fast hash of tx's full canonical encoding,
// matching get_transaction_hash in cryptonote_format_utils.cpp.
func TransactionHash(tx *Transaction) (crypto.Hash256, error) {
	var buf bytes.Buffer
	if err := EncodeTransaction(&buf, tx); err != nil {
		return crypto.Hash256{}, err
	}
	return crypto.FastHash(buf.Bytes()), nil
}

// PrefixHash returns the fast hash of tx's unsigned prefix only, used as
// the pre-image for the per-input ring signature challenge.
func PrefixHash(p *TransactionPrefix) (crypto.Hash256, error) {
	var buf bytes.Buffer
	if err := EncodePrefix(&buf, p); err != nil {
		return crypto.Hash256{}, err
	}
	return crypto.FastHash(buf.Bytes()), nil
}
