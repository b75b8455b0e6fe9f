package cryptonote

import (
	"bytes"

	"github.com/amjuarez/bytecoin-sub003/codec"
	"github.com/amjuarez/bytecoin-sub003/crypto"
)

// HashingBlob returns the bytes a Primitives.SlowHash implementation
// hashes to check a block's proof of work, matching
// get_block_hashing_blob in cryptonote_format_utils.cpp. For a major
// version 1 block this is the same header+miner-tx-root+tx-count
// encoding computeBlockHash wraps for the id hash, but without that
// outer length-prefix — the length-prefix wrap is get_object_hash's
// framing for the block *id*, not part of what the PoW hash covers. For
// a major version 2+ (merge-mined) block, the hashing blob is the
// embedded ParentBlock's own encoding instead: the foreign chain's miner
// sees only its own header and coinbase, with this chain's tie-in
// carried by the merge-mining tag the coinbase's extra field commits to.
func HashingBlob(b *Block) ([]byte, error) {
	if b.MajorVersion >= BlockMajorVersion2 {
		var buf bytes.Buffer
		if err := EncodeParentBlock(&buf, &b.ParentBlock); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	minerTxHash, err := TransactionHash(&b.MinerTx)
	if err != nil {
		return nil, err
	}
	leaves := make([]crypto.Hash256, 0, 1+len(b.TxHashes))
	leaves = append(leaves, minerTxHash)
	leaves = append(leaves, b.TxHashes...)
	root := crypto.TreeHash(leaves)

	var buf bytes.Buffer
	if err := EncodeBlockHeader(&buf, &b.BlockHeader); err != nil {
		return nil, err
	}
	if err := codec.WriteHash(&buf, root); err != nil {
		return nil, err
	}
	if err := codec.WriteVarint(&buf, uint64(1+len(b.TxHashes))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
