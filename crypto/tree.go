package crypto

// TreeDepth returns the depth of the binary merkle tree over count leaves,
// i.e. ceil(log2(count)) for count > 1 and 0 for count <= 1. Ported from
// crypto::tree_depth in the original crypto.h.
func TreeDepth(count int) int {
	depth := 0
	for i := 1; i < count; i <<= 1 {
		depth++
	}
	return depth
}

// treeHashCnt returns the largest power of two strictly less than count,
// for count >= 3. Ported from crypto::tree_hash_cnt.
func treeHashCnt(count int) int {
	pow := 2
	for pow < count {
		pow <<= 1
	}
	return pow >> 1
}

// TreeHash computes the root of the binary merkle tree over hashes,
// matching crypto::tree_hash bit for bit: an odd count carries its
// leftmost excess leaves forward unhashed into the first reduction level
// rather than padding with duplicates.
func TreeHash(hashes []Hash256) Hash256 {
	switch len(hashes) {
	case 0:
		return Hash256{}
	case 1:
		return hashes[0]
	case 2:
		return FastHashConcat(hashes[0][:], hashes[1][:])
	default:
		count := len(hashes)
		cnt := treeHashCnt(count)
		ints := make([]Hash256, cnt)
		carry := 2*cnt - count
		copy(ints, hashes[:carry])
		for i, j := carry, carry; j < cnt; i, j = i+2, j+1 {
			ints[j] = FastHashConcat(hashes[i][:], hashes[i+1][:])
		}
		for cnt > 2 {
			cnt >>= 1
			for i, j := 0, 0; j < cnt; i, j = i+2, j+1 {
				ints[j] = FastHashConcat(ints[i][:], ints[i+1][:])
			}
		}
		return FastHashConcat(ints[0][:], ints[1][:])
	}
}

// TreeBranch computes the merkle branch for the leaf at index 0 in a tree
// over hashes, the form used for a miner transaction's merge-mining
// branch. Ported from crypto::tree_branch.
func TreeBranch(hashes []Hash256) []Hash256 {
	count := len(hashes)
	if count <= 1 {
		return nil
	}
	depth := TreeDepth(count)
	branch := make([]Hash256, 0, depth)

	cnt := treeHashCnt(count)
	ints := make([]Hash256, cnt)
	carry := 2*cnt - count
	copy(ints, hashes[:carry])
	for i, j := carry, carry; j < cnt; i, j = i+2, j+1 {
		ints[j] = FastHashConcat(hashes[i][:], hashes[i+1][:])
	}
	// A power-of-two count carries nothing forward: leaf 0 was hashed
	// with leaf 1 at the first level, so leaf 1 is its first sibling.
	if carry == 0 {
		branch = append(branch, hashes[1])
	}
	// Leaf 0's subtree now sits at index 0 of ints; its sibling at this
	// level is index 1.
	if cnt > 1 {
		branch = append(branch, ints[1])
	}
	for cnt > 2 {
		cnt >>= 1
		for i, j := 0, 0; j < cnt; i, j = i+2, j+1 {
			ints[j] = FastHashConcat(ints[i][:], ints[i+1][:])
		}
		if cnt > 1 {
			branch = append(branch, ints[1])
		}
	}
	return branch
}

// TreeHashFromBranch reconstructs the merkle root for a leaf hash given
// its sibling branch and its index in the tree, matching
// crypto::tree_hash_from_branch. depth is len(branch); idx's low bits
// select, level by level, whether leaf combines as the left or right
// child of each branch element.
func TreeHashFromBranch(branch []Hash256, leaf Hash256, idx int) Hash256 {
	if len(branch) == 0 {
		return leaf
	}
	current := leaf
	for i, sibling := range branch {
		bit := (idx >> uint(i)) & 1
		if bit == 0 {
			current = FastHashConcat(current[:], sibling[:])
		} else {
			current = FastHashConcat(sibling[:], current[:])
		}
	}
	return current
}
