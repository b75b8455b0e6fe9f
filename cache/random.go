package cache

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"

	"github.com/amjuarez/bytecoin-sub003/crypto"
)

// shuffleSeed draws a 64-bit seed from the operating system's
// cryptographic PRNG, the seeding discipline spec §4.5.4 requires for
// the decoy-selection shuffle.
func shuffleSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// crypto/rand failing means the platform entropy source is gone;
		// decoy selection quality is the least of the node's problems.
		panic(err)
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// GetRandomOutsByAmount selects up to count distinct global indexes of
// key outputs for amount that are spendable as of asOfHeight: their
// containing block is at least MinedMoneyUnlockWindow blocks deep and
// their transaction's unlock time has elapsed. Selection within a
// segment draws without replacement from a shuffle seeded by a
// cryptographic PRNG; when a segment cannot supply enough, the parent
// chain supplies the remainder (whose indexes are all below this
// segment's StartIndex for the amount, so the result stays unique).
// now is the caller's wall-clock unix time, used only for time-coded
// unlock values.
func (c *BlockchainCache) GetRandomOutsByAmount(amount uint64, count uint32, asOfHeight uint32, now uint64) []uint64 {
	if count == 0 {
		return nil
	}

	c.mu.RLock()
	entry, ok := c.keyOutputsGlobalIndexes[amount]
	if !ok {
		parent := c.parent
		c.mu.RUnlock()
		if parent == nil {
			return nil
		}
		return parent.GetRandomOutsByAmount(amount, count, asOfHeight, now)
	}

	unlockWindow := c.currency.Params().MinedMoneyUnlockWindow
	var eligible int
	if asOfHeight >= unlockWindow {
		cutoff := asOfHeight - unlockWindow
		eligible = blockIndexUpperBound(entry.Outputs, cutoff+1)
	}

	var result []uint64
	if eligible > 0 {
		rng := rand.New(rand.NewSource(shuffleSeed()))
		for _, offset := range rng.Perm(eligible) {
			poi := entry.Outputs[offset]
			info, found := c.transactionsByTx[txKey{poi.BlockIndex, poi.TransactionIndex}]
			if !found {
				continue
			}
			if !c.currency.IsTransactionSpendTimeUnlocked(info.UnlockTime, asOfHeight, now) {
				continue
			}
			result = append(result, entry.StartIndex+uint64(offset))
			if uint32(len(result)) == count {
				break
			}
		}
	}
	parent := c.parent
	c.mu.RUnlock()

	if uint32(len(result)) < count && parent != nil {
		remainder := parent.GetRandomOutsByAmount(amount, count-uint32(len(result)), asOfHeight, now)
		result = append(remainder, result...)
	}
	return result
}

// ExtractOutputKeysResult is the outcome of resolving a set of global
// indexes to their output public keys.
type ExtractOutputKeysResult int

const (
	// ExtractOutputKeysSucceeded means every index resolved.
	ExtractOutputKeysSucceeded ExtractOutputKeysResult = iota
	// ExtractOutputKeysInvalidGlobalIndex means an index exceeds the
	// number of outputs known for the amount, or names a non-key output.
	ExtractOutputKeysInvalidGlobalIndex
	// ExtractOutputKeysOutputLocked means a referenced output's unlock
	// time has not elapsed as of the requested height.
	ExtractOutputKeysOutputLocked
)

// ExtractKeyOutputPublicKeys resolves globalIndexes for amount to the
// one-time public keys a ring signature verifies against, enforcing
// that each referenced output is already unlocked at asOfHeight. This
// is the key-producing, lock-checking layer over ExtractKeyOutputKeys
// that spec §4.5.4 describes; ring members may be any age, so no
// MinedMoneyUnlockWindow depth requirement applies here beyond the
// transaction's own unlock time.
func (c *BlockchainCache) ExtractKeyOutputPublicKeys(amount uint64, asOfHeight uint32, globalIndexes []uint64, now uint64) ([]crypto.PublicKey, ExtractOutputKeysResult) {
	packed, ok := c.ExtractKeyOutputKeys(amount, globalIndexes)
	if !ok {
		return nil, ExtractOutputKeysInvalidGlobalIndex
	}
	keys := make([]crypto.PublicKey, len(packed))
	for i, poi := range packed {
		info, err := c.GetTransactionInfoByIndex(poi.BlockIndex, poi.TransactionIndex)
		if err != nil || int(poi.OutputIndex) >= len(info.Outputs) {
			return nil, ExtractOutputKeysInvalidGlobalIndex
		}
		if !c.currency.IsTransactionSpendTimeUnlocked(info.UnlockTime, asOfHeight, now) {
			return nil, ExtractOutputKeysOutputLocked
		}
		target := info.Outputs[poi.OutputIndex]
		if target.ToKey == nil {
			return nil, ExtractOutputKeysInvalidGlobalIndex
		}
		keys[i] = target.ToKey.Key
	}
	return keys, ExtractOutputKeysSucceeded
}
