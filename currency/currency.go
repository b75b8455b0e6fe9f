// Package currency implements the emission schedule, block reward
// penalty, difficulty retargeting and fusion-transaction rules of
// spec §4.3, ported bit for bit from
// original_source/src/CryptoNoteCore/Currency.cpp so that chain state
// computed by this engine agrees with the network it was distilled from.
package currency

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/amjuarez/bytecoin-sub003/config"
	"github.com/amjuarez/bytecoin-sub003/crypto"
)

// PrettyAmounts is the decomposed-decimal lookup table used by the fusion
// transaction checks, ported verbatim from Currency::PRETTY_AMOUNTS.
var PrettyAmounts = buildPrettyAmounts()

func buildPrettyAmounts() []uint64 {
	amounts := make([]uint64, 0, 19*9+1)
	scale := uint64(1)
	for decade := 0; decade < 19; decade++ {
		for digit := uint64(1); digit <= 9; digit++ {
			amounts = append(amounts, digit*scale)
		}
		scale *= 10
	}
	amounts = append(amounts, 10000000000000000000) // 10^19, wraps as uint64 per original's "ull" literal
	return amounts
}

// Currency bundles a config.Params with the pure emission/difficulty
// functions of spec §4.3. It carries no mutable state; one instance is
// shared across every BlockchainCache segment.
type Currency struct {
	p config.Params
}

// New wraps p as a Currency.
func New(p config.Params) *Currency {
	return &Currency{p: p}
}

// Params returns the underlying parameter set.
func (c *Currency) Params() config.Params {
	return c.p
}

// DifficultyWindowByBlockVersion returns the retargeting window size for
// majorVersion. Version-specific window sizes (V1/V2) collapse to a
// single configured DifficultyWindow in this port, since spec §6 exposes
// only one DifficultyWindow knob; a deployment that needs distinct
// per-version windows configures separate Currency instances per
// upgrade boundary instead.
func (c *Currency) DifficultyWindowByBlockVersion(uint8) uint64 {
	return c.p.DifficultyWindow
}

// DifficultyCutByBlockVersion returns the retargeting outlier-trim count.
func (c *Currency) DifficultyCutByBlockVersion(uint8) uint64 {
	return c.p.DifficultyCut
}

// DifficultyLagByBlockVersion returns the retargeting lag.
func (c *Currency) DifficultyLagByBlockVersion(uint8) uint64 {
	return c.p.DifficultyLag
}

// DifficultyBlocksCount returns how many trailing (timestamp,
// cumulative-difficulty) pairs NextDifficulty needs for majorVersion.
func (c *Currency) DifficultyBlocksCount(majorVersion uint8) uint64 {
	return c.DifficultyWindowByBlockVersion(majorVersion) + c.DifficultyLagByBlockVersion(majorVersion)
}

// BlockGrantedFullRewardZoneByBlockVersion returns the block-size
// threshold below which no size penalty applies.
func (c *Currency) BlockGrantedFullRewardZoneByBlockVersion(uint8) uint64 {
	return c.p.BlockGrantedFullRewardZone
}

// UpgradeHeight returns the configured activation height for
// majorVersion, or config.DefaultUpgradeHeightDisabled for any other
// version, matching Currency::upgradeHeight.
func (c *Currency) UpgradeHeight(majorVersion uint8) uint32 {
	switch majorVersion {
	case 2:
		return c.p.UpgradeHeightV2
	case 3:
		return c.p.UpgradeHeightV3
	default:
		return config.DefaultUpgradeHeightDisabled
	}
}

// MaxBlockCumulativeSize returns the hard cap on cumulative block size at
// the given height, growing linearly per MaxBlockSizeGrowthSpeed*.
func (c *Currency) MaxBlockCumulativeSize(height uint64) uint64 {
	return c.p.MaxBlockSizeInitial + (height*c.p.MaxBlockSizeGrowthSpeedNumerator)/c.p.MaxBlockSizeGrowthSpeedDenominator
}

// getPenalizedAmount applies the quadratic block-size penalty: no
// penalty below the median, otherwise amount is scaled down by
// currentBlockSize*(2*medianSize-currentBlockSize) then divided by
// medianSize TWICE (two truncating divisions, not one division by
// medianSize^2) — ported exactly from the original's two div128_32
// calls, which do not commute with a single combined division.
func getPenalizedAmount(amount, medianSize, currentBlockSize uint64) uint64 {
	if amount == 0 {
		return 0
	}
	if currentBlockSize <= medianSize {
		return amount
	}
	factor := new(big.Int).Mul(
		big.NewInt(0).SetUint64(currentBlockSize),
		big.NewInt(0).SetUint64(2*medianSize-currentBlockSize),
	)
	product := new(big.Int).Mul(big.NewInt(0).SetUint64(amount), factor)
	median := big.NewInt(0).SetUint64(medianSize)
	step1 := new(big.Int).Quo(product, median)
	step2 := new(big.Int).Quo(step1, median)
	return step2.Uint64()
}

// GetBlockReward computes the block's coinbase reward and the resulting
// change in total emission, ported field-for-field from
// Currency::getBlockReward. ok is false when the block is too big to be
// rewarded at all (more than twice the effective median size).
func (c *Currency) GetBlockReward(blockMajorVersion uint8, medianSize, currentBlockSize, alreadyGeneratedCoins, fee uint64) (reward uint64, emissionChange int64, ok bool) {
	baseReward := (c.p.MoneySupply - alreadyGeneratedCoins) >> c.p.EmissionSpeedFactor
	if alreadyGeneratedCoins == 0 && c.p.GenesisBlockReward != 0 {
		baseReward = c.p.GenesisBlockReward
	}
	if baseReward < c.p.TailEmissionReward {
		baseReward = c.p.TailEmissionReward
	}
	if alreadyGeneratedCoins+baseReward >= c.p.MoneySupply {
		baseReward = 0
	}

	fullRewardZone := c.BlockGrantedFullRewardZoneByBlockVersion(blockMajorVersion)
	if medianSize < fullRewardZone {
		medianSize = fullRewardZone
	}
	if currentBlockSize > 2*medianSize {
		return 0, 0, false
	}

	penalizedBaseReward := getPenalizedAmount(baseReward, medianSize, currentBlockSize)
	penalizedFee := fee
	if blockMajorVersion >= 2 || c.p.CryptonoteCoinVersion == 1 {
		penalizedFee = getPenalizedAmount(fee, medianSize, currentBlockSize)
	}

	emissionChange = int64(penalizedBaseReward) - (int64(fee) - int64(penalizedFee))
	reward = penalizedBaseReward + penalizedFee
	return reward, emissionChange, true
}

// IsFusionTransaction reports whether a transaction with the given per-
// input/output amounts and encoded size qualifies as a fusion
// transaction (a transaction that only consolidates dust into fewer,
// pretty-decomposed outputs, exempt from the usual minimum-mixin rule).
// Ported from Currency::isFusionTransaction(amounts, amounts, size).
func (c *Currency) IsFusionTransaction(inputsAmounts, outputsAmounts []uint64, size uint64) bool {
	if size > c.p.FusionTxMaxSize {
		return false
	}
	if uint64(len(inputsAmounts)) < c.p.FusionTxMinInputCount {
		return false
	}
	if uint64(len(inputsAmounts)) < uint64(len(outputsAmounts))*c.p.FusionTxMinInOutCountRatio {
		return false
	}

	var inputAmount uint64
	for _, amount := range inputsAmounts {
		if amount < c.p.DefaultDustThreshold {
			return false
		}
		inputAmount += amount
	}

	expected := decomposeAmount(inputAmount, c.p.DefaultDustThreshold)
	sort.Slice(expected, func(i, j int) bool { return expected[i] < expected[j] })
	sorted := append([]uint64(nil), outputsAmounts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if len(expected) != len(sorted) {
		return false
	}
	for i := range expected {
		if expected[i] != sorted[i] {
			return false
		}
	}
	return true
}

// IsAmountApplicableInFusionTransactionInput reports whether amount is a
// dust-free, pretty-decomposed value below threshold, and (when so)
// returns its power-of-ten bucket. Ported from
// Currency::isAmountApplicableInFusionTransactionInput.
func (c *Currency) IsAmountApplicableInFusionTransactionInput(amount, threshold uint64) (powerOfTen uint8, ok bool) {
	if amount >= threshold || amount < c.p.DefaultDustThreshold {
		return 0, false
	}
	idx := sort.Search(len(PrettyAmounts), func(i int) bool { return PrettyAmounts[i] >= amount })
	if idx == len(PrettyAmounts) || PrettyAmounts[idx] != amount {
		return 0, false
	}
	return uint8(idx / 9), true
}

// decomposeAmount splits amount into the "pretty" digit-decade chunks,
// matching decompose_amount_into_digits: each decade digit forms a chunk
// digit*10^order; chunks at or below dustThreshold are accumulated into a
// single dust value emitted once, at the point the first non-dust chunk is
// handled (or at the end, if every chunk was dust).
func decomposeAmount(amount, dustThreshold uint64) []uint64 {
	if amount == 0 {
		return nil
	}
	var out []uint64
	var dust uint64
	dustHandled := false
	order := uint64(1)
	for amount != 0 {
		chunk := (amount % 10) * order
		amount /= 10
		order *= 10
		if chunk > dustThreshold {
			if !dustHandled && dust != 0 {
				out = append(out, dust)
				dustHandled = true
			}
			out = append(out, chunk)
		} else {
			dust += chunk
		}
	}
	if !dustHandled && dust != 0 {
		out = append(out, dust)
	}
	return out
}

// FormatAmount renders amount as a fixed-point decimal string with
// NumberOfDecimalPlaces digits after the point, matching
// Currency::formatAmount.
func (c *Currency) FormatAmount(amount uint64) string {
	s := strconv.FormatUint(amount, 10)
	places := int(c.p.NumberOfDecimalPlaces)
	if len(s) < places+1 {
		s = strings.Repeat("0", places+1-len(s)) + s
	}
	point := len(s) - places
	return s[:point] + "." + s[point:]
}

// ParseAmount parses a fixed-point decimal string into its atomic amount,
// matching Currency::parseAmount.
func (c *Currency) ParseAmount(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	places := int(c.p.NumberOfDecimalPlaces)
	pointIndex := strings.IndexByte(s, '.')
	var fractionSize int
	if pointIndex >= 0 {
		fractionSize = len(s) - pointIndex - 1
		for fractionSize > places && strings.HasSuffix(s, "0") {
			s = s[:len(s)-1]
			fractionSize--
		}
		if fractionSize > places {
			return 0, false
		}
		s = s[:pointIndex] + s[pointIndex+1:]
	}
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	if fractionSize < places {
		s += strings.Repeat("0", places-fractionSize)
	}
	amount, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// IsTransactionSpendTimeUnlocked reports whether an output created with
// unlockTime may be spent in the block at blockIndex. unlockTime is
// dual-interpreted per spec §3: values below MaxBlockNumber name a
// height, anything else a unix time compared against now (the caller's
// wall clock — this package never reads the clock itself).
func (c *Currency) IsTransactionSpendTimeUnlocked(unlockTime uint64, blockIndex uint32, now uint64) bool {
	if unlockTime < uint64(c.p.MaxBlockNumber) {
		return uint64(blockIndex)+c.p.LockedTxAllowedDeltaBlocks >= unlockTime
	}
	return now+c.p.LockedTxAllowedDeltaSeconds >= unlockTime
}

// GetApproximateMaximumInputCount estimates how many ring-signature
// inputs of the given mixin count a transaction of transactionSize bytes
// can carry alongside outputCount plain outputs, ported verbatim from
// Currency::getApproximateMaximumInputCount (wire-size constants for a
// 32-byte key/hash/signature-half world).
func (c *Currency) GetApproximateMaximumInputCount(transactionSize, outputCount, mixinCount uint64) uint64 {
	const (
		keyImageSize                  = 32
		outputKeySize                 = 32
		amountSize                    = 8 + 2
		globalIndexesVectorSizeSize   = 1
		globalIndexesInitialValueSize = 4
		globalIndexesDifferenceSize   = 4
		signatureSize                 = 64
		extraTagSize                  = 1
		inputTagSize                  = 1
		outputTagSize                 = 1
		publicKeySize                 = 32
		transactionVersionSize        = 1
		transactionUnlockTimeSize     = 8
	)

	outputsSize := outputCount * (outputTagSize + outputKeySize + amountSize)
	headerSize := uint64(transactionVersionSize + transactionUnlockTimeSize + extraTagSize + publicKeySize)
	inputSize := uint64(inputTagSize+amountSize+keyImageSize+signatureSize+globalIndexesVectorSizeSize+globalIndexesInitialValueSize) +
		mixinCount*(globalIndexesDifferenceSize+signatureSize)

	if transactionSize < headerSize+outputsSize {
		return 0
	}
	return (transactionSize - headerSize - outputsSize) / inputSize
}

// CheckProofOfWork dispatches to the version-specific proof-of-work check:
// version 1 blocks are checked directly against the block's long hash,
// version 2+ blocks additionally verify the merge-mining branch ties the
// block into its auxiliary parent chain. Ported from
// Currency::checkProofOf{WorkV1,WorkV2,Work}.
func (c *Currency) CheckProofOfWork(prim crypto.Primitives, hashingBlob []byte, majorVersion uint8, auxRoot, mmTagMerkleRoot crypto.Hash256, difficulty uint64) bool {
	hash := prim.SlowHash(hashingBlob)
	if !CheckHash(hash, difficulty) {
		return false
	}
	if majorVersion == cryptonoteMajorVersion1 {
		return true
	}
	return auxRoot == mmTagMerkleRoot
}

const cryptonoteMajorVersion1 = 1

// CheckHash reports whether hash satisfies difficulty, i.e.
// hash-as-little-endian-256-bit-integer times difficulty does not
// overflow 256 bits — the standard CryptoNote proof-of-work comparison.
func CheckHash(hash crypto.Hash256, difficulty uint64) bool {
	if difficulty == 0 {
		return false
	}
	h := new(big.Int).SetBytes(reverseBytes(hash[:]))
	target := new(big.Int).Div(maxHashValue, big.NewInt(0).SetUint64(difficulty))
	return h.Cmp(target) <= 0
}

var maxHashValue = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
