package currency

import (
	"math"
	"math/big"
	"sort"
)

// NextDifficulty dispatches to the Zawy v1, Zawy LWMA or classic
// CryptoNote retargeting algorithm depending on which height range
// blockIndex falls in, ported from Currency::nextDifficulty(version,
// blockIndex, ...). Zawy v1 is checked before LWMA before the classic
// algorithm, matching the source's if/if/else order exactly — overlapping
// ranges are not expected to be configured, but if they were, v1 wins.
func (c *Currency) NextDifficulty(majorVersion uint8, blockIndex uint32, timestamps []uint64, cumulativeDifficulties []uint64) uint64 {
	p := &c.p
	if p.ZawyDifficultyBlockIndex != 0 && p.ZawyDifficultyBlockIndex <= blockIndex &&
		(p.ZawyDifficultyLastBlock == 0 || p.ZawyDifficultyLastBlock >= blockIndex) {
		return c.nextDifficultyZawyV1(timestamps, cumulativeDifficulties)
	}
	if p.ZawyLWMADifficultyBlockIndex != 0 && p.ZawyLWMADifficultyBlockIndex <= blockIndex &&
		(p.ZawyLWMADifficultyLastBlock == 0 || p.ZawyLWMADifficultyLastBlock >= blockIndex) {
		return c.nextDifficultyZawyLWMA(timestamps, cumulativeDifficulties)
	}
	return c.nextDifficultyDefault(majorVersion, blockIndex, timestamps, cumulativeDifficulties)
}

// nextDifficultyDefault mirrors Currency::nextDifficultyDefault's exact
// control flow, including the bugged-Zawy branch: the classic pass
// truncates the raw inputs to the version window and sorts the
// timestamps, and only then does the bugged branch re-truncate those
// already-sorted timestamps (with their position-ordered cumulative
// difficulties) down to the hardcoded window of 17 — so it keeps the 17
// smallest timestamps by value, not the 17 earliest by position. The
// branch then divides with floor instead of ceiling. A historical
// chain-consensus bug on both counts; this engine must match it exactly
// for chain continuity rather than "fix" it.
func (c *Currency) nextDifficultyDefault(majorVersion uint8, blockIndex uint32, timestamps, cumulativeDifficulties []uint64) uint64 {
	window := c.DifficultyWindowByBlockVersion(majorVersion)
	cut := c.DifficultyCutByBlockVersion(majorVersion)
	target := uint64(c.p.DifficultyTarget.Seconds())

	if uint64(len(timestamps)) > window {
		timestamps = timestamps[:window]
		cumulativeDifficulties = cumulativeDifficulties[:window]
	}
	length := uint64(len(timestamps))
	if length <= 1 {
		return 1
	}

	sorted := append([]uint64(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	cutBegin, cutEnd := difficultyCutBounds(length, window, cut)
	timeSpan := sorted[cutEnd-1] - sorted[cutBegin]
	if timeSpan == 0 {
		timeSpan = 1
	}
	totalWork := cumulativeDifficulties[cutEnd-1] - cumulativeDifficulties[cutBegin]
	low, ok := difficultyProduct(totalWork, target, timeSpan)
	if !ok {
		return 0
	}

	if c.p.BuggedZawyDifficultyBlockIndex != 0 && c.p.BuggedZawyDifficultyBlockIndex <= blockIndex {
		const buggedWindow, buggedCut = 17, 0
		if uint64(len(sorted)) > buggedWindow {
			sorted = sorted[:buggedWindow]
			cumulativeDifficulties = cumulativeDifficulties[:buggedWindow]
		}
		length = uint64(len(sorted))
		if length <= 1 {
			return 1
		}
		cutBegin, cutEnd = difficultyCutBounds(length, buggedWindow, buggedCut)
		timeSpan = sorted[cutEnd-1] - sorted[cutBegin]
		if timeSpan == 0 {
			timeSpan = 1
		}
		totalWork = cumulativeDifficulties[cutEnd-1] - cumulativeDifficulties[cutBegin]
		low, ok = difficultyProduct(totalWork, target, timeSpan)
		if !ok {
			return 0
		}
		return low / timeSpan // floor, not ceiling
	}

	return (low + timeSpan - 1) / timeSpan
}

// difficultyCutBounds trims the outlier cut symmetrically off a sorted
// window of length entries.
func difficultyCutBounds(length, window, cut uint64) (cutBegin, cutEnd uint64) {
	if length <= window-2*cut {
		return 0, length
	}
	cutBegin = (length - (window - 2*cut) + 1) / 2
	return cutBegin, cutBegin + (window - 2*cut)
}

// difficultyProduct computes totalWork*target with the original's
// 128-bit overflow checks; ok is false when the result (plus the
// ceiling rounding headroom) does not fit 64 bits.
func difficultyProduct(totalWork, target, timeSpan uint64) (uint64, bool) {
	product := new(big.Int).Mul(big.NewInt(0).SetUint64(totalWork), big.NewInt(0).SetUint64(target))
	if product.BitLen() > 64 {
		return 0, false
	}
	low := product.Uint64()
	if ^uint64(0)-low < timeSpan-1 {
		return 0, false
	}
	return low, true
}

func (c *Currency) nextDifficultyZawyV1(timestamps, cumulativeDifficulties []uint64) uint64 {
	const window, cut = 17, 0
	target := uint64(c.p.DifficultyTarget.Seconds())

	t := window
	if t > len(timestamps) {
		t = len(timestamps)
	}
	ts := append([]uint64(nil), timestamps[len(timestamps)-t:]...)
	cd := append([]uint64(nil), cumulativeDifficulties[len(cumulativeDifficulties)-t:]...)

	length := len(ts)
	if length <= 1 {
		return 1
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })

	var cutBegin, cutEnd int
	if length <= window-2*cut {
		cutBegin, cutEnd = 0, length
	} else {
		cutBegin = (length - (window - 2*cut) + 1) / 2
		cutEnd = cutBegin + (window - 2*cut)
	}
	timeSpan := ts[cutEnd-1] - ts[cutBegin]
	if timeSpan == 0 {
		timeSpan = 1
	}
	totalWork := cd[cutEnd-1] - cd[cutBegin]

	product := new(big.Int).Mul(big.NewInt(0).SetUint64(totalWork), big.NewInt(0).SetUint64(target))
	if product.BitLen() > 64 {
		return 0
	}
	low := product.Uint64()
	if ^uint64(0)-low < timeSpan-1 {
		return 0
	}
	next := low / timeSpan
	if next <= 1 {
		next = 1
	}
	return next
}

func (c *Currency) nextDifficultyZawyLWMA(timestamps, cumulativeDifficulties []uint64) uint64 {
	targetSeconds := int64(c.p.DifficultyTarget.Seconds())
	n := int64(c.p.ZawyLWMADifficultyN)
	if n == 0 {
		n = int64(45 * math.Pow(600.0/float64(targetSeconds), 0.3))
	}

	if int64(len(timestamps)) > n+1 {
		timestamps = timestamps[:n+1]
		cumulativeDifficulties = cumulativeDifficulties[:n+1]
	}
	length := int64(len(timestamps))
	if length <= 1 {
		return 1
	}

	const adjust = 0.998
	k := float64(n*(n+1)) / 2

	var lwma, sumInverseD float64
	for i := int64(1); i <= n && i < length; i++ {
		solveTime := int64(timestamps[i]) - int64(timestamps[i-1])
		if solveTime > targetSeconds*7 {
			solveTime = targetSeconds * 7
		}
		if solveTime < -6*targetSeconds {
			solveTime = -6 * targetSeconds
		}
		difficulty := cumulativeDifficulties[i] - cumulativeDifficulties[i-1]
		lwma += float64(solveTime) * float64(i) / k
		sumInverseD += 1 / float64(difficulty)
	}

	if int64(math.Round(lwma)) < targetSeconds/20 {
		lwma = float64(targetSeconds / 20)
	}

	harmonicMeanD := float64(n) / sumInverseD * adjust
	next := harmonicMeanD * float64(targetSeconds) / lwma
	nextDifficulty := uint64(next)
	if nextDifficulty < 100000 {
		nextDifficulty = 100000
	}
	return nextDifficulty
}
