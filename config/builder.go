package config

import "fmt"

// Builder constructs a validated Params via fluent setters. The
// range-checked setters (EmissionSpeedFactor, DifficultyWindow,
// DifficultyCut, UpgradeVotingThreshold, UpgradeWindow) reject
// out-of-range arguments the way original_source's CurrencyBuilder
// setters do; the others store their argument unchecked.
type Builder struct {
	p   Params
	err error
}

// NewBuilder returns a Builder pre-populated with every mainnet default,
// matching CurrencyBuilder::CurrencyBuilder's constructor body.
func NewBuilder() *Builder {
	b := &Builder{p: Params{
		MaxBlockNumber:                     DefaultMaxBlockNumber,
		MaxBlockBlobSize:                   DefaultMaxBlockBlobSize,
		MaxTxSize:                          DefaultMaxTxSize,
		PublicAddressBase58Prefix:          DefaultPublicAddressBase58Prefix,
		MinedMoneyUnlockWindow:             DefaultMinedMoneyUnlockWindow,
		TimestampCheckWindow:               DefaultTimestampCheckWindow,
		BlockFutureTimeLimit:               DefaultBlockFutureTimeLimit,
		MoneySupply:                        ^uint64(0),
		EmissionSpeedFactor:                DefaultEmissionSpeedFactor,
		GenesisBlockReward:                 DefaultGenesisBlockReward,
		CryptonoteCoinVersion:              DefaultCryptonoteCoinVersion,
		RewardBlocksWindow:                 DefaultRewardBlocksWindow,
		MinMixin:                           DefaultMinMixin,
		MandatoryMixinBlockVersion:         DefaultMandatoryMixinBlockVersion,
		MixinStartHeight:                   DefaultMixinStartHeight,
		MandatoryTransaction:               DefaultMandatoryTransaction,
		KillHeight:                         DefaultKillHeight,
		TailEmissionReward:                 DefaultTailEmissionReward,
		ZawyDifficultyBlockIndex:           DefaultZawyDifficultyBlockIndex,
		ZawyDifficultyLastBlock:            DefaultZawyDifficultyLastBlock,
		ZawyLWMADifficultyBlockIndex:       DefaultZawyLWMADifficultyBlockIndex,
		ZawyLWMADifficultyLastBlock:        DefaultZawyLWMADifficultyLastBlock,
		ZawyLWMADifficultyN:                DefaultZawyLWMADifficultyN,
		BuggedZawyDifficultyBlockIndex:     DefaultBuggedZawyDifficultyBlockIndex,
		BlockGrantedFullRewardZone:         DefaultBlockGrantedFullRewardZone,
		MinerTxBlobReservedSize:            DefaultMinerTxBlobReservedSize,
		NumberOfDecimalPlaces:              DefaultNumberOfDecimalPlaces,
		Coin:                               pow10(DefaultNumberOfDecimalPlaces),
		MinimumFee:                         DefaultMinimumFee,
		DefaultDustThreshold:               DefaultMinimumFee,
		DifficultyTarget:                   DefaultDifficultyTarget * secondScale,
		DifficultyWindow:                   DefaultDifficultyWindow,
		DifficultyLag:                      DefaultDifficultyLag,
		DifficultyCut:                      DefaultDifficultyCut,
		MaxBlockSizeInitial:                DefaultMaxBlockSizeInitial,
		MaxBlockSizeGrowthSpeedNumerator:   DefaultMaxBlockSizeGrowthSpeedNumerator,
		MaxBlockSizeGrowthSpeedDenominator: DefaultMaxBlockSizeGrowthSpeedDenominator,
		LockedTxAllowedDeltaBlocks:         DefaultLockedTxAllowedDeltaBlocks,
		MempoolTxLiveTime:                  DefaultMempoolTxLivetime * secondScale,
		MempoolTxFromAltBlockLiveTime:      DefaultMempoolTxFromAltBlockLivetime * secondScale,
		NumberOfPeriodsToForgetDeletedTx:   DefaultNumberOfPeriodsToForgetDeletedTx,
		FusionTxMinInputCount:              DefaultFusionTxMinInputCount,
		FusionTxMinInOutCountRatio:         DefaultFusionTxMinInOutCountRatio,
		UpgradeHeightV2:                    DefaultUpgradeHeightDisabled,
		UpgradeHeightV3:                    DefaultUpgradeHeightDisabled,
		UpgradeVotingThreshold:             DefaultUpgradeVotingThreshold,
		UpgradeVotingWindow:                DefaultUpgradeVotingWindow,
		UpgradeWindow:                      DefaultUpgradeWindow,
		BlocksFileName:                     DefaultBlocksFileName,
		BlockIndexesFileName:               DefaultBlockIndexesFileName,
		TxPoolFileName:                     DefaultTxPoolFileName,
	}}
	b.p.MaxTransactionSizeLimit = DefaultMaxBlockSizeInitial // placeholder, fixed below
	b.p.LockedTxAllowedDeltaSeconds = uint64(b.p.DifficultyTarget.Seconds()) * b.p.LockedTxAllowedDeltaBlocks
	b.p.FusionTxMaxSize = b.p.MaxBlockSizeInitial * 30 / 100
	b.maxTransactionSizeLimit(b.p.BlockGrantedFullRewardZone*125/100 - b.p.MinerTxBlobReservedSize)
	return b
}

const secondScale = 1000000000 // time.Duration is in nanoseconds; constants above are seconds.

func pow10(n uint64) uint64 {
	v := uint64(1)
	for i := uint64(0); i < n; i++ {
		v *= 10
	}
	return v
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Testnet marks the currency as a test network, causing Build to prefix
// the configured file names with "testnet_" and override the upgrade
// heights, matching Currency::init()'s isTestnet() branch.
func (b *Builder) Testnet(v bool) *Builder {
	b.p.Testnet = v
	return b
}

// EmissionSpeedFactor sets the emission speed factor, rejecting zero and
// any factor above 64 — matching CurrencyBuilder::emissionSpeedFactor's
// validation. A factor of 64 is accepted and shifts MoneySupply to zero.
func (b *Builder) EmissionSpeedFactor(v uint8) *Builder {
	if v <= 0 || v > 8*8 {
		return b.fail(fmt.Errorf("config: emissionSpeedFactor %d out of range", v))
	}
	b.p.EmissionSpeedFactor = v
	return b
}

// NumberOfDecimalPlaces sets the display decimal places and recomputes
// Coin = 10^places, matching CurrencyBuilder::numberOfDecimalPlaces.
func (b *Builder) NumberOfDecimalPlaces(v uint64) *Builder {
	b.p.NumberOfDecimalPlaces = v
	b.p.Coin = pow10(v)
	return b
}

func (b *Builder) maxTransactionSizeLimit(v uint64) *Builder {
	b.p.MaxTransactionSizeLimit = v
	return b
}

// DifficultyWindow sets the difficulty retargeting window, rejecting
// windows too small to produce a meaningful cut, matching
// CurrencyBuilder::difficultyWindow.
func (b *Builder) DifficultyWindow(v uint64) *Builder {
	if v < 2 {
		return b.fail(fmt.Errorf("config: difficultyWindow %d must be >= 2", v))
	}
	b.p.DifficultyWindow = v
	return b
}

// DifficultyLag sets the difficulty lag.
func (b *Builder) DifficultyLag(v uint64) *Builder {
	b.p.DifficultyLag = v
	return b
}

// DifficultyCut sets the difficulty outlier-trim count, rejecting a cut
// that would remove the whole window, matching
// CurrencyBuilder::difficultyCut.
func (b *Builder) DifficultyCut(v uint64) *Builder {
	if v*2 >= b.p.DifficultyWindow {
		return b.fail(fmt.Errorf("config: difficultyCut %d too large for window %d", v, b.p.DifficultyWindow))
	}
	b.p.DifficultyCut = v
	return b
}

// UpgradeVotingThreshold sets the percentage of votes required to
// complete an upgrade, rejecting anything outside (0, 100], matching
// CurrencyBuilder::upgradeVotingThreshold.
func (b *Builder) UpgradeVotingThreshold(v uint32) *Builder {
	if v <= 0 || v > 100 {
		return b.fail(fmt.Errorf("config: upgradeVotingThreshold %d not in (0, 100]", v))
	}
	b.p.UpgradeVotingThreshold = v
	return b
}

// UpgradeWindow sets the upgrade voting window, rejecting zero, matching
// CurrencyBuilder::upgradeWindow.
func (b *Builder) UpgradeWindow(v uint32) *Builder {
	if v == 0 {
		return b.fail(fmt.Errorf("config: upgradeWindow must be nonzero"))
	}
	b.p.UpgradeWindow = v
	b.p.UpgradeVotingWindow = v
	return b
}

// UpgradeHeightV2 pins the height at which block version 2 activates,
// skipping vote counting entirely for that transition.
func (b *Builder) UpgradeHeightV2(v uint32) *Builder {
	b.p.UpgradeHeightV2 = v
	return b
}

// UpgradeHeightV3 pins the height at which block version 3 activates.
func (b *Builder) UpgradeHeightV3(v uint32) *Builder {
	b.p.UpgradeHeightV3 = v
	return b
}

// BlocksFileName overrides the raw block store's file name.
func (b *Builder) BlocksFileName(v string) *Builder {
	b.p.BlocksFileName = v
	return b
}

// Build finalizes the Params, applying the testnet file-prefix and
// upgrade-height overrides from Currency::init()'s isTestnet() branch,
// and returns any validation error accumulated by the setters.
func (b *Builder) Build() (Params, error) {
	if b.err != nil {
		return Params{}, b.err
	}
	p := b.p
	if p.Testnet {
		p.UpgradeHeightV2 = 0
		p.UpgradeHeightV3 = DefaultUpgradeHeightDisabled
		p.BlocksFileName = "testnet_" + p.BlocksFileName
		p.BlockIndexesFileName = "testnet_" + p.BlockIndexesFileName
		p.TxPoolFileName = "testnet_" + p.TxPoolFileName
	}
	return p, nil
}
