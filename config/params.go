// Package config defines the currency's parameter set and the fluent
// Builder used to construct and validate it, modeled on
// daglabs-btcd/dagconfig's Params/network-registration pattern and on
// original_source/src/CryptoNoteCore/Currency.cpp's CurrencyBuilder.
//
// Every constant below is the original CryptoNote mainnet default
// (original_source/src/CryptoNoteCore/Currency.cpp's CurrencyBuilder
// constructor, reading from the `parameters::` namespace); a network that
// wants different values calls the corresponding Builder setter.
package config

import "time"

// Default parameter values, ported from the `parameters::` namespace
// CurrencyBuilder's constructor initializes every field from.
const (
	DefaultMaxBlockNumber                          = 500000000
	DefaultMaxBlockBlobSize                        = 500000000
	DefaultMaxTxSize                               = 1000000000
	DefaultPublicAddressBase58Prefix        uint64 = 6
	DefaultMinedMoneyUnlockWindow           uint32 = 10
	DefaultTimestampCheckWindow                    = 60
	DefaultBlockFutureTimeLimit             uint64 = 60 * 60 * 2
	DefaultEmissionSpeedFactor              uint8  = 18
	DefaultGenesisBlockReward               uint64 = 0
	DefaultCryptonoteCoinVersion            uint8  = 0
	DefaultRewardBlocksWindow                      = 100
	DefaultMinMixin                                = 0
	DefaultMandatoryMixinBlockVersion       uint8  = 0
	DefaultMixinStartHeight                 uint32 = 0
	DefaultMandatoryTransaction                    = false
	DefaultKillHeight                       uint32 = 0xFFFFFFFF
	DefaultTailEmissionReward               uint64 = 0
	DefaultZawyDifficultyBlockIndex         uint32 = 0
	DefaultZawyDifficultyLastBlock          uint32 = 0
	DefaultZawyLWMADifficultyBlockIndex     uint32 = 0
	DefaultZawyLWMADifficultyLastBlock      uint32 = 0
	DefaultZawyLWMADifficultyN                     = 0
	DefaultBuggedZawyDifficultyBlockIndex   uint32 = 0
	DefaultBlockGrantedFullRewardZone              = 10000
	DefaultMinerTxBlobReservedSize                 = 600
	DefaultNumberOfDecimalPlaces            uint64 = 8
	DefaultMinimumFee                       uint64 = 1000000
	DefaultDifficultyTarget                        = 120
	DefaultDifficultyWindow                        = 720
	DefaultDifficultyLag                           = 15
	DefaultDifficultyCut                           = 60
	DefaultMaxBlockSizeInitial                     = 20 * 1024
	DefaultMaxBlockSizeGrowthSpeedNumerator        = 100 * 1024
	DefaultLockedTxAllowedDeltaBlocks              = 1
	DefaultMempoolTxLivetime                       = 60 * 60 * 24
	DefaultMempoolTxFromAltBlockLivetime           = 60 * 60 * 7
	DefaultNumberOfPeriodsToForgetDeletedTx        = 7
	DefaultFusionTxMinInputCount                   = 12
	DefaultFusionTxMinInOutCountRatio              = 4
	DefaultUpgradeHeightDisabled            uint32 = 0xFFFFFFFF
	DefaultUpgradeVotingThreshold           uint32 = 90
	DefaultUpgradeVotingWindow                     = 10080
	DefaultUpgradeWindow                           = 10080
	DefaultBlocksFileName                          = "blocks.dat"
	DefaultBlockIndexesFileName                    = "blockindexes.dat"
	DefaultTxPoolFileName                          = "poolstate.bin"
)

// DefaultMaxBlockSizeGrowthSpeedDenominator depends on DifficultyTarget and
// is computed, not constant, in the original; callers that deviate from
// DefaultDifficultyTarget should recompute it.
const DefaultMaxBlockSizeGrowthSpeedDenominator = 365 * 24 * 60 * 60 / DefaultDifficultyTarget

// Params is the full set of consensus and storage parameters a
// BlockchainCache, Tree and Currency are built from.
type Params struct {
	Testnet bool

	MaxBlockNumber            uint32
	MaxBlockBlobSize          uint64
	MaxTxSize                 uint64
	PublicAddressBase58Prefix uint64
	MinedMoneyUnlockWindow    uint32
	TimestampCheckWindow      uint64
	BlockFutureTimeLimit      uint64

	MoneySupply           uint64
	EmissionSpeedFactor   uint8
	GenesisBlockReward    uint64
	CryptonoteCoinVersion uint8
	RewardBlocksWindow    uint64

	MinMixin                   uint64
	MandatoryMixinBlockVersion uint8
	MixinStartHeight           uint32
	MandatoryTransaction       bool
	KillHeight                 uint32
	TailEmissionReward         uint64

	ZawyDifficultyBlockIndex       uint32
	ZawyDifficultyLastBlock        uint32
	ZawyLWMADifficultyBlockIndex   uint32
	ZawyLWMADifficultyLastBlock    uint32
	ZawyLWMADifficultyN            uint64
	BuggedZawyDifficultyBlockIndex uint32

	BlockGrantedFullRewardZone uint64
	MinerTxBlobReservedSize    uint64
	MaxTransactionSizeLimit    uint64

	NumberOfDecimalPlaces uint64
	Coin                  uint64

	MinimumFee           uint64
	DefaultDustThreshold uint64

	DifficultyTarget time.Duration
	DifficultyWindow uint64
	DifficultyLag    uint64
	DifficultyCut    uint64

	MaxBlockSizeInitial                uint64
	MaxBlockSizeGrowthSpeedNumerator   uint64
	MaxBlockSizeGrowthSpeedDenominator uint64

	LockedTxAllowedDeltaSeconds uint64
	LockedTxAllowedDeltaBlocks  uint64

	MempoolTxLiveTime                time.Duration
	MempoolTxFromAltBlockLiveTime    time.Duration
	NumberOfPeriodsToForgetDeletedTx uint64

	FusionTxMaxSize            uint64
	FusionTxMinInputCount      uint64
	FusionTxMinInOutCountRatio uint64

	KeyImageCheckingBlockIndex uint32

	UpgradeHeightV2        uint32
	UpgradeHeightV3        uint32
	UpgradeVotingThreshold uint32
	UpgradeVotingWindow    uint32
	UpgradeWindow          uint32

	BlocksFileName       string
	BlockIndexesFileName string
	TxPoolFileName       string
}

// IsTestnet reports whether p is configured as a test network.
func (p *Params) IsTestnet() bool {
	return p.Testnet
}
