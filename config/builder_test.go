package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBuilderDefaultsBuild(t *testing.T) {
	p, err := NewBuilder().Build()
	require.NoError(t, err)
	require.Equal(t, uint64(DefaultDifficultyWindow), p.DifficultyWindow)
	require.Equal(t, DefaultUpgradeVotingThreshold, p.UpgradeVotingThreshold)
	require.False(t, p.Testnet)
	require.Equal(t, DefaultBlocksFileName, p.BlocksFileName)
}

func TestEmissionSpeedFactorRejectsOutOfRange(t *testing.T) {
	_, err := NewBuilder().EmissionSpeedFactor(0).Build()
	require.Error(t, err)

	_, err = NewBuilder().EmissionSpeedFactor(200).Build()
	require.Error(t, err)

	p, err := NewBuilder().EmissionSpeedFactor(20).Build()
	require.NoError(t, err)
	require.Equal(t, uint8(20), p.EmissionSpeedFactor)
}

func TestDifficultyWindowRejectsTooSmall(t *testing.T) {
	_, err := NewBuilder().DifficultyWindow(1).Build()
	require.Error(t, err)

	p, err := NewBuilder().DifficultyWindow(10).Build()
	require.NoError(t, err)
	require.Equal(t, uint64(10), p.DifficultyWindow)
}

func TestDifficultyCutRejectsWindowOverrun(t *testing.T) {
	_, err := NewBuilder().DifficultyWindow(10).DifficultyCut(5).Build()
	require.Error(t, err)

	p, err := NewBuilder().DifficultyWindow(10).DifficultyCut(4).Build()
	require.NoError(t, err)
	require.Equal(t, uint64(4), p.DifficultyCut)
}

func TestUpgradeVotingThresholdRejectsOutOfRange(t *testing.T) {
	_, err := NewBuilder().UpgradeVotingThreshold(0).Build()
	require.Error(t, err)

	_, err = NewBuilder().UpgradeVotingThreshold(101).Build()
	require.Error(t, err)

	p, err := NewBuilder().UpgradeVotingThreshold(80).Build()
	require.NoError(t, err)
	require.Equal(t, uint32(80), p.UpgradeVotingThreshold)
}

func TestUpgradeWindowRejectsZeroAndSetsVotingWindow(t *testing.T) {
	_, err := NewBuilder().UpgradeWindow(0).Build()
	require.Error(t, err)

	p, err := NewBuilder().UpgradeWindow(6).Build()
	require.NoError(t, err)
	require.Equal(t, uint32(6), p.UpgradeWindow)
	require.Equal(t, uint32(6), p.UpgradeVotingWindow)
}

func TestTestnetOverridesUpgradeHeightsAndFileNames(t *testing.T) {
	p, err := NewBuilder().Testnet(true).Build()
	require.NoError(t, err)
	require.True(t, p.Testnet)
	require.Equal(t, uint32(0), p.UpgradeHeightV2)
	require.Equal(t, DefaultUpgradeHeightDisabled, p.UpgradeHeightV3)
	require.Equal(t, "testnet_"+DefaultBlocksFileName, p.BlocksFileName)
}

func TestFirstValidationErrorSticksThroughChaining(t *testing.T) {
	_, err := NewBuilder().EmissionSpeedFactor(0).DifficultyWindow(10).Build()
	require.Error(t, err)
	require.Contains(t, err.Error(), "emissionSpeedFactor")
}
