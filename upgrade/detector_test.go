package upgrade

import (
	"testing"

	"github.com/amjuarez/bytecoin-sub003/config"
	"github.com/stretchr/testify/require"
)

// fakeHistory is a HistorySource backed by a plain map, for exercising
// Detector without a real cache.BlockchainCache.
type fakeHistory struct {
	versions map[uint32][2]uint8
	top      uint32
	hasTop   bool
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{versions: make(map[uint32][2]uint8)}
}

func (h *fakeHistory) push(height uint32, major, minor uint8) {
	h.versions[height] = [2]uint8{major, minor}
	h.top = height
	h.hasTop = true
}

func (h *fakeHistory) BlockVersionAt(height uint32) (uint8, uint8, bool) {
	v, ok := h.versions[height]
	return v[0], v[1], ok
}

func (h *fakeHistory) TopHeight() (uint32, bool) {
	return h.top, h.hasTop
}

// testParams returns voting parameters matching spec's S6 scenario: a
// 10-block voting window, 80% threshold, and a 4-block activation delay
// after voting completes.
func testParams(t *testing.T) config.Params {
	t.Helper()
	p, err := config.NewBuilder().Build()
	require.NoError(t, err)
	p.UpgradeVotingWindow = 10
	p.UpgradeVotingThreshold = 80
	p.UpgradeWindow = 4
	p.UpgradeHeightV2 = config.DefaultUpgradeHeightDisabled
	return p
}

func TestDetectorCompletesVotingAtThreshold(t *testing.T) {
	p := testParams(t)
	history := newFakeHistory()
	// 8 of 10 blocks (heights 0-9) vote minor version 1: exactly 80%.
	minors := []uint8{1, 1, 0, 1, 1, 1, 0, 1, 1, 1}
	for h, m := range minors {
		history.push(uint32(h), 1, m)
	}

	d := New(2, p)
	d.Init(history)

	require.Equal(t, uint32(9+4), d.UpgradeHeight())
	require.Equal(t, uint8(1), d.ExpectedMajorVersion(12))
	require.Equal(t, uint8(2), d.ExpectedMajorVersion(13))
}

func TestDetectorStaysOpenBelowThreshold(t *testing.T) {
	p := testParams(t)
	history := newFakeHistory()
	// 7 of 10 votes: 70%, below the 80% threshold.
	minors := []uint8{1, 1, 0, 1, 1, 1, 0, 1, 1, 0}
	for h, m := range minors {
		history.push(uint32(h), 1, m)
	}

	d := New(2, p)
	d.Init(history)

	require.Equal(t, uint32(config.DefaultUpgradeHeightDisabled), d.UpgradeHeight())
	require.Equal(t, uint8(1), d.ExpectedMajorVersion(1000))
}

// TestDetectorBlockPoppedResetsVotingAtCompletionHeight covers a reorg
// that unwinds exactly the block whose push completed voting: the
// detector must forget completion rather than leaving a stale
// UpgradeHeight computed from a block no longer on the active chain.
func TestDetectorBlockPoppedResetsVotingAtCompletionHeight(t *testing.T) {
	p := testParams(t)
	history := newFakeHistory()
	minors := []uint8{1, 1, 0, 1, 1, 1, 0, 1, 1, 1}
	d := New(2, p)
	for h, m := range minors {
		history.push(uint32(h), 1, m)
		d.BlockPushed(uint32(h), 1, m, history)
	}
	require.Equal(t, uint32(9+4), d.UpgradeHeight())

	d.BlockPopped(9)
	require.Equal(t, uint32(config.DefaultUpgradeHeightDisabled), d.UpgradeHeight())

	// popping an earlier, non-completion height leaves voting intact.
	minors2 := []uint8{1, 1, 0, 1, 1, 1, 0, 1, 1, 1}
	history2 := newFakeHistory()
	d2 := New(2, p)
	for h, m := range minors2 {
		history2.push(uint32(h), 1, m)
		d2.BlockPushed(uint32(h), 1, m, history2)
	}
	d2.BlockPopped(3)
	require.Equal(t, uint32(9+4), d2.UpgradeHeight())
}

func TestDetectorHardForkHeightSkipsVoting(t *testing.T) {
	p := testParams(t)
	p.UpgradeHeightV2 = 50
	d := New(2, p)
	require.True(t, d.IsHardForkConfigured())
	require.Equal(t, uint32(50), d.UpgradeHeight())
	require.Equal(t, uint8(1), d.ExpectedMajorVersion(49))
	require.Equal(t, uint8(2), d.ExpectedMajorVersion(50))
}
