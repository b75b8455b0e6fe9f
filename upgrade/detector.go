// Package upgrade implements the rolling-window hardfork voting
// detector of spec §4.7: for a single fork target major version V, track
// whether the network has voted to upgrade and, once it has, the height
// at which V actually takes effect. Grounded on
// original_source/src/CryptoNoteCore/UpgradeDetector.h's sliding-window
// vote count, with initialization rebuilding in-memory state from the
// persisted chain at process start the way daglabs-btcd/blockdag does
// (see dag.go's index-rebuild pass), here by a forward replay.
package upgrade

import (
	"github.com/amjuarez/bytecoin-sub003/config"
	"github.com/amjuarez/bytecoin-sub003/cryptonote"
)

// BlockVersionAt reports the major and minor version a block whose
// height is blockIndex must carry under the given history source, for a
// single hardfork target Version.
type BlockVersionAt struct {
	Height       uint32
	MajorVersion uint8
	MinorVersion uint8
}

// HistorySource is the read-only slice of chain history the detector
// needs: version bytes by height, up to and including headHeight.
// *cache.BlockchainCache satisfies it directly (package tree passes its
// segments in), and this package does not import cache.
type HistorySource interface {
	// BlockVersionAt returns the (major, minor) version of the block at
	// height, and false if no such block exists yet.
	BlockVersionAt(height uint32) (major, minor uint8, ok bool)
	// TopHeight returns the height of the current chain tip, and false if
	// the chain is still empty.
	TopHeight() (uint32, bool)
}

// Detector tracks hardfork voting for one target major version.
type Detector struct {
	version         uint8
	hardHeight      uint32 // config.DefaultUpgradeHeightDisabled if voting-driven
	votingWindow    uint32
	votingThreshold uint32
	upgradeWindow   uint32

	votingComplete   bool
	votingCompleteAt uint32
}

// New constructs a Detector for the hardfork to major version `version`,
// reading the voting parameters and any hard-coded activation height
// from p.
func New(version uint8, p config.Params) *Detector {
	hard := uint32(config.DefaultUpgradeHeightDisabled)
	switch version {
	case 2:
		hard = p.UpgradeHeightV2
	case 3:
		hard = p.UpgradeHeightV3
	}
	return &Detector{
		version:         version,
		hardHeight:      hard,
		votingWindow:    p.UpgradeVotingWindow,
		votingThreshold: p.UpgradeVotingThreshold,
		upgradeWindow:   p.UpgradeWindow,
	}
}

// IsHardForkConfigured reports whether this detector has a config-fixed
// activation height rather than a voting-driven one.
func (d *Detector) IsHardForkConfigured() bool {
	return d.hardHeight != config.DefaultUpgradeHeightDisabled
}

// UpgradeHeight returns the height at which d.version takes effect: the
// configured hard height if set, else the computed voting-complete
// height plus upgradeWindow once voting has completed, else
// config.DefaultUpgradeHeightDisabled if voting is still open.
func (d *Detector) UpgradeHeight() uint32 {
	if d.IsHardForkConfigured() {
		return d.hardHeight
	}
	if d.votingComplete {
		return d.votingCompleteAt + d.upgradeWindow
	}
	return config.DefaultUpgradeHeightDisabled
}

// ExpectedMajorVersion returns the major version the block at height
// must carry: below the upgrade height, version-1; at or above, version.
// A height before voting completes (no upgrade height known yet) always
// expects version-1.
func (d *Detector) ExpectedMajorVersion(height uint32) uint8 {
	upgradeAt := d.UpgradeHeight()
	if upgradeAt == config.DefaultUpgradeHeightDisabled || height < upgradeAt {
		return d.version - 1
	}
	return d.version
}

// CheckBlockVersion validates that a candidate block's major version at
// height matches what this detector expects, per spec §4.7's
// blockPushed contract: "if a hard upgrade height is set, assert the
// block's major version matches the expected side; else if voting is
// complete, assert the block stays on V-1 until the computed upgrade
// height, then switches to V; else re-check the voting condition".
func (d *Detector) CheckBlockVersion(height uint32, majorVersion uint8) bool {
	return majorVersion == d.ExpectedMajorVersion(height)
}

// BlockPushed updates voting state after a block at height with the
// given (major, minor) version has been appended to the chain. history
// supplies the trailing votingWindow blocks' versions when a fresh
// voting-window count is needed.
func (d *Detector) BlockPushed(height uint32, majorVersion, minorVersion uint8, history HistorySource) {
	if d.IsHardForkConfigured() || d.votingComplete {
		return
	}
	if d.windowVotes(height, history) {
		d.votingComplete = true
		d.votingCompleteAt = height
	}
}

// BlockPopped undoes BlockPushed's effect when the block at height is
// removed from the chain (a reorg unwind), per spec §4.7's "if the
// popped block was at exactly the voting-complete height, reset voting
// state".
func (d *Detector) BlockPopped(height uint32) {
	if d.votingComplete && d.votingCompleteAt == height {
		d.votingComplete = false
		d.votingCompleteAt = 0
	}
}

// windowVotes counts minor-version-1 blocks of majorVersion d.version-1
// over the votingWindow blocks ending at height, and reports whether
// that count clears votingThreshold percent of the window.
func (d *Detector) windowVotes(height uint32, history HistorySource) bool {
	if uint32(height+1) < d.votingWindow {
		return false
	}
	start := height + 1 - d.votingWindow
	var votes uint32
	for h := start; h <= height; h++ {
		major, minor, ok := history.BlockVersionAt(h)
		if !ok {
			return false
		}
		if major == d.version-1 && minor == cryptonote.BlockMinorVersion1 {
			votes++
		}
	}
	return uint64(votes)*100 >= uint64(d.votingThreshold)*uint64(d.votingWindow)
}

// Init reconstructs voting state deterministically at process start. It
// does not scan backward from the tip: it walks from genesis forward,
// calling BlockPushed for every block up to the tip. A detector with a
// configured hard height has no voting state and returns at once. A
// full historical replay is the simplest implementation that is
// obviously correct; the window arithmetic itself is O(votingWindow) per
// call so this is O(height * votingWindow) once at startup, not on the
// hot path.
func (d *Detector) Init(history HistorySource) {
	if d.IsHardForkConfigured() {
		return
	}
	top, ok := history.TopHeight()
	if !ok {
		return
	}
	for h := uint32(0); h <= top; h++ {
		major, minor, ok := history.BlockVersionAt(h)
		if !ok {
			return
		}
		d.BlockPushed(h, major, minor, history)
		if h == top {
			break
		}
	}
}
