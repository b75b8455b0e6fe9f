// Package validator carries the TransactionValidatorState record of spec
// §3/§4.5.1: the set of key images and multisignature global indices a
// candidate block's transactions spend, computed by the caller before
// BlockchainCache.PushBlock and stored alongside the block, where
// GetPushedBlockInfo returns it.
//
// Per spec Open Question 4, AddSpentKeyImage/AddSpentMultisignature only
// record a spend and check nothing: confirming an output is unspent as of
// blockIndex-1, and detecting a double spend between two transactions
// within the same candidate block, are this package's caller's
// responsibility (the transaction pool or the block validator that
// builds State before calling PushBlock), not the cache's.
package validator

import (
	"github.com/amjuarez/bytecoin-sub003/crypto"
)

// MultisignatureOutputID identifies a spent multisignature output by
// amount and per-amount global index, the composite key
// spentMultisigOutputs is keyed by.
type MultisignatureOutputID struct {
	Amount      uint64
	GlobalIndex uint64
}

// State is the set of outputs a candidate block's transactions consume:
// every KeyInput's key image and every MultisignatureInput's resolved
// global index. Built by the caller while validating the block's inputs
// against the cache's current lookup state (checkIfSpent et al.), then
// handed to BlockchainCache.PushBlock.
type State struct {
	SpentKeyImages               []crypto.KeyImage
	SpentMultisignatureGlobalIdx []MultisignatureOutputID
}

// New returns an empty State, ready to be populated by the caller's
// per-input validation loop.
func New() *State {
	return &State{}
}

// AddSpentKeyImage records that keyImage was spent by this candidate
// block. The caller must already have confirmed keyImage was unspent as
// of the previous block on this chain; this call does not re-check.
func (s *State) AddSpentKeyImage(keyImage crypto.KeyImage) {
	s.SpentKeyImages = append(s.SpentKeyImages, keyImage)
}

// AddSpentMultisignature records that the multisignature output
// identified by (amount, globalIndex) was spent by this candidate block.
func (s *State) AddSpentMultisignature(amount, globalIndex uint64) {
	s.SpentMultisignatureGlobalIdx = append(s.SpentMultisignatureGlobalIdx, MultisignatureOutputID{
		Amount:      amount,
		GlobalIndex: globalIndex,
	})
}

// HasKeyImage reports whether keyImage is already recorded in this
// candidate block's spend set — the within-block double-spend check spec
// Open Question 4 leaves to the caller.
func (s *State) HasKeyImage(keyImage crypto.KeyImage) bool {
	for _, ki := range s.SpentKeyImages {
		if ki == keyImage {
			return true
		}
	}
	return false
}

// HasMultisignature reports whether (amount, globalIndex) is already
// recorded in this candidate block's spend set.
func (s *State) HasMultisignature(amount, globalIndex uint64) bool {
	for _, m := range s.SpentMultisignatureGlobalIdx {
		if m.Amount == amount && m.GlobalIndex == globalIndex {
			return true
		}
	}
	return false
}

// Empty reports whether the state carries no spends at all, the case for
// a block with only a miner transaction.
func (s *State) Empty() bool {
	return len(s.SpentKeyImages) == 0 && len(s.SpentMultisignatureGlobalIdx) == 0
}
