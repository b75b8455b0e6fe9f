package cryptonote

import "fmt"

// ErrWrongVersion is returned when a decoded block's major version
// exceeds the highest version this engine knows, spec §4.1's
// WrongVersion case — distinct from a generic malformed encoding so the
// protocol coordinator can surface it as its own rejection reason.
var ErrWrongVersion = fmt.Errorf("cryptonote: block major version exceeds maximum")

var (
	errEmptyInput             = fmt.Errorf("cryptonote: input carries no variant")
	errEmptyOutput            = fmt.Errorf("cryptonote: output target carries no variant")
	errSignatureCountMismatch = fmt.Errorf("cryptonote: signature count does not match inputs")
	errParentBlockVersion     = fmt.Errorf("cryptonote: parent block major version exceeds 1: %w", ErrWrongVersion)
	errParentBlockTxCount     = fmt.Errorf("cryptonote: parent block numberOfTransactions below 1")
	errMergeMiningTagMissing  = fmt.Errorf("cryptonote: merge mining tag missing from extra")
	errMerkleBranchTooDeep    = fmt.Errorf("cryptonote: merge mining merkle branch exceeds depth 256")
)

// ErrMergeMiningTagMissing is returned when a major-version>=2 block's
// miner transaction extra does not carry a merge-mining tag, spec §4.1's
// WrongMergeMiningTag case.
var ErrMergeMiningTagMissing = errMergeMiningTagMissing

// ErrMerkleBranchTooDeep is returned when a merge-mining tag's depth
// exceeds 256, spec §4.1's MerkleBranchTooDeep case.
var ErrMerkleBranchTooDeep = errMerkleBranchTooDeep

// ErrUnknownTag is returned when a decoded variant tag byte does not match
// any of the kinds this engine constructs.
type ErrUnknownTag struct {
	Context string
	Tag     byte
}

func (e *ErrUnknownTag) Error() string {
	return fmt.Sprintf("cryptonote: unknown %s tag 0x%02x", e.Context, e.Tag)
}
