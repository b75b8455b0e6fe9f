// Package bcerror defines the typed error taxonomy and the addBlock result
// variant of spec §7: the core never logs and discards an error silently,
// every failed operation returns a typed result. Modeled on
// daglabs-btcd/blockdag's ErrorCode/RuleError pattern (see error_test.go)
// extended with the kinds spec §7 names.
package bcerror

import "fmt"

// ErrorCode identifies a class of rule violation.
type ErrorCode int

const (
	// Input errors: user- or peer-supplied data violates schema or
	// numeric invariants.
	ErrBadAddress ErrorCode = iota
	ErrBadPaymentID
	ErrBadTransactionExtra
	ErrWrongAmount
	ErrSumOverflow
	ErrZeroDestination
	ErrMixinCountTooBig
	ErrFeeTooSmall
	ErrTransactionSizeTooBig

	// State errors: raised before any mutation.
	ErrNotInitialized
	ErrAlreadyInitialized
	ErrWrongState
	ErrWrongVersion
	ErrWrongPassword

	// Validation errors.
	ErrBadProofOfWork
	ErrBadRingSignature
	ErrDuplicateKeyImage
	ErrDoubleSpend
	ErrOutputLocked
	ErrInvalidGlobalIndex
	ErrRewardMismatch
	ErrBlockTooBig
	ErrTimestampRejected
	ErrParentNotFound
	ErrAlternativeChainTooWeak

	// addBlock-specific rejection reasons not already covered above.
	ErrDeserializationFailed
	ErrWrongMajorForHeight
	ErrDuplicateInput
	ErrInvalidInput
	ErrInvalidOutput
	ErrUnlockTimeOverflow

	// Cancellation.
	ErrOperationCancelled

	numErrorCodes
)

var errorCodeStrings = map[ErrorCode]string{
	ErrBadAddress:              "ErrBadAddress",
	ErrBadPaymentID:            "ErrBadPaymentID",
	ErrBadTransactionExtra:     "ErrBadTransactionExtra",
	ErrWrongAmount:             "ErrWrongAmount",
	ErrSumOverflow:             "ErrSumOverflow",
	ErrZeroDestination:         "ErrZeroDestination",
	ErrMixinCountTooBig:        "ErrMixinCountTooBig",
	ErrFeeTooSmall:             "ErrFeeTooSmall",
	ErrTransactionSizeTooBig:   "ErrTransactionSizeTooBig",
	ErrNotInitialized:          "ErrNotInitialized",
	ErrAlreadyInitialized:      "ErrAlreadyInitialized",
	ErrWrongState:              "ErrWrongState",
	ErrWrongVersion:            "ErrWrongVersion",
	ErrWrongPassword:           "ErrWrongPassword",
	ErrBadProofOfWork:          "ErrBadProofOfWork",
	ErrBadRingSignature:        "ErrBadRingSignature",
	ErrDuplicateKeyImage:       "ErrDuplicateKeyImage",
	ErrDoubleSpend:             "ErrDoubleSpend",
	ErrOutputLocked:            "ErrOutputLocked",
	ErrInvalidGlobalIndex:      "ErrInvalidGlobalIndex",
	ErrRewardMismatch:          "ErrRewardMismatch",
	ErrBlockTooBig:             "ErrBlockTooBig",
	ErrTimestampRejected:       "ErrTimestampRejected",
	ErrParentNotFound:          "ErrParentNotFound",
	ErrAlternativeChainTooWeak: "ErrAlternativeChainTooWeak",
	ErrDeserializationFailed:   "ErrDeserializationFailed",
	ErrWrongMajorForHeight:     "ErrWrongMajorForHeight",
	ErrDuplicateInput:          "ErrDuplicateInput",
	ErrInvalidInput:            "ErrInvalidInput",
	ErrInvalidOutput:           "ErrInvalidOutput",
	ErrUnlockTimeOverflow:      "ErrUnlockTimeOverflow",
	ErrOperationCancelled:      "ErrOperationCancelled",
}

// String returns the human-readable name of the error code.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation along with a human-readable
// description of why the rule failed.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

// Error satisfies the error interface.
func (e RuleError) Error() string {
	return e.Description
}

// NewRuleError creates a RuleError given a set of arguments.
func NewRuleError(code ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: code, Description: desc}
}

// InternalError wraps an unexpected storage/IO failure. Storage errors are
// always retried at the caller's discretion rather than treated as a rule
// violation.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("bcerror: internal error during %s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// NewInternalError wraps err as an InternalError naming the failing
// operation, or returns nil if err is nil.
func NewInternalError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &InternalError{Op: op, Err: err}
}

// OperationCancelled is returned by long-running operations aborted via a
// cancellation token; it is always propagated, never swallowed.
var OperationCancelled = RuleError{ErrorCode: ErrOperationCancelled, Description: "operation cancelled"}

// AssertError identifies an error that indicates an internal code
// consistency issue and should be treated as a critical and unrecoverable
// error.
type AssertError string

func (e AssertError) Error() string {
	return fmt.Sprintf("assertion failed: %s", string(e))
}
