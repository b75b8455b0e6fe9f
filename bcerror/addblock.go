package bcerror

// AddBlockResultKind is the outcome variant of pushing a raw block into the
// cache, spec §6 addBlock.
type AddBlockResultKind int

const (
	// AddedToMain extends the active tip.
	AddedToMain AddBlockResultKind = iota
	// AddedToAlternative is a side-chain extension with no reorg.
	AddedToAlternative
	// AddedToAlternativeAndSwitched means a reorg happened.
	AddedToAlternativeAndSwitched
	// AlreadyExists means the block hash is already known.
	AlreadyExists
	// Rejected means the block failed validation; Reason names why.
	Rejected
)

// RejectReason enumerates why addBlock rejected a block. These map onto
// ErrorCode values but are kept distinct since not every ErrorCode is a
// possible addBlock rejection and not every rejection reason is a general
// rule error (e.g. DeserializationFailed never reaches rule validation).
type RejectReason int

const (
	ReasonNone RejectReason = iota
	ReasonDeserializationFailed
	ReasonWrongVersion
	ReasonBadProofOfWork
	ReasonWrongMajorForHeight
	ReasonParentNotFound
	ReasonTimestampTooFarInFuture
	ReasonTimestampTooFarInPast
	ReasonBlockTooBig
	ReasonRewardMismatch
	ReasonDuplicateKeyImage
	ReasonDoubleSpend
	ReasonBadRingSignature
	ReasonInvalidInput
	ReasonInvalidOutput
	ReasonUnlockTimeOverflow
)

var rejectReasonStrings = map[RejectReason]string{
	ReasonNone:                    "None",
	ReasonDeserializationFailed:   "DeserializationFailed",
	ReasonWrongVersion:            "WrongVersion",
	ReasonBadProofOfWork:          "BadProofOfWork",
	ReasonWrongMajorForHeight:     "WrongMajorForHeight",
	ReasonParentNotFound:          "ParentNotFound",
	ReasonTimestampTooFarInFuture: "TimestampTooFarInFuture",
	ReasonTimestampTooFarInPast:   "TimestampTooFarInPast",
	ReasonBlockTooBig:             "BlockTooBig",
	ReasonRewardMismatch:          "RewardMismatch",
	ReasonDuplicateKeyImage:       "DuplicateKeyImage",
	ReasonDoubleSpend:             "DoubleSpend",
	ReasonBadRingSignature:        "BadRingSignature",
	ReasonInvalidInput:            "InvalidInput",
	ReasonInvalidOutput:           "InvalidOutput",
	ReasonUnlockTimeOverflow:      "UnlockTimeOverflow",
}

func (r RejectReason) String() string {
	if s, ok := rejectReasonStrings[r]; ok {
		return s
	}
	return "UnknownRejectReason"
}

// AddBlockResult is the full result of a pushBlock/addBlock call.
type AddBlockResult struct {
	Kind   AddBlockResultKind
	Reason RejectReason
}

// Main reports AddedToMain.
func Main() AddBlockResult { return AddBlockResult{Kind: AddedToMain} }

// Alternative reports AddedToAlternative.
func Alternative() AddBlockResult { return AddBlockResult{Kind: AddedToAlternative} }

// Switched reports AddedToAlternativeAndSwitched.
func Switched() AddBlockResult { return AddBlockResult{Kind: AddedToAlternativeAndSwitched} }

// Exists reports AlreadyExists.
func Exists() AddBlockResult { return AddBlockResult{Kind: AlreadyExists} }

// RejectedWith builds a Rejected result carrying reason.
func RejectedWith(reason RejectReason) AddBlockResult {
	return AddBlockResult{Kind: Rejected, Reason: reason}
}
