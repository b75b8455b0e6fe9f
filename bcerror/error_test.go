package bcerror

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodeStringer(t *testing.T) {
	tests := []struct {
		in   ErrorCode
		want string
	}{
		{ErrBadAddress, "ErrBadAddress"},
		{ErrDuplicateKeyImage, "ErrDuplicateKeyImage"},
		{ErrDoubleSpend, "ErrDoubleSpend"},
		{ErrWrongMajorForHeight, "ErrWrongMajorForHeight"},
		{ErrOperationCancelled, "ErrOperationCancelled"},
		{ErrorCode(0xffff), "Unknown ErrorCode (65535)"},
	}
	for _, test := range tests {
		require.Equal(t, test.want, test.in.String())
	}
}

func TestRuleError(t *testing.T) {
	tests := []struct {
		in   RuleError
		want string
	}{
		{RuleError{Description: "duplicate block"}, "duplicate block"},
		{NewRuleError(ErrBlockTooBig, "block exceeds 2x median"), "block exceeds 2x median"},
	}
	for _, test := range tests {
		require.Equal(t, test.want, test.in.Error())
	}
}

func TestInternalErrorWrapsAndUnwraps(t *testing.T) {
	base := fmt.Errorf("disk full")
	wrapped := NewInternalError("pushBlock", base)
	require.ErrorIs(t, wrapped, base)
	require.Contains(t, wrapped.Error(), "pushBlock")
}

func TestNewInternalErrorNilIsNil(t *testing.T) {
	require.NoError(t, NewInternalError("noop", nil))
}

func TestAssertError(t *testing.T) {
	message := "abc 123"
	err := AssertError(message)
	require.Equal(t, fmt.Sprintf("assertion failed: %s", message), err.Error())
}

func TestAddBlockResultVariants(t *testing.T) {
	require.Equal(t, AddedToMain, Main().Kind)
	require.Equal(t, AddedToAlternative, Alternative().Kind)
	require.Equal(t, AddedToAlternativeAndSwitched, Switched().Kind)
	require.Equal(t, AlreadyExists, Exists().Kind)

	r := RejectedWith(ReasonDuplicateKeyImage)
	require.Equal(t, Rejected, r.Kind)
	require.Equal(t, "DuplicateKeyImage", r.Reason.String())
}
