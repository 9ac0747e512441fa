package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Vasheegaran/ExpenseTrack/internal/errors"
)

// AssertAppError requires err to unwrap to an *AppError carrying code and
// returns it for further checks.
func AssertAppError(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()

	require.Error(t, err, "expected AppError with code %q", code)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr, "expected *AppError, got %T", err)
	assert.Equal(t, code, appErr.Code, "message: %s", appErr.Message)
	return appErr
}

// AssertAppErrorMessage is AssertAppError plus a substring check on the
// client-facing message.
func AssertAppErrorMessage(t *testing.T, err error, code, substr string) {
	t.Helper()

	appErr := AssertAppError(t, err, code)
	assert.Contains(t, appErr.Message, substr)
}

// AssertNoError fails the test immediately if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	require.NoError(t, err)
}
