package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewNoMatchError("no candidates for drug name")
	assert.Equal(t, "NO_MATCH: no candidates for drug name", err.Error())

	wrapped := NewDependencyError("rxnorm request failed", errors.New("connection refused"))
	assert.Equal(t, "DEPENDENCY: rxnorm request failed: connection refused", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("dial timeout")
	err := NewDependencyTimeoutError("advisor call timed out", cause)
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"invalid input", NewInvalidInputError("empty drug name"), KindInvalidInput},
		{"no match", NewNoMatchError("nothing found"), KindNoMatch},
		{"no packages", NewNoPackagesError("empty set"), KindNoPackages},
		{"circuit open", NewCircuitOpenError("advisor circuit open"), KindCircuitOpen},
		{"cache unavailable", NewCacheUnavailableError("redis down", errors.New("refused")), KindCacheUnavailable},
		{"plain error", errors.New("something"), KindInternal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, KindOf(tc.err))
		})
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("recommend: %w", NewNoPackagesError("directory returned nothing"))
	assert.Equal(t, KindNoPackages, KindOf(err))
}

func TestIsKind(t *testing.T) {
	err := NewCircuitOpenError("probe rejected")
	assert.True(t, IsKind(err, KindCircuitOpen))
	assert.False(t, IsKind(err, KindDependency))
	assert.False(t, IsKind(errors.New("plain"), KindInternal))
}
