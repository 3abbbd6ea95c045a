package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicatesMatchType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"authorization", NewAuthorizationError("no access"), IsAuthorization},
		{"validation", NewValidationError("bad mode"), IsValidation},
		{"conflict", NewConflictError("already assigned"), IsConflict},
		{"not found", NewNotFoundError("ticket not found"), IsNotFound},
		{"unavailable", NewUnavailableError("redis down", errors.New("dial tcp")), IsUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.pred(tt.err))
			assert.False(t, IsAuthorization(errors.New("plain")))
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("assign agents: %w", NewConflictError("agent already assigned"))
	assert.True(t, IsConflict(err))
	assert.False(t, IsValidation(err))
}

func TestUnavailableWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUnavailableError("role lookup failed", cause)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dependency_unavailable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAsReturnsNilForPlainErrors(t *testing.T) {
	assert.Nil(t, As(errors.New("plain")))
	require.NotNil(t, As(NewValidationError("x")))
}
