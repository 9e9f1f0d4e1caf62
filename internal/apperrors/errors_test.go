package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, CodeOf(NotFound("candidate", "abc")))
	assert.Equal(t, ErrCodeValidation, CodeOf(InvalidInput("sql", "not a query")))
	assert.Equal(t, ErrCodeConflict, CodeOf(New(ErrCodeConflict, "already approved")))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))

	// Codes survive wrapping with fmt.
	wrapped := fmt.Errorf("outer: %w", NotFound("candidate", "abc"))
	assert.Equal(t, ErrCodeNotFound, CodeOf(wrapped))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrCodeUnavailable, "failed to update candidate status")

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "UNAVAILABLE")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "failed to update candidate status", MessageOf(err))
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NotFound("x", "1"), ErrCodeNotFound))
	assert.False(t, HasCode(NotFound("x", "1"), ErrCodeConflict))
}
