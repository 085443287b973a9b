package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := NewValidationError("Missing name")

	assert.True(t, errors.Is(err, ErrorValidation))
	assert.False(t, errors.Is(err, ErrorNotFound))
	assert.Equal(t, "Missing name", err.Error())

	wrapped := fmt.Errorf("create: %w", err)
	assert.True(t, errors.Is(wrapped, ErrorValidation))

	var ve *ValidationError
	assert.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, "Missing name", ve.Msg)
}
