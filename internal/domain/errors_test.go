package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrValidation,
		ErrUnavailable,
		ErrStorageUnavailable,
		ErrThrottled,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b,
					"sentinels should be distinct: %v vs %v", a, b)
			}
		}
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name        string
		entity      string
		id          string
		expectedMsg string
	}{
		{
			name:        "with entity and ID",
			entity:      "quote",
			id:          "Motivation",
			expectedMsg: `quote "Motivation" not found`,
		},
		{
			name:        "with entity only",
			entity:      "quote",
			id:          "",
			expectedMsg: "quote not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNotFoundError(tt.entity, tt.id)

			assert.EqualError(t, err, tt.expectedMsg)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		message     string
		expectedMsg string
	}{
		{
			name:        "with field",
			field:       "text",
			message:     "must not be empty",
			expectedMsg: "validation failed for text: must not be empty",
		},
		{
			name:        "without field",
			field:       "",
			message:     "payload must be an array",
			expectedMsg: "validation failed: payload must be an array",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message)

			assert.EqualError(t, err, tt.expectedMsg)
			assert.ErrorIs(t, err, ErrValidation)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestUnavailableError(t *testing.T) {
	err := NewUnavailableError("quote-feed", "HTTP 502")
	assert.EqualError(t, err, `service "quote-feed" unavailable: HTTP 502`)
	assert.True(t, IsUnavailable(err))

	bare := NewUnavailableError("quote-feed", "")
	assert.EqualError(t, bare, `service "quote-feed" unavailable`)
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("save", "quotes", cause)

	assert.EqualError(t, err, `storage save "quotes": disk full`)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsStorageUnavailable(err))
	assert.False(t, IsUnavailable(err))
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", NewNotFoundError("quote", "x"), IsNotFound, true},
		{"validation", NewValidationError("text", "empty"), IsValidation, true},
		{"unavailable", NewUnavailableError("feed", "down"), IsUnavailable, true},
		{"storage", NewStorageError("load", "quotes", nil), IsStorageUnavailable, true},
		{"throttled", fmt.Errorf("sync: %w", ErrThrottled), IsThrottled, true},
		{"mismatch", NewValidationError("text", "empty"), IsNotFound, false},
		{"nil", nil, IsValidation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestErrorWrappingChain(t *testing.T) {
	base := NewValidationError("category", "must not be empty")
	wrapped := fmt.Errorf("adding quote: %w", base)
	double := fmt.Errorf("handler: %w", wrapped)

	assert.True(t, IsValidation(double))

	var validationErr *ValidationError
	require.ErrorAs(t, double, &validationErr)
	assert.Equal(t, "category", validationErr.Field)
}
