package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Run("Message includes cause", func(t *testing.T) {
		err := New(ProviderError, "geocode request failed", errors.New("connection refused"))
		assert.Equal(t, "[PROVIDER_ERROR] geocode request failed: connection refused", err.Error())
	})

	t.Run("Message without cause", func(t *testing.T) {
		err := Newf(EmptyInput, "location %q is empty", "")
		assert.Equal(t, `[EMPTY_INPUT] location "" is empty`, err.Error())
	})

	t.Run("Matches by code through wrapping", func(t *testing.T) {
		err := fmt.Errorf("origin: %w", New(GeocodingFailed, "unresolved", nil))
		assert.True(t, HasCode(err, GeocodingFailed))
		assert.False(t, HasCode(err, ProviderError))
		assert.Equal(t, GeocodingFailed, CodeOf(err))
	})

	t.Run("Unknown errors map to internal", func(t *testing.T) {
		assert.Equal(t, InternalError, CodeOf(errors.New("boom")))
	})
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code     Code
		expected int
	}{
		{EmptyInput, 400},
		{InvalidRequest, 400},
		{GeocodingFailed, 422},
		{ProviderError, 502},
		{RetrievalOrModelError, 503},
		{InternalError, 500},
		{Code("SOMETHING_ELSE"), 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.code, "x", nil).HTTPStatus())
		})
	}
}
