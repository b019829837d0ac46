package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"valid", "Bearer abc123", "abc123", nil},
		{"lowercase scheme", "bearer abc123", "abc123", nil},
		{"uppercase scheme", "BEARER abc123", "abc123", nil},
		{"extra spaces before token", "Bearer   abc123", "abc123", nil},
		{"token with inner space kept", "Bearer abc 123", "abc 123", nil},
		{"missing", "", "", ErrMissingToken},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", ErrMalformedToken},
		{"scheme only", "Bearer", "", ErrMalformedToken},
		{"scheme and space", "Bearer ", "", ErrMalformedToken},
		{"token without scheme", "abc123", "", ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ExtractBearerToken(tt.header)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
				assert.True(t, errors.Is(err, ErrUnauthorized))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
