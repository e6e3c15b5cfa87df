package partcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "ab123", "AB123"},
		{"trims whitespace", "  AB123  ", "AB123"},
		{"strips separators", "ab-123.4/x", "AB1234X"},
		{"internal whitespace", "AB 123 X", "AB123X"},
		{"empty", "", ""},
		{"already canonical", "AB123X", "AB123X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("AB123"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("AB_123"))
	assert.False(t, IsValid("AB 123"))
}

func TestNormalizeThenValid(t *testing.T) {
	assert.True(t, IsValid(Normalize(" ab-123 ")))
}
