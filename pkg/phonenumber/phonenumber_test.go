package phonenumber

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already international", "+233241234567", "+233241234567"},
		{"international with separators", "+233 24-123 4567", "+233241234567"},
		{"leading zero national", "0241234567", "+233241234567"},
		{"multiple leading zeros", "00241234567", "+233241234567"},
		{"bare national digits", "241234567", "+233241234567"},
		{"short local number", "2412345", "+2332412345"},
		{"international without plus", "233241234567", "+233241234567"},
		{"spaces and dashes", "024 123 4567", "+233241234567"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"letters only", "call me", ""},
		{"too few digits", "12345", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in, DefaultCountryCode))
		})
	}
}

func TestNormalizeOtherCountry(t *testing.T) {
	assert.Equal(t, "+2348012345678", Normalize("08012345678", "+234"))
}
