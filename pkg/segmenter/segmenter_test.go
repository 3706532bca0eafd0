package segmenter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeGSM7(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		parts int
	}{
		{"empty", "", 1},
		{"short", "School closed tomorrow", 1},
		{"exactly one part", strings.Repeat("a", 160), 1},
		{"just over one part", strings.Repeat("a", 161), 2},
		{"two full multiparts", strings.Repeat("a", 306), 2},
		{"three parts", strings.Repeat("a", 307), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Analyze(tt.body)
			assert.Equal(t, tt.parts, info.Parts)
			assert.False(t, info.UCS2)
		})
	}
}

func TestAnalyzeUCS2(t *testing.T) {
	akan := strings.Repeat("ɛ", 70)
	info := Analyze(akan)
	assert.True(t, info.UCS2)
	assert.Equal(t, 1, info.Parts)

	info = Analyze(akan + "ɛ")
	assert.Equal(t, 2, info.Parts)

	// An emoji is two UTF-16 code units.
	info = Analyze("🎓")
	assert.True(t, info.UCS2)
	assert.Equal(t, 2, info.Units)
	assert.Equal(t, 1, info.Parts)
}

func TestCount(t *testing.T) {
	assert.Equal(t, 1, Count("hello"))
	assert.Equal(t, 2, Count(strings.Repeat("x", 200)))
}
