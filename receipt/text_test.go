package receipt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderText_width(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"single line", "Hello"},
		{"multiline", "line one\n\nline three"},
		{"wraps", strings.Repeat("word ", 40)},
		{"wide glyphs", "사진 부스에서 인사드립니다"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderText(tt.text, 562, fallbackFont, 6)
			assert.Equal(t, 562, got.Bounds().Dx(), "block width must match the request exactly")
		})
	}
}

func TestRenderText_height(t *testing.T) {
	lineH := int(float64(fallbackFont.Size) * lineSpacing)

	t.Run("empty text is padding only", func(t *testing.T) {
		got := RenderText("", 562, fallbackFont, 6)
		assert.Equal(t, 12, got.Bounds().Dy())
	})
	t.Run("blank lines are preserved", func(t *testing.T) {
		got := RenderText("a\n\nb", 562, fallbackFont, 6)
		assert.Equal(t, 12+3*lineH, got.Bounds().Dy())
	})
	t.Run("long input wraps to more lines", func(t *testing.T) {
		one := RenderText("word", 562, fallbackFont, 6)
		many := RenderText(strings.Repeat("word ", 60), 562, fallbackFont, 6)
		assert.Greater(t, many.Bounds().Dy(), one.Bounds().Dy())
	})
}

func TestWrapLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		limit int
		want  []string
	}{
		{"fits", "short line", 20, []string{"short line"}},
		{"wraps on words", "one two three four", 9, []string{"one two", "three", "four"}},
		{"blank", "", 10, []string{""}},
		{"whitespace only", "   ", 10, []string{""}},
		{"overlong word broken at the wrap column", "incomprehensibilities ok", 10,
			[]string{"incomprehe", "nsibilitie", "s ok"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wrapLine(tt.line, tt.limit))
		})
	}
}

func TestWrapText_longRun(t *testing.T) {
	// an unbroken 100-rune run must come out as lines that all fit the
	// wrap column, so nothing is drawn past the work surface
	lines := wrapText(strings.Repeat("M", 100), 51)
	var total int
	for _, line := range lines {
		assert.LessOrEqual(t, len([]rune(line)), 51, line)
		total += len([]rune(line))
	}
	assert.Equal(t, 100, total, "no characters lost in wrapping")
}

func TestMaxLineChars(t *testing.T) {
	assert.Equal(t, 51, maxLineChars(562, 22), "22px font averages 11px per glyph")
	assert.Equal(t, 93, maxLineChars(562, 8), "estimate is floored at 6px per glyph")
	assert.Equal(t, 1, maxLineChars(4, 22), "never below one character")
}
