package receipt

import (
	"image"
	"image/draw"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Horizontal headroom on the work surface so a glyph never clips while
// drawing, and the slack added to each measured line width.
const (
	textSafetyPx  = 4
	measureSlack  = 2
	minGlyphWidth = 6
	lineSpacing   = 1.3
)

// RenderText renders text centered on a white block of exactly the given
// width, with pad pixels above and below.  Input newlines are preserved and
// long lines are word-wrapped to an estimated character count before being
// centered by measured width.  An empty string yields a 2*pad tall block.
func RenderText(text string, width int, fnt Font, pad int) image.Image {
	lines := wrapText(text, maxLineChars(width, fnt.Size))

	lineH := int(float64(fnt.Size) * lineSpacing)
	totalH := 2*pad + lineH*len(lines)

	// draw on a slightly wider surface, then crop to the exact width
	work := image.NewRGBA(image.Rect(0, 0, width+textSafetyPx, totalH))
	draw.Draw(work, work.Bounds(), image.White, image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  work,
		Src:  image.Black,
		Face: fnt.Face,
	}
	ascent := fnt.Face.Metrics().Ascent.Ceil()
	y := pad
	for _, line := range lines {
		if line != "" {
			tw := font.MeasureString(fnt.Face, line).Ceil() + measureSlack
			x := (width - tw) / 2
			if x < 0 {
				x = 0
			}
			d.Dot = fixed.P(x, y+ascent)
			d.DrawString(line)
		}
		y += lineH
	}

	out := image.NewRGBA(image.Rect(0, 0, width, totalH))
	draw.Draw(out, out.Bounds(), work, image.Point{}, draw.Src)
	return out
}

// maxLineChars estimates how many characters fit into width pixels, assuming
// an average glyph no narrower than minGlyphWidth.
func maxLineChars(width, fontSize int) int {
	avg := fontSize / 2
	if avg < minGlyphWidth {
		avg = minGlyphWidth
	}
	n := width / avg
	if n < 1 {
		n = 1
	}
	return n
}

// wrapText splits text on newlines, then greedily word-wraps each line to at
// most limit characters.  Blank input lines are kept as blank output lines.
// An empty string produces no lines at all.
func wrapText(text string, limit int) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, wrapLine(line, limit)...)
	}
	return out
}

func wrapLine(line string, limit int) []string {
	var words []string
	for _, w := range strings.Fields(line) {
		words = append(words, breakWord(w, limit)...)
	}
	if len(words) == 0 {
		return []string{""}
	}
	var (
		lines []string
		cur   = words[0]
	)
	for _, w := range words[1:] {
		if utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(w) <= limit {
			cur += " " + w
		} else {
			lines = append(lines, cur)
			cur = w
		}
	}
	return append(lines, cur)
}

// breakWord splits a word longer than limit runes into limit-sized pieces,
// so that no line can outgrow the work surface and get its right edge
// cropped away.
func breakWord(w string, limit int) []string {
	if utf8.RuneCountInString(w) <= limit {
		return []string{w}
	}
	runes := []rune(w)
	parts := make([]string, 0, (len(runes)+limit-1)/limit)
	for len(runes) > limit {
		parts = append(parts, string(runes[:limit]))
		runes = runes[limit:]
	}
	return append(parts, string(runes))
}
