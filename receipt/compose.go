// Package receipt assembles photo-booth receipt images: two captured
// frames, a logo, a QR code and operator text stacked into a single
// vertical canvas sized for thermal paper.
package receipt

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
)

// Canvas margins, in pixels, added outside of the inter-block gap
// accounting.
const (
	marginTop    = 0
	marginBottom = 8
)

const (
	ruleHeight     = 2  // horizontal rule thickness
	logoGapHeight  = 15 // spacer below the logo rule
	dateGapHeight  = 6  // spacer above the date line
	textPad        = 6  // vertical padding of the operator text block
	datePad        = 2  // vertical padding of the date block
	mainFontSize   = 22
	dateFontSize   = 18
	defaultPaperPx = 576 // 80mm paper at 203 dpi
)

// ErrEncodingFailed is returned when the QR payload cannot be encoded.
var ErrEncodingFailed = errors.New("code encoding failed")

// Layout holds the receipt geometry.  All sizes are in pixels.
type Layout struct {
	PaperWidth    int // total canvas width, e.g. 576 for 80mm paper
	Margin        int // left and right margin
	Gap           int // gap between stacked blocks
	PhotoGap      int // extra spacer between the two photos
	LetterboxPad  int // white padding above and below each photo
	LogoMaxHeight int // logo bounding box height
	CodeMaxWidth  int // QR code is never rendered wider than this
}

// DefaultLayout returns the fixed 80mm receipt geometry.
func DefaultLayout() Layout {
	return Layout{
		PaperWidth:    defaultPaperPx,
		Margin:        7,
		Gap:           4,
		PhotoGap:      8,
		LetterboxPad:  0,
		LogoMaxHeight: 160,
		CodeMaxWidth:  160,
	}
}

// WorkingWidth is the mandatory width of every block: paper width minus the
// margins.
func (l Layout) WorkingWidth() int {
	return l.PaperWidth - 2*l.Margin
}

// Receipt is the content of one receipt.
type Receipt struct {
	Photos      []image.Image // up to two captured frames
	LogoPath    string        // optional, skipped when unreadable
	CodePayload string        // text encoded into the QR block
	Text        string        // operator entered text
	DateText    string        // optional date line
	MainFont    Font
	DateFont    Font
}

// Render builds the ordered block sequence for r and composes it into the
// final receipt canvas.
func (l Layout) Render(r Receipt) (*image.RGBA, error) {
	blocks, err := l.blocks(r)
	if err != nil {
		return nil, err
	}
	return Compose(blocks, l.PaperWidth, l.Margin, l.Gap), nil
}

// blocks produces the canonical block order: logo with a rule, the photos,
// the QR code, a rule, the operator text and the date.  Every block is
// exactly WorkingWidth wide.
func (l Layout) blocks(r Receipt) ([]image.Image, error) {
	ww := l.WorkingWidth()
	var blocks []image.Image

	if logo := LoadLogo(r.LogoPath, ww, l.LogoMaxHeight); logo != nil {
		blocks = append(blocks,
			CenterOn(ww, logo),
			Rule(ww, ruleHeight),
			Spacer(ww, logoGapHeight),
		)
	}

	for i, photo := range r.Photos {
		if i >= 2 {
			break // receipts carry at most two frames
		}
		if i == 1 && l.PhotoGap > 0 {
			blocks = append(blocks, Spacer(ww, l.PhotoGap))
		}
		ph := FitWidth(photo, ww)
		if l.LetterboxPad > 0 {
			ph = Letterbox(ph, ww, l.LetterboxPad)
		}
		blocks = append(blocks, ph)
	}

	code, err := CodeBlock(r.CodePayload, l.CodeMaxWidth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	blocks = append(blocks,
		CenterOn(ww, code),
		Rule(ww, ruleHeight),
		RenderText(r.Text, ww, r.MainFont, textPad),
	)

	if r.DateText != "" {
		blocks = append(blocks,
			Spacer(ww, dateGapHeight),
			RenderText(r.DateText, ww, r.DateFont, datePad),
		)
	}
	slog.Debug("receipt blocks assembled", "blocks", len(blocks), "working_width", ww)
	return blocks, nil
}

// Compose stacks same-width blocks onto a white canvas of paperWidth,
// left-aligned at x = margin, separated by gap pixels with no gap after the
// last block.  Blocks wider than paperWidth-2*margin are the caller's bug:
// they must be normalised before composition.
func Compose(blocks []image.Image, paperWidth, margin, gap int) *image.RGBA {
	totalH := marginTop + marginBottom
	for _, b := range blocks {
		totalH += b.Bounds().Dy()
	}
	if n := len(blocks); n > 1 {
		totalH += gap * (n - 1)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, paperWidth, totalH))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	y := marginTop
	for _, b := range blocks {
		h := b.Bounds().Dy()
		r := image.Rect(margin, y, margin+b.Bounds().Dx(), y+h)
		draw.Draw(canvas, r, b, b.Bounds().Min, draw.Src)
		y += h + gap
	}
	return canvas
}
