package receipt

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/rusq/fontpic"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// Font is a face with its nominal pixel size.  The size drives the line
// height and the per-character width estimate used for wrapping.
type Font struct {
	Face font.Face
	Size int
}

const maxTTFsize = 10 * 1048576 // 10 MB

// fontDPI of 72 makes point size equal pixel size.
const fontDPI = 72

// fallbackFont is used when no usable font file is available, so the
// receipt always renders.
var fallbackFont = Font{Face: fontpic.Face8x16, Size: 16}

// LoadFont loads a TTF or OTF font from filename at the given pixel size.
// When the file is missing or unparseable the embedded bitmap face is
// returned instead, with a warning logged.
func LoadFont(filename string, size int) Font {
	if filename == "" {
		return fallbackFont
	}
	face, err := loadTTF(filename, float64(size), fontDPI)
	if err != nil {
		slog.Warn("falling back to the embedded font", "path", filename, "error", err)
		return fallbackFont
	}
	return Font{Face: face, Size: size}
}

// DefaultFonts loads the operator text and date faces from the same font
// file at their standard sizes.
func DefaultFonts(filename string) (main, date Font) {
	return LoadFont(filename, mainFontSize), LoadFont(filename, dateFontSize)
}

// loadTTF loads a true type font and returns a face with size points.
func loadTTF(filename string, size float64, dpi float64) (font.Face, error) {
	fi, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}
	if maxTTFsize < fi.Size() {
		return nil, errors.New("font file is too large")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", filename, err)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	return face, nil
}
