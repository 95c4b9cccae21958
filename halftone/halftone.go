// Package halftone converts colour images into 1-bit monochrome bitmaps
// suitable for line-oriented thermal printers.
package halftone

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

const (
	// DefaultThreshold is the default threshold for dark pixels.
	DefaultThreshold = 128
	// MinWidth is the smallest raster width that still packs into a whole
	// byte per row.
	MinWidth = 8
)

var ErrWidthTooSmall = errors.New("target width is too small")

// Profile selects the binarisation strategy.  Photographic content is
// dithered to preserve tonal gradation, text and machine-readable codes are
// hard-thresholded for legibility.
type Profile int

const (
	Photo Profile = iota
	Text
	Code
)

func (p Profile) String() string {
	switch p {
	case Photo:
		return "photo"
	case Text:
		return "text"
	case Code:
		return "code"
	}
	return fmt.Sprintf("Profile(%d)", int(p))
}

// Params is the tone correction parameter bundle.  Zero values disable the
// respective correction step.
type Params struct {
	AutocontrastCutoff float64 // percentile clipped from each histogram tail
	Gamma              float64 // power-law correction, 1.0 is neutral
	Contrast           float64 // linear enhancement factor, 1.0 is neutral
	Brightness         float64 // linear enhancement factor, 1.0 is neutral
	UnsharpRadius      float64 // unsharp mask blur radius
	UnsharpPercent     int     // unsharp mask amount
	UnsharpThreshold   int     // unsharp mask noise threshold
	Sharpness          float64 // additional sharpening factor, 1.0 is neutral
	OrderedDither      bool    // use ordered dithering for the photo profile
	Threshold          uint8   // binarisation cutoff for text/code profiles
}

// DefaultParams returns the print quality profile tuned for photographic
// receipts on 203 dpi thermal paper.
func DefaultParams() Params {
	return Params{
		AutocontrastCutoff: 2,
		Gamma:              0.90,
		Contrast:           1.08,
		Brightness:         1.00,
		UnsharpRadius:      1.0,
		UnsharpPercent:     120,
		UnsharpThreshold:   3,
		Sharpness:          1.35,
		OrderedDither:      false,
		Threshold:          160,
	}
}

const neutralEps = 1e-3

// AlignWidth rounds w down to a multiple of 8 so that every scanline packs
// into whole bytes.
func AlignWidth(w int) int {
	return w / 8 * 8
}

// Convert runs the full tone mapping chain on src and binarises the result
// according to the profile.  The returned image is a black and white
// paletted image whose width is AlignWidth(targetWidth), height scaled
// proportionally.  Convert is a pure function, src is not modified.
func Convert(src image.Image, targetWidth int, profile Profile, p Params) (image.Image, error) {
	if src == nil {
		return nil, errors.New("nil source image")
	}
	g := toGray(imaging.Grayscale(src))

	if targetWidth > 0 {
		tw := AlignWidth(targetWidth)
		if tw < MinWidth {
			return nil, fmt.Errorf("%w: %d", ErrWidthTooSmall, targetWidth)
		}
		if g.Bounds().Dx() != tw {
			g = toGray(imaging.Resize(g, tw, 0, imaging.Lanczos))
		}
	}

	if p.AutocontrastCutoff > 0 {
		g = autocontrast(g, p.AutocontrastCutoff)
	}
	if neutralEps < abs(p.Gamma-1.0) && p.Gamma != 0 {
		applyLUT(g, gammaLUT(p.Gamma))
	}
	if neutralEps < abs(p.Contrast-1.0) && p.Contrast != 0 {
		g = toGray(imaging.AdjustContrast(g, (p.Contrast-1.0)*100))
	}
	if neutralEps < abs(p.Brightness-1.0) && p.Brightness != 0 {
		g = toGray(imaging.AdjustBrightness(g, (p.Brightness-1.0)*100))
	}
	if p.UnsharpPercent > 0 && p.UnsharpRadius > 0 {
		g = unsharpMask(g, p.UnsharpRadius, p.UnsharpPercent, p.UnsharpThreshold)
	}
	if neutralEps < abs(p.Sharpness-1.0) && p.Sharpness != 0 {
		g = sharpen(g, p.Sharpness)
	}

	switch profile {
	case Photo:
		if p.OrderedDither {
			return DBayer(g), nil
		}
		return DFloydSteinberg(g), nil
	case Text, Code:
		return DitherThresholdFn(p.Threshold)(g), nil
	default:
		return nil, fmt.Errorf("unknown profile: %v", profile)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	g := image.NewGray(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(g, g.Bounds(), img, img.Bounds().Min, draw.Src)
	return g
}

// PixelBit reports whether the pixel at (x, y) is dark, i.e. "on" for a
// thermal printer.  Coordinates outside the image bounds are white.
func PixelBit(img image.Image, x, y int, threshold uint8) bool {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if y >= img.Bounds().Dy() || x >= img.Bounds().Dx() {
		return false // padded area
	}
	c := img.At(img.Bounds().Min.X+x, img.Bounds().Min.Y+y)
	return ColorToGray(c) < threshold
}

func ColorToGray(c color.Color) uint8 {
	if gray, ok := c.(color.Gray); ok {
		return gray.Y
	}
	r, g, b, _ := c.RGBA()
	gray := (299*r + 587*g + 114*b) / 1000
	return uint8(gray >> 8)
}
