package halftone

import (
	"image"
	"image/color"
	"sort"

	"github.com/makeworld-the-better-one/dither/v2"
	"golang.org/x/image/draw"
)

// DitherFunc converts an image into a black and white image.
type DitherFunc func(img image.Image) image.Image

var ditherFunctions = map[string]DitherFunc{
	"floyd-steinberg": DFloydSteinberg,
	"bayer":           DBayer,
	"no-dither":       DitherThresholdFn(DefaultThreshold),
}

// DitherFunction returns a registered dither function by name.  The empty
// name resolves to the default.
func DitherFunction(name string) (DitherFunc, bool) {
	if name == "" {
		return DFloydSteinberg, true
	}
	fn, ok := ditherFunctions[name]
	if !ok {
		return nil, false
	}
	return fn, true
}

// AllDitherFunctions returns a sorted list of all available dither function
// names.
func AllDitherFunctions() []string {
	keys := make([]string, 0, len(ditherFunctions))
	for k := range ditherFunctions {
		keys = append(keys, k)
	}
	sort.Strings(keys) // sort for consistent order
	return keys
}

var bw = []color.Color{color.Black, color.White}

// DFloydSteinberg applies Floyd-Steinberg error diffusion dithering,
// propagating the quantisation error to neighbouring pixels.  Preferred for
// photographic gradients.  It uses the standard library ditherer, which
// draws straight into a paletted image.
func DFloydSteinberg(img image.Image) image.Image {
	dithered := image.NewPaletted(img.Bounds(), bw)
	draw.FloydSteinberg.Draw(dithered, dithered.Bounds(), img, image.Point{})
	return dithered
}

// DBayer applies ordered dithering with an 8x8 Bayer matrix.  Faster than
// error diffusion but introduces a visible repeating pattern.  The ditherer
// refuses paletted destinations, so it draws into an RGBA image that holds
// only palette colours.
func DBayer(img image.Image) image.Image {
	dithered := image.NewRGBA(img.Bounds())
	d := dither.NewDitherer(bw)
	d.Mapper = dither.Bayer(8, 8, 1.0) // 8x8 Bayer matrix
	d.Draw(dithered, dithered.Bounds(), img, image.Point{})
	return dithered
}

// DitherThresholdFn returns a hard thresholding function: pixels darker
// than threshold become black, the rest white.
func DitherThresholdFn(threshold uint8) DitherFunc {
	return func(img image.Image) image.Image {
		if threshold == 0 {
			threshold = DefaultThreshold // default threshold for dark pixels
		}
		trg := image.NewPaletted(img.Bounds(), bw)
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
				if PixelBit(img, x-img.Bounds().Min.X, y-img.Bounds().Min.Y, threshold) {
					trg.SetColorIndex(x, y, 0) // black
				} else {
					trg.SetColorIndex(x, y, 1) // white
				}
			}
		}
		return trg
	}
}
