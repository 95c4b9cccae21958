package halftone

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// gammaLUT builds a 256-entry power-law lookup table,
// out = 255*(in/255)^(1/gamma).
func gammaLUT(gamma float64) [256]uint8 {
	if gamma < 0.1 {
		gamma = 0.1
	}
	var lut [256]uint8
	for i := range lut {
		v := int(math.Pow(float64(i)/255.0, 1.0/gamma)*255 + 0.5)
		lut[i] = clamp8(v)
	}
	return lut
}

func applyLUT(g *image.Gray, lut [256]uint8) {
	for i, v := range g.Pix {
		g.Pix[i] = lut[v]
	}
}

// autocontrast stretches the histogram of g, clipping cutoff percent of
// pixels from each tail.  Returns g unchanged if the remaining range is
// degenerate.
func autocontrast(g *image.Gray, cutoff float64) *image.Gray {
	var histogram [256]int
	for _, v := range g.Pix {
		histogram[v]++
	}
	total := len(g.Pix)
	if total == 0 {
		return g
	}
	clip := int(float64(total) * cutoff / 100)

	lo, hi := 0, 255
	for n := 0; lo < 255; lo++ {
		n += histogram[lo]
		if n > clip {
			break
		}
	}
	for n := 0; hi > 0; hi-- {
		n += histogram[hi]
		if n > clip {
			break
		}
	}
	if hi <= lo {
		return g
	}
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8((i - lo) * 255 / (hi - lo))
	}
	applyLUT(g, lut)
	return g
}

// unsharpMask amplifies the difference between g and its blurred copy by
// percent, ignoring differences below the noise threshold.
func unsharpMask(g *image.Gray, radius float64, percent, threshold int) *image.Gray {
	blurred := toGray(imaging.Blur(g, radius))
	out := image.NewGray(g.Bounds())
	for i := range g.Pix {
		orig := int(g.Pix[i])
		diff := orig - int(blurred.Pix[i])
		if diff < -threshold || threshold < diff {
			out.Pix[i] = clamp8(orig + diff*percent/100)
		} else {
			out.Pix[i] = uint8(orig)
		}
	}
	return out
}

// sharpen blends g against its blurred copy, extrapolating past the
// original when factor > 1.
func sharpen(g *image.Gray, factor float64) *image.Gray {
	blurred := toGray(imaging.Blur(g, 1.0))
	out := image.NewGray(g.Bounds())
	for i := range g.Pix {
		b := float64(blurred.Pix[i])
		v := b + (float64(g.Pix[i])-b)*factor
		out.Pix[i] = clamp8(int(v + 0.5))
	}
	return out
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
