// Package escpos implements the ESC/POS raster bit-image wire format and
// the small set of control commands needed to drive a receipt printer.
package escpos

import (
	"bytes"
	"image"
	"image/color"
)

// Command lead-in bytes.
const (
	ESC byte = 0x1b
	GS  byte = 0x1d
	LF  byte = 0x0a
)

// Init returns the printer initialisation command (ESC @).
func Init() []byte {
	return []byte{ESC, '@'}
}

// AlignCenter returns the centre alignment command (ESC a 1).
func AlignCenter() []byte {
	return []byte{ESC, 'a', 0x01}
}

// DefaultLineSpacing returns the default line spacing command (ESC 2).
func DefaultLineSpacing() []byte {
	return []byte{ESC, '2'}
}

// Density is a placeholder for a vendor print density hint.  Known density
// commands (ESC 7, GS ( E) are model specific and misbehave on some
// EPSON-compatible mechanisms, so no sequence is emitted.
func Density() []byte {
	return nil
}

// Feed returns n line feeds.
func Feed(n int) []byte {
	if n <= 0 {
		return nil
	}
	return bytes.Repeat([]byte{LF}, n)
}

// PartialCut returns the partial cut command (GS V B 0).
func PartialCut() []byte {
	return []byte{GS, 'V', 'B', 0x00}
}

// Bitmap is a monochrome bitmap, one boolean per pixel, true meaning black.
type Bitmap struct {
	width  int
	height int
	bits   []bool // row-major
}

// NewBitmap samples img into a monochrome bitmap.  Pixels darker than
// threshold are black; threshold 0 selects the default of 128.
func NewBitmap(img image.Image, threshold uint8) *Bitmap {
	if threshold == 0 {
		threshold = 128
	}
	bounds := img.Bounds()
	b := &Bitmap{
		width:  bounds.Dx(),
		height: bounds.Dy(),
	}
	b.bits = make([]bool, b.width*b.height)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			b.bits[y*b.width+x] = colorToGray(img.At(bounds.Min.X+x, bounds.Min.Y+y)) < threshold
		}
	}
	return b
}

func (b *Bitmap) Width() int  { return b.width }
func (b *Bitmap) Height() int { return b.height }

// At reports whether the pixel at (x, y) is black.  Out of range
// coordinates are white.
func (b *Bitmap) At(x, y int) bool {
	if x < 0 || b.width <= x || y < 0 || b.height <= y {
		return false
	}
	return b.bits[y*b.width+x]
}

// RowBytes returns the number of bytes per packed scanline.
func (b *Bitmap) RowBytes() int {
	return (b.width + 7) / 8
}

// EncodeFrame packs the bitmap into a raster bit-image transfer at 1x
// density: GS v 0 0, the row byte count and row count as little-endian
// 16-bit values, followed by the scanlines packed most significant bit
// first.  A trailing partial byte has its low order bits zero padded.  The
// compositor pre-aligns widths to a multiple of 8, but the packer handles
// unaligned widths all the same.
func (b *Bitmap) EncodeFrame() []byte {
	rowBytes := b.RowBytes()
	frame := make([]byte, 0, 8+rowBytes*b.height)
	frame = append(frame, GS, 'v', '0', 0x00)
	frame = append(frame, byte(rowBytes), byte(rowBytes>>8))
	frame = append(frame, byte(b.height), byte(b.height>>8))

	for y := 0; y < b.height; y++ {
		row := make([]byte, rowBytes)
		for x := 0; x < b.width; x++ {
			if b.bits[y*b.width+x] {
				row[x/8] |= 1 << (7 - x%8)
			}
		}
		frame = append(frame, row...)
	}
	return frame
}

func colorToGray(c color.Color) uint8 {
	if gray, ok := c.(color.Gray); ok {
		return gray.Y
	}
	r, g, b, _ := c.RGBA()
	gray := (299*r + 587*g + 114*b) / 1000
	return uint8(gray >> 8)
}
