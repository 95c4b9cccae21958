package escpos

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeFrame unpacks a raster frame back into a boolean grid.
func decodeFrame(t *testing.T, frame []byte) (width, height int, bits [][]bool) {
	t.Helper()
	require.GreaterOrEqual(t, len(frame), 8, "frame too short for a header")
	require.Equal(t, []byte{GS, 'v', '0', 0x00}, frame[:4], "command prefix")

	rowBytes := int(frame[4]) | int(frame[5])<<8
	height = int(frame[6]) | int(frame[7])<<8
	width = rowBytes * 8
	require.Len(t, frame, 8+rowBytes*height, "payload size")

	data := frame[8:]
	bits = make([][]bool, height)
	for y := 0; y < height; y++ {
		bits[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			bits[y][x] = data[y*rowBytes+x/8]&(1<<(7-x%8)) != 0
		}
	}
	return width, height, bits
}

func checkers(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			} // else black (zero value)
		}
	}
	return img
}

func TestBitmap_EncodeFrame_header(t *testing.T) {
	b := NewBitmap(image.NewGray(image.Rect(0, 0, 560, 100)), 0)
	frame := b.EncodeFrame()
	// 560/8 = 70 row bytes, 100 rows
	assert.Equal(t, []byte{0x1d, 0x76, 0x30, 0x00, 70, 0, 100, 0}, frame[:8])
	assert.Len(t, frame, 8+70*100)
}

func TestBitmap_EncodeFrame_roundTrip(t *testing.T) {
	src := checkers(64, 12)
	b := NewBitmap(src, 0)
	w, h, bits := decodeFrame(t, b.EncodeFrame())
	require.Equal(t, 64, w)
	require.Equal(t, 12, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			assert.Equal(t, b.At(x, y), bits[y][x], "pixel (%d,%d)", x, y)
		}
	}
}

func TestBitmap_EncodeFrame_unalignedWidth(t *testing.T) {
	// 13px wide all-black bitmap: 2 row bytes, the trailing partial byte
	// must have its 3 low bits zero.
	b := NewBitmap(image.NewGray(image.Rect(0, 0, 13, 2)), 0)
	require.Equal(t, 2, b.RowBytes())
	frame := b.EncodeFrame()
	assert.Equal(t, []byte{2, 0, 2, 0}, frame[4:8])
	for y := 0; y < 2; y++ {
		assert.EqualValues(t, 0b11111111, frame[8+y*2])
		assert.EqualValues(t, 0b11111000, frame[8+y*2+1])
	}
}

func TestBitmap_At_outOfRange(t *testing.T) {
	b := NewBitmap(image.NewGray(image.Rect(0, 0, 8, 8)), 0) // all black
	assert.True(t, b.At(0, 0))
	assert.False(t, b.At(-1, 0))
	assert.False(t, b.At(8, 0))
	assert.False(t, b.At(0, 8))
}

func TestNewBitmap_threshold(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	img.Pix = []uint8{0, 100, 170, 255}
	tests := []struct {
		name      string
		threshold uint8
		want      []bool
	}{
		{"default", 0, []bool{true, true, false, false}},
		{"text cutoff", 180, []bool{true, true, true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBitmap(img, tt.threshold)
			for x, want := range tt.want {
				assert.Equal(t, want, b.At(x, 0), "pixel %d", x)
			}
		})
	}
}

func TestCommands(t *testing.T) {
	assert.Equal(t, []byte{0x1b, 0x40}, Init())
	assert.Equal(t, []byte{0x1b, 0x61, 0x01}, AlignCenter())
	assert.Equal(t, []byte{0x1b, 0x32}, DefaultLineSpacing())
	assert.Equal(t, []byte{0x1d, 0x56, 0x42, 0x00}, PartialCut())
	assert.Empty(t, Density())
	assert.Equal(t, []byte{0x0a, 0x0a, 0x0a}, Feed(3))
	assert.Nil(t, Feed(0))
}
