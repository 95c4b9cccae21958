package receipt

import (
	"image"
	"image/draw"
	"log/slog"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
)

// qrModulePx is the pixel size of one QR module before downscaling.
const qrModulePx = 9

// FitWidth scales img to the given width preserving the aspect ratio.  The
// height is the truncated proportional value, so an 800x600 frame fitted to
// 562 comes out 562x421.  Images already at the target width are returned
// unchanged.
func FitWidth(img image.Image, width int) image.Image {
	b := img.Bounds()
	if b.Dx() == width {
		return img
	}
	height := b.Dy() * width / b.Dx()
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// Letterbox pads img with white bands of pad pixels above and below, on a
// canvas of the given width.
func Letterbox(img image.Image, width, pad int) image.Image {
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, width, b.Dy()+2*pad))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	r := image.Rect(0, pad, b.Dx(), pad+b.Dy())
	draw.Draw(canvas, r, img, b.Min, draw.Src)
	return canvas
}

// LoadLogo reads the logo at path, scales it down to fit within maxW x maxH
// and flattens any transparency onto white.  The logo is never scaled up.
// A missing or undecodable file is not an error: the receipt simply renders
// without a logo.
func LoadLogo(path string, maxW, maxH int) image.Image {
	if path == "" {
		return nil
	}
	logo, err := imaging.Open(path)
	if err != nil {
		slog.Warn("logo skipped", "path", path, "error", err)
		return nil
	}
	b := logo.Bounds()
	scale := min3(
		float64(maxW)/float64(b.Dx()),
		float64(maxH)/float64(b.Dy()),
		1.0,
	)
	if scale < 1.0 {
		w := int(float64(b.Dx()) * scale)
		h := int(float64(b.Dy()) * scale)
		logo = imaging.Resize(logo, w, h, imaging.Lanczos)
	}

	// flatten alpha onto white so transparent regions do not print black
	flat := image.NewRGBA(logo.Bounds())
	draw.Draw(flat, flat.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), logo, logo.Bounds().Min, draw.Over)
	return flat
}

// CenterOn places img horizontally centered on a white canvas of the given
// width.
func CenterOn(width int, img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() >= width {
		return img
	}
	canvas := image.NewRGBA(image.Rect(0, 0, width, b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	x := (width - b.Dx()) / 2
	draw.Draw(canvas, image.Rect(x, 0, x+b.Dx(), b.Dy()), img, b.Min, draw.Src)
	return canvas
}

// Rule renders a one pixel black horizontal line centered in a white strip
// of the given height.
func Rule(width, height int) image.Image {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	y := height / 2
	draw.Draw(canvas, image.Rect(0, y, width, y+1), image.Black, image.Point{}, draw.Src)
	return canvas
}

// Spacer renders a white block of the given size.
func Spacer(width, height int) image.Image {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	return canvas
}

// CodeBlock renders payload as a QR code at error correction level Q.  The
// code is rendered at qrModulePx pixels per module and scaled down when it
// exceeds targetWidth, never up.
func CodeBlock(payload string, targetWidth int) (image.Image, error) {
	q, err := qrcode.New(payload, qrcode.High)
	if err != nil {
		return nil, err
	}
	// negative size renders at |size| pixels per module
	img := q.Image(-qrModulePx)
	if img.Bounds().Dx() > targetWidth {
		img = FitWidth(img, targetWidth)
	}
	return img, nil
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
