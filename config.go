// Package boothprint turns a pair of captured photo-booth frames into a
// printed thermal receipt: it composes the receipt image, halftones it,
// encodes the ESC/POS raster frame and drives the USB serial printer.  The
// hosted session publisher makes the frames reachable through the QR code
// on the receipt.
package boothprint

import (
	"github.com/rusq/osenv/v2"

	"github.com/rusq/boothprint/halftone"
	"github.com/rusq/boothprint/receipt"
	"github.com/rusq/boothprint/usbserial"
)

// Config is the full pipeline configuration, built once at startup from
// defaults plus environment overrides and passed into the controller.  The
// pipeline itself has no ambient state.
type Config struct {
	Layout receipt.Layout // receipt geometry
	Tone   halftone.Params

	LogoPath     string
	FontPath     string
	FontSize     int
	DateFontSize int

	// transport
	Device    string // explicit serial device, discovered when empty
	BaudRate  int
	ChunkSize int
	FeedLines int
	Cut       bool
	Copies    int

	OutDir string // where composed receipts are saved

	Storage StorageConfig
}

// StorageConfig configures the hosted session publisher.  Publishing is
// disabled when BaseURL or ServiceKey is empty.
type StorageConfig struct {
	BaseURL      string
	ServiceKey   string
	Bucket       string
	ViewURL      string // public session view page
	InstagramURL string
	LogoURL      string
}

// Enabled reports whether the publisher credentials are present.
func (s StorageConfig) Enabled() bool {
	return s.BaseURL != "" && s.ServiceKey != ""
}

// DefaultConfig returns the 80mm receipt defaults.
func DefaultConfig() Config {
	return Config{
		Layout:       receipt.DefaultLayout(),
		Tone:         halftone.DefaultParams(),
		FontSize:     22,
		DateFontSize: 18,
		BaudRate:     usbserial.DefaultBaudRate,
		ChunkSize:    usbserial.DefaultChunkSize,
		FeedLines:    usbserial.DefaultFeedLines,
		Cut:          true,
		Copies:       1,
		OutDir:       "captures",
		Storage: StorageConfig{
			Bucket: "sessions",
		},
	}
}

// FromEnv applies environment variable overrides on top of c and returns
// the result.
func (c Config) FromEnv() Config {
	c.LogoPath = osenv.Value("BOOTH_LOGO", c.LogoPath)
	c.FontPath = osenv.Value("BOOTH_FONT", c.FontPath)
	c.Device = osenv.Value("BOOTH_DEVICE", c.Device)
	c.BaudRate = osenv.Value("BOOTH_BAUD", c.BaudRate)
	c.Copies = osenv.Value("BOOTH_COPIES", c.Copies)
	c.Cut = osenv.Value("BOOTH_CUT", c.Cut)
	c.FeedLines = osenv.Value("BOOTH_FEED", c.FeedLines)
	c.OutDir = osenv.Value("BOOTH_OUTDIR", c.OutDir)

	c.Tone.Gamma = osenv.Value("BOOTH_GAMMA", c.Tone.Gamma)
	c.Tone.Contrast = osenv.Value("BOOTH_CONTRAST", c.Tone.Contrast)
	c.Tone.Brightness = osenv.Value("BOOTH_BRIGHTNESS", c.Tone.Brightness)

	c.Storage.BaseURL = osenv.Value("SUPABASE_URL", c.Storage.BaseURL)
	c.Storage.ServiceKey = osenv.Value("SUPABASE_SERVICE_KEY", c.Storage.ServiceKey)
	c.Storage.Bucket = osenv.Value("SUPABASE_BUCKET", c.Storage.Bucket)
	c.Storage.ViewURL = osenv.Value("BOOTH_VIEW_URL", c.Storage.ViewURL)
	c.Storage.InstagramURL = osenv.Value("BOOTH_INSTAGRAM_URL", c.Storage.InstagramURL)
	c.Storage.LogoURL = osenv.Value("BOOTH_LOGO_URL", c.Storage.LogoURL)
	return c
}
