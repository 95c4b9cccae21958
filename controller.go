package boothprint

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"github.com/rusq/boothprint/escpos"
	"github.com/rusq/boothprint/halftone"
	"github.com/rusq/boothprint/receipt"
	"github.com/rusq/boothprint/storage"
	"github.com/rusq/boothprint/usbserial"
)

// printerIface is the transport contract used by the controller.
type printerIface interface {
	Print(ctx context.Context, job usbserial.Job) (usbserial.Result, error)
}

// publisherIface is the hosted session contract used by the controller.
type publisherIface interface {
	PublishSession(ctx context.Context, sessionID string, photos []image.Image) (string, error)
}

// Controller exposes the booth operations to any front end: Capture,
// ComposeAndPrint and Reset.  It owns the session state and the transport
// capability, which is probed once at construction time.
type Controller struct {
	cfg       Config
	sess      *Session
	printer   printerIface
	publisher publisherIface
	avail     usbserial.Availability

	mainFont receipt.Font
	dateFont receipt.Font
}

// Option is the controller option setter.
type Option func(*Controller)

// WithPrinter overrides the transport.
func WithPrinter(p printerIface) Option {
	return func(c *Controller) { c.printer = p }
}

// WithPublisher sets the hosted session publisher.
func WithPublisher(p publisherIface) Option {
	return func(c *Controller) { c.publisher = p }
}

// NewController builds the controller from the configuration, loading fonts
// and probing the printer device.
func NewController(cfg Config, opt ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		sess:     NewSession(),
		printer:  usbserial.New(),
		avail:    usbserial.Probe(cfg.Device),
		mainFont: receipt.LoadFont(cfg.FontPath, cfg.FontSize),
		dateFont: receipt.LoadFont(cfg.FontPath, cfg.DateFontSize),
	}
	if cfg.Storage.Enabled() {
		if cl, err := storage.New(cfg.Storage.BaseURL, cfg.Storage.ServiceKey,
			storage.WithBucket(cfg.Storage.Bucket)); err == nil {
			c.publisher = &storage.Publisher{
				Client:       cl,
				ViewBaseURL:  cfg.Storage.ViewURL,
				InstagramURL: cfg.Storage.InstagramURL,
				LogoURL:      cfg.Storage.LogoURL,
			}
		}
	}
	for _, fn := range opt {
		fn(c)
	}
	slog.Info("controller ready", "transport", c.avail.String())
	return c
}

// Session returns the current session.
func (c *Controller) Session() *Session { return c.sess }

// Availability returns the transport capability resolved at startup.
func (c *Controller) Availability() usbserial.Availability { return c.avail }

// Capture adds a frame to the current session.
func (c *Controller) Capture(img image.Image) error {
	return c.sess.Capture(img)
}

// Reset starts the session over.
func (c *Controller) Reset() {
	c.sess.Reset()
}

// PrintRequest parameterises one ComposeAndPrint call.
type PrintRequest struct {
	Text     string // operator entered text
	DateText string // optional date line
	Copies   int    // overrides Config.Copies when positive
	NoPrint  bool   // compose, save and publish only
}

// PrintOutcome is the result of ComposeAndPrint.  A transmission failure
// after the receipt was saved does not void the outcome: Printed and
// PrintErr carry the partial result.
type PrintOutcome struct {
	SessionID   string
	ReceiptPath string           // saved composite receipt
	PageURL     string           // hosted session page, empty when not published
	Printed     usbserial.Result // zero when printing was skipped
	PrintErr    error
}

// ComposeAndPrint composes the receipt from the captured session, saves it
// as a lossless PNG, publishes the session when a publisher is configured,
// then halftones, encodes and transmits it.  Composition or save errors are
// fatal; a transport error is reported in the outcome.
func (c *Controller) ComposeAndPrint(ctx context.Context, req PrintRequest) (*PrintOutcome, error) {
	if !c.sess.Ready() {
		return nil, ErrNotReady
	}
	out := &PrintOutcome{SessionID: c.sess.ID()}

	payload := c.sessionPageURL()
	if c.publisher != nil {
		url, err := c.publisher.PublishSession(ctx, c.sess.ID(), c.sess.Frames())
		if err != nil {
			return nil, fmt.Errorf("publishing session %s: %w", c.sess.ID(), err)
		}
		payload = url
	}
	out.PageURL = payload

	composed, err := c.cfg.Layout.Render(receipt.Receipt{
		Photos:      c.sess.Frames(),
		LogoPath:    c.cfg.LogoPath,
		CodePayload: payload,
		Text:        req.Text,
		DateText:    req.DateText,
		MainFont:    c.mainFont,
		DateFont:    c.dateFont,
	})
	if err != nil {
		return nil, err
	}

	if out.ReceiptPath, err = c.save(composed); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "receipt saved", "path", out.ReceiptPath, "session", out.SessionID)

	if req.NoPrint {
		return out, nil
	}
	if !c.avail.Available() {
		out.PrintErr = c.avail.Reason
		return out, nil
	}

	frame, err := c.encode(composed)
	if err != nil {
		return nil, err
	}
	copies := req.Copies
	if copies <= 0 {
		copies = c.cfg.Copies
	}
	out.Printed, out.PrintErr = c.printer.Print(ctx, usbserial.Job{
		Frame:     frame,
		Device:    c.avail.Device,
		BaudRate:  c.cfg.BaudRate,
		ChunkSize: c.cfg.ChunkSize,
		FeedLines: c.cfg.FeedLines,
		Cut:       c.cfg.Cut,
		Copies:    copies,
	})
	if out.PrintErr == nil {
		if err := c.sess.markPrinted(); err != nil {
			slog.WarnContext(ctx, "session state", "error", err)
		}
	}
	return out, nil
}

// encode halftones the composed receipt and packs it into the raster
// frame.
func (c *Controller) encode(composed image.Image) ([]byte, error) {
	bw, err := halftone.Convert(composed, c.cfg.Layout.PaperWidth, halftone.Photo, c.cfg.Tone)
	if err != nil {
		return nil, fmt.Errorf("halftoning: %w", err)
	}
	return escpos.NewBitmap(bw, 0).EncodeFrame(), nil
}

// save writes the composed receipt to the output directory.
func (c *Controller) save(img image.Image) (string, error) {
	if err := os.MkdirAll(c.cfg.OutDir, 0755); err != nil {
		return "", err
	}
	name := "RECEIPT_" + time.Now().Format("20060102_1504") + ".png"
	path := filepath.Join(c.cfg.OutDir, name)
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("saving receipt: %w", err)
	}
	return path, nil
}

// sessionPageURL is the QR payload used when no publisher is configured.
func (c *Controller) sessionPageURL() string {
	if c.cfg.Storage.ViewURL != "" {
		return storage.NormalizeBaseURL(c.cfg.Storage.ViewURL) + "?sid=" + c.sess.ID()
	}
	return c.sess.ID()
}
