// Package usbserial transmits encoded raster frames to an ESC/POS receipt
// printer attached as a USB CDC serial device.
package usbserial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"go.bug.st/serial"

	"github.com/rusq/boothprint/escpos"
)

// Defaults for the transport parameters.  Most USB CDC printers ignore the
// baud rate, but it is set to the customary value anyway.
const (
	DefaultBaudRate  = 115200
	DefaultChunkSize = 2048
	DefaultFeedLines = 1
	readTimeout      = 2 * time.Second
)

var (
	// ErrNoDevice is returned when no candidate serial device is found.
	ErrNoDevice = errors.New("no usb printer device found")
	// ErrEmptyFrame is returned for a job without an encoded frame.
	ErrEmptyFrame = errors.New("empty raster frame")
)

// CandidatePatterns returns the device path glob patterns for the current
// platform.
func CandidatePatterns() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/dev/tty.usbmodem*", "/dev/tty.usbserial*"}
	case "linux":
		return []string{"/dev/ttyACM*", "/dev/ttyUSB*"}
	default:
		return nil
	}
}

// Discover returns the first device matching the platform candidate
// patterns, in lexical order.
func Discover() (string, error) {
	var candidates []string
	for _, pattern := range CandidatePatterns() {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return "", fmt.Errorf("bad device pattern %q: %w", pattern, err)
		}
		candidates = append(candidates, matches...)
	}
	if len(candidates) == 0 {
		return "", ErrNoDevice
	}
	sort.Strings(candidates)
	return candidates[0], nil
}

// Availability is the result of probing for a printer device, resolved once
// at startup.
type Availability struct {
	Device string
	Reason error
}

// Available reports whether a device was found.
func (a Availability) Available() bool {
	return a.Reason == nil
}

func (a Availability) String() string {
	if a.Reason != nil {
		return fmt.Sprintf("printer unavailable: %v", a.Reason)
	}
	return "printer on " + a.Device
}

// Probe resolves the printer device.  A non-empty override wins over
// discovery.
func Probe(override string) Availability {
	if override != "" {
		return Availability{Device: override}
	}
	dev, err := Discover()
	if err != nil {
		return Availability{Reason: err}
	}
	return Availability{Device: dev}
}

// Job is one print request: an already encoded raster frame plus the
// transport parameters.  Jobs are constructed per request and never reused.
type Job struct {
	Frame     []byte // encoded raster frame, opaque to the transport
	Device    string // explicit device path, discovered when empty
	BaudRate  int
	ChunkSize int
	FeedLines int
	Cut       bool
	Copies    int
}

// withDefaults fills the zero values in.
func (j Job) withDefaults() Job {
	if j.BaudRate == 0 {
		j.BaudRate = DefaultBaudRate
	}
	if j.ChunkSize <= 0 {
		j.ChunkSize = DefaultChunkSize
	}
	if j.Copies <= 0 {
		j.Copies = 1
	}
	return j
}

// Result reports how many copies were transmitted out of the requested
// count.
type Result struct {
	Succeeded int
	Requested int
}

// openFunc opens the serial device.  Overridable in tests.
type openFunc func(device string, baud int) (io.WriteCloser, error)

// Printer owns the serial device for the duration of one job.  Jobs are
// synchronous and must be serialised by the caller, concurrent Print calls
// on the same device are not supported.
type Printer struct {
	open openFunc
}

// New returns a Printer that opens real serial devices.
func New() *Printer {
	return &Printer{open: openSerial}
}

// Print transmits job.Frame job.Copies times.  Each copy is an independent
// transmission with its own open and close of the device.  On the first
// failed copy the remaining copies are abandoned and the count of copies
// transmitted so far is reported alongside the error.  There are no
// retries.
func (p *Printer) Print(ctx context.Context, job Job) (Result, error) {
	job = job.withDefaults()
	res := Result{Requested: job.Copies}
	if len(job.Frame) == 0 {
		return res, ErrEmptyFrame
	}

	device := job.Device
	if device == "" {
		var err error
		if device, err = Discover(); err != nil {
			return res, err
		}
	}

	for i := 0; i < job.Copies; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := p.printOne(device, job); err != nil {
			return res, fmt.Errorf("copy %d/%d: %w", i+1, job.Copies, err)
		}
		res.Succeeded++
		slog.Debug("copy transmitted", "device", device, "copy", i+1, "of", job.Copies)
	}
	return res, nil
}

func (p *Printer) printOne(device string, job Job) error {
	port, err := p.open(device, job.BaudRate)
	if err != nil {
		return fmt.Errorf("open %s: %w", device, err)
	}
	defer port.Close()
	return transmit(port, job)
}

// transmit writes the full per-copy command sequence: initialise, centre
// alignment, default line spacing, the density hint, the frame in chunks,
// the trailing feeds and an optional partial cut.
func transmit(w io.Writer, job Job) error {
	for _, cmd := range [][]byte{
		escpos.Init(), escpos.AlignCenter(), escpos.DefaultLineSpacing(), escpos.Density(),
	} {
		if err := writeAll(w, cmd); err != nil {
			return err
		}
	}
	for off := 0; off < len(job.Frame); off += job.ChunkSize {
		end := off + job.ChunkSize
		if end > len(job.Frame) {
			end = len(job.Frame)
		}
		if err := writeAll(w, job.Frame[off:end]); err != nil {
			return fmt.Errorf("frame at offset %d: %w", off, err)
		}
	}
	if err := writeAll(w, escpos.Feed(job.FeedLines)); err != nil {
		return err
	}
	if job.Cut {
		if err := writeAll(w, escpos.PartialCut()); err != nil {
			return err
		}
	}
	return flush(w)
}

func writeAll(w io.Writer, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

// flush drains the transmit buffer when the port supports it.
func flush(w io.Writer) error {
	if d, ok := w.(interface{ Drain() error }); ok {
		return d.Drain()
	}
	return nil
}

func openSerial(device string, baud int) (io.WriteCloser, error) {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}
