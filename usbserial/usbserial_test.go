package usbserial

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/boothprint/escpos"
)

// fakePort records everything written to it and can fail a chosen copy.
// Copies are counted by spotting the initialisation command that starts
// each transmission.
type fakePort struct {
	buf        bytes.Buffer
	copySeen   int
	failOnCopy int // 0 means never fail
	closed     int
	drained    int
}

func (f *fakePort) Write(p []byte) (int, error) {
	if bytes.Equal(p, escpos.Init()) {
		f.copySeen++
	}
	if f.failOnCopy != 0 && f.copySeen >= f.failOnCopy {
		return 0, errors.New("device gone")
	}
	return f.buf.Write(p)
}

func (f *fakePort) Close() error { f.closed++; return nil }

func (f *fakePort) Drain() error { f.drained++; return nil }

func testPrinter(port *fakePort) *Printer {
	return &Printer{open: func(device string, baud int) (io.WriteCloser, error) {
		return port, nil
	}}
}

func TestPrinter_Print(t *testing.T) {
	frame := bytes.Repeat([]byte{0xaa}, 100)
	port := &fakePort{}
	p := testPrinter(port)

	res, err := p.Print(context.Background(), Job{
		Frame:     frame,
		Device:    "/dev/ttyACM0",
		ChunkSize: 32,
		FeedLines: 1,
		Cut:       true,
		Copies:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Succeeded: 1, Requested: 1}, res)
	assert.Equal(t, 1, port.closed)
	assert.Equal(t, 1, port.drained)

	var want bytes.Buffer
	want.Write(escpos.Init())
	want.Write(escpos.AlignCenter())
	want.Write(escpos.DefaultLineSpacing())
	want.Write(frame)
	want.Write(escpos.Feed(1))
	want.Write(escpos.PartialCut())
	assert.Equal(t, want.Bytes(), port.buf.Bytes(), "wire byte sequence")
}

func TestPrinter_Print_multiCopyAbort(t *testing.T) {
	// five copies requested, the device dies during the third: two copies
	// succeed and no further attempt is made
	port := &fakePort{failOnCopy: 3}
	p := testPrinter(port)

	res, err := p.Print(context.Background(), Job{
		Frame:  []byte{0x01, 0x02, 0x03},
		Device: "/dev/ttyACM0",
		Copies: 5,
	})
	require.Error(t, err)
	assert.Equal(t, Result{Succeeded: 2, Requested: 5}, res)
	assert.Equal(t, 3, port.copySeen, "no 4th or 5th transmission")
	assert.ErrorContains(t, err, "copy 3/5")
	assert.Equal(t, 3, port.closed, "the port is closed even on failure")
}

func TestPrinter_Print_emptyFrame(t *testing.T) {
	p := testPrinter(&fakePort{})
	res, err := p.Print(context.Background(), Job{Device: "/dev/ttyACM0", Copies: 2})
	assert.ErrorIs(t, err, ErrEmptyFrame)
	assert.Equal(t, Result{Succeeded: 0, Requested: 2}, res)
}

func TestPrinter_Print_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := testPrinter(&fakePort{})
	res, err := p.Print(ctx, Job{Frame: []byte{1}, Device: "/dev/ttyACM0"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Succeeded)
}

func TestPrinter_Print_chunking(t *testing.T) {
	// chunked writes must reassemble to the original frame
	frame := bytes.Repeat([]byte{0x55}, 5000)
	port := &fakePort{}
	p := testPrinter(port)
	_, err := p.Print(context.Background(), Job{Frame: frame, Device: "/dev/ttyACM0"})
	require.NoError(t, err)
	assert.Contains(t, port.buf.String(), string(frame))
}

func TestJob_withDefaults(t *testing.T) {
	j := Job{}.withDefaults()
	assert.Equal(t, DefaultBaudRate, j.BaudRate)
	assert.Equal(t, DefaultChunkSize, j.ChunkSize)
	assert.Equal(t, 1, j.Copies)
	assert.Zero(t, j.FeedLines, "feed lines are not defaulted here")
}

func TestProbe(t *testing.T) {
	t.Run("override wins", func(t *testing.T) {
		a := Probe("/dev/ttyACM9")
		assert.True(t, a.Available())
		assert.Equal(t, "/dev/ttyACM9", a.Device)
	})
	t.Run("unavailable has a reason", func(t *testing.T) {
		a := Availability{Reason: ErrNoDevice}
		assert.False(t, a.Available())
		assert.Contains(t, a.String(), "unavailable")
	})
}

func TestCandidatePatterns(t *testing.T) {
	// patterns exist for the supported platforms and are absolute paths
	for _, p := range CandidatePatterns() {
		assert.True(t, len(p) > 0 && p[0] == '/', p)
	}
}
