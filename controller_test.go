package boothprint

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/boothprint/usbserial"
)

type fakeXport struct {
	jobs []usbserial.Job
	res  usbserial.Result
	err  error
}

func (f *fakeXport) Print(_ context.Context, job usbserial.Job) (usbserial.Result, error) {
	f.jobs = append(f.jobs, job)
	return f.res, f.err
}

type fakePublisher struct {
	sessions []string
	url      string
	err      error
}

func (f *fakePublisher) PublishSession(_ context.Context, id string, photos []image.Image) (string, error) {
	f.sessions = append(f.sessions, id)
	return f.url, f.err
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.OutDir = t.TempDir()
	cfg.Device = "/dev/ttyACM0" // skip discovery
	return cfg
}

func readyController(t *testing.T, cfg Config, opt ...Option) *Controller {
	t.Helper()
	c := NewController(cfg, opt...)
	require.NoError(t, c.Capture(image.NewGray(image.Rect(0, 0, 160, 120))))
	require.NoError(t, c.Capture(image.NewGray(image.Rect(0, 0, 160, 120))))
	return c
}

func TestController_ComposeAndPrint(t *testing.T) {
	xport := &fakeXport{res: usbserial.Result{Succeeded: 1, Requested: 1}}
	c := readyController(t, testConfig(t), WithPrinter(xport))

	out, err := c.ComposeAndPrint(context.Background(), PrintRequest{Text: "hello"})
	require.NoError(t, err)
	require.Len(t, xport.jobs, 1)
	job := xport.jobs[0]
	assert.Equal(t, "/dev/ttyACM0", job.Device)
	assert.Equal(t, 1, job.Copies)
	assert.NotEmpty(t, job.Frame)
	assert.Equal(t, []byte{0x1d, 0x76, 0x30, 0x00}, job.Frame[:4], "raster frame header")

	assert.FileExists(t, out.ReceiptPath)
	assert.NoError(t, out.PrintErr)
	assert.Equal(t, SessionPrinted, c.Session().State())
}

func TestController_ComposeAndPrint_notReady(t *testing.T) {
	c := NewController(testConfig(t), WithPrinter(&fakeXport{}))
	_, err := c.ComposeAndPrint(context.Background(), PrintRequest{})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestController_ComposeAndPrint_noPrint(t *testing.T) {
	xport := &fakeXport{}
	c := readyController(t, testConfig(t), WithPrinter(xport))

	out, err := c.ComposeAndPrint(context.Background(), PrintRequest{NoPrint: true})
	require.NoError(t, err)
	assert.Empty(t, xport.jobs, "transport must not be touched")
	assert.FileExists(t, out.ReceiptPath)
	assert.Equal(t, SessionReady, c.Session().State(), "not printed, still ready")
}

func TestController_ComposeAndPrint_transportFailure(t *testing.T) {
	xport := &fakeXport{
		res: usbserial.Result{Succeeded: 2, Requested: 5},
		err: errors.New("device gone"),
	}
	c := readyController(t, testConfig(t), WithPrinter(xport))

	out, err := c.ComposeAndPrint(context.Background(), PrintRequest{Copies: 5})
	require.NoError(t, err, "the saved receipt survives a transport failure")
	assert.FileExists(t, out.ReceiptPath)
	assert.Error(t, out.PrintErr)
	assert.Equal(t, usbserial.Result{Succeeded: 2, Requested: 5}, out.Printed)
	assert.Equal(t, SessionReady, c.Session().State(), "not marked printed on failure")
}

func TestController_ComposeAndPrint_publishes(t *testing.T) {
	pub := &fakePublisher{url: "https://view.example/view.html?sid=abc"}
	c := readyController(t, testConfig(t), WithPrinter(&fakeXport{}), WithPublisher(pub))

	out, err := c.ComposeAndPrint(context.Background(), PrintRequest{NoPrint: true})
	require.NoError(t, err)
	assert.Equal(t, []string{c.Session().ID()}, pub.sessions)
	assert.Equal(t, pub.url, out.PageURL, "the QR payload is the published page")
}

func TestController_ComposeAndPrint_publishFailureIsFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("upload failed")}
	c := readyController(t, testConfig(t), WithPrinter(&fakeXport{}), WithPublisher(pub))

	_, err := c.ComposeAndPrint(context.Background(), PrintRequest{NoPrint: true})
	assert.Error(t, err)
}

func TestController_sessionPageURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.ViewURL = "https://view.example/view.html/"
	c := NewController(cfg, WithPrinter(&fakeXport{}))
	assert.Equal(t, "https://view.example/view.html?sid="+c.Session().ID(), c.sessionPageURL())
}

func TestConfig_FromEnv(t *testing.T) {
	t.Setenv("BOOTH_DEVICE", "/dev/ttyUSB7")
	t.Setenv("BOOTH_COPIES", "3")
	t.Setenv("BOOTH_GAMMA", "0.8")
	cfg := DefaultConfig().FromEnv()
	assert.Equal(t, "/dev/ttyUSB7", cfg.Device)
	assert.Equal(t, 3, cfg.Copies)
	assert.InDelta(t, 0.8, cfg.Tone.Gamma, 1e-9)
	assert.Equal(t, 576, cfg.Layout.PaperWidth, "untouched defaults survive")
}
