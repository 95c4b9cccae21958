package boothprint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
)

// MaxFrames is the number of captured frames per session.
const MaxFrames = 2

var (
	// ErrSessionFull is returned by Capture when both frames are taken.
	ErrSessionFull = errors.New("session already holds all frames")
	// ErrNotReady is returned when printing is requested before both
	// frames are captured.
	ErrNotReady = errors.New("session is not ready to print")
)

// SessionState represents the state of a booth session.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionCapturing
	SessionReady
	SessionPrinted
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionCapturing:
		return "capturing"
	case SessionReady:
		return "ready"
	case SessionPrinted:
		return "printed"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// fsm events for session state transitions.
const (
	sessEvtCapture = "capture"
	sessEvtReady   = "ready"
	sessEvtPrint   = "print"
	sessEvtReset   = "reset"
)

/*
	 +--> capturing --> ready --> printed
	 |        |           |          |
	idle <----+-----------+----------+   (reset)
*/
var sessionFsmEvts = []fsm.EventDesc{
	{
		Name: sessEvtCapture,
		Src:  []string{SessionIdle.String(), SessionCapturing.String()},
		Dst:  SessionCapturing.String(),
	},
	{
		Name: sessEvtReady,
		Src:  []string{SessionCapturing.String()},
		Dst:  SessionReady.String(),
	},
	{
		Name: sessEvtPrint,
		Src:  []string{SessionReady.String()},
		Dst:  SessionPrinted.String(),
	},
	{
		Name: sessEvtReset,
		Src: []string{
			SessionIdle.String(),
			SessionCapturing.String(),
			SessionReady.String(),
			SessionPrinted.String(),
		},
		Dst: SessionIdle.String(),
	},
}

// Session is one visitor's run through the booth: an identifier and the
// captured frames, driven through idle, capturing, ready and printed
// states.
type Session struct {
	id     string
	frames []image.Image
	state  SessionState
	sm     *fsm.FSM
}

// NewSession creates an idle session with a fresh identifier.
func NewSession() *Session {
	s := &Session{
		id:    newSessionID(),
		state: SessionIdle,
	}
	s.sm = fsm.NewFSM(
		SessionIdle.String(),
		sessionFsmEvts,
		fsm.Callbacks{
			sessEvtCapture: func(_ context.Context, e *fsm.Event) {
				s.state = SessionCapturing
				s.frames = append(s.frames, e.Args[0].(image.Image))
			},
			sessEvtReady: func(context.Context, *fsm.Event) {
				s.state = SessionReady
			},
			sessEvtPrint: func(context.Context, *fsm.Event) {
				s.state = SessionPrinted
			},
			sessEvtReset: func(context.Context, *fsm.Event) {
				s.state = SessionIdle
				s.frames = nil
				s.id = newSessionID()
			},
		},
	)
	return s
}

// newSessionID returns a short hex session identifier.
func newSessionID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])[:10]
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current session state.
func (s *Session) State() SessionState { return s.state }

// Frames returns the captured frames in capture order.
func (s *Session) Frames() []image.Image { return s.frames }

// Ready reports whether both frames are captured.
func (s *Session) Ready() bool {
	return s.state == SessionReady || s.state == SessionPrinted
}

// Capture adds a captured frame to the session.  The session becomes ready
// after MaxFrames captures, and any further capture fails with
// ErrSessionFull until Reset.
func (s *Session) Capture(img image.Image) error {
	if img == nil {
		return errors.New("nil frame")
	}
	if len(s.frames) >= MaxFrames {
		return ErrSessionFull
	}
	if err := s.sm.Event(context.Background(), sessEvtCapture, img); err != nil {
		// the second capture stays in the capturing state
		var noop fsm.NoTransitionError
		if !errors.As(err, &noop) {
			return fmt.Errorf("capture: %w", err)
		}
	}
	if len(s.frames) == MaxFrames {
		if err := s.sm.Event(context.Background(), sessEvtReady); err != nil {
			return err
		}
	}
	slog.Debug("frame captured", "session", s.id, "frames", len(s.frames))
	return nil
}

// markPrinted advances the session past a successful print.
func (s *Session) markPrinted() error {
	return s.sm.Event(context.Background(), sessEvtPrint)
}

// Reset drops the captured frames and issues a new identifier.
func (s *Session) Reset() {
	err := s.sm.Event(context.Background(), sessEvtReset)
	var noop fsm.NoTransitionError
	if err != nil && !errors.As(err, &noop) {
		// reset is valid from every state
		slog.Error("session reset", "error", err)
	}
}
