package stream

import (
	"context"
	"log/slog"

	"github.com/MagnusDot/Agent/pkg/runtime"
)

// genericErrorText is what clients see when a run fails for a reason
// whose details belong in the logs.
const genericErrorText = "An unexpected error occurred"

// runState tracks where a stream stands in its lifecycle.
type runState int

const (
	stateInit runState = iota
	stateStreaming
	stateClosed
	stateClosedOnError
	stateCancelled
)

func (s runState) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateStreaming:
		return "streaming"
	case stateClosed:
		return "closed"
	case stateClosedOnError:
		return "closed_on_error"
	case stateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// EmitFunc delivers one frame to the client. The HTTP layer writes and
// flushes; an error means the client is gone.
type EmitFunc func(Frame) error

// Driver consumes one run's event channel and emits the resulting SSE
// frame sequence. Frames go out in event order with no buffering, the
// start frame precedes the first visible content, and the end frame
// closes every opened stream regardless of how the run terminated.
type Driver struct {
	threadID   string
	state      *State
	tracker    *Tracker
	translator *Translator
	emit       EmitFunc
	log        *slog.Logger
	phase      runState
}

func NewDriver(input runtime.RunInput, emit EmitFunc, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	state := &State{}
	tracker := NewTracker()
	return &Driver{
		threadID:   input.ThreadID,
		state:      state,
		tracker:    tracker,
		translator: NewTranslator(input.Message, state, tracker, log),
		emit:       emit,
		log:        log,
		phase:      stateInit,
	}
}

// Run drains events until the channel closes, the context is cancelled,
// or emission fails. It then finishes the frame sequence: exactly one
// stream_end iff anything visible was emitted.
func (d *Driver) Run(ctx context.Context, events <-chan runtime.Event) error {
	d.phase = stateStreaming

	var emitErr error
loop:
	for {
		select {
		case <-ctx.Done():
			d.phase = stateCancelled
			break loop
		case event, ok := <-events:
			if !ok {
				d.phase = stateClosed
				break loop
			}
			if err := d.handle(event); err != nil {
				d.phase = stateCancelled
				emitErr = err
				break loop
			}
			if d.phase != stateStreaming {
				break loop
			}
		}
	}

	if d.phase == stateClosed && d.tracker.Pending() > 0 {
		d.log.Warn("stream ended with unresolved tool calls",
			"pending", d.tracker.Pending())
	}
	d.log.Debug("stream driver finished",
		"state", d.phase, "opened", d.state.Opened())

	if err := d.finish(); err != nil && emitErr == nil {
		emitErr = err
	}
	return emitErr
}

// handle routes one event by channel and emits the resulting frames.
// Plain text in updates is left to the tokens channel, so updates only
// contribute tool, interrupt and error frames.
func (d *Driver) handle(event runtime.Event) error {
	var frames []Frame
	switch event.Channel {
	case runtime.ChannelUpdates:
		frames = d.translator.TranslateUpdate(event.Update)
	case runtime.ChannelTokens:
		frames = d.translator.TranslateToken(event.Token)
	case runtime.ChannelCustom:
		frames = d.translator.TranslateCustom(event.Custom)
	case runtime.ChannelError:
		d.log.Error("agent stream failed", "error", event.Err)
		frames = append(openingFrames(d.state), ErrorFrame(genericErrorText))
		d.phase = stateClosedOnError
	default:
		d.log.Warn("dropping event from unknown channel", "channel", event.Channel)
	}

	for _, frame := range frames {
		if err := d.emit(frame); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) finish() error {
	if !d.state.Opened() {
		return nil
	}
	return d.emit(EndFrame(d.threadID))
}
