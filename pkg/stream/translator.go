package stream

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/MagnusDot/Agent/pkg/llms"
	"github.com/MagnusDot/Agent/pkg/runtime"
)

// perMessageErrorText is the fixed message emitted when translating a
// single event fails. The failure never aborts the run.
const perMessageErrorText = "Unexpected error"

// Translator turns runtime events into SSE frames. It holds the run's
// original user message for echo suppression and shares the run's
// State and Tracker with the driver.
type Translator struct {
	input   string
	state   *State
	tracker *Tracker
	log     *slog.Logger

	// EmitMessageText makes plain message text inside updates produce
	// token frames. The streaming driver leaves this off because the
	// same text arrives incrementally on the tokens channel; a
	// consumer without a token channel turns it on.
	EmitMessageText bool
}

func NewTranslator(input string, state *State, tracker *Tracker, log *slog.Logger) *Translator {
	if log == nil {
		log = slog.Default()
	}
	return &Translator{
		input:   input,
		state:   state,
		tracker: tracker,
		log:     log,
	}
}

// TranslateUpdate handles a state-advance notification: an interrupt,
// or a batch of completed messages. A failure while translating one
// message degrades to a generic error frame and the remaining messages
// are still processed.
func (t *Translator) TranslateUpdate(update *runtime.Update) []Frame {
	if update == nil {
		return nil
	}
	if update.Interrupt != nil {
		return t.translateInterrupt(update.Interrupt)
	}

	var frames []Frame
	for _, msg := range update.Messages {
		msgFrames, err := t.translateMessage(msg)
		if err != nil {
			t.log.Warn("failed to translate message", "role", msg.Role, "error", err)
			frames = append(frames, openingFrames(t.state)...)
			if msg.ToolCallID != "" {
				t.tracker.Resolve(msg.ToolCallID)
			}
			frames = append(frames, ErrorFrame(perMessageErrorText))
			continue
		}
		frames = append(frames, msgFrames...)
	}
	return frames
}

// translateInterrupt surfaces the interrupt's prompt as a token. An
// interrupt without content produces nothing.
func (t *Translator) translateInterrupt(interrupt *runtime.Interrupt) []Frame {
	if interrupt.Value == "" {
		return nil
	}
	frames := openingFrames(t.state)
	return append(frames, TokenFrame(interrupt.Value))
}

func (t *Translator) translateMessage(msg llms.Message) ([]Frame, error) {
	switch {
	case msg.Role == llms.RoleUser && msg.Content == t.input:
		// The run's own input echoed back.
		return nil, nil

	case msg.Role == llms.RoleAssistant && len(msg.ToolCalls) > 0:
		// Tool announcements never open the stream.
		frames := make([]Frame, 0, len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			t.tracker.RecordStart(call.ID, call.Name, call.Args)
			frame, err := ToolStartFrame(call.Name, call.Args)
			if err != nil {
				return nil, err
			}
			frames = append(frames, frame)
		}
		return frames, nil

	case msg.Role == llms.RoleTool:
		call, ok := t.tracker.Resolve(msg.ToolCallID)
		if !ok {
			t.log.Warn("tool completion without matching start",
				"tool_call_id", msg.ToolCallID)
			return nil, nil
		}
		if msg.IsError {
			return []Frame{ToolErrorFrame(call.Name, msg.Content)}, nil
		}
		frame, err := ToolCompleteFrame(call.Name, call.Params)
		if err != nil {
			return nil, err
		}
		return []Frame{frame}, nil

	default:
		if !t.EmitMessageText || msg.Content == "" {
			return nil, nil
		}
		frames := openingFrames(t.state)
		return append(frames, TokenFrame(msg.Content)), nil
	}
}

// TranslateToken handles incremental model output. Deltas tagged to
// skip streaming are dropped, tool-call fragments are stripped, and
// whatever text remains goes out as one token frame.
func (t *Translator) TranslateToken(delta *runtime.TokenDelta) []Frame {
	if delta == nil || slices.Contains(delta.Tags, runtime.TagSkipStream) {
		return nil
	}

	var text strings.Builder
	for _, part := range delta.Parts {
		if part.Type == runtime.PartTypeText {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return nil
	}

	frames := openingFrames(t.state)
	t.state.Append(text.String())
	return append(frames, TokenFrame(text.String()))
}

// TranslateCustom passes an application event through under its own
// type, or surfaces its error text. Pass-through frames do not open
// the stream.
func (t *Translator) TranslateCustom(event *runtime.CustomEvent) []Frame {
	if event == nil {
		return nil
	}
	if event.Err != nil {
		frames := openingFrames(t.state)
		return append(frames, ErrorFrame(event.Err.Error()))
	}

	frame, err := NewFrame(event.Type, event.Data)
	if err != nil {
		t.log.Warn("failed to encode custom event", "type", event.Type, "error", err)
		frames := openingFrames(t.state)
		return append(frames, ErrorFrame(perMessageErrorText))
	}
	return []Frame{frame}
}
