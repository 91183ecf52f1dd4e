// Package runtime implements the agent runtime: a small ReAct loop over
// an LLM provider and a tool registry, per-thread conversation memory,
// and the event stream consumed by the SSE translation layer.
package runtime

import (
	"github.com/MagnusDot/Agent/pkg/llms"
)

// Event channels. Every event belongs to exactly one channel; the
// channel decides which translation rules apply downstream.
const (
	// ChannelUpdates carries state advances: completed messages and
	// interrupts.
	ChannelUpdates = "updates"

	// ChannelTokens carries incremental model output.
	ChannelTokens = "tokens"

	// ChannelCustom carries application events pushed by tools.
	ChannelCustom = "custom"

	// ChannelError marks a whole-run failure. The consumer reports a
	// generic error to the client; Err itself is for logs only.
	ChannelError = "error"
)

// Event is one unit of a streaming run. Exactly one of Update, Token,
// Custom or Err is set, matching Channel.
type Event struct {
	Channel string
	Update  *Update
	Token   *TokenDelta
	Custom  *CustomEvent
	Err     error
}

// Update is a state-advance notification: either an interrupt or a
// batch of completed messages, never both.
type Update struct {
	Interrupt *Interrupt
	Messages  []llms.Message
}

// Interrupt pauses a run and surfaces a prompt to the user.
type Interrupt struct {
	Value string
}

// Content part types within a token delta.
const (
	PartTypeText = "text"

	// PartTypeToolCallChunk carries raw tool-call argument fragments.
	// These are never user-visible.
	PartTypeToolCallChunk = "tool_call_chunk"
)

// ContentPart is one piece of a token delta.
type ContentPart struct {
	Type string
	Text string
}

// TagSkipStream on a token delta tells the streaming layer to drop it.
const TagSkipStream = "skip_stream"

// TokenDelta is incremental model output.
type TokenDelta struct {
	Parts []ContentPart
	Tags  []string
}

// CustomEvent is an application event a tool pushed through the stream
// writer. Err != nil marks an error event.
type CustomEvent struct {
	Type string
	Data any
	Err  error
}

// RunInput identifies and parameterizes one agent run. UserInfo and
// Date are optional; the agent falls back to its configured identity
// and the current time.
type RunInput struct {
	RunID    string
	ThreadID string
	Message  string
	UserInfo string
	Date     string
}

// Final event types returned by Invoke.
const (
	FinalTypeValues    = "values"
	FinalTypeInterrupt = "interrupt"
)

// FinalEvent is the last state observed by a non-streaming run: the
// full message list for a completed run, or the pending interrupt.
type FinalEvent struct {
	Type      string
	Messages  []llms.Message
	Interrupt *Interrupt
}

// LastMessage returns the final message of a completed run.
func (e *FinalEvent) LastMessage() (llms.Message, bool) {
	if e == nil || len(e.Messages) == 0 {
		return llms.Message{}, false
	}
	return e.Messages[len(e.Messages)-1], true
}

func updateEvent(u *Update) Event {
	return Event{Channel: ChannelUpdates, Update: u}
}

func tokenEvent(t *TokenDelta) Event {
	return Event{Channel: ChannelTokens, Token: t}
}

func customEvent(c *CustomEvent) Event {
	return Event{Channel: ChannelCustom, Custom: c}
}

func errorEvent(err error) Event {
	return Event{Channel: ChannelError, Err: err}
}
