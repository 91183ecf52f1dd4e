package tools

import "context"

// StreamEvent is an application-defined event a tool can surface to the
// client mid-execution.
type StreamEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// EventWriter receives stream events emitted by tools. Implementations
// must be safe for concurrent use.
type EventWriter interface {
	Write(event StreamEvent)
}

type eventWriterKey struct{}

// WithEventWriter returns a context carrying the given writer. The
// runtime installs one before executing a tool.
func WithEventWriter(ctx context.Context, w EventWriter) context.Context {
	return context.WithValue(ctx, eventWriterKey{}, w)
}

// EventWriterFrom extracts the event writer from ctx, or nil when the
// tool runs outside a streaming context.
func EventWriterFrom(ctx context.Context) EventWriter {
	w, _ := ctx.Value(eventWriterKey{}).(EventWriter)
	return w
}

// Emit writes an event if ctx carries a writer, and is a no-op
// otherwise so tools never need to branch on streaming mode.
func Emit(ctx context.Context, eventType string, data any) {
	if w := EventWriterFrom(ctx); w != nil {
		w.Write(StreamEvent{Type: eventType, Data: data})
	}
}
