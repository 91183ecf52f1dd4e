package stream

// TrackedCall is the name and arguments recorded when a tool call was
// announced.
type TrackedCall struct {
	Name   string
	Params map[string]any
}

// Tracker pairs tool completions with their start events within one
// run.
//
// Not safe for concurrent use; every run owns its own Tracker.
type Tracker struct {
	pending map[string]TrackedCall
}

func NewTracker() *Tracker {
	return &Tracker{pending: make(map[string]TrackedCall)}
}

// RecordStart registers a pending call. A duplicate ID replaces the
// earlier entry; duplicates are not expected but must not break the
// run.
func (t *Tracker) RecordStart(id, name string, params map[string]any) {
	t.pending[id] = TrackedCall{Name: name, Params: params}
}

// Resolve removes and returns the pending call, reporting whether it
// was tracked. A completion that resolves nothing is an anomaly the
// caller logs and skips.
func (t *Tracker) Resolve(id string) (TrackedCall, bool) {
	call, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	return call, ok
}

// Pending returns the number of calls still awaiting completion.
func (t *Tracker) Pending() int {
	return len(t.pending)
}
