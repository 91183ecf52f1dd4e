package stream

import "strings"

// State tracks one run's stream progress: whether the start frame went
// out, and the visible text emitted so far. The accumulated text is
// diagnostic only and is never replayed to the client.
//
// Not safe for concurrent use; every run owns its own State.
type State struct {
	opened bool
	text   strings.Builder
}

// MarkOpened flips has-opened and reports whether this call flipped it.
// It returns true exactly once per run.
func (s *State) MarkOpened() bool {
	if s.opened {
		return false
	}
	s.opened = true
	return true
}

// Opened reports whether the start frame has been emitted.
func (s *State) Opened() bool {
	return s.opened
}

// Append records visible text that went out to the client.
func (s *State) Append(text string) {
	s.text.WriteString(text)
}

// Text returns the visible text accumulated so far.
func (s *State) Text() string {
	return s.text.String()
}

// openingFrames returns a start frame the first time it is called for a
// run, nothing afterwards. Callers emit it ahead of the first frame
// that carries visible content.
func openingFrames(state *State) []Frame {
	if state.MarkOpened() {
		return []Frame{StartFrame()}
	}
	return nil
}
