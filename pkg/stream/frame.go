// Package stream implements the SSE frame protocol spoken by the agent
// endpoints and the translation of runtime events into frames.
package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Frame types.
const (
	FrameStreamStart           = "stream_start"
	FrameStreamToken           = "stream_token"
	FrameToolExecutionStart    = "tool_execution_start"
	FrameToolExecutionComplete = "tool_execution_complete"
	FrameToolExecutionError    = "tool_execution_error"
	FrameError                 = "error"
	FrameStreamEnd             = "stream_end"
)

// Frame is one server-sent event. Content holds the payload as compact
// JSON; nil means the frame carries no data line.
type Frame struct {
	Type    string
	Content json.RawMessage
}

// NewFrame builds a frame of the given type, encoding content as JSON.
func NewFrame(frameType string, content any) (Frame, error) {
	if content == nil {
		return Frame{Type: frameType}, nil
	}
	data, err := json.Marshal(content)
	if err != nil {
		return Frame{}, fmt.Errorf("encoding %s frame: %w", frameType, err)
	}
	return Frame{Type: frameType, Content: data}, nil
}

type tokenContent struct {
	Token string `json:"token"`
}

type toolCallContent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type toolErrorContent struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

type endContent struct {
	ThreadID string `json:"thread_id"`
}

// StartFrame opens a stream. It has no payload.
func StartFrame() Frame {
	return Frame{Type: FrameStreamStart}
}

// TokenFrame carries a piece of visible text.
func TokenFrame(token string) Frame {
	return mustFrame(FrameStreamToken, tokenContent{Token: token})
}

// ToolStartFrame announces a tool call with its arguments.
func ToolStartFrame(name string, params map[string]any) (Frame, error) {
	return NewFrame(FrameToolExecutionStart, toolCallContent{Name: name, Params: params})
}

// ToolCompleteFrame reports a finished tool call, echoing the arguments
// recorded when it started.
func ToolCompleteFrame(name string, params map[string]any) (Frame, error) {
	return NewFrame(FrameToolExecutionComplete, toolCallContent{Name: name, Params: params})
}

// ToolErrorFrame reports a failed tool call.
func ToolErrorFrame(name, message string) Frame {
	return mustFrame(FrameToolExecutionError, toolErrorContent{Name: name, Error: message})
}

// ErrorFrame carries a human-readable error message.
func ErrorFrame(message string) Frame {
	return mustFrame(FrameError, message)
}

// EndFrame closes a stream, naming the thread for follow-up requests.
func EndFrame(threadID string) Frame {
	return mustFrame(FrameStreamEnd, endContent{ThreadID: threadID})
}

// mustFrame is for payloads built from plain strings, which always
// encode.
func mustFrame(frameType string, content any) Frame {
	frame, err := NewFrame(frameType, content)
	if err != nil {
		panic(err)
	}
	return frame
}

// Encode renders the frame in SSE wire format:
//
//	event: <type>\n
//	data: <json>\n    (omitted when Content is nil)
//	\n
func (f Frame) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(f.Type)
	buf.WriteByte('\n')
	if f.Content != nil {
		buf.WriteString("data: ")
		buf.Write(f.Content)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// Decoder reads frames back out of an SSE byte stream.
type Decoder struct {
	scanner *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Decoder{scanner: scanner}
}

// Next returns the next complete frame, or io.EOF when the stream ends.
// Lines that are not part of the frame grammar are skipped.
func (d *Decoder) Next() (Frame, error) {
	var frame Frame
	var sawEvent bool

	for d.scanner.Scan() {
		line := d.scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			frame.Type = strings.TrimPrefix(line, "event: ")
			sawEvent = true
		case strings.HasPrefix(line, "data: "):
			frame.Content = json.RawMessage(strings.TrimPrefix(line, "data: "))
		case line == "" && sawEvent:
			return frame, nil
		}
	}
	if err := d.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

// DecodeFrames reads every frame remaining in r.
func DecodeFrames(r io.Reader) ([]Frame, error) {
	decoder := NewDecoder(r)

	var frames []Frame
	for {
		frame, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}
