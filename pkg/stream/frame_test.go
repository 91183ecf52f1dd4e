package stream

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestFrameEncode(t *testing.T) {
	toolStart, err := ToolStartFrame("get_weather", map[string]any{"city": "Paris"})
	if err != nil {
		t.Fatalf("ToolStartFrame() error = %v", err)
	}

	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{
			name:  "start has no data line",
			frame: StartFrame(),
			want:  "event: stream_start\n\n",
		},
		{
			name:  "token",
			frame: TokenFrame("hi"),
			want:  "event: stream_token\ndata: {\"token\":\"hi\"}\n\n",
		},
		{
			name:  "tool start",
			frame: toolStart,
			want:  "event: tool_execution_start\ndata: {\"name\":\"get_weather\",\"params\":{\"city\":\"Paris\"}}\n\n",
		},
		{
			name:  "tool error",
			frame: ToolErrorFrame("divide", "division by zero"),
			want:  "event: tool_execution_error\ndata: {\"name\":\"divide\",\"error\":\"division by zero\"}\n\n",
		},
		{
			name:  "error carries a bare string",
			frame: ErrorFrame("boom"),
			want:  "event: error\ndata: \"boom\"\n\n",
		},
		{
			name:  "end",
			frame: EndFrame("thread-1"),
			want:  "event: stream_end\ndata: {\"thread_id\":\"thread-1\"}\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(tt.frame.Encode()); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFrameRoundTrip(t *testing.T) {
	frame := TokenFrame("hi")

	decoded, err := DecodeFrames(bytes.NewReader(frame.Encode()))
	if err != nil {
		t.Fatalf("DecodeFrames() error = %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(decoded))
	}
	if decoded[0].Type != FrameStreamToken {
		t.Errorf("Type = %q, want %q", decoded[0].Type, FrameStreamToken)
	}

	var content tokenContent
	if err := json.Unmarshal(decoded[0].Content, &content); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if content.Token != "hi" {
		t.Errorf("token = %q, want %q", content.Token, "hi")
	}
}

func TestFrameRoundTripAllTypes(t *testing.T) {
	toolStart, err := ToolStartFrame("add", map[string]any{"a": float64(2), "b": float64(2)})
	if err != nil {
		t.Fatalf("ToolStartFrame() error = %v", err)
	}
	toolComplete, err := ToolCompleteFrame("add", map[string]any{"a": float64(2), "b": float64(2)})
	if err != nil {
		t.Fatalf("ToolCompleteFrame() error = %v", err)
	}

	frames := []Frame{
		StartFrame(),
		TokenFrame("partial text"),
		toolStart,
		toolComplete,
		ToolErrorFrame("divide", "division by zero"),
		ErrorFrame("Unexpected error"),
		EndFrame("thread-9"),
	}

	var wire bytes.Buffer
	for _, frame := range frames {
		wire.Write(frame.Encode())
	}

	decoded, err := DecodeFrames(&wire)
	if err != nil {
		t.Fatalf("DecodeFrames() error = %v", err)
	}
	if len(decoded) != len(frames) {
		t.Fatalf("decoded %d frames, want %d", len(decoded), len(frames))
	}

	for i, frame := range frames {
		if decoded[i].Type != frame.Type {
			t.Errorf("frame %d type = %q, want %q", i, decoded[i].Type, frame.Type)
		}
		if string(decoded[i].Content) != string(frame.Content) {
			t.Errorf("frame %d content = %s, want %s", i, decoded[i].Content, frame.Content)
		}
	}

	if decoded[0].Content != nil {
		t.Errorf("stream_start content = %s, want none", decoded[0].Content)
	}
}

func TestDecoderSkipsNoise(t *testing.T) {
	wire := ": keepalive comment\n" +
		"event: stream_token\n" +
		"data: {\"token\":\"ok\"}\n" +
		"\n" +
		"orphan line without prefix\n"

	decoded, err := DecodeFrames(strings.NewReader(wire))
	if err != nil {
		t.Fatalf("DecodeFrames() error = %v", err)
	}
	if len(decoded) != 1 || decoded[0].Type != FrameStreamToken {
		t.Fatalf("decoded = %+v, want one stream_token", decoded)
	}
}

func TestNewFrameRejectsUnencodablePayload(t *testing.T) {
	if _, err := NewFrame("custom", map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatal("NewFrame() with a channel payload succeeded, want error")
	}
	if _, err := ToolStartFrame("bad", map[string]any{"fn": func() {}}); err == nil {
		t.Fatal("ToolStartFrame() with a func param succeeded, want error")
	}
}
