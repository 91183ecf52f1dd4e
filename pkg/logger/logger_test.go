package logger

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"", slog.LevelInfo, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextFormatterSimple(t *testing.T) {
	var buf strings.Builder
	h := &textFormatter{writer: &buf, minLevel: slog.LevelInfo}

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "server started", 0)
	record.AddAttrs(slog.String("port", "8080"))

	if err := h.Handle(context.Background(), record); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if got != "INFO server started port=8080\n" {
		t.Errorf("Handle() output = %q", got)
	}
}

func TestTextFormatterVerboseIncludesTime(t *testing.T) {
	var buf strings.Builder
	h := &textFormatter{writer: &buf, minLevel: slog.LevelInfo, verbose: true}

	ts := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	record := slog.NewRecord(ts, slog.LevelWarn, "config reloaded", 0)

	if err := h.Handle(context.Background(), record); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.HasPrefix(got, "2025/06/01 10:30:00 WARN config reloaded") {
		t.Errorf("Handle() output = %q", got)
	}
}

func TestTextFormatterWithAttrs(t *testing.T) {
	var buf strings.Builder
	base := &textFormatter{writer: &buf, minLevel: slog.LevelInfo}
	h := base.WithAttrs([]slog.Attr{slog.String("agent", "Agent-AI")})

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "run complete", 0)
	if err := h.Handle(context.Background(), record); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if !strings.Contains(buf.String(), "agent=Agent-AI") {
		t.Errorf("Handle() output missing bound attr: %q", buf.String())
	}
}

func TestFilteringHandlerLevels(t *testing.T) {
	var buf strings.Builder
	inner := &textFormatter{writer: &buf, minLevel: slog.LevelDebug}
	h := &filteringHandler{handler: inner, minLevel: slog.LevelWarn}

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(info) = true with warn minimum")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(error) = false with warn minimum")
	}
}
