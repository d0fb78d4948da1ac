package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	Component("worker").Info().Msg("activated")

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log: %v", err)
	}

	if got := logEntry["component"]; got != "worker" {
		t.Errorf("Component() component = %v, want %q", got, "worker")
	}
	if got := logEntry["message"]; got != "activated" {
		t.Errorf("Component() message = %v, want %q", got, "activated")
	}
}
