package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestCtxCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-123")
	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-123"`) {
		t.Errorf("request id missing from log line: %s", out)
	}
	if !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("message missing: %s", out)
	}
}

func TestRequestIDFromContextAbsent(t *testing.T) {
	if id := RequestIDFromContext(context.Background()); id != "" {
		t.Errorf("id = %q, want empty", id)
	}
}

func TestInitLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "error", Output: &buf})

	l := Logger()
	l.Info().Msg("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info logged at error level: %s", buf.String())
	}

	l.Error().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Error("error line suppressed")
	}
}
