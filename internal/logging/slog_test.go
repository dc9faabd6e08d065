package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", "msg=dbg", "a=1",
		"level=INFO", "msg=inf", "b=2",
		"level=WARN", "msg=wrn", "c=3",
		"level=ERROR", "msg=err", "d=4",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "request_id") {
		t.Fatalf("request_id must be absent without one in context:\n%s", out)
	}
}

func TestSlogLogger_WithAndRequestID(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := WithRequestID(context.Background(), "req-7")

	log.With("module", "sessions").Info(ctx, "login", "account_id", "u1")

	out := buf.String()
	for _, want := range []string{"module=sessions", "account_id=u1", "request_id=req-7"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRequestID_Empty(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}

func TestNop(t *testing.T) {
	var l Logger = Nop{}
	l.With("k", "v").Error(context.TODO(), "ignored")
}
