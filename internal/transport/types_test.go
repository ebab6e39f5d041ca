package transport

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestWriterSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSender(&buf)
	if err := s.Send(context.Background(), "one\nhttps://x"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.Send(context.Background(), "two"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := buf.String(); got != "one\nhttps://x\ntwo\n" {
		t.Fatalf("output = %q", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, "three"); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}

func TestStatusErrorMessage(t *testing.T) {
	e := &StatusError{Service: "discord", Code: 401, Body: strings.Repeat("x", 400)}
	msg := e.Error()
	if !strings.HasPrefix(msg, "discord: unexpected status 401: ") {
		t.Fatalf("Error() = %q", msg)
	}
	if !strings.HasSuffix(msg, "...") {
		t.Fatalf("expected truncated body: %q", msg)
	}
	if got := (&StatusError{Service: "annict", Code: 500}).Error(); got != "annict: unexpected status 500" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestStatusErrorKeepsRunesWhole(t *testing.T) {
	// 3-byte runes: byte 297 falls inside one.
	e := &StatusError{Service: "annict", Code: 503, Body: "x" + strings.Repeat("停", 200)}
	msg := e.Error()
	if !utf8.ValidString(msg) {
		t.Fatalf("Error() split a rune: %q", msg)
	}
	if !strings.HasSuffix(msg, "停...") {
		t.Fatalf("Error() = %q", msg)
	}
}
