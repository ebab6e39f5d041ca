// Package transport defines the outbound delivery port and its shared
// error type. Concrete senders live in subpackages (discord, telegram).
package transport

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Sender delivers one notification text. A nil error means the remote side
// accepted the message; anything else aborts the current run.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// StatusError is returned when a remote API answers with a non-2xx status.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 300 {
		cut := 297
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Service, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.Code, body)
}

// WriterSender prints each message to w followed by a newline. It backs dry
// runs, where nothing leaves the machine.
type WriterSender struct {
	W io.Writer
}

func NewWriterSender(w io.Writer) *WriterSender { return &WriterSender{W: w} }

func (s *WriterSender) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := io.WriteString(s.W, text+"\n")
	return err
}
