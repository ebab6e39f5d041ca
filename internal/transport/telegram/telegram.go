// Package telegram delivers notification text to a Telegram chat with
// telebot. The bot runs offline: it never polls for updates, it only sends.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	logx "watchpost/pkg/logx"
)

const telegramTextLimit = 4096

type Config struct {
	Token    string
	ChatID   int64
	ThreadID int
	// BaseURL overrides the Bot API endpoint (tests, local bot API servers).
	BaseURL string
	Timeout time.Duration
}

type Sender struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func New(cfg Config, httpClient *http.Client, log logx.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		Token:   cfg.Token,
		Client:  httpClient,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sender{cfg: cfg, log: log, bot: b}, nil
}

// Send posts text, split into several messages when it exceeds the
// Telegram limit. A failure on any chunk fails the whole send.
func (s *Sender) Send(ctx context.Context, text string) error {
	if text == "" {
		return errors.New("telegram: empty message")
	}
	chat := &tele.Chat{ID: s.cfg.ChatID}
	opts := &tele.SendOptions{ThreadID: s.cfg.ThreadID}
	for i, chunk := range splitText(text, telegramTextLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := s.bot.Send(chat, chunk, opts)
		if err != nil {
			err = s.scrub(err)
			s.log.Error("telegram rejected message", logx.Int("chunk", i), logx.Err(err), logx.String("payload", chunk))
			return fmt.Errorf("telegram: %w", err)
		}
		if msg != nil {
			s.log.Debug("telegram message sent", logx.Int("message_id", msg.ID))
		}
	}
	return nil
}

// scrub hides the bot token, which the Bot API carries in the URL path.
func (s *Sender) scrub(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = strings.ReplaceAll(ue.URL, s.cfg.Token, "REDACTED")
	}
	if msg := err.Error(); strings.Contains(msg, s.cfg.Token) {
		return errors.New(strings.ReplaceAll(msg, s.cfg.Token, "REDACTED"))
	}
	return err
}

// splitText packs whole lines into chunks of at most limit runes. A single
// line longer than limit is cut hard.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	if utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}

	var (
		out []string
		cur []rune
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	for _, line := range strings.Split(s, "\n") {
		rs := []rune(line)
		for len(rs) > limit {
			flush()
			out = append(out, string(rs[:limit]))
			rs = rs[limit:]
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, rs...)
		case len(cur)+1+len(rs) <= limit:
			cur = append(append(cur, '\n'), rs...)
		default:
			flush()
			cur = append(cur, rs...)
		}
	}
	flush()
	return out
}
