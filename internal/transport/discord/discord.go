// Package discord posts notification text to a Discord channel through the
// bot REST API.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"watchpost/internal/transport"
	logx "watchpost/pkg/logx"
)

const (
	DefaultBaseURL = "https://discord.com/api/v10"

	// Discord rejects message content above this many characters.
	contentLimit = 2000
	userAgent    = "DiscordBot (watchpost, 1.0)"
)

type Config struct {
	BaseURL   string
	ChannelID string
	Token     string
	Timeout   time.Duration
}

// Sender posts to POST /channels/{channel_id}/messages with a bot token.
type Sender struct {
	cfg  Config
	log  logx.Logger
	http *http.Client
}

func New(cfg Config, httpClient *http.Client, log logx.Logger) (*Sender, error) {
	cfg.ChannelID = strings.TrimSpace(cfg.ChannelID)
	if cfg.ChannelID == "" {
		return nil, errors.New("discord channel id is empty")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("discord bot token is empty")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sender{cfg: cfg, log: log, http: httpClient}, nil
}

type createMessage struct {
	Content string `json:"content"`
}

func (s *Sender) Send(ctx context.Context, text string) error {
	if text == "" {
		return errors.New("discord: empty message")
	}
	if n := len([]rune(text)); n > contentLimit {
		return fmt.Errorf("discord: message has %d characters, limit is %d", n, contentLimit)
	}

	body, err := json.Marshal(createMessage{Content: text})
	if err != nil {
		return err
	}
	endpoint := s.cfg.BaseURL + "/channels/" + s.cfg.ChannelID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+s.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		s.log.Error("discord request failed", logx.Err(err))
		return fmt.Errorf("discord: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("discord: read response: %w", err)
	}
	s.log.Debug("discord response", logx.Int("status", resp.StatusCode), logx.Body("body", respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Error("discord rejected message",
			logx.Int("status", resp.StatusCode),
			logx.Body("body", respBody),
			logx.Body("payload", body),
		)
		return &transport.StatusError{Service: "discord", Code: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}
