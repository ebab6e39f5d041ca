package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"watchpost/internal/activity"
	"watchpost/internal/task/scheduler"
	logx "watchpost/pkg/logx"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Resolve validates f and applies defaults. All problems are reported at once.
func Resolve(f File) (*Config, error) {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := &Config{}
	var err error

	cfg.Annict.UserID, err = parseIDField("ANNICT_USER_ID", f.AnnictUserID, true)
	add(err)
	cfg.Annict.AccessToken = strings.TrimSpace(f.AnnictAccessToken)
	if cfg.Annict.AccessToken == "" {
		add(errors.New("ANNICT_ACCESS_TOKEN is required"))
	}
	cfg.Annict.FetchOnce, err = parseIntField("ANNICT_NUM_FETCH_ONCE", f.AnnictNumFetchOnce, 0, 1, MaxFetchOnce)
	add(err)
	cfg.Annict.BaseURL, err = parseURLField("ANNICT_API_URL", f.AnnictAPIURL)
	add(err)

	cfg.Ledger.Path = strings.TrimSpace(f.RecordFilePath)
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultRecordFilePath
	}
	cfg.Ledger.MaxRecords, err = parseIntField("MAX_NUM_RECORDS", f.MaxNumRecords, DefaultMaxNumRecords, 1, 0)
	add(err)
	if cfg.Annict.FetchOnce > 0 && cfg.Ledger.MaxRecords > 0 && cfg.Annict.FetchOnce > cfg.Ledger.MaxRecords {
		add(fmt.Errorf("ANNICT_NUM_FETCH_ONCE (%d) must not exceed MAX_NUM_RECORDS (%d)", cfg.Annict.FetchOnce, cfg.Ledger.MaxRecords))
	}

	switch d := Delivery(strings.ToLower(strings.TrimSpace(f.Delivery))); d {
	case "", DeliveryDiscord:
		cfg.Delivery = DeliveryDiscord
		cfg.Discord.ChannelID, err = parseIDField("DISCORD_CHANNEL_ID", f.DiscordChannelID, true)
		add(err)
		cfg.Discord.Token = strings.TrimSpace(f.DiscordBotAccessToken)
		if cfg.Discord.Token == "" {
			add(errors.New("DISCORD_BOT_ACCESS_TOKEN is required"))
		}
		cfg.Discord.BaseURL, err = parseURLField("DISCORD_API_URL", f.DiscordAPIURL)
		add(err)
	case DeliveryTelegram:
		cfg.Delivery = DeliveryTelegram
		cfg.Telegram.Token = strings.TrimSpace(f.TelegramBotToken)
		if cfg.Telegram.Token == "" {
			add(errors.New("TELEGRAM_BOT_TOKEN is required"))
		}
		cfg.Telegram.ChatID, err = parseIDField("TELEGRAM_CHAT_ID", f.TelegramChatID, true)
		add(err)
		var thread int64
		thread, err = parseIDField("TELEGRAM_THREAD_ID", f.TelegramThreadID, false)
		add(err)
		cfg.Telegram.ThreadID = int(thread)
		cfg.Telegram.BaseURL, err = parseURLField("TELEGRAM_API_URL", f.TelegramAPIURL)
		add(err)
	default:
		add(fmt.Errorf("DELIVERY: unknown value %q (want discord or telegram)", f.Delivery))
	}

	cfg.Message.URLMode, err = activity.ParseURLMode(f.WorkURLMode)
	add(prefix("WORK_URL_MODE", err))
	cfg.Message.Locale, err = activity.ParseLocale(f.MessageLocale)
	add(prefix("MESSAGE_LOCALE", err))

	cfg.PostInterval, err = ParseDurationOrDefault("POST_INTERVAL", f.PostInterval, DefaultPostInterval)
	add(err)
	cfg.HTTPTimeout, err = ParseDurationOrDefault("HTTP_TIMEOUT", f.HTTPTimeout, DefaultHTTPTimeout)
	add(err)
	if err == nil && cfg.HTTPTimeout == 0 {
		add(errors.New("HTTP_TIMEOUT: must be > 0"))
	}

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(f.LogLevel))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if !logx.ValidLevel(cfg.Logging.Level) {
		add(fmt.Errorf("LOG_LEVEL: unknown level %q", f.LogLevel))
	}
	cfg.Logging.File = strings.TrimSpace(f.LogFile)
	cfg.MetricsTextfile = strings.TrimSpace(f.MetricsTextfile)

	cfg.Schedule = strings.TrimSpace(f.Schedule)
	if cfg.Schedule != "" {
		if _, err := scheduler.ParseSchedule(cfg.Schedule); err != nil {
			add(prefix("SCHEDULE", err))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return cfg, nil
}

func parseURLField(key, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%s: want an absolute http(s) URL, got %q", key, raw)
	}
	return strings.TrimRight(s, "/"), nil
}

func prefix(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", key, err)
}
