package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"watchpost/internal/activity"
	logx "watchpost/pkg/logx"
)

const nativeConfig = `ANNICT_USER_ID: 12345
ANNICT_ACCESS_TOKEN: annict-token
ANNICT_NUM_FETCH_ONCE: 3
DISCORD_CHANNEL_ID: 1100000000000000001
DISCORD_BOT_ACCESS_TOKEN: discord-token
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadNativeFormatDefaults(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config", nativeConfig)
	cfg, err := NewConfigManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Annict.UserID != 12345 || cfg.Annict.AccessToken != "annict-token" || cfg.Annict.FetchOnce != 3 {
		t.Fatalf("annict = %+v", cfg.Annict)
	}
	if cfg.Delivery != DeliveryDiscord || cfg.Discord.ChannelID != 1100000000000000001 || cfg.Discord.Token != "discord-token" {
		t.Fatalf("discord = %v %+v", cfg.Delivery, cfg.Discord)
	}
	if cfg.Ledger.Path != DefaultRecordFilePath || cfg.Ledger.MaxRecords != DefaultMaxNumRecords {
		t.Fatalf("ledger = %+v", cfg.Ledger)
	}
	if cfg.PostInterval != DefaultPostInterval || cfg.HTTPTimeout != DefaultHTTPTimeout {
		t.Fatalf("durations = %v %v", cfg.PostInterval, cfg.HTTPTimeout)
	}
	if cfg.Message.URLMode != activity.WorkURLAnnict || cfg.Message.Locale != activity.LocaleJA {
		t.Fatalf("message = %+v", cfg.Message)
	}
	if cfg.Logging.Level != "info" || cfg.Daemon() {
		t.Fatalf("logging = %+v daemon=%v", cfg.Logging, cfg.Daemon())
	}
}

func TestLoadTOMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	tomlPath := writeFile(t, dir, "config.toml", `
ANNICT_USER_ID = 7
ANNICT_ACCESS_TOKEN = "a"
ANNICT_NUM_FETCH_ONCE = 5
MAX_NUM_RECORDS = 10
DELIVERY = "telegram"
TELEGRAM_BOT_TOKEN = "123:abc"
TELEGRAM_CHAT_ID = -1001234
POST_INTERVAL = "1500ms"
WORK_URL_MODE = "official"
MESSAGE_LOCALE = "en"
SCHEDULE = "*/10 * * * *"
`)
	cfg, err := NewConfigManager(tomlPath).Load()
	if err != nil {
		t.Fatalf("Load toml: %v", err)
	}
	if cfg.Delivery != DeliveryTelegram || cfg.Telegram.ChatID != -1001234 || cfg.Telegram.Token != "123:abc" {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.PostInterval != 1500*time.Millisecond || cfg.Ledger.MaxRecords != 10 {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if cfg.Message.URLMode != activity.WorkURLOfficial || cfg.Message.Locale != activity.LocaleEN || !cfg.Daemon() {
		t.Fatalf("unexpected values: %+v", cfg)
	}

	jsonPath := writeFile(t, dir, "config.json", `{
  "ANNICT_USER_ID": 7,
  "ANNICT_ACCESS_TOKEN": "a",
  "ANNICT_NUM_FETCH_ONCE": "2",
  "DISCORD_CHANNEL_ID": 1100000000000000001,
  "DISCORD_BOT_ACCESS_TOKEN": "d",
  "POST_INTERVAL": 2
}`)
	cfg, err = NewConfigManager(jsonPath).Load()
	if err != nil {
		t.Fatalf("Load json: %v", err)
	}
	if cfg.Discord.ChannelID != 1100000000000000001 || cfg.Annict.FetchOnce != 2 {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if cfg.PostInterval != 2*time.Second {
		t.Fatalf("bare integer interval = %v, want 2s", cfg.PostInterval)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"unknown key":        {nativeConfig + "SOMETHING_ELSE: 1\n", "SOMETHING_ELSE"},
		"missing token":      {strings.Replace(nativeConfig, "ANNICT_ACCESS_TOKEN: annict-token\n", "", 1), "ANNICT_ACCESS_TOKEN is required"},
		"user id not int":    {strings.Replace(nativeConfig, "12345", "abc", 1), "ANNICT_USER_ID"},
		"fetch out of range": {strings.Replace(nativeConfig, "ANNICT_NUM_FETCH_ONCE: 3", "ANNICT_NUM_FETCH_ONCE: 51", 1), "1..50"},
		"fetch above max":    {nativeConfig + "MAX_NUM_RECORDS: 2\n", "must not exceed MAX_NUM_RECORDS"},
		"bad delivery":       {nativeConfig + "DELIVERY: slack\n", "DELIVERY"},
		"bad interval":       {nativeConfig + "POST_INTERVAL: soon\n", "POST_INTERVAL"},
		"bad locale":         {nativeConfig + "MESSAGE_LOCALE: fr\n", "MESSAGE_LOCALE"},
		"bad schedule":       {nativeConfig + "SCHEDULE: whenever\n", "SCHEDULE"},
		"bad level":          {nativeConfig + "LOG_LEVEL: loud\n", "LOG_LEVEL"},
		"bad url":            {nativeConfig + "ANNICT_API_URL: ftp://example\n", "ANNICT_API_URL"},
		"nested value":       {nativeConfig + "LOG_FILE:\n  path: x\n", "LOG_FILE"},
		"telegram missing": {
			strings.Replace(nativeConfig, "DISCORD_BOT_ACCESS_TOKEN: discord-token\n", "", 1) + "DELIVERY: telegram\n",
			"TELEGRAM_BOT_TOKEN is required",
		},
	}
	for name, tc := range cases {
		p := writeFile(t, t.TempDir(), "config", tc.body)
		_, err := NewConfigManager(p).Load()
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: error %v does not wrap ErrInvalid", name, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q does not mention %q", name, err, tc.want)
		}
	}
}

func TestLoadReportsAllProblems(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config", "ANNICT_NUM_FETCH_ONCE: 0\n")
	_, err := NewConfigManager(p).Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"ANNICT_USER_ID", "ANNICT_ACCESS_TOKEN", "ANNICT_NUM_FETCH_ONCE", "DISCORD_CHANNEL_ID", "DISCORD_BOT_ACCESS_TOKEN"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewConfigManager(filepath.Join(t.TempDir(), "config")).Load()
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestSummarizeChange(t *testing.T) {
	a := &Config{Annict: AnnictConfig{AccessToken: "old"}, PostInterval: time.Second}
	b := &Config{Annict: AnnictConfig{AccessToken: "new"}, PostInterval: time.Second, Schedule: "15m"}
	got := SummarizeChange(a, b)
	if strings.Join(got, ",") != "ANNICT_ACCESS_TOKEN,SCHEDULE" {
		t.Fatalf("changed = %v", got)
	}
	for _, k := range got {
		if strings.Contains(k, "new") || strings.Contains(k, "old") {
			t.Fatalf("summary leaks a value: %v", got)
		}
	}
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv(PathEnv, "")
	if got := PathFromEnv(); got != DefaultPath {
		t.Fatalf("PathFromEnv() = %q", got)
	}
	t.Setenv(PathEnv, "/etc/watchpost/config.toml")
	if got := PathFromEnv(); got != "/etc/watchpost/config.toml" {
		t.Fatalf("PathFromEnv() = %q", got)
	}
}

func TestWatchReloadsAndKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config", nativeConfig)
	m := NewConfigManager(p)
	m.SetLogger(logx.Nop())
	m.debounce = 20 * time.Millisecond
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	updates := m.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()
	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	writeFile(t, dir, "config", nativeConfig+"POST_INTERVAL: 9s\n")
	select {
	case cfg := <-updates:
		if cfg.PostInterval != 9*time.Second {
			t.Fatalf("reloaded interval = %v", cfg.PostInterval)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}

	writeFile(t, dir, "config", nativeConfig+"POST_INTERVAL: nope\n")
	select {
	case cfg := <-updates:
		t.Fatalf("invalid config was published: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
	if got := m.Get().PostInterval; got != 9*time.Second {
		t.Fatalf("committed interval = %v, want previous 9s", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
	m.Unsubscribe(updates)
}
