package config

import (
	"time"

	"watchpost/internal/activity"
	logx "watchpost/pkg/logx"
)

// File is the on-disk key set. Every value is kept as text here; Resolve
// turns it into a typed Config.
type File struct {
	AnnictUserID       string `json:"ANNICT_USER_ID"`
	AnnictAccessToken  string `json:"ANNICT_ACCESS_TOKEN"`
	AnnictNumFetchOnce string `json:"ANNICT_NUM_FETCH_ONCE"`
	AnnictAPIURL       string `json:"ANNICT_API_URL,omitempty"`

	Delivery              string `json:"DELIVERY,omitempty"`
	DiscordChannelID      string `json:"DISCORD_CHANNEL_ID,omitempty"`
	DiscordBotAccessToken string `json:"DISCORD_BOT_ACCESS_TOKEN,omitempty"`
	DiscordAPIURL         string `json:"DISCORD_API_URL,omitempty"`
	TelegramBotToken      string `json:"TELEGRAM_BOT_TOKEN,omitempty"`
	TelegramChatID        string `json:"TELEGRAM_CHAT_ID,omitempty"`
	TelegramThreadID      string `json:"TELEGRAM_THREAD_ID,omitempty"`
	TelegramAPIURL        string `json:"TELEGRAM_API_URL,omitempty"`

	RecordFilePath string `json:"RECORD_FILE_PATH,omitempty"`
	MaxNumRecords  string `json:"MAX_NUM_RECORDS,omitempty"`

	WorkURLMode   string `json:"WORK_URL_MODE,omitempty"`
	MessageLocale string `json:"MESSAGE_LOCALE,omitempty"`
	PostInterval  string `json:"POST_INTERVAL,omitempty"`
	HTTPTimeout   string `json:"HTTP_TIMEOUT,omitempty"`

	LogLevel        string `json:"LOG_LEVEL,omitempty"`
	LogFile         string `json:"LOG_FILE,omitempty"`
	MetricsTextfile string `json:"METRICS_TEXTFILE,omitempty"`
	Schedule        string `json:"SCHEDULE,omitempty"`
}

type Delivery string

const (
	DeliveryDiscord  Delivery = "discord"
	DeliveryTelegram Delivery = "telegram"
)

const (
	DefaultRecordFilePath = "record"
	DefaultMaxNumRecords  = 3
	DefaultPostInterval   = 5 * time.Second
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultLogLevel       = "info"

	// MaxFetchOnce is the upstream per_page ceiling.
	MaxFetchOnce = 50
)

// Config is the validated runtime configuration.
type Config struct {
	Annict   AnnictConfig
	Delivery Delivery
	Discord  DiscordConfig
	Telegram TelegramConfig
	Ledger   LedgerConfig
	Message  MessageConfig

	PostInterval time.Duration
	HTTPTimeout  time.Duration

	Logging         LoggingConfig
	MetricsTextfile string
	// Schedule is empty for a single run.
	Schedule string
}

type AnnictConfig struct {
	UserID      int64
	AccessToken string
	FetchOnce   int
	BaseURL     string
}

type DiscordConfig struct {
	ChannelID int64
	Token     string
	BaseURL   string
}

type TelegramConfig struct {
	Token    string
	ChatID   int64
	ThreadID int
	BaseURL  string
}

type LedgerConfig struct {
	Path       string
	MaxRecords int
}

type MessageConfig struct {
	URLMode activity.URLMode
	Locale  activity.Locale
}

type LoggingConfig struct {
	Level string
	File  string
}

// LogConfig maps the logging keys onto logx. Console output stays on so the
// operator always sees progress on stderr.
func (c *Config) LogConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: true,
		File:    logx.FileConfig{Enabled: c.Logging.File != "", Path: c.Logging.File},
	}
}

// Daemon reports whether a schedule is configured.
func (c *Config) Daemon() bool { return c.Schedule != "" }
