package config

import "reflect"

// SummarizeChange lists the keys whose effective value differs between old
// and next. Only key names are returned, so the result is safe to log even
// when a token changed.
func SummarizeChange(old, next *Config) []string {
	if old == nil {
		old = &Config{}
	}
	if next == nil {
		next = &Config{}
	}

	var changed []string
	check := func(key string, a, b any) {
		if !reflect.DeepEqual(a, b) {
			changed = append(changed, key)
		}
	}

	check("ANNICT_USER_ID", old.Annict.UserID, next.Annict.UserID)
	check("ANNICT_ACCESS_TOKEN", old.Annict.AccessToken, next.Annict.AccessToken)
	check("ANNICT_NUM_FETCH_ONCE", old.Annict.FetchOnce, next.Annict.FetchOnce)
	check("ANNICT_API_URL", old.Annict.BaseURL, next.Annict.BaseURL)
	check("DELIVERY", old.Delivery, next.Delivery)
	check("DISCORD_CHANNEL_ID", old.Discord.ChannelID, next.Discord.ChannelID)
	check("DISCORD_BOT_ACCESS_TOKEN", old.Discord.Token, next.Discord.Token)
	check("DISCORD_API_URL", old.Discord.BaseURL, next.Discord.BaseURL)
	check("TELEGRAM_BOT_TOKEN", old.Telegram.Token, next.Telegram.Token)
	check("TELEGRAM_CHAT_ID", old.Telegram.ChatID, next.Telegram.ChatID)
	check("TELEGRAM_THREAD_ID", old.Telegram.ThreadID, next.Telegram.ThreadID)
	check("TELEGRAM_API_URL", old.Telegram.BaseURL, next.Telegram.BaseURL)
	check("RECORD_FILE_PATH", old.Ledger.Path, next.Ledger.Path)
	check("MAX_NUM_RECORDS", old.Ledger.MaxRecords, next.Ledger.MaxRecords)
	check("WORK_URL_MODE", old.Message.URLMode, next.Message.URLMode)
	check("MESSAGE_LOCALE", old.Message.Locale, next.Message.Locale)
	check("POST_INTERVAL", old.PostInterval, next.PostInterval)
	check("HTTP_TIMEOUT", old.HTTPTimeout, next.HTTPTimeout)
	check("LOG_LEVEL", old.Logging.Level, next.Logging.Level)
	check("LOG_FILE", old.Logging.File, next.Logging.File)
	check("METRICS_TEXTFILE", old.MetricsTextfile, next.MetricsTextfile)
	check("SCHEDULE", old.Schedule, next.Schedule)
	return changed
}
