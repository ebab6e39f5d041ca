package app

import (
	"fmt"
	"net/http"
	"strconv"

	"watchpost/internal/annict"
	"watchpost/internal/config"
	"watchpost/internal/metrics"
	"watchpost/internal/storage"
	"watchpost/internal/transport"
	"watchpost/internal/transport/discord"
	"watchpost/internal/transport/telegram"
	logx "watchpost/pkg/logx"
)

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTPTimeout}
}

func openLedger(cfg *config.Config, log logx.Logger) (*storage.Ledger, error) {
	return storage.OpenLedger(storage.Config{
		Path:       cfg.Ledger.Path,
		MaxRecords: cfg.Ledger.MaxRecords,
	}, log.With(logx.String("comp", "ledger")))
}

func newFetcher(cfg *config.Config, hc *http.Client, log logx.Logger) (*annict.Client, error) {
	return annict.NewClient(annict.Config{
		BaseURL:     cfg.Annict.BaseURL,
		AccessToken: cfg.Annict.AccessToken,
		Timeout:     cfg.HTTPTimeout,
	}, hc, log.With(logx.String("comp", "annict")))
}

// newSender picks the delivery target named by DELIVERY.
func newSender(cfg *config.Config, hc *http.Client, log logx.Logger) (transport.Sender, error) {
	switch cfg.Delivery {
	case config.DeliveryTelegram:
		return telegram.New(telegram.Config{
			Token:    cfg.Telegram.Token,
			ChatID:   cfg.Telegram.ChatID,
			ThreadID: cfg.Telegram.ThreadID,
			BaseURL:  cfg.Telegram.BaseURL,
			Timeout:  cfg.HTTPTimeout,
		}, hc, log.With(logx.String("comp", "telegram")))
	case config.DeliveryDiscord, "":
		return discord.New(discord.Config{
			BaseURL:   cfg.Discord.BaseURL,
			ChannelID: strconv.FormatInt(cfg.Discord.ChannelID, 10),
			Token:     cfg.Discord.Token,
			Timeout:   cfg.HTTPTimeout,
		}, hc, log.With(logx.String("comp", "discord")))
	default:
		return nil, fmt.Errorf("unknown delivery %q", cfg.Delivery)
	}
}

// newCollector resumes the series in METRICS_TEXTFILE so counters and the
// last success time survive between processes. An unreadable file only costs
// history.
func newCollector(cfg *config.Config, log logx.Logger) *metrics.Collector {
	c := metrics.NewCollector()
	if cfg.MetricsTextfile == "" {
		return c
	}
	if err := c.LoadTextfile(cfg.MetricsTextfile); err != nil {
		log.Warn("metrics textfile not resumed", logx.String("path", cfg.MetricsTextfile), logx.Err(err))
	}
	return c
}
