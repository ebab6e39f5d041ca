package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/time/rate"

	"watchpost/internal/activity"
	"watchpost/internal/annict"
	"watchpost/internal/metrics"
	"watchpost/internal/transport"
	logx "watchpost/pkg/logx"
)

// DefaultPostInterval is the minimum gap between two real deliveries.
const DefaultPostInterval = 5 * time.Second

// Fetcher returns one newest-first batch of raw activities.
type Fetcher interface {
	FetchActivities(ctx context.Context, q annict.Query) ([]json.RawMessage, error)
}

// Ledger is the durable record of delivered identities.
type Ledger interface {
	Contains(ctx context.Context, id activity.Identity) (bool, error)
	Record(ctx context.Context, id activity.Identity) error
}

type Deps struct {
	Fetcher Fetcher
	Sender  transport.Sender
	Ledger  Ledger
	Log     logx.Logger
	Metrics metrics.Recorder
	// DryOut receives messages in dry mode. Defaults to stdout.
	DryOut io.Writer
}

type Config struct {
	Query  annict.Query
	DryRun bool
	// PostInterval spaces real deliveries. Zero disables pacing.
	PostInterval time.Duration
	Locale       activity.Locale
	Decode       activity.DecodeOptions
}

// Result counts what happened to the batch in one Run.
type Result struct {
	Fetched    int
	Decoded    int
	Suppressed int
	Duplicates int
	Delivered  int
}

type Pipeline struct {
	cfg     Config
	fetcher Fetcher
	sender  transport.Sender
	ledger  Ledger
	log     logx.Logger
	metrics metrics.Recorder
	limiter *rate.Limiter // nil until the first real send
}

func New(deps Deps, cfg Config) (*Pipeline, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("notifier: fetcher is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("notifier: ledger is required")
	}
	if cfg.PostInterval < 0 {
		return nil, fmt.Errorf("notifier: post interval must be >= 0, got %s", cfg.PostInterval)
	}

	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}

	p := &Pipeline{
		cfg:     cfg,
		fetcher: deps.Fetcher,
		ledger:  deps.Ledger,
		log:     log,
		metrics: rec,
	}

	if cfg.DryRun {
		out := deps.DryOut
		if out == nil {
			out = os.Stdout
		}
		p.sender = transport.NewWriterSender(out)
	} else {
		if deps.Sender == nil {
			return nil, errors.New("notifier: sender is required unless dry run")
		}
		p.sender = deps.Sender
	}
	return p, nil
}

type pending struct {
	msg string
	act activity.Activity
}

// Run performs one fetch/deliver pass.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res, err := p.run(ctx)
	p.metrics.RecordRun(time.Since(start), err)
	took := logx.Duration("took", time.Since(start))
	if err != nil {
		p.log.Error("run failed", logx.Err(err), logx.Int("delivered", res.Delivered), took)
		return res, err
	}
	p.log.Info("run finished",
		logx.Int("fetched", res.Fetched),
		logx.Int("decoded", res.Decoded),
		logx.Int("delivered", res.Delivered),
		logx.Int("duplicates", res.Duplicates),
		logx.Int("suppressed", res.Suppressed),
		took,
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context) (Result, error) {
	var res Result

	p.log.Info("fetching activities", logx.Int64("user_id", p.cfg.Query.UserID), logx.Int("per_page", p.cfg.Query.PerPage))
	raws, err := p.fetcher.FetchActivities(ctx, p.cfg.Query)
	if err != nil {
		return res, fmt.Errorf("fetch: %w", err)
	}
	res.Fetched = len(raws)
	p.metrics.RecordFetched(len(raws))

	acts, err := activity.DecodeBatch(raws, p.cfg.Decode)
	if err != nil {
		return res, fmt.Errorf("decode: %w", err)
	}
	res.Decoded = len(acts)

	batch := make([]pending, 0, len(acts))
	for _, a := range acts {
		batch = append(batch, pending{msg: activity.Format(a, p.cfg.Locale), act: a})
	}

	if p.cfg.DryRun {
		p.log.Info("dry run: printing instead of posting", logx.Int("candidates", len(batch)))
	} else {
		p.log.Info("posting notifications", logx.Int("candidates", len(batch)))
	}

	for _, it := range batch {
		id := it.act.Identity()
		if it.msg == "" {
			p.log.Debug("suppressed", logx.String("identity", id.String()), logx.String("kind", it.act.Kind.String()))
			res.Suppressed++
			p.metrics.RecordOutcome(metrics.OutcomeSuppressed)
			continue
		}

		seen, err := p.ledger.Contains(ctx, id)
		if err != nil {
			return res, fmt.Errorf("ledger lookup %s: %w", id, err)
		}
		if seen {
			p.log.Debug("already delivered", logx.String("identity", id.String()))
			res.Duplicates++
			p.metrics.RecordOutcome(metrics.OutcomeDuplicate)
			continue
		}

		if err := p.deliver(ctx, it.msg); err != nil {
			p.log.Error("delivery failed",
				logx.String("identity", id.String()),
				logx.String("message", it.msg),
				logx.Err(err),
			)
			return res, fmt.Errorf("deliver %s: %w", id, err)
		}
		if err := p.ledger.Record(ctx, id); err != nil {
			return res, fmt.Errorf("ledger record %s: %w", id, err)
		}
		res.Delivered++
		p.metrics.RecordOutcome(metrics.OutcomeDelivered)
		p.log.Info("delivered", logx.String("identity", id.String()), logx.String("kind", it.act.Kind.String()))
	}
	return res, nil
}

// deliver sends msg no sooner than PostInterval after the previous send
// returned, so a slow response does not shorten the gap.
func (p *Pipeline) deliver(ctx context.Context, msg string) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	err := p.sender.Send(ctx, msg)
	if p.cfg.PostInterval > 0 && !p.cfg.DryRun {
		p.limiter = spentLimiter(p.cfg.PostInterval)
	}
	return err
}

// spentLimiter holds one token, already taken, so its next Wait lasts a
// full interval from now.
func spentLimiter(every time.Duration) *rate.Limiter {
	l := rate.NewLimiter(rate.Every(every), 1)
	l.Allow()
	return l
}
