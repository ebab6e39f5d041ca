package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "watchpost/pkg/logx"
)

// Job is one scheduled run. ctx is cancelled when the runner stops.
type Job func(ctx context.Context) error

type Options struct {
	// RunAtStart fires the job once as soon as Run starts.
	RunAtStart bool
	// Location for cron specs. Defaults to time.Local.
	Location *time.Location
}

// Runner fires a single job on a schedule. A tick that arrives while the
// previous run is still going is skipped.
type Runner struct {
	spec ParsedSpec
	job  Job
	log  logx.Logger
	opt  Options

	runs    atomic.Int64
	skipped atomic.Int64
	running atomic.Bool
}

func NewRunner(spec ParsedSpec, job Job, log logx.Logger, opt Options) (*Runner, error) {
	if job == nil {
		return nil, errors.New("scheduler: job is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if opt.Location == nil {
		opt.Location = time.Local
	}
	return &Runner{spec: spec, job: job, log: log, opt: opt}, nil
}

// Runs returns how many times the job has started.
func (r *Runner) Runs() int64 { return r.runs.Load() }

// Skipped returns how many ticks were dropped because a run was in progress.
func (r *Runner) Skipped() int64 { return r.skipped.Load() }

// Run blocks until ctx is done, then waits for an in-flight run to return.
func (r *Runner) Run(ctx context.Context) error {
	sched, err := r.schedule()
	if err != nil {
		return err
	}

	clog := cronLogger{log: r.log}
	wrapped := cron.NewChain(cron.Recover(clog), r.skipIfRunning()).Then(cron.FuncJob(func() {
		r.fire(ctx)
	}))

	c := cron.New(cron.WithLocation(r.opt.Location), cron.WithLogger(clog))
	c.Schedule(sched, wrapped)
	c.Start()
	r.log.Info("scheduler started",
		logx.String("kind", r.spec.Kind.String()),
		logx.String("schedule", r.spec.String()),
		logx.String("tz", r.opt.Location.String()),
	)

	if r.opt.RunAtStart {
		go wrapped.Run()
	}

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	// RunAtStart bypasses cron's own bookkeeping; wait for it too.
	for r.running.Load() {
		time.Sleep(10 * time.Millisecond)
	}
	r.log.Info("scheduler stopped", logx.Int64("runs", r.runs.Load()), logx.Int64("skipped", r.skipped.Load()))
	return nil
}

func (r *Runner) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n := r.runs.Add(1)
	start := time.Now()
	if err := r.job(ctx); err != nil {
		r.log.Warn("scheduled run failed", logx.Int64("run", n), logx.Duration("took", time.Since(start)), logx.Err(err))
		return
	}
	r.log.Debug("scheduled run done", logx.Int64("run", n), logx.Duration("took", time.Since(start)))
}

// skipIfRunning is cron.SkipIfStillRunning plus a skip counter and a running
// flag that Run can wait on.
func (r *Runner) skipIfRunning() cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			if !r.running.CompareAndSwap(false, true) {
				r.skipped.Add(1)
				r.log.Info("previous run still in progress; tick skipped")
				return
			}
			defer r.running.Store(false)
			j.Run()
		})
	}
}

func (r *Runner) schedule() (cron.Schedule, error) {
	switch r.spec.Kind {
	case SpecInterval:
		if r.spec.Every <= 0 {
			return nil, fmt.Errorf("scheduler: interval must be > 0")
		}
		return everySchedule(r.spec.Every), nil
	default:
		s, err := cronParser.Parse(r.spec.Cron)
		if err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
		return s, nil
	}
}

// everySchedule is a fixed interval measured from the previous activation.
// cron.Every rounds to whole seconds; this one does not.
type everySchedule time.Duration

func (e everySchedule) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

// cronLogger routes robfig/cron's internal logging into logx.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) { l.log.Trace("cron: "+msg, kvFields(kv)...) }

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
