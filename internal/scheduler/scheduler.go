// Package scheduler runs research periodically on a cron schedule.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrMissingCron is returned when an enabled schedule has no expression.
var ErrMissingCron = eris.New("scheduler: cron_expression is required")

// Config describes a research schedule.
type Config struct {
	Enabled                bool   `json:"enabled"`
	CronExpression         string `json:"cron_expression"`
	IncludeCasinoDiscovery *bool  `json:"include_casino_discovery,omitempty"`
	IncludeOfferResearch   *bool  `json:"include_offer_research,omitempty"`
}

// Job is the scheduled work. It receives the schedule it was started with.
type Job func(ctx context.Context, cfg Config) error

// Status reports the scheduler state.
type Status struct {
	Running        bool       `json:"is_running"`
	Message        string     `json:"message"`
	CronExpression string     `json:"cron_expression,omitempty"`
	NextRun        *time.Time `json:"next_run,omitempty"`
	LastRun        *time.Time `json:"last_run,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
}

// Scheduler owns at most one scheduled job.
type Scheduler struct {
	job Job

	mu      sync.Mutex
	cron    *cron.Cron
	cfg     Config
	cancel  context.CancelFunc
	lastRun *time.Time
	lastErr string
	now     func() time.Time
}

// New creates a stopped scheduler for job.
func New(job Job) *Scheduler {
	return &Scheduler{job: job, now: time.Now}
}

// Start schedules the job. A disabled config is a no-op. Starting replaces
// any running schedule.
func (s *Scheduler) Start(cfg Config) error {
	if !cfg.Enabled {
		zap.L().Info("scheduled research is disabled")
		return nil
	}
	if cfg.CronExpression == "" {
		return ErrMissingCron
	}
	if _, err := cron.ParseStandard(cfg.CronExpression); err != nil {
		return eris.Wrapf(err, "scheduler: parse %q", cfg.CronExpression)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	logger := cronLogger{log: zap.L().Sugar()}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(cfg.CronExpression, func() { s.run(ctx, cfg) }); err != nil {
		cancel()
		return eris.Wrap(err, "scheduler: add job")
	}
	c.Start()

	s.cron, s.cfg, s.cancel = c, cfg, cancel
	zap.L().Info("scheduled research started", zap.String("cron", cfg.CronExpression))
	return nil
}

// Stop removes the schedule and cancels a job in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		zap.L().Info("scheduled research stopped")
	}
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cancel()
	s.cron, s.cancel, s.cfg = nil, nil, Config{}
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:   s.cron != nil,
		Message:   "Scheduled research is not running",
		LastRun:   s.lastRun,
		LastError: s.lastErr,
	}
	if s.cron != nil {
		st.Message = "Scheduled research is active"
		st.CronExpression = s.cfg.CronExpression
		if entries := s.cron.Entries(); len(entries) > 0 && !entries[0].Next.IsZero() {
			next := entries[0].Next
			st.NextRun = &next
		}
	}
	return st
}

func (s *Scheduler) run(ctx context.Context, cfg Config) {
	start := s.now()
	zap.L().Info("scheduled research starting")
	err := s.job(ctx, cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = &start
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
		zap.L().Error("scheduled research failed", zap.Error(err))
		return
	}
	zap.L().Info("scheduled research completed", zap.Duration("elapsed", s.now().Sub(start)))
}

// cronLogger routes cron's internal logging to zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
