package digest

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/rosenban/rosenban/internal/config"
	"github.com/rosenban/rosenban/internal/model"
)

// Scheduler optionally drives digest runs from in-process cron schedules.
// The HTTP trigger keeps working either way; an external cron hitting the
// endpoint is the deployment default.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler registers the configured schedules. It returns nil when no
// schedule is set.
func NewScheduler(agg *Aggregator, cfg config.DigestConfig, logger *slog.Logger) (*Scheduler, error) {
	if cfg.DailySchedule == "" && cfg.WeeklySchedule == "" {
		return nil, nil
	}

	l := logger.With("layer", "service", "component", "digestScheduler")
	c := cron.New()

	run := func(freq model.Frequency) func() {
		return func() {
			sent, err := agg.Run(context.Background(), freq)
			if err != nil {
				l.Error("scheduled digest run failed",
					slog.String("frequency", string(freq)),
					slog.Any("error", err))
				return
			}
			l.Info("scheduled digest run complete",
				slog.String("frequency", string(freq)),
				slog.Int("sent", sent))
		}
	}

	if cfg.DailySchedule != "" {
		if _, err := c.AddFunc(cfg.DailySchedule, run(model.FrequencyDaily)); err != nil {
			return nil, err
		}
	}
	if cfg.WeeklySchedule != "" {
		if _, err := c.AddFunc(cfg.WeeklySchedule, run(model.FrequencyWeekly)); err != nil {
			return nil, err
		}
	}

	return &Scheduler{cron: c, logger: l}, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.logger.Info("digest scheduler started")
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("digest scheduler stopped")
}
