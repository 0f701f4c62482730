package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/config"
	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/service/monitor"
	"github.com/mamadbah2/dairyfeed/internal/service/whatsapp"
)

const (
	jobStockCheck   = "stock_check"
	jobWeeklyReport = "weekly_report"
	jobDailyArchive = "daily_archive"
)

// StockSweeper runs the stock threshold sweep.
type StockSweeper interface {
	Sweep(ctx context.Context) (*monitor.SweepResult, error)
}

// Reporter builds the scheduled reports.
type Reporter interface {
	WeeklySummary(ctx context.Context, now time.Time) (string, error)
	ArchiveDailyReport(ctx context.Context, day time.Time) (*models.FeedReport, error)
}

// JobObserver records job outcomes.
type JobObserver interface {
	Observe(job string, took time.Duration, err error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron         *cron.Cron
	location     *time.Location
	sweeper      StockSweeper
	reporter     Reporter
	messagingSvc whatsapp.MessagingService
	observer     JobObserver
	cfg          config.Config
	logger       *zap.Logger
	now          func() time.Time
}

// NewScheduler creates a new scheduler instance. messagingSvc and observer may be nil.
func NewScheduler(cfg config.Config, sweeper StockSweeper, reporter Reporter, messagingSvc whatsapp.MessagingService, observer JobObserver, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	location := time.Local
	if cfg.Scheduler.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Scheduler.Timezone, err)
		}
		location = loc
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(location)),
		location:     location,
		sweeper:      sweeper,
		reporter:     reporter,
		messagingSvc: messagingSvc,
		observer:     observer,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("timezone", s.location.String()))

	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{jobStockCheck, s.cfg.Scheduler.StockCheckCron, s.checkStock},
		{jobWeeklyReport, s.cfg.Scheduler.ReportCron, s.sendWeeklyReport},
		{jobDailyArchive, s.cfg.Scheduler.ArchiveCron, s.archiveDailyReport},
	}

	for _, job := range jobs {
		if job.spec == "" {
			s.logger.Info("job disabled", zap.String("job", job.name))
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, job.run); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.spec, err)
		}
		s.logger.Info("job scheduled", zap.String("job", job.name), zap.String("spec", job.spec))
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) checkStock() {
	s.run(jobStockCheck, time.Minute, func(ctx context.Context) error {
		result, err := s.sweeper.Sweep(ctx)
		if err != nil {
			return err
		}
		s.logger.Info("stock check finished",
			zap.Int("checked", result.Checked),
			zap.Int("below_threshold", result.BelowThreshold),
			zap.Int("created", result.Created),
			zap.Bool("skipped", result.Skipped))
		return nil
	})
}

func (s *Scheduler) sendWeeklyReport() {
	s.run(jobWeeklyReport, 2*time.Minute, func(ctx context.Context) error {
		report, err := s.reporter.WeeklySummary(ctx, s.now().In(s.location))
		if err != nil {
			return fmt.Errorf("generate weekly report: %w", err)
		}

		if s.messagingSvc == nil || s.cfg.WhatsApp.AlertRecipient == "" {
			s.logger.Info("weekly report generated, no recipient configured")
			return nil
		}

		req := models.OutboundMessageRequest{
			To:      s.cfg.WhatsApp.AlertRecipient,
			Message: report,
		}
		if err := s.messagingSvc.SendOutbound(ctx, req); err != nil {
			return fmt.Errorf("send weekly report: %w", err)
		}
		s.logger.Info("weekly report sent successfully")
		return nil
	})
}

func (s *Scheduler) archiveDailyReport() {
	s.run(jobDailyArchive, 2*time.Minute, func(ctx context.Context) error {
		_, err := s.reporter.ArchiveDailyReport(ctx, s.now().In(s.location))
		return err
	})
}

func (s *Scheduler) run(job string, timeout time.Duration, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	took := time.Since(start)

	if s.observer != nil {
		s.observer.Observe(job, took, err)
	}
	if err != nil {
		s.logger.Error("job failed", zap.String("job", job), zap.Duration("took", took), zap.Error(err))
		return
	}
	s.logger.Debug("job finished", zap.String("job", job), zap.Duration("took", took))
}
