package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/otabekdev/restockbot/internal/config"
	mongorepo "github.com/otabekdev/restockbot/internal/repository/mongodb"
	"github.com/otabekdev/restockbot/pkg/clients/telegram"
)

// Scheduler pushes a daily usage digest to the admin chat.
type Scheduler struct {
	cron     *cron.Cron
	activity mongorepo.Repository
	client   telegram.Client
	cfg      config.Config
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance. The cron runs in the
// configured timezone so the digest arrives at a fixed local hour.
func NewScheduler(cfg config.Config, activity mongorepo.Repository, client telegram.Client, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Activity.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Activity.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(location)),
		activity: activity,
		client:   client,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Start registers and starts the scheduled jobs.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.Activity.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.Activity.CronSchedule, s.sendDailyDigest); err != nil {
		s.logger.Error("failed to schedule daily digest", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sendDailyDigest() {
	if s.cfg.Telegram.AdminChatID == 0 {
		s.logger.Debug("no admin chat configured, skipping digest")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	summary, err := s.activity.Summary(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		s.logger.Error("failed to build usage digest", zap.Error(err))
		return
	}

	text := fmt.Sprintf("Активность за сутки: %d событий, %d чатов, %d обработанных отчетов.",
		summary.Events, summary.UniqueChats, summary.Completed)

	err = s.client.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID: s.cfg.Telegram.AdminChatID,
		Text:   text,
	})
	if err != nil {
		s.logger.Error("failed to send usage digest", zap.Error(err))
		return
	}

	s.logger.Info("usage digest sent")
}
