package services

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the background jobs: dispatching due notifications
// every minute.
type Scheduler struct {
	cron          *cron.Cron
	notifications *NotificationService
}

func NewScheduler(notifications *NotificationService) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		notifications: notifications,
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("* * * * *", func() {
		n, err := s.notifications.DispatchDue()
		if err != nil {
			slog.Error("notification dispatch failed", "error", err)
			return
		}
		if n > 0 {
			slog.Info("dispatched scheduled notifications", "count", n)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
