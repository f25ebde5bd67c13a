package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/usecases/lifecycle"
)

// RenewalReminderJob раз в сутки напоминает о скором окончании подписки
type RenewalReminderJob struct {
	lifecycleService *lifecycle.Service
	log              *slog.Logger
}

func NewRenewalReminderJob(log *slog.Logger, lifecycleService *lifecycle.Service) *RenewalReminderJob {
	return &RenewalReminderJob{
		lifecycleService: lifecycleService,
		log:              log,
	}
}

func (j *RenewalReminderJob) Name() string {
	return "renewal_reminder"
}

// NextRun возвращает ближайшие 10:00 по Москве
func (j *RenewalReminderJob) NextRun(now time.Time) time.Time {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		loc = time.UTC
	}

	nowLocal := now.In(loc)
	next := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 10, 0, 0, 0, loc)
	if !next.After(nowLocal) {
		next = next.Add(24 * time.Hour)
	}

	return next
}

func (j *RenewalReminderJob) Run(ctx context.Context) error {
	report, err := j.lifecycleService.ReminderSweep(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to run reminder sweep: %w", err)
	}

	j.log.Info("reminder sweep finished",
		"checked", report.Checked,
		"reminded", report.Reminded,
	)

	return nil
}
