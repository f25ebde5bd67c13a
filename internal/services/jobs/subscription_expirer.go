package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/ports/service"
	"github.com/admin/tg-bots/premium-club/internal/usecases/lifecycle"
)

// SubscriptionExpirerJob снимает доступ у истёкших подписок раз в сутки
type SubscriptionExpirerJob struct {
	lifecycleService *lifecycle.Service
	notifierService  service.INotifierService
	log              *slog.Logger
}

func NewSubscriptionExpirerJob(
	log *slog.Logger,
	lifecycleService *lifecycle.Service,
	notifierService service.INotifierService,
) *SubscriptionExpirerJob {
	return &SubscriptionExpirerJob{
		lifecycleService: lifecycleService,
		notifierService:  notifierService,
		log:              log,
	}
}

func (j *SubscriptionExpirerJob) Name() string {
	return "subscription_expirer"
}

// NextRun возвращает ближайшие 03:00 по Москве
func (j *SubscriptionExpirerJob) NextRun(now time.Time) time.Time {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		loc = time.UTC
	}

	nowLocal := now.In(loc)
	next := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 3, 0, 0, 0, loc)
	if !next.After(nowLocal) {
		next = next.Add(24 * time.Hour)
	}

	return next
}

func (j *SubscriptionExpirerJob) Run(ctx context.Context) error {
	now := time.Now()

	expireReport, err := j.lifecycleService.ExpireSweep(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to run expire sweep: %w", err)
	}

	retryReport, err := j.lifecycleService.RetryRevokeSweep(ctx)
	if err != nil {
		return fmt.Errorf("failed to run revoke retry sweep: %w", err)
	}

	j.log.Info("expire sweep finished",
		"checked", expireReport.Checked,
		"kicked", expireReport.Kicked,
		"partial", expireReport.Partial,
		"retry_kicked", retryReport.Kicked,
	)

	summary := fmt.Sprintf("Истечения: %s\nДобор частичных отзывов: %s", expireReport.String(), retryReport.String())
	if err := j.notifierService.NotifyAdminSweep(ctx, summary); err != nil {
		j.log.Warn("failed to send sweep summary", "error", err)
	}

	return nil
}
