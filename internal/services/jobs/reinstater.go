package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/usecases/lifecycle"
)

// ReinstaterJob возвращает доступ ошибочно кикнутым подпискам с действующей
// оплатой и добирает частично выданные инвайты
type ReinstaterJob struct {
	lifecycleService *lifecycle.Service
	log              *slog.Logger
}

func NewReinstaterJob(log *slog.Logger, lifecycleService *lifecycle.Service) *ReinstaterJob {
	return &ReinstaterJob{
		lifecycleService: lifecycleService,
		log:              log,
	}
}

func (j *ReinstaterJob) Name() string {
	return "reinstater"
}

// NextRun возвращает начало следующего часа
func (j *ReinstaterJob) NextRun(now time.Time) time.Time {
	return now.Truncate(time.Hour).Add(time.Hour)
}

func (j *ReinstaterJob) Run(ctx context.Context) error {
	now := time.Now()

	report, err := j.lifecycleService.ReinstateSweep(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to run reinstate sweep: %w", err)
	}

	grants, err := j.lifecycleService.RetryGrantSweep(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to run grant retry sweep: %w", err)
	}

	if report.Reinstated > 0 || grants.Granted > 0 {
		j.log.Info("reinstate pass finished",
			"checked", report.Checked,
			"reinstated", report.Reinstated,
			"granted", grants.Granted,
		)
	}

	return nil
}
