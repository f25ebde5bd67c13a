package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/admin/tg-bots/premium-club/internal/usecases/rates"
	"github.com/shopspring/decimal"
)

// RatesUpdaterJob периодически освежает таблицу курсов в кэше,
// накладывая оверрайды из конфига на статические значения
type RatesUpdaterJob struct {
	ratesService *rates.Service
	overrides    map[string]string
	interval     time.Duration
	log          *slog.Logger
}

func NewRatesUpdaterJob(
	log *slog.Logger,
	ratesService *rates.Service,
	overrides map[string]string,
	interval time.Duration,
) *RatesUpdaterJob {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	return &RatesUpdaterJob{
		ratesService: ratesService,
		overrides:    overrides,
		interval:     interval,
		log:          log,
	}
}

func (j *RatesUpdaterJob) Name() string {
	return "rates_updater"
}

func (j *RatesUpdaterJob) NextRun(now time.Time) time.Time {
	return now.Add(j.interval)
}

func (j *RatesUpdaterJob) Run(ctx context.Context) error {
	table := domain.DefaultRates()

	for code, value := range j.overrides {
		rate, err := decimal.NewFromString(value)
		if err != nil || !rate.IsPositive() {
			j.log.Warn("skipping invalid rate override", "currency", code, "value", value)
			continue
		}
		table[domain.Currency(code)] = rate
	}

	if err := j.ratesService.Store(ctx, table); err != nil {
		return fmt.Errorf("failed to refresh rates cache: %w", err)
	}

	return nil
}
