package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/admin/tg-bots/premium-club/internal/ports/cache"
	"github.com/shopspring/decimal"
)

const (
	ratesCacheKey = "premium_club:rates"
	ratesCacheTTL = 48 * time.Hour
)

// Service конвертация сумм в учётную валюту (USD).
// Таблица курсов живёт в Redis, чтобы все инстансы считали одинаково;
// при недоступном кэше используется статическая таблица.
type Service struct {
	Cache cache.Cache
	Log   *slog.Logger
}

func New(c cache.Cache, log *slog.Logger) *Service {
	return &Service{
		Cache: c,
		Log:   log,
	}
}

// Current возвращает актуальную таблицу курсов.
// Ошибка кэша не фатальна — платежи важнее свежести курса.
func (s *Service) Current(ctx context.Context) domain.RateTable {
	if s.Cache == nil {
		return domain.DefaultRates()
	}

	raw, err := s.Cache.Get(ctx, ratesCacheKey)
	if err != nil {
		s.Log.Debug("rates cache miss, using defaults", "error", err)
		return domain.DefaultRates()
	}

	var stored map[domain.Currency]string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.Log.Warn("corrupt rates cache, using defaults", "error", err)
		return domain.DefaultRates()
	}

	table := domain.DefaultRates()
	for currency, value := range stored {
		rate, err := decimal.NewFromString(value)
		if err != nil || !rate.IsPositive() {
			s.Log.Warn("skipping invalid cached rate", "currency", currency, "value", value)
			continue
		}
		table[currency] = rate
	}
	return table
}

// Store записывает таблицу курсов в кэш
func (s *Service) Store(ctx context.Context, table domain.RateTable) error {
	if s.Cache == nil {
		return fmt.Errorf("rates cache is not configured")
	}

	stored := make(map[domain.Currency]string, len(table))
	for currency, rate := range table {
		stored[currency] = rate.String()
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal rates: %w", err)
	}

	if err := s.Cache.Set(ctx, ratesCacheKey, string(raw), ratesCacheTTL); err != nil {
		return fmt.Errorf("failed to store rates: %w", err)
	}

	s.Log.Debug("rates stored", "currencies", len(stored))
	return nil
}

// ToUSD нормализует сумму в учётную валюту: умножение на курс,
// округление half-up до 2 знаков. Для валюты без курса берётся 1:1
// (крипта уже приходит в USD-эквиваленте).
func ToUSD(amount decimal.Decimal, currency domain.Currency, table domain.RateTable) decimal.Decimal {
	rate, ok := table[currency]
	if !ok {
		rate = decimal.NewFromInt(1)
	}
	return amount.Mul(rate).Round(2)
}
