package rates

import (
	"context"
	"log/slog"
	"testing"

	"github.com/admin/tg-bots/premium-club/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUSD(t *testing.T) {
	rates := domain.DefaultRates()

	cases := []struct {
		name     string
		amount   decimal.Decimal
		currency domain.Currency
		expected string
	}{
		{"usd passthrough", decimal.NewFromInt(44), domain.CurrencyUSD, "44"},
		{"eur", decimal.NewFromInt(100), domain.CurrencyEUR, "108"},
		{"rub", decimal.NewFromInt(4000), domain.CurrencyRUB, "44"},
		{"rounding half up", decimal.NewFromFloat(3950.5), domain.CurrencyRUB, "43.46"},
		{"unknown currency 1:1", decimal.NewFromInt(70), domain.Currency("GBP"), "70"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToUSD(tc.amount, tc.currency, rates)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.expected)),
				"got %s, want %s", got, tc.expected)
		})
	}
}

func TestService_CurrentFallsBackToDefaults(t *testing.T) {
	svc := New(inmemory.NewCache(), slog.Default())

	// пустой кэш
	table := svc.Current(context.Background())
	assert.True(t, table[domain.CurrencyEUR].Equal(decimal.NewFromFloat(1.08)))
}

func TestService_StoreThenCurrent(t *testing.T) {
	ctx := context.Background()
	svc := New(inmemory.NewCache(), slog.Default())

	stored := domain.DefaultRates()
	stored[domain.CurrencyEUR] = decimal.NewFromFloat(1.12)
	require.NoError(t, svc.Store(ctx, stored))

	table := svc.Current(ctx)
	assert.True(t, table[domain.CurrencyEUR].Equal(decimal.NewFromFloat(1.12)))
	// незатронутые валюты остаются из дефолтов
	assert.True(t, table[domain.CurrencyUSD].Equal(decimal.NewFromInt(1)))
}

func TestService_CorruptCacheFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	cache := inmemory.NewCache()
	require.NoError(t, cache.Set(ctx, "premium_club:rates", "not json", 0))

	svc := New(cache, slog.Default())
	table := svc.Current(ctx)

	assert.True(t, table[domain.CurrencyRUB].Equal(decimal.NewFromFloat(0.011)))
}

func TestService_NilCache(t *testing.T) {
	svc := New(nil, slog.Default())

	table := svc.Current(context.Background())
	assert.True(t, table[domain.CurrencyUSD].Equal(decimal.NewFromInt(1)))

	assert.Error(t, svc.Store(context.Background(), domain.DefaultRates()))
}
