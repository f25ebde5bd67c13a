package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePeriod_ByPeriodicity(t *testing.T) {
	cases := []struct {
		periodicity string
		tariff      Tariff
		days        int
	}{
		{"MONTHLY", TariffClassic, 30},
		{"PERIOD_90_DAYS", TariffGold, 90},
		{"PERIOD_180_DAYS", TariffPlatinum, 180},
		{"PERIOD_YEAR", TariffPrivate, 365},
	}

	for _, tc := range cases {
		t.Run(tc.periodicity, func(t *testing.T) {
			// сумма мусорная: periodicity имеет приоритет
			period, ok := ResolvePeriod(tc.periodicity, decimal.NewFromInt(1), CurrencyRUB, DefaultRates())

			require.True(t, ok)
			assert.Equal(t, tc.tariff, period.Tariff)
			assert.Equal(t, tc.days, period.Days)
		})
	}
}

func TestResolvePeriod_ByAmount(t *testing.T) {
	cases := []struct {
		name     string
		amount   int64
		currency Currency
		tariff   Tariff
	}{
		{"rub classic", 4000, CurrencyRUB, TariffClassic},
		{"rub gold", 10000, CurrencyRUB, TariffGold},
		{"rub platinum lower bound", 17000, CurrencyRUB, TariffPlatinum},
		{"rub private upper bound", 50000, CurrencyRUB, TariffPrivate},
		{"usd classic", 50, CurrencyUSD, TariffClassic},
		{"usd private", 400, CurrencyUSD, TariffPrivate},
		{"eur gold", 100, CurrencyEUR, TariffGold},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			period, ok := ResolvePeriod("", decimal.NewFromInt(tc.amount), tc.currency, DefaultRates())

			require.True(t, ok)
			assert.Equal(t, tc.tariff, period.Tariff)
		})
	}
}

func TestResolvePeriod_UnknownPeriodicityFallsBackToAmount(t *testing.T) {
	period, ok := ResolvePeriod("WEEKLY", decimal.NewFromInt(4000), CurrencyRUB, DefaultRates())

	require.True(t, ok)
	assert.Equal(t, TariffClassic, period.Tariff)
}

func TestResolvePeriod_ByUSDConversion(t *testing.T) {
	// USDT без собственных диапазонов: 1:1 в USD, 55 попадает в classic
	period, ok := ResolvePeriod("", decimal.NewFromInt(55), CurrencyUSDT, DefaultRates())

	require.True(t, ok)
	assert.Equal(t, TariffClassic, period.Tariff)
}

func TestResolvePeriod_Unmatched(t *testing.T) {
	// 555 RUB не попадает ни в один диапазон ни в рублях, ни в USD-эквиваленте
	period, ok := ResolvePeriod("", decimal.NewFromInt(555), CurrencyRUB, DefaultRates())

	assert.False(t, ok)
	assert.Equal(t, TariffUnknown, period.Tariff)
	assert.Equal(t, 30, period.Days)
}

func TestResolvePeriod_AmountOutsideAllRanges(t *testing.T) {
	period, ok := ResolvePeriod("", decimal.NewFromInt(1000000), CurrencyUSD, DefaultRates())

	assert.False(t, ok)
	assert.Equal(t, TariffUnknown, period.Tariff)
}

func TestCardImageKey(t *testing.T) {
	assert.Equal(t, "cards/gold.png", CardImageKey(TariffGold))
	assert.Equal(t, "cards/classic.png", CardImageKey(TariffUnknown))
}

func TestIsBelowMinimum(t *testing.T) {
	assert.True(t, IsBelowMinimum(decimal.NewFromInt(100), CurrencyRUB))
	assert.False(t, IsBelowMinimum(decimal.NewFromInt(500), CurrencyRUB))
	assert.True(t, IsBelowMinimum(decimal.NewFromInt(5), CurrencyUSD))
	assert.False(t, IsBelowMinimum(decimal.NewFromInt(10), CurrencyEUR))

	// у крипты порога нет
	assert.False(t, IsBelowMinimum(decimal.NewFromFloat(0.01), CurrencyUSDT))
}
