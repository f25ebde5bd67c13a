package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Tariff тарифный план подписки
type Tariff string

const (
	TariffClassic  Tariff = "classic"  // 30 дней
	TariffGold     Tariff = "gold"     // 90 дней
	TariffPlatinum Tariff = "platinum" // 180 дней
	TariffPrivate  Tariff = "private"  // 365 дней
	TariffUnknown  Tariff = "unknown"  // сумма не попала ни в один диапазон
)

// Period тариф с длительностью доступа
type Period struct {
	Tariff Tariff
	Name   string
	Days   int
}

func (p Period) Duration() time.Duration {
	return time.Duration(p.Days) * 24 * time.Hour
}

// PeriodFor восстанавливает период из сохранённых полей ledger-записи
func PeriodFor(tariff Tariff, days int) Period {
	return Period{Tariff: tariff, Name: strings.ToUpper(string(tariff)), Days: days}
}

// периоды по periodicity от Lava.top
var periodicityToPeriod = map[string]Period{
	"MONTHLY":         {Tariff: TariffClassic, Name: "CLASSIC", Days: 30},
	"PERIOD_90_DAYS":  {Tariff: TariffGold, Name: "GOLD", Days: 90},
	"PERIOD_180_DAYS": {Tariff: TariffPlatinum, Name: "PLATINUM", Days: 180},
	"PERIOD_YEAR":     {Tariff: TariffPrivate, Name: "PRIVATE", Days: 365},
}

type amountRange struct {
	min, max int64
	period   Period
}

// диапазоны сумм по валютам; широкие, чтобы учитывать комиссии сети
var amountToPeriod = map[Currency][]amountRange{
	CurrencyRUB: {
		{3500, 4500, Period{TariffClassic, "CLASSIC", 30}},
		{9500, 12500, Period{TariffGold, "GOLD", 90}},
		{17000, 25000, Period{TariffPlatinum, "PLATINUM", 180}},
		{34000, 50000, Period{TariffPrivate, "PRIVATE", 365}},
	},
	CurrencyUSD: {
		{40, 80, Period{TariffClassic, "CLASSIC", 30}},
		{100, 180, Period{TariffGold, "GOLD", 90}},
		{180, 300, Period{TariffPlatinum, "PLATINUM", 180}},
		{330, 550, Period{TariffPrivate, "PRIVATE", 365}},
	},
	CurrencyEUR: {
		{35, 55, Period{TariffClassic, "CLASSIC", 30}},
		{90, 140, Period{TariffGold, "GOLD", 90}},
		{170, 260, Period{TariffPlatinum, "PLATINUM", 180}},
		{330, 480, Period{TariffPrivate, "PRIVATE", 365}},
	},
}

// fallbackPeriod дефолт когда ни periodicity, ни сумма не дали тариф
var fallbackPeriod = Period{Tariff: TariffUnknown, Name: "UNKNOWN", Days: 30}

// ResolvePeriod определяет период подписки: сначала по periodicity,
// затем по сумме в валюте платежа, затем по сумме сконвертированной в USD.
// Для определения тарифа всегда используется GROSS сумма (сколько заплатил юзер).
func ResolvePeriod(periodicity string, grossAmount decimal.Decimal, currency Currency, rates RateTable) (Period, bool) {
	if periodicity != "" {
		if p, ok := periodicityToPeriod[periodicity]; ok {
			return p, true
		}
	}

	if p, ok := matchAmount(grossAmount, currency); ok {
		return p, true
	}

	// по USD-эквиваленту, если в родной валюте не нашли
	if rate, ok := rates[currency]; ok && currency != CurrencyUSD {
		if p, ok := matchAmount(grossAmount.Mul(rate), CurrencyUSD); ok {
			return p, true
		}
	}

	return fallbackPeriod, false
}

func matchAmount(amount decimal.Decimal, currency Currency) (Period, bool) {
	ranges, ok := amountToPeriod[currency]
	if !ok {
		return Period{}, false
	}
	for _, r := range ranges {
		if amount.GreaterThanOrEqual(decimal.NewFromInt(r.min)) && amount.LessThanOrEqual(decimal.NewFromInt(r.max)) {
			return r.period, true
		}
	}
	return Period{}, false
}

// TariffCardImages ключи картинок карт в S3-бакете по тарифу
var TariffCardImages = map[Tariff]string{
	TariffClassic:  "cards/classic.png",
	TariffGold:     "cards/gold.png",
	TariffPlatinum: "cards/platinum.png",
	TariffPrivate:  "cards/private.png",
}

// CardImageKey ключ картинки для тарифа, для unknown отдаём classic
func CardImageKey(t Tariff) string {
	if key, ok := TariffCardImages[t]; ok {
		return key
	}
	return TariffCardImages[TariffClassic]
}
