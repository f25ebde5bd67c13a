package domain

import "github.com/shopspring/decimal"

// Currency валюта платежа
type Currency string

const (
	CurrencyRUB  Currency = "RUB"
	CurrencyUSD  Currency = "USD"
	CurrencyEUR  Currency = "EUR"
	CurrencyUSDT Currency = "USDT"
)

// AccountingCurrency учётная валюта ledger — все суммы нормализуются в USD
const AccountingCurrency = CurrencyUSD

// RateTable курсы конвертации валют в USD
type RateTable map[Currency]decimal.Decimal

// DefaultRates статическая таблица курсов, используется пока джоба
// обновления курсов не записала актуальные значения
func DefaultRates() RateTable {
	return RateTable{
		CurrencyUSD:  decimal.NewFromInt(1),
		CurrencyUSDT: decimal.NewFromInt(1),
		CurrencyEUR:  decimal.NewFromFloat(1.08),
		CurrencyRUB:  decimal.NewFromFloat(0.011),
	}
}

// MinAmounts минимальные суммы по валютам для фильтрации тестовых платежей
var MinAmounts = map[Currency]decimal.Decimal{
	CurrencyRUB: decimal.NewFromInt(500),
	CurrencyUSD: decimal.NewFromInt(10),
	CurrencyEUR: decimal.NewFromInt(10),
}

// IsBelowMinimum true если сумма ниже порога тестового платежа для своей валюты.
// Валюты без порога (USDT и прочие крипто) не фильтруются.
func IsBelowMinimum(amount decimal.Decimal, currency Currency) bool {
	min, ok := MinAmounts[currency]
	if !ok {
		return false
	}
	return amount.LessThan(min)
}
