package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerIdentity идентичность клиента, извлечённая из webhook payload.
// TelegramID может отсутствовать (провайдер прислал только username или email) —
// тогда резолвинг по БД, а если и он не дал - платёж уходит на ручную сверку.
type CustomerIdentity struct {
	TelegramID *int64
	Username   *string
	Email      *string
}

// IsResolved true если известен telegram_id (можно выдавать доступ и слать сообщения)
func (ci CustomerIdentity) IsResolved() bool {
	return ci.TelegramID != nil && *ci.TelegramID > 0
}

// PaymentEvent нормализованное представление одного платёжного уведомления.
// Создаётся адаптером провайдера, потребляется один раз резолвером подписок.
type PaymentEvent struct {
	Provider              Provider
	ProviderTransactionID string // уникален в рамках провайдера; (provider, tx_id) — глобальный ключ идемпотентности
	Identity              CustomerIdentity
	GrossAmount           decimal.Decimal // сколько заплатил покупатель (для определения тарифа)
	NetAmount             decimal.Decimal // сколько пришло в магазин (для ledger)
	AmountKind            AmountKind      // что из этого провайдер прислал явно
	Currency              Currency
	PeriodicityHint       string // подсказка тарифа от провайдера, может быть пустой
	ReceivedAt            time.Time
	RawPayload            json.RawMessage // полный payload для аудита
}
