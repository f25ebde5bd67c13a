package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry неизменяемая запись о принятом платеже.
// Строки никогда не обновляются: коррекции оформляются новыми
// компенсирующими записями со ссылкой на оригинал через CompensatesID.
type LedgerEntry struct {
	ID                    uuid.UUID       `json:"id" db:"id"`
	Provider              Provider        `json:"provider" db:"provider"`
	ProviderTransactionID string          `json:"provider_tx_id" db:"provider_tx_id"`
	TelegramID            *int64          `json:"telegram_id,omitempty" db:"telegram_id"`
	Username              *string         `json:"username,omitempty" db:"username"`
	Email                 *string         `json:"email,omitempty" db:"email"`
	Tariff                Tariff          `json:"tariff" db:"tariff"`
	DaysAdded             int             `json:"days_added" db:"days_added"`
	OriginalAmount        decimal.Decimal `json:"original_amount" db:"original_amount"` // net-сумма в валюте платежа
	OriginalCurrency      Currency        `json:"original_currency" db:"original_currency"`
	NormalizedAmount      decimal.Decimal `json:"normalized_amount" db:"normalized_amount"` // в учётной валюте (USD), half-up, 2 знака
	AmountKind            AmountKind      `json:"amount_kind" db:"amount_kind"`
	NeedsReconciliation   bool            `json:"needs_reconciliation" db:"needs_reconciliation"` // identity не разрезолвилась
	CompensatesID         *uuid.UUID      `json:"compensates_id,omitempty" db:"compensates_id"`
	RawPayload            json.RawMessage `json:"raw_payload,omitempty" db:"raw_payload"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
}
