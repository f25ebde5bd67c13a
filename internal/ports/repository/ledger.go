package repository

import (
	"context"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/google/uuid"
)

// AcceptResult результат попытки принять платёжное событие
type AcceptResult struct {
	Accepted bool
	Existing *domain.LedgerEntry // заполнен при Accepted == false
}

// ILedgerRepo интерфейс для работы с ledger принятых платежей.
// Таблица append-only: записи никогда не обновляются и не удаляются.
type ILedgerRepo interface {
	// TryAccept атомарная вставка-если-нет по (provider, provider_tx_id).
	// Конкурентные доставки одной транзакции дают ровно один Accepted=true.
	TryAccept(ctx context.Context, entry *domain.LedgerEntry) (*AcceptResult, error)

	// CreateCompensating добавляет компенсирующую запись со ссылкой на оригинал
	CreateCompensating(ctx context.Context, entry *domain.LedgerEntry, compensates uuid.UUID) error

	GetByProviderTx(ctx context.Context, provider domain.Provider, providerTxID string) (*domain.LedgerEntry, error)

	// ListNeedsReconciliation платежи без разрезолвленной идентичности (очередь оператора)
	ListNeedsReconciliation(ctx context.Context) ([]domain.LedgerEntry, error)
}
