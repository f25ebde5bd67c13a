package ledgerRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"log/slog"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/admin/tg-bots/premium-club/internal/ports/persistence"
	ports "github.com/admin/tg-bots/premium-club/internal/ports/repository"
	"github.com/google/uuid"
)

type ledgerColumns struct {
	TableName           string
	ID                  string
	Provider            string
	ProviderTxID        string
	TelegramID          string
	Username            string
	Email               string
	Tariff              string
	DaysAdded           string
	OriginalAmount      string
	OriginalCurrency    string
	NormalizedAmount    string
	AmountKind          string
	NeedsReconciliation string
	CompensatesID       string
	RawPayload          string
	CreatedAt           string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns ledgerColumns
}

// New создаёт новый репозиторий для работы с ledger платежей
func New(db persistence.Persistence, log *slog.Logger) ports.ILedgerRepo {
	cols := ledgerColumns{
		TableName:           "payment_ledger",
		ID:                  "id",
		Provider:            "provider",
		ProviderTxID:        "provider_tx_id",
		TelegramID:          "telegram_id",
		Username:            "username",
		Email:               "email",
		Tariff:              "tariff",
		DaysAdded:           "days_added",
		OriginalAmount:      "original_amount",
		OriginalCurrency:    "original_currency",
		NormalizedAmount:    "normalized_amount",
		AmountKind:          "amount_kind",
		NeedsReconciliation: "needs_reconciliation",
		CompensatesID:       "compensates_id",
		RawPayload:          "raw_payload",
		CreatedAt:           "created_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (16 полей)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.Provider,
		r.columns.ProviderTxID,
		r.columns.TelegramID,
		r.columns.Username,
		r.columns.Email,
		r.columns.Tariff,
		r.columns.DaysAdded,
		r.columns.OriginalAmount,
		r.columns.OriginalCurrency,
		r.columns.NormalizedAmount,
		r.columns.AmountKind,
		r.columns.NeedsReconciliation,
		r.columns.CompensatesID,
		r.columns.RawPayload,
		r.columns.CreatedAt,
	)
}

// TryAccept атомарная вставка-если-нет по (provider, provider_tx_id).
// ON CONFLICT DO NOTHING: из конкурентных доставок одной транзакции
// ровно одна получает Accepted=true, остальным возвращается существующая запись.
func (r *Repository) TryAccept(ctx context.Context, entry *domain.LedgerEntry) (*ports.AcceptResult, error) {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (%s, %s) WHERE %s IS NULL DO NOTHING`,
		r.columns.TableName,
		r.allColumns(),
		r.columns.Provider,
		r.columns.ProviderTxID,
		r.columns.CompensatesID,
	)

	rows, err := r.db.ExecWithResult(ctx, query,
		entry.ID,
		string(entry.Provider),
		entry.ProviderTransactionID,
		entry.TelegramID,
		entry.Username,
		entry.Email,
		string(entry.Tariff),
		entry.DaysAdded,
		entry.OriginalAmount,
		string(entry.OriginalCurrency),
		entry.NormalizedAmount,
		string(entry.AmountKind),
		entry.NeedsReconciliation,
		entry.CompensatesID,
		entry.RawPayload,
		entry.CreatedAt,
	)
	if err != nil {
		r.Log.Error("failed to insert ledger entry",
			"error", err,
			"provider", entry.Provider,
			"provider_tx_id", entry.ProviderTransactionID,
		)
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if rows == 0 {
		existing, err := r.GetByProviderTx(ctx, entry.Provider, entry.ProviderTransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing ledger entry: %w", err)
		}
		r.Log.Debug("duplicate payment event rejected",
			"provider", entry.Provider,
			"provider_tx_id", entry.ProviderTransactionID,
			"existing_id", existing.ID,
		)
		return &ports.AcceptResult{Accepted: false, Existing: existing}, nil
	}

	r.Log.Debug("ledger entry accepted",
		"ledger_id", entry.ID,
		"provider", entry.Provider,
		"provider_tx_id", entry.ProviderTransactionID,
	)
	return &ports.AcceptResult{Accepted: true}, nil
}

// CreateCompensating добавляет компенсирующую запись со ссылкой на оригинал.
// Оригинал не трогается — ledger append-only.
func (r *Repository) CreateCompensating(ctx context.Context, entry *domain.LedgerEntry, compensates uuid.UUID) error {
	entry.CompensatesID = &compensates

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		r.columns.TableName,
		r.allColumns(),
	)

	err := r.db.Exec(ctx, query,
		entry.ID,
		string(entry.Provider),
		entry.ProviderTransactionID,
		entry.TelegramID,
		entry.Username,
		entry.Email,
		string(entry.Tariff),
		entry.DaysAdded,
		entry.OriginalAmount,
		string(entry.OriginalCurrency),
		entry.NormalizedAmount,
		string(entry.AmountKind),
		entry.NeedsReconciliation,
		entry.CompensatesID,
		entry.RawPayload,
		entry.CreatedAt,
	)
	if err != nil {
		r.Log.Error("failed to create compensating entry",
			"error", err,
			"compensates_id", compensates,
		)
		return fmt.Errorf("failed to create compensating entry: %w", err)
	}

	r.Log.Debug("compensating entry created",
		"ledger_id", entry.ID,
		"compensates_id", compensates,
	)
	return nil
}

// GetByProviderTx получает запись по ключу идемпотентности
func (r *Repository) GetByProviderTx(ctx context.Context, provider domain.Provider, providerTxID string) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry

	// только оригинальная запись: коррекции носят тот же tx id
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2 AND %s IS NULL`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.Provider,
		r.columns.ProviderTxID,
		r.columns.CompensatesID,
	)

	err := r.db.Get(ctx, &entry, query, string(provider), providerTxID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ledger entry not found: %w", err)
		}
		r.Log.Error("failed to get ledger entry",
			"error", err,
			"provider", provider,
			"provider_tx_id", providerTxID,
		)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return &entry, nil
}

// ListNeedsReconciliation платежи без разрезолвленной идентичности (очередь оператора)
func (r *Repository) ListNeedsReconciliation(ctx context.Context) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry

	// оригинал остаётся needs_reconciliation=TRUE навсегда (append-only),
	// из очереди его выводит появившаяся коррекция
	query := fmt.Sprintf(`SELECT %s FROM %s l
		WHERE l.%s = TRUE AND l.%s IS NULL
		AND NOT EXISTS (SELECT 1 FROM %s c WHERE c.%s = l.%s)
		ORDER BY l.%s DESC`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.NeedsReconciliation,
		r.columns.CompensatesID,
		r.columns.TableName,
		r.columns.CompensatesID,
		r.columns.ID,
		r.columns.CreatedAt,
	)

	err := r.db.Select(ctx, &entries, query)
	if err != nil {
		r.Log.Error("failed to list reconciliation queue", "error", err)
		return nil, fmt.Errorf("failed to list reconciliation queue: %w", err)
	}

	return entries, nil
}
