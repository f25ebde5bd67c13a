package subscriptionRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/admin/tg-bots/premium-club/internal/ports/persistence"
	ports "github.com/admin/tg-bots/premium-club/internal/ports/repository"
	"github.com/google/uuid"
)

type subscriptionColumns struct {
	TableName         string
	ID                string
	TelegramID        string
	Username          string
	Tariff            string
	StartedAt         string
	ExpiresAt         string
	MembershipState   string
	InChannel         string
	InChat            string
	PaymentsCount     string
	TotalPaidUSD      string
	LastPaymentAt     string
	LastPaymentMethod string
	ReminderFor       string
	Tags              string
	CreatedAt         string
	UpdatedAt         string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns subscriptionColumns
}

// New создаёт новый репозиторий для работы с подписками
func New(db persistence.Persistence, log *slog.Logger) ports.ISubscriptionRepo {
	cols := subscriptionColumns{
		TableName:         "subscriptions",
		ID:                "id",
		TelegramID:        "telegram_id",
		Username:          "username",
		Tariff:            "tariff",
		StartedAt:         "started_at",
		ExpiresAt:         "expires_at",
		MembershipState:   "membership_state",
		InChannel:         "in_channel",
		InChat:            "in_chat",
		PaymentsCount:     "payments_count",
		TotalPaidUSD:      "total_paid_usd",
		LastPaymentAt:     "last_payment_at",
		LastPaymentMethod: "last_payment_method",
		ReminderFor:       "reminder_for",
		Tags:              "tags",
		CreatedAt:         "created_at",
		UpdatedAt:         "updated_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (17 полей)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.TelegramID,
		r.columns.Username,
		r.columns.Tariff,
		r.columns.StartedAt,
		r.columns.ExpiresAt,
		r.columns.MembershipState,
		r.columns.InChannel,
		r.columns.InChat,
		r.columns.PaymentsCount,
		r.columns.TotalPaidUSD,
		r.columns.LastPaymentAt,
		r.columns.LastPaymentMethod,
		r.columns.ReminderFor,
		r.columns.Tags,
		r.columns.CreatedAt,
		r.columns.UpdatedAt,
	)
}

// GetByTelegramID получает подписку по telegram_id
func (r *Repository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Subscription, error) {
	var sub domain.Subscription

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.TelegramID,
	)

	err := r.db.Get(ctx, &sub, query, telegramID)
	if err != nil {
		// отсутствие подписки — не ошибка, клиент просто ещё не платил
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.Log.Error("failed to get subscription",
			"error", err,
			"telegram_id", telegramID,
		)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// GetByUsername получает подписку по username (case-insensitive)
func (r *Repository) GetByUsername(ctx context.Context, username string) (*domain.Subscription, error) {
	var sub domain.Subscription

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE LOWER(%s) = LOWER($1)`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.Username,
	)

	err := r.db.Get(ctx, &sub, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.Log.Error("failed to get subscription by username",
			"error", err,
			"username", username,
		)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// FindTelegramIDByUsername поиск telegram_id по username (case-insensitive).
// nil без ошибки когда пользователя с таким username нет.
func (r *Repository) FindTelegramIDByUsername(ctx context.Context, username string) (*int64, error) {
	var telegramID int64

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE LOWER(%s) = LOWER($1) AND %s IS NOT NULL`,
		r.columns.TelegramID,
		r.columns.TableName,
		r.columns.Username,
		r.columns.TelegramID,
	)

	err := r.db.Get(ctx, &telegramID, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.Log.Error("failed to resolve username",
			"error", err,
			"username", username,
		)
		return nil, fmt.Errorf("failed to resolve username: %w", err)
	}

	return &telegramID, nil
}

// identityLockKey детерминированный bigint-ключ advisory-блокировки для идентичности.
// Все платежи одного клиента сериализуются на одном ключе независимо от того,
// пришёл он как telegram_id или username.
func identityLockKey(identity domain.CustomerIdentity) int64 {
	h := fnv.New64a()
	if identity.TelegramID != nil {
		fmt.Fprintf(h, "telegram_id:%d", *identity.TelegramID)
	} else if identity.Username != nil {
		fmt.Fprintf(h, "username:%s", strings.ToLower(*identity.Username))
	} else if identity.Email != nil {
		fmt.Fprintf(h, "email:%s", strings.ToLower(*identity.Email))
	}
	return int64(h.Sum64())
}

// ApplyPayment выполняет fn над текущим закоммиченным состоянием подписки
// в одной транзакции под pg_advisory_xact_lock по идентичности.
// Конкурентные продления одного клиента выстраиваются в очередь, и каждое
// видит результат предыдущего — expires_at не убывает.
func (r *Repository) ApplyPayment(ctx context.Context, identity domain.CustomerIdentity, fn func(current *domain.Subscription) (*domain.Subscription, error)) (*domain.Subscription, error) {
	var result *domain.Subscription

	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		if err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", identityLockKey(identity)); err != nil {
			return fmt.Errorf("failed to acquire identity lock: %w", err)
		}

		current, err := r.loadForIdentity(ctx, tx, identity)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		if current == nil {
			if err := r.insertTx(ctx, tx, next); err != nil {
				return err
			}
		} else {
			next.ID = current.ID
			if err := r.updateTx(ctx, tx, next); err != nil {
				return err
			}
		}

		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.Log.Debug("subscription payment applied",
		"subscription_id", result.ID,
		"expires_at", result.ExpiresAt,
		"payments_count", result.PaymentsCount,
	)
	return result, nil
}

func (r *Repository) loadForIdentity(ctx context.Context, tx persistence.Transaction, identity domain.CustomerIdentity) (*domain.Subscription, error) {
	var (
		query string
		arg   interface{}
	)

	switch {
	case identity.TelegramID != nil:
		query = fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 FOR UPDATE`,
			r.allColumns(), r.columns.TableName, r.columns.TelegramID)
		arg = *identity.TelegramID
	case identity.Username != nil:
		query = fmt.Sprintf(`SELECT %s FROM %s WHERE LOWER(%s) = LOWER($1) FOR UPDATE`,
			r.allColumns(), r.columns.TableName, r.columns.Username)
		arg = *identity.Username
	default:
		return nil, fmt.Errorf("identity has neither telegram_id nor username")
	}

	var sub domain.Subscription
	err := tx.Get(ctx, &sub, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load subscription for identity: %w", err)
	}
	return &sub, nil
}

func (r *Repository) insertTx(ctx context.Context, tx persistence.Transaction, sub *domain.Subscription) error {
	tagsValue, err := sub.Tags.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		r.columns.TableName,
		r.allColumns(),
	)

	err = tx.Exec(ctx, query,
		sub.ID,
		sub.TelegramID,
		sub.Username,
		string(sub.Tariff),
		sub.StartedAt,
		sub.ExpiresAt,
		string(sub.State),
		sub.InChannel,
		sub.InChat,
		sub.PaymentsCount,
		sub.TotalPaidUSD,
		sub.LastPaymentAt,
		sub.LastProvider,
		sub.ReminderFor,
		tagsValue,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

func (r *Repository) updateTx(ctx context.Context, tx persistence.Transaction, sub *domain.Subscription) error {
	tagsValue, err := sub.Tags.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8,
		%s = $9, %s = $10, %s = $11, %s = $12, %s = $13, %s = $14, %s = NOW() WHERE %s = $15`,
		r.columns.TableName,
		r.columns.TelegramID,
		r.columns.Username,
		r.columns.Tariff,
		r.columns.StartedAt,
		r.columns.ExpiresAt,
		r.columns.MembershipState,
		r.columns.InChannel,
		r.columns.InChat,
		r.columns.PaymentsCount,
		r.columns.TotalPaidUSD,
		r.columns.LastPaymentAt,
		r.columns.LastPaymentMethod,
		r.columns.ReminderFor,
		r.columns.Tags,
		r.columns.UpdatedAt,
		r.columns.ID,
	)

	err = tx.Exec(ctx, query,
		sub.TelegramID,
		sub.Username,
		string(sub.Tariff),
		sub.StartedAt,
		sub.ExpiresAt,
		string(sub.State),
		sub.InChannel,
		sub.InChat,
		sub.PaymentsCount,
		sub.TotalPaidUSD,
		sub.LastPaymentAt,
		sub.LastProvider,
		sub.ReminderFor,
		tagsValue,
		sub.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

// FindExpiredActive активные подписки с истёкшим сроком — кандидаты на отзыв доступа
func (r *Repository) FindExpiredActive(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	var subs []domain.Subscription

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s < $2 ORDER BY %s`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.MembershipState,
		r.columns.ExpiresAt,
		r.columns.ExpiresAt,
	)

	err := r.db.Select(ctx, &subs, query, string(domain.MembershipActive), now)
	if err != nil {
		r.Log.Error("failed to find expired subscriptions", "error", err)
		return nil, fmt.Errorf("failed to find expired subscriptions: %w", err)
	}

	return subs, nil
}

// FindExpiring подписки с expires_at внутри окна, по которым ещё не слали
// напоминание за текущий период
func (r *Repository) FindExpiring(ctx context.Context, from, to time.Time) ([]domain.Subscription, error) {
	var subs []domain.Subscription

	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE %s = $1 AND %s >= $2 AND %s <= $3
		AND (%s IS NULL OR %s <> %s)
		ORDER BY %s`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.MembershipState,
		r.columns.ExpiresAt,
		r.columns.ExpiresAt,
		r.columns.ReminderFor,
		r.columns.ReminderFor,
		r.columns.ExpiresAt,
		r.columns.ExpiresAt,
	)

	err := r.db.Select(ctx, &subs, query, string(domain.MembershipActive), from, to)
	if err != nil {
		r.Log.Error("failed to find expiring subscriptions", "error", err)
		return nil, fmt.Errorf("failed to find expiring subscriptions: %w", err)
	}

	return subs, nil
}

// FindKickedForReinstate кикнутые клиенты с меткой reinstate и непросроченным сроком
func (r *Repository) FindKickedForReinstate(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	var subs []domain.Subscription

	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE %s = $1 AND %s @> $2::jsonb AND %s > $3
		ORDER BY %s`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.MembershipState,
		r.columns.Tags,
		r.columns.ExpiresAt,
		r.columns.ExpiresAt,
	)

	tagFilter := fmt.Sprintf(`["%s"]`, domain.TagReinstate)
	err := r.db.Select(ctx, &subs, query, string(domain.MembershipKicked), tagFilter, now)
	if err != nil {
		r.Log.Error("failed to find reinstate candidates", "error", err)
		return nil, fmt.Errorf("failed to find reinstate candidates: %w", err)
	}

	return subs, nil
}

// FindPartiallyRevoked подписки в expired/kicked, у которых хотя бы один
// из флагов доступа ещё не снят — кандидаты на повтор отзыва
func (r *Repository) FindPartiallyRevoked(ctx context.Context) ([]domain.Subscription, error) {
	var subs []domain.Subscription

	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE %s IN ($1, $2) AND (%s = TRUE OR %s = TRUE)
		ORDER BY %s`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.MembershipState,
		r.columns.InChannel,
		r.columns.InChat,
		r.columns.ExpiresAt,
	)

	err := r.db.Select(ctx, &subs, query, string(domain.MembershipExpired), string(domain.MembershipKicked))
	if err != nil {
		r.Log.Error("failed to find partially revoked subscriptions", "error", err)
		return nil, fmt.Errorf("failed to find partially revoked subscriptions: %w", err)
	}

	return subs, nil
}

// FindPartiallyGranted непросроченные подписки в active/reinstated, у которых
// хотя бы одна из целей доступа не выдана — кандидаты на повтор выдачи
func (r *Repository) FindPartiallyGranted(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	var subs []domain.Subscription

	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE %s IN ($1, $2) AND %s > $3 AND %s IS NOT NULL
		AND (%s = FALSE OR %s = FALSE)
		ORDER BY %s`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.MembershipState,
		r.columns.ExpiresAt,
		r.columns.TelegramID,
		r.columns.InChannel,
		r.columns.InChat,
		r.columns.ExpiresAt,
	)

	err := r.db.Select(ctx, &subs, query, string(domain.MembershipActive), string(domain.MembershipReinstated), now)
	if err != nil {
		r.Log.Error("failed to find partially granted subscriptions", "error", err)
		return nil, fmt.Errorf("failed to find partially granted subscriptions: %w", err)
	}

	return subs, nil
}

// TransitionState условный переход состояния: срабатывает только если строка
// всё ещё в from. Повторный свип по той же строке получает false и идёт дальше.
func (r *Repository) TransitionState(ctx context.Context, id uuid.UUID, from, to domain.MembershipState) (bool, error) {
	if !from.CanTransition(to) {
		return false, fmt.Errorf("invalid membership transition %s -> %s", from, to)
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2 AND %s = $3`,
		r.columns.TableName,
		r.columns.MembershipState,
		r.columns.UpdatedAt,
		r.columns.ID,
		r.columns.MembershipState,
	)

	rows, err := r.db.ExecWithResult(ctx, query, string(to), id, string(from))
	if err != nil {
		r.Log.Error("failed to transition membership state",
			"error", err,
			"subscription_id", id,
			"from", from,
			"to", to,
		)
		return false, fmt.Errorf("failed to transition membership state: %w", err)
	}

	if rows > 0 {
		r.Log.Debug("membership state transitioned",
			"subscription_id", id,
			"from", from,
			"to", to,
		)
	}
	return rows > 0, nil
}

// SetMembershipFlags обновляет per-target флаги доступа
func (r *Repository) SetMembershipFlags(ctx context.Context, id uuid.UUID, inChannel, inChat bool) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2, %s = NOW() WHERE %s = $3`,
		r.columns.TableName,
		r.columns.InChannel,
		r.columns.InChat,
		r.columns.UpdatedAt,
		r.columns.ID,
	)

	err := r.db.Exec(ctx, query, inChannel, inChat, id)
	if err != nil {
		r.Log.Error("failed to set membership flags",
			"error", err,
			"subscription_id", id,
		)
		return fmt.Errorf("failed to set membership flags: %w", err)
	}
	return nil
}

// MarkReminderSent помечает период напоминания значением expires_at.
// Условие отсекает гонку двух свипов: второй UPDATE не находит строку.
func (r *Repository) MarkReminderSent(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = NOW()
		WHERE %s = $2 AND %s = $3 AND (%s IS NULL OR %s <> $1)`,
		r.columns.TableName,
		r.columns.ReminderFor,
		r.columns.UpdatedAt,
		r.columns.ID,
		r.columns.ExpiresAt,
		r.columns.ReminderFor,
		r.columns.ReminderFor,
	)

	rows, err := r.db.ExecWithResult(ctx, query, expiresAt, id, expiresAt)
	if err != nil {
		r.Log.Error("failed to mark reminder sent",
			"error", err,
			"subscription_id", id,
		)
		return false, fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return rows > 0, nil
}
