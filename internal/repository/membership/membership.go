package membershipRepo

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/admin/tg-bots/premium-club/internal/ports/persistence"
	ports "github.com/admin/tg-bots/premium-club/internal/ports/repository"
)

type membershipColumns struct {
	TableName   string
	ID          string
	TelegramID  string
	Action      string
	Target      string
	Succeeded   string
	ResultCode  string
	Error       string
	InviteLink  string
	AttemptedAt string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns membershipColumns
}

// New создаёт новый репозиторий для журнала действий над членством
func New(db persistence.Persistence, log *slog.Logger) ports.IMembershipActionRepo {
	cols := membershipColumns{
		TableName:   "membership_actions",
		ID:          "id",
		TelegramID:  "telegram_id",
		Action:      "action",
		Target:      "target",
		Succeeded:   "succeeded",
		ResultCode:  "result_code",
		Error:       "error",
		InviteLink:  "invite_link",
		AttemptedAt: "attempted_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (9 полей)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.TelegramID,
		r.columns.Action,
		r.columns.Target,
		r.columns.Succeeded,
		r.columns.ResultCode,
		r.columns.Error,
		r.columns.InviteLink,
		r.columns.AttemptedAt,
	)
}

// Create записывает попытку действия над членством (append-only)
func (r *Repository) Create(ctx context.Context, action *domain.MembershipAction) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.columns.TableName,
		r.allColumns(),
	)

	err := r.db.Exec(ctx, query,
		action.ID,
		action.TelegramID,
		string(action.Action),
		string(action.Target),
		action.Succeeded,
		action.ResultCode,
		action.Error,
		action.InviteLink,
		action.AttemptedAt,
	)
	if err != nil {
		r.Log.Error("failed to create membership action",
			"error", err,
			"telegram_id", action.TelegramID,
			"action", action.Action,
			"target", action.Target,
		)
		return fmt.Errorf("failed to create membership action: %w", err)
	}

	r.Log.Debug("membership action recorded",
		"telegram_id", action.TelegramID,
		"action", action.Action,
		"target", action.Target,
		"succeeded", action.Succeeded,
	)
	return nil
}

// ListByTelegramID история действий по клиенту, новые первыми
func (r *Repository) ListByTelegramID(ctx context.Context, telegramID int64, limit int) ([]domain.MembershipAction, error) {
	var actions []domain.MembershipAction

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s DESC LIMIT $2`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.TelegramID,
		r.columns.AttemptedAt,
	)

	err := r.db.Select(ctx, &actions, query, telegramID, limit)
	if err != nil {
		r.Log.Error("failed to list membership actions",
			"error", err,
			"telegram_id", telegramID,
		)
		return nil, fmt.Errorf("failed to list membership actions: %w", err)
	}

	return actions, nil
}
