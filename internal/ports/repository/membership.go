package repository

import (
	"context"

	"github.com/admin/tg-bots/premium-club/internal/domain"
)

// IMembershipActionRepo интерфейс для журнала действий над членством (append-only)
type IMembershipActionRepo interface {
	Create(ctx context.Context, action *domain.MembershipAction) error
	ListByTelegramID(ctx context.Context, telegramID int64, limit int) ([]domain.MembershipAction, error)
}
