package events

import (
	"context"

	"github.com/admin/tg-bots/premium-club/internal/domain"
)

// IPaymentEventPublisher публикует принятые платежи во внешний аудит-стрим
type IPaymentEventPublisher interface {
	PublishPaymentAccepted(ctx context.Context, entry *domain.LedgerEntry, sub *domain.Subscription) error
	Close() error
}
