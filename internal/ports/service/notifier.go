package service

import (
	"context"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/domain"
)

// INotifierService отправка шаблонных сообщений пользователю и отчётов админу
type INotifierService interface {
	// SendWelcome приветствие с карточкой тарифа и кнопками-ссылками
	SendWelcome(ctx context.Context, telegramID int64, period domain.Period, until time.Time, renewal bool, invites domain.GrantResult) error

	// SendReminder напоминание о скором окончании подписки
	SendReminder(ctx context.Context, sub *domain.Subscription) error

	// SendKicked уведомление об отзыве доступа
	SendKicked(ctx context.Context, telegramID int64) error

	// SendReinstated уведомление о восстановлении доступа
	SendReinstated(ctx context.Context, telegramID int64, invites domain.GrantResult) error

	// NotifyAdminPayment отчёт админу о принятом платеже
	NotifyAdminPayment(ctx context.Context, entry *domain.LedgerEntry, period domain.Period, renewal bool) error

	// NotifyAdminSweep сводка по результатам свипа
	NotifyAdminSweep(ctx context.Context, report string) error
}
