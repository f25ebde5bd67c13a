package repository

import (
	"context"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/google/uuid"
)

// ISubscriptionRepo интерфейс для работы с подписками.
// Одна строка на клиента, upsert по идентичности.
type ISubscriptionRepo interface {
	// GetByTelegramID и GetByUsername возвращают (nil, nil), когда подписки нет
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Subscription, error)
	GetByUsername(ctx context.Context, username string) (*domain.Subscription, error)

	// FindTelegramIDByUsername поиск telegram_id по username (case-insensitive),
	// side channel для провайдеров, присылающих только username
	FindTelegramIDByUsername(ctx context.Context, username string) (*int64, error)

	// ApplyPayment продление/создание подписки под per-identity блокировкой.
	// fn получает текущее закоммиченное состояние (nil если подписки нет) и
	// возвращает новое; вся мутация выполняется в одной транзакции, так что
	// конкурентные продления сериализуются и max(now, expires_at) считается
	// от последнего закоммиченного значения, а не от устаревшего чтения.
	ApplyPayment(ctx context.Context, identity domain.CustomerIdentity, fn func(current *domain.Subscription) (*domain.Subscription, error)) (*domain.Subscription, error)

	// FindExpiredActive активные подписки с истёкшим сроком (кандидаты на отзыв)
	FindExpiredActive(ctx context.Context, now time.Time) ([]domain.Subscription, error)

	// FindExpiring подписки с expires_at внутри окна, по которым ещё не слали
	// напоминание за этот период (reminder_for != expires_at)
	FindExpiring(ctx context.Context, from, to time.Time) ([]domain.Subscription, error)

	// FindKickedForReinstate кикнутые с тегом reinstate и непросроченным сроком
	FindKickedForReinstate(ctx context.Context, now time.Time) ([]domain.Subscription, error)

	// FindPartiallyRevoked подписки в expired/kicked с невыполненными целями отзыва
	FindPartiallyRevoked(ctx context.Context) ([]domain.Subscription, error)

	// FindPartiallyGranted непросроченные подписки в active/reinstated,
	// у которых доступ выдан не по всем целям — кандидаты на повтор выдачи
	FindPartiallyGranted(ctx context.Context, now time.Time) ([]domain.Subscription, error)

	// TransitionState условный переход состояния: выполняется только если
	// строка всё ещё в from — повторный свип по той же строке будет no-op
	TransitionState(ctx context.Context, id uuid.UUID, from, to domain.MembershipState) (bool, error)

	// SetMembershipFlags обновляет per-target флаги доступа
	SetMembershipFlags(ctx context.Context, id uuid.UUID, inChannel, inChat bool) error

	// MarkReminderSent помечает период напоминания; условно по expires_at,
	// чтобы параллельный свип не отправил напоминание дважды
	MarkReminderSent(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error)
}
