package payment

import (
	"time"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// applyPaymentTo чистая функция продления: считает новое состояние подписки
// из текущего закоммиченного. Вызывается под per-identity блокировкой.
//
// Точка отсчёта — max(now, expires_at): ранняя оплата добавляет дни к
// остатку, оплата после истечения стартует от текущего момента.
func applyPaymentTo(
	current *domain.Subscription,
	identity domain.CustomerIdentity,
	provider domain.Provider,
	period domain.Period,
	paidUSD decimal.Decimal,
	now time.Time,
) *domain.Subscription {
	if current == nil {
		return &domain.Subscription{
			ID:            uuid.New(),
			TelegramID:    identity.TelegramID,
			Username:      identity.Username,
			Tariff:        period.Tariff,
			StartedAt:     now,
			ExpiresAt:     now.Add(period.Duration()),
			State:         domain.MembershipActive,
			PaymentsCount: 1,
			TotalPaidUSD:  paidUSD,
			LastPaymentAt: &now,
			LastProvider:  &provider,
			Tags:          domain.Tags{},
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	next := *current
	next.ExpiresAt = current.ExtendFrom(now).Add(period.Duration())

	// оплата реактивирует подписку, но кикнутый не прыгает сразу в active:
	// сначала reinstated, active — после успешной повторной выдачи доступа
	switch current.State {
	case domain.MembershipKicked, domain.MembershipReinstated:
		next.State = domain.MembershipReinstated
	default:
		next.State = domain.MembershipActive
	}
	next.PaymentsCount = current.PaymentsCount + 1
	next.TotalPaidUSD = current.TotalPaidUSD.Add(paidUSD)
	next.LastPaymentAt = &now
	next.LastProvider = &provider
	next.UpdatedAt = now

	// unknown-тариф не затирает известный: сумма не распозналась,
	// но дни всё равно добавлены
	if period.Tariff != domain.TariffUnknown {
		next.Tariff = period.Tariff
	}

	// идентичность дообогащается: провайдер мог прислать telegram_id
	// для строки, заведённой по username
	if current.TelegramID == nil && identity.TelegramID != nil {
		next.TelegramID = identity.TelegramID
	}
	if current.Username == nil && identity.Username != nil {
		next.Username = identity.Username
	}

	// метка reinstate отработала: оплата сама восстанавливает доступ
	if next.Tags.Has(domain.TagReinstate) {
		filtered := domain.Tags{}
		for _, tag := range next.Tags {
			if tag != domain.TagReinstate {
				filtered = append(filtered, tag)
			}
		}
		next.Tags = filtered
	}

	return &next
}
