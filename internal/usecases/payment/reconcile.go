package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/google/uuid"
)

// ListReconciliationQueue платежи, ожидающие ручной сверки оператором
func (s *Service) ListReconciliationQueue(ctx context.Context) ([]domain.LedgerEntry, error) {
	return s.LedgerRepo.ListNeedsReconciliation(ctx)
}

// ResolveReconciliation ручная сверка: оператор указывает telegram_id для
// платежа, принятого без идентичности. Оригинальная запись не трогается —
// коррекция оформляется компенсирующей записью, после чего платёж проходит
// обычный путь зачисления и эффектов.
func (s *Service) ResolveReconciliation(ctx context.Context, prov domain.Provider, providerTxID string, telegramID int64) (*domain.Subscription, error) {
	if telegramID <= 0 {
		return nil, fmt.Errorf("telegram_id must be positive")
	}

	original, err := s.LedgerRepo.GetByProviderTx(ctx, prov, providerTxID)
	if err != nil {
		return nil, fmt.Errorf("reconciliation lookup failed: %w", err)
	}
	if !original.NeedsReconciliation {
		return nil, fmt.Errorf("ledger entry %s does not need reconciliation", original.ID)
	}

	now := time.Now().UTC()
	corrected := *original
	corrected.ID = uuid.New()
	corrected.TelegramID = &telegramID
	corrected.NeedsReconciliation = false
	corrected.CreatedAt = now

	if err := s.LedgerRepo.CreateCompensating(ctx, &corrected, original.ID); err != nil {
		return nil, fmt.Errorf("failed to record reconciliation: %w", err)
	}

	s.Log.Info("payment reconciled",
		"provider", prov,
		"provider_tx_id", providerTxID,
		"original_id", original.ID,
		"corrected_id", corrected.ID,
		"telegram_id", telegramID,
	)

	identity := domain.CustomerIdentity{
		TelegramID: &telegramID,
		Username:   original.Username,
		Email:      original.Email,
	}
	period := domain.PeriodFor(original.Tariff, original.DaysAdded)

	sub, err := s.SubscriptionRepo.ApplyPayment(ctx, identity, func(current *domain.Subscription) (*domain.Subscription, error) {
		return applyPaymentTo(current, identity, original.Provider, period, original.NormalizedAmount, now), nil
	})
	if err != nil {
		return nil, fmt.Errorf("payment reconciled but subscription not updated: %w", err)
	}

	renewal := sub.PaymentsCount > 1
	go s.runPostAcceptEffects(&corrected, sub, period, renewal)

	return sub, nil
}
