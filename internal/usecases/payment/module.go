package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/admin/tg-bots/premium-club/internal/ports/events"
	providerPort "github.com/admin/tg-bots/premium-club/internal/ports/provider"
	ports "github.com/admin/tg-bots/premium-club/internal/ports/repository"
	"github.com/admin/tg-bots/premium-club/internal/ports/service"
	"github.com/admin/tg-bots/premium-club/internal/usecases/rates"
	"github.com/google/uuid"
)

// effectsTimeout бюджет на пост-обработку принятого платежа
// (инвайты, welcome, отчёт админу) — выполняется вне request context
const effectsTimeout = 2 * time.Minute

// Service пайплайн приёма платёжного webhook:
// verify -> normalize -> фильтры -> ledger (граница долговечности) ->
// подписка -> асинхронные эффекты.
type Service struct {
	Adapters         map[domain.Provider]providerPort.IProviderAdapter
	LedgerRepo       ports.ILedgerRepo
	SubscriptionRepo ports.ISubscriptionRepo
	Membership       service.IMembershipService
	Notifier         service.INotifierService
	Alerter          service.IAlerterService
	Publisher        events.IPaymentEventPublisher // nil когда kafka выключена
	Rates            *rates.Service
	Log              *slog.Logger
}

func New(
	adapters []providerPort.IProviderAdapter,
	ledgerRepo ports.ILedgerRepo,
	subscriptionRepo ports.ISubscriptionRepo,
	membership service.IMembershipService,
	notifier service.INotifierService,
	alerter service.IAlerterService,
	publisher events.IPaymentEventPublisher,
	ratesService *rates.Service,
	log *slog.Logger,
) *Service {
	byProvider := make(map[domain.Provider]providerPort.IProviderAdapter, len(adapters))
	for _, adapter := range adapters {
		byProvider[adapter.Provider()] = adapter
	}
	return &Service{
		Adapters:         byProvider,
		LedgerRepo:       ledgerRepo,
		SubscriptionRepo: subscriptionRepo,
		Membership:       membership,
		Notifier:         notifier,
		Alerter:          alerter,
		Publisher:        publisher,
		Rates:            ratesService,
		Log:              log,
	}
}

// HandleWebhook принимает сырое webhook-уведомление провайдера.
// nil — провайдеру отвечаем 200 (включая дубликаты и игнорируемые события).
// AuthenticityError/AdapterError мапятся контроллером в 4xx, остальное в 5xx,
// чтобы провайдер ретраил до тех пор, пока мы не запишемся durably.
func (s *Service) HandleWebhook(ctx context.Context, prov domain.Provider, headers http.Header, body []byte) error {
	adapter, ok := s.Adapters[prov]
	if !ok {
		return &domain.AdapterError{Provider: prov, Err: fmt.Errorf("unknown provider")}
	}

	// Проверка подлинности строго первая: неподтверждённый запрос
	// не должен дойти до ledger
	if err := adapter.Verify(headers, body); err != nil {
		s.Log.Warn("webhook authenticity check failed",
			"provider", prov,
			"error", err,
		)
		return err
	}

	event, err := adapter.Normalize(body)
	if err != nil {
		s.Log.Error("webhook normalization failed",
			"provider", prov,
			"error", err,
		)
		s.alert(ctx, fmt.Sprintf("⚠️ Не удалось разобрать webhook от %s:\n%v", prov, err))
		return err
	}
	if event == nil {
		// не-success событие или тестовый платёж
		return nil
	}

	if err := s.processEvent(ctx, event); err != nil {
		// дубликат — явный success path: провайдеру 200, чтобы перестал ретраить
		if errors.Is(err, domain.ErrDuplicateEvent) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) processEvent(ctx context.Context, event *domain.PaymentEvent) error {
	log := s.Log.With(
		"provider", event.Provider,
		"provider_tx_id", event.ProviderTransactionID,
	)

	// фильтр тестовых платежей по минимальной сумме валюты
	if domain.IsBelowMinimum(event.GrossAmount, event.Currency) {
		log.Info("payment below currency minimum, ignoring",
			"amount", event.GrossAmount,
			"currency", event.Currency,
		)
		return nil
	}

	rateTable := s.Rates.Current(ctx)

	period, matched := domain.ResolvePeriod(event.PeriodicityHint, event.GrossAmount, event.Currency, rateTable)
	if !matched {
		log.Warn("tariff not resolved, using fallback",
			"periodicity", event.PeriodicityHint,
			"amount", event.GrossAmount,
			"currency", event.Currency,
		)
		s.alert(ctx, fmt.Sprintf("⚠️ Платёж %s/%s: тариф не распознан (%s %s), зачислено %d дней",
			event.Provider, event.ProviderTransactionID, event.GrossAmount, event.Currency, period.Days))
	}

	identity := s.resolveIdentity(ctx, event.Identity)
	normalizedUSD := rates.ToUSD(event.NetAmount, event.Currency, rateTable)
	now := time.Now().UTC()

	entry := &domain.LedgerEntry{
		ID:                    uuid.New(),
		Provider:              event.Provider,
		ProviderTransactionID: event.ProviderTransactionID,
		TelegramID:            identity.TelegramID,
		Username:              identity.Username,
		Email:                 identity.Email,
		Tariff:                period.Tariff,
		DaysAdded:             period.Days,
		OriginalAmount:        event.NetAmount,
		OriginalCurrency:      event.Currency,
		NormalizedAmount:      normalizedUSD,
		AmountKind:            event.AmountKind,
		NeedsReconciliation:   !identity.IsResolved() && identity.Username == nil,
		RawPayload:            event.RawPayload,
		CreatedAt:             now,
	}

	// граница долговечности: после успешного TryAccept провайдеру всегда 200
	accept, err := s.LedgerRepo.TryAccept(ctx, entry)
	if err != nil {
		return fmt.Errorf("ledger accept failed: %w", err)
	}
	if !accept.Accepted {
		log.Info("duplicate payment event, already processed",
			"existing_id", accept.Existing.ID,
		)
		return domain.ErrDuplicateEvent
	}

	log.Info("payment accepted",
		"ledger_id", entry.ID,
		"tariff", period.Tariff,
		"days", period.Days,
		"amount_usd", normalizedUSD,
	)

	// после принятия обрыв соединения провайдера не должен прервать обработку
	ctx = context.WithoutCancel(ctx)

	if entry.NeedsReconciliation {
		idErr := &domain.IdentityResolutionError{
			Provider:              event.Provider,
			ProviderTransactionID: event.ProviderTransactionID,
		}
		log.Warn("payment queued for reconciliation", "error", idErr)
		s.alert(ctx, fmt.Sprintf("❗ Платёж без идентичности клиента\nПровайдер: %s\nТранзакция: %s\nСумма: %s %s\nТребуется ручная сверка",
			event.Provider, event.ProviderTransactionID, event.NetAmount, event.Currency))
		return nil
	}

	sub, err := s.SubscriptionRepo.ApplyPayment(ctx, identity, func(current *domain.Subscription) (*domain.Subscription, error) {
		return applyPaymentTo(current, identity, event.Provider, period, normalizedUSD, now), nil
	})
	if err != nil {
		// платёж уже durably принят — провайдеру 200, оператору алерт
		log.Error("failed to apply payment to subscription", "error", err)
		s.alert(ctx, fmt.Sprintf("❗ Платёж принят, но подписка не обновлена\nПровайдер: %s\nТранзакция: %s\nОшибка: %v",
			event.Provider, event.ProviderTransactionID, err))
		return nil
	}

	renewal := sub.PaymentsCount > 1

	// эффекты не держат webhook-ответ и не зависят от request context
	go s.runPostAcceptEffects(entry, sub, period, renewal)

	return nil
}

// resolveIdentity доводит идентичность до telegram_id где возможно:
// username резолвится по базе подписок (case-insensitive)
func (s *Service) resolveIdentity(ctx context.Context, identity domain.CustomerIdentity) domain.CustomerIdentity {
	if identity.IsResolved() || identity.Username == nil {
		return identity
	}

	telegramID, err := s.SubscriptionRepo.FindTelegramIDByUsername(ctx, *identity.Username)
	if err != nil {
		s.Log.Warn("username resolution failed",
			"username", *identity.Username,
			"error", err,
		)
		return identity
	}
	if telegramID != nil {
		identity.TelegramID = telegramID
	}
	return identity
}

// runPostAcceptEffects выдача инвайтов, welcome-сообщение, отчёт админу
// и публикация аудит-события. Каждый шаг независим: сбой одного
// не отменяет остальные.
func (s *Service) runPostAcceptEffects(entry *domain.LedgerEntry, sub *domain.Subscription, period domain.Period, renewal bool) {
	ctx, cancel := context.WithTimeout(context.Background(), effectsTimeout)
	defer cancel()

	var invites domain.GrantResult
	if sub.TelegramID != nil {
		var err error
		invites, err = s.Membership.Grant(ctx, *sub.TelegramID)
		if err != nil {
			s.Log.Warn("grant after payment incomplete",
				"telegram_id", *sub.TelegramID,
				"error", err,
			)
		}

		if err := s.SubscriptionRepo.SetMembershipFlags(ctx, sub.ID, invites.ChannelInvite != nil, invites.ChatInvite != nil); err != nil {
			s.Log.Error("failed to update membership flags", "error", err, "subscription_id", sub.ID)
		}

		// кикнутый плательщик прошёл через reinstated; active — только после
		// полной выдачи доступа, иначе добор сделает grant-retry свип
		if sub.State == domain.MembershipReinstated && invites.AllGranted() {
			if _, err := s.SubscriptionRepo.TransitionState(ctx, sub.ID, domain.MembershipReinstated, domain.MembershipActive); err != nil {
				s.Log.Error("failed to activate reinstated subscription after payment",
					"error", err,
					"subscription_id", sub.ID,
				)
			}
		}

		if err := s.Notifier.SendWelcome(ctx, *sub.TelegramID, period, sub.ExpiresAt, renewal, invites); err != nil {
			s.Log.Warn("failed to send welcome message",
				"telegram_id", *sub.TelegramID,
				"error", err,
			)
		}
	} else {
		s.alert(ctx, fmt.Sprintf("⚠️ Подписка по username %s продлена, но telegram_id неизвестен — инвайты не выданы",
			stringOrEmpty(sub.Username)))
	}

	if err := s.Notifier.NotifyAdminPayment(ctx, entry, period, renewal); err != nil {
		s.Log.Warn("failed to notify admin about payment", "error", err)
	}

	if s.Publisher != nil {
		if err := s.Publisher.PublishPaymentAccepted(ctx, entry, sub); err != nil {
			s.Log.Warn("failed to publish payment event", "error", err)
		}
	}
}

func (s *Service) alert(ctx context.Context, message string) {
	if s.Alerter == nil {
		return
	}
	if err := s.Alerter.SendAlert(ctx, message); err != nil {
		s.Log.Warn("failed to send alert", "error", err)
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
