package lifecycle

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	ports "github.com/admin/tg-bots/premium-club/internal/ports/repository"
	"github.com/admin/tg-bots/premium-club/internal/ports/service"
)

const (
	// окно напоминаний: истечение "завтра" с допуском, чтобы
	// ежедневный запуск не проскакивал мимо границы суток
	reminderLead   = 24 * time.Hour
	reminderJitter = 3 * time.Hour
)

// SweepReport сводка одного прогона свипа для отчёта админу
type SweepReport struct {
	Checked    int
	Kicked     int
	Partial    int // действие прошло не по всем целям, будет ретрай
	Reminded   int
	Reinstated int
	Granted    int // доборы выдачи доступа
}

func (r SweepReport) String() string {
	return fmt.Sprintf("checked=%d kicked=%d partial=%d reminded=%d reinstated=%d granted=%d",
		r.Checked, r.Kicked, r.Partial, r.Reminded, r.Reinstated, r.Granted)
}

// Service свипы жизненного цикла подписок. Каждый проход идемпотентен:
// повторный запуск в том же периоде не дублирует кики и напоминания —
// состояние переходит условными UPDATE, напоминания помечаются маркером периода.
type Service struct {
	SubscriptionRepo ports.ISubscriptionRepo
	Membership       service.IMembershipService
	Notifier         service.INotifierService
	Alerter          service.IAlerterService
	Log              *slog.Logger
}

func New(
	subscriptionRepo ports.ISubscriptionRepo,
	membership service.IMembershipService,
	notifier service.INotifierService,
	alerter service.IAlerterService,
	log *slog.Logger,
) *Service {
	return &Service{
		SubscriptionRepo: subscriptionRepo,
		Membership:       membership,
		Notifier:         notifier,
		Alerter:          alerter,
		Log:              log,
	}
}

// ExpireSweep находит просроченные активные подписки и отзывает доступ.
// Клиент, успевший оплатить между выборкой и переходом, не кикается:
// условный UPDATE active->expired не найдёт строку.
func (s *Service) ExpireSweep(ctx context.Context, now time.Time) (SweepReport, error) {
	var report SweepReport

	expired, err := s.SubscriptionRepo.FindExpiredActive(ctx, now)
	if err != nil {
		return report, fmt.Errorf("expire sweep: %w", err)
	}
	report.Checked = len(expired)

	for _, sub := range expired {
		ok, err := s.SubscriptionRepo.TransitionState(ctx, sub.ID, domain.MembershipActive, domain.MembershipExpired)
		if err != nil {
			s.Log.Error("failed to mark subscription expired",
				"error", err,
				"subscription_id", sub.ID,
			)
			continue
		}
		if !ok {
			// успели продлить или другой свип уже обработал
			continue
		}

		if s.revokeAndFinalize(ctx, &sub) {
			report.Kicked++
		} else {
			report.Partial++
		}
	}

	s.Log.Info("expire sweep finished",
		"checked", report.Checked,
		"kicked", report.Kicked,
		"partial", report.Partial,
	)
	return report, nil
}

// RetryRevokeSweep добирает цели, не отозванные в прошлых свипах
func (s *Service) RetryRevokeSweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	pending, err := s.SubscriptionRepo.FindPartiallyRevoked(ctx)
	if err != nil {
		return report, fmt.Errorf("retry revoke sweep: %w", err)
	}
	report.Checked = len(pending)

	for _, sub := range pending {
		if s.revokeAndFinalize(ctx, &sub) {
			report.Kicked++
		} else {
			report.Partial++
		}
	}

	if report.Checked > 0 {
		s.Log.Info("revoke retry sweep finished",
			"checked", report.Checked,
			"kicked", report.Kicked,
			"partial", report.Partial,
		)
	}
	return report, nil
}

// RetryGrantSweep добирает цели, не выданные при оплате или восстановлении.
// Повторная ссылка создаётся только на недостающую цель; подписка в
// reinstated после полной выдачи доводится до active.
func (s *Service) RetryGrantSweep(ctx context.Context, now time.Time) (SweepReport, error) {
	var report SweepReport

	pending, err := s.SubscriptionRepo.FindPartiallyGranted(ctx, now)
	if err != nil {
		return report, fmt.Errorf("grant retry sweep: %w", err)
	}
	report.Checked = len(pending)

	for _, sub := range pending {
		if sub.TelegramID == nil {
			continue
		}

		invites, err := s.Membership.GrantTargets(ctx, *sub.TelegramID, !sub.InChannel, !sub.InChat)
		if err != nil {
			s.Log.Warn("grant retry incomplete, will retry next sweep",
				"subscription_id", sub.ID,
				"telegram_id", *sub.TelegramID,
				"error", err,
			)
		}

		inChannel := sub.InChannel || invites.ChannelInvite != nil
		inChat := sub.InChat || invites.ChatInvite != nil
		if err := s.SubscriptionRepo.SetMembershipFlags(ctx, sub.ID, inChannel, inChat); err != nil {
			s.Log.Error("failed to update membership flags after grant retry",
				"error", err,
				"subscription_id", sub.ID,
			)
			continue
		}

		if !inChannel || !inChat {
			report.Partial++
			continue
		}

		if sub.State == domain.MembershipReinstated {
			if _, err := s.SubscriptionRepo.TransitionState(ctx, sub.ID, domain.MembershipReinstated, domain.MembershipActive); err != nil {
				s.Log.Error("failed to activate reinstated subscription",
					"error", err,
					"subscription_id", sub.ID,
				)
				continue
			}
		}

		// новые ссылки должны дойти до клиента
		if err := s.Notifier.SendReinstated(ctx, *sub.TelegramID, invites); err != nil {
			s.Log.Warn("failed to send invite links after grant retry",
				"telegram_id", *sub.TelegramID,
				"error", err,
			)
		}
		report.Granted++
	}

	if report.Checked > 0 {
		s.Log.Info("grant retry sweep finished",
			"checked", report.Checked,
			"granted", report.Granted,
			"partial", report.Partial,
		)
	}
	return report, nil
}

// revokeAndFinalize отзывает ещё не отозванные цели; true когда
// обе цели сняты и подписка доведена до kicked
func (s *Service) revokeAndFinalize(ctx context.Context, sub *domain.Subscription) bool {
	if sub.TelegramID == nil {
		// кикать некого: доступ по инвайтам не выдавался
		_, err := s.SubscriptionRepo.TransitionState(ctx, sub.ID, domain.MembershipExpired, domain.MembershipKicked)
		if err != nil {
			s.Log.Error("failed to finalize subscription without telegram_id",
				"error", err,
				"subscription_id", sub.ID,
			)
			return false
		}
		return true
	}

	result, err := s.Membership.RevokeTargets(ctx, *sub.TelegramID, sub.InChannel, sub.InChat)
	if err != nil {
		s.Log.Warn("revoke incomplete, will retry next sweep",
			"subscription_id", sub.ID,
			"telegram_id", *sub.TelegramID,
			"error", err,
		)
	}

	inChannel := sub.InChannel && !result.ChannelRevoked
	inChat := sub.InChat && !result.ChatRevoked
	if err := s.SubscriptionRepo.SetMembershipFlags(ctx, sub.ID, inChannel, inChat); err != nil {
		s.Log.Error("failed to update membership flags after revoke",
			"error", err,
			"subscription_id", sub.ID,
		)
		return false
	}

	if inChannel || inChat {
		return false
	}

	kicked, err := s.SubscriptionRepo.TransitionState(ctx, sub.ID, domain.MembershipExpired, domain.MembershipKicked)
	if err != nil {
		s.Log.Error("failed to mark subscription kicked",
			"error", err,
			"subscription_id", sub.ID,
		)
		return false
	}
	if kicked {
		if err := s.Notifier.SendKicked(ctx, *sub.TelegramID); err != nil {
			s.Log.Warn("failed to send kicked notification",
				"telegram_id", *sub.TelegramID,
				"error", err,
			)
		}
	}
	return true
}

// ReminderSweep шлёт напоминания подпискам, истекающим завтра.
// Маркер периода (reminder_for = expires_at) гарантирует одно
// напоминание на период даже при параллельных запусках; продление
// сдвигает expires_at и тем самым взводит маркер заново.
func (s *Service) ReminderSweep(ctx context.Context, now time.Time) (SweepReport, error) {
	var report SweepReport

	from := now.Add(reminderLead - reminderJitter)
	to := now.Add(reminderLead + reminderJitter)

	expiring, err := s.SubscriptionRepo.FindExpiring(ctx, from, to)
	if err != nil {
		return report, fmt.Errorf("reminder sweep: %w", err)
	}
	report.Checked = len(expiring)

	for _, sub := range expiring {
		if sub.TelegramID == nil {
			continue
		}

		marked, err := s.SubscriptionRepo.MarkReminderSent(ctx, sub.ID, sub.ExpiresAt)
		if err != nil {
			s.Log.Error("failed to mark reminder",
				"error", err,
				"subscription_id", sub.ID,
			)
			continue
		}
		if !marked {
			continue
		}

		if err := s.Notifier.SendReminder(ctx, &sub); err != nil {
			s.Log.Warn("failed to send reminder",
				"telegram_id", *sub.TelegramID,
				"error", err,
			)
			continue
		}
		report.Reminded++
	}

	s.Log.Info("reminder sweep finished",
		"checked", report.Checked,
		"reminded", report.Reminded,
	)
	return report, nil
}

// ReinstateSweep восстанавливает доступ кикнутым клиентам с меткой reinstate
// (операторская пометка из CRM) и непросроченным сроком
func (s *Service) ReinstateSweep(ctx context.Context, now time.Time) (SweepReport, error) {
	var report SweepReport

	candidates, err := s.SubscriptionRepo.FindKickedForReinstate(ctx, now)
	if err != nil {
		return report, fmt.Errorf("reinstate sweep: %w", err)
	}
	report.Checked = len(candidates)

	for _, sub := range candidates {
		if sub.TelegramID == nil {
			continue
		}

		ok, err := s.SubscriptionRepo.TransitionState(ctx, sub.ID, domain.MembershipKicked, domain.MembershipReinstated)
		if err != nil || !ok {
			continue
		}

		invites, err := s.Membership.Grant(ctx, *sub.TelegramID)
		if err != nil {
			s.Log.Warn("reinstate grant incomplete",
				"subscription_id", sub.ID,
				"telegram_id", *sub.TelegramID,
				"error", err,
			)
		}

		if err := s.SubscriptionRepo.SetMembershipFlags(ctx, sub.ID, invites.ChannelInvite != nil, invites.ChatInvite != nil); err != nil {
			s.Log.Error("failed to update membership flags after reinstate",
				"error", err,
				"subscription_id", sub.ID,
			)
		}

		// active только после полной выдачи; иначе строка остаётся
		// в reinstated и недостающую цель доберёт grant-retry свип
		if !invites.AllGranted() {
			report.Partial++
			continue
		}

		if _, err := s.SubscriptionRepo.TransitionState(ctx, sub.ID, domain.MembershipReinstated, domain.MembershipActive); err != nil {
			s.Log.Error("failed to activate reinstated subscription",
				"error", err,
				"subscription_id", sub.ID,
			)
		}

		if err := s.Notifier.SendReinstated(ctx, *sub.TelegramID, invites); err != nil {
			s.Log.Warn("failed to send reinstated notification",
				"telegram_id", *sub.TelegramID,
				"error", err,
			)
		}
		report.Reinstated++
	}

	if report.Checked > 0 {
		s.Log.Info("reinstate sweep finished",
			"checked", report.Checked,
			"reinstated", report.Reinstated,
		)
	}
	return report, nil
}
