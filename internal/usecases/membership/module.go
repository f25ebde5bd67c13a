package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	ports "github.com/admin/tg-bots/premium-club/internal/ports/repository"
	"github.com/admin/tg-bots/premium-club/internal/ports/service"
	"github.com/google/uuid"
)

type Config struct {
	ChannelID        int64 `envconfig:"CHANNEL_ID"`
	ChatID           int64 `envconfig:"CHAT_ID"`
	InviteTTLSeconds int64 `envconfig:"INVITE_TTL_SECONDS" default:"0"` // 0 = бессрочная одноразовая ссылка
	MaxAttempts      int   `envconfig:"MAX_ATTEMPTS" default:"3"`
}

// Service оркестратор доступа к каналу и чату.
// Каждая цель обрабатывается независимо: сбой по каналу не
// отменяет попытку по чату, частичный результат отдается вызывающему.
type Service struct {
	Platform   service.IMembershipPlatform
	ActionRepo ports.IMembershipActionRepo
	Alerter    service.IAlerterService
	Cfg        *Config
	Log        *slog.Logger
}

func New(
	platform service.IMembershipPlatform,
	actionRepo ports.IMembershipActionRepo,
	alerter service.IAlerterService,
	cfg *Config,
	log *slog.Logger,
) *Service {
	return &Service{
		Platform:   platform,
		ActionRepo: actionRepo,
		Alerter:    alerter,
		Cfg:        cfg,
		Log:        log,
	}
}

// Grant создаёт одноразовые invite-ссылки на канал и чат
func (s *Service) Grant(ctx context.Context, telegramID int64) (domain.GrantResult, error) {
	return s.GrantTargets(ctx, telegramID, true, true)
}

// GrantTargets выдача только указанных целей. Ретраи частичных сбоев
// передают сюда только ещё не выданные, чтобы не спамить ссылками.
func (s *Service) GrantTargets(ctx context.Context, telegramID int64, channel, chat bool) (domain.GrantResult, error) {
	var result domain.GrantResult

	var channelErr, chatErr error
	if channel {
		link, err := s.grantTarget(ctx, telegramID, domain.TargetChannel, s.Cfg.ChannelID)
		if err == nil {
			result.ChannelInvite = &link
		}
		channelErr = err
	}
	if chat {
		link, err := s.grantTarget(ctx, telegramID, domain.TargetChat, s.Cfg.ChatID)
		if err == nil {
			result.ChatInvite = &link
		}
		chatErr = err
	}

	if channelErr != nil || chatErr != nil {
		err := errors.Join(channelErr, chatErr)
		s.Log.Warn("grant incomplete",
			"telegram_id", telegramID,
			"channel_ok", channelErr == nil,
			"chat_ok", chatErr == nil,
			"error", err,
		)
		return result, fmt.Errorf("grant incomplete for %d: %w", telegramID, err)
	}

	return result, nil
}

// Revoke отзывает доступ к обеим целям
func (s *Service) Revoke(ctx context.Context, telegramID int64) (domain.RevokeResult, error) {
	return s.RevokeTargets(ctx, telegramID, true, true)
}

// RevokeTargets отзыв только указанных целей. Ретраи частичных сбоев
// передают сюда только ещё не отозванные цели.
func (s *Service) RevokeTargets(ctx context.Context, telegramID int64, channel, chat bool) (domain.RevokeResult, error) {
	result := domain.RevokeResult{
		ChannelRevoked: !channel, // что не просили — считаем сделанным
		ChatRevoked:    !chat,
	}

	var channelErr, chatErr error
	if channel {
		channelErr = s.revokeTarget(ctx, telegramID, domain.TargetChannel, s.Cfg.ChannelID)
		result.ChannelRevoked = channelErr == nil
	}
	if chat {
		chatErr = s.revokeTarget(ctx, telegramID, domain.TargetChat, s.Cfg.ChatID)
		result.ChatRevoked = chatErr == nil
	}

	if channelErr != nil || chatErr != nil {
		err := errors.Join(channelErr, chatErr)
		s.Log.Warn("revoke incomplete",
			"telegram_id", telegramID,
			"channel_ok", channelErr == nil,
			"chat_ok", chatErr == nil,
			"error", err,
		)
		return result, fmt.Errorf("revoke incomplete for %d: %w", telegramID, err)
	}

	return result, nil
}

func (s *Service) grantTarget(ctx context.Context, telegramID int64, target domain.MembershipTarget, chatID int64) (string, error) {
	var link string
	err := s.withRetry(ctx, func() error {
		var callErr error
		link, callErr = s.Platform.CreateInviteLink(ctx, chatID, s.Cfg.InviteTTLSeconds)
		return callErr
	})

	s.recordAction(ctx, &domain.MembershipAction{
		ID:          uuid.New(),
		TelegramID:  telegramID,
		Action:      domain.ActionGrant,
		Target:      target,
		Succeeded:   err == nil,
		ResultCode:  errorCode(err),
		Error:       errorText(err),
		InviteLink:  optionalLink(link, err),
		AttemptedAt: time.Now().UTC(),
	})

	if err != nil {
		s.alert(ctx, fmt.Sprintf("❗ Не удалось создать invite-ссылку\nЦель: %s\nКлиент: %d\nОшибка: %v", target, telegramID, err))
		return "", fmt.Errorf("create invite for %s: %w", target, err)
	}
	return link, nil
}

// revokeTarget исключает пользователя и сразу снимает бан (only_if_banned),
// чтобы будущая оплата снова пустила его по новой ссылке
func (s *Service) revokeTarget(ctx context.Context, telegramID int64, target domain.MembershipTarget, chatID int64) error {
	err := s.withRetry(ctx, func() error {
		if banErr := s.Platform.BanMember(ctx, chatID, telegramID); banErr != nil {
			return banErr
		}
		return s.Platform.UnbanMember(ctx, chatID, telegramID, true)
	})

	s.recordAction(ctx, &domain.MembershipAction{
		ID:          uuid.New(),
		TelegramID:  telegramID,
		Action:      domain.ActionRevoke,
		Target:      target,
		Succeeded:   err == nil,
		ResultCode:  errorCode(err),
		Error:       errorText(err),
		AttemptedAt: time.Now().UTC(),
	})

	if err != nil {
		s.alert(ctx, fmt.Sprintf("❗ Не удалось отозвать доступ\nЦель: %s\nКлиент: %d\nОшибка: %v", target, telegramID, err))
		return fmt.Errorf("revoke %s: %w", target, err)
	}
	return nil
}

// withRetry ограниченный экспоненциальный backoff; retry_after от
// rate limit платформы имеет приоритет над расчётной паузой
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	maxAttempts := s.Cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * time.Second
			var apiErr *domain.ExternalAPIError
			if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > 0 {
				delay = time.Duration(apiErr.RetryAfter) * time.Second
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		s.Log.Debug("membership platform call failed",
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"error", lastErr,
		)
	}
	return lastErr
}

// recordAction журнал попыток — сбой записи не роняет основную операцию
func (s *Service) recordAction(ctx context.Context, action *domain.MembershipAction) {
	if err := s.ActionRepo.Create(ctx, action); err != nil {
		s.Log.Error("failed to record membership action",
			"error", err,
			"telegram_id", action.TelegramID,
			"action", action.Action,
			"target", action.Target,
		)
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

func errorCode(err error) int {
	if err == nil {
		return 0
	}
	var apiErr *domain.ExternalAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return -1
}

func errorText(err error) *string {
	if err == nil {
		return nil
	}
	text := err.Error()
	return &text
}

func optionalLink(link string, err error) *string {
	if err != nil || link == "" {
		return nil
	}
	return &link
}
