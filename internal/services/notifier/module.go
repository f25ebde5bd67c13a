package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/adapters/secondary/telegram"
	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/admin/tg-bots/premium-club/internal/ports/storage"
)

const cardURLExpiry = 1 * time.Hour

// Config настройки нотификаций
type Config struct {
	AdminChatID   int64  `envconfig:"ADMIN_CHAT_ID" required:"true"`
	AdminThreadID *int64 `envconfig:"ADMIN_THREAD_ID"`
}

// messenger часть telegram-клиента, нужная нотификатору
type messenger interface {
	SendMessageWithRequest(ctx context.Context, req telegram.SendMessageRequest) (*telegram.SendMessageResult, error)
	SendPhoto(ctx context.Context, req telegram.SendPhotoRequest) (string, error)
}

// Service отправка шаблонных сообщений пользователям и отчётов админу
type Service struct {
	Telegram messenger
	S3       storage.IS3Client
	Cfg      Config
	Log      *slog.Logger
}

func New(tg *telegram.Client, s3 storage.IS3Client, cfg Config, log *slog.Logger) *Service {
	return &Service{
		Telegram: tg,
		S3:       s3,
		Cfg:      cfg,
		Log:      log,
	}
}

// SendWelcome отправляет приветствие с карточкой тарифа и кнопками-ссылками.
// Если карточку достать не удалось, шлём просто текст — оплата важнее картинки.
func (s *Service) SendWelcome(ctx context.Context, telegramID int64, period domain.Period, until time.Time, renewal bool, invites domain.GrantResult) error {
	text := FormatWelcome(period, renewal, until)
	keyboard := inviteKeyboard(invites)

	cardURL, err := s.cardURL(ctx, period.Tariff)
	if err != nil {
		s.Log.Warn("failed to get tariff card image, sending text only",
			"tariff", period.Tariff,
			"error", err,
		)
		return s.sendHTML(ctx, telegramID, text, keyboard)
	}

	if _, err := s.Telegram.SendPhoto(ctx, telegram.SendPhotoRequest{
		ChatID:      telegramID,
		Photo:       cardURL,
		Caption:     text,
		ParseMode:   "HTML",
		ReplyMarkup: keyboard,
	}); err != nil {
		s.Log.Warn("failed to send welcome photo, falling back to text",
			"telegram_id", telegramID,
			"tariff", period.Tariff,
			"error", err,
		)
		return s.sendHTML(ctx, telegramID, text, keyboard)
	}

	s.Log.Debug("welcome sent", "telegram_id", telegramID, "tariff", period.Tariff, "renewal", renewal)
	return nil
}

// SendReminder отправляет напоминание о скором окончании подписки
func (s *Service) SendReminder(ctx context.Context, sub *domain.Subscription) error {
	if sub.TelegramID == nil {
		return nil
	}
	return s.sendHTML(ctx, *sub.TelegramID, FormatReminder(sub), nil)
}

// SendKicked уведомляет об отзыве доступа
func (s *Service) SendKicked(ctx context.Context, telegramID int64) error {
	return s.sendHTML(ctx, telegramID, KickedMessage, nil)
}

// SendReinstated уведомляет о восстановлении доступа с новыми ссылками
func (s *Service) SendReinstated(ctx context.Context, telegramID int64, invites domain.GrantResult) error {
	return s.sendHTML(ctx, telegramID, ReinstatedHeader, inviteKeyboard(invites))
}

// NotifyAdminPayment шлёт админу отчёт о принятом платеже
func (s *Service) NotifyAdminPayment(ctx context.Context, entry *domain.LedgerEntry, period domain.Period, renewal bool) error {
	return s.sendAdmin(ctx, FormatAdminPayment(entry, period, renewal))
}

// NotifyAdminSweep шлёт админу сводку по свипу
func (s *Service) NotifyAdminSweep(ctx context.Context, report string) error {
	return s.sendAdmin(ctx, FormatAdminSweep(report))
}

func (s *Service) cardURL(ctx context.Context, tariff domain.Tariff) (string, error) {
	if s.S3 == nil {
		return "", fmt.Errorf("s3 storage is not configured")
	}
	return s.S3.GetPresignedURL(ctx, domain.CardImageKey(tariff), cardURLExpiry)
}

func (s *Service) sendHTML(ctx context.Context, chatID int64, text string, keyboard map[string]interface{}) error {
	_, err := s.Telegram.SendMessageWithRequest(ctx, telegram.SendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (s *Service) sendAdmin(ctx context.Context, text string) error {
	_, err := s.Telegram.SendMessageWithRequest(ctx, telegram.SendMessageRequest{
		ChatID:          s.Cfg.AdminChatID,
		Text:            text,
		ParseMode:       "HTML",
		MessageThreadID: s.Cfg.AdminThreadID,
	})
	if err != nil {
		return fmt.Errorf("failed to send admin notification: %w", err)
	}
	return nil
}
