package notifier

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/adapters/secondary/telegram"
	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessenger struct {
	photoErr error

	messages []telegram.SendMessageRequest
	photos   []telegram.SendPhotoRequest
}

func (f *fakeMessenger) SendMessageWithRequest(ctx context.Context, req telegram.SendMessageRequest) (*telegram.SendMessageResult, error) {
	f.messages = append(f.messages, req)
	return &telegram.SendMessageResult{}, nil
}

func (f *fakeMessenger) SendPhoto(ctx context.Context, req telegram.SendPhotoRequest) (string, error) {
	f.photos = append(f.photos, req)
	if f.photoErr != nil {
		return "", f.photoErr
	}
	return "file-id", nil
}

type fakeS3 struct {
	urlErr error
}

func (f *fakeS3) GetFile(ctx context.Context, path string) ([]byte, error) {
	return nil, nil
}

func (f *fakeS3) GetPresignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	return "https://s3.local/" + path, nil
}

func newTestNotifier(tg *fakeMessenger, s3 *fakeS3) *Service {
	svc := &Service{
		Telegram: tg,
		Cfg:      Config{AdminChatID: -100500},
		Log:      slog.Default(),
	}
	if s3 != nil {
		svc.S3 = s3
	}
	return svc
}

func welcomeArgs() (domain.Period, time.Time, domain.GrantResult) {
	link := "https://t.me/+abc"
	period := domain.Period{Tariff: domain.TariffClassic, Name: "CLASSIC", Days: 30}
	until := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	return period, until, domain.GrantResult{ChannelInvite: &link, ChatInvite: &link}
}

func TestSendWelcome_WithCard(t *testing.T) {
	tg := &fakeMessenger{}
	svc := newTestNotifier(tg, &fakeS3{})
	period, until, invites := welcomeArgs()

	err := svc.SendWelcome(context.Background(), 42, period, until, false, invites)

	require.NoError(t, err)
	require.Len(t, tg.photos, 1)
	assert.Empty(t, tg.messages)
	assert.Contains(t, tg.photos[0].Photo, "https://s3.local/")
	assert.NotNil(t, tg.photos[0].ReplyMarkup)
}

func TestSendWelcome_PhotoFailureFallsBackToText(t *testing.T) {
	tg := &fakeMessenger{photoErr: assert.AnError}
	svc := newTestNotifier(tg, &fakeS3{})
	period, until, invites := welcomeArgs()

	err := svc.SendWelcome(context.Background(), 42, period, until, false, invites)

	// клиент получает текст со ссылками, даже если карточка не ушла
	require.NoError(t, err)
	require.Len(t, tg.photos, 1)
	require.Len(t, tg.messages, 1)
	assert.Equal(t, int64(42), tg.messages[0].ChatID)
	assert.NotNil(t, tg.messages[0].ReplyMarkup)
}

func TestSendWelcome_NoCardSendsTextOnly(t *testing.T) {
	tg := &fakeMessenger{}
	svc := newTestNotifier(tg, &fakeS3{urlErr: assert.AnError})
	period, until, invites := welcomeArgs()

	err := svc.SendWelcome(context.Background(), 42, period, until, true, invites)

	require.NoError(t, err)
	assert.Empty(t, tg.photos)
	require.Len(t, tg.messages, 1)
}

func TestSendWelcome_NoS3ConfiguredSendsText(t *testing.T) {
	tg := &fakeMessenger{}
	svc := newTestNotifier(tg, nil)
	period, until, invites := welcomeArgs()

	err := svc.SendWelcome(context.Background(), 42, period, until, false, invites)

	require.NoError(t, err)
	assert.Empty(t, tg.photos)
	require.Len(t, tg.messages, 1)
}

func TestNotifyAdminPayment_GoesToAdminChat(t *testing.T) {
	tg := &fakeMessenger{}
	svc := newTestNotifier(tg, nil)
	period, _, _ := welcomeArgs()
	entry := &domain.LedgerEntry{Provider: domain.ProviderLavaTop}

	err := svc.NotifyAdminPayment(context.Background(), entry, period, false)

	require.NoError(t, err)
	require.Len(t, tg.messages, 1)
	assert.Equal(t, int64(-100500), tg.messages[0].ChatID)
}
