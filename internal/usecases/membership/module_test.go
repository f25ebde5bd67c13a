package membership

import (
	"context"
	"log/slog"
	"testing"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	inviteFn func(chatID int64) (string, error)
	banFn    func(chatID int64) error

	inviteCalls []int64
	banCalls    []int64
	unbanCalls  []int64
}

func (f *fakePlatform) CreateInviteLink(ctx context.Context, chatID int64, expiresInSeconds int64) (string, error) {
	f.inviteCalls = append(f.inviteCalls, chatID)
	if f.inviteFn != nil {
		return f.inviteFn(chatID)
	}
	return "https://t.me/+invite", nil
}

func (f *fakePlatform) BanMember(ctx context.Context, chatID int64, userID int64) error {
	f.banCalls = append(f.banCalls, chatID)
	if f.banFn != nil {
		return f.banFn(chatID)
	}
	return nil
}

func (f *fakePlatform) UnbanMember(ctx context.Context, chatID int64, userID int64, onlyIfBanned bool) error {
	f.unbanCalls = append(f.unbanCalls, chatID)
	return nil
}

type fakeActionRepo struct {
	actions []domain.MembershipAction
}

func (f *fakeActionRepo) Create(ctx context.Context, action *domain.MembershipAction) error {
	f.actions = append(f.actions, *action)
	return nil
}

func (f *fakeActionRepo) ListByTelegramID(ctx context.Context, telegramID int64, limit int) ([]domain.MembershipAction, error) {
	return f.actions, nil
}

const (
	testChannelID = int64(-100200)
	testChatID    = int64(-100300)
)

func newTestMembership(platform *fakePlatform, repo *fakeActionRepo, maxAttempts int) *Service {
	return New(platform, repo, nil, &Config{
		ChannelID:   testChannelID,
		ChatID:      testChatID,
		MaxAttempts: maxAttempts,
	}, slog.Default())
}

func TestGrant_BothTargets(t *testing.T) {
	platform := &fakePlatform{}
	repo := &fakeActionRepo{}
	svc := newTestMembership(platform, repo, 1)

	result, err := svc.Grant(context.Background(), 42)

	require.NoError(t, err)
	require.NotNil(t, result.ChannelInvite)
	require.NotNil(t, result.ChatInvite)
	assert.Equal(t, []int64{testChannelID, testChatID}, platform.inviteCalls)

	require.Len(t, repo.actions, 2)
	for _, action := range repo.actions {
		assert.Equal(t, domain.ActionGrant, action.Action)
		assert.True(t, action.Succeeded)
		require.NotNil(t, action.InviteLink)
	}
}

func TestGrant_ChannelFailureKeepsChatInvite(t *testing.T) {
	platform := &fakePlatform{
		inviteFn: func(chatID int64) (string, error) {
			if chatID == testChannelID {
				return "", assert.AnError
			}
			return "https://t.me/+chat", nil
		},
	}
	repo := &fakeActionRepo{}
	svc := newTestMembership(platform, repo, 1)

	result, err := svc.Grant(context.Background(), 42)

	require.Error(t, err)
	assert.Nil(t, result.ChannelInvite)
	require.NotNil(t, result.ChatInvite)
	assert.Equal(t, "https://t.me/+chat", *result.ChatInvite)

	// обе попытки в журнале, с исходом каждой
	require.Len(t, repo.actions, 2)
	assert.False(t, repo.actions[0].Succeeded)
	assert.True(t, repo.actions[1].Succeeded)
}

func TestGrantTargets_OnlyRequestedTarget(t *testing.T) {
	platform := &fakePlatform{}
	repo := &fakeActionRepo{}
	svc := newTestMembership(platform, repo, 1)

	result, err := svc.GrantTargets(context.Background(), 42, false, true)

	require.NoError(t, err)
	// ссылка только на недостающую цель, канал не трогали
	assert.Nil(t, result.ChannelInvite)
	require.NotNil(t, result.ChatInvite)
	assert.Equal(t, []int64{testChatID}, platform.inviteCalls)
}

func TestRevokeTargets_OnlyRequestedTarget(t *testing.T) {
	platform := &fakePlatform{}
	repo := &fakeActionRepo{}
	svc := newTestMembership(platform, repo, 1)

	result, err := svc.RevokeTargets(context.Background(), 42, false, true)

	require.NoError(t, err)
	// канал не просили — считается отозванным
	assert.True(t, result.ChannelRevoked)
	assert.True(t, result.ChatRevoked)
	assert.Equal(t, []int64{testChatID}, platform.banCalls)
	assert.Equal(t, []int64{testChatID}, platform.unbanCalls)
}

func TestRevokeTargets_BanFailureReportsPartial(t *testing.T) {
	platform := &fakePlatform{
		banFn: func(chatID int64) error {
			if chatID == testChatID {
				return &domain.ExternalAPIError{Code: 400, Err: assert.AnError}
			}
			return nil
		},
	}
	repo := &fakeActionRepo{}
	svc := newTestMembership(platform, repo, 1)

	result, err := svc.RevokeTargets(context.Background(), 42, true, true)

	require.Error(t, err)
	assert.True(t, result.ChannelRevoked)
	assert.False(t, result.ChatRevoked)

	// код ошибки платформы попадает в журнал
	require.Len(t, repo.actions, 2)
	assert.Equal(t, 0, repo.actions[0].ResultCode)
	assert.Equal(t, 400, repo.actions[1].ResultCode)
}

func TestWithRetry_RecoversOnSecondAttempt(t *testing.T) {
	calls := 0
	platform := &fakePlatform{
		inviteFn: func(chatID int64) (string, error) {
			calls++
			if calls == 1 {
				return "", assert.AnError
			}
			return "https://t.me/+retry", nil
		},
	}
	repo := &fakeActionRepo{}
	svc := newTestMembership(platform, repo, 2)

	link, err := svc.grantTarget(context.Background(), 42, domain.TargetChannel, testChannelID)

	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+retry", link)
	assert.Equal(t, 2, calls)

	// в журнале одна итоговая запись, не по записи на попытку
	require.Len(t, repo.actions, 1)
	assert.True(t, repo.actions[0].Succeeded)
}

func TestWithRetry_CancelledContextStopsBackoff(t *testing.T) {
	platform := &fakePlatform{
		inviteFn: func(chatID int64) (string, error) {
			return "", assert.AnError
		},
	}
	svc := newTestMembership(platform, &fakeActionRepo{}, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.grantTarget(ctx, 42, domain.TargetChannel, testChannelID)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	// после первой неудачи backoff прерван отменой, повторов не было
	assert.Len(t, platform.inviteCalls, 1)
}
