package lifecycle

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSubscriptionRepo struct {
	mock.Mock
}

func (m *mockSubscriptionRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Subscription, error) {
	args := m.Called(ctx, telegramID)
	sub, _ := args.Get(0).(*domain.Subscription)
	return sub, args.Error(1)
}

func (m *mockSubscriptionRepo) GetByUsername(ctx context.Context, username string) (*domain.Subscription, error) {
	args := m.Called(ctx, username)
	sub, _ := args.Get(0).(*domain.Subscription)
	return sub, args.Error(1)
}

func (m *mockSubscriptionRepo) FindTelegramIDByUsername(ctx context.Context, username string) (*int64, error) {
	args := m.Called(ctx, username)
	id, _ := args.Get(0).(*int64)
	return id, args.Error(1)
}

func (m *mockSubscriptionRepo) ApplyPayment(ctx context.Context, identity domain.CustomerIdentity, fn func(*domain.Subscription) (*domain.Subscription, error)) (*domain.Subscription, error) {
	args := m.Called(ctx, identity, fn)
	sub, _ := args.Get(0).(*domain.Subscription)
	return sub, args.Error(1)
}

func (m *mockSubscriptionRepo) FindExpiredActive(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	args := m.Called(ctx, now)
	subs, _ := args.Get(0).([]domain.Subscription)
	return subs, args.Error(1)
}

func (m *mockSubscriptionRepo) FindExpiring(ctx context.Context, from, to time.Time) ([]domain.Subscription, error) {
	args := m.Called(ctx, from, to)
	subs, _ := args.Get(0).([]domain.Subscription)
	return subs, args.Error(1)
}

func (m *mockSubscriptionRepo) FindKickedForReinstate(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	args := m.Called(ctx, now)
	subs, _ := args.Get(0).([]domain.Subscription)
	return subs, args.Error(1)
}

func (m *mockSubscriptionRepo) FindPartiallyRevoked(ctx context.Context) ([]domain.Subscription, error) {
	args := m.Called(ctx)
	subs, _ := args.Get(0).([]domain.Subscription)
	return subs, args.Error(1)
}

func (m *mockSubscriptionRepo) FindPartiallyGranted(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	args := m.Called(ctx, now)
	subs, _ := args.Get(0).([]domain.Subscription)
	return subs, args.Error(1)
}

func (m *mockSubscriptionRepo) TransitionState(ctx context.Context, id uuid.UUID, from, to domain.MembershipState) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *mockSubscriptionRepo) SetMembershipFlags(ctx context.Context, id uuid.UUID, inChannel, inChat bool) error {
	args := m.Called(ctx, id, inChannel, inChat)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) MarkReminderSent(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error) {
	args := m.Called(ctx, id, expiresAt)
	return args.Bool(0), args.Error(1)
}

type mockMembership struct {
	mock.Mock
}

func (m *mockMembership) Grant(ctx context.Context, telegramID int64) (domain.GrantResult, error) {
	args := m.Called(ctx, telegramID)
	return args.Get(0).(domain.GrantResult), args.Error(1)
}

func (m *mockMembership) Revoke(ctx context.Context, telegramID int64) (domain.RevokeResult, error) {
	args := m.Called(ctx, telegramID)
	return args.Get(0).(domain.RevokeResult), args.Error(1)
}

func (m *mockMembership) GrantTargets(ctx context.Context, telegramID int64, channel, chat bool) (domain.GrantResult, error) {
	args := m.Called(ctx, telegramID, channel, chat)
	return args.Get(0).(domain.GrantResult), args.Error(1)
}

func (m *mockMembership) RevokeTargets(ctx context.Context, telegramID int64, channel, chat bool) (domain.RevokeResult, error) {
	args := m.Called(ctx, telegramID, channel, chat)
	return args.Get(0).(domain.RevokeResult), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendWelcome(ctx context.Context, telegramID int64, period domain.Period, until time.Time, renewal bool, invites domain.GrantResult) error {
	return m.Called(ctx, telegramID, period, until, renewal, invites).Error(0)
}

func (m *mockNotifier) SendReminder(ctx context.Context, sub *domain.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockNotifier) SendKicked(ctx context.Context, telegramID int64) error {
	return m.Called(ctx, telegramID).Error(0)
}

func (m *mockNotifier) SendReinstated(ctx context.Context, telegramID int64, invites domain.GrantResult) error {
	return m.Called(ctx, telegramID, invites).Error(0)
}

func (m *mockNotifier) NotifyAdminPayment(ctx context.Context, entry *domain.LedgerEntry, period domain.Period, renewal bool) error {
	return m.Called(ctx, entry, period, renewal).Error(0)
}

func (m *mockNotifier) NotifyAdminSweep(ctx context.Context, report string) error {
	return m.Called(ctx, report).Error(0)
}

// --- tests ---

func newTestService(repo *mockSubscriptionRepo, membership *mockMembership, notifier *mockNotifier) *Service {
	return New(repo, membership, notifier, nil, slog.Default())
}

func activeExpiredSub(telegramID int64) domain.Subscription {
	id := telegramID
	return domain.Subscription{
		ID:         uuid.New(),
		TelegramID: &id,
		State:      domain.MembershipActive,
		ExpiresAt:  time.Now().Add(-24 * time.Hour),
		InChannel:  true,
		InChat:     true,
	}
}

func TestExpireSweep_KicksExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	sub := activeExpiredSub(100)

	repo := new(mockSubscriptionRepo)
	membership := new(mockMembership)
	notifier := new(mockNotifier)

	repo.On("FindExpiredActive", ctx, now).Return([]domain.Subscription{sub}, nil)
	repo.On("TransitionState", ctx, sub.ID, domain.MembershipActive, domain.MembershipExpired).Return(true, nil)
	membership.On("RevokeTargets", ctx, int64(100), true, true).
		Return(domain.RevokeResult{ChannelRevoked: true, ChatRevoked: true}, nil)
	repo.On("SetMembershipFlags", ctx, sub.ID, false, false).Return(nil)
	repo.On("TransitionState", ctx, sub.ID, domain.MembershipExpired, domain.MembershipKicked).Return(true, nil)
	notifier.On("SendKicked", ctx, int64(100)).Return(nil)

	report, err := newTestService(repo, membership, notifier).ExpireSweep(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Kicked)
	assert.Equal(t, 0, report.Partial)
	repo.AssertExpectations(t)
	membership.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestExpireSweep_SkipsRenewedBetweenSelectAndUpdate(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	sub := activeExpiredSub(100)

	repo := new(mockSubscriptionRepo)
	membership := new(mockMembership)
	notifier := new(mockNotifier)

	repo.On("FindExpiredActive", ctx, now).Return([]domain.Subscription{sub}, nil)
	// условный переход не прошёл: клиент успел продлить
	repo.On("TransitionState", ctx, sub.ID, domain.MembershipActive, domain.MembershipExpired).Return(false, nil)

	report, err := newTestService(repo, membership, notifier).ExpireSweep(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 0, report.Kicked)
	membership.AssertNotCalled(t, "RevokeTargets", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExpireSweep_PartialRevokeKeepsFlags(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	sub := activeExpiredSub(100)

	repo := new(mockSubscriptionRepo)
	membership := new(mockMembership)
	notifier := new(mockNotifier)

	repo.On("FindExpiredActive", ctx, now).Return([]domain.Subscription{sub}, nil)
	repo.On("TransitionState", ctx, sub.ID, domain.MembershipActive, domain.MembershipExpired).Return(true, nil)
	// канал отозвался, чат нет
	membership.On("RevokeTargets", ctx, int64(100), true, true).
		Return(domain.RevokeResult{ChannelRevoked: true, ChatRevoked: false}, assert.AnError)
	repo.On("SetMembershipFlags", ctx, sub.ID, false, true).Return(nil)

	report, err := newTestService(repo, membership, notifier).ExpireSweep(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 0, report.Kicked)
	assert.Equal(t, 1, report.Partial)
	// до kicked не дошли, уведомление не отправлялось
	notifier.AssertNotCalled(t, "SendKicked", mock.Anything, mock.Anything)
}

func TestRetryRevokeSweep_FinishesPartials(t *testing.T) {
	ctx := context.Background()
	id := int64(200)
	sub := domain.Subscription{
		ID:         uuid.New(),
		TelegramID: &id,
		State:      domain.MembershipExpired,
		InChannel:  false,
		InChat:     true, // осталась одна цель
	}

	repo := new(mockSubscriptionRepo)
	membership := new(mockMembership)
	notifier := new(mockNotifier)

	repo.On("FindPartiallyRevoked", ctx).Return([]domain.Subscription{sub}, nil)
	membership.On("RevokeTargets", ctx, id, false, true).
		Return(domain.RevokeResult{ChannelRevoked: true, ChatRevoked: true}, nil)
	repo.On("SetMembershipFlags", ctx, sub.ID, false, false).Return(nil)
	repo.On("TransitionState", ctx, sub.ID, domain.MembershipExpired, domain.MembershipKicked).Return(true, nil)
	notifier.On("SendKicked", ctx, id).Return(nil)

	report, err := newTestService(repo, membership, notifier).RetryRevokeSweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Kicked)
	membership.AssertExpectations(t)
}

func TestReminderSweep_SendsOncePerPeriod(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	id := int64(300)
	sub := domain.Subscription{
		ID:         uuid.New(),
		TelegramID: &id,
		State:      domain.MembershipActive,
		ExpiresAt:  now.Add(24 * time.Hour),
	}
	already := domain.Subscription{
		ID:         uuid.New(),
		TelegramID: &id,
		State:      domain.MembershipActive,
		ExpiresAt:  now.Add(25 * time.Hour),
	}

	repo := new(mockSubscriptionRepo)
	notifier := new(mockNotifier)

	repo.On("FindExpiring", ctx, mock.Anything, mock.Anything).
		Return([]domain.Subscription{sub, already}, nil)
	repo.On("MarkReminderSent", ctx, sub.ID, sub.ExpiresAt).Return(true, nil)
	// параллельный свип уже пометил
	repo.On("MarkReminderSent", ctx, already.ID, already.ExpiresAt).Return(false, nil)
	notifier.On("SendReminder", ctx, mock.Anything).Return(nil).Once()

	report, err := newTestService(repo, new(mockMembership), notifier).ReminderSweep(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Reminded)
	notifier.AssertExpectations(t)
}

func TestReinstateSweep_GrantsAndActivates(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	id := int64(400)
	link := "https://t.me/+abc"
	sub := domain.Subscription{
		ID:         uuid.New(),
		TelegramID: &id,
		State:      domain.MembershipKicked,
		ExpiresAt:  now.Add(10 * 24 * time.Hour),
		Tags:       domain.Tags{domain.TagReinstate},
	}

	repo := new(mockSubscriptionRepo)
	membership := new(mockMembership)
	notifier := new(mockNotifier)

	repo.On("FindKickedForReinstate", ctx, now).Return([]domain.Subscription{sub}, nil)
	repo.On("TransitionState", ctx, sub.ID, domain.MembershipKicked, domain.MembershipReinstated).Return(true, nil)
	membership.On("Grant", ctx, id).Return(domain.GrantResult{ChannelInvite: &link, ChatInvite: &link}, nil)
	repo.On("SetMembershipFlags", ctx, sub.ID, true, true).Return(nil)
	repo.On("TransitionState", ctx, sub.ID, domain.MembershipReinstated, domain.MembershipActive).Return(true, nil)
	notifier.On("SendReinstated", ctx, id, mock.Anything).Return(nil)

	report, err := newTestService(repo, membership, notifier).ReinstateSweep(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Reinstated)
	repo.AssertExpectations(t)
}

func TestReinstateSweep_PartialGrantStaysReinstated(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	id := int64(400)
	link := "https://t.me/+abc"
	sub := domain.Subscription{
		ID:         uuid.New(),
		TelegramID: &id,
		State:      domain.MembershipKicked,
		ExpiresAt:  now.Add(10 * 24 * time.Hour),
		Tags:       domain.Tags{domain.TagReinstate},
	}

	repo := new(mockSubscriptionRepo)
	membership := new(mockMembership)
	notifier := new(mockNotifier)

	repo.On("FindKickedForReinstate", ctx, now).Return([]domain.Subscription{sub}, nil)
	repo.On("TransitionState", ctx, sub.ID, domain.MembershipKicked, domain.MembershipReinstated).Return(true, nil)
	// ссылка в канал создалась, в чат нет
	membership.On("Grant", ctx, id).Return(domain.GrantResult{ChannelInvite: &link}, assert.AnError)
	repo.On("SetMembershipFlags", ctx, sub.ID, true, false).Return(nil)

	report, err := newTestService(repo, membership, notifier).ReinstateSweep(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 0, report.Reinstated)
	assert.Equal(t, 1, report.Partial)
	// подписка осталась в reinstated, грант доберёт следующий свип
	repo.AssertNotCalled(t, "TransitionState", ctx, sub.ID, domain.MembershipReinstated, domain.MembershipActive)
	notifier.AssertNotCalled(t, "SendReinstated", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetryGrantSweep_GrantsOnlyMissingTarget(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	id := int64(500)
	link := "https://t.me/+chat"
	sub := domain.Subscription{
		ID:         uuid.New(),
		TelegramID: &id,
		State:      domain.MembershipReinstated,
		ExpiresAt:  now.Add(20 * 24 * time.Hour),
		InChannel:  true,
		InChat:     false, // не выдана одна цель
	}

	repo := new(mockSubscriptionRepo)
	membership := new(mockMembership)
	notifier := new(mockNotifier)

	repo.On("FindPartiallyGranted", ctx, now).Return([]domain.Subscription{sub}, nil)
	membership.On("GrantTargets", ctx, id, false, true).
		Return(domain.GrantResult{ChatInvite: &link}, nil)
	repo.On("SetMembershipFlags", ctx, sub.ID, true, true).Return(nil)
	repo.On("TransitionState", ctx, sub.ID, domain.MembershipReinstated, domain.MembershipActive).Return(true, nil)
	notifier.On("SendReinstated", ctx, id, mock.Anything).Return(nil)

	report, err := newTestService(repo, membership, notifier).RetryGrantSweep(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Granted)
	assert.Equal(t, 0, report.Partial)
	repo.AssertExpectations(t)
	membership.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRetryGrantSweep_RepeatedFailureStaysPartial(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	id := int64(500)
	sub := domain.Subscription{
		ID:         uuid.New(),
		TelegramID: &id,
		State:      domain.MembershipReinstated,
		ExpiresAt:  now.Add(20 * 24 * time.Hour),
		InChannel:  true,
		InChat:     false,
	}

	repo := new(mockSubscriptionRepo)
	membership := new(mockMembership)
	notifier := new(mockNotifier)

	repo.On("FindPartiallyGranted", ctx, now).Return([]domain.Subscription{sub}, nil)
	membership.On("GrantTargets", ctx, id, false, true).
		Return(domain.GrantResult{}, assert.AnError)
	repo.On("SetMembershipFlags", ctx, sub.ID, true, false).Return(nil)

	report, err := newTestService(repo, membership, notifier).RetryGrantSweep(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 0, report.Granted)
	assert.Equal(t, 1, report.Partial)
	repo.AssertNotCalled(t, "TransitionState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "SendReinstated", mock.Anything, mock.Anything, mock.Anything)
}
