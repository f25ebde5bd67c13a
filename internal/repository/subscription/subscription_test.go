package subscriptionRepo

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/admin/tg-bots/premium-club/internal/ports/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePersistence struct {
	getErr    error
	execRows  int64
	execErr   error
	execCalls int
}

func (f *fakePersistence) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return f.getErr
}

func (f *fakePersistence) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return nil
}

func (f *fakePersistence) Exec(ctx context.Context, query string, args ...interface{}) error {
	f.execCalls++
	return f.execErr
}

func (f *fakePersistence) ExecWithResult(ctx context.Context, query string, args ...interface{}) (int64, error) {
	f.execCalls++
	return f.execRows, f.execErr
}

func (f *fakePersistence) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	return nil, sql.ErrConnDone
}

func (f *fakePersistence) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	return sql.ErrConnDone
}

func TestGetByTelegramID_NoRowsIsNotAnError(t *testing.T) {
	db := &fakePersistence{getErr: sql.ErrNoRows}
	repo := New(db, slog.Default())

	sub, err := repo.GetByTelegramID(context.Background(), 100)

	// клиент без подписки — обычный случай, не ошибка
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestGetByUsername_NoRowsIsNotAnError(t *testing.T) {
	db := &fakePersistence{getErr: sql.ErrNoRows}
	repo := New(db, slog.Default())

	sub, err := repo.GetByUsername(context.Background(), "alice")

	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestGetByTelegramID_RealErrorPropagates(t *testing.T) {
	db := &fakePersistence{getErr: sql.ErrConnDone}
	repo := New(db, slog.Default())

	sub, err := repo.GetByTelegramID(context.Background(), 100)

	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Nil(t, sub)
}

func TestTransitionState_RejectsInvalidTransition(t *testing.T) {
	db := &fakePersistence{}
	repo := New(db, slog.Default())

	ok, err := repo.TransitionState(context.Background(), uuid.New(),
		domain.MembershipKicked, domain.MembershipActive)

	require.Error(t, err)
	assert.False(t, ok)
	// до базы не дошли: переход отверг state machine
	assert.Equal(t, 0, db.execCalls)
}

func TestTransitionState_LostRaceReturnsFalse(t *testing.T) {
	db := &fakePersistence{execRows: 0}
	repo := New(db, slog.Default())

	ok, err := repo.TransitionState(context.Background(), uuid.New(),
		domain.MembershipActive, domain.MembershipExpired)

	require.NoError(t, err)
	assert.False(t, ok)
}
