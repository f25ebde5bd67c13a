package payment

import (
	"context"
	"testing"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stuckEntry() *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:                    uuid.New(),
		Provider:              domain.ProviderOxProcessing,
		ProviderTransactionID: "0x-tx-1",
		Tariff:                domain.TariffGold,
		DaysAdded:             90,
		OriginalAmount:        decimal.NewFromInt(120),
		OriginalCurrency:      domain.CurrencyUSD,
		NormalizedAmount:      decimal.NewFromInt(120),
		AmountKind:            domain.AmountNet,
		NeedsReconciliation:   true,
		CreatedAt:             time.Now().Add(-2 * time.Hour),
	}
}

func TestResolveReconciliation_CorrectsAndApplies(t *testing.T) {
	original := stuckEntry()
	ledger := &fakeLedger{byTx: original}
	subs := &fakeSubRepo{}
	membership := &fakeIntakeMembership{granted: make(chan int64, 1)}
	notifier := &fakeIntakeNotifier{adminNotified: make(chan struct{}, 1)}
	svc := newIntakeService(&fakeAdapter{provider: domain.ProviderOxProcessing}, ledger, subs, membership, notifier)

	sub, err := svc.ResolveReconciliation(context.Background(), domain.ProviderOxProcessing, "0x-tx-1", 555)

	require.NoError(t, err)
	require.NotNil(t, sub)
	require.NotNil(t, sub.TelegramID)
	assert.Equal(t, int64(555), *sub.TelegramID)
	assert.Equal(t, domain.TariffGold, sub.Tariff)

	// оригинал не тронут, коррекция ссылается на него
	require.Len(t, ledger.compensating, 1)
	corrected := ledger.compensating[0]
	require.NotNil(t, corrected.CompensatesID)
	assert.Equal(t, original.ID, *corrected.CompensatesID)
	assert.False(t, corrected.NeedsReconciliation)
	require.NotNil(t, corrected.TelegramID)
	assert.Equal(t, int64(555), *corrected.TelegramID)

	// зачисление проходит обычные эффекты
	select {
	case id := <-membership.granted:
		assert.Equal(t, int64(555), id)
	case <-time.After(2 * time.Second):
		t.Fatal("grant was not invoked")
	}
}

func TestResolveReconciliation_RejectsAlreadyResolved(t *testing.T) {
	entry := stuckEntry()
	entry.NeedsReconciliation = false
	ledger := &fakeLedger{byTx: entry}
	svc := newIntakeService(&fakeAdapter{provider: domain.ProviderOxProcessing}, ledger, &fakeSubRepo{}, &fakeIntakeMembership{}, &fakeIntakeNotifier{})

	_, err := svc.ResolveReconciliation(context.Background(), domain.ProviderOxProcessing, "0x-tx-1", 555)

	require.Error(t, err)
	assert.Empty(t, ledger.compensating)
}

func TestResolveReconciliation_RejectsBadTelegramID(t *testing.T) {
	svc := newIntakeService(&fakeAdapter{provider: domain.ProviderOxProcessing}, &fakeLedger{}, &fakeSubRepo{}, &fakeIntakeMembership{}, &fakeIntakeNotifier{})

	_, err := svc.ResolveReconciliation(context.Background(), domain.ProviderOxProcessing, "0x-tx-1", 0)

	require.Error(t, err)
}
