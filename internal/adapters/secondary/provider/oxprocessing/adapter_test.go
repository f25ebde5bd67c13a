package oxprocessing

import (
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter() *Adapter {
	return NewAdapter(&Config{MerchantID: "merchant-1"}, slog.Default())
}

func TestVerify(t *testing.T) {
	a := newTestAdapter()

	assert.NoError(t, a.Verify(http.Header{}, []byte(`{"MerchantId": "merchant-1"}`)))
	assert.True(t, domain.IsAuthenticityError(a.Verify(http.Header{}, []byte(`{"MerchantId": "other"}`))))
	assert.True(t, domain.IsAuthenticityError(a.Verify(http.Header{}, []byte(`{}`))))
	assert.True(t, domain.IsAuthenticityError(a.Verify(http.Header{}, []byte(`not json`))))
}

func TestNormalize_Success(t *testing.T) {
	a := newTestAdapter()

	body := []byte(`{
		"Status": "Success",
		"MerchantId": "merchant-1",
		"PaymentId": "pay-1",
		"ClientId": "123456789",
		"AmountUSD": 52.3,
		"Currency": "BTC"
	}`)

	event, err := a.Normalize(body)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, "pay-1", event.ProviderTransactionID)
	require.NotNil(t, event.Identity.TelegramID)
	assert.Equal(t, int64(123456789), *event.Identity.TelegramID)
	assert.True(t, event.NetAmount.Equal(decimal.NewFromFloat(52.3)))
	assert.Equal(t, domain.AmountNet, event.AmountKind)
	// крипта всегда учитывается как USD
	assert.Equal(t, domain.CurrencyUSD, event.Currency)
}

func TestNormalize_UsernameClientID(t *testing.T) {
	a := newTestAdapter()

	body := []byte(`{"Status": "Completed", "PaymentId": "pay-2", "ClientId": "alice_01", "Amount": 44}`)

	event, err := a.Normalize(body)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Nil(t, event.Identity.TelegramID)
	require.NotNil(t, event.Identity.Username)
	assert.Equal(t, "alice_01", *event.Identity.Username)
	assert.True(t, event.NetAmount.Equal(decimal.NewFromInt(44)))
}

func TestNormalize_TransactionIDFallbacks(t *testing.T) {
	a := newTestAdapter()

	event, err := a.Normalize([]byte(`{"Status": "Success", "TransactionHash": "0xabc", "Amount": 10}`))
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "0xabc", event.ProviderTransactionID)

	event, err = a.Normalize([]byte(`{"Status": "Success", "BillingId": "bill-7", "Amount": 10}`))
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "bill-7", event.ProviderTransactionID)
}

func TestNormalize_MissingTransactionID(t *testing.T) {
	a := newTestAdapter()

	_, err := a.Normalize([]byte(`{"Status": "Success", "Amount": 10}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingTransactionID))
}

func TestNormalize_IgnoresNonSuccessAndTest(t *testing.T) {
	a := newTestAdapter()

	event, err := a.Normalize([]byte(`{"Status": "Pending", "PaymentId": "p"}`))
	require.NoError(t, err)
	assert.Nil(t, event)

	event, err = a.Normalize([]byte(`{"Status": "Success", "PaymentId": "p", "Test": true}`))
	require.NoError(t, err)
	assert.Nil(t, event)
}
