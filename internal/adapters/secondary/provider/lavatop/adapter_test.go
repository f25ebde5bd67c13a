package lavatop

import (
	"encoding/base64"
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
	return NewAdapter(&Config{
		APIKey:        "api-key-123",
		WebhookLogin:  "hooklogin",
		WebhookSecret: "hooksecret",
	}, slog.Default())
}

func basicAuth(login, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(login+":"+password))
}

func TestVerify_BasicAuth(t *testing.T) {
	a := newTestAdapter()

	headers := http.Header{}
	headers.Set("Authorization", basicAuth("hooklogin", "hooksecret"))
	assert.NoError(t, a.Verify(headers, nil))

	headers.Set("Authorization", basicAuth("hooklogin", "wrong"))
	assert.True(t, domain.IsAuthenticityError(a.Verify(headers, nil)))
}

func TestVerify_Bearer(t *testing.T) {
	a := newTestAdapter()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer api-key-123")
	assert.NoError(t, a.Verify(headers, nil))

	headers.Set("Authorization", "Bearer nope")
	assert.True(t, domain.IsAuthenticityError(a.Verify(headers, nil)))
}

func TestVerify_APIKeyHeader(t *testing.T) {
	a := newTestAdapter()

	headers := http.Header{}
	headers.Set("X-Api-Key", "api-key-123")
	assert.NoError(t, a.Verify(headers, nil))
}

func TestVerify_NoCredentials(t *testing.T) {
	a := newTestAdapter()
	assert.True(t, domain.IsAuthenticityError(a.Verify(http.Header{}, nil)))
}

func TestNormalize_PaymentSuccess(t *testing.T) {
	a := newTestAdapter()

	body := []byte(`{
		"eventType": "payment.success",
		"contractId": "ctr-1",
		"status": "completed",
		"amount": 4000,
		"currency": "RUB",
		"buyerEmail": "123456789@customer.lava.top",
		"offer": {"periodicity": "MONTHLY"}
	}`)

	event, err := a.Normalize(body)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, domain.ProviderLavaTop, event.Provider)
	assert.Equal(t, "ctr-1", event.ProviderTransactionID)
	assert.Equal(t, domain.CurrencyRUB, event.Currency)
	assert.Equal(t, "MONTHLY", event.PeriodicityHint)
	assert.True(t, event.GrossAmount.Equal(decimal.NewFromInt(4000)))
	// net не прислан: доводится по комиссии 8%
	assert.True(t, event.NetAmount.Equal(decimal.NewFromInt(3680)))
	require.NotNil(t, event.Identity.TelegramID)
	assert.Equal(t, int64(123456789), *event.Identity.TelegramID)
}

func TestNormalize_BuyerFieldsTakePriority(t *testing.T) {
	a := newTestAdapter()

	body := []byte(`{
		"eventType": "subscription.recurring.payment.success",
		"contractId": "ctr-2",
		"status": "subscription-active",
		"amount": 4000,
		"currency": "RUB",
		"buyerAmount": 44,
		"buyerCurrency": "USD",
		"shopAmount": 40.48,
		"clientUtm": {"utm_content": "telegram_id=555000111"}
	}`)

	event, err := a.Normalize(body)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, domain.CurrencyUSD, event.Currency)
	assert.True(t, event.GrossAmount.Equal(decimal.NewFromInt(44)))
	// net прислан явно, комиссия не применяется
	assert.True(t, event.NetAmount.Equal(decimal.NewFromFloat(40.48)))
	require.NotNil(t, event.Identity.TelegramID)
	assert.Equal(t, int64(555000111), *event.Identity.TelegramID)
}

func TestNormalize_UsernameFromUtm(t *testing.T) {
	a := newTestAdapter()

	body := []byte(`{
		"eventType": "payment.success",
		"contractId": "ctr-3",
		"status": "completed",
		"amount": 100,
		"clientUtm": {"utm_source": "telegram_username=alice_01"}
	}`)

	event, err := a.Normalize(body)
	require.NoError(t, err)
	require.NotNil(t, event)

	require.NotNil(t, event.Identity.Username)
	assert.Equal(t, "alice_01", *event.Identity.Username)
	assert.Nil(t, event.Identity.TelegramID)
	// валюты нет нигде - дефолт RUB
	assert.Equal(t, domain.CurrencyRUB, event.Currency)
}

func TestNormalize_UsernameFromEmail(t *testing.T) {
	a := newTestAdapter()

	body := []byte(`{
		"eventType": "payment.success",
		"contractId": "ctr-4",
		"status": "completed",
		"amount": 44,
		"currency": "USD",
		"buyerEmail": "bob_smith@customer.lava.top"
	}`)

	event, err := a.Normalize(body)
	require.NoError(t, err)
	require.NotNil(t, event)

	require.NotNil(t, event.Identity.Username)
	assert.Equal(t, "bob_smith", *event.Identity.Username)
	require.NotNil(t, event.Identity.Email)
}

func TestNormalize_IgnoresNonSuccessEvents(t *testing.T) {
	a := newTestAdapter()

	event, err := a.Normalize([]byte(`{"eventType": "payment.failed", "contractId": "x"}`))
	require.NoError(t, err)
	assert.Nil(t, event)

	event, err = a.Normalize([]byte(`{"eventType": "payment.success", "contractId": "x", "status": "pending"}`))
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestNormalize_MissingContractID(t *testing.T) {
	a := newTestAdapter()

	_, err := a.Normalize([]byte(`{"eventType": "payment.success", "status": "completed", "amount": 44}`))
	require.Error(t, err)
	assert.True(t, domain.IsAdapterError(err))
	assert.True(t, errors.Is(err, domain.ErrMissingTransactionID))
}

func TestNormalize_MalformedJSON(t *testing.T) {
	a := newTestAdapter()

	_, err := a.Normalize([]byte(`{broken`))
	assert.True(t, domain.IsAdapterError(err))
}
