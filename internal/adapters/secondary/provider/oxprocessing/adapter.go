package oxprocessing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/shopspring/decimal"
)

var digitsOnlyRe = regexp.MustCompile(`^\d+$`)

// Adapter адаптер крипто-процессинга 0xprocessing.
// Все суммы приходят уже в USD-эквиваленте и после сетевых комиссий (net).
type Adapter struct {
	cfg *Config
	log *slog.Logger
}

func NewAdapter(cfg *Config, log *slog.Logger) *Adapter {
	return &Adapter{cfg: cfg, log: log}
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderOxProcessing
}

func (a *Adapter) AmountKind() domain.AmountKind {
	return domain.AmountNet
}

// verifyPayload минимальная часть payload для проверки подлинности
type verifyPayload struct {
	MerchantID string `json:"MerchantId"`
}

// Verify сверяет MerchantId из тела запроса с настроенным.
// Запрос без MerchantId не считается подлинным.
func (a *Adapter) Verify(headers http.Header, body []byte) error {
	var p verifyPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return &domain.AuthenticityError{Provider: domain.ProviderOxProcessing, Reason: "malformed payload"}
	}
	if p.MerchantID == "" {
		return &domain.AuthenticityError{Provider: domain.ProviderOxProcessing, Reason: "missing MerchantId"}
	}
	if p.MerchantID != a.cfg.MerchantID {
		return &domain.AuthenticityError{Provider: domain.ProviderOxProcessing, Reason: "invalid MerchantId"}
	}
	return nil
}

// webhookPayload поля webhook 0xprocessing (PascalCase)
type webhookPayload struct {
	Status          string      `json:"Status"`
	ClientID        string      `json:"ClientId"`
	AmountUSD       json.Number `json:"AmountUSD"`
	Amount          json.Number `json:"Amount"`
	Currency        string      `json:"Currency"`
	BillingID       string      `json:"BillingId"`
	TransactionHash string      `json:"TransactionHash"`
	WalletAddress   string      `json:"WalletAddress"`
	MerchantID      string      `json:"MerchantId"`
	PaymentID       string      `json:"PaymentId"`
	Test            bool        `json:"Test"`
}

// Normalize переводит payload 0xprocessing в канонический PaymentEvent.
// ClientId — это наш telegram_id (число) или username (строка).
func (a *Adapter) Normalize(body []byte) (*domain.PaymentEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &domain.AdapterError{Provider: domain.ProviderOxProcessing, Err: fmt.Errorf("unmarshal payload: %w", err)}
	}

	if payload.Status != "Success" && payload.Status != "Completed" {
		a.log.Debug("ignoring non-success payment", "status", payload.Status)
		return nil, nil
	}

	if payload.Test {
		a.log.Debug("ignoring test payment", "payment_id", payload.PaymentID)
		return nil, nil
	}

	txID := payload.PaymentID
	if txID == "" {
		txID = payload.TransactionHash
	}
	if txID == "" {
		txID = payload.BillingID
	}
	if txID == "" {
		return nil, &domain.AdapterError{Provider: domain.ProviderOxProcessing, Err: domain.ErrMissingTransactionID}
	}

	var identity domain.CustomerIdentity
	if payload.ClientID != "" {
		if digitsOnlyRe.MatchString(payload.ClientID) {
			if id, err := strconv.ParseInt(payload.ClientID, 10, 64); err == nil {
				identity.TelegramID = &id
			}
		} else {
			username := payload.ClientID
			identity.Username = &username
		}
	}

	amount := decimal.Zero
	for _, candidate := range []json.Number{payload.AmountUSD, payload.Amount} {
		if candidate == "" {
			continue
		}
		if d, err := decimal.NewFromString(candidate.String()); err == nil && !d.IsZero() {
			amount = d
			break
		}
	}

	// Крипта и стейблкоины считаются как USD вне зависимости от Currency
	return &domain.PaymentEvent{
		Provider:              domain.ProviderOxProcessing,
		ProviderTransactionID: txID,
		Identity:              identity,
		GrossAmount:           amount,
		NetAmount:             amount,
		AmountKind:            domain.AmountNet,
		Currency:              domain.CurrencyUSD,
		ReceivedAt:            time.Now().UTC(),
		RawPayload:            json.RawMessage(body),
	}, nil
}
