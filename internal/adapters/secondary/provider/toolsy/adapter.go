package toolsy

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/shopspring/decimal"
)

// Adapter адаптер крипто-процессинга toolsy (USDT).
// Присылает amountNet — сумму после комиссий.
type Adapter struct {
	cfg *Config
	log *slog.Logger
}

func NewAdapter(cfg *Config, log *slog.Logger) *Adapter {
	return &Adapter{cfg: cfg, log: log}
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderToolsy
}

func (a *Adapter) AmountKind() domain.AmountKind {
	return domain.AmountNet
}

// Verify сверяет X-Api-Key с секретным ключом проекта
func (a *Adapter) Verify(headers http.Header, body []byte) error {
	apiKey := strings.TrimSpace(headers.Get("X-Api-Key"))
	if apiKey == "" {
		return &domain.AuthenticityError{Provider: domain.ProviderToolsy, Reason: "no credentials provided"}
	}
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(a.cfg.SecretKey)) != 1 {
		return &domain.AuthenticityError{Provider: domain.ProviderToolsy, Reason: "invalid api key"}
	}
	return nil
}

// webhookPayload формат событий toolsy: {id, type, data}.
// Клиент бывает вложен в data.visit, data напрямую или data.subscription.visit.
type webhookPayload struct {
	ID   string     `json:"id"`
	Type string     `json:"type"`
	Data *dataBlock `json:"data"`
}

type dataBlock struct {
	Status       string             `json:"status"`
	AmountNet    json.Number        `json:"amountNet"`
	Price        json.Number        `json:"price"`
	Currency     string             `json:"currency"`
	Visit        *visitBlock        `json:"visit"`
	Client       *clientBlock       `json:"client"`
	Subscription *subscriptionBlock `json:"subscription"`
}

type subscriptionBlock struct {
	Price json.Number `json:"price"`
	Visit *visitBlock `json:"visit"`
}

type visitBlock struct {
	Client *clientBlock `json:"client"`
}

type clientBlock struct {
	TgID       json.Number `json:"tgId"`
	TgUsername string      `json:"tgUsername"`
	Username   string      `json:"username"`
}

var supportedEvents = map[string]bool{
	"payment.created":      true,
	"subscription.created": true,
	"subscription.updated": true,
}

// Normalize переводит payload toolsy в канонический PaymentEvent
func (a *Adapter) Normalize(body []byte) (*domain.PaymentEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &domain.AdapterError{Provider: domain.ProviderToolsy, Err: fmt.Errorf("unmarshal payload: %w", err)}
	}

	if payload.Type == "" {
		return nil, &domain.AdapterError{Provider: domain.ProviderToolsy, Err: fmt.Errorf("missing event type")}
	}

	if !supportedEvents[payload.Type] {
		a.log.Debug("ignoring unsupported event", "event_type", payload.Type)
		return nil, nil
	}

	data := payload.Data
	if data == nil {
		return nil, &domain.AdapterError{Provider: domain.ProviderToolsy, Err: fmt.Errorf("missing data block")}
	}

	if status := strings.ToLower(data.Status); status != "" &&
		status != "completed" && status != "paid" && status != "success" {
		a.log.Debug("ignoring non-completed payment", "status", data.Status)
		return nil, nil
	}

	if payload.ID == "" {
		return nil, &domain.AdapterError{Provider: domain.ProviderToolsy, Err: domain.ErrMissingTransactionID}
	}

	identity := extractIdentity(data)
	amount := extractAmount(data)

	currency := domain.CurrencyUSDT
	if data.Currency != "" {
		currency = domain.Currency(strings.ToUpper(data.Currency))
	}

	return &domain.PaymentEvent{
		Provider:              domain.ProviderToolsy,
		ProviderTransactionID: payload.ID,
		Identity:              identity,
		GrossAmount:           amount,
		NetAmount:             amount,
		AmountKind:            domain.AmountNet,
		Currency:              currency,
		ReceivedAt:            time.Now().UTC(),
		RawPayload:            json.RawMessage(body),
	}, nil
}

func extractIdentity(data *dataBlock) domain.CustomerIdentity {
	var client *clientBlock
	switch {
	case data.Visit != nil && data.Visit.Client != nil:
		client = data.Visit.Client
	case data.Client != nil:
		client = data.Client
	case data.Subscription != nil && data.Subscription.Visit != nil && data.Subscription.Visit.Client != nil:
		client = data.Subscription.Visit.Client
	}
	if client == nil {
		return domain.CustomerIdentity{}
	}

	var identity domain.CustomerIdentity
	if id, err := client.TgID.Int64(); err == nil && id > 0 {
		identity.TelegramID = &id
	}
	if username := firstNonEmpty(client.TgUsername, client.Username); username != "" {
		identity.Username = &username
	}
	return identity
}

func extractAmount(data *dataBlock) decimal.Decimal {
	candidates := []json.Number{data.AmountNet, data.Price}
	if data.Subscription != nil {
		candidates = append(candidates, data.Subscription.Price)
	}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if d, err := decimal.NewFromString(candidate.String()); err == nil && !d.IsZero() {
			return d
		}
	}
	return decimal.Zero
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
