package lavatop

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/shopspring/decimal"
)

// feeRate комиссия lava.top — применяется когда net-сумма не пришла явно
var feeRate = decimal.NewFromFloat(0.08)

var (
	telegramIDRe       = regexp.MustCompile(`(?i)telegram_id[=:](\d+)`)
	telegramUsernameRe = regexp.MustCompile(`(?i)telegram_username[=:](\w+)`)
	emailIDRe          = regexp.MustCompile(`^(\d{6,})@`)
	emailUsernameRe    = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9_]+)@`)
)

// Adapter адаптер webhook-уведомлений lava.top (банковские карты, RUB/USD/EUR).
// Репортит gross-суммы; net доводится по комиссии, если не прислан явно.
type Adapter struct {
	cfg *Config
	log *slog.Logger
}

func NewAdapter(cfg *Config, log *slog.Logger) *Adapter {
	return &Adapter{cfg: cfg, log: log}
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderLavaTop
}

func (a *Adapter) AmountKind() domain.AmountKind {
	return domain.AmountGross
}

// Verify принимает любую из трёх схем lava.top: Basic auth вебхук-логином,
// Bearer с API-ключом или заголовок X-Api-Key.
func (a *Adapter) Verify(headers http.Header, body []byte) error {
	authHeader := headers.Get("Authorization")

	if strings.HasPrefix(authHeader, "Basic ") {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(strings.TrimPrefix(authHeader, "Basic ")))
		if err != nil {
			return &domain.AuthenticityError{Provider: domain.ProviderLavaTop, Reason: "malformed basic auth"}
		}
		login, password, _ := strings.Cut(string(raw), ":")
		if subtle.ConstantTimeCompare([]byte(login), []byte(a.cfg.WebhookLogin)) == 1 &&
			subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.WebhookSecret)) == 1 {
			return nil
		}
		return &domain.AuthenticityError{Provider: domain.ProviderLavaTop, Reason: "invalid basic auth credentials"}
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.cfg.APIKey)) == 1 {
			return nil
		}
		return &domain.AuthenticityError{Provider: domain.ProviderLavaTop, Reason: "invalid bearer token"}
	}

	if apiKey := strings.TrimSpace(headers.Get("X-Api-Key")); apiKey != "" {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(a.cfg.APIKey)) == 1 {
			return nil
		}
		return &domain.AuthenticityError{Provider: domain.ProviderLavaTop, Reason: "invalid api key"}
	}

	return &domain.AuthenticityError{Provider: domain.ProviderLavaTop, Reason: "no credentials provided"}
}

// webhookPayload формат lava.top v2. Валюта и суммы размазаны по нескольким
// полям в зависимости от версии API, поэтому собираем все кандидаты.
type webhookPayload struct {
	EventType        string          `json:"eventType"`
	ContractID       string          `json:"contractId"`
	ParentContractID string          `json:"parentContractId"`
	Amount           json.Number     `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	Timestamp        string          `json:"timestamp"`
	Periodicity      string          `json:"periodicity"`
	BuyerCurrency    string          `json:"buyerCurrency"`
	BuyerAmount      json.Number     `json:"buyerAmount"`
	ShopAmount       json.Number     `json:"shopAmount"`
	BuyerEmail       string          `json:"buyerEmail"`
	Email            string          `json:"email"`
	Offer            *offerBlock     `json:"offer"`
	Buyer            *partyBlock     `json:"buyer"`
	Customer         *partyBlock     `json:"customer"`
	Payment          *moneyBlock     `json:"payment"`
	Invoice          *invoiceBlock   `json:"invoice"`
	ClientUtm        *clientUtmBlock `json:"clientUtm"`
}

type offerBlock struct {
	Periodicity string `json:"periodicity"`
}

type partyBlock struct {
	Email string `json:"email"`
}

type moneyBlock struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
	Email    string      `json:"email"`
}

type invoiceBlock struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
	Email    string      `json:"email"`
}

type clientUtmBlock struct {
	UtmSource   string `json:"utm_source"`
	UtmMedium   string `json:"utm_medium"`
	UtmCampaign string `json:"utm_campaign"`
	UtmTerm     string `json:"utm_term"`
	UtmContent  string `json:"utm_content"`
}

func (u *clientUtmBlock) values() []string {
	if u == nil {
		return nil
	}
	var out []string
	for _, v := range []string{u.UtmSource, u.UtmMedium, u.UtmCampaign, u.UtmTerm, u.UtmContent} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

var successEvents = map[string]bool{
	"payment.success":                        true,
	"subscription.recurring.payment.success": true,
}

// Normalize переводит payload lava.top в канонический PaymentEvent
func (a *Adapter) Normalize(body []byte) (*domain.PaymentEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &domain.AdapterError{Provider: domain.ProviderLavaTop, Err: fmt.Errorf("unmarshal payload: %w", err)}
	}

	if payload.EventType == "" {
		return nil, &domain.AdapterError{Provider: domain.ProviderLavaTop, Err: fmt.Errorf("missing eventType")}
	}

	if !successEvents[payload.EventType] {
		a.log.Debug("ignoring non-success event", "event_type", payload.EventType)
		return nil, nil
	}

	status := strings.ToLower(payload.Status)
	if status != "completed" && status != "subscription-active" {
		a.log.Debug("ignoring non-completed payment", "status", payload.Status)
		return nil, nil
	}

	if payload.ContractID == "" {
		return nil, &domain.AdapterError{Provider: domain.ProviderLavaTop, Err: domain.ErrMissingTransactionID}
	}

	currency := a.resolveCurrency(&payload)
	gross := a.grossAmount(&payload)
	net, netExplicit := a.netAmount(&payload)
	if !netExplicit {
		net = gross.Mul(decimal.NewFromInt(1).Sub(feeRate))
	}

	periodicity := payload.Periodicity
	if periodicity == "" && payload.Offer != nil {
		periodicity = payload.Offer.Periodicity
	}

	return &domain.PaymentEvent{
		Provider:              domain.ProviderLavaTop,
		ProviderTransactionID: payload.ContractID,
		Identity:              a.extractIdentity(&payload),
		GrossAmount:           gross,
		NetAmount:             net,
		AmountKind:            domain.AmountGross,
		Currency:              currency,
		PeriodicityHint:       periodicity,
		ReceivedAt:            time.Now().UTC(),
		RawPayload:            json.RawMessage(body),
	}, nil
}

// resolveCurrency доверяет API, не угадывает по суммам.
// Приоритет: buyerCurrency (чем реально платил) > payment > invoice > currency.
func (a *Adapter) resolveCurrency(p *webhookPayload) domain.Currency {
	if p.BuyerCurrency != "" {
		return domain.Currency(strings.ToUpper(p.BuyerCurrency))
	}
	if p.Payment != nil && p.Payment.Currency != "" {
		return domain.Currency(strings.ToUpper(p.Payment.Currency))
	}
	if p.Invoice != nil && p.Invoice.Currency != "" {
		return domain.Currency(strings.ToUpper(p.Invoice.Currency))
	}
	if p.Currency != "" {
		return domain.Currency(strings.ToUpper(p.Currency))
	}
	return domain.CurrencyRUB
}

// grossAmount сколько заплатил покупатель — по ней определяется тариф
func (a *Adapter) grossAmount(p *webhookPayload) decimal.Decimal {
	for _, candidate := range []json.Number{p.BuyerAmount, invoiceAmount(p.Invoice), p.Amount} {
		if d, ok := parseNumber(candidate); ok {
			return d
		}
	}
	return decimal.Zero
}

// netAmount сколько пришло в магазин; второй результат false если провайдер
// не прислал net явно и его надо доводить по комиссии
func (a *Adapter) netAmount(p *webhookPayload) (decimal.Decimal, bool) {
	if p.Payment != nil {
		if d, ok := parseNumber(p.Payment.Amount); ok {
			return d, true
		}
	}
	if d, ok := parseNumber(p.ShopAmount); ok {
		return d, true
	}
	return decimal.Zero, false
}

func invoiceAmount(inv *invoiceBlock) json.Number {
	if inv == nil {
		return ""
	}
	return inv.Amount
}

func parseNumber(n json.Number) (decimal.Decimal, bool) {
	if n == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}
	return d, true
}

// extractIdentity ищет telegram_id/username в clientUtm, затем в email-полях.
// Email вида 123456789@... несёт telegram_id, username@... — username.
func (a *Adapter) extractIdentity(p *webhookPayload) domain.CustomerIdentity {
	for _, value := range p.ClientUtm.values() {
		if m := telegramIDRe.FindStringSubmatch(value); m != nil {
			if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				return domain.CustomerIdentity{TelegramID: &id}
			}
		}
		if m := telegramUsernameRe.FindStringSubmatch(value); m != nil {
			username := m[1]
			return domain.CustomerIdentity{Username: &username}
		}
	}

	for _, email := range a.candidateEmails(p) {
		if m := emailIDRe.FindStringSubmatch(email); m != nil {
			if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				return domain.CustomerIdentity{TelegramID: &id, Email: &email}
			}
		}
		if m := emailUsernameRe.FindStringSubmatch(email); m != nil {
			username := m[1]
			return domain.CustomerIdentity{Username: &username, Email: &email}
		}
	}

	if emails := a.candidateEmails(p); len(emails) > 0 {
		return domain.CustomerIdentity{Email: &emails[0]}
	}

	return domain.CustomerIdentity{}
}

func (a *Adapter) candidateEmails(p *webhookPayload) []string {
	var out []string
	candidates := []string{p.BuyerEmail, p.Email}
	if p.Buyer != nil {
		candidates = append(candidates, p.Buyer.Email)
	}
	if p.Customer != nil {
		candidates = append(candidates, p.Customer.Email)
	}
	if p.Invoice != nil {
		candidates = append(candidates, p.Invoice.Email)
	}
	if p.Payment != nil {
		candidates = append(candidates, p.Payment.Email)
	}
	for _, c := range candidates {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
