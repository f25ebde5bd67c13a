package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MembershipState состояние членства клиента в канале/чате
type MembershipState string

const (
	MembershipNone       MembershipState = "none"       // подписки не было
	MembershipActive     MembershipState = "active"     // доступ выдан
	MembershipExpired    MembershipState = "expired"    // свип пометил к отзыву, ещё не кикнут
	MembershipKicked     MembershipState = "kicked"     // отозван из канала и чата
	MembershipReinstated MembershipState = "reinstated" // доступ повторно выдан, ждём подтверждения
)

// допустимые переходы state machine; всё остальное — баг вызывающего кода
var membershipTransitions = map[MembershipState][]MembershipState{
	MembershipNone:       {MembershipActive},
	MembershipActive:     {MembershipActive, MembershipExpired},
	MembershipExpired:    {MembershipKicked, MembershipActive}, // active: успели продлить до кика
	MembershipKicked:     {MembershipReinstated},
	MembershipReinstated: {MembershipActive},
}

// CanTransition проверяет допустимость перехода состояния членства
func (s MembershipState) CanTransition(to MembershipState) bool {
	for _, allowed := range membershipTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Tags свободные метки для ручных/админских аннотаций (JSONB массив)
type Tags []string

func (t *Tags) Scan(value interface{}) error {
	if value == nil {
		*t = Tags{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported tags type %T", value)
	}
	if len(bytes) == 0 {
		*t = Tags{}
		return nil
	}
	return json.Unmarshal(bytes, t)
}

func (t Tags) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "[]", nil
	}
	return json.Marshal(t)
}

func (t Tags) Has(tag string) bool {
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// TagReinstate метка из CRM: кикнутому клиенту нужно восстановить доступ
const TagReinstate = "reinstate"

// Subscription одна строка на клиента; создаётся первым платежом,
// мутируется последующими платежами и свипами, никогда не удаляется.
type Subscription struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	TelegramID    *int64          `json:"telegram_id,omitempty" db:"telegram_id"`
	Username      *string         `json:"username,omitempty" db:"username"`
	Tariff        Tariff          `json:"tariff" db:"tariff"`
	StartedAt     time.Time       `json:"started_at" db:"started_at"`
	ExpiresAt     time.Time       `json:"expires_at" db:"expires_at"` // монотонно неубывающая при продлениях
	State         MembershipState `json:"membership_state" db:"membership_state"`
	InChannel     bool            `json:"in_channel" db:"in_channel"` // доступ к каналу выдан и не отозван
	InChat        bool            `json:"in_chat" db:"in_chat"`
	PaymentsCount int             `json:"payments_count" db:"payments_count"`
	TotalPaidUSD  decimal.Decimal `json:"total_paid_usd" db:"total_paid_usd"`
	LastPaymentAt *time.Time      `json:"last_payment_at,omitempty" db:"last_payment_at"`
	LastProvider  *Provider       `json:"last_payment_method,omitempty" db:"last_payment_method"`
	// ReminderFor значение expires_at, для которого уже отправлено напоминание.
	// Маркер периода: не совпадает с текущим expires_at — напоминание ещё не слали.
	ReminderFor *time.Time `json:"reminder_for,omitempty" db:"reminder_for"`
	Tags        Tags       `json:"tags" db:"tags"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsExpired true если срок подписки прошёл
func (s *Subscription) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ExtendFrom точка отсчёта продления: max(now, expires_at).
// Продление никогда не сдвигает expires_at назад.
func (s *Subscription) ExtendFrom(now time.Time) time.Time {
	if s.ExpiresAt.After(now) {
		return s.ExpiresAt
	}
	return now
}
