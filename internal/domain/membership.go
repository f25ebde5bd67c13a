package domain

import (
	"time"

	"github.com/google/uuid"
)

// MembershipActionType действие над членством во внешней платформе
type MembershipActionType string

const (
	ActionGrant  MembershipActionType = "grant"  // выдать одноразовую invite-ссылку
	ActionRevoke MembershipActionType = "revoke" // ban + unban(only_if_banned)
)

// MembershipTarget куда направлено действие
type MembershipTarget string

const (
	TargetChannel MembershipTarget = "channel"
	TargetChat    MembershipTarget = "chat"
)

// MembershipAction append-only запись одной попытки grant/revoke.
// Используется для аудита и бухгалтерии ретраев; владеет ей только оркестратор.
type MembershipAction struct {
	ID          uuid.UUID            `json:"id" db:"id"`
	TelegramID  int64                `json:"telegram_id" db:"telegram_id"`
	Action      MembershipActionType `json:"action" db:"action"`
	Target      MembershipTarget     `json:"target" db:"target"`
	Succeeded   bool                 `json:"succeeded" db:"succeeded"`
	ResultCode  int                  `json:"result_code" db:"result_code"` // код ошибки Telegram API, 0 при успехе
	Error       *string              `json:"error,omitempty" db:"error"`
	InviteLink  *string              `json:"invite_link,omitempty" db:"invite_link"` // только для grant
	AttemptedAt time.Time            `json:"attempted_at" db:"attempted_at"`
}

// GrantResult итог выдачи доступа: ссылки на канал и чат (nil = не удалось)
type GrantResult struct {
	ChannelInvite *string
	ChatInvite    *string
}

// AllGranted true если обе ссылки созданы
func (r GrantResult) AllGranted() bool {
	return r.ChannelInvite != nil && r.ChatInvite != nil
}

// RevokeResult итог отзыва доступа по целям
type RevokeResult struct {
	ChannelRevoked bool
	ChatRevoked    bool
}

// AllRevoked true если обе цели отозваны
func (r RevokeResult) AllRevoked() bool {
	return r.ChannelRevoked && r.ChatRevoked
}
