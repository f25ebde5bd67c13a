package service

import (
	"context"

	"github.com/admin/tg-bots/premium-club/internal/domain"
)

// IMembershipPlatform низкоуровневый API платформы членства (Telegram).
// Silent add платформа не поддерживает, поэтому grant — это одноразовая
// invite-ссылка, а revoke — ban с немедленным unban(only_if_banned).
type IMembershipPlatform interface {
	// CreateInviteLink одноразовая (member_limit=1) ссылка с ограниченным сроком
	CreateInviteLink(ctx context.Context, chatID int64, expiresInSeconds int64) (string, error)

	BanMember(ctx context.Context, chatID int64, userID int64) error

	// UnbanMember снимает бан, чтобы юзер мог вернуться по будущей ссылке
	UnbanMember(ctx context.Context, chatID int64, userID int64, onlyIfBanned bool) error
}

// IMembershipService оркестратор доступа к каналу и чату
type IMembershipService interface {
	Grant(ctx context.Context, telegramID int64) (domain.GrantResult, error)
	Revoke(ctx context.Context, telegramID int64) (domain.RevokeResult, error)

	// GrantTargets выдача только указанных целей (ретраи частичных сбоев:
	// на уже выданную цель повторную ссылку не шлём, чтобы не спамить)
	GrantTargets(ctx context.Context, telegramID int64, channel, chat bool) (domain.GrantResult, error)

	// RevokeTargets отзыв только указанных целей (ретраи частичных сбоев:
	// уже отозванную цель повторно не трогаем)
	RevokeTargets(ctx context.Context, telegramID int64, channel, chat bool) (domain.RevokeResult, error)
}
