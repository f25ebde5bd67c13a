package telegram

import (
	"context"
	"fmt"
	"time"
)

// createChatInviteLinkRequest запрос на создание инвайт-ссылки
// Документация: https://core.telegram.org/bots/api#createchatinvitelink
type createChatInviteLinkRequest struct {
	ChatID      int64  `json:"chat_id"`
	Name        string `json:"name,omitempty"`
	ExpireDate  int64  `json:"expire_date,omitempty"`
	MemberLimit int    `json:"member_limit,omitempty"`
}

// ChatInviteLink инвайт-ссылка из ответа API
type ChatInviteLink struct {
	InviteLink  string `json:"invite_link"`
	Name        string `json:"name,omitempty"`
	ExpireDate  int64  `json:"expire_date,omitempty"`
	MemberLimit int    `json:"member_limit,omitempty"`
	IsRevoked   bool   `json:"is_revoked"`
}

// CreateInviteLink создаёт одноразовую инвайт-ссылку (member_limit=1).
// expiresInSeconds <= 0 означает ссылку без срока действия.
func (c *Client) CreateInviteLink(ctx context.Context, chatID int64, expiresInSeconds int64) (string, error) {
	req := createChatInviteLinkRequest{
		ChatID:      chatID,
		MemberLimit: 1,
	}
	if expiresInSeconds > 0 {
		req.ExpireDate = time.Now().Add(time.Duration(expiresInSeconds) * time.Second).Unix()
	}

	var result ChatInviteLink
	if err := c.callMethod(ctx, "createChatInviteLink", req, &result); err != nil {
		return "", fmt.Errorf("createChatInviteLink [chat_id=%d]: %w", chatID, err)
	}

	c.log.Debug("invite link created",
		"chat_id", chatID,
		"expires_in", expiresInSeconds,
	)

	return result.InviteLink, nil
}
