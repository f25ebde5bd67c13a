package telegram

import (
	"context"
	"fmt"
)

// banChatMemberRequest запрос на исключение участника
type banChatMemberRequest struct {
	ChatID         int64 `json:"chat_id"`
	UserID         int64 `json:"user_id"`
	RevokeMessages bool  `json:"revoke_messages,omitempty"`
}

// unbanChatMemberRequest запрос на разбан участника
type unbanChatMemberRequest struct {
	ChatID       int64 `json:"chat_id"`
	UserID       int64 `json:"user_id"`
	OnlyIfBanned bool  `json:"only_if_banned,omitempty"`
}

// BanMember исключает пользователя из чата/канала
func (c *Client) BanMember(ctx context.Context, chatID int64, userID int64) error {
	req := banChatMemberRequest{
		ChatID: chatID,
		UserID: userID,
	}
	if err := c.callMethod(ctx, "banChatMember", req, nil); err != nil {
		return fmt.Errorf("banChatMember [chat_id=%d, user_id=%d]: %w", chatID, userID, err)
	}

	c.log.Debug("member banned",
		"chat_id", chatID,
		"user_id", userID,
	)
	return nil
}

// UnbanMember снимает бан. onlyIfBanned=true делает вызов безопасным для
// пользователей, которых в бан-листе нет (иначе активный участник вылетит из чата).
func (c *Client) UnbanMember(ctx context.Context, chatID int64, userID int64, onlyIfBanned bool) error {
	req := unbanChatMemberRequest{
		ChatID:       chatID,
		UserID:       userID,
		OnlyIfBanned: onlyIfBanned,
	}
	if err := c.callMethod(ctx, "unbanChatMember", req, nil); err != nil {
		return fmt.Errorf("unbanChatMember [chat_id=%d, user_id=%d]: %w", chatID, userID, err)
	}

	c.log.Debug("member unbanned",
		"chat_id", chatID,
		"user_id", userID,
		"only_if_banned", onlyIfBanned,
	)
	return nil
}
