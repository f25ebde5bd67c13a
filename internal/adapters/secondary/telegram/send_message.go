package telegram

import (
	"context"
	"fmt"
)

// SendMessageRequest запрос на отправку сообщения
type SendMessageRequest struct {
	ChatID          int64                  `json:"chat_id"`
	Text            string                 `json:"text"`
	ParseMode       string                 `json:"parse_mode,omitempty"` // "HTML", "Markdown", "MarkdownV2"
	MessageThreadID *int64                 `json:"message_thread_id,omitempty"`
	ReplyMarkup     map[string]interface{} `json:"reply_markup,omitempty"`
	DisablePreview  bool                   `json:"disable_web_page_preview,omitempty"`
}

// SendMessageResult результат отправки сообщения
type SendMessageResult struct {
	MessageID int64    `json:"message_id"`
	Chat      ChatInfo `json:"chat"`
	Text      string   `json:"text"`
	Date      int64    `json:"date"`
}

// SendMessage отправляет текстовое сообщение
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.SendMessageWithRequest(ctx, SendMessageRequest{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

// SendHTMLMessage отправляет сообщение с HTML-разметкой
func (c *Client) SendHTMLMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.SendMessageWithRequest(ctx, SendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	return err
}

// SendMessageWithRequest отправляет сообщение с полным контролем параметров
func (c *Client) SendMessageWithRequest(ctx context.Context, req SendMessageRequest) (*SendMessageResult, error) {
	var result SendMessageResult
	if err := c.callMethod(ctx, "sendMessage", req, &result); err != nil {
		return nil, fmt.Errorf("sendMessage [chat_id=%d]: %w", req.ChatID, err)
	}

	c.log.Debug("message sent successfully",
		"chat_id", req.ChatID,
		"message_id", result.MessageID,
	)

	return &result, nil
}
