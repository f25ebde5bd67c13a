package telegram

import (
	"context"
	"fmt"
)

// SendPhotoRequest запрос на отправку фото.
// Photo — это URL (в т.ч. presigned S3) или file_id уже загруженного фото.
type SendPhotoRequest struct {
	ChatID      int64                  `json:"chat_id"`
	Photo       string                 `json:"photo"`
	Caption     string                 `json:"caption,omitempty"`
	ParseMode   string                 `json:"parse_mode,omitempty"`
	ReplyMarkup map[string]interface{} `json:"reply_markup,omitempty"`
}

// PhotoSize размер фото
type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     *int   `json:"file_size,omitempty"`
}

// SendPhotoResult результат отправки фото
type SendPhotoResult struct {
	MessageID int64       `json:"message_id"`
	Chat      ChatInfo    `json:"chat"`
	Photo     []PhotoSize `json:"photo"`
	Date      int64       `json:"date"`
}

// SendPhoto отправляет фото (по URL или file_id) и возвращает file_id самого большого размера
func (c *Client) SendPhoto(ctx context.Context, req SendPhotoRequest) (string, error) {
	var result SendPhotoResult
	if err := c.callMethod(ctx, "sendPhoto", req, &result); err != nil {
		return "", fmt.Errorf("sendPhoto [chat_id=%d]: %w", req.ChatID, err)
	}

	if len(result.Photo) == 0 {
		return "", fmt.Errorf("no photo sizes in response")
	}

	// Последний элемент — самый большой размер
	largestPhoto := result.Photo[len(result.Photo)-1]

	c.log.Debug("photo sent successfully",
		"chat_id", req.ChatID,
		"message_id", result.MessageID,
		"file_id", largestPhoto.FileID,
	)

	return largestPhoto.FileID, nil
}
