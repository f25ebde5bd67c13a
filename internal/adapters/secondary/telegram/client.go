package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/premium-club/internal/domain"
)

const (
	telegramAPIBaseURL = "https://api.telegram.org/bot"
	apiTimeout         = 30 * time.Second
)

// Client клиент для работы с Telegram Bot API
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	log        *slog.Logger
}

// NewClient создаёт новый клиент для Telegram Bot API
func NewClient(token string, log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: apiTimeout,
		},
		baseURL: telegramAPIBaseURL + token,
		token:   token,
		log:     log,
	}
}

// callMethod выполняет JSON-запрос к методу Bot API и декодирует result в dest (если dest != nil).
// Ошибки API возвращаются как domain.ExternalAPIError с кодом и retry_after.
func (c *Client) callMethod(ctx context.Context, method string, payload interface{}, dest interface{}) error {
	url := c.baseURL + "/" + method

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Debug("telegram request failed",
			"error", err,
			"method", method,
		)
		return fmt.Errorf("telegram request failed [method=%s]: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram read response failed [method=%s, status=%d]: %w",
			method, resp.StatusCode, err)
	}

	var envelope struct {
		APIResponse
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.log.Error("failed to unmarshal telegram response",
			"error", err,
			"method", method,
			"status_code", resp.StatusCode,
			"body_preview", truncateString(string(body), 200),
		)
		return fmt.Errorf("telegram unmarshal failed [method=%s, status=%d]: %w",
			method, resp.StatusCode, err)
	}

	if !envelope.OK {
		retryAfter := 0
		if envelope.Parameters != nil {
			retryAfter = envelope.Parameters.RetryAfter
		}
		c.log.Debug("telegram API error",
			"method", method,
			"error_code", envelope.ErrorCode,
			"description", envelope.Description,
			"retry_after", retryAfter,
		)
		return &domain.ExternalAPIError{
			Code:       envelope.ErrorCode,
			RetryAfter: retryAfter,
			Err:        fmt.Errorf("telegram API error [method=%s, code=%d]: %s", method, envelope.ErrorCode, envelope.Description),
		}
	}

	if dest != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, dest); err != nil {
			return fmt.Errorf("telegram decode result failed [method=%s]: %w", method, err)
		}
	}

	return nil
}

func truncateString(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// GetMe получает информацию о боте (smoke-check токена при старте)
func (c *Client) GetMe(ctx context.Context) error {
	if err := c.callMethod(ctx, "getMe", struct{}{}, nil); err != nil {
		return fmt.Errorf("getMe failed: %w", err)
	}
	c.log.Info("bot info retrieved successfully")
	return nil
}
