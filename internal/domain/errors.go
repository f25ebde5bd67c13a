package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateEvent транзакция уже принята — не ошибка, явный success path:
// провайдеру отвечаем 200, чтобы он перестал ретраить
var ErrDuplicateEvent = errors.New("payment event already processed")

// ErrMissingTransactionID адаптер не смог извлечь transaction id.
// Фабриковать id нельзя — сломает идемпотентность.
var ErrMissingTransactionID = errors.New("missing provider transaction id")

// AuthenticityError webhook не прошёл проверку подлинности провайдера
type AuthenticityError struct {
	Provider Provider
	Reason   string
}

func (e *AuthenticityError) Error() string {
	return fmt.Sprintf("authenticity check failed for %s: %s", e.Provider, e.Reason)
}

// IsAuthenticityError проверяет, является ли ошибка AuthenticityError
func IsAuthenticityError(err error) bool {
	var authErr *AuthenticityError
	return errors.As(err, &authErr)
}

// AdapterError payload не распарсился или не поддерживается.
// Не ретраится автоматически — повторный парсинг того же payload бессмысленен.
type AdapterError struct {
	Provider Provider
	Err      error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s: %s", e.Provider, e.Err.Error())
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

func IsAdapterError(err error) bool {
	var adapterErr *AdapterError
	return errors.As(err, &adapterErr)
}

// IdentityResolutionError у платежа нет пригодной идентичности клиента.
// Платёж остаётся в ledger для аудита, подписка не трогается.
type IdentityResolutionError struct {
	Provider              Provider
	ProviderTransactionID string
}

func (e *IdentityResolutionError) Error() string {
	return fmt.Sprintf("no usable customer identity for %s tx %s", e.Provider, e.ProviderTransactionID)
}

func IsIdentityResolutionError(err error) bool {
	var idErr *IdentityResolutionError
	return errors.As(err, &idErr)
}

// ExternalAPIError платформа членства недоступна или вернула ошибку.
// Ретраится с backoff; после исчерпания попыток — алерт, подписка НЕ откатывается.
type ExternalAPIError struct {
	Code       int // код ошибки Telegram API (429 = rate limit)
	RetryAfter int // секунды из parameters.retry_after при 429
	Err        error
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("external api error (code %d): %s", e.Code, e.Err.Error())
}

func (e *ExternalAPIError) Unwrap() error {
	return e.Err
}

func IsExternalAPIError(err error) bool {
	var apiErr *ExternalAPIError
	return errors.As(err, &apiErr)
}
