package provider

import (
	"net/http"

	"github.com/admin/tg-bots/premium-club/internal/domain"
)

// IProviderAdapter адаптер одного платёжного провайдера.
// Verify строго первый в пайплайне: неподтверждённый запрос не должен
// дойти до ledger. Normalize вызывается только после успешного Verify.
type IProviderAdapter interface {
	Provider() domain.Provider

	// AmountKind какую сумму провайдер репортит явно: gross или net.
	// Недостающая сторона доводится по FeeRate.
	AmountKind() domain.AmountKind

	// Verify проверяет подлинность запроса (HMAC/shared secret по схеме провайдера).
	// Возвращает *domain.AuthenticityError при провале.
	Verify(headers http.Header, body []byte) error

	// Normalize переводит payload провайдера в канонический PaymentEvent.
	// Событие, которое не нужно обрабатывать (не success, тестовый платёж),
	// возвращается как (nil, nil) — провайдеру отвечаем 200 и забываем.
	Normalize(body []byte) (*domain.PaymentEvent, error)
}
