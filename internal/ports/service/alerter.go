package service

import (
	"context"
)

// IAlerterService интерфейс для отправки алертов операторам
type IAlerterService interface {
	SendAlert(ctx context.Context, message string) error
}
