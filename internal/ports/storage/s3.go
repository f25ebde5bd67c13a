package storage

import (
	"context"
	"time"
)

// IS3Client интерфейс для работы с объектным хранилищем (карточки тарифов)
type IS3Client interface {
	GetFile(ctx context.Context, path string) ([]byte, error)
	GetPresignedURL(ctx context.Context, path string, expires time.Duration) (string, error)
}
