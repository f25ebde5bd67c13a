package persistence

import "context"

// Persistence интерфейс для работы с базой данных (вне транзакции)
type Persistence interface {
	Executor
	BeginTx(ctx context.Context) (Transaction, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction интерфейс транзакции
type Transaction interface {
	Executor
	Commit() error
	Rollback() error
}

// Executor общие операции: доступны и на соединении, и в транзакции
type Executor interface {
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Exec(ctx context.Context, query string, args ...interface{}) error
	ExecWithResult(ctx context.Context, query string, args ...interface{}) (int64, error)
}
