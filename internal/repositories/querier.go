package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier - общее у *pgxpool.Pool и pgx.Tx: репозиторий работает одинаково в транзакции и без неё.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// pick возвращает транзакцию, если она есть, иначе пул.
func pick(storage Querier, tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return storage
}
