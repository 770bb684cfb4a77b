package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Загрузка одной сущности целиком: журнал, upsert-ы, деактивация отсутствующих
// и COPY продаж фиксируются или откатываются вместе.
type TxManagerInterface interface {
	RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

const defaultLockTimeout = 30 * time.Second

type TxManager struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewTxManager(pool *pgxpool.Pool) TxManagerInterface {
	return &TxManager{pool: pool, lockTimeout: defaultLockTimeout}
}

// RunInTransaction открывает транзакцию сверки. lock_timeout не даёт второй
// загрузке той же сущности бесконечно ждать строк, занятых первой.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию сверки: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				err = fmt.Errorf("ошибка при откате сверки: %v (изначальная ошибка: %w)", rbErr, err)
			}
		} else if err = tx.Commit(ctx); err != nil {
			err = fmt.Errorf("ошибка при коммите сверки: %w", err)
		}
	}()

	if m.lockTimeout > 0 {
		if _, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("не удалось задать lock_timeout: %w", err)
		}
	}

	return fn(tx)
}
