package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"bi-dashboard/internal/entities"
	apperrors "bi-dashboard/pkg/errors"
)

const importRunTable = "import_runs"

var importRunColumns = []string{
	"id", "entity", "source_name", "rows_read", "rows_valid", "rows_skipped",
	"added", "updated", "renamed", "reactivated", "deactivated", "unchanged", "replaced",
	"auto_networks", "auto_branches", "started_at", "finished_at",
}

type ImportRunRepositoryInterface interface {
	CreateRun(ctx context.Context, tx pgx.Tx, run entities.ImportRun) error
	ListRuns(ctx context.Context, entity entities.ImportEntity, limit uint64) ([]entities.ImportRun, error)
	LastRun(ctx context.Context) (*entities.ImportRun, error)
}

type ImportRunRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewImportRunRepository(storage *pgxpool.Pool, logger *zap.Logger) ImportRunRepositoryInterface {
	return &ImportRunRepository{storage: storage, logger: logger}
}

func scanImportRun(row pgx.Row) (*entities.ImportRun, error) {
	var (
		run    entities.ImportRun
		id     pgtype.UUID
		entity string
	)
	err := row.Scan(
		&id, &entity, &run.SourceName, &run.RowsRead, &run.RowsValid, &run.RowsSkipped,
		&run.Added, &run.Updated, &run.Renamed, &run.Reactivated, &run.Deactivated, &run.Unchanged, &run.Replaced,
		&run.AutoNetworks, &run.AutoBranches, &run.StartedAt, &run.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования import_run: %w", err)
	}
	run.ID = id.Bytes
	run.Entity = entities.ImportEntity(entity)
	return &run, nil
}

// CreateRun пишет запись журнала внутри транзакции сверки.
func (r *ImportRunRepository) CreateRun(ctx context.Context, tx pgx.Tx, run entities.ImportRun) error {
	query, args, err := sq.Insert(importRunTable).
		Columns(importRunColumns...).
		Values(
			pgtype.UUID{Bytes: run.ID, Valid: true}, string(run.Entity), run.SourceName,
			run.RowsRead, run.RowsValid, run.RowsSkipped,
			run.Added, run.Updated, run.Renamed, run.Reactivated, run.Deactivated, run.Unchanged, run.Replaced,
			run.AutoNetworks, run.AutoBranches, run.StartedAt, run.FinishedAt,
		).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return err
	}
	if _, err := pick(r.storage, tx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("ошибка записи журнала загрузки: %w", err)
	}
	return nil
}

// ListRuns - последние загрузки, новые сверху. Пустая entity - все типы.
func (r *ImportRunRepository) ListRuns(ctx context.Context, entity entities.ImportEntity, limit uint64) ([]entities.ImportRun, error) {
	builder := sq.Select(importRunColumns...).
		From(importRunTable).
		OrderBy("started_at DESC").
		Limit(limit).
		PlaceholderFormat(sq.Dollar)
	if entity != "" {
		builder = builder.Where(sq.Eq{"entity": string(entity)})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала загрузок: %w", err)
	}
	defer rows.Close()

	runs := make([]entities.ImportRun, 0)
	for rows.Next() {
		run, err := scanImportRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func (r *ImportRunRepository) LastRun(ctx context.Context) (*entities.ImportRun, error) {
	query, args, err := sq.Select(importRunColumns...).
		From(importRunTable).
		OrderBy("started_at DESC").
		Limit(1).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	return scanImportRun(r.storage.QueryRow(ctx, query, args...))
}
