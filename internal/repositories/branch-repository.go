package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"bi-dashboard/internal/entities"
	db "bi-dashboard/internal/infrastructure/bd"
	apperrors "bi-dashboard/pkg/errors"
	"bi-dashboard/pkg/types"
)

const branchTable = "branches"

// ЕДИНАЯ КАРТА ПОЛЕЙ (Фильтр + Сортировка)
var branchMap = map[string]string{
	"id":           "b.id",
	"name":         "b.name",
	"network_id":   "b.network_id",
	"active":       "b.active",
	"auto_created": "b.auto_created",
	"start_date":   "b.start_date",
	"created_at":   "b.created_at",
	"updated_at":   "b.updated_at",
}

var branchColumns = []string{
	"b.id", "b.network_id", "b.name", "b.name_key", "b.active", "b.start_date", "b.auto_created",
	"b.created_at", "b.updated_at",
	"n.id", "n.name",
}

type BranchRepositoryInterface interface {
	ListByNetworks(ctx context.Context, tx pgx.Tx, networkIDs []uint64) ([]entities.Branch, error)
	FindBranch(ctx context.Context, id uint64) (*entities.Branch, error)
	CreateBranch(ctx context.Context, tx pgx.Tx, branch entities.Branch) (uint64, error)
	UpsertBranch(ctx context.Context, tx pgx.Tx, branch entities.Branch) (uint64, bool, error)
	DeactivateBranches(ctx context.Context, tx pgx.Tx, ids []uint64) (int64, error)
	GetBranches(ctx context.Context, filter types.Filter) ([]entities.Branch, uint64, error)
}

type BranchRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewBranchRepository(storage *pgxpool.Pool, logger *zap.Logger) BranchRepositoryInterface {
	return &BranchRepository{storage: storage, logger: logger}
}

// -----------------------------------------------------------
// SCAN
// -----------------------------------------------------------

func scanBranch(row pgx.Row) (*entities.Branch, error) {
	var b entities.Branch
	var n entities.Network
	var startDate sql.NullTime

	err := row.Scan(
		&b.ID, &b.NetworkID, &b.Name, &b.NameKey, &b.Active, &startDate, &b.AutoCreated,
		&b.CreatedAt, &b.UpdatedAt,
		&n.ID, &n.Name,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования branch: %w", err)
	}

	if startDate.Valid {
		b.StartDate = &startDate.Time
	}
	b.Network = &n
	return &b, nil
}

func (r *BranchRepository) selectBranches() sq.SelectBuilder {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(branchColumns...).
		From(branchTable + " AS b").
		Join("networks n ON n.id = b.network_id")
}

// ListByNetworks - филиалы указанных сетей; пустой список означает все сети.
func (r *BranchRepository) ListByNetworks(ctx context.Context, tx pgx.Tx, networkIDs []uint64) ([]entities.Branch, error) {
	builder := r.selectBranches().OrderBy("b.id")
	if len(networkIDs) > 0 {
		builder = builder.Where(sq.Eq{"b.network_id": networkIDs})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := pick(r.storage, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения филиалов: %w", err)
	}
	defer rows.Close()

	var result []entities.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

func (r *BranchRepository) FindBranch(ctx context.Context, id uint64) (*entities.Branch, error) {
	query, args, err := r.selectBranches().Where(sq.Eq{"b.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanBranch(r.storage.QueryRow(ctx, query, args...))
}

// CreateBranch - вставка филиала без конфликта: используется ремонтом ссылок для auto_created строк.
func (r *BranchRepository) CreateBranch(ctx context.Context, tx pgx.Tx, branch entities.Branch) (uint64, error) {
	query := `
		INSERT INTO branches (network_id, name, name_key, active, start_date, auto_created)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id uint64
	err := pick(r.storage, tx).QueryRow(ctx, query,
		branch.NetworkID, branch.Name, branch.NameKey, branch.Active, branch.StartDate, branch.AutoCreated,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания филиала %q: %w", branch.Name, err)
	}
	return id, nil
}

// UpsertBranch вставляет или обновляет филиал по (network_id, name_key).
// Пустая дата начала не затирает сохранённую; загрузка справочника снимает признак auto_created.
func (r *BranchRepository) UpsertBranch(ctx context.Context, tx pgx.Tx, branch entities.Branch) (uint64, bool, error) {
	query := `
		INSERT INTO branches (network_id, name, name_key, active, start_date, auto_created, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
		ON CONFLICT (network_id, name_key)
		DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			start_date = COALESCE(EXCLUDED.start_date, branches.start_date),
			auto_created = FALSE,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS is_insert`

	var (
		id       uint64
		isInsert bool
	)
	err := pick(r.storage, tx).QueryRow(ctx, query,
		branch.NetworkID, branch.Name, branch.NameKey, branch.Active, branch.StartDate,
	).Scan(&id, &isInsert)
	if err != nil {
		return 0, false, fmt.Errorf("ошибка сохранения филиала %q: %w", branch.Name, err)
	}
	return id, isInsert, nil
}

func (r *BranchRepository) DeactivateBranches(ctx context.Context, tx pgx.Tx, ids []uint64) (int64, error) {
	return deactivate(ctx, pick(r.storage, tx), branchTable, ids)
}

// -----------------------------------------------------------
// GET (Список) - ИСПОЛЬЗУЕМ HELPER BD
// -----------------------------------------------------------
func (r *BranchRepository) GetBranches(ctx context.Context, filter types.Filter) ([]entities.Branch, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	applySearch := func(b sq.SelectBuilder) sq.SelectBuilder {
		if filter.Search != "" {
			pat := "%" + filter.Search + "%"
			return b.Where(sq.Or{
				sq.ILike{"b.name": pat},
				sq.ILike{"n.name": pat},
			})
		}
		return b
	}

	// 1. COUNT
	countBuilder := psql.Select("COUNT(b.id)").From(branchTable + " AS b").Join("networks n ON n.id = b.network_id")
	countBuilder = applySearch(countBuilder)

	countFilter := filter
	countFilter.WithPagination = false
	countFilter.Sort = nil
	countBuilder = db.ApplyListParams(countBuilder, countFilter, branchMap)
	countBuilder = db.ApplyDateRange(countBuilder, filter, "b.start_date")

	var total uint64
	sqlCount, argsCount, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	if err := r.storage.QueryRow(ctx, sqlCount, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.Branch{}, 0, nil
	}

	// 2. SELECT
	baseBuilder := applySearch(r.selectBranches())
	if len(filter.Sort) == 0 {
		baseBuilder = baseBuilder.OrderBy("n.name ASC", "b.name ASC")
	}
	baseBuilder = db.ApplyListParams(baseBuilder, filter, branchMap)
	baseBuilder = db.ApplyDateRange(baseBuilder, filter, "b.start_date")

	query, args, err := baseBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	branches := make([]entities.Branch, 0, max(filter.Limit, 0))
	for rows.Next() {
		branch, err := scanBranch(rows)
		if err != nil {
			return nil, 0, err
		}
		branches = append(branches, *branch)
	}

	return branches, total, rows.Err()
}
