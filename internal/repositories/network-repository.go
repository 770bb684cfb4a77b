package repositories

import (
	"context"
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

const networkTable = "networks"

var networkMap = map[string]string{
	"id":         "n.id",
	"name":       "n.name",
	"active":     "n.active",
	"created_at": "n.created_at",
	"updated_at": "n.updated_at",
}

var networkColumns = []string{"n.id", "n.name", "n.name_key", "n.active", "n.created_at", "n.updated_at"}

type NetworkRepositoryInterface interface {
	ListNetworks(ctx context.Context, tx pgx.Tx) ([]entities.Network, error)
	FindNetwork(ctx context.Context, id uint64) (*entities.Network, error)
	CreateNetwork(ctx context.Context, tx pgx.Tx, network entities.Network) (uint64, error)
	UpsertNetwork(ctx context.Context, tx pgx.Tx, network entities.Network) (uint64, bool, error)
	DeactivateNetworks(ctx context.Context, tx pgx.Tx, ids []uint64) (int64, error)
	GetNetworks(ctx context.Context, filter types.Filter) ([]entities.Network, uint64, error)
}

type NetworkRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewNetworkRepository(storage *pgxpool.Pool, logger *zap.Logger) NetworkRepositoryInterface {
	return &NetworkRepository{storage: storage, logger: logger}
}

func scanNetwork(row pgx.Row) (*entities.Network, error) {
	var n entities.Network
	err := row.Scan(&n.ID, &n.Name, &n.NameKey, &n.Active, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования network: %w", err)
	}
	return &n, nil
}

// ListNetworks - весь справочник сетей, он небольшой и нужен сверке целиком.
func (r *NetworkRepository) ListNetworks(ctx context.Context, tx pgx.Tx) ([]entities.Network, error) {
	query, args, err := sq.Select(networkColumns...).
		From(networkTable + " AS n").
		OrderBy("n.id").
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := pick(r.storage, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сетей: %w", err)
	}
	defer rows.Close()

	var result []entities.Network
	for rows.Next() {
		n, err := scanNetwork(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (r *NetworkRepository) FindNetwork(ctx context.Context, id uint64) (*entities.Network, error) {
	query, args, err := sq.Select(networkColumns...).
		From(networkTable + " AS n").
		Where(sq.Eq{"n.id": id}).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	return scanNetwork(r.storage.QueryRow(ctx, query, args...))
}

// CreateNetwork - вставка сети, которой не было в справочнике (ремонт ссылок).
func (r *NetworkRepository) CreateNetwork(ctx context.Context, tx pgx.Tx, network entities.Network) (uint64, error) {
	query := `
		INSERT INTO networks (name, name_key, active)
		VALUES ($1, $2, $3)
		RETURNING id`

	var id uint64
	if err := pick(r.storage, tx).QueryRow(ctx, query, network.Name, network.NameKey, network.Active).Scan(&id); err != nil {
		return 0, fmt.Errorf("ошибка создания сети %q: %w", network.Name, err)
	}
	return id, nil
}

// UpsertNetwork вставляет или обновляет сеть по name_key. Второй результат - была ли вставка.
func (r *NetworkRepository) UpsertNetwork(ctx context.Context, tx pgx.Tx, network entities.Network) (uint64, bool, error) {
	query := `
		INSERT INTO networks (name, name_key, active, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name_key)
		DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS is_insert`

	var (
		id       uint64
		isInsert bool
	)
	err := pick(r.storage, tx).QueryRow(ctx, query, network.Name, network.NameKey, network.Active).Scan(&id, &isInsert)
	if err != nil {
		return 0, false, fmt.Errorf("ошибка сохранения сети %q: %w", network.Name, err)
	}
	return id, isInsert, nil
}

func (r *NetworkRepository) DeactivateNetworks(ctx context.Context, tx pgx.Tx, ids []uint64) (int64, error) {
	return deactivate(ctx, pick(r.storage, tx), networkTable, ids)
}

func (r *NetworkRepository) GetNetworks(ctx context.Context, filter types.Filter) ([]entities.Network, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	applySearch := func(b sq.SelectBuilder) sq.SelectBuilder {
		if filter.Search != "" {
			return b.Where(sq.ILike{"n.name": "%" + filter.Search + "%"})
		}
		return b
	}

	countFilter := filter
	countFilter.WithPagination = false
	countFilter.Sort = nil
	countBuilder := applySearch(psql.Select("COUNT(n.id)").From(networkTable + " AS n"))
	countBuilder = db.ApplyListParams(countBuilder, countFilter, networkMap)

	var total uint64
	sqlCount, argsCount, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	if err := r.storage.QueryRow(ctx, sqlCount, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.Network{}, 0, nil
	}

	builder := applySearch(psql.Select(networkColumns...).From(networkTable + " AS n"))
	if len(filter.Sort) == 0 {
		builder = builder.OrderBy("n.name ASC")
	}
	builder = db.ApplyListParams(builder, filter, networkMap)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	networks := make([]entities.Network, 0, max(filter.Limit, 0))
	for rows.Next() {
		n, err := scanNetwork(rows)
		if err != nil {
			return nil, 0, err
		}
		networks = append(networks, *n)
	}
	return networks, total, rows.Err()
}

// deactivate снимает флаг активности. Строки никогда не удаляются.
func deactivate(ctx context.Context, q Querier, table string, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sq.Update(table).
		Set("active", false).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": ids}).
		Where(sq.Eq{"active": true}).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка деактивации %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}
