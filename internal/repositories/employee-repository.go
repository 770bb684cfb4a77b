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

const employeeTable = "employees"

var employeeMap = map[string]string{
	"id":         "e.id",
	"name":       "e.name",
	"branch_id":  "e.branch_id",
	"network_id": "e.network_id",
	"active":     "e.active",
	"start_date": "e.start_date",
	"created_at": "e.created_at",
	"updated_at": "e.updated_at",
}

var employeeColumns = []string{
	"e.id", "e.name", "e.name_key", "e.branch_id", "e.network_id", "e.active", "e.start_date",
	"e.created_at", "e.updated_at",
	"b.name", "n.name",
}

type EmployeeRepositoryInterface interface {
	ListByNetworks(ctx context.Context, tx pgx.Tx, networkIDs []uint64) ([]entities.Employee, error)
	FindEmployee(ctx context.Context, id uint64) (*entities.Employee, error)
	UpsertEmployee(ctx context.Context, tx pgx.Tx, employee entities.Employee) (uint64, bool, error)
	DeactivateEmployees(ctx context.Context, tx pgx.Tx, ids []uint64) (int64, error)
	GetEmployees(ctx context.Context, filter types.Filter) ([]entities.Employee, uint64, error)
}

type EmployeeRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewEmployeeRepository(storage *pgxpool.Pool, logger *zap.Logger) EmployeeRepositoryInterface {
	return &EmployeeRepository{storage: storage, logger: logger}
}

func scanEmployee(row pgx.Row) (*entities.Employee, error) {
	var e entities.Employee
	var branchName, networkName string

	err := row.Scan(
		&e.ID, &e.Name, &e.NameKey, &e.BranchID, &e.NetworkID, &e.Active, &e.StartDate,
		&e.CreatedAt, &e.UpdatedAt,
		&branchName, &networkName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования employee: %w", err)
	}

	e.Branch = &entities.Branch{ID: e.BranchID, NetworkID: e.NetworkID, Name: branchName}
	e.Network = &entities.Network{ID: e.NetworkID, Name: networkName}
	return &e, nil
}

func (r *EmployeeRepository) selectEmployees() sq.SelectBuilder {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(employeeColumns...).
		From(employeeTable + " AS e").
		Join("branches b ON b.id = e.branch_id").
		Join("networks n ON n.id = e.network_id")
}

func (r *EmployeeRepository) ListByNetworks(ctx context.Context, tx pgx.Tx, networkIDs []uint64) ([]entities.Employee, error) {
	builder := r.selectEmployees().OrderBy("e.id")
	if len(networkIDs) > 0 {
		builder = builder.Where(sq.Eq{"e.network_id": networkIDs})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := pick(r.storage, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сотрудников: %w", err)
	}
	defer rows.Close()

	var result []entities.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (r *EmployeeRepository) FindEmployee(ctx context.Context, id uint64) (*entities.Employee, error) {
	query, args, err := r.selectEmployees().Where(sq.Eq{"e.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanEmployee(r.storage.QueryRow(ctx, query, args...))
}

// UpsertEmployee - ключ (name_key, branch_id). network_id обновляется вместе с филиалом.
func (r *EmployeeRepository) UpsertEmployee(ctx context.Context, tx pgx.Tx, employee entities.Employee) (uint64, bool, error) {
	query := `
		INSERT INTO employees (name, name_key, branch_id, network_id, active, start_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (name_key, branch_id)
		DO UPDATE SET
			name = EXCLUDED.name,
			network_id = EXCLUDED.network_id,
			active = EXCLUDED.active,
			start_date = COALESCE(EXCLUDED.start_date, employees.start_date),
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS is_insert`

	var (
		id       uint64
		isInsert bool
	)
	err := pick(r.storage, tx).QueryRow(ctx, query,
		employee.Name, employee.NameKey, employee.BranchID, employee.NetworkID, employee.Active, employee.StartDate,
	).Scan(&id, &isInsert)
	if err != nil {
		return 0, false, fmt.Errorf("ошибка сохранения сотрудника %q: %w", employee.Name, err)
	}
	return id, isInsert, nil
}

func (r *EmployeeRepository) DeactivateEmployees(ctx context.Context, tx pgx.Tx, ids []uint64) (int64, error) {
	return deactivate(ctx, pick(r.storage, tx), employeeTable, ids)
}

func (r *EmployeeRepository) GetEmployees(ctx context.Context, filter types.Filter) ([]entities.Employee, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	applySearch := func(b sq.SelectBuilder) sq.SelectBuilder {
		if filter.Search != "" {
			pat := "%" + filter.Search + "%"
			return b.Where(sq.Or{
				sq.ILike{"e.name": pat},
				sq.ILike{"b.name": pat},
				sq.ILike{"n.name": pat},
			})
		}
		return b
	}

	countBuilder := psql.Select("COUNT(e.id)").
		From(employeeTable + " AS e").
		Join("branches b ON b.id = e.branch_id").
		Join("networks n ON n.id = e.network_id")
	countBuilder = applySearch(countBuilder)

	countFilter := filter
	countFilter.WithPagination = false
	countFilter.Sort = nil
	countBuilder = db.ApplyListParams(countBuilder, countFilter, employeeMap)
	countBuilder = db.ApplyDateRange(countBuilder, filter, "e.start_date")

	var total uint64
	sqlCount, argsCount, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	if err := r.storage.QueryRow(ctx, sqlCount, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.Employee{}, 0, nil
	}

	baseBuilder := applySearch(r.selectEmployees())
	if len(filter.Sort) == 0 {
		baseBuilder = baseBuilder.OrderBy("e.name ASC")
	}
	baseBuilder = db.ApplyListParams(baseBuilder, filter, employeeMap)
	baseBuilder = db.ApplyDateRange(baseBuilder, filter, "e.start_date")

	query, args, err := baseBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	employees := make([]entities.Employee, 0, max(filter.Limit, 0))
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, *e)
	}
	return employees, total, rows.Err()
}
