package repositories

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"bi-dashboard/pkg/types"
)

type DashboardRepositoryInterface interface {
	GetSummary(ctx context.Context) (*types.DashboardSummary, error)
	GetNetworkStats(ctx context.Context) ([]types.DashboardNetworkStat, error)
	CountStartedBefore(ctx context.Context, entity string, before *time.Time) (int64, error)
	GetEvolution(ctx context.Context, entity, bucket string, from, to *time.Time) ([]types.DashboardEvolutionPoint, error)
	GetVoucherTotals(ctx context.Context, from, to *time.Time) (*types.DashboardVoucherTotals, error)
	GetRanking(ctx context.Context, dimension, metric string, limit uint64, from, to *time.Time) ([]types.DashboardRankingItem, error)
	GetVoucherSeries(ctx context.Context, bucket string, from, to *time.Time) ([]types.DashboardVoucherPoint, error)
}

type DashboardRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewDashboardRepository(storage *pgxpool.Pool, logger *zap.Logger) DashboardRepositoryInterface {
	return &DashboardRepository{storage: storage, logger: logger}
}

// Дата "старта" строки справочника. У сети нет даты начала, берём дату создания.
var startedExpr = map[string]struct {
	table string
	expr  string
}{
	"network":  {"networks t", "t.created_at::date"},
	"branch":   {"branches t", "COALESCE(t.start_date, t.created_at::date)"},
	"employee": {"employees t", "COALESCE(t.start_date, t.created_at::date)"},
}

// Шаг подставляется в SQL текстом, поэтому только из этого списка.
var allowedBuckets = map[string]bool{"day": true, "week": true, "month": true, "year": true}

// Колонки группировки рейтинга.
var rankingDimensions = map[string]struct {
	join  string
	id    string
	name  string
	extra sq.Sqlizer
}{
	"network":  {"networks x ON x.id = v.network_id", "x.id", "x.name", nil},
	"branch":   {"branches x ON x.id = v.branch_id", "x.id", "x.name", nil},
	"employee": {"employees x ON x.id = v.employee_id", "x.id", "x.name", sq.NotEq{"v.employee_id": nil}},
}

func applyPeriod(b sq.SelectBuilder, col string, from, to *time.Time) sq.SelectBuilder {
	if from != nil {
		b = b.Where(sq.GtOrEq{col: *from})
	}
	if to != nil {
		b = b.Where(sq.LtOrEq{col: *to})
	}
	return b
}

// 1. Сводка по справочникам
func (r *DashboardRepository) GetSummary(ctx context.Context) (*types.DashboardSummary, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM networks),
			(SELECT COUNT(*) FILTER (WHERE active) FROM networks),
			(SELECT COUNT(*) FROM branches),
			(SELECT COUNT(*) FILTER (WHERE active) FROM branches),
			(SELECT COUNT(*) FROM employees),
			(SELECT COUNT(*) FILTER (WHERE active) FROM employees),
			(SELECT COUNT(*) FILTER (WHERE auto_created) FROM branches)`

	s := &types.DashboardSummary{}
	err := r.storage.QueryRow(ctx, query).Scan(
		&s.Networks.Total, &s.Networks.Active,
		&s.Branches.Total, &s.Branches.Active,
		&s.Employees.Total, &s.Employees.Active,
		&s.AutoCreatedBranches,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сводки: %w", err)
	}
	return s, nil
}

// 2. Разбивка по сетям: активные филиалы и сотрудники
func (r *DashboardRepository) GetNetworkStats(ctx context.Context) ([]types.DashboardNetworkStat, error) {
	query, args, err := sq.Select(
		"n.id", "n.name", "n.active",
		"COUNT(DISTINCT b.id) FILTER (WHERE b.active) AS active_branches",
		"COUNT(DISTINCT e.id) FILTER (WHERE e.active) AS active_employees",
	).
		From("networks n").
		LeftJoin("branches b ON b.network_id = n.id").
		LeftJoin("employees e ON e.branch_id = b.id").
		GroupBy("n.id", "n.name", "n.active").
		OrderBy("active_employees DESC", "active_branches DESC", "n.name ASC").
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбивки по сетям: %w", err)
	}
	defer rows.Close()

	result := make([]types.DashboardNetworkStat, 0)
	for rows.Next() {
		var s types.DashboardNetworkStat
		if err := rows.Scan(&s.NetworkID, &s.Name, &s.Active, &s.ActiveBranches, &s.ActiveEmployees); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// 3. База накопительного итога: сколько строк стартовало до начала периода
func (r *DashboardRepository) CountStartedBefore(ctx context.Context, entity string, before *time.Time) (int64, error) {
	src, ok := startedExpr[entity]
	if !ok {
		return 0, fmt.Errorf("неизвестная сущность %q", entity)
	}
	if before == nil {
		return 0, nil
	}

	query, args, err := sq.Select("COUNT(*)").
		From(src.table).
		Where(sq.Lt{src.expr: *before}).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта базы ряда: %w", err)
	}
	return count, nil
}

// 4. Динамика справочника по бакетам. Накопительный итог считает сервис.
func (r *DashboardRepository) GetEvolution(ctx context.Context, entity, bucket string, from, to *time.Time) ([]types.DashboardEvolutionPoint, error) {
	src, ok := startedExpr[entity]
	if !ok {
		return nil, fmt.Errorf("неизвестная сущность %q", entity)
	}
	if !allowedBuckets[bucket] {
		return nil, fmt.Errorf("недопустимый шаг ряда %q", bucket)
	}

	bucketExpr := fmt.Sprintf("date_trunc('%s', %s)::date", bucket, src.expr)
	b := sq.Select(bucketExpr+" AS bucket", "COUNT(*)", "COUNT(*) FILTER (WHERE t.active)").
		From(src.table).
		GroupBy("bucket").
		OrderBy("bucket")
	b = applyPeriod(b, src.expr, from, to)

	query, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка построения ряда: %w", err)
	}
	defer rows.Close()

	points := make([]types.DashboardEvolutionPoint, 0)
	for rows.Next() {
		var p types.DashboardEvolutionPoint
		if err := rows.Scan(&p.Bucket, &p.Started, &p.StartedActive); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// 5. Итоги продаж ваучеров за период
func (r *DashboardRepository) GetVoucherTotals(ctx context.Context, from, to *time.Time) (*types.DashboardVoucherTotals, error) {
	b := sq.Select(
		"COALESCE(SUM(v.amount), 0)::text",
		"COALESCE(SUM(v.quantity), 0)::bigint",
		"COUNT(*)",
		"COUNT(DISTINCT v.employee_id)",
	).From(voucherTable + " v")
	b = applyPeriod(b, "v.sale_date", from, to)

	query, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	var amount string
	totals := &types.DashboardVoucherTotals{}
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&amount, &totals.Quantity, &totals.Sales, &totals.Sellers); err != nil {
		return nil, fmt.Errorf("ошибка итогов продаж: %w", err)
	}
	totals.Amount = decimalFromText(amount)
	return totals, nil
}

// 6. Рейтинг сетей/филиалов/сотрудников по сумме или количеству
func (r *DashboardRepository) GetRanking(ctx context.Context, dimension, metric string, limit uint64, from, to *time.Time) ([]types.DashboardRankingItem, error) {
	dim, ok := rankingDimensions[dimension]
	if !ok {
		return nil, fmt.Errorf("неизвестное измерение рейтинга %q", dimension)
	}
	orderBy := "SUM(v.amount) DESC"
	if metric == "quantity" {
		orderBy = "SUM(v.quantity) DESC"
	}

	// Сумма читается текстом, чтобы не терять копейки на float
	b := sq.Select(
		dim.id, dim.name,
		"COALESCE(SUM(v.amount), 0)::text",
		"COALESCE(SUM(v.quantity), 0)::bigint",
	).
		From(voucherTable + " v").
		Join(dim.join).
		GroupBy(dim.id, dim.name).
		OrderBy(orderBy, dim.name+" ASC").
		Limit(limit)
	if dim.extra != nil {
		b = b.Where(dim.extra)
	}
	b = applyPeriod(b, "v.sale_date", from, to)

	query, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка построения рейтинга: %w", err)
	}
	defer rows.Close()

	items := make([]types.DashboardRankingItem, 0, limit)
	for rows.Next() {
		var (
			item   types.DashboardRankingItem
			amount string
		)
		if err := rows.Scan(&item.ID, &item.Name, &amount, &item.Quantity); err != nil {
			return nil, err
		}
		item.Amount = decimalFromText(amount)
		item.Position = len(items) + 1
		items = append(items, item)
	}
	return items, rows.Err()
}

// 7. Продажи по бакетам
func (r *DashboardRepository) GetVoucherSeries(ctx context.Context, bucket string, from, to *time.Time) ([]types.DashboardVoucherPoint, error) {
	if !allowedBuckets[bucket] {
		return nil, fmt.Errorf("недопустимый шаг ряда %q", bucket)
	}

	b := sq.Select(
		fmt.Sprintf("date_trunc('%s', v.sale_date)::date AS bucket", bucket),
		"COALESCE(SUM(v.amount), 0)::text",
		"COALESCE(SUM(v.quantity), 0)::bigint",
	).
		From(voucherTable + " v").
		GroupBy("bucket").
		OrderBy("bucket")
	b = applyPeriod(b, "v.sale_date", from, to)

	query, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка ряда продаж: %w", err)
	}
	defer rows.Close()

	points := make([]types.DashboardVoucherPoint, 0)
	for rows.Next() {
		var (
			p      types.DashboardVoucherPoint
			amount string
		)
		if err := rows.Scan(&p.Bucket, &amount, &p.Quantity); err != nil {
			return nil, err
		}
		p.Amount = decimalFromText(amount)
		points = append(points, p)
	}
	return points, rows.Err()
}
