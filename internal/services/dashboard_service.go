package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"bi-dashboard/internal/dto"
	"bi-dashboard/internal/entities"
	"bi-dashboard/internal/repositories"
	apperrors "bi-dashboard/pkg/errors"
	"bi-dashboard/pkg/types"
	"bi-dashboard/pkg/utils"
)

const (
	defaultBucket       = "month"
	defaultRankingLimit = 10
	defaultRunsLimit    = 20
	defaultKPIDays      = 30
	// Больше точек ряд не дополняет нулями
	maxFilledBuckets = 1000
)

type DashboardServiceInterface interface {
	Summary(ctx context.Context) (*dto.DashboardSummaryDTO, error)
	NetworkBreakdown(ctx context.Context) ([]types.DashboardNetworkStat, error)
	Evolution(ctx context.Context, q dto.EvolutionQueryDTO) (*dto.EvolutionDTO, error)
	Rankings(ctx context.Context, q dto.RankingQueryDTO) ([]types.DashboardRankingItem, error)
	VoucherKPIs(ctx context.Context, q dto.VoucherKPIQueryDTO) (*dto.VoucherKPIsDTO, error)
	VoucherSeries(ctx context.Context, q dto.VoucherSeriesQueryDTO) ([]types.DashboardVoucherPoint, error)
	ListImportRuns(ctx context.Context, q dto.ImportRunsQueryDTO) ([]dto.ImportRunDTO, error)
}

type DashboardService struct {
	repo     repositories.DashboardRepositoryInterface
	runRepo  repositories.ImportRunRepositoryInterface
	cache    repositories.CacheRepositoryInterface
	cacheTTL time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewDashboardService(
	repo repositories.DashboardRepositoryInterface,
	runRepo repositories.ImportRunRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		repo:     repo,
		runRepo:  runRepo,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// taskGroup запускает запросы дашборда параллельно и собирает ошибки.
type taskGroup struct {
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

func (g *taskGroup) Go(fn func() error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := fn(); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
	}()
}

// Wait возвращает первую ошибку после завершения всех задач.
func (g *taskGroup) Wait() error {
	g.wg.Wait()
	if len(g.errs) > 0 {
		return g.errs[0]
	}
	return nil
}

// cached читает результат из кеша по текущей версии статистики, при промахе считает и кладёт.
// Сбой кеша не ломает запрос: данные берутся из БД.
func cached[T any](ctx context.Context, s *DashboardService, key string, load func() (T, error)) (T, error) {
	version, err := s.cache.Get(ctx, StatsVersionKey)
	if err != nil {
		if !errors.Is(err, repositories.ErrCacheMiss) {
			s.logger.Warn("кеш статистики недоступен", zap.Error(err))
		}
		version = "0"
	}
	fullKey := fmt.Sprintf("stats:v%s:%s", version, key)

	if raw, err := s.cache.Get(ctx, fullKey); err == nil {
		var out T
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out, nil
		}
		s.logger.Warn("битое значение в кеше", zap.String("key", fullKey))
	}

	out, err := load()
	if err != nil {
		return out, err
	}
	if payload, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, fullKey, payload, s.cacheTTL); err != nil {
			s.logger.Warn("не удалось записать кеш", zap.String("key", fullKey), zap.Error(err))
		}
	}
	return out, nil
}

func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardSummaryDTO, error) {
	return cached(ctx, s, "summary", func() (*dto.DashboardSummaryDTO, error) {
		var (
			g       taskGroup
			summary *types.DashboardSummary
			last    *entities.ImportRun
		)
		g.Go(func() (err error) { summary, err = s.repo.GetSummary(ctx); return })
		g.Go(func() error {
			run, err := s.runRepo.LastRun(ctx)
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil
			}
			last = run
			return err
		})
		if err := g.Wait(); err != nil {
			s.logger.Error("ошибка загрузки сводки", zap.Error(err))
			return nil, err
		}

		out := &dto.DashboardSummaryDTO{DashboardSummary: *summary}
		if last != nil {
			runDTO := toImportRunDTO(*last)
			out.LastImport = &runDTO
		}
		return out, nil
	})
}

func (s *DashboardService) NetworkBreakdown(ctx context.Context) ([]types.DashboardNetworkStat, error) {
	return cached(ctx, s, "networks", func() ([]types.DashboardNetworkStat, error) {
		return s.repo.GetNetworkStats(ctx)
	})
}

// Evolution - сколько строк справочника стартовало в каждом бакете и накопительный итог.
// Итог начинается с числа строк, стартовавших до начала периода.
func (s *DashboardService) Evolution(ctx context.Context, q dto.EvolutionQueryDTO) (*dto.EvolutionDTO, error) {
	if q.Bucket == "" {
		q.Bucket = defaultBucket
	}
	key := fmt.Sprintf("evolution:%s:%s:%s:%s", q.Entity, q.Bucket, dayKey(q.From), dayKey(q.To))

	return cached(ctx, s, key, func() (*dto.EvolutionDTO, error) {
		baseline, err := s.repo.CountStartedBefore(ctx, q.Entity, q.From)
		if err != nil {
			return nil, err
		}
		points, err := s.repo.GetEvolution(ctx, q.Entity, q.Bucket, q.From, q.To)
		if err != nil {
			return nil, err
		}

		points = fillBuckets(points,
			func(p types.DashboardEvolutionPoint) time.Time { return p.Bucket },
			func(t time.Time) types.DashboardEvolutionPoint { return types.DashboardEvolutionPoint{Bucket: t} },
			q.Bucket, q.From, q.To)

		running := baseline
		for i := range points {
			running += points[i].Started
			points[i].Cumulative = running
		}
		return &dto.EvolutionDTO{Entity: q.Entity, Bucket: q.Bucket, Baseline: baseline, Points: points}, nil
	})
}

func (s *DashboardService) Rankings(ctx context.Context, q dto.RankingQueryDTO) ([]types.DashboardRankingItem, error) {
	if q.Metric == "" {
		q.Metric = "amount"
	}
	if q.Limit <= 0 {
		q.Limit = defaultRankingLimit
	}
	key := fmt.Sprintf("ranking:%s:%s:%d:%s:%s", q.Dimension, q.Metric, q.Limit, dayKey(q.From), dayKey(q.To))

	return cached(ctx, s, key, func() ([]types.DashboardRankingItem, error) {
		return s.repo.GetRanking(ctx, q.Dimension, q.Metric, uint64(q.Limit), q.From, q.To)
	})
}

// VoucherKPIs сравнивает период с предыдущим периодом той же длины.
func (s *DashboardService) VoucherKPIs(ctx context.Context, q dto.VoucherKPIQueryDTO) (*dto.VoucherKPIsDTO, error) {
	to := utils.TruncateDay(s.now())
	if q.To != nil {
		to = utils.TruncateDay(*q.To)
	}
	from := to.AddDate(0, 0, -(defaultKPIDays - 1))
	if q.From != nil {
		from = utils.TruncateDay(*q.From)
	}
	if from.After(to) {
		return nil, apperrors.NewInvalidInputError("начало периода %s позже конца %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	days := int(to.Sub(from).Hours()/24) + 1
	prevTo := from.AddDate(0, 0, -1)
	prevFrom := prevTo.AddDate(0, 0, -(days - 1))
	key := fmt.Sprintf("kpis:%s:%s", from.Format(time.DateOnly), to.Format(time.DateOnly))

	return cached(ctx, s, key, func() (*dto.VoucherKPIsDTO, error) {
		var (
			g         taskGroup
			cur, prev *types.DashboardVoucherTotals
		)
		g.Go(func() (err error) { cur, err = s.repo.GetVoucherTotals(ctx, &from, &to); return })
		g.Go(func() (err error) { prev, err = s.repo.GetVoucherTotals(ctx, &prevFrom, &prevTo); return })
		if err := g.Wait(); err != nil {
			s.logger.Error("ошибка расчёта KPI продаж", zap.Error(err))
			return nil, err
		}

		return &dto.VoucherKPIsDTO{
			From:          from,
			To:            to,
			PreviousFrom:  prevFrom,
			PreviousTo:    prevTo,
			Amount:        kpi(cur.Amount.InexactFloat64(), prev.Amount.InexactFloat64()),
			Quantity:      kpi(float64(cur.Quantity), float64(prev.Quantity)),
			AverageTicket: kpi(averageTicket(cur), averageTicket(prev)),
			ActiveSellers: kpi(float64(cur.Sellers), float64(prev.Sellers)),
		}, nil
	})
}

func (s *DashboardService) VoucherSeries(ctx context.Context, q dto.VoucherSeriesQueryDTO) ([]types.DashboardVoucherPoint, error) {
	if q.Bucket == "" {
		q.Bucket = defaultBucket
	}
	key := fmt.Sprintf("vouchers:%s:%s:%s", q.Bucket, dayKey(q.From), dayKey(q.To))

	return cached(ctx, s, key, func() ([]types.DashboardVoucherPoint, error) {
		points, err := s.repo.GetVoucherSeries(ctx, q.Bucket, q.From, q.To)
		if err != nil {
			return nil, err
		}
		return fillBuckets(points,
			func(p types.DashboardVoucherPoint) time.Time { return p.Bucket },
			func(t time.Time) types.DashboardVoucherPoint { return types.DashboardVoucherPoint{Bucket: t} },
			q.Bucket, q.From, q.To), nil
	})
}

// ListImportRuns не кешируется: журнал должен быть виден сразу после загрузки.
func (s *DashboardService) ListImportRuns(ctx context.Context, q dto.ImportRunsQueryDTO) ([]dto.ImportRunDTO, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	runs, err := s.runRepo.ListRuns(ctx, entities.ImportEntity(q.Entity), uint64(limit))
	if err != nil {
		return nil, err
	}
	out := make([]dto.ImportRunDTO, 0, len(runs))
	for _, r := range runs {
		out = append(out, toImportRunDTO(r))
	}
	return out, nil
}

// kpi считает тренд как в карточках дашборда: рост с нуля = +100%.
func kpi(current, previous float64) types.DashboardKPIMetric {
	m := types.DashboardKPIMetric{Current: current, Previous: previous}
	switch {
	case previous > 0:
		m.TrendPct = (current - previous) / previous * 100
	case current > 0:
		m.TrendPct = 100
	}
	m.TrendPct = math.Round(m.TrendPct*10) / 10
	m.IsIncreasing = current > previous
	return m
}

func averageTicket(t *types.DashboardVoucherTotals) float64 {
	if t.Sales == 0 {
		return 0
	}
	return math.Round(t.Amount.InexactFloat64()/float64(t.Sales)*100) / 100
}

// fillBuckets дополняет ряд нулевыми точками, чтобы на графике не было дыр.
// Границы - период запроса, если он задан, иначе первая и последняя точка.
func fillBuckets[T any](points []T, bucketOf func(T) time.Time, zero func(time.Time) T, bucket string, from, to *time.Time) []T {
	var start, end time.Time
	switch {
	case from != nil:
		start = truncBucket(*from, bucket)
	case len(points) > 0:
		start = truncBucket(bucketOf(points[0]), bucket)
	default:
		return points
	}
	switch {
	case to != nil:
		end = truncBucket(*to, bucket)
	case len(points) > 0:
		end = truncBucket(bucketOf(points[len(points)-1]), bucket)
	default:
		end = start
	}

	byBucket := make(map[string]T, len(points))
	for _, p := range points {
		byBucket[truncBucket(bucketOf(p), bucket).Format(time.DateOnly)] = p
	}

	out := make([]T, 0, len(points))
	for t := start; !t.After(end); t = nextBucket(t, bucket) {
		if len(out) >= maxFilledBuckets {
			return points
		}
		if p, ok := byBucket[t.Format(time.DateOnly)]; ok {
			out = append(out, p)
		} else {
			out = append(out, zero(t))
		}
	}
	return out
}

// truncBucket повторяет date_trunc PostgreSQL: неделя начинается с понедельника.
func truncBucket(t time.Time, bucket string) time.Time {
	d := utils.TruncateDay(t)
	switch bucket {
	case "week":
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset)
	case "month":
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case "year":
		return time.Date(d.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return d
}

func nextBucket(t time.Time, bucket string) time.Time {
	switch bucket {
	case "week":
		return t.AddDate(0, 0, 7)
	case "month":
		return t.AddDate(0, 1, 0)
	case "year":
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 0, 1)
}

func dayKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func toImportRunDTO(r entities.ImportRun) dto.ImportRunDTO {
	return dto.ImportRunDTO{
		ID:                  r.ID.String(),
		Entity:              string(r.Entity),
		SourceName:          r.SourceName,
		RowsRead:            r.RowsRead,
		RowsValid:           r.RowsValid,
		RowsSkipped:         r.RowsSkipped,
		Added:               r.Added,
		Updated:             r.Updated,
		Renamed:             r.Renamed,
		Reactivated:         r.Reactivated,
		Deactivated:         r.Deactivated,
		Unchanged:           r.Unchanged,
		Replaced:            r.Replaced,
		AutoCreatedNetworks: r.AutoNetworks,
		AutoCreatedBranches: r.AutoBranches,
		StartedAt:           r.StartedAt,
		FinishedAt:          r.FinishedAt,
	}
}
