package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bi-dashboard/internal/dto"
	"bi-dashboard/internal/entities"
	"bi-dashboard/internal/repositories"
	apperrors "bi-dashboard/pkg/errors"
	"bi-dashboard/pkg/utils"
)

// StatsVersionKey - счётчик версии статистики; сверка увеличивает его после каждой загрузки.
const StatsVersionKey = "stats:version"

type ReconcilerInterface interface {
	Reconcile(ctx context.Context, entity entities.ImportEntity, table dto.TabularRowsDTO, opts dto.ImportOptionsDTO) (*dto.ImportReportDTO, error)
}

type Reconciler struct {
	txManager         repositories.TxManagerInterface
	networkRepo       repositories.NetworkRepositoryInterface
	branchRepo        repositories.BranchRepositoryInterface
	employeeRepo      repositories.EmployeeRepositoryInterface
	voucherRepo       repositories.VoucherRepositoryInterface
	importRunRepo     repositories.ImportRunRepositoryInterface
	cacheRepo         repositories.CacheRepositoryInterface
	cleaner           *RowCleaner
	deactivateMissing bool
	now               func() time.Time
	logger            *zap.Logger
}

func NewReconciler(
	txManager repositories.TxManagerInterface,
	networkRepo repositories.NetworkRepositoryInterface,
	branchRepo repositories.BranchRepositoryInterface,
	employeeRepo repositories.EmployeeRepositoryInterface,
	voucherRepo repositories.VoucherRepositoryInterface,
	importRunRepo repositories.ImportRunRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	cleaner *RowCleaner,
	deactivateMissing bool,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		txManager:         txManager,
		networkRepo:       networkRepo,
		branchRepo:        branchRepo,
		employeeRepo:      employeeRepo,
		voucherRepo:       voucherRepo,
		importRunRepo:     importRunRepo,
		cacheRepo:         cacheRepo,
		cleaner:           cleaner,
		deactivateMissing: deactivateMissing,
		now:               time.Now,
		logger:            logger,
	}
}

// reconcileState - всё, что накапливается за одну загрузку внутри транзакции.
type reconcileState struct {
	clean             CleanResult
	run               entities.ImportRun
	deactivateMissing bool
	today             time.Time
}

// Reconcile - точка входа сверки: колонки -> очистка -> ремонт ссылок -> план -> запись -> журнал.
func (s *Reconciler) Reconcile(ctx context.Context, entity entities.ImportEntity, table dto.TabularRowsDTO, opts dto.ImportOptionsDTO) (*dto.ImportReportDTO, error) {
	mapping, err := MapColumns(entity, table.Headers)
	if err != nil {
		return nil, err
	}
	for f := range mapping.Fuzzy {
		s.logger.Info("колонка сопоставлена нечётким поиском",
			zap.String("entity", string(entity)), zap.String("field", string(f)), zap.String("header", mapping.Headers[f]))
	}

	clean := s.cleaner.Clean(table, mapping)
	if clean.RowsValid() == 0 {
		return nil, fmt.Errorf("%w: прочитано строк %d", apperrors.ErrNoValidRows, clean.RowsRead)
	}

	sourceName := opts.SourceName
	if sourceName == "" {
		sourceName = table.SourceName
	}
	startedAt := s.now()
	st := &reconcileState{
		clean: clean,
		run: entities.ImportRun{
			ID:          uuid.New(),
			Entity:      entity,
			SourceName:  sourceName,
			RowsRead:    clean.RowsRead,
			RowsValid:   clean.RowsValid(),
			RowsSkipped: clean.RowsSkipped(),
			StartedAt:   startedAt,
		},
		deactivateMissing: s.deactivateMissing,
		today:             utils.TruncateDay(startedAt),
	}
	if opts.DeactivateMissing != nil {
		st.deactivateMissing = *opts.DeactivateMissing
	}

	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		switch entity {
		case entities.EntityNetwork:
			err = s.reconcileNetworks(ctx, tx, st)
		case entities.EntityBranch:
			err = s.reconcileBranches(ctx, tx, st)
		case entities.EntityEmployee:
			err = s.reconcileEmployees(ctx, tx, st)
		case entities.EntityVoucher:
			// Журнал пишется внутри: на него ссылаются строки продаж
			return s.reconcileVouchers(ctx, tx, st)
		default:
			return apperrors.ErrUnsupportedEntity
		}
		if err != nil {
			return err
		}
		st.run.FinishedAt = s.now()
		return s.importRunRepo.CreateRun(ctx, tx, st.run)
	})
	if err != nil {
		s.logger.Error("сверка откатилась", zap.String("entity", string(entity)), zap.String("source", sourceName), zap.Error(err))
		return nil, err
	}

	s.bumpStatsVersion(ctx)

	report := buildReport(st.run, st.clean.Issues)
	s.logger.Info("сверка завершена",
		zap.String("run_id", report.RunID),
		zap.String("entity", report.Entity),
		zap.Int("rows_read", report.RowsRead),
		zap.Int("added", report.Added),
		zap.Int("updated", report.Updated),
		zap.Int("renamed", report.Renamed),
		zap.Int("reactivated", report.Reactivated),
		zap.Int("deactivated", report.Deactivated),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("auto_branches", report.AutoCreatedBranches),
	)
	return report, nil
}

// bumpStatsVersion делает старые ключи кеша статистики недостижимыми. Ошибка кеша не ломает загрузку.
func (s *Reconciler) bumpStatsVersion(ctx context.Context) {
	if _, err := s.cacheRepo.Incr(ctx, StatsVersionKey); err != nil {
		s.logger.Warn("не удалось сбросить кеш статистики", zap.Error(err))
	}
}

// --- Справочники ---

func (s *Reconciler) reconcileNetworks(ctx context.Context, tx pgx.Tx, st *reconcileState) error {
	existing, err := s.networkRepo.ListNetworks(ctx, tx)
	if err != nil {
		return err
	}

	rows := make([]ExistingRow, 0, len(existing))
	for _, n := range existing {
		rows = append(rows, ExistingRow{ID: n.ID, Key: n.NameKey, Name: n.Name, Active: n.Active})
	}
	incoming := make([]IncomingRow, 0, len(st.clean.Networks))
	for i, rec := range st.clean.Networks {
		incoming = append(incoming, IncomingRow{Ref: i, Line: rec.Line, Key: rec.Key, Name: rec.Name, Active: rec.Active})
	}

	// Таблица сетей покрывает весь справочник
	plan := BuildPlan(rows, incoming, PlanOptions{DeactivateMissing: st.deactivateMissing})

	return s.applyPlan(ctx, tx, plan, st, func(c PlannedChange) error {
		rec := st.clean.Networks[c.Incoming.Ref]
		_, _, err := s.networkRepo.UpsertNetwork(ctx, tx, entities.Network{Name: rec.Name, NameKey: rec.Key, Active: rec.Active})
		return err
	}, s.networkRepo.DeactivateNetworks)
}

func (s *Reconciler) reconcileBranches(ctx context.Context, tx pgx.Tx, st *reconcileState) error {
	refs := make([]networkRef, 0, len(st.clean.Branches))
	for _, rec := range st.clean.Branches {
		refs = append(refs, networkRef{Key: rec.NetworkKey, Name: rec.NetworkName})
	}
	networkIDs, err := s.ensureNetworks(ctx, tx, refs, st)
	if err != nil {
		return err
	}
	scope := scopeOf(networkIDs)

	existing, err := s.branchRepo.ListByNetworks(ctx, tx, scopeIDs(scope))
	if err != nil {
		return err
	}
	rows := make([]ExistingRow, 0, len(existing))
	for _, b := range existing {
		rows = append(rows, ExistingRow{
			ID: b.ID, ScopeID: b.NetworkID, Key: compositeKey(b.NetworkID, b.NameKey),
			Name: b.Name, Active: b.Active, StartDate: b.StartDate, AutoCreated: b.AutoCreated,
		})
	}

	incoming := make([]IncomingRow, 0, len(st.clean.Branches))
	for i, rec := range st.clean.Branches {
		netID := networkIDs[rec.NetworkKey]
		incoming = append(incoming, IncomingRow{
			Ref: i, Line: rec.Line, ScopeID: netID, Key: compositeKey(netID, rec.Key),
			Name: rec.Name, Active: rec.Active, StartDate: rec.StartDate.Ptr(),
		})
	}

	plan := BuildPlan(rows, incoming, PlanOptions{DeactivateMissing: st.deactivateMissing, Scope: scope})

	return s.applyPlan(ctx, tx, plan, st, func(c PlannedChange) error {
		rec := st.clean.Branches[c.Incoming.Ref]
		_, _, err := s.branchRepo.UpsertBranch(ctx, tx, entities.Branch{
			NetworkID: c.Incoming.ScopeID,
			Name:      rec.Name,
			NameKey:   rec.Key,
			Active:    rec.Active,
			StartDate: rec.StartDate.Ptr(),
		})
		return err
	}, s.branchRepo.DeactivateBranches)
}

func (s *Reconciler) reconcileEmployees(ctx context.Context, tx pgx.Tx, st *reconcileState) error {
	netRefs := make([]networkRef, 0, len(st.clean.Employees))
	branchRefs := make([]branchRef, 0, len(st.clean.Employees))
	for _, rec := range st.clean.Employees {
		netRefs = append(netRefs, networkRef{Key: rec.NetworkKey, Name: rec.NetworkName})
		branchRefs = append(branchRefs, branchRef{NetworkKey: rec.NetworkKey, Key: rec.BranchKey, Name: rec.BranchName})
	}
	networkIDs, err := s.ensureNetworks(ctx, tx, netRefs, st)
	if err != nil {
		return err
	}
	scope := scopeOf(networkIDs)
	branchIDs, err := s.ensureBranches(ctx, tx, networkIDs, branchRefs, st)
	if err != nil {
		return err
	}

	existing, err := s.employeeRepo.ListByNetworks(ctx, tx, scopeIDs(scope))
	if err != nil {
		return err
	}
	rows := make([]ExistingRow, 0, len(existing))
	for _, e := range existing {
		rows = append(rows, ExistingRow{
			ID: e.ID, ScopeID: e.NetworkID, Key: compositeKey(e.BranchID, e.NameKey),
			Name: e.Name, Active: e.Active, StartDate: e.StartDate,
		})
	}

	incoming := make([]IncomingRow, 0, len(st.clean.Employees))
	for i, rec := range st.clean.Employees {
		netID := networkIDs[rec.NetworkKey]
		branchID := branchIDs[compositeKey(netID, rec.BranchKey)]
		incoming = append(incoming, IncomingRow{
			Ref: i, Line: rec.Line, ScopeID: netID, Key: compositeKey(branchID, rec.Key),
			Name: rec.Name, Active: rec.Active, StartDate: rec.StartDate.Ptr(),
		})
	}

	plan := BuildPlan(rows, incoming, PlanOptions{DeactivateMissing: st.deactivateMissing, Scope: scope})

	return s.applyPlan(ctx, tx, plan, st, func(c PlannedChange) error {
		rec := st.clean.Employees[c.Incoming.Ref]
		netID := c.Incoming.ScopeID
		_, _, err := s.employeeRepo.UpsertEmployee(ctx, tx, entities.Employee{
			Name:      rec.Name,
			NameKey:   rec.Key,
			BranchID:  branchIDs[compositeKey(netID, rec.BranchKey)],
			NetworkID: netID,
			Active:    rec.Active,
			StartDate: rec.StartDate.Ptr(),
		})
		return err
	}, s.employeeRepo.DeactivateEmployees)
}

// applyPlan пишет изменения плана и заполняет счётчики журнала.
func (s *Reconciler) applyPlan(
	ctx context.Context,
	tx pgx.Tx,
	plan Plan,
	st *reconcileState,
	upsert func(c PlannedChange) error,
	deactivateFn func(ctx context.Context, tx pgx.Tx, ids []uint64) (int64, error),
) error {
	var toDeactivate []uint64
	for _, c := range plan.Changes {
		switch {
		case c.Kind == ChangeDeactivate:
			toDeactivate = append(toDeactivate, c.Existing.ID)
		case c.Writes():
			if err := upsert(c); err != nil {
				return fmt.Errorf("строка %d: %w", c.Incoming.Line, err)
			}
		}
	}

	deactivated, err := deactivateFn(ctx, tx, toDeactivate)
	if err != nil {
		return err
	}

	st.run.Added = plan.Count(ChangeAdd)
	st.run.Updated = plan.Count(ChangeUpdate)
	st.run.Renamed = plan.Count(ChangeRename)
	st.run.Reactivated = plan.Count(ChangeReactivate)
	st.run.Unchanged = plan.Count(ChangeUnchanged)
	st.run.Deactivated = int(deactivated)
	return nil
}

func buildReport(run entities.ImportRun, issues []dto.RowIssue) *dto.ImportReportDTO {
	if issues == nil {
		issues = []dto.RowIssue{}
	}
	return &dto.ImportReportDTO{
		RunID:               run.ID.String(),
		Entity:              string(run.Entity),
		SourceName:          run.SourceName,
		RowsRead:            run.RowsRead,
		RowsValid:           run.RowsValid,
		RowsSkipped:         run.RowsSkipped,
		Added:               run.Added,
		Updated:             run.Updated,
		Renamed:             run.Renamed,
		Reactivated:         run.Reactivated,
		Deactivated:         run.Deactivated,
		Unchanged:           run.Unchanged,
		Replaced:            run.Replaced,
		AutoCreatedNetworks: run.AutoNetworks,
		AutoCreatedBranches: run.AutoBranches,
		Issues:              issues,
		StartedAt:           run.StartedAt,
		FinishedAt:          run.FinishedAt,
	}
}

func compositeKey(parentID uint64, key string) string {
	return fmt.Sprintf("%d|%s", parentID, key)
}
