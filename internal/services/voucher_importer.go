package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bi-dashboard/internal/dto"
	"bi-dashboard/internal/entities"
)

// reconcileVouchers заменяет продажи затронутых сетей за период файла [min, max].
// Сети и филиалы ремонтируются как у справочников; неизвестный сотрудник -> employee_id NULL и предупреждение.
func (s *Reconciler) reconcileVouchers(ctx context.Context, tx pgx.Tx, st *reconcileState) error {
	records := st.clean.Vouchers

	netRefs := make([]networkRef, 0, len(records))
	branchRefs := make([]branchRef, 0, len(records))
	for _, rec := range records {
		netRefs = append(netRefs, networkRef{Key: rec.NetworkKey, Name: rec.NetworkName})
		branchRefs = append(branchRefs, branchRef{NetworkKey: rec.NetworkKey, Key: rec.BranchKey, Name: rec.BranchName})
	}
	networkIDs, err := s.ensureNetworks(ctx, tx, netRefs, st)
	if err != nil {
		return err
	}
	scope := scopeIDs(scopeOf(networkIDs))
	branchIDs, err := s.ensureBranches(ctx, tx, networkIDs, branchRefs, st)
	if err != nil {
		return err
	}

	employees, err := s.employeeRepo.ListByNetworks(ctx, tx, scope)
	if err != nil {
		return err
	}
	resolve := newEmployeeResolver(employees)

	from, to := records[0].SaleDate, records[0].SaleDate
	sales := make([]entities.VoucherSale, 0, len(records))
	for _, rec := range records {
		if rec.SaleDate.Before(from) {
			from = rec.SaleDate
		}
		if rec.SaleDate.After(to) {
			to = rec.SaleDate
		}

		netID := networkIDs[rec.NetworkKey]
		branchID := branchIDs[compositeKey(netID, rec.BranchKey)]
		sale := entities.VoucherSale{
			SaleDate:    rec.SaleDate,
			NetworkID:   netID,
			BranchID:    branchID,
			Quantity:    rec.Quantity,
			Amount:      rec.Amount,
			ImportRunID: st.run.ID,
		}
		if rec.EmployeeKey != "" {
			if id, ok := resolve(netID, branchID, rec.EmployeeKey); ok {
				sale.EmployeeID = &id
			} else {
				st.clean.Issues = append(st.clean.Issues, dto.RowIssue{
					Line:   rec.Line,
					Field:  string(FieldEmployee),
					Value:  rec.EmployeeName,
					Reason: "сотрудник не найден в справочнике, продажа сохранена без сотрудника",
				})
			}
		}
		sales = append(sales, sale)
	}

	replaced, err := s.voucherRepo.DeleteRange(ctx, tx, scope, from, to)
	if err != nil {
		return err
	}

	st.run.Added = len(sales)
	st.run.Replaced = int(replaced)
	st.run.FinishedAt = s.now()
	if err := s.importRunRepo.CreateRun(ctx, tx, st.run); err != nil {
		return err
	}

	if _, err := s.voucherRepo.CopySales(ctx, tx, sales); err != nil {
		return err
	}
	s.logger.Debug("продажи загружены",
		zap.Int("sales", len(sales)), zap.Int64("replaced", replaced),
		zap.Time("from", from), zap.Time("to", to.Add(24*time.Hour-time.Nanosecond)))
	return nil
}

// newEmployeeResolver ищет сотрудника сначала в филиале продажи, затем по всей сети,
// если имя в сети однозначно.
func newEmployeeResolver(employees []entities.Employee) func(networkID, branchID uint64, key string) (uint64, bool) {
	byBranch := make(map[string]uint64, len(employees))
	byNetwork := make(map[string][]uint64)
	for _, e := range employees {
		byBranch[compositeKey(e.BranchID, e.NameKey)] = e.ID
		nk := compositeKey(e.NetworkID, e.NameKey)
		byNetwork[nk] = append(byNetwork[nk], e.ID)
	}

	return func(networkID, branchID uint64, key string) (uint64, bool) {
		if id, ok := byBranch[compositeKey(branchID, key)]; ok {
			return id, true
		}
		if ids := byNetwork[compositeKey(networkID, key)]; len(ids) == 1 {
			return ids[0], true
		}
		return 0, false
	}
}
