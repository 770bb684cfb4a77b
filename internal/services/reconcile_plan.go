package services

import (
	"time"

	"bi-dashboard/pkg/utils"
)

// ChangeKind - что сверка решила сделать со строкой справочника.
type ChangeKind string

const (
	ChangeAdd        ChangeKind = "add"
	ChangeRename     ChangeKind = "rename"
	ChangeReactivate ChangeKind = "reactivate"
	ChangeUpdate     ChangeKind = "update"
	ChangeUnchanged  ChangeKind = "unchanged"
	ChangeDeactivate ChangeKind = "deactivate"
)

// ExistingRow - строка из базы в общем для трёх справочников виде.
// Key уже составной: для филиала "network_id|name_key", для сотрудника "branch_id|name_key".
type ExistingRow struct {
	ID          uint64
	ScopeID     uint64
	Key         string
	Name        string
	Active      bool
	StartDate   *time.Time
	AutoCreated bool
}

// IncomingRow - очищенная запись загрузки. Ref - индекс записи в CleanResult.
type IncomingRow struct {
	Ref       int
	Line      int
	ScopeID   uint64
	Key       string
	Name      string
	Active    bool
	StartDate *time.Time
}

type PlannedChange struct {
	Kind     ChangeKind
	Incoming *IncomingRow
	Existing *ExistingRow
}

// Writes - нужно ли что-то записывать в базу для этого изменения.
func (c PlannedChange) Writes() bool {
	return c.Kind != ChangeUnchanged
}

type Plan struct {
	Changes []PlannedChange
	counts  map[ChangeKind]int
}

func (p Plan) Count(kind ChangeKind) int {
	return p.counts[kind]
}

// PlanOptions. Scope == nil означает, что загрузка покрывает весь справочник.
type PlanOptions struct {
	DeactivateMissing bool
	Scope             map[uint64]bool
}

// BuildPlan сравнивает загрузку с базой. Функция не делает I/O и ничего не удаляет:
// отсутствующие в загрузке активные строки только деактивируются.
func BuildPlan(existing []ExistingRow, incoming []IncomingRow, opts PlanOptions) Plan {
	plan := Plan{counts: make(map[ChangeKind]int)}

	byKey := make(map[string]int, len(existing))
	for i, e := range existing {
		byKey[e.Key] = i
	}
	matched := make(map[int]bool, len(incoming))

	for i := range incoming {
		in := &incoming[i]
		idx, ok := byKey[in.Key]
		if !ok {
			plan.add(PlannedChange{Kind: ChangeAdd, Incoming: in})
			continue
		}
		matched[idx] = true
		ex := &existing[idx]
		plan.add(PlannedChange{Kind: classify(ex, in), Incoming: in, Existing: ex})
	}

	if opts.DeactivateMissing {
		for i := range existing {
			ex := &existing[i]
			if matched[i] || !ex.Active {
				continue
			}
			if opts.Scope != nil && !opts.Scope[ex.ScopeID] {
				continue
			}
			plan.add(PlannedChange{Kind: ChangeDeactivate, Existing: ex})
		}
	}
	return plan
}

// classify: возврат неактивной строки важнее переименования; имя при этом тоже обновляется
// и попадает в счётчик renamed (см. Plan.add).
func classify(ex *ExistingRow, in *IncomingRow) ChangeKind {
	switch {
	case !ex.Active && in.Active:
		return ChangeReactivate
	case ex.Name != in.Name:
		return ChangeRename
	case ex.Active != in.Active:
		return ChangeUpdate
	// Филиал, созданный автоматически, подтверждается загрузкой справочника
	case ex.AutoCreated:
		return ChangeUpdate
	case in.StartDate != nil && !utils.SameDay(ex.StartDate, in.StartDate):
		return ChangeUpdate
	}
	return ChangeUnchanged
}

func (p *Plan) add(c PlannedChange) {
	p.Changes = append(p.Changes, c)
	p.counts[c.Kind]++
	if c.Kind == ChangeReactivate && c.Existing.Name != c.Incoming.Name {
		p.counts[ChangeRename]++
	}
}
