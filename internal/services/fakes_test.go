package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"bi-dashboard/internal/entities"
	"bi-dashboard/internal/repositories"
	apperrors "bi-dashboard/pkg/errors"
	"bi-dashboard/pkg/types"
	"bi-dashboard/pkg/utils"
)

// memStore - справочники в памяти для тестов сервисов. Повторяет ON CONFLICT-семантику репозиториев.
type memStore struct {
	mu        sync.Mutex
	nextID    uint64
	networks  []*entities.Network
	branches  []*entities.Branch
	employees []*entities.Employee
	runs      []entities.ImportRun
	sales     []entities.VoucherSale
	cache     map[string]string
	incrCalls int
	failTx    error
}

func newMemStore() *memStore {
	return &memStore{cache: make(map[string]string)}
}

func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addNetwork(name string, active bool) uint64 {
	id := m.id()
	m.networks = append(m.networks, &entities.Network{ID: id, Name: name, NameKey: utils.NameKey(name), Active: active})
	return id
}

func (m *memStore) addBranch(networkID uint64, name string, active bool) uint64 {
	id := m.id()
	m.branches = append(m.branches, &entities.Branch{ID: id, NetworkID: networkID, Name: name, NameKey: utils.NameKey(name), Active: active})
	return id
}

func (m *memStore) addEmployee(networkID, branchID uint64, name string) uint64 {
	id := m.id()
	m.employees = append(m.employees, &entities.Employee{
		ID: id, NetworkID: networkID, BranchID: branchID, Name: name, NameKey: utils.NameKey(name), Active: true,
	})
	return id
}

func (m *memStore) branchByName(name string) *entities.Branch {
	for _, b := range m.branches {
		if b.Name == name {
			return b
		}
	}
	return nil
}

func (m *memStore) networkByName(name string) *entities.Network {
	for _, n := range m.networks {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func inScope(ids []uint64, id uint64) bool {
	if len(ids) == 0 {
		return true
	}
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// --- транзакции ---

type fakeTxManager struct{ s *memStore }

func (f fakeTxManager) RunInTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	if f.s.failTx != nil {
		return f.s.failTx
	}
	return fn(nil)
}

// --- сети ---

type fakeNetworks struct{ s *memStore }

func (f fakeNetworks) ListNetworks(context.Context, pgx.Tx) ([]entities.Network, error) {
	out := make([]entities.Network, 0, len(f.s.networks))
	for _, n := range f.s.networks {
		out = append(out, *n)
	}
	return out, nil
}

func (f fakeNetworks) FindNetwork(_ context.Context, id uint64) (*entities.Network, error) {
	for _, n := range f.s.networks {
		if n.ID == id {
			c := *n
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f fakeNetworks) CreateNetwork(_ context.Context, _ pgx.Tx, n entities.Network) (uint64, error) {
	n.ID = f.s.id()
	f.s.networks = append(f.s.networks, &n)
	return n.ID, nil
}

func (f fakeNetworks) UpsertNetwork(ctx context.Context, tx pgx.Tx, n entities.Network) (uint64, bool, error) {
	for _, cur := range f.s.networks {
		if cur.NameKey == n.NameKey {
			cur.Name, cur.Active = n.Name, n.Active
			return cur.ID, false, nil
		}
	}
	id, err := f.CreateNetwork(ctx, tx, n)
	return id, true, err
}

func (f fakeNetworks) DeactivateNetworks(_ context.Context, _ pgx.Tx, ids []uint64) (int64, error) {
	var n int64
	for _, cur := range f.s.networks {
		if len(ids) > 0 && inScope(ids, cur.ID) && cur.Active {
			cur.Active = false
			n++
		}
	}
	return n, nil
}

func (f fakeNetworks) GetNetworks(context.Context, types.Filter) ([]entities.Network, uint64, error) {
	list, _ := f.ListNetworks(context.Background(), nil)
	return list, uint64(len(list)), nil
}

// --- филиалы ---

type fakeBranches struct{ s *memStore }

func (f fakeBranches) ListByNetworks(_ context.Context, _ pgx.Tx, networkIDs []uint64) ([]entities.Branch, error) {
	out := make([]entities.Branch, 0)
	for _, b := range f.s.branches {
		if inScope(networkIDs, b.NetworkID) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f fakeBranches) FindBranch(_ context.Context, id uint64) (*entities.Branch, error) {
	for _, b := range f.s.branches {
		if b.ID == id {
			c := *b
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f fakeBranches) CreateBranch(_ context.Context, _ pgx.Tx, b entities.Branch) (uint64, error) {
	b.ID = f.s.id()
	f.s.branches = append(f.s.branches, &b)
	return b.ID, nil
}

func (f fakeBranches) UpsertBranch(ctx context.Context, tx pgx.Tx, b entities.Branch) (uint64, bool, error) {
	for _, cur := range f.s.branches {
		if cur.NetworkID == b.NetworkID && cur.NameKey == b.NameKey {
			cur.Name, cur.Active, cur.AutoCreated = b.Name, b.Active, false
			if b.StartDate != nil {
				cur.StartDate = b.StartDate
			}
			return cur.ID, false, nil
		}
	}
	id, err := f.CreateBranch(ctx, tx, b)
	return id, true, err
}

func (f fakeBranches) DeactivateBranches(_ context.Context, _ pgx.Tx, ids []uint64) (int64, error) {
	var n int64
	for _, cur := range f.s.branches {
		if len(ids) > 0 && inScope(ids, cur.ID) && cur.Active {
			cur.Active = false
			n++
		}
	}
	return n, nil
}

func (f fakeBranches) GetBranches(context.Context, types.Filter) ([]entities.Branch, uint64, error) {
	list, _ := f.ListByNetworks(context.Background(), nil, nil)
	return list, uint64(len(list)), nil
}

// --- сотрудники ---

type fakeEmployees struct{ s *memStore }

func (f fakeEmployees) ListByNetworks(_ context.Context, _ pgx.Tx, networkIDs []uint64) ([]entities.Employee, error) {
	out := make([]entities.Employee, 0)
	for _, e := range f.s.employees {
		if inScope(networkIDs, e.NetworkID) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f fakeEmployees) FindEmployee(_ context.Context, id uint64) (*entities.Employee, error) {
	for _, e := range f.s.employees {
		if e.ID == id {
			c := *e
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f fakeEmployees) UpsertEmployee(_ context.Context, _ pgx.Tx, e entities.Employee) (uint64, bool, error) {
	for _, cur := range f.s.employees {
		if cur.BranchID == e.BranchID && cur.NameKey == e.NameKey {
			cur.Name, cur.Active, cur.NetworkID = e.Name, e.Active, e.NetworkID
			if e.StartDate != nil {
				cur.StartDate = e.StartDate
			}
			return cur.ID, false, nil
		}
	}
	e.ID = f.s.id()
	f.s.employees = append(f.s.employees, &e)
	return e.ID, true, nil
}

func (f fakeEmployees) DeactivateEmployees(_ context.Context, _ pgx.Tx, ids []uint64) (int64, error) {
	var n int64
	for _, cur := range f.s.employees {
		if len(ids) > 0 && inScope(ids, cur.ID) && cur.Active {
			cur.Active = false
			n++
		}
	}
	return n, nil
}

func (f fakeEmployees) GetEmployees(context.Context, types.Filter) ([]entities.Employee, uint64, error) {
	list, _ := f.ListByNetworks(context.Background(), nil, nil)
	return list, uint64(len(list)), nil
}

// --- журнал и продажи ---

type fakeRuns struct{ s *memStore }

func (f fakeRuns) CreateRun(_ context.Context, _ pgx.Tx, run entities.ImportRun) error {
	f.s.runs = append(f.s.runs, run)
	return nil
}

func (f fakeRuns) ListRuns(_ context.Context, entity entities.ImportEntity, limit uint64) ([]entities.ImportRun, error) {
	out := make([]entities.ImportRun, 0)
	for i := len(f.s.runs) - 1; i >= 0 && uint64(len(out)) < limit; i-- {
		if entity == "" || f.s.runs[i].Entity == entity {
			out = append(out, f.s.runs[i])
		}
	}
	return out, nil
}

func (f fakeRuns) LastRun(context.Context) (*entities.ImportRun, error) {
	if len(f.s.runs) == 0 {
		return nil, apperrors.ErrNotFound
	}
	r := f.s.runs[len(f.s.runs)-1]
	return &r, nil
}

type fakeVouchers struct{ s *memStore }

func (f fakeVouchers) DeleteRange(_ context.Context, _ pgx.Tx, networkIDs []uint64, from, to time.Time) (int64, error) {
	kept := f.s.sales[:0]
	var n int64
	for _, sale := range f.s.sales {
		if inScope(networkIDs, sale.NetworkID) && !sale.SaleDate.Before(from) && !sale.SaleDate.After(to) {
			n++
			continue
		}
		kept = append(kept, sale)
	}
	f.s.sales = kept
	return n, nil
}

func (f fakeVouchers) CopySales(_ context.Context, _ pgx.Tx, sales []entities.VoucherSale) (int64, error) {
	f.s.sales = append(f.s.sales, sales...)
	return int64(len(sales)), nil
}

// --- кеш ---

type fakeCache struct{ s *memStore }

func (f fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	switch v := value.(type) {
	case string:
		f.s.cache[key] = v
	case []byte:
		f.s.cache[key] = string(v)
	}
	return nil
}

func (f fakeCache) Get(_ context.Context, key string) (string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	v, ok := f.s.cache[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (f fakeCache) Del(_ context.Context, keys ...string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, k := range keys {
		delete(f.s.cache, k)
	}
	return nil
}

func (f fakeCache) Incr(_ context.Context, key string) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.incrCalls++
	n, _ := strconv.ParseInt(f.s.cache[key], 10, 64)
	n++
	f.s.cache[key] = strconv.FormatInt(n, 10)
	return n, nil
}
