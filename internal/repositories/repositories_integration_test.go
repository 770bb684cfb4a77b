package repositories

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bi-dashboard/internal/entities"
	"bi-dashboard/pkg/database"
	"bi-dashboard/pkg/types"
)

var testPool *pgxpool.Pool

// TestMain поднимает соединение с тестовой БД и накатывает миграции.
// Без TEST_DATABASE_URL интеграционные тесты пропускаются.
func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn != "" {
		var err error
		testPool, err = pgxpool.New(context.Background(), dsn)
		if err != nil {
			log.Fatalf("Не удалось подключиться к тестовой БД: %v", err)
		}
		if err := database.Migrate(context.Background(), testPool, zap.NewNop()); err != nil {
			log.Fatalf("Не удалось применить миграции: %v", err)
		}
	}

	code := m.Run()
	if testPool != nil {
		testPool.Close()
	}
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testPool == nil {
		t.Skip("TEST_DATABASE_URL не задан")
	}
	_, err := testPool.Exec(context.Background(),
		`TRUNCATE TABLE voucher_sales, import_runs, employees, branches, networks RESTART IDENTITY CASCADE;`)
	require.NoError(t, err, "Не удалось очистить таблицы")
}

func TestNetworkRepository_Integration_Upsert(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewNetworkRepository(testPool, zap.NewNop())

	id, inserted, err := repo.UpsertNetwork(ctx, nil, entities.Network{Name: "Rede Sul", NameKey: "rede sul", Active: true})
	require.NoError(t, err)
	assert.True(t, inserted)

	// Переименование по тому же ключу сохраняет id
	id2, inserted, err := repo.UpsertNetwork(ctx, nil, entities.Network{Name: "REDE SUL", NameKey: "rede sul", Active: true})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, id, id2)

	n, err := repo.FindNetwork(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "REDE SUL", n.Name)

	affected, err := repo.DeactivateNetworks(ctx, nil, []uint64{id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.DeactivateNetworks(ctx, nil, []uint64{id})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected, "уже неактивная сеть не трогается")
}

func TestBranchRepository_Integration_UpsertKeepsStartDate(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	networks := NewNetworkRepository(testPool, zap.NewNop())
	branches := NewBranchRepository(testPool, zap.NewNop())

	netID, err := networks.CreateNetwork(ctx, nil, entities.Network{Name: "Rede Sul", NameKey: "rede sul", Active: true})
	require.NoError(t, err)

	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	autoID, err := branches.CreateBranch(ctx, nil, entities.Branch{
		NetworkID: netID, Name: "Centro", NameKey: "centro", Active: true, StartDate: &today, AutoCreated: true,
	})
	require.NoError(t, err)

	id, inserted, err := branches.UpsertBranch(ctx, nil, entities.Branch{NetworkID: netID, Name: "Centro", NameKey: "centro", Active: true})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, autoID, id)

	b, err := branches.FindBranch(ctx, id)
	require.NoError(t, err)
	assert.False(t, b.AutoCreated, "загрузка справочника подтверждает филиал")
	require.NotNil(t, b.StartDate)
	assert.Equal(t, "2024-03-15", b.StartDate.Format("2006-01-02"))
	assert.Equal(t, "Rede Sul", b.Network.Name)

	list, total, err := branches.GetBranches(ctx, types.Filter{Search: "cent", Limit: 10, WithPagination: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	assert.Len(t, list, 1)
}

func TestVoucherRepository_Integration_ReplaceRange(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	logger := zap.NewNop()
	networks := NewNetworkRepository(testPool, logger)
	branches := NewBranchRepository(testPool, logger)
	vouchers := NewVoucherRepository(testPool, logger)
	runs := NewImportRunRepository(testPool, logger)
	dashboard := NewDashboardRepository(testPool, logger)
	txm := NewTxManager(testPool)

	netID, err := networks.CreateNetwork(ctx, nil, entities.Network{Name: "Rede Sul", NameKey: "rede sul", Active: true})
	require.NoError(t, err)
	branchID, err := branches.CreateBranch(ctx, nil, entities.Branch{NetworkID: netID, Name: "Centro", NameKey: "centro", Active: true})
	require.NoError(t, err)

	d1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	load := func(amounts ...string) {
		runID := uuid.New()
		err := txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
			now := time.Now()
			if err := runs.CreateRun(ctx, tx, entities.ImportRun{ID: runID, Entity: entities.EntityVoucher, StartedAt: now, FinishedAt: now}); err != nil {
				return err
			}
			if _, err := vouchers.DeleteRange(ctx, tx, []uint64{netID}, d1, d2); err != nil {
				return err
			}
			sales := make([]entities.VoucherSale, 0, len(amounts))
			for i, a := range amounts {
				sales = append(sales, entities.VoucherSale{
					SaleDate: []time.Time{d1, d2}[i%2], NetworkID: netID, BranchID: branchID,
					Quantity: 1, Amount: decimal.RequireFromString(a), ImportRunID: runID,
				})
			}
			_, err := vouchers.CopySales(ctx, tx, sales)
			return err
		})
		require.NoError(t, err)
	}

	load("10.50", "20.25")
	load("10.50", "20.25")

	totals, err := dashboard.GetVoucherTotals(ctx, &d1, &d2)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("30.75").Equal(totals.Amount), "повторная загрузка заменяет период, got %s", totals.Amount)
	assert.Equal(t, int64(2), totals.Quantity)

	ranking, err := dashboard.GetRanking(ctx, "branch", "amount", 5, nil, nil)
	require.NoError(t, err)
	require.Len(t, ranking, 1)
	assert.Equal(t, 1, ranking[0].Position)
	assert.Equal(t, "Centro", ranking[0].Name)

	last, err := runs.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.EntityVoucher, last.Entity)
}

func TestDashboardRepository_Integration_Summary(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	networks := NewNetworkRepository(testPool, zap.NewNop())
	branches := NewBranchRepository(testPool, zap.NewNop())
	dashboard := NewDashboardRepository(testPool, zap.NewNop())

	netID, err := networks.CreateNetwork(ctx, nil, entities.Network{Name: "Rede Sul", NameKey: "rede sul", Active: true})
	require.NoError(t, err)
	_, err = networks.CreateNetwork(ctx, nil, entities.Network{Name: "Rede Norte", NameKey: "rede norte", Active: false})
	require.NoError(t, err)
	_, err = branches.CreateBranch(ctx, nil, entities.Branch{NetworkID: netID, Name: "Centro", NameKey: "centro", Active: true, AutoCreated: true})
	require.NoError(t, err)

	s, err := dashboard.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.CountPair{Total: 2, Active: 1}, s.Networks)
	assert.Equal(t, types.CountPair{Total: 1, Active: 1}, s.Branches)
	assert.Equal(t, int64(1), s.AutoCreatedBranches)

	stats, err := dashboard.GetNetworkStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Rede Sul", stats[0].Name)
	assert.Equal(t, int64(1), stats[0].ActiveBranches)

	points, err := dashboard.GetEvolution(ctx, "branch", "month", nil, nil)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, int64(1), points[0].Started)
}

func TestTxManager_Integration_RollbackOnError(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	logger := zap.NewNop()
	networks := NewNetworkRepository(testPool, logger)
	runs := NewImportRunRepository(testPool, logger)
	txm := NewTxManager(testPool)

	failed := errors.New("ошибка сверки")
	err := txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		now := time.Now()
		if err := runs.CreateRun(ctx, tx, entities.ImportRun{ID: uuid.New(), Entity: entities.EntityNetwork, StartedAt: now, FinishedAt: now}); err != nil {
			return err
		}
		if _, _, err := networks.UpsertNetwork(ctx, tx, entities.Network{Name: "Rede Sul", NameKey: "rede sul", Active: true}); err != nil {
			return err
		}
		return failed
	})
	require.ErrorIs(t, err, failed)

	var nets, journal int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT count(*) FROM networks`).Scan(&nets))
	require.NoError(t, testPool.QueryRow(ctx, `SELECT count(*) FROM import_runs`).Scan(&journal))
	assert.Zero(t, nets, "upsert откатывается вместе с журналом")
	assert.Zero(t, journal)

	err = txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		_, _, err := networks.UpsertNetwork(ctx, tx, entities.Network{Name: "Rede Sul", NameKey: "rede sul", Active: true})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, testPool.QueryRow(ctx, `SELECT count(*) FROM networks`).Scan(&nets))
	assert.Equal(t, 1, nets)
}
