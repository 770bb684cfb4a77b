package seeders

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bi-dashboard/internal/dto"
	"bi-dashboard/internal/entities"
	"bi-dashboard/internal/repositories"
	"bi-dashboard/internal/services"
	"bi-dashboard/pkg/config"
	"bi-dashboard/pkg/filestorage"
	"bi-dashboard/pkg/validation"
)

// NewImportService собирает тот же конвейер загрузки, что и HTTP-сервер.
func NewImportService(
	dbPool *pgxpool.Pool,
	cacheRepo repositories.CacheRepositoryInterface,
	storage filestorage.FileStorageInterface,
	cfg *config.Config,
	logger *zap.Logger,
) *services.ImportService {
	reconciler := services.NewReconciler(
		repositories.NewTxManager(dbPool),
		repositories.NewNetworkRepository(dbPool, logger),
		repositories.NewBranchRepository(dbPool, logger),
		repositories.NewEmployeeRepository(dbPool, logger),
		repositories.NewVoucherRepository(dbPool, logger),
		repositories.NewImportRunRepository(dbPool, logger),
		cacheRepo,
		services.NewRowCleaner(validation.New().Engine()),
		cfg.Import.DeactivateMissing,
		logger,
	)
	reader := services.NewSpreadsheetReader(cfg.Import.HeaderSearchRows, logger)
	return services.NewImportService(reader, reconciler, storage, logger)
}

// DemoTables строит демонстрационные выгрузки: сети, филиалы, сотрудники и продажи за days дней до now.
func DemoTables(now time.Time, days int, seed uint64) map[entities.ImportEntity]dto.TabularRowsDTO {
	rnd := rand.New(rand.NewPCG(seed, seed^0x5eed))

	networks := dto.TabularRowsDTO{Headers: []string{"Rede", "Ativo", "Data Início"}, SourceName: "demo_redes"}
	branches := dto.TabularRowsDTO{Headers: []string{"Rede", "Filial", "Ativo", "Data Abertura"}, SourceName: "demo_filiais"}
	employees := dto.TabularRowsDTO{Headers: []string{"Rede", "Filial", "Colaborador", "Ativo", "Data Admissão"}, SourceName: "demo_colaboradores"}
	vouchers := dto.TabularRowsDTO{Headers: []string{"Data", "Rede", "Filial", "Colaborador", "Quantidade", "Valor"}, SourceName: "demo_vouchers"}

	for _, n := range demoNetworks {
		networks.Rows = append(networks.Rows, []string{n.Name, yesNo(n.Active), n.Opened})
		opened, _ := time.Parse(time.DateOnly, n.Opened)

		for bi, b := range n.Branches {
			branchOpened := opened.AddDate(0, bi, 0)
			branchActive := n.Active && bi != len(n.Branches)-1
			branches.Rows = append(branches.Rows, []string{n.Name, b, yesNo(branchActive), branchOpened.Format(time.DateOnly)})

			staff := 2 + rnd.IntN(3)
			for e := 0; e < staff; e++ {
				name := demoFirstNames[rnd.IntN(len(demoFirstNames))] + " " + demoLastNames[rnd.IntN(len(demoLastNames))]
				hired := branchOpened.AddDate(0, 0, rnd.IntN(300))
				employees.Rows = append(employees.Rows, []string{n.Name, b, name, yesNo(branchActive && rnd.IntN(5) != 0), hired.Format("02/01/2006")})

				if !branchActive {
					continue
				}
				for d := 0; d < days; d++ {
					if rnd.IntN(3) != 0 {
						continue
					}
					day := now.AddDate(0, 0, -d)
					qty := 1 + rnd.IntN(6)
					amount := decimal.NewFromInt(int64(qty)).Mul(decimal.NewFromInt(int64(25 + 5*rnd.IntN(10))))
					vouchers.Rows = append(vouchers.Rows, []string{
						day.Format(time.DateOnly), n.Name, b, name, strconv.Itoa(qty), amount.StringFixed(2),
					})
				}
			}
		}
	}

	return map[entities.ImportEntity]dto.TabularRowsDTO{
		entities.EntityNetwork:  networks,
		entities.EntityBranch:   branches,
		entities.EntityEmployee: employees,
		entities.EntityVoucher:  vouchers,
	}
}

// SeedDemo прогоняет демо-выгрузки через сверку в порядке зависимостей.
func SeedDemo(ctx context.Context, importer services.ImportServiceInterface, days int, logger *zap.Logger) error {
	tables := DemoTables(time.Now().UTC(), days, 42)
	order := []entities.ImportEntity{entities.EntityNetwork, entities.EntityBranch, entities.EntityEmployee, entities.EntityVoucher}

	for _, entity := range order {
		report, err := importer.ImportRows(ctx, entity, tables[entity], dto.ImportOptionsDTO{})
		if err != nil {
			return fmt.Errorf("демо-выгрузка %s: %w", entity, err)
		}
		logger.Info("демо-выгрузка применена",
			zap.String("entity", string(entity)),
			zap.Int("added", report.Added),
			zap.Int("updated", report.Updated),
			zap.Int("deactivated", report.Deactivated),
			zap.Int("replaced", report.Replaced),
			zap.Int("issues", len(report.Issues)),
		)
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "sim"
	}
	return "não"
}
