package routes

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"bi-dashboard/internal/controllers"
	"bi-dashboard/internal/repositories"
	"bi-dashboard/internal/services"
	appconfig "bi-dashboard/pkg/config"
	"bi-dashboard/pkg/filestorage"
	"bi-dashboard/pkg/middleware"
	"bi-dashboard/pkg/validation"
)

func InitRouter(
	e *echo.Echo,
	dbConn *pgxpool.Pool,
	cacheRepo repositories.CacheRepositoryInterface,
	fileStorage filestorage.FileStorageInterface,
	cfg *appconfig.Config,
	logger *zap.Logger,
) {
	logger.Info("InitRouter: Начало создания маршрутов")

	api := e.Group("/api", middleware.InjectLogger(logger))
	txManager := repositories.NewTxManager(dbConn)

	// --- 1. РЕПОЗИТОРИИ ---
	networkRepo := repositories.NewNetworkRepository(dbConn, logger)
	branchRepo := repositories.NewBranchRepository(dbConn, logger)
	employeeRepo := repositories.NewEmployeeRepository(dbConn, logger)
	voucherRepo := repositories.NewVoucherRepository(dbConn, logger)
	importRunRepo := repositories.NewImportRunRepository(dbConn, logger)
	dashboardRepo := repositories.NewDashboardRepository(dbConn, logger)

	// --- 2. СЕРВИСЫ ---
	reconciler := services.NewReconciler(
		txManager, networkRepo, branchRepo, employeeRepo, voucherRepo, importRunRepo, cacheRepo,
		services.NewRowCleaner(validation.New().Engine()),
		cfg.Import.DeactivateMissing,
		logger,
	)
	reader := services.NewSpreadsheetReader(cfg.Import.HeaderSearchRows, logger)
	importService := services.NewImportService(reader, reconciler, fileStorage, logger)
	dashboardService := services.NewDashboardService(dashboardRepo, importRunRepo, cacheRepo, cfg.Stats.CacheTTL, logger)
	referenceService := services.NewReferenceService(networkRepo, branchRepo, employeeRepo, logger)

	// --- 3. КОНТРОЛЛЕРЫ ---
	importController := controllers.NewImportController(importService, cfg.Upload.MaxSizeMB, logger)
	statsController := controllers.NewStatsController(dashboardService, logger)
	referenceController := controllers.NewReferenceController(referenceService, logger)

	// --- 4. РОУТЕРЫ ---
	runImportRouter(api, importController, statsController)
	runStatsRouter(api, statsController)
	runReferenceRouter(api, referenceController)

	logger.Info("InitRouter: Создание маршрутов завершено")
}
