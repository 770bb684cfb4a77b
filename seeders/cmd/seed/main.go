package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bi-dashboard/internal/dto"
	"bi-dashboard/internal/entities"
	"bi-dashboard/internal/repositories"
	"bi-dashboard/internal/services"
	"bi-dashboard/pkg/config"
	"bi-dashboard/pkg/database"
	"bi-dashboard/pkg/database/postgresql"
	applogger "bi-dashboard/pkg/logger"
	"bi-dashboard/seeders"
)

type app struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
	cache  repositories.CacheRepositoryInterface
}

func (a *app) connect(ctx context.Context) error {
	pool, err := postgresql.ConnectDB(ctx, a.cfg.Postgres.DSN, a.logger)
	if err != nil {
		return err
	}
	a.pool = pool

	a.cache = repositories.NewNoopCacheRepository()
	if a.cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Address, Password: a.cfg.Redis.Password, DB: a.cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			a.logger.Warn("Redis недоступен, кэш статистики не будет сброшен", zap.Error(err))
		} else {
			a.cache = repositories.NewRedisCacheRepository(client)
		}
	}
	return database.Migrate(ctx, pool, a.logger)
}

func (a *app) importService() *services.ImportService {
	return seeders.NewImportService(a.pool, a.cache, nil, a.cfg, a.logger)
}

func main() {
	a := &app{cfg: config.New()}
	a.logger = applogger.NewLogger(a.cfg.Log.Level, "")
	defer a.logger.Sync()

	root := &cobra.Command{
		Use:           "seed",
		Short:         "Миграции, загрузка выгрузок и демо-данные",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.pool != nil {
				a.pool.Close()
			}
		},
	}

	root.AddCommand(migrateCmd(a), importCmd(a), demoCmd(a))

	if err := root.ExecuteContext(context.Background()); err != nil {
		a.logger.Error("команда завершилась с ошибкой", zap.Error(err))
		os.Exit(1)
	}
}

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.connect(cmd.Context())
		},
	}
}

func importCmd(a *app) *cobra.Command {
	var (
		entityName        string
		filePath          string
		deactivateMissing bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Загрузить выгрузку (.xlsx/.csv) и вывести отчёт сверки",
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := entities.ParseImportEntity(entityName)
			if err != nil {
				return err
			}
			f, err := os.Open(filePath)
			if err != nil {
				return fmt.Errorf("не удалось открыть %s: %w", filePath, err)
			}
			defer f.Close()

			if err := a.connect(cmd.Context()); err != nil {
				return err
			}

			var opts dto.ImportOptionsDTO
			if cmd.Flags().Changed("deactivate-missing") {
				opts.DeactivateMissing = &deactivateMissing
			}
			report, err := a.importService().ImportFile(cmd.Context(), entity, filepath.Base(filePath), f, opts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVarP(&entityName, "entity", "e", "", "тип таблицы: network|branch|employee|voucher")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "путь к файлу выгрузки")
	cmd.Flags().BoolVar(&deactivateMissing, "deactivate-missing", false, "деактивировать записи, отсутствующие в выгрузке")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func demoCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Наполнить базу демонстрационными сетями, филиалами, сотрудниками и продажами",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			return seeders.SeedDemo(cmd.Context(), a.importService(), days, a.logger)
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "за сколько дней сгенерировать продажи")
	return cmd
}
