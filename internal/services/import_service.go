package services

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"bi-dashboard/internal/dto"
	"bi-dashboard/internal/entities"
	"bi-dashboard/pkg/filestorage"
)

const archivePrefix = "imports"

type ImportServiceInterface interface {
	ImportFile(ctx context.Context, entity entities.ImportEntity, filename string, src io.Reader, opts dto.ImportOptionsDTO) (*dto.ImportReportDTO, error)
	ImportRows(ctx context.Context, entity entities.ImportEntity, table dto.TabularRowsDTO, opts dto.ImportOptionsDTO) (*dto.ImportReportDTO, error)
}

// ImportService - вход для HTTP и CLI: файл -> таблица -> сверка.
type ImportService struct {
	reader     *SpreadsheetReader
	reconciler ReconcilerInterface
	storage    filestorage.FileStorageInterface
	logger     *zap.Logger
}

// NewImportService: storage может быть nil, тогда файлы не архивируются.
func NewImportService(reader *SpreadsheetReader, reconciler ReconcilerInterface, storage filestorage.FileStorageInterface, logger *zap.Logger) *ImportService {
	return &ImportService{reader: reader, reconciler: reconciler, storage: storage, logger: logger}
}

func (s *ImportService) ImportFile(ctx context.Context, entity entities.ImportEntity, filename string, src io.Reader, opts dto.ImportOptionsDTO) (*dto.ImportReportDTO, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл %s: %w", filename, err)
	}

	if s.storage != nil {
		path, err := s.storage.Save(bytes.NewReader(data), filename, archivePrefix+"/"+string(entity))
		if err != nil {
			s.logger.Warn("не удалось сохранить выгрузку в архив", zap.String("file", filename), zap.Error(err))
		} else {
			s.logger.Debug("выгрузка сохранена в архив", zap.String("path", path))
		}
	}

	table, err := s.reader.Read(entity, filename, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if opts.SourceName == "" {
		opts.SourceName = filename
	}
	return s.reconciler.Reconcile(ctx, entity, *table, opts)
}

// ImportRows принимает уже разобранную таблицу (внешний парсер).
func (s *ImportService) ImportRows(ctx context.Context, entity entities.ImportEntity, table dto.TabularRowsDTO, opts dto.ImportOptionsDTO) (*dto.ImportReportDTO, error) {
	return s.reconciler.Reconcile(ctx, entity, table, opts)
}
