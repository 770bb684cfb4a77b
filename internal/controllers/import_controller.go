package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"bi-dashboard/internal/dto"
	"bi-dashboard/internal/entities"
	"bi-dashboard/internal/services"
	apperrors "bi-dashboard/pkg/errors"
	"bi-dashboard/pkg/middleware"
	"bi-dashboard/pkg/utils"
	"bi-dashboard/pkg/validation"
)

const (
	uploadContext = "spreadsheet"
	importLockTTL = 10 * time.Minute
)

type ImportController struct {
	importService services.ImportServiceInterface
	maxSizeMB     int64
	locks         *importLocks
	logger        *zap.Logger
}

func NewImportController(importService services.ImportServiceInterface, maxSizeMB int64, logger *zap.Logger) *ImportController {
	return &ImportController{
		importService: importService,
		maxSizeMB:     maxSizeMB,
		locks:         newImportLocks(importLockTTL),
		logger:        logger,
	}
}

// UploadFile - POST /api/imports/:entity, multipart с полем file.
func (ctrl *ImportController) UploadFile(c echo.Context) error {
	entity, err := ctrl.entityParam(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c,
			apperrors.NewHttpError(http.StatusBadRequest, "Файл не был передан", apperrors.ErrBadRequest, nil),
			ctrl.logger,
		)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c,
			apperrors.NewHttpError(http.StatusInternalServerError, "Ошибка обработки файла", err, nil),
			ctrl.logger,
		)
	}
	defer src.Close()

	if err := validation.ValidateFile(fileHeader, src, uploadContext, ctrl.maxSizeMB); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	opts, err := parseImportOptions(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	middleware.LoggerFrom(c, ctrl.logger).Info("получена выгрузка",
		zap.String("entity", string(entity)),
		zap.String("file", fileHeader.Filename),
		zap.Int64("size", fileHeader.Size),
	)

	if !ctrl.locks.TryAcquire(entity) {
		return utils.ErrorResponse(c, errImportBusy(entity), ctrl.logger)
	}
	defer ctrl.locks.Release(entity)

	report, err := ctrl.importService.ImportFile(c.Request().Context(), entity, fileHeader.Filename, src, opts)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, report, "Выгрузка обработана", http.StatusOK)
}

// SubmitRows - POST /api/imports/:entity/rows, таблица в JSON.
func (ctrl *ImportController) SubmitRows(c echo.Context) error {
	entity, err := ctrl.entityParam(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	var req dto.ImportRowsRequestDTO
	if err := c.Bind(&req); err != nil {
		return utils.ErrorResponse(c,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат JSON", err, nil),
			ctrl.logger,
		)
	}
	if err := c.Validate(&req); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	if !ctrl.locks.TryAcquire(entity) {
		return utils.ErrorResponse(c, errImportBusy(entity), ctrl.logger)
	}
	defer ctrl.locks.Release(entity)

	opts := dto.ImportOptionsDTO{DeactivateMissing: req.DeactivateMissing, SourceName: req.SourceName}
	report, err := ctrl.importService.ImportRows(c.Request().Context(), entity, req.TabularRowsDTO, opts)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, report, "Таблица обработана", http.StatusOK)
}

func (ctrl *ImportController) entityParam(c echo.Context) (entities.ImportEntity, error) {
	entity, err := entities.ParseImportEntity(c.Param("entity"))
	if err != nil {
		return "", apperrors.NewHttpError(http.StatusBadRequest, err.Error(), apperrors.ErrUnsupportedEntity,
			map[string]interface{}{"entity": c.Param("entity")})
	}
	return entity, nil
}

func errImportBusy(entity entities.ImportEntity) error {
	return apperrors.NewHttpError(http.StatusConflict, "Загрузка этой таблицы уже выполняется", nil,
		map[string]interface{}{"entity": string(entity)})
}

func parseImportOptions(c echo.Context) (dto.ImportOptionsDTO, error) {
	var opts dto.ImportOptionsDTO
	raw := c.QueryParam("deactivate_missing")
	if raw == "" {
		raw = c.FormValue("deactivate_missing")
	}
	if raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, apperrors.NewInvalidInputError("deactivate_missing: ожидается true/false, получено %q", raw)
		}
		opts.DeactivateMissing = &v
	}
	return opts, nil
}
