package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"bi-dashboard/internal/dto"
	"bi-dashboard/internal/services"
	apperrors "bi-dashboard/pkg/errors"
	"bi-dashboard/pkg/types"
	"bi-dashboard/pkg/utils"
)

type StatsController struct {
	dashboardService services.DashboardServiceInterface
	logger           *zap.Logger
}

func NewStatsController(dashboardService services.DashboardServiceInterface, logger *zap.Logger) *StatsController {
	return &StatsController{dashboardService: dashboardService, logger: logger}
}

func (ctrl *StatsController) Summary(c echo.Context) error {
	summary, err := ctrl.dashboardService.Summary(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, summary, "Сводка по справочникам", http.StatusOK)
}

func (ctrl *StatsController) Networks(c echo.Context) error {
	stats, err := ctrl.dashboardService.NetworkBreakdown(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, stats, "Разбивка по сетям", http.StatusOK)
}

// Evolution - GET /api/stats/evolution?entity=branch&bucket=month&date_from=&date_to=
func (ctrl *StatsController) Evolution(c echo.Context) error {
	from, to, err := parsePeriod(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	q := dto.EvolutionQueryDTO{
		Entity: c.QueryParam("entity"),
		Bucket: c.QueryParam("bucket"),
		From:   from,
		To:     to,
	}
	if err := c.Validate(&q); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	series, err := ctrl.dashboardService.Evolution(c.Request().Context(), q)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, series, "Динамика справочника", http.StatusOK)
}

func (ctrl *StatsController) Rankings(c echo.Context) error {
	from, to, err := parsePeriod(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	limit, err := intParam(c, "limit")
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	q := dto.RankingQueryDTO{
		Dimension: c.QueryParam("dimension"),
		Metric:    c.QueryParam("metric"),
		Limit:     limit,
		From:      from,
		To:        to,
	}
	if err := c.Validate(&q); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	items, err := ctrl.dashboardService.Rankings(c.Request().Context(), q)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, items, "Рейтинг", http.StatusOK)
}

func (ctrl *StatsController) VoucherKPIs(c echo.Context) error {
	from, to, err := parsePeriod(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	kpis, err := ctrl.dashboardService.VoucherKPIs(c.Request().Context(), dto.VoucherKPIQueryDTO{From: from, To: to})
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, kpis, "KPI продаж ваучеров", http.StatusOK)
}

func (ctrl *StatsController) VoucherSeries(c echo.Context) error {
	from, to, err := parsePeriod(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	q := dto.VoucherSeriesQueryDTO{Bucket: c.QueryParam("bucket"), From: from, To: to}
	if err := c.Validate(&q); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	points, err := ctrl.dashboardService.VoucherSeries(c.Request().Context(), q)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, points, "Продажи по периодам", http.StatusOK)
}

// ImportRuns - GET /api/imports?entity=&limit=
func (ctrl *StatsController) ImportRuns(c echo.Context) error {
	limit, err := intParam(c, "limit")
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	q := dto.ImportRunsQueryDTO{Entity: c.QueryParam("entity"), Limit: limit}
	if err := c.Validate(&q); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	runs, err := ctrl.dashboardService.ListImportRuns(c.Request().Context(), q)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, runs, "Журнал загрузок", http.StatusOK)
}

// Export - GET /api/stats/export: разбивка по сетям в .xlsx
func (ctrl *StatsController) Export(c echo.Context) error {
	stats, err := ctrl.dashboardService.NetworkBreakdown(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return ctrl.respondWithXLSX(c, stats)
}

var exportHeaders = []string{"№", "Сеть", "Активна", "Активных филиалов", "Активных сотрудников"}

func (ctrl *StatsController) respondWithXLSX(c echo.Context, stats []types.DashboardNetworkStat) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Сети"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeaders); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheet, "A1", "E1", style)

	for i, s := range stats {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		active := "нет"
		if s.Active {
			active = "да"
		}
		row := []interface{}{i + 1, s.Name, active, s.ActiveBranches, s.ActiveEmployees}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return utils.ErrorResponse(c, err, ctrl.logger)
		}
	}
	_ = f.SetColWidth(sheet, "B", "B", 35)
	_ = f.SetColWidth(sheet, "C", "E", 22)

	fileName := fmt.Sprintf("redes_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	c.Response().WriteHeader(http.StatusOK)
	return f.Write(c.Response().Writer)
}

func parsePeriod(c echo.Context) (from, to *time.Time, err error) {
	values := c.QueryParams()
	if from, err = utils.ParseDateParam(values, "date_from"); err != nil {
		return nil, nil, err
	}
	if to, err = utils.ParseDateParam(values, "date_to"); err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, apperrors.NewInvalidInputError("date_from позже date_to")
	}
	return from, to, nil
}

func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewInvalidInputError("%s: ожидается число, получено %q", name, raw)
	}
	return v, nil
}
