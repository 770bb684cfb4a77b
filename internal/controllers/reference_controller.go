package controllers

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"bi-dashboard/internal/services"
	"bi-dashboard/pkg/api"
	"bi-dashboard/pkg/types"
	"bi-dashboard/pkg/utils"
)

// ReferenceController - списки справочников только на чтение.
type ReferenceController struct {
	referenceService services.ReferenceServiceInterface
	logger           *zap.Logger
}

func NewReferenceController(referenceService services.ReferenceServiceInterface, logger *zap.Logger) *ReferenceController {
	return &ReferenceController{referenceService: referenceService, logger: logger}
}

func (ctrl *ReferenceController) GetNetworks(c echo.Context) error {
	filter := utils.ParseFilterFromQuery(c.QueryParams())
	list, total, err := ctrl.referenceService.GetNetworks(c.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	page, limit := pageOf(filter)
	return api.SuccessList(c, "Сети", list, total, page, limit)
}

func (ctrl *ReferenceController) GetBranches(c echo.Context) error {
	filter := utils.ParseFilterFromQuery(c.QueryParams())
	list, total, err := ctrl.referenceService.GetBranches(c.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	page, limit := pageOf(filter)
	return api.SuccessList(c, "Филиалы", list, total, page, limit)
}

func (ctrl *ReferenceController) GetEmployees(c echo.Context) error {
	filter := utils.ParseFilterFromQuery(c.QueryParams())
	list, total, err := ctrl.referenceService.GetEmployees(c.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	page, limit := pageOf(filter)
	return api.SuccessList(c, "Сотрудники", list, total, page, limit)
}

func pageOf(filter types.Filter) (page, limit int) {
	if !filter.WithPagination {
		return 0, 0
	}
	return filter.Page, filter.Limit
}
