package routes

import (
	"github.com/labstack/echo/v4"

	"bi-dashboard/internal/controllers"
)

func runStatsRouter(group *echo.Group, statsController *controllers.StatsController) {
	stats := group.Group("/stats")

	stats.GET("/summary", statsController.Summary)
	stats.GET("/networks", statsController.Networks)
	stats.GET("/evolution", statsController.Evolution)
	stats.GET("/rankings", statsController.Rankings)
	stats.GET("/vouchers/kpis", statsController.VoucherKPIs)
	stats.GET("/vouchers/series", statsController.VoucherSeries)
	stats.GET("/export", statsController.Export)
}
