package routes

import (
	"github.com/labstack/echo/v4"

	"bi-dashboard/internal/controllers"
)

func runImportRouter(group *echo.Group, importController *controllers.ImportController, statsController *controllers.StatsController) {
	group.GET("/imports", statsController.ImportRuns)
	group.POST("/imports/:entity", importController.UploadFile)
	group.POST("/imports/:entity/rows", importController.SubmitRows)
}
