package routes

import (
	"github.com/labstack/echo/v4"

	"bi-dashboard/internal/controllers"
)

func runReferenceRouter(group *echo.Group, referenceController *controllers.ReferenceController) {
	group.GET("/networks", referenceController.GetNetworks)
	group.GET("/branches", referenceController.GetBranches)
	group.GET("/employees", referenceController.GetEmployees)
}
