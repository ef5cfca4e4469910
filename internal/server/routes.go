package server

import (
	"github.com/wisslab/wissrank/internal/server/middleware"
	"github.com/wisslab/wissrank/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Snapshot routes
	apiRoutes.GET("/snapshots", routes.GetSnapshotsHandler)
	apiRoutes.POST("/snapshots", routes.CreateSnapshotHandler)
	apiRoutes.GET("/snapshots/:id/scholars", routes.GetScholarsHandler)
	apiRoutes.GET("/snapshots/:id/scholars/:scholar_id", routes.GetScholarHandler)

	// Run routes
	apiRoutes.GET("/runs", routes.GetRunsHandler)
	apiRoutes.POST("/runs", routes.CreateRunHandler)
	apiRoutes.GET("/runs/:id", routes.GetRunHandler)
	apiRoutes.GET("/runs/:id/ranking", routes.GetRankingHandler)
	apiRoutes.GET("/runs/:id/diagnostics", routes.GetDiagnosticsHandler)
}
