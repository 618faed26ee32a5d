package routes

import (
	"github.com/gofiber/fiber/v2"

	"salesdash/handlers"
)

// SetupRoutes defines all the routes for the application.
func SetupRoutes(app *fiber.App) {
	app.Get("/api/health", handlers.HandleHealth)
	app.Get("/api/version", handlers.HandleVersion)

	api := app.Group("/api/v1")

	// --- Metadata ---
	api.Get("/meta/date-range", handlers.HandleGetDateRange)
	api.Get("/scenarios", handlers.HandleListScenarios)

	// --- Dashboard ---
	api.Get("/dashboard", handlers.HandleGetDashboard)
}
