package handlers

import (
	"log"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"

	"salesdash/config"
	"salesdash/models"
)

// HandleHealth reports liveness and, when a database is configured, whether
// it answers a ping.
func HandleHealth(c *fiber.Ctx) error {
	storeState := "memory"
	if storePing != nil {
		if err := storePing(c.UserContext()); err != nil {
			log.Printf("❌ [HEALTH] Database ping failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"message": "Database ping failed",
			})
		}
		storeState = "connected"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"status":  "ok",
		"store":   storeState,
	})
}

// HandleGetDateRange returns the data coverage of a channel.
func HandleGetDateRange(c *fiber.Ctx) error {
	channel := c.Query("channel", config.AppConfig.DefaultChannel)
	meta, err := dashboardService.DateRange(c.UserContext(), models.NormalizeChannel(channel))
	if err != nil {
		log.Printf("❌ [META] Date range for %s: %v", channel, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load date range",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    meta,
	})
}

// HandleListScenarios lists the forecast scenarios and their assumptions.
func HandleListScenarios(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    dashboardService.Scenarios(),
	})
}

// HandleVersion prints the build information.
func HandleVersion(c *fiber.Ctx) error {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return c.Status(fiber.StatusInternalServerError).SendString("no build information available")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(info.String())
}
