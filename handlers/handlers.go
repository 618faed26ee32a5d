// Package handlers exposes the dashboard over HTTP.
package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"salesdash/pipeline"
)

var (
	dashboardService *pipeline.Service
	// storePing reports whether the backing store is reachable. Nil means
	// the in-memory store, which is always up.
	storePing func(ctx context.Context) error
)

// Init wires the handlers to their dependencies. It must run before the
// routes are served.
func Init(svc *pipeline.Service, ping func(ctx context.Context) error) {
	dashboardService = svc
	storePing = ping
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
