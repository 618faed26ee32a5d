package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID keeps an incoming X-Request-ID or assigns a new one, and stores
// it in Locals under "requestID".
func RequestID(c *fiber.Ctx) error {
	id := c.Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	c.Locals("requestID", id)
	c.Set(RequestIDHeader, id)
	return c.Next()
}

// GetRequestID returns the id assigned by RequestID, or "" outside it.
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestID").(string)
	return id
}

// Logger logs one line per request once the handler has run.
func Logger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}
	log.Printf("🌐 [HTTP] %s %s %d %s rid=%s", c.Method(), c.OriginalURL(), status, time.Since(start).Round(time.Microsecond), GetRequestID(c))
	return err
}
