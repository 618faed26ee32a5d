package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(RequestID, Logger)
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(200).SendString(GetRequestID(c))
	})
	return app
}

func TestRequestIDAssigned(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	id := resp.Header.Get(RequestIDHeader)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestRequestIDKept(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, id)

	resp, err := newApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, id, resp.Header.Get(RequestIDHeader))
}

func TestRequestIDReplacesGarbage(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")

	resp, err := newApp().Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", resp.Header.Get(RequestIDHeader))
}

func TestLoggerPassesErrorsThrough(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID, Logger)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "boom")
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
}
