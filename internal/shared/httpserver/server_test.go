package httpserver

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

type pingRoute struct{}

func (pingRoute) RegisterRoutes(app *fiber.App) {
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	app.Get("/boom", func(c *fiber.Ctx) error { panic("boom") })
}

func TestServerRoutes(t *testing.T) {
	s := NewServer(pingRoute{})

	resp, err := s.App().Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	assert.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	check.Equal(t, fiber.StatusOK, resp.StatusCode)
	check.Equal(t, "OK", string(body))

	resp, err = s.App().Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil))
	assert.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	check.Equal(t, "pong", string(body))
}

func TestServerRecoversPanics(t *testing.T) {
	s := NewServer(pingRoute{})
	resp, err := s.App().Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
	assert.NoError(t, err)
	check.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
