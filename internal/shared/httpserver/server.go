package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/cristianortiz/bidEngine/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	app *fiber.App
}

var log = logger.GetLogger()

// Route is implemented by every module exposing endpoints on the shared server.
type Route interface {
	RegisterRoutes(app *fiber.App)
}

func NewServer(routes ...Route) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})

	app.Use(recover.New())

	// logging middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Info("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.String("remoteAddr", c.IP()),
			zap.Duration("elapsed", time.Since(start)),
		)
		return err
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	for _, r := range routes {
		r.RegisterRoutes(app)
	}

	return &Server{app: app}
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server started", zap.String("addr", addr))
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}
