package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dcse/searchd/internal/auth"
	"github.com/dcse/searchd/internal/config"
	"github.com/dcse/searchd/internal/consumer"
	"github.com/dcse/searchd/internal/index"
	"github.com/dcse/searchd/internal/search"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// NewApp builds the HTTP application with all routes and middleware.
func NewApp(settings *config.Settings, engine *search.Engine, cons *consumer.Consumer, idx *index.Engine) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		AppName: "searchd",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	authMiddleware, err := auth.NewMiddleware(settings.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}
	app.Use(authMiddleware)

	searchHandler := NewSearchHandler(engine, settings.Search.DefaultPageSize)
	healthHandler := NewHealthHandler(cons, idx)

	app.Get("/search", searchHandler.Search)
	app.Get("/search/explain", searchHandler.Explain)
	app.Get("/health", healthHandler.Health)

	return app, nil
}

// Serve runs the app until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, app *fiber.App, settings *config.Settings) error {
	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()

	slog.Info("Server listening (HTTP)", "addr", addr, "auth_type", settings.Auth.Type)

	select {
	case <-ctx.Done():
		if err := app.ShutdownWithContext(context.Background()); err != nil {
			slog.Error("HTTP shutdown failed", "error", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
