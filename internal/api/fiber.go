// Package api builds the Fiber application serving the REST and GraphQL routes.
package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/ortelius/cve-triage/graphql"
	"github.com/ortelius/cve-triage/restapi"
)

// NewFiberApp creates and configures a Fiber app with REST and GraphQL routes
func NewFiberApp(deps restapi.Dependencies, requestTimeout time.Duration) (*fiber.App, error) {
	schema, err := graphql.CreateSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to create GraphQL schema: %w", err)
	}

	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	app := fiber.New(fiber.Config{
		AppName:      "cve-triage API v1.0",
		BodyLimit:    16 * 1024 * 1024, // 16MB
		ReadTimeout:  60 * time.Second,
		WriteTimeout: requestTimeout + 30*time.Second,
	})

	// Middleware
	app.Use(fiberrecover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000,http://localhost:4000,http://127.0.0.1:3000,http://127.0.0.1:4000",
		AllowHeaders:     "Origin, Content-Type, Accept, X-Requested-With",
		AllowCredentials: true,
		AllowMethods:     "GET, POST, HEAD, DELETE, OPTIONS",
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("graphql_op", "-")
		return c.Next()
	})
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} - ${latency} ${method} ${path} ${locals:graphql_op}\n",
	}))

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	restapi.SetupRoutes(app, deps, schema)

	return app, nil
}
