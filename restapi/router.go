// Package restapi provides the main router and initialization for REST API endpoints.
package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/ortelius/cve-triage/internal/enrich"
	"github.com/ortelius/cve-triage/internal/export"
	triagesvc "github.com/ortelius/cve-triage/internal/triage"
	"github.com/ortelius/cve-triage/restapi/modules/enrichment"
	"github.com/ortelius/cve-triage/restapi/modules/triage"
	"go.uber.org/zap"
)

// Dependencies are the services the routes are wired to
type Dependencies struct {
	Backend        enrich.Provider
	Registry       *triagesvc.Registry
	Exporter       export.Exporter
	ExportFilename string
	Logger         *zap.Logger
}

// SetupRoutes configures all REST API routes and the GraphQL endpoint.
func SetupRoutes(app *fiber.App, deps Dependencies, schema graphql.Schema) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Enrichment backend, also reachable at the bare path the triage client posts to
	if deps.Backend != nil {
		app.Post("/enrich", enrichment.PostEnrich(deps.Backend, logger))
	}

	// API Group /api/v1
	api := app.Group("/api/v1")
	if deps.Backend != nil {
		api.Post("/enrich", enrichment.PostEnrich(deps.Backend, logger))
	}

	// Triage surface, one session per cookie
	session := triage.SessionMiddleware(deps.Registry)
	api.Post("/graphql", session, GraphQLHandler(schema))

	triageGroup := api.Group("/triage", session)
	triageGroup.Post("/submit", triage.Submit(logger))
	triageGroup.Get("/rows", triage.GetRows())
	triageGroup.Delete("/rows", triage.ResetRows())
	triageGroup.Get("/export", triage.Export(deps.Exporter, deps.ExportFilename, logger))

	logger.Info("API routes initialized successfully")
}
