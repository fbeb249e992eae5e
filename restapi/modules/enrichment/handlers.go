// Package enrichment implements the REST handler of the enrichment backend.
package enrichment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ortelius/cve-triage/internal/enrich"
	"github.com/ortelius/cve-triage/model"
	"go.uber.org/zap"
)

// PostEnrich handles POST /enrich. The body carries items, bare cves, or both;
// the answer has one row per distinct identifier in request order.
func PostEnrich(provider enrich.Provider, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req model.EnrichRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid request body: " + err.Error(),
			})
		}

		items := req.ResolveItems()
		if len(items) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "At least one CVE identifier is required",
			})
		}

		rows, err := provider.Enrich(c.UserContext(), items)
		if err != nil {
			logger.Error("Enrichment failed", zap.Int("items", len(items)), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Enrichment failed: " + err.Error(),
			})
		}

		return c.JSON(model.EnrichResponse{Rows: rows})
	}
}
