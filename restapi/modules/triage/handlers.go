// Package triage implements the REST handlers of the triage surface: submit,
// view, reset and export of the current result set.
package triage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ortelius/cve-triage/internal/export"
	triagesvc "github.com/ortelius/cve-triage/internal/triage"
	"go.uber.org/zap"
)

// SessionCookie names the cookie carrying the session id
const SessionCookie = "cve_triage_session"

const sessionLocal = "triage_session"

// maxUploadBytes bounds CSV uploads
const maxUploadBytes = 10 * 1024 * 1024

// SessionMiddleware resolves the caller's session and refreshes its cookie
func SessionMiddleware(registry *triagesvc.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := registry.Get(c.Cookies(SessionCookie))
		if s.ID() != c.Cookies(SessionCookie) {
			c.Cookie(&fiber.Cookie{
				Name:     SessionCookie,
				Value:    s.ID(),
				Path:     "/",
				HTTPOnly: true,
				SameSite: "Lax",
				Expires:  time.Now().Add(24 * time.Hour),
			})
		}
		c.Locals(sessionLocal, s)
		return c.Next()
	}
}

// Session returns the session resolved by SessionMiddleware
func Session(c *fiber.Ctx) *triagesvc.Session {
	s, _ := c.Locals(sessionLocal).(*triagesvc.Session)
	return s
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// readInput accepts JSON {text, csv, owner} or a multipart form with file, text, owner
func readInput(c *fiber.Ctx) (triagesvc.Input, error) {
	var in triagesvc.Input

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		in.Text = c.FormValue("text")
		in.Owner = c.FormValue("owner")

		fh, err := c.FormFile("file")
		if err != nil {
			// text-only form
			return in, nil
		}
		if fh.Size > maxUploadBytes {
			return in, fmt.Errorf("CSV upload exceeds %d bytes", maxUploadBytes)
		}
		f, err := fh.Open()
		if err != nil {
			return in, fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return in, fmt.Errorf("failed to read upload: %w", err)
		}
		in.CSV = string(data)
		return in, nil
	}

	if err := c.BodyParser(&in); err != nil {
		return in, fmt.Errorf("invalid request body: %w", err)
	}
	return in, nil
}

// Submit handles POST /api/v1/triage/submit
func Submit(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := Session(c)

		in, err := readInput(c)
		if err != nil {
			return failure(c, fiber.StatusBadRequest, err.Error())
		}

		rows, err := s.Submit(c.UserContext(), in)
		if err != nil {
			var vErr *triagesvc.ValidationError
			var tErr *triagesvc.TransportError
			switch {
			case errors.Is(err, triagesvc.ErrBusy):
				return failure(c, fiber.StatusConflict, err.Error())
			case errors.As(err, &vErr):
				return failure(c, fiber.StatusBadRequest, vErr.Error())
			case errors.As(err, &tErr):
				return failure(c, fiber.StatusBadGateway, tErr.Error())
			default:
				logger.Error("Unexpected submit failure", zap.Error(err))
				return failure(c, fiber.StatusInternalServerError, err.Error())
			}
		}

		return c.JSON(fiber.Map{
			"success": true,
			"rows":    triagesvc.Tag(rows),
		})
	}
}

// GetRows handles GET /api/v1/triage/rows?sort=&desc=&tag=
func GetRows() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := Session(c)

		rows, err := s.Sorted(c.Query("sort"), c.QueryBool("desc", false))
		if err != nil {
			return failure(c, fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(fiber.Map{
			"success": true,
			"loading": s.Loading(),
			"rows":    triagesvc.FilterTag(triagesvc.Tag(rows), c.Query("tag")),
		})
	}
}

// ResetRows handles DELETE /api/v1/triage/rows
func ResetRows() fiber.Handler {
	return func(c *fiber.Ctx) error {
		Session(c).Reset()
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Result set cleared",
		})
	}
}

// Export handles GET /api/v1/triage/export
func Export(exporter export.Exporter, filename string, logger *zap.Logger) fiber.Handler {
	if filename == "" {
		filename = export.DefaultFilename
	}
	return func(c *fiber.Ctx) error {
		s := Session(c)

		rows, err := s.Sorted(c.Query("sort"), c.QueryBool("desc", false))
		if err != nil {
			return failure(c, fiber.StatusBadRequest, err.Error())
		}

		var buf bytes.Buffer
		if err := exporter.Write(&buf, rows); err != nil {
			logger.Error("Export failed", zap.Int("rows", len(rows)), zap.Error(err))
			var loadErr *export.LoadError
			if errors.As(err, &loadErr) {
				return failure(c, fiber.StatusInternalServerError, loadErr.Error())
			}
			return failure(c, fiber.StatusInternalServerError, "Export failed: "+err.Error())
		}

		c.Set(fiber.HeaderContentType, export.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
		return c.Send(buf.Bytes())
	}
}
