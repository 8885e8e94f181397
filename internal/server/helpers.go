package server

import (
	"log/slog"

	"blogspace/internal/middleware"
	"blogspace/internal/models"
	"blogspace/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// parsePagination reads limit with either page or offset. page wins when
// both are given.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit, offset := repository.NormalizePage(c.QueryInt("limit", defaultLimit), c.QueryInt("offset", 0))

	page := c.QueryInt("page", 0)
	if page > 0 {
		offset = (page - 1) * limit
	} else {
		page = offset/limit + 1
	}

	return Pagination{Page: page, Limit: limit, Offset: offset}
}

// totalPages rounds up; an empty listing still has one page.
func totalPages(total int64, limit int) int64 {
	if limit <= 0 || total == 0 {
		return 1
	}
	return (total + int64(limit) - 1) / int64(limit)
}

// parseUUIDParam validates a route parameter holding a record id.
// On failure it writes a 400 JSON response and returns false.
func parseUUIDParam(c *fiber.Ctx, param string) (string, bool) {
	raw := c.Params(param)
	if _, err := uuid.Parse(raw); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param))
		return "", false
	}
	return raw, true
}

// parseBody decodes the request body. On failure it writes a 400 JSON
// response and returns false.
func parseBody(c *fiber.Ctx, dst any) bool {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return false
	}
	return true
}

// respondServiceError maps a service error onto its status. Internal causes
// are logged here; the client only sees the redacted message.
func (s *Server) respondServiceError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}
