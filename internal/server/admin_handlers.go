package server

import (
	"blogspace/internal/featureflags"
	"blogspace/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetAdminStats handles GET /api/admin/stats
func (s *Server) GetAdminStats(c *fiber.Ctx) error {
	stats, err := s.adminService.Stats(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(stats)
}

// GetAdminPosts handles GET /api/admin/posts. Drafts of every author are
// included.
func (s *Server) GetAdminPosts(c *fiber.Ctx) error {
	return s.listPosts(c, viewerFrom(c))
}

// GetAdminUsers handles GET /api/admin/users
func (s *Server) GetAdminUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	result, err := s.userService.ListUsers(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"users":       result.Users,
		"total":       result.Total,
		"page":        page.Page,
		"limit":       result.Limit,
		"total_pages": totalPages(result.Total, result.Limit),
	})
}

// UpdateUserRole handles PUT /api/admin/users/:id/role
func (s *Server) UpdateUserRole(c *fiber.Ctx) error {
	var req struct {
		Role models.Role `json:"role"`
	}
	if !parseBody(c, &req) {
		return nil
	}

	user, err := s.userService.SetRole(c.UserContext(), viewerFrom(c), c.Params("id"), req.Role)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(user)
}

// GetFeatureFlags handles GET /api/admin/feature-flags
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	subject := viewerFrom(c).ID
	flags := s.featureFlags.Snapshot(subject)
	for _, name := range knownFlags {
		if _, ok := flags[name]; !ok {
			flags[name] = s.featureFlags.Enabled(name, subject)
		}
	}
	return c.JSON(fiber.Map{"flags": flags})
}

// ReconcileAll handles POST /api/admin/reconcile
func (s *Server) ReconcileAll(c *fiber.Ctx) error {
	summary, err := s.reconciler.ReconcileAll(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(summary)
}

// ReconcilePost handles POST /api/admin/posts/:id/reconcile
func (s *Server) ReconcilePost(c *fiber.Ctx) error {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil
	}

	result, err := s.reconciler.ReconcilePost(c.UserContext(), id)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(result)
}

// knownFlags is reported even when FEATURE_FLAGS leaves them unset.
var knownFlags = []string{featureflags.PostCache, featureflags.DriftSweeper}
