package server

import (
	"blogspace/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetProfile(c.UserContext(), viewerFrom(c).ID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if !parseBody(c, &req) {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), viewerFrom(c).ID, req)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(user)
}
