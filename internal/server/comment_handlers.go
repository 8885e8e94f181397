package server

import (
	"blogspace/internal/service"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Content string `json:"content"`
}

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil
	}

	// comments are listed whole unless the caller asks for a page
	limit, offset := 0, 0
	if c.Query("limit") != "" {
		page := parsePagination(c, 50)
		limit, offset = page.Limit, page.Offset
	}

	comments, err := s.commentService.ListComments(c.UserContext(), postID, viewerFrom(c), limit, offset)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil
	}

	var req commentRequest
	if !parseBody(c, &req) {
		return nil
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		PostID:  postID,
		Content: req.Content,
	}, viewerFrom(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PUT /api/comments/:id
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil
	}

	var req commentRequest
	if !parseBody(c, &req) {
		return nil
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), id, req.Content, viewerFrom(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil
	}

	if err := s.commentService.DeleteComment(c.UserContext(), id, viewerFrom(c)); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
