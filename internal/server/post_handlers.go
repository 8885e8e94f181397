package server

import (
	"blogspace/internal/models"
	"blogspace/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
// Query params: category, status, search, author, page, limit, offset
func (s *Server) GetPosts(c *fiber.Ctx) error {
	return s.listPosts(c, viewerFrom(c))
}

func (s *Server) listPosts(c *fiber.Ctx, viewer *models.Viewer) error {
	page := parsePagination(c, 10)

	result, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Category: c.Query("category"),
		Status:   models.PostStatus(c.Query("status")),
		Search:   c.Query("search"),
		AuthorID: c.Query("author"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}, viewer)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"posts":       result.Posts,
		"total":       result.Total,
		"page":        page.Page,
		"limit":       result.Limit,
		"total_pages": totalPages(result.Total, result.Limit),
	})
}

// GetPost handles GET /api/posts/:slug
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("slug"), viewerFrom(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req service.CreatePostInput
	if !parseBody(c, &req) {
		return nil
	}
	req.AuthorID = viewerFrom(c).ID

	post, err := s.postService.CreatePost(c.UserContext(), req)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil
	}

	var req service.UpdatePostInput
	if !parseBody(c, &req) {
		return nil
	}

	post, err := s.postService.UpdatePost(c.UserContext(), id, req, viewerFrom(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), id, viewerFrom(c)); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleLike handles POST /api/posts/:id/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil
	}

	state, err := s.likeService.Toggle(c.UserContext(), id, viewerFrom(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(state)
}

// GetLikeStatus handles GET /api/posts/:id/like
func (s *Server) GetLikeStatus(c *fiber.Ctx) error {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil
	}

	state, err := s.likeService.Status(c.UserContext(), id, viewerFrom(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(state)
}

// GetCategories handles GET /api/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.List(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	if categories == nil {
		categories = []models.CategorySummary{}
	}
	return c.JSON(categories)
}
