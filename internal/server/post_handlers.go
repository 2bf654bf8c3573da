package server

import (
	"medfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Publish a post with optional media references, group and poll. Hashtags are extracted from the content.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreatePostInput true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req service.CreatePostInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.posts.Create(c.UserContext(), actor(c), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetFeed handles GET /api/posts
// @Summary List the feed
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := parsePagination(c)
	posts, err := s.feed.ListFeed(c.UserContext(), actor(c).ID, page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// GetSavedPosts handles GET /api/posts/saved
// @Summary List saved posts
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Post
// @Router /posts/saved [get]
func (s *Server) GetSavedPosts(c *fiber.Ctx) error {
	page := parsePagination(c)
	posts, err := s.feed.ListSaved(c.UserContext(), actor(c).ID, page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.feed.GetPost(c.UserContext(), id, actor(c).ID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update a post
// @Description Partial update. Supplying poll options replaces the poll's options and discards its votes.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body service.UpdatePostInput true "Changes"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.UpdatePostInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.posts.Update(c.UserContext(), actor(c), id, req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.posts.Delete(c.UserContext(), actor(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikePost handles POST /api/posts/:id/like
// @Summary Like a post
// @Tags engagement
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.togglePostLike(c)
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	return s.togglePostLike(c)
}

func (s *Server) togglePostLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.engagement.TogglePostLike(c.UserContext(), id, actor(c), parseIntent(c)); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SavePost handles POST /api/posts/:id/save
// @Summary Save a post
// @Tags engagement
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id}/save [post]
func (s *Server) SavePost(c *fiber.Ctx) error {
	return s.togglePostSave(c)
}

// UnsavePost handles DELETE /api/posts/:id/save
func (s *Server) UnsavePost(c *fiber.Ctx) error {
	return s.togglePostSave(c)
}

func (s *Server) togglePostSave(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.engagement.TogglePostSave(c.UserContext(), id, actor(c), parseIntent(c)); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetPostsByHashtag handles GET /api/hashtags/:tag/posts
func (s *Server) GetPostsByHashtag(c *fiber.Ctx) error {
	page := parsePagination(c)
	posts, err := s.feed.ListByHashtag(c.UserContext(), c.Params("tag"), actor(c).ID, page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// GetTrendingHashtags handles GET /api/hashtags/trending
func (s *Server) GetTrendingHashtags(c *fiber.Ctx) error {
	tags, err := s.feed.TrendingHashtags(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(tags)
}
