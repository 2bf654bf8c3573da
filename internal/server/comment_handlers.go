package server

import (
	"medfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/posts/:id/comments
// @Summary Comment on a post
// @Description Creates a top-level comment, or a reply when parent_id is set.
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body service.AddCommentInput true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.AddCommentInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.PostID = postID

	comment, err := s.comments.AddComment(c.UserContext(), actor(c), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments handles GET /api/posts/:id/comments?page=N
// @Summary List a post's comments
// @Description Ten top-level comments per page: the post owner's first, then the caller's, then the rest. Two reply levels are included.
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param page query int false "1-based page"
// @Success 200 {object} service.CommentPage
// @Router /posts/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page, err := s.comments.ListTopLevel(c.UserContext(), postID, actor(c).ID, c.QueryInt("page", 1))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(page)
}

// DeleteComment handles DELETE /api/comments/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	if err := s.comments.DeleteComment(c.UserContext(), id, actor(c)); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikeComment handles POST /api/comments/:commentId/like
func (s *Server) LikeComment(c *fiber.Ctx) error {
	return s.toggleCommentLike(c)
}

// UnlikeComment handles DELETE /api/comments/:commentId/like
func (s *Server) UnlikeComment(c *fiber.Ctx) error {
	return s.toggleCommentLike(c)
}

func (s *Server) toggleCommentLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	if err := s.comments.ToggleCommentLike(c.UserContext(), id, actor(c), parseIntent(c)); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
