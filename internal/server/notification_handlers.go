package server

import (
	"strings"

	"medfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications
// @Summary List the caller's notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.AppNotification
// @Router /notifications [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	page := parsePagination(c)
	items, err := s.feed.ListNotifications(c.UserContext(), actor(c).ID, page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(items)
}

// RegisterPushToken handles POST /api/notifications/push-tokens
func (s *Server) RegisterPushToken(c *fiber.Ctx) error {
	var req struct {
		Token    string `json:"token"`
		Platform string `json:"platform"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" || len(req.Token) > 512 {
		return s.respondError(c, models.NewValidationError("token is required and must be at most 512 characters"))
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	switch platform {
	case "", "ios", "android", "web":
	default:
		return s.respondError(c, models.NewValidationError("platform must be ios, android or web"))
	}

	token := &models.PushToken{DoctorID: actor(c).ID, Token: req.Token, Platform: platform}
	if err := s.repos.Doctors.RegisterPushToken(c.UserContext(), token); err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(token)
}

// GetFeatureFlags handles GET /api/admin/feature-flags
// Returns the configured flags and how they evaluate for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	raw := map[string]string{}
	evaluated := map[string]bool{}
	if s.featureFlags != nil {
		raw = s.featureFlags.Raw()
		evaluated = s.featureFlags.Snapshot(actor(c).ID)
	}
	return c.JSON(fiber.Map{
		"raw":       raw,
		"evaluated": evaluated,
	})
}
