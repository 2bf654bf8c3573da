package server

import (
	"errors"
	"strings"
	"unicode"

	"medfeed/internal/middleware"
	"medfeed/internal/models"
	"medfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts limit and offset query parameters.
func parsePagination(c *fiber.Ctx) Pagination {
	limit, offset := service.ClampPage(c.QueryInt("limit", service.DefaultPageLimit), c.QueryInt("offset", 0))
	return Pagination{Limit: limit, Offset: offset}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)), false)
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "commentId" -> "comment ID", "optionId" -> "option ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// actor returns the authenticated caller. Routes behind AuthRequired always have one.
func actor(c *fiber.Ctx) models.Actor {
	a, _ := middleware.ActorFromCtx(c)
	return a
}

// parseBody decodes the JSON body into dest, writing a 400 on failure.
func parseBody(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"), false)
		return errResponseWritten
	}
	return nil
}

// statusForCode maps engine error codes onto HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case models.CodeValidation, models.CodeInvalidPollSpec, models.CodeParentNotFound:
		return fiber.StatusBadRequest
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeUnauthorized, models.CodeForbidden, models.CodeNotAccessible:
		return fiber.StatusForbidden
	case models.CodeAlreadyLiked, models.CodeNotLiked, models.CodeAlreadySaved, models.CodeNotSaved:
		return fiber.StatusConflict
	case models.CodeDependencyFailure:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// respondError writes err with the status its code maps to. Errors that are not
// AppErrors are logged and reported as internal errors.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "error", err)
		appErr = models.NewInternalError(err)
	}
	return models.RespondWithError(c, statusForCode(appErr.Code), appErr, !s.config.IsProduction())
}

// parseIntent reads the toggle end state from the HTTP verb.
func parseIntent(c *fiber.Ctx) models.ToggleIntent {
	if c.Method() == fiber.MethodDelete {
		return models.IntentOff
	}
	return models.IntentOn
}
