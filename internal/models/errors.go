package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned by the engagement engine.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidPollSpec   = "INVALID_POLL_SPEC"
	CodeNotFound          = "NOT_FOUND"
	CodeParentNotFound    = "PARENT_NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotAccessible     = "NOT_ACCESSIBLE"
	CodeAlreadyLiked      = "ALREADY_LIKED"
	CodeNotLiked          = "NOT_LIKED"
	CodeAlreadySaved      = "ALREADY_SAVED"
	CodeNotSaved          = "NOT_SAVED"
	CodeDependencyFailure = "DEPENDENCY_FAILURE"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HasCode reports whether err (or anything it wraps) is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// ErrorCode returns the AppError code carried by err, or "" when err is not an AppError.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewInvalidPollSpecError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidPollSpec,
		Message: message,
	}
}

func NewParentNotFoundError(parentID uint) *AppError {
	return &AppError{
		Code:    CodeParentNotFound,
		Message: fmt.Sprintf("Parent comment with ID %d not found on this post", parentID),
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewNotAccessibleError(postID uint) *AppError {
	return &AppError{
		Code:    CodeNotAccessible,
		Message: fmt.Sprintf("Post %d is not accessible", postID),
	}
}

// NewStateError reports a toggle applied to a pair already in the requested state.
func NewStateError(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewDependencyError(dependency string, err error) *AppError {
	return &AppError{
		Code:    CodeDependencyFailure,
		Message: dependency + " unavailable",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// RespondWithError writes a standardized error response. Internal causes are
// only exposed outside production.
func RespondWithError(c *fiber.Ctx, status int, err error, exposeDetails bool) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil && exposeDetails {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
