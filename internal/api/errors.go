package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/keepstone/keepstone/internal/api/shared"
	"github.com/keepstone/keepstone/internal/domain"
	"github.com/keepstone/keepstone/internal/settings"
	"github.com/keepstone/keepstone/internal/store"
)

// ErrInvalidID is returned for a path ID that is not a positive integer.
var ErrInvalidID = errors.New("invalid id")

// MapErrorToStatusCode maps internal errors to HTTP status codes.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, settings.ErrConfigAbsent):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, settings.ErrNotEditable):
		return http.StatusForbidden

	case errors.Is(err, settings.ErrInvalidDefaults):
		return http.StatusUnprocessableEntity

	case errors.Is(err, settings.ErrProjectScoped),
		errors.Is(err, settings.ErrNotProjectScoped),
		errors.Is(err, settings.ErrInvalidValue),
		errors.Is(err, settings.ErrSerialization),
		errors.Is(err, settings.ErrKeyConflict),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, ErrInvalidID),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, store.ErrProjectNotFound):
		return "Project not found"
	case errors.Is(err, store.ErrProjectNameExists):
		return "Project name already exists"
	case errors.Is(err, domain.ErrEmptyProjectName):
		return "Project name is required"
	case errors.Is(err, domain.ErrProjectNameTooLong):
		return "Project name is too long"
	case errors.Is(err, domain.ErrValidation):
		return "Validation failed"
	case errors.Is(err, ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, settings.ErrInvalidDefaults):
		return "Defaults document is invalid"
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(validationErrs)
	case errors.Is(err, settings.ErrNotEditable),
		errors.Is(err, settings.ErrProjectScoped),
		errors.Is(err, settings.ErrNotProjectScoped),
		errors.Is(err, settings.ErrInvalidValue),
		errors.Is(err, settings.ErrSerialization),
		errors.Is(err, settings.ErrConfigAbsent):
		return capitalize(settings.Reason(err))
	case errors.Is(err, settings.ErrKeyConflict):
		return "Setting key conflicts with another key"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator output into a short message that
// names the first failing field.
func SanitizeValidationError(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Validation error"
	}
	fe := errs[0]
	return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), validationTagMessage(fe.Tag()))
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	default:
		return "validation failed"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// HandleAPIError writes the status and safe message for err. A non-empty
// message replaces the safe message for 5xx responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	userMessage := GetSafeErrorMessage(err)
	if status >= http.StatusInternalServerError && message != "" {
		userMessage = message
	}
	shared.RespondWithErrorAndLog(w, r, status, userMessage, err)
}
