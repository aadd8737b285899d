package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"route-tracker/internal/location"
	"route-tracker/internal/repository"
	"route-tracker/internal/services"
	"route-tracker/internal/session"
)

// statusForError maps domain errors onto HTTP status codes: permission
// failures to 403, missing records to 404, validation to 400, lifecycle
// conflicts to 409, corrupt records to 422, everything else to 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, location.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, repository.ErrCorruptRecord):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrEmptyName),
		errors.Is(err, repository.ErrEmptyRoute):
		return fiber.StatusBadRequest
	case errors.Is(err, session.ErrNoActiveFix),
		errors.Is(err, session.ErrNotRecording),
		errors.Is(err, services.ErrAlreadyRecording),
		errors.Is(err, services.ErrStopInProgress),
		errors.Is(err, services.ErrSavePending),
		errors.Is(err, services.ErrNoPendingSession),
		errors.Is(err, services.ErrDisplayWhileBusy):
		return fiber.StatusConflict
	case errors.Is(err, location.ErrSourceUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{
		"error": true, "message": err.Error(),
	})
}
