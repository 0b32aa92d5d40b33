// handlers/handler.go - Shared handler state and error mapping
package handlers

import (
	"errors"

	"decantry/middleware"
	"decantry/services"
	"decantry/utils"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// Handler serves the HTTP API over the game engine.
type Handler struct {
	svc *services.Services
}

func New(svc *services.Services) *Handler {
	return &Handler{svc: svc}
}

// fail writes err as a JSON error. Classified service errors keep their message; anything else
// is logged and reported as a 500.
func fail(c *fiber.Ctx, err error) error {
	status := 0
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalid), errors.Is(err, services.ErrPreconditionFailed):
		status = fiber.StatusBadRequest
	}

	if status != 0 {
		message := err.Error()
		var svcErr *services.Error
		if errors.As(err, &svcErr) {
			message = svcErr.Message
		}
		return utils.JSONError(c, status, message)
	}

	log.WithError(err).WithFields(log.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).Error("❌ Request failed")
	return utils.JSONError(c, fiber.StatusInternalServerError, "Internal server error")
}

var (
	errUnauthorized = &services.Error{Kind: services.ErrUnauthorized, Message: "Unauthorized"}
	errBadBody      = &services.Error{Kind: services.ErrInvalid, Message: "Invalid request body"}
	errBadTableID   = &services.Error{Kind: services.ErrInvalid, Message: "Invalid table ID"}
)

// playerID returns the id the auth middleware stored for this request.
func playerID(c *fiber.Ctx) (uint, error) {
	id, err := middleware.GetUserID(c)
	if err != nil || id == 0 {
		return 0, errUnauthorized
	}
	return id, nil
}

// ErrorHandler renders errors that escape a handler, such as fiber's own 404 and 405.
func ErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		} else {
			log.WithError(err).WithField("path", c.Path()).Error("❌ Unhandled error")
		}

		// Don't expose internal errors in production
		if production && code == fiber.StatusInternalServerError {
			message = "An error occurred. Please try again later."
		}

		return utils.JSONError(c, code, message)
	}
}
