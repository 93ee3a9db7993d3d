package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/models"
)

// errorCodes maps HTTP statuses fiber raises itself (panics recovered
// by the recover middleware, method mismatches, oversized bodies) to
// the API's error codes
var errorCodes = map[int]string{
	fiber.StatusBadRequest:            "INVALID_REQUEST",
	fiber.StatusUnauthorized:          "UNAUTHORIZED",
	fiber.StatusNotFound:              "NOT_FOUND",
	fiber.StatusMethodNotAllowed:      "METHOD_NOT_ALLOWED",
	fiber.StatusRequestEntityTooLarge: "PAYLOAD_TOO_LARGE",
}

// ErrorHandler returns the app-level error handler for errors no route
// handler turned into a response
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "Internal Server Error"

		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
			message = e.Message
		}

		code, ok := errorCodes[status]
		if !ok {
			code = "INTERNAL_ERROR"
		}

		logger.Error("request error",
			"path", c.Path(),
			"method", c.Method(),
			"status", status,
			"error", err,
		)

		return c.Status(status).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    code,
				Message: message,
			},
		})
	}
}
