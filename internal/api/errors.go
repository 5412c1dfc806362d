package api

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/passbi/passbi_planner/internal/apperrors"
)

// FieldError describes one failed validation rule
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ErrorHandler renders errors returned from handlers as JSON
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := fiber.Map{"error": err.Error()}

	var appErr *apperrors.Error
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr):
		code = appErr.HTTPStatus()
		body = fiber.Map{
			"error": appErr.Message,
			"code":  appErr.Code,
		}
		if appErr.Details != nil {
			body["details"] = appErr.Details
		}
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(body)
}

// NotFound answers any unmatched route
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "endpoint not found",
	})
}

func validationDetails(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}
