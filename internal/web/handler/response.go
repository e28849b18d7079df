package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
)

// ErrorBody is the body of every failed request.
type ErrorBody struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Success writes data merged with status "success".
func Success(c *fiber.Ctx, code int, data fiber.Map) error {
	body := fiber.Map{"status": StatusSuccess}
	for k, v := range data {
		body[k] = v
	}

	return c.Status(code).JSON(body)
}

// Fail writes an error body.
func Fail(c *fiber.Ctx, code int, message string, fields map[string]string) error {
	return c.Status(code).JSON(ErrorBody{
		Status:  StatusError,
		Message: message,
		Errors:  fields,
	})
}

// Invalid answers 400 with per field messages.
func Invalid(c *fiber.Ctx, fields map[string]string) error {
	return Fail(c, fiber.StatusBadRequest, "The given data was invalid.", fields)
}

// Error translates err into the HTTP error body.
// Storage failures never expose the driver error to the client.
func Error(c *fiber.Ctx, err error) error {
	var verr *rbac.ValidationError
	if errors.As(err, &verr) {
		return Fail(c, fiber.StatusBadRequest, messageOf(verr.Kind), verr.Fields)
	}

	switch {
	case errors.Is(err, rbac.ErrInvalidArgument), errors.Is(err, rbac.ErrUnknownPermission):
		return Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, rbac.ErrNotFound):
		return Fail(c, fiber.StatusNotFound, err.Error(), nil)
	case errors.Is(err, rbac.ErrDuplicateCode), errors.Is(err, rbac.ErrConflict):
		return Fail(c, fiber.StatusConflict, err.Error(), nil)
	}

	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")

	return Fail(c, fiber.StatusInternalServerError, msgInternal, nil)
}

func messageOf(kind error) string {
	if kind == nil {
		return "The given data was invalid."
	}

	msg := kind.Error()

	return strings.ToUpper(msg[:1]) + msg[1:]
}
