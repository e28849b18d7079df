package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/kha997/zenamanagephp-sub030/internal/auth"
)

const dateLayout = "2006-01-02"

var validate = newValidator() //nolint:gochecknoglobals

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their json name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}

		return name
	})

	return v
}

// Validate checks v against its validate tags and returns messages keyed by json field.
// It returns nil when v is valid.
func Validate(v any) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}

	fields := make(map[string]string, len(verrs))

	for _, fe := range verrs {
		fields[fieldPath(fe)] = describe(fe)
	}

	return fields
}

// fieldPath drops the struct name from the namespace: "user_ids[0]" instead of "bulkRequest.user_ids[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}

	return fe.Field()
}

func describe(fe validator.FieldError) string {
	field := fieldPath(fe)

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}

		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s may not be greater than %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "required_if":
		return field + " is required for this scope"
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

// Bind parses the JSON body into v and validates it.
// On failure the 400 response has already been written and handled is true.
func Bind(c *fiber.Ctx, v any) (handled bool, err error) {
	if err := c.BodyParser(v); err != nil {
		return true, Fail(c, fiber.StatusBadRequest, "Malformed request body", nil)
	}

	if fields := Validate(v); fields != nil {
		return true, Invalid(c, fields)
	}

	return false, nil
}

// Caller returns the identity attached by the identity middleware.
func Caller(c *fiber.Ctx) auth.Identity {
	id, _ := auth.IdentityFrom(c)

	return id
}

// ParamID parses a positive integer route parameter.
func ParamID(c *fiber.Ctx, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}

	return id, true
}

// QueryID parses an optional non negative integer query parameter; absent yields 0.
// Invalid values are recorded in fields.
func QueryID(c *fiber.Ctx, name string, fields map[string]string) uint64 {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		fields[name] = name + " must be a positive integer"

		return 0
	}

	return id
}

// QueryDate parses an optional YYYY-MM-DD or RFC 3339 query parameter.
// endOfDay moves a plain date to its last instant.
func QueryDate(c *fiber.Ctx, name string, endOfDay bool, fields map[string]string) time.Time {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}

	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		fields[name] = name + " must be a date (YYYY-MM-DD)"

		return time.Time{}
	}

	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}

	return t
}
