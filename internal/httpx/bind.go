package httpx

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"silvess-backend/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(v reflect.Value) any {
		switch d := v.Interface().(type) {
		case decimal.Decimal:
			return d.InexactFloat64()
		case decimal.NullDecimal:
			if !d.Valid {
				return nil
			}
			return d.Decimal.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{}, decimal.NullDecimal{})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	return v
}

// ValidationError lists the fields that failed their struct tags.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "invalid request" }

func (e *ValidationError) Unwrap() error { return apperr.ErrValidation }

func (e *ValidationError) Details() map[string]any {
	return map[string]any{"fields": e.Fields}
}

// Bind parses the JSON body into out and validates its struct tags.
func Bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return Validate(out)
}

// Validate checks the struct tags of v.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt", "gte", "lt", "lte", "min", "max":
		return fmt.Sprintf("must be %s %s", fe.Tag(), fe.Param())
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be a valid email"
	case "date":
		return "must be a YYYY-MM-DD date"
	default:
		return "is invalid"
	}
}

// ParamID reads a positive integer route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

// ParseDate checks a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Validation("date must be YYYY-MM-DD")
	}
	return t, nil
}

// QueryBool reads an optional boolean query parameter ("1", "true", "0", "false").
func QueryBool(c *fiber.Ctx, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// QueryUint reads an optional positive integer query parameter.
func QueryUint(c *fiber.Ctx, key string) *uint {
	v, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil || v == 0 {
		return nil
	}
	id := uint(v)
	return &id
}
