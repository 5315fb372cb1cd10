package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
// Field names in errors are the JSON names clients send.
func NewValidator() *echoValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &echoValidator{v: v}
}

// Validate satisfies the echo.Validator interface. Failures come back as a
// *domain.ValidationFailure so they render like record validation errors.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			failure := &domain.ValidationFailure{Errors: make([]*domain.ValidationError, 0, len(ve))}
			for _, fe := range ve {
				failure.Errors = append(failure.Errors, fieldError(fe))
			}
			return failure
		}
		return err
	}
	return nil
}

// fieldError converts a single FieldError into the domain taxonomy.
func fieldError(fe validator.FieldError) *domain.ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return domain.MissingField(field)
	case "email":
		return domain.InvalidValue(field, "must be a valid email")
	case "gt":
		return domain.InvalidValue(field, fmt.Sprintf("must be greater than %s", fe.Param()))
	case "min":
		return domain.InvalidValue(field, fmt.Sprintf("must be at least %s characters", fe.Param()))
	case "max":
		return domain.InvalidValue(field, fmt.Sprintf("must be at most %s characters", fe.Param()))
	case "lte":
		return domain.InvalidValue(field, fmt.Sprintf("must be at most %s", fe.Param()))
	case "oneof":
		return domain.InvalidValue(field, fmt.Sprintf("must be one of: %s", fe.Param()))
	default:
		return domain.InvalidValue(field, fmt.Sprintf("failed validation (%s)", fe.Tag()))
	}
}
