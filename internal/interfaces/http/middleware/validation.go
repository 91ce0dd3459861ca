package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/dukapos/backend/internal/domain/shared/valueobject"
	"github.com/dukapos/backend/internal/interfaces/http/dto"
)

// SetupValidator configures gin's validator: error messages use the
// json/form tag names, and the msisdn rule validates mobile numbers the
// same way the domain does.
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	return v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
		_, err := valueobject.NewPhoneNumber(fl.Field().String())
		return err == nil
	})
}

// FormatValidationErrors turns binding errors into the standard envelope
// with one detail per failed field
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: validationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Type().Kind() == reflect.String || e.Type().Kind() == reflect.Slice {
			return "Must have at least " + e.Param() + " entries or characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String || e.Type().Kind() == reflect.Slice {
			return "Must have at most " + e.Param() + " entries or characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "msisdn":
		return "Invalid mobile number"
	default:
		return "Invalid value"
	}
}
