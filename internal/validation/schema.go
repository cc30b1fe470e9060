package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// FieldError is one entry of a validation failure response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var labels = map[string]string{
	"title":       "Title",
	"description": "Description",
	"dueDate":     "Due date",
	"priority":    "Priority",
	"status":      "Status",
	"email":       "Email",
	"password":    "Password",
	"username":    "Username",
}

// New returns a validator that reports json field names and knows the
// isodatetime tag.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("isodatetime", func(fl validator.FieldLevel) bool {
		_, err := ParseDateTime(fl.Field().String())
		return err == nil
	})
	return v
}

// ParseDateTime parses an ISO-8601 date-time such as 2025-01-01T00:00:00Z.
func ParseDateTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// FieldErrors converts a validator error into field/message pairs. It
// returns nil for any other error.
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	label, ok := labels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "email":
		return "Please provide a valid email address"
	case "isodatetime":
		return "Invalid due date format"
	case "oneof":
		opts := strings.Fields(fe.Param())
		for i, o := range opts {
			opts[i] = "'" + o + "'"
		}
		return fmt.Sprintf("Invalid enum value. Expected %s, received '%v'", strings.Join(opts, " | "), indirect(fe.Value()))
	default:
		return fmt.Sprintf("%s failed the %s check", label, fe.Tag())
	}
}

func indirect(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}
