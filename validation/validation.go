// Package validation collects field violations for request payloads.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Violations maps a JSON field name to a snake_case rule code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records a violation unless the field already has one.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Details converts violations for error reporting.
func (v Violations) Details() map[string]any {
	out := make(map[string]any, len(v))
	for k, c := range v {
		out[k] = c
	}
	return out
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func NonNegative(field string, val int64, v Violations) {
	if val < 0 {
		v.Add(field, "must_not_be_negative")
	}
}

// Date parses a YYYY-MM-DD value, recording "required" or "invalid_date".
func Date(field, value string, v Violations) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		v.Add(field, "required")
		return time.Time{}
	}
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		v.Add(field, "invalid_date")
		return time.Time{}
	}
	return d
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON names rather than Go field names.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct runs `validate` tags on s and returns the violations found.
func Struct(s any) Violations {
	v := Violations{}
	err := instance().Struct(s)
	if err == nil {
		return v
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		v.Add("_", "invalid")
		return v
	}
	for _, fe := range verrs {
		v.Add(fe.Field(), ruleCode(fe))
	}
	return v
}

// Email reports whether s is a syntactically valid address.
func Email(s string) bool {
	return instance().Var(s, "required,email") == nil
}

func ruleCode(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "invalid_email"
	case "min", "gte":
		return "too_small"
	case "max", "lte":
		return "too_large"
	case "oneof":
		return "invalid_value"
	default:
		return "invalid"
	}
}
