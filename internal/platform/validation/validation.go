// Package validation wraps go-playground/validator for form drafts.
package validation

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate

	clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("clock", validateClock)
	validate.RegisterValidation("isodate", validateISODate)
}

// ErrInvalid is matched by every *Error.
var ErrInvalid = errors.New("validation: invalid input")

// Error is a user-facing validation failure.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return ErrInvalid }

// Invalid returns an *Error carrying msg.
func Invalid(msg string) error {
	return &Error{Msg: msg}
}

// Struct validates s against its `validate` tags.
func Struct(s interface{}) error {
	return validate.Struct(s)
}

// Check validates s and renders the first failure as an *Error.
func Check(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return &Error{Msg: FirstError(err)}
	}
	return nil
}

// Email reports whether v looks like an email address.
func Email(v string) bool {
	return validate.Var(v, "required,email") == nil
}

func validateClock(fl validator.FieldLevel) bool {
	return clockPattern.MatchString(fl.Field().String())
}

func validateISODate(fl validator.FieldLevel) bool {
	return datePattern.MatchString(fl.Field().String())
}

var messages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"clock":    "must be a time like 09:00",
	"isodate":  "must be a date like 2024-06-10",
	"min":      "is too short",
	"gt":       "must be greater than %s",
	"oneof":    "must be one of %s",
	"gte":      "must be at least %s",
	"lte":      "must be at most %s",
}

// FirstError renders the first validation failure as "field message".
// Errors that are not validation failures are returned as their text.
func FirstError(err error) string {
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	msg, ok := messages[fe.Tag()]
	if !ok {
		msg = "is invalid"
	}
	if strings.Contains(msg, "%s") {
		param := fe.Param()
		if fe.Tag() == "oneof" {
			param = strings.Join(strings.Fields(param), ", ")
		}
		msg = strings.Replace(msg, "%s", param, 1)
	}
	return toSnake(fe.Field()) + " " + msg
}

// toSnake converts a Go field name such as VisitDate into visit_date.
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
