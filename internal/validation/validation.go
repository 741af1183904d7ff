// Package validation converts request binding failures into the itemized
// field-error shape the API returns. Validation never stops at the first
// violation: go-playground/validator evaluates every field of a bound struct,
// and Itemize reports the complete list so a client can fix a whole form in
// one round trip.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// FieldError is a single violation, addressed by the JSON field path
// (e.g. "username" or "location.latitude").
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func init() {
	// Report violations under JSON field names rather than Go struct names so
	// error paths match what the client actually sent.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// Itemize converts an error returned by gin's ShouldBindJSON into the full
// list of field violations. Errors that are not field-addressable (malformed
// JSON, empty body) collapse to a single entry with an empty field.
func Itemize(err error) []FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{
				Field:   fieldPath(fe),
				Message: message(fe),
			})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []FieldError{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("%s should be a type of %s", displayName(typeErr.Field), typeErr.Type.Kind()),
		}}
	}

	if errors.Is(err, io.EOF) {
		return []FieldError{{Message: "Request body cannot be empty"}}
	}

	return []FieldError{{Message: "Request body is not valid JSON"}}
}

// fieldPath strips the root struct name from the validator namespace, leaving
// the JSON path of the offending field.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// displayName turns a JSON path into the label used in human-readable messages
// ("location.latitude" → "Latitude", "username" → "Username").
func displayName(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return "Field"
	}
	return strings.ToUpper(path[:1]) + path[1:]
}

// message renders a violation the way the frontend expects, mirroring the
// per-constraint wording of the registration and station forms.
func message(fe validator.FieldError) string {
	name := displayName(fieldPath(fe))

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is a required field", name)
	case "min":
		return fmt.Sprintf("%s should have a minimum length of %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s should have a maximum length of %s", name, fe.Param())
	case "alphanum":
		return fmt.Sprintf("%s must only contain alpha-numeric characters", name)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}
