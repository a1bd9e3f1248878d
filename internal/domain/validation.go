package domain

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report wire names, not Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateEvents checks the full batch before anything downstream runs:
// a single invalid event rejects the whole request, so no adapter is ever
// invoked for a batch containing malformed events.
func ValidateEvents(events []Event) []FieldError {
	if len(events) == 0 {
		return []FieldError{{Field: "events", Msg: "required and must contain at least one item"}}
	}
	var errs []FieldError
	for i, ev := range events {
		err := validate.Struct(ev)
		if err == nil {
			continue
		}
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			errs = append(errs, FieldError{Field: fmt.Sprintf("events[%d]", i), Msg: err.Error()})
			continue
		}
		for _, fe := range verrs {
			errs = append(errs, FieldError{
				Field: fmt.Sprintf("events[%d].%s", i, fe.Field()),
				Msg:   fe.Tag(),
			})
		}
	}
	return errs
}
