package types

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate caches struct metadata, so one instance is shared.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names ("name", not "Name").
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Validate checks the validate:"..." tags of v. A failure is returned as
// validator.ValidationErrors.
func Validate(v any) error {
	return validate.Struct(v)
}
