package vocab

import (
	stderrors "errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/toyz/docmeta/internal/errors"
)

var structValidator = validator.New()

// checkStruct runs the validate tags of a hydrated vocabulary value. It sees
// the instance after every attribute is assigned, so it catches what the
// per-attribute validators cannot, such as empty middleware names inside a
// list.
func checkStruct(v interface{}) error {
	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return err
	}

	errs := &errors.MultipleErrors{}
	for _, fe := range fieldErrs {
		errs.Add(errors.NewValidationErrorWithValue(attributeName(fe.Field()), fe.Value(), constraint(fe)))
	}
	if len(errs.Errors) == 1 {
		return errs.Errors[0]
	}
	return errs.ErrOrNil()
}

// attributeName maps a struct field such as "Middleware[1]" to the attribute
// spelling "middleware[1]"
func attributeName(field string) string {
	if field == "" {
		return field
	}
	r := []rune(field)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func constraint(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(strings.Fields(fe.Param()), ", "))
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
