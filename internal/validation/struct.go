package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"blogspace/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		// optional_url accepts "" so a partial update can clear a URL field
		_ = validate.RegisterValidation("optional_url", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || validate.Var(s, "url") == nil
		})
	})
	return validate
}

// Struct validates v against its `validate` tags and reports failures as a
// field-level ValidationError keyed by JSON field name.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewValidationError(err.Error())
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fieldName(fe)
		if _, seen := fields[name]; seen {
			continue
		}
		fields[name] = message(fe)
	}
	return models.NewFieldValidationError(fields)
}

// fieldName drops the struct prefix from namespaces like "CreatePostInput.tags[3]".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url", "optional_url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
