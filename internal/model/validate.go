package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the client for data entry mistakes and returns field level
// messages keyed by JSON field path. A nil map means the client is valid.
func (c Client) Validate() map[string]string {
	problems := make(map[string]string)

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				problems[fieldPath(fe)] = fmt.Sprintf("failed %q validation", fe.Tag())
			}
		} else {
			problems["client"] = err.Error()
		}
	}

	if c.Fee.IsNegative() {
		problems["fee"] = "must not be negative"
	}
	for i, slot := range c.Template {
		if !slot.Time.Valid() {
			problems[fmt.Sprintf("template[%d].time", i)] = "must be a valid HH:MM time"
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return problems
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}
