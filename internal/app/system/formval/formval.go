// Package formval validates decoded form structs with go-playground
// validator tags.
//
//	type newTaskForm struct {
//		Title string `form:"title" validate:"notblank,max=200"`
//	}
//
//	if p := formval.Check(f); p != nil {
//		// p.Field == "title", p.Rule == "notblank"
//	}
package formval

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func v() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("notblank", validators.NotBlank)
		// Report fields by their form name rather than the Go field name.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Problem is the first rule a form failed.
type Problem struct {
	Field string // form field name
	Rule  string // validator tag, e.g. "required", "oneof"
	Param string // tag parameter, e.g. "200" for max=200
}

func (p *Problem) Error() string {
	if p.Param != "" {
		return p.Field + " failed " + p.Rule + "=" + p.Param
	}
	return p.Field + " failed " + p.Rule
}

// Check validates s and returns the first failing field, or nil.
// A value that is not a struct is a programming error and panics.
func Check(s any) *Problem {
	err := v().Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return &Problem{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()}
	}
	panic(err)
}

// Var validates a single value against tag.
func Var(value any, tag string) bool {
	return v().Var(value, tag) == nil
}
