package httpapi

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/go-playground/validator/v10"
)

// requestValidator is the echo.Validator for request DTOs. Field names in
// messages are the JSON names clients send.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// mintrim counts runes after trimming surrounding whitespace.
	if err := v.RegisterValidation("mintrim", minTrimmed); err != nil {
		panic(err)
	}
	return &requestValidator{v: v}
}

func minTrimmed(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
}

// Validate reports the first failing field as an ErrInvalidInput.
func (r *requestValidator) Validate(i any) error {
	err := r.v.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", goIAM.ErrInvalidInput, err)
	}
	return fmt.Errorf("%w: %s", goIAM.ErrInvalidInput, describe(fieldErrs[0]))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " should not be empty"
	case "mintrim":
		return fmt.Sprintf("%s must be longer than or equal to %s characters", fe.Field(), fe.Param())
	case "email":
		return fe.Field() + " must be an email"
	default:
		return fe.Field() + " is invalid"
	}
}
