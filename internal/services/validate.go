package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/markjakearzadon/givepay-gobackend/internal/paystack"
)

var validationMessages = map[string]string{
	"required":    "is required",
	"email":       "is not a valid email address",
	"decimal_gt0": "must be greater than zero",
	"max2dp":      "must have at most two decimal places",
}

// newValidator returns a validator that reports JSON field names and knows
// the decimal money rules.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// decimals are validated through their exact string form
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterValidation("decimal_gt0", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	v.RegisterValidation("max2dp", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.Equal(d.Round(paystack.MinorUnitExponent))
	})
	return v
}

// validationError converts the first validator failure into a *ValidationError.
func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	msg, ok := validationMessages[fe.Tag()]
	if !ok {
		msg = "failed the " + fe.Tag() + " check"
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}
