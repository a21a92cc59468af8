package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type defaultValidator struct{ v *validator.Validate }

func (d *defaultValidator) Validate(i interface{}) error {
	return d.v.Struct(i)
}

// AllowedVATRates are the percentages an invoice line may carry.
var AllowedVATRates = []int64{0, 5, 8, 23}

// New returns an echo.Validator implementation with the invoice specific
// tags registered:
//   - currency: three upper-case letters
//   - vatrate: one of AllowedVATRates
//   - amount: a decimal that fits numeric(12,2)
func New() echo.Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("currency", validateCurrency)
	_ = v.RegisterValidation("vatrate", validateVATRate)
	_ = v.RegisterValidation("amount", validateAmount)
	return &defaultValidator{v: v}
}

func validateCurrency(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func validateVATRate(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return IsAllowedVATRate(d)
}

func validateAmount(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && IsAmount(d)
}

// maxAmount is the exclusive bound of a numeric(12,2) column.
var maxAmount = decimal.New(1, 10)

// IsAmount reports whether d is stored by a numeric(12,2) column without
// overflow or rounding.
func IsAmount(d decimal.Decimal) bool {
	return d.Abs().LessThan(maxAmount) && d.Equal(d.Round(2))
}

// IsAllowedVATRate reports whether rate is one of AllowedVATRates.
func IsAllowedVATRate(rate decimal.Decimal) bool {
	for _, r := range AllowedVATRates {
		if rate.Equal(decimal.NewFromInt(r)) {
			return true
		}
	}
	return false
}
