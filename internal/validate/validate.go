package validate

import (
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Get returns a shared validator that understands decimal.Decimal and
// decimal.NullDecimal fields.
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
		_ = validate.RegisterValidation("dgte0", nonNegativeDecimal)
		_ = validate.RegisterValidation("dpct", percentageDecimal)
	})
	return validate
}

// decimalValue exposes decimals to validator as strings so that
// "required" and the custom tags see a comparable value.
func decimalValue(v reflect.Value) interface{} {
	switch d := v.Interface().(type) {
	case decimal.Decimal:
		return d.String()
	case decimal.NullDecimal:
		if !d.Valid {
			return ""
		}
		return d.Decimal.String()
	}
	return nil
}

func nonNegativeDecimal(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return false
	}
	return !d.IsNegative()
}

func percentageDecimal(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return false
	}
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(100))
}
