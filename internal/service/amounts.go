package service

import (
	"errors"

	"mypostelma/internal/money"

	"github.com/shopspring/decimal"
)

// toMinor converts an API decimal to minor units, reporting precision and
// range problems as validation errors on field.
func toMinor(c money.Currency, field string, d decimal.Decimal) (money.Amount, error) {
	a, err := c.FromDecimal(d)
	switch {
	case errors.Is(err, money.ErrSubMinorPrecision):
		return 0, validationErr(field, msgAmountTooPrecise)
	case errors.Is(err, money.ErrOutOfRange):
		return 0, validationErr(field, msgAmountOutOfRange)
	case err != nil:
		return 0, validationErr(field, err.Error())
	}
	return a, nil
}

// requiredMinor is toMinor for amounts the request must carry. A missing
// amount is never read as zero.
func requiredMinor(c money.Currency, field string, d *decimal.Decimal) (money.Amount, error) {
	if d == nil {
		return 0, validationErr(field, msgAmountRequired)
	}
	return toMinor(c, field, *d)
}
