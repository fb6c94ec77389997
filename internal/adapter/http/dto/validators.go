package dto

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Account columns are NUMERIC(20, 2).
const (
	maxFractionDigits = 2
	maxIntegerDigits  = 18
)

// maxAmount is the first magnitude that no longer fits the account columns.
var maxAmount = decimal.New(1, maxIntegerDigits)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("money", validateMoney)
	}
}

// ParseAmount parses a decimal money string that fits NUMERIC(20, 2). The
// sign is not checked here; non-positive amounts are rejected by the
// account rules.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	// Bound the exponent first so exponent notation cannot force a huge rescale.
	exp := d.Exponent()
	if exp > maxIntegerDigits || exp < -(maxFractionDigits+maxIntegerDigits) {
		return decimal.Zero, fmt.Errorf("amount %q is out of range", s)
	}
	if exp < -maxFractionDigits && !d.Equal(d.Round(maxFractionDigits)) {
		return decimal.Zero, fmt.Errorf("amount %q has more than %d decimal places", s, maxFractionDigits)
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, fmt.Errorf("amount %q is out of range", s)
	}
	return d, nil
}

func validateMoney(fl validator.FieldLevel) bool {
	_, err := ParseAmount(fl.Field().String())
	return err == nil
}
