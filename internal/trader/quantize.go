package trader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInsufficientQuantity indicates an asset balance quantizes to zero, so no
// order can be placed for it.
var ErrInsufficientQuantity = errors.New("quantity too small to sell")

// StepPrecision derives the decimal precision implied by a LOT_SIZE step size
// string, per the exchange convention: the number of digits after the decimal
// point up to and including the leading 1.
// "0.001" -> 3, "0.00000001" -> 8, "1.00000000" -> 0.
func StepPrecision(step string) (int, error) {
	oneIndex := strings.Index(step, "1")
	if oneIndex == -1 {
		return 0, fmt.Errorf("invalid step size %q", step)
	}

	dotIndex := strings.Index(step, ".")
	if dotIndex == -1 || oneIndex < dotIndex {
		return 0, nil
	}
	return oneIndex - dotIndex, nil
}

// Quantize computes the largest quantity <= balance that is an exact multiple
// of the step size, by flooring the balance at the step's precision. The
// result is always accepted by the exchange's quantity precision check.
func Quantize(balance decimal.Decimal, step string) (decimal.Decimal, error) {
	precision, err := StepPrecision(step)
	if err != nil {
		return decimal.Zero, err
	}
	if balance.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative balance %s", balance)
	}
	return balance.Truncate(int32(precision)), nil
}
