package transfer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// transferCap is the largest amount a single transfer may move.
var transferCap = decimal.NewFromInt(500)

// Parsed amounts outside these orders of magnitude are clamped before rounding,
// so an input such as "1e999999999" cannot force a huge rescale.
const (
	maxMagnitude = 20
	minMagnitude = -3
)

// amount is a parsed transfer amount. empty covers a blank field and any
// non-negative value that rounds to 0.00.
type amount struct {
	value decimal.Decimal
	empty bool
}

// parseAmount reads a raw form value. ok is false only for non-blank input that
// is not a number.
func parseAmount(raw string) (amt amount, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return amount{empty: true}, true
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return amount{}, false
	}

	magnitude := int64(value.NumDigits()) + int64(value.Exponent())
	switch {
	case value.IsZero():
		return amount{empty: true}, true
	case magnitude < minMagnitude:
		value = decimal.New(int64(value.Sign()), minMagnitude)
	case magnitude > maxMagnitude:
		value = decimal.New(int64(value.Sign()), maxMagnitude)
	}

	rounded := value.Round(2)
	switch {
	case !rounded.IsZero():
		return amount{value: rounded}, true
	case value.IsNegative():
		// sub-cent negatives still fail the negative rule
		return amount{value: value}, true
	default:
		return amount{empty: true}, true
	}
}

// checkBalanceRules evaluates, in order, the overdraft guard, the balance
// limit and the fixed cap. These are the rules re-run against the locked
// sender row right before a transfer is written.
func checkBalanceRules(amt amount, balance decimal.Decimal) (Outcome, bool) {
	if !balance.IsPositive() {
		return rejected(MsgOverdrawn), false
	}
	if amt.empty {
		return Outcome{}, true
	}
	if amt.value.GreaterThan(balance) {
		return rejected(fmt.Sprintf(MsgExceedsBalance, balance.StringFixed(2))), false
	}
	if amt.value.GreaterThan(transferCap) {
		return rejected(MsgExceedsCap), false
	}
	return Outcome{}, true
}

// validate runs the remaining pipeline after the numeric check. A success
// Outcome has no message yet; it is filled in once the transfer is applied.
func validate(amt amount, senderBalance decimal.Decimal) Outcome {
	if out, ok := checkBalanceRules(amt, senderBalance); !ok {
		return out
	}
	if !amt.empty && amt.value.IsNegative() {
		return rejected(MsgNegative)
	}
	if amt.empty {
		return warned(MsgEmptyAmount)
	}
	return succeeded("")
}
