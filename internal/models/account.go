package models

import (
	"github.com/shopspring/decimal"
)

// Account is a named holder of a monetary balance.
// Balance is kept at two fractional digits and may already be negative
// (overdrafts that predate transfer validation are tolerated on read).
type Account struct {
	ID      int64           // immutable once created
	Name    string          // display name, snapshotted into transfer records
	Balance decimal.Decimal // current balance
}
