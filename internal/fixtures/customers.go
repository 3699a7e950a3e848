// Package fixtures seeds a fresh ledger with the demo customers.
package fixtures

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/funds-transfer-ledger/internal/models"
)

// Customer is one seed account.
type Customer struct {
	Name    string
	Balance string
}

// Customers are the seeded accounts. Zero balances are intentional: they
// exercise the overdraft guard.
var Customers = []Customer{
	{Name: "Albert Apple", Balance: "345.00"},
	{Name: "Minnie Mango", Balance: "0.00"},
	{Name: "Steve Spinach", Balance: "87.50"},
	{Name: "Petra Peach", Balance: "123.40"},
	{Name: "Olivia Orange", Balance: "1.25"},
	{Name: "Chad Chili", Balance: "5.00"},
	{Name: "Gary Garlic", Balance: "0.00"},
	{Name: "Greta Grape", Balance: "14.50"},
	{Name: "Matilda Mango", Balance: "31.98"},
	{Name: "Bobby Banana", Balance: "97.00"},
}

type accountOpener interface {
	Accounts(ctx context.Context) ([]models.Account, error)
	OpenAccount(ctx context.Context, name string, balance decimal.Decimal) (models.Account, error)
}

// Load opens every customer unless the ledger already holds accounts.
// It returns the number of accounts created.
func Load(ctx context.Context, ledger accountOpener) (int, error) {
	existing, err := ledger.Accounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i, c := range Customers {
		balance, err := decimal.NewFromString(c.Balance)
		if err != nil {
			return i, fmt.Errorf("parse balance of %s: %w", c.Name, err)
		}
		if _, err := ledger.OpenAccount(ctx, c.Name, balance); err != nil {
			return i, fmt.Errorf("open account %s: %w", c.Name, err)
		}
	}
	return len(Customers), nil
}
