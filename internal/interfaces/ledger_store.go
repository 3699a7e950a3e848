package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/funds-transfer-ledger/internal/models"
)

// LedgerStore persists accounts and transfer history.
// ApplyTransfer is the only write path for account balances: it must lock both
// accounts in ascending id order, re-read them, run the guard, and then write
// both balances and the record as one all-or-nothing unit.
type LedgerStore interface {
	GetAccount(ctx context.Context, id int64) (models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	CreateAccount(ctx context.Context, name string, balance decimal.Decimal) (models.Account, error)
	ApplyTransfer(ctx context.Context, intent models.TransferIntent, guard models.TransferGuard) (models.TransferResult, error)
	ListTransferRecords(ctx context.Context) ([]models.TransferRecord, error)
}
