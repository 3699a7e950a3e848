package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferRecord is the append-only history entry written for every applied transfer.
// Sender and recipient are stored by name, not by reference, so a record stays
// readable after an account is renamed or removed.
type TransferRecord struct {
	ID            int64
	Amount        decimal.Decimal // always positive
	CreatedAt     time.Time
	SenderName    string
	RecipientName string
}

// TransferIntent is a validated request to move Amount from SenderID to RecipientID.
type TransferIntent struct {
	SenderID    int64
	RecipientID int64
	Amount      decimal.Decimal
	CreatedAt   time.Time
}

// TransferResult is the committed state of both accounts plus the appended record.
type TransferResult struct {
	Sender    Account
	Recipient Account
	Record    TransferRecord
}

// TransferGuard re-validates a transfer against the locked sender and recipient rows.
// Returning an error aborts the transfer before anything is written.
type TransferGuard func(sender, recipient Account) error
