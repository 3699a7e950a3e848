package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferCompletedTopic is the default topic TransferCompleted events are written to.
const TransferCompletedTopic = "transfer_completed"

type TransferCompleted struct {
	EventID       string          `json:"event_id"`
	TransferID    int64           `json:"transfer_id"`
	SenderID      int64           `json:"sender_id"`
	RecipientID   int64           `json:"recipient_id"`
	SenderName    string          `json:"sender_name"`
	RecipientName string          `json:"recipient_name"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
