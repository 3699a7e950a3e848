package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/funds-transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/models"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/models/events"
)

// Ledger is the authoritative owner of account balances.
// It is the only component that asks the store to change a balance or append
// a transfer record.
type Ledger struct {
	store     interfaces.LedgerStore    // Interface to the account and record storage, can be any implementation
	publisher interfaces.EventPublisher // optional, nil disables events
	topic     string                    // topic TransferCompleted events are written to
	logger    *zap.Logger               // structured logs for committed transfers
	now       func() time.Time          // stamps TransferRecord.CreatedAt
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPublisher emits a TransferCompleted event to topic after every committed transfer.
func WithPublisher(publisher interfaces.EventPublisher, topic string) Option {
	return func(l *Ledger) {
		l.publisher = publisher
		if topic != "" {
			l.topic = topic
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the source of record timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates a Ledger on top of any LedgerStore implementation.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store, // Assign the storage implementation to the ledger's store field
		topic:  events.TransferCompletedTopic,
		logger: zap.NewNop(), // silent unless WithLogger is given
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetAccount returns the current state of an account, or models.ErrAccountNotFound.
func (l *Ledger) GetAccount(ctx context.Context, id int64) (models.Account, error) {
	return l.store.GetAccount(ctx, id)
}

func (l *Ledger) Accounts(ctx context.Context) ([]models.Account, error) {
	return l.store.ListAccounts(ctx)
}

func (l *Ledger) Transfers(ctx context.Context) ([]models.TransferRecord, error) {
	return l.store.ListTransferRecords(ctx)
}

// OpenAccount creates an account. Balances of new accounts are not validated:
// seeded data may already be overdrawn.
func (l *Ledger) OpenAccount(ctx context.Context, name string, balance decimal.Decimal) (models.Account, error) {
	if name == "" {
		return models.Account{}, fmt.Errorf("%w: account name is required", models.ErrInvalidAccount)
	}
	return l.store.CreateAccount(ctx, name, balance)
}

// ApplyTransfer debits senderID and credits recipientID by amount and appends
// one transfer record, all in a single atomic unit. guard runs against the
// locked account rows right before the write; its error aborts the transfer
// and is returned unchanged.
func (l *Ledger) ApplyTransfer(ctx context.Context, senderID, recipientID int64, amount decimal.Decimal, guard models.TransferGuard) (models.TransferResult, error) {
	amount = amount.Round(2) // money moves in whole cents

	// Basic validation: the transfer amount must be positive
	if !amount.IsPositive() {
		return models.TransferResult{}, fmt.Errorf("%w: amount must be positive", models.ErrInvalidTransfer)
	}
	// an account cannot pay itself
	if senderID == recipientID {
		return models.TransferResult{}, fmt.Errorf("%w: sender and recipient must differ", models.ErrInvalidTransfer)
	}

	// the intent the store applies atomically: debit, credit and one record
	intent := models.TransferIntent{
		SenderID:    senderID,
		RecipientID: recipientID,
		Amount:      amount,
		CreatedAt:   l.now().UTC(),
	}

	result, err := l.store.ApplyTransfer(ctx, intent, guard)
	if err != nil {
		return models.TransferResult{}, err // guard rejections pass through unchanged
	}

	l.logger.Info("transfer committed",
		zap.Int64("transfer_id", result.Record.ID),
		zap.Int64("sender_id", senderID),
		zap.Int64("recipient_id", recipientID),
		zap.String("amount", amount.StringFixed(2)),
	)

	l.publishCompleted(ctx, intent, result) // never fails the committed transfer
	return result, nil
}

// publishCompleted is best effort: the transfer is already committed.
func (l *Ledger) publishCompleted(ctx context.Context, intent models.TransferIntent, result models.TransferResult) {
	if l.publisher == nil {
		return
	}

	event := events.TransferCompleted{
		EventID:       uuid.NewString(),
		TransferID:    result.Record.ID,
		SenderID:      intent.SenderID,
		RecipientID:   intent.RecipientID,
		SenderName:    result.Record.SenderName,
		RecipientName: result.Record.RecipientName,
		Amount:        result.Record.Amount,
		OccurredAt:    result.Record.CreatedAt,
	}

	key := strconv.FormatInt(intent.SenderID, 10) // keeps one sender's events in order on a partition

	// the request may already be done; the publisher bounds the write itself
	if err := l.publisher.Publish(context.WithoutCancel(ctx), l.topic, key, event); err != nil {
		l.logger.Warn("failed to publish transfer event",
			zap.Int64("transfer_id", result.Record.ID),
			zap.Error(err),
		)
	}
}
