package transfer

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/funds-transfer-ledger/internal/ledger"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/models"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/storage/memory"
)

type fixture struct {
	engine *Engine
	ledger *ledger.Ledger
	a, b   models.Account
}

// newFixture opens account A with balance 500 and account B with balance 0.
func newFixture(t *testing.T) fixture {
	t.Helper()
	l := ledger.NewLedger(memory.NewMemoryLedgerStore())
	a, err := l.OpenAccount(context.Background(), "A", decimal.RequireFromString("500.00"))
	require.NoError(t, err)
	b, err := l.OpenAccount(context.Background(), "B", decimal.Zero)
	require.NoError(t, err)
	return fixture{engine: NewEngine(l, nil), ledger: l, a: a, b: b}
}

func (f fixture) balance(t *testing.T, id int64) string {
	t.Helper()
	acc, err := f.ledger.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance.StringFixed(2)
}

func (f fixture) recordCount(t *testing.T) int {
	t.Helper()
	records, err := f.ledger.Transfers(context.Background())
	require.NoError(t, err)
	return len(records)
}

func id(a models.Account) string { return strconv.FormatInt(a.ID, 10) }

func TestProcessTransferSuccess(t *testing.T) {
	f := newFixture(t)

	out, err := f.engine.ProcessTransfer(context.Background(), f.a.ID, "100.50", id(f.b))
	require.NoError(t, err)

	assert.Equal(t, Outcome{Kind: KindSuccess, Message: "Transferred $100.50 from A to B"}, out)
	assert.Equal(t, "399.50", f.balance(t, f.a.ID))
	assert.Equal(t, "100.50", f.balance(t, f.b.ID))

	records, err := f.ledger.Transfers(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "100.50", records[0].Amount.StringFixed(2))
	assert.Equal(t, "A", records[0].SenderName)
	assert.Equal(t, "B", records[0].RecipientName)
}

func TestProcessTransferConservesMoney(t *testing.T) {
	f := newFixture(t)
	amounts := []string{"0.01", "12.34", "99.99", "100", "0.10", "0.20"}

	for _, raw := range amounts {
		before := decimal.RequireFromString(f.balance(t, f.a.ID)).Add(decimal.RequireFromString(f.balance(t, f.b.ID)))
		senderBefore := decimal.RequireFromString(f.balance(t, f.a.ID))

		out, err := f.engine.ProcessTransfer(context.Background(), f.a.ID, raw, id(f.b))
		require.NoError(t, err)
		require.Equal(t, KindSuccess, out.Kind, out.Message)

		senderAfter := decimal.RequireFromString(f.balance(t, f.a.ID))
		after := senderAfter.Add(decimal.RequireFromString(f.balance(t, f.b.ID)))
		assert.True(t, before.Equal(after), "total changed from %s to %s", before, after)
		assert.True(t, senderBefore.Sub(senderAfter).Equal(decimal.RequireFromString(raw)))
	}

	assert.Equal(t, "287.36", f.balance(t, f.a.ID))
	assert.Equal(t, "212.64", f.balance(t, f.b.ID))
}

func TestProcessTransferRejectionsLeaveStateUnchanged(t *testing.T) {
	tests := []struct {
		name   string
		from   func(f fixture) models.Account
		to     func(f fixture) string
		amount string
		want   Outcome
	}{
		{
			name:   "empty amount",
			from:   func(f fixture) models.Account { return f.a },
			to:     func(f fixture) string { return id(f.b) },
			amount: "",
			want:   Outcome{Kind: KindWarning, Message: "The transfer was submitted without an amount entered!"},
		},
		{
			name:   "non numeric",
			from:   func(f fixture) models.Account { return f.a },
			to:     func(f fixture) string { return id(f.b) },
			amount: "abc",
			want:   Outcome{Kind: KindError, Message: "Only numeric values are allowed!"},
		},
		{
			name:   "non numeric and negative",
			from:   func(f fixture) models.Account { return f.a },
			to:     func(f fixture) string { return id(f.b) },
			amount: "-abc",
			want:   Outcome{Kind: KindError, Message: "Only numeric values are allowed!"},
		},
		{
			name:   "sender balance zero",
			from:   func(f fixture) models.Account { return f.b },
			to:     func(f fixture) string { return id(f.a) },
			amount: "10",
			want:   Outcome{Kind: KindError, Message: "Transfers may not be made if balance is zero or in overdraft"},
		},
		{
			name:   "over balance",
			from:   func(f fixture) models.Account { return f.a },
			to:     func(f fixture) string { return id(f.b) },
			amount: "501",
			want:   Outcome{Kind: KindError, Message: "Transfer amount must be less or equal to the balance of $500.00 and may not exceed $500"},
		},
		{
			name:   "negative",
			from:   func(f fixture) models.Account { return f.a },
			to:     func(f fixture) string { return id(f.b) },
			amount: "-5",
			want:   Outcome{Kind: KindError, Message: "Transfers may not be negative values"},
		},
		{
			name:   "negative below a cent",
			from:   func(f fixture) models.Account { return f.a },
			to:     func(f fixture) string { return id(f.b) },
			amount: "-0.004",
			want:   Outcome{Kind: KindError, Message: "Transfers may not be negative values"},
		},
		{
			name:   "missing recipient",
			from:   func(f fixture) models.Account { return f.a },
			to:     func(f fixture) string { return "" },
			amount: "10",
			want:   Outcome{Kind: KindWarning, Message: "There was a error attempting to retrieve the recipient of the transfer. Please try again."},
		},
		{
			name:   "unknown recipient",
			from:   func(f fixture) models.Account { return f.a },
			to:     func(f fixture) string { return "9999" },
			amount: "10",
			want:   Outcome{Kind: KindWarning, Message: MsgRecipientUnavailable},
		},
		{
			name:   "malformed recipient",
			from:   func(f fixture) models.Account { return f.a },
			to:     func(f fixture) string { return "bob" },
			amount: "10",
			want:   Outcome{Kind: KindWarning, Message: MsgRecipientUnavailable},
		},
		{
			name:   "recipient is sender",
			from:   func(f fixture) models.Account { return f.a },
			to:     func(f fixture) string { return id(f.a) },
			amount: "10",
			want:   Outcome{Kind: KindWarning, Message: MsgRecipientUnavailable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			from, to := tt.from(f), tt.to(f)

			// identical input twice must give identical outcomes and no change
			for i := 0; i < 2; i++ {
				out, err := f.engine.ProcessTransfer(context.Background(), from.ID, tt.amount, to)
				require.NoError(t, err)
				assert.Equal(t, tt.want, out)

				assert.Equal(t, "500.00", f.balance(t, f.a.ID))
				assert.Equal(t, "0.00", f.balance(t, f.b.ID))
				assert.Zero(t, f.recordCount(t))
			}
		})
	}
}

func TestProcessTransferOverCap(t *testing.T) {
	f := newFixture(t)
	rich, err := f.ledger.OpenAccount(context.Background(), "rich", decimal.NewFromInt(1000))
	require.NoError(t, err)

	out, err := f.engine.ProcessTransfer(context.Background(), rich.ID, "501", id(f.b))
	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: KindError, Message: "Transfers may not exceed $500"}, out)
	assert.Equal(t, "1000.00", f.balance(t, rich.ID))
}

func TestProcessTransferUnknownSenderIsInfrastructureFailure(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.ProcessTransfer(context.Background(), 9999, "10", id(f.b))
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	f := newFixture(t)

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			out, err := f.engine.ProcessTransfer(context.Background(), f.a.ID, "100", id(f.b))
			assert.NoError(t, err)
			if out.OK() {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				assert.Equal(t, KindError, out.Kind)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, successes)
	assert.Equal(t, "0.00", f.balance(t, f.a.ID))
	assert.Equal(t, "500.00", f.balance(t, f.b.ID))
	assert.Equal(t, 5, f.recordCount(t))
}

// staleLedger reports one balance on read and hands a different, locked
// balance to the guard, the way a concurrent debit would.
type staleLedger struct {
	read, locked models.Account
	recipient    models.Account
	applyErr     error
	applied      bool
}

func (s *staleLedger) GetAccount(ctx context.Context, id int64) (models.Account, error) {
	switch id {
	case s.read.ID:
		return s.read, nil
	case s.recipient.ID:
		return s.recipient, nil
	}
	return models.Account{}, models.ErrAccountNotFound
}

func (s *staleLedger) ApplyTransfer(ctx context.Context, senderID, recipientID int64, amount decimal.Decimal, guard models.TransferGuard) (models.TransferResult, error) {
	if s.applyErr != nil {
		return models.TransferResult{}, s.applyErr
	}
	if err := guard(s.locked, s.recipient); err != nil {
		return models.TransferResult{}, err
	}
	s.applied = true
	return models.TransferResult{Record: models.TransferRecord{Amount: amount, SenderName: s.locked.Name, RecipientName: s.recipient.Name}}, nil
}

func TestProcessTransferRechecksLockedBalance(t *testing.T) {
	stale := &staleLedger{
		read:      models.Account{ID: 1, Name: "A", Balance: decimal.NewFromInt(500)},
		locked:    models.Account{ID: 1, Name: "A", Balance: decimal.NewFromInt(50)},
		recipient: models.Account{ID: 2, Name: "B"},
	}
	engine := NewEngine(stale, nil)

	out, err := engine.ProcessTransfer(context.Background(), 1, "100", "2")
	require.NoError(t, err)
	assert.Equal(t, rejected("Transfer amount must be less or equal to the balance of $50.00 and may not exceed $500"), out)
	assert.False(t, stale.applied)

	stale.locked.Balance = decimal.Zero
	out, err = engine.ProcessTransfer(context.Background(), 1, "100", "2")
	require.NoError(t, err)
	assert.Equal(t, rejected(MsgOverdrawn), out)
}

func TestProcessTransferCommitFailureIsInfrastructureFailure(t *testing.T) {
	stale := &staleLedger{
		read:      models.Account{ID: 1, Name: "A", Balance: decimal.NewFromInt(500)},
		recipient: models.Account{ID: 2, Name: "B"},
		applyErr:  models.ErrAccountNotFound,
	}
	engine := NewEngine(stale, nil)

	out, err := engine.ProcessTransfer(context.Background(), 1, "100", "2")
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
	assert.Equal(t, Outcome{}, out)

	var rejection *RejectedError
	assert.False(t, errors.As(err, &rejection))
}
