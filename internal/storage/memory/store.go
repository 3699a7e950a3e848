package memory

import (
	"context" // request-scoped cancellation while waiting for account locks
	"sort"    // ordering of lock acquisition and of listed accounts
	"sync"    // RWMutex for the maps, Mutex for the lock table

	"github.com/shopspring/decimal" // exact money arithmetic

	interfaces "github.com/sheikh-saqib/funds-transfer-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/models"                // domain models: Account, TransferRecord
)

// accountLock is a one-slot semaphore; unlike sync.Mutex it can be waited on with a context.
type accountLock chan struct{}

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// Transfers serialize per account through accountLock; mu only guards the maps
// and slices themselves, so readers never observe half of a transfer.
type MemoryLedgerStore struct {
	mu            sync.RWMutex             // guards accounts, records and the id counters
	accounts      map[int64]models.Account // current account state by id
	records       []models.TransferRecord  // append-only transfer history
	nextAccountID int64                    // last issued account id
	nextRecordID  int64                    // last issued transfer record id

	locksMu sync.Mutex            // protects locks itself
	locks   map[int64]accountLock // one lock per account, created on first use
}

// NewMemoryLedgerStore creates an empty store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		accounts: make(map[int64]models.Account),
		records:  make([]models.TransferRecord, 0), // initialize an empty history
		locks:    make(map[int64]accountLock),
	}
}

func (m *MemoryLedgerStore) getAccountLock(accountID int64) accountLock {
	m.locksMu.Lock()         // lock the table so two callers never create the same lock twice
	defer m.locksMu.Unlock() // unlock automatically when function exits

	if _, exists := m.locks[accountID]; !exists {
		m.locks[accountID] = make(accountLock, 1)
	}
	return m.locks[accountID]
}

// lockAccounts acquires the locks for ids in ascending order so that
// simultaneous A->B and B->A transfers cannot deadlock. On cancellation every
// lock taken so far is released and ctx.Err() is returned.
func (m *MemoryLedgerStore) lockAccounts(ctx context.Context, ids ...int64) (func(), error) {
	sorted := append([]int64(nil), ids...) // copy so the caller's slice is left alone
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	held := make([]accountLock, 0, len(sorted))
	unlock := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue // the same account is only locked once
		}
		lock := m.getAccountLock(id)
		select {
		case lock <- struct{}{}: // slot taken, we own the account
			held = append(held, lock)
		case <-ctx.Done(): // caller gave up while waiting
			unlock()
			return nil, ctx.Err()
		}
	}
	return unlock, nil
}

func (m *MemoryLedgerStore) GetAccount(ctx context.Context, id int64) (models.Account, error) {
	m.mu.RLock()         // shared lock, readers do not block each other
	defer m.mu.RUnlock() // unlock automatically at the end

	account, ok := m.accounts[id]
	if !ok {
		return models.Account{}, models.ErrAccountNotFound
	}
	return account, nil
}

// ListAccounts returns a copy of all accounts ordered by id.
func (m *MemoryLedgerStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryLedgerStore) CreateAccount(ctx context.Context, name string, balance decimal.Decimal) (models.Account, error) {
	m.mu.Lock()         // lock the mutex to prevent concurrent writes
	defer m.mu.Unlock() // unlock automatically when function exits (even if error occurs)

	m.nextAccountID++
	account := models.Account{
		ID:      m.nextAccountID,
		Name:    name,
		Balance: balance.Round(2), // balances are kept at cent precision
	}
	m.accounts[account.ID] = account
	return account, nil
}

// ApplyTransfer moves intent.Amount between the two accounts and appends one record.
// Cancellation is honoured while waiting for the account locks; once the locks
// are held and the guard has passed, the write always completes.
func (m *MemoryLedgerStore) ApplyTransfer(ctx context.Context, intent models.TransferIntent, guard models.TransferGuard) (models.TransferResult, error) {
	unlock, err := m.lockAccounts(ctx, intent.SenderID, intent.RecipientID)
	if err != nil {
		return models.TransferResult{}, err
	}
	defer unlock() // release both account locks once the transfer is done

	// read both rows; the account locks keep them stable until we write
	m.mu.RLock()
	sender, senderOK := m.accounts[intent.SenderID]
	recipient, recipientOK := m.accounts[intent.RecipientID]
	m.mu.RUnlock()

	if !senderOK || !recipientOK {
		return models.TransferResult{}, models.ErrAccountNotFound
	}
	if err := ctx.Err(); err != nil {
		return models.TransferResult{}, err // last point at which cancellation is honoured
	}
	if guard != nil { // re-check the business rules against the locked rows
		if err := guard(sender, recipient); err != nil {
			return models.TransferResult{}, err
		}
	}

	sender.Balance = sender.Balance.Sub(intent.Amount)       // debit the sender
	recipient.Balance = recipient.Balance.Add(intent.Amount) // credit the recipient

	// both balances and the record become visible together
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRecordID++
	record := models.TransferRecord{
		ID:            m.nextRecordID,
		Amount:        intent.Amount,
		CreatedAt:     intent.CreatedAt,
		SenderName:    sender.Name,
		RecipientName: recipient.Name,
	}
	m.accounts[sender.ID] = sender
	m.accounts[recipient.ID] = recipient
	m.records = append(m.records, record) // history is append-only

	return models.TransferResult{Sender: sender, Recipient: recipient, Record: record}, nil
}

// ListTransferRecords returns a copy of the transfer history in insertion order.
func (m *MemoryLedgerStore) ListTransferRecords(ctx context.Context) ([]models.TransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	copied := make([]models.TransferRecord, len(m.records))
	copy(copied, m.records) // callers cannot modify internal state
	return copied, nil
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
