package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/funds-transfer-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/models"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 10
	connMaxLifetime = 30 * time.Minute
)

type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// Open connects to dsn and verifies the connection with a ping.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func (p *PostgresLedgerStore) GetAccount(ctx context.Context, id int64) (models.Account, error) {
	const query = `SELECT id, name, balance FROM account WHERE id = $1`

	var account models.Account
	err := p.db.QueryRowContext(ctx, query, id).Scan(&account.ID, &account.Name, &account.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, models.ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (p *PostgresLedgerStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	const query = `SELECT id, name, balance FROM account ORDER BY id`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(&account.ID, &account.Name, &account.Balance); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *PostgresLedgerStore) CreateAccount(ctx context.Context, name string, balance decimal.Decimal) (models.Account, error) {
	const query = `INSERT INTO account (name, balance) VALUES ($1, $2) RETURNING id`

	account := models.Account{Name: name, Balance: balance.Round(2)}
	if err := p.db.QueryRowContext(ctx, query, account.Name, account.Balance).Scan(&account.ID); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

// lockAccount reads one account row and holds its row lock until dbTx ends.
func (p *PostgresLedgerStore) lockAccount(ctx context.Context, dbTx *sql.Tx, id int64) (models.Account, error) {
	const query = `SELECT id, name, balance FROM account WHERE id = $1 FOR UPDATE`

	var account models.Account
	err := dbTx.QueryRowContext(ctx, query, id).Scan(&account.ID, &account.Name, &account.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, models.ErrAccountNotFound
	}
	return account, err
}

func (p *PostgresLedgerStore) saveBalance(ctx context.Context, dbTx *sql.Tx, account models.Account) error {
	const query = `UPDATE account SET balance = $2 WHERE id = $1`

	_, err := dbTx.ExecContext(ctx, query, account.ID, account.Balance)
	return err
}

func (p *PostgresLedgerStore) saveRecord(ctx context.Context, dbTx *sql.Tx, record *models.TransferRecord) error {
	const query = `INSERT INTO transfer_record (amount, created_at, sender_name, recipient_name)
	VALUES ($1, $2, $3, $4) RETURNING id`

	return dbTx.QueryRowContext(ctx, query, record.Amount, record.CreatedAt, record.SenderName, record.RecipientName).
		Scan(&record.ID)
}

// ApplyTransfer runs the paired balance update inside one SQL transaction.
// Row locks are taken in ascending id order under the caller's context, so a
// caller that gives up while waiting leaves nothing behind. The transaction
// itself is bound to a non-cancellable context: once the guard has passed,
// the writes either commit or roll back, never stop half way.
func (p *PostgresLedgerStore) ApplyTransfer(ctx context.Context, intent models.TransferIntent, guard models.TransferGuard) (result models.TransferResult, err error) {
	if err := ctx.Err(); err != nil {
		return models.TransferResult{}, err
	}

	commitCtx := context.WithoutCancel(ctx)
	dbTx, err := p.db.BeginTx(commitCtx, nil)
	if err != nil {
		return models.TransferResult{}, fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rollbackErr := dbTx.Rollback(); rollbackErr != nil {
				err = errors.Join(err, rollbackErr)
			}
		}
	}()

	first, second := intent.SenderID, intent.RecipientID
	if second < first {
		first, second = second, first
	}

	locked := make(map[int64]models.Account, 2)
	for _, id := range []int64{first, second} {
		account, lockErr := p.lockAccount(ctx, dbTx, id)
		if lockErr != nil {
			return models.TransferResult{}, lockErr
		}
		locked[id] = account
	}

	sender, recipient := locked[intent.SenderID], locked[intent.RecipientID]
	if err = ctx.Err(); err != nil {
		return models.TransferResult{}, err
	}
	if guard != nil {
		if err = guard(sender, recipient); err != nil {
			return models.TransferResult{}, err
		}
	}

	sender.Balance = sender.Balance.Sub(intent.Amount)
	recipient.Balance = recipient.Balance.Add(intent.Amount)

	if err = p.saveBalance(commitCtx, dbTx, sender); err != nil {
		return models.TransferResult{}, fmt.Errorf("update sender balance: %w", err)
	}
	if err = p.saveBalance(commitCtx, dbTx, recipient); err != nil {
		return models.TransferResult{}, fmt.Errorf("update recipient balance: %w", err)
	}

	record := models.TransferRecord{
		Amount:        intent.Amount,
		CreatedAt:     intent.CreatedAt,
		SenderName:    sender.Name,
		RecipientName: recipient.Name,
	}
	if err = p.saveRecord(commitCtx, dbTx, &record); err != nil {
		return models.TransferResult{}, fmt.Errorf("insert transfer record: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		return models.TransferResult{}, fmt.Errorf("commit transfer: %w", err)
	}
	return models.TransferResult{Sender: sender, Recipient: recipient, Record: record}, nil
}

func (p *PostgresLedgerStore) ListTransferRecords(ctx context.Context) ([]models.TransferRecord, error) {
	const query = `SELECT id, amount, created_at, sender_name, recipient_name FROM transfer_record ORDER BY id`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.TransferRecord
	for rows.Next() {
		var record models.TransferRecord
		err := rows.Scan(
			&record.ID,
			&record.Amount,
			&record.CreatedAt,
			&record.SenderName,
			&record.RecipientName,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
