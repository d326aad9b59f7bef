package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finances-api/finances/internal/apperr"
)

// PostgresLedger persists accounts and movements in PostgreSQL. Balance
// changes lock the account row for the duration of the transaction.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const accountColumns = `id::text, name, balance::text, owner_id::text, created_at`

const movementColumns = `id::text, direction, amount::text, created_at, account_id::text`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var (
		a       Account
		balance string
	)
	if err := row.Scan(&a.ID, &a.Name, &balance, &a.OwnerID, &a.CreatedAt); err != nil {
		return Account{}, err
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return Account{}, fmt.Errorf("decode balance: %w", err)
	}
	a.Balance = b
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func scanMovement(row rowScanner) (Movement, error) {
	var (
		m         Movement
		direction string
		amount    string
	)
	if err := row.Scan(&m.ID, &direction, &amount, &m.CreatedAt, &m.AccountID); err != nil {
		return Movement{}, err
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return Movement{}, fmt.Errorf("decode amount: %w", err)
	}
	m.Amount = a
	m.Direction = Direction(direction)
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

// validID reports whether id can be a row key. Anything else is a miss.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (l *PostgresLedger) CreateAccount(ctx context.Context, account Account) (Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	const query = `INSERT INTO bank_accounts (id, name, balance, owner_id, created_at)
        VALUES ($1, $2, $3::numeric, $4, $5)`
	if _, err := l.db.Exec(ctx, query, account.ID, account.Name, account.Balance.String(), account.OwnerID, account.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return Account{}, apperr.Conflict("bank account %s already exists", account.ID)
			case "23503":
				return Account{}, apperr.NotFound("No user with id %s", account.OwnerID)
			}
		}
		return Account{}, apperr.Persistence(err)
	}
	return account, nil
}

func (l *PostgresLedger) Account(ctx context.Context, id string) (Account, bool, error) {
	if !validID(id) {
		return Account{}, false, nil
	}
	row := l.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, false, nil
		}
		return Account{}, false, apperr.Persistence(err)
	}
	return account, true, nil
}

func (l *PostgresLedger) RenameAccount(ctx context.Context, id, name string) (Account, error) {
	if !validID(id) {
		return Account{}, ErrAccountNotFound
	}
	row := l.db.QueryRow(ctx, `UPDATE bank_accounts SET name = $2 WHERE id = $1 RETURNING `+accountColumns, id, name)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, apperr.Persistence(err)
	}
	return account, nil
}

// DeleteAccount removes the account; its movements go with it through the
// ON DELETE CASCADE foreign key.
func (l *PostgresLedger) DeleteAccount(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrAccountNotFound
	}
	tag, err := l.db.Exec(ctx, `DELETE FROM bank_accounts WHERE id = $1`, id)
	if err != nil {
		return apperr.Persistence(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (l *PostgresLedger) AccountsByOwner(ctx context.Context, ownerID string) ([]Account, error) {
	if !validID(ownerID) {
		return nil, nil
	}
	rows, err := l.db.Query(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE owner_id = $1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, apperr.Persistence(err)
		}
		out = append(out, account)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence(err)
	}
	return out, nil
}

func (l *PostgresLedger) Movement(ctx context.Context, id string) (Movement, bool, error) {
	if !validID(id) {
		return Movement{}, false, nil
	}
	row := l.db.QueryRow(ctx, `SELECT `+movementColumns+` FROM movements WHERE id = $1`, id)
	m, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{}, false, nil
		}
		return Movement{}, false, apperr.Persistence(err)
	}
	return m, true, nil
}

func (l *PostgresLedger) MovementsBetween(ctx context.Context, accountID string, start, end time.Time) ([]Movement, error) {
	if !validID(accountID) {
		return nil, nil
	}
	const query = `SELECT ` + movementColumns + ` FROM movements
        WHERE account_id = $1 AND created_at >= $2 AND created_at <= $3
        ORDER BY created_at, id`
	rows, err := l.db.Query(ctx, query, accountID, start, end)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, apperr.Persistence(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence(err)
	}
	return out, nil
}

func (l *PostgresLedger) Post(ctx context.Context, m Movement) (Movement, Account, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if !validID(m.AccountID) {
		return Movement{}, Account{}, ErrAccountNotFound
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Movement{}, Account{}, apperr.Persistence(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	account, err := lockAccount(ctx, tx, m.AccountID)
	if err != nil {
		return Movement{}, Account{}, err
	}

	updated, err := account.Apply(m.Direction, m.Amount)
	if err != nil {
		return Movement{}, account, err
	}

	const insert = `INSERT INTO movements (id, account_id, direction, amount, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5)`
	if _, err := tx.Exec(ctx, insert, m.ID, m.AccountID, string(m.Direction), m.Amount.String(), m.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Movement{}, Account{}, apperr.Conflict("movement %s already exists", m.ID)
		}
		return Movement{}, Account{}, apperr.Persistence(err)
	}
	if err := saveBalance(ctx, tx, updated); err != nil {
		return Movement{}, Account{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Movement{}, Account{}, apperr.Persistence(err)
	}
	return m, updated, nil
}

func (l *PostgresLedger) Reverse(ctx context.Context, movementID string) (Account, error) {
	if !validID(movementID) {
		return Account{}, ErrMovementNotFound
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Account{}, apperr.Persistence(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	m, err := scanMovement(tx.QueryRow(ctx, `SELECT `+movementColumns+` FROM movements WHERE id = $1 FOR UPDATE`, movementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrMovementNotFound
		}
		return Account{}, apperr.Persistence(err)
	}

	account, err := lockAccount(ctx, tx, m.AccountID)
	if err != nil {
		return Account{}, err
	}

	updated, err := account.Apply(m.Direction.Inverse(), m.Amount)
	if err != nil {
		return account, err
	}

	if err := saveBalance(ctx, tx, updated); err != nil {
		return Account{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM movements WHERE id = $1`, movementID); err != nil {
		return Account{}, apperr.Persistence(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, apperr.Persistence(err)
	}
	return updated, nil
}

func lockAccount(ctx context.Context, tx pgx.Tx, id string) (Account, error) {
	row := tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE id = $1 FOR UPDATE`, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, apperr.Persistence(err)
	}
	return account, nil
}

func saveBalance(ctx context.Context, tx pgx.Tx, account Account) error {
	if _, err := tx.Exec(ctx, `UPDATE bank_accounts SET balance = $2::numeric WHERE id = $1`, account.ID, account.Balance.String()); err != nil {
		return apperr.Persistence(err)
	}
	return nil
}
