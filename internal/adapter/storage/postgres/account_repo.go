package postgres

import (
	"context"
	"errors"
	"fmt"

	"fuel-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Load fetches an account and its full history, newest first.
// Returns nil, nil if the account does not exist.
func (r *AccountRepo) Load(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT id, display_name, fuel_preference, vehicle, balance, next_seq, created_at, updated_at
		FROM accounts WHERE id = $1`

	var (
		acc     domain.Account
		fuel    string
		vehicle string
		balance int64
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&acc.ID, &acc.DisplayName, &fuel, &vehicle,
		&balance, &acc.NextSeq, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	acc.FuelPreference = domain.FuelType(fuel)
	acc.Vehicle = domain.VehicleType(vehicle)
	acc.Balance = domain.Amount(balance)

	txs, err := r.listTransactions(ctx, id)
	if err != nil {
		return nil, err
	}
	acc.Transactions = txs
	return &acc, nil
}

func (r *AccountRepo) listTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	query := `SELECT id, seq, direction, kind, amount, description, token_ref, balance_after, created_at
		FROM wallet_transactions WHERE account_id = $1 ORDER BY seq DESC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		var (
			t            domain.Transaction
			direction    string
			kind         string
			amount       int64
			balanceAfter int64
		)
		if err := rows.Scan(
			&t.ID, &t.Seq, &direction, &kind, &amount,
			&t.Description, &t.TokenRef, &balanceAfter, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.AccountID = accountID
		t.Direction = domain.Direction(direction)
		t.Kind = domain.TransactionKind(kind)
		t.Amount = domain.Amount(amount)
		t.BalanceAfter = domain.Amount(balanceAfter)
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// Save upserts the account row and appends history rows newer than the
// stored maximum seq, all in one transaction. Rows are append-only, so
// replaying an older snapshot never rewrites history.
func (r *AccountRepo) Save(ctx context.Context, acc *domain.Account) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	upsert := `INSERT INTO accounts (id, display_name, fuel_preference, vehicle, balance, next_seq, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			fuel_preference = EXCLUDED.fuel_preference,
			vehicle = EXCLUDED.vehicle,
			balance = EXCLUDED.balance,
			next_seq = EXCLUDED.next_seq,
			updated_at = EXCLUDED.updated_at
		WHERE accounts.next_seq <= EXCLUDED.next_seq`

	if _, err := tx.Exec(ctx, upsert,
		acc.ID, acc.DisplayName, string(acc.FuelPreference), string(acc.Vehicle),
		int64(acc.Balance), acc.NextSeq, acc.CreatedAt, acc.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}

	var maxSeq int64
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM wallet_transactions WHERE account_id = $1`, acc.ID,
	).Scan(&maxSeq); err != nil {
		return fmt.Errorf("max seq: %w", err)
	}

	insert := `INSERT INTO wallet_transactions
		(id, account_id, seq, direction, kind, amount, description, token_ref, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	// History is newest first; insert oldest first.
	for i := len(acc.Transactions) - 1; i >= 0; i-- {
		t := acc.Transactions[i]
		if t.Seq <= maxSeq {
			continue
		}
		if _, err := tx.Exec(ctx, insert,
			t.ID, acc.ID, t.Seq, string(t.Direction), string(t.Kind), int64(t.Amount),
			t.Description, t.TokenRef, int64(t.BalanceAfter), t.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert transaction %d: %w", t.Seq, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
