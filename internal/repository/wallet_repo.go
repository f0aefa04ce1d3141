package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/streambet/streambet/internal/domain"
)

// WalletRepository handles bettor balances and the append-only ledger.
type WalletRepository struct {
	db *sqlx.DB
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetByBettor fetches a bettor's wallet.
func (r *WalletRepository) GetByBettor(ctx context.Context, bettorID uuid.UUID) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.db.GetContext(ctx, &w, `SELECT * FROM wallets WHERE bettor_id = $1`, bettorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet_repo.GetByBettor: %w", err)
	}
	return &w, nil
}

// provisionQuery creates a wallet with the starting balance on first contact.
// ON CONFLICT DO NOTHING makes concurrent first calls safe: exactly one grant.
const provisionQuery = `
	INSERT INTO wallets (bettor_id, balance, created_at, updated_at)
	VALUES ($1, $2, now(), now())
	ON CONFLICT (bettor_id) DO NOTHING`

// GetOrCreate fetches a wallet, creating one with the starting balance on
// first contact.
func (r *WalletRepository) GetOrCreate(ctx context.Context, bettorID uuid.UUID, startingBalance decimal.Decimal) (*domain.Wallet, error) {
	if _, err := r.db.ExecContext(ctx, provisionQuery, bettorID, startingBalance); err != nil {
		return nil, fmt.Errorf("wallet_repo.GetOrCreate: %w", err)
	}
	return r.GetByBettor(ctx, bettorID)
}

// EnsureExists provisions a wallet inside the caller's transaction. Money-
// moving paths call this before Debit so a first-time bettor's first wager
// is judged against the starting balance instead of a missing row.
func (r *WalletRepository) EnsureExists(ctx context.Context, tx *sqlx.Tx, bettorID uuid.UUID, startingBalance decimal.Decimal) error {
	if _, err := tx.ExecContext(ctx, provisionQuery, bettorID, startingBalance); err != nil {
		return fmt.Errorf("wallet_repo.EnsureExists: %w", err)
	}
	return nil
}

// Debit subtracts amount from a wallet inside a transaction. The balance is
// read under FOR UPDATE so two concurrent debits cannot both pass the funds
// check. Returns the balance after the debit.
func (r *WalletRepository) Debit(ctx context.Context, tx *sqlx.Tx, bettorID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance,
		`SELECT balance FROM wallets WHERE bettor_id = $1 FOR UPDATE`, bettorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.ErrWalletNotFound
		}
		return decimal.Zero, fmt.Errorf("wallet_repo.Debit: %w", err)
	}
	if balance.LessThan(amount) {
		return decimal.Zero, domain.ErrInsufficientFunds
	}
	newBalance := balance.Sub(amount)
	_, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $1, updated_at = now() WHERE bettor_id = $2`,
		newBalance, bettorID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("wallet_repo.Debit: %w", err)
	}
	return newBalance, nil
}

// Credit adds amount to a wallet inside a transaction and returns the
// resulting balance. Credits never fail a funds check, so a single UPDATE
// with RETURNING suffices.
func (r *WalletRepository) Credit(ctx context.Context, tx *sqlx.Tx, bettorID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, `
		UPDATE wallets
		SET balance = balance + $1, updated_at = now()
		WHERE bettor_id = $2
		RETURNING balance`,
		amount, bettorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.ErrWalletNotFound
		}
		return decimal.Zero, fmt.Errorf("wallet_repo.Credit: %w", err)
	}
	return balance, nil
}

// LogTransaction appends a ledger entry. Ledger rows are never updated or
// deleted; the wallet's balance must always equal the sum of its entries.
func (r *WalletRepository) LogTransaction(ctx context.Context, tx *sqlx.Tx, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions
			(id, bettor_id, kind, amount, balance_after, wager_ref, question_ref, description, created_at)
		VALUES
			(:id, :bettor_id, :kind, :amount, :balance_after, :wager_ref, :question_ref, :description, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("wallet_repo.LogTransaction: %w", err)
	}
	return nil
}

// GetTransactions returns a bettor's ledger entries, newest first.
func (r *WalletRepository) GetTransactions(ctx context.Context, bettorID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	err := r.db.SelectContext(ctx, &txs, `
		SELECT * FROM transactions
		WHERE bettor_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		bettorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("wallet_repo.GetTransactions: %w", err)
	}
	return txs, nil
}

// GetTransactionsSince returns ledger entries created in [from, to), used by
// the period stats rebuild.
func (r *WalletRepository) GetTransactionsSince(ctx context.Context, from, to time.Time) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	err := r.db.SelectContext(ctx, &txs, `
		SELECT * FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at ASC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("wallet_repo.GetTransactionsSince: %w", err)
	}
	return txs, nil
}
