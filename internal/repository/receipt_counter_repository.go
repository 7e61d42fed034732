package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ReceiptCounterRepository hands out receipt serials per calendar month and
// registers the transaction ids receipts are grouped by.
type ReceiptCounterRepository struct {
	db *sqlx.DB
}

// NewReceiptCounterRepository constructs the counter repository.
func NewReceiptCounterRepository(db *sqlx.DB) *ReceiptCounterRepository {
	return &ReceiptCounterRepository{db: db}
}

// Reserve atomically advances the counter for period (YYYYMM) by n and returns
// the first serial of the reserved block. The counter row stays locked until
// the surrounding transaction ends.
func (r *ReceiptCounterRepository) Reserve(ctx context.Context, exec sqlx.ExtContext, period string, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("reserve receipt serials: count must be positive")
	}
	if exec == nil {
		exec = r.db
	}
	const query = `INSERT INTO receipt_counters (period, last_serial) VALUES ($1, $2)
ON CONFLICT (period) DO UPDATE SET last_serial = receipt_counters.last_serial + EXCLUDED.last_serial
RETURNING last_serial`
	var last int
	if err := sqlx.GetContext(ctx, exec, &last, query, period, n); err != nil {
		return 0, fmt.Errorf("reserve receipt serials: %w", err)
	}
	return last - n + 1, nil
}

// ClaimTransaction registers transactionID for studentID. It reports false
// when the id is already registered, including by a concurrent payment that
// has not committed yet; the insert waits on that transaction first.
func (r *ReceiptCounterRepository) ClaimTransaction(ctx context.Context, exec sqlx.ExtContext, transactionID, studentID string) (bool, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `INSERT INTO payment_transactions (transaction_id, student_id) VALUES ($1, $2)
ON CONFLICT (transaction_id) DO NOTHING
RETURNING transaction_id`
	var claimed string
	if err := sqlx.GetContext(ctx, exec, &claimed, query, transactionID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("claim transaction %s: %w", transactionID, err)
	}
	return true, nil
}
