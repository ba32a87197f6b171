package repo

import (
	"context"

	"photobot/internal/domain"
	"photobot/internal/infra"
	"photobot/internal/sqlinline"
)

// LedgerPG implements domain.BalanceLedger on the users table. Both mutations
// are single conditional UPDATE statements, so concurrent workers never
// read-modify-write the counter.
type LedgerPG struct {
	sql infra.SQLExecutor
}

// NewLedger creates a balance ledger backed by PostgreSQL.
func NewLedger(sql infra.SQLExecutor) *LedgerPG {
	return &LedgerPG{sql: sql}
}

// Debit atomically decrements the user's balance. The conditional predicate
// refuses to drive the counter negative; an empty result therefore means
// either an unknown user or an insufficient balance, and the caller treats
// both as ErrInsufficientBalance.
func (l *LedgerPG) Debit(ctx context.Context, userID int64, amount int) (int, error) {
	row := l.sql.QueryRow(ctx, sqlinline.QDebitBalance, userID, amount)
	var remaining int
	if err := row.Scan(&remaining); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrInsufficientBalance
		}
		return 0, err
	}
	return remaining, nil
}

// Credit atomically increments the user's balance.
func (l *LedgerPG) Credit(ctx context.Context, userID int64, amount int) (int, error) {
	row := l.sql.QueryRow(ctx, sqlinline.QCreditBalance, userID, amount)
	var remaining int
	if err := row.Scan(&remaining); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return remaining, nil
}

// Remaining reads the current balance.
func (l *LedgerPG) Remaining(ctx context.Context, userID int64) (int, error) {
	row := l.sql.QueryRow(ctx, sqlinline.QSelectBalance, userID)
	var remaining int
	if err := row.Scan(&remaining); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return remaining, nil
}

var _ domain.BalanceLedger = (*LedgerPG)(nil)
