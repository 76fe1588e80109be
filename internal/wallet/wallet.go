package wallet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrInsufficientFunds = errors.New("insufficient wallet balance")

type Repo struct{ DB *pgxpool.Pool }

// Debit runs inside the caller's transaction; the conditional update keeps
// the balance non-negative without a separate read.
func (r *Repo) Debit(ctx context.Context, tx pgx.Tx, userID string, amount decimal.Decimal) error {
	ct, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = balance - $2, updated_at = now()
		WHERE user_id=$1 AND balance >= $2`, userID, amount)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrInsufficientFunds
	}
	return nil
}
