package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrConflict signals an attempted transition out of a terminal state
	// (double-cancel, paying a cancelled order, ...). No side effects happen.
	ErrConflict = errors.New("order state conflict")
)

// WalletDebiter is implemented by the wallet repo; the debit joins the
// mark-paid transaction so money and status move together.
type WalletDebiter interface {
	Debit(ctx context.Context, tx pgx.Tx, userID string, amount decimal.Decimal) error
}

type Repo struct {
	DB     *pgxpool.Pool
	Wallet WalletDebiter
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	o := &Order{ID: id}
	err := r.DB.QueryRow(ctx, `
		SELECT external_id, user_id, status, pay_method, COALESCE(payment_ref,''),
		       delivery_mode, COALESCE(ship_address,''), ship_zip,
		       subtotal, shipping_fee, platform_fee, tax, bottle_deposit, tip, total,
		       stock_released, paid_at, created_at, updated_at
		FROM orders WHERE id=$1`, id).Scan(
		&o.ExternalID, &o.UserID, &o.Status, &o.PayMethod, &o.PaymentRef,
		&o.DeliveryMode, &o.ShipAddress, &o.ShipZIP,
		&o.Subtotal, &o.ShippingFee, &o.PlatformFee, &o.Tax, &o.BottleDeposit, &o.Tip, &o.Total,
		&o.StockReleased, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, variant_key, name, COALESCE(image_url,''), qty, unit_count, unit_price
		FROM order_items WHERE order_id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		it := Item{OrderID: id}
		if err := rows.Scan(&it.ProductID, &it.VariantKey, &it.Name, &it.ImageURL,
			&it.Qty, &it.UnitCount, &it.UnitPrice); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (r *Repo) GetStatus(ctx context.Context, id string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}
	return Status(s), nil
}

// MarkPaid applies the pending -> paid transition for gateway-confirmed
// payments (webhook path).
func (r *Repo) MarkPaid(ctx context.Context, id, payMethod, paymentRef string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2, pay_method=$3, payment_ref=$4, paid_at=now(), updated_at=now()
		WHERE id=$1 AND status=$5`,
		id, string(StatusPaid), payMethod, paymentRef, string(StatusPending))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	return r.conflictOrMissing(ctx, id)
}

// MarkPaidWallet debits the customer wallet and applies pending -> paid in
// one transaction.
func (r *Repo) MarkPaidWallet(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var userID string
	var status string
	var total decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT user_id, status, total FROM orders WHERE id=$1 FOR UPDATE`, id).
		Scan(&userID, &status, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if !CanTransition(Status(status), StatusPaid) {
		return ErrConflict
	}

	if err := r.Wallet.Debit(ctx, tx, userID, total); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, pay_method='wallet', paid_at=now(), updated_at=now()
		WHERE id=$1`, id, string(StatusPaid)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Cancel applies pending -> cancelled and releases reserved stock exactly
// once, all in one transaction. The stock_released flag plus the RESERVED ->
// RELEASED flip make a second invocation a pure no-op on inventory.
func (r *Repo) Cancel(ctx context.Context, id string) ([]ItemUnits, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1 AND status=$3`,
		id, string(StatusCancelled), string(StatusPending))
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() != 1 {
		return nil, r.conflictOrMissing(ctx, id)
	}

	items, err := r.releaseStock(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return items, tx.Commit(ctx)
}

func (r *Repo) releaseStock(ctx context.Context, tx pgx.Tx, id string) ([]ItemUnits, error) {
	// guard against double-crediting
	ct, err := tx.Exec(ctx, `UPDATE orders SET stock_released=true WHERE id=$1 AND NOT stock_released`, id)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() != 1 {
		return nil, nil
	}

	rows, err := tx.Query(ctx, `
		SELECT product_id, variant_key, qty, units
		FROM reservations WHERE order_id=$1 AND status='RESERVED'`, id)
	if err != nil {
		return nil, err
	}
	var items []ItemUnits
	for rows.Next() {
		var it ItemUnits
		if err := rows.Scan(&it.ProductID, &it.VariantKey, &it.Qty, &it.Units); err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, it := range items {
		if it.Units == 0 {
			continue
		}
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`,
			it.ProductID, it.Units); err != nil {
			return nil, err
		}
	}
	if _, err := tx.Exec(ctx,
		`UPDATE reservations SET status='RELEASED' WHERE order_id=$1 AND status='RESERVED'`, id); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repo) conflictOrMissing(ctx context.Context, id string) error {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}
