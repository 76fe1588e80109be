package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Shipping struct {
	Address string       `json:"address"`
	ZIP     string       `json:"zip" validate:"required"`
	Lat     float64      `json:"lat"`
	Lng     float64      `json:"lng"`
	Mode    DeliveryMode `json:"mode" validate:"omitempty,oneof=next_day area_group flash"`
}

type OrderDraft struct {
	ID         string
	ExternalID string
	UserID     string
	Lines      []Reservation
	Totals     Totals
	PayMethod  string
	Shipping   Shipping
}

type Repo struct{ DB *pgxpool.Pool }

// FindByExternalID supports idempotent checkout replays.
func (r *Repo) FindByExternalID(ctx context.Context, externalID string) (orderID string, total decimal.Decimal, found bool, err error) {
	err = r.DB.QueryRow(ctx, `SELECT id, total FROM orders WHERE external_id=$1`, externalID).
		Scan(&orderID, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", decimal.Zero, false, nil
	}
	if err != nil {
		return "", decimal.Zero, false, err
	}
	return orderID, total, true, nil
}

// CreateOrder runs the whole read-check-decrement-insert sequence in one
// transaction. Row locks on products serialize concurrent checkouts; any
// shortfall aborts and nothing is deducted.
func (r *Repo) CreateOrder(ctx context.Context, d *OrderDraft) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := range d.Lines {
		l := &d.Lines[i]

		var stock int
		var allowOOS bool
		err := tx.QueryRow(ctx, `SELECT stock, allow_oos FROM products WHERE id=$1 FOR UPDATE`, l.ProductID).
			Scan(&stock, &allowOOS)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrProductNotFound, l.ProductID)
		}
		if err != nil {
			return err
		}

		// take is what actually leaves inventory; stock never goes negative,
		// a zero-stock-sale product just takes whatever is left.
		take := l.NeedUnits
		if stock < l.NeedUnits {
			if !allowOOS {
				return &InsufficientStockError{ProductID: l.ProductID, Required: l.NeedUnits, Available: stock}
			}
			take = stock
		}

		if take > 0 {
			ct, err := tx.Exec(ctx,
				`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1 AND stock >= $2`,
				l.ProductID, take)
			if err != nil {
				return err
			}
			if ct.RowsAffected() != 1 {
				return &InsufficientStockError{ProductID: l.ProductID, Required: l.NeedUnits, Available: stock}
			}
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO reservations(order_id, product_id, variant_key, qty, unit_count, need_units, units, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,'RESERVED')
			ON CONFLICT (order_id, product_id, variant_key) DO NOTHING`,
			d.ID, l.ProductID, l.VariantKey, l.Qty, l.UnitCount, l.NeedUnits, take); err != nil {
			return err
		}
	}

	t := d.Totals
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, external_id, user_id, status, pay_method, delivery_mode,
		                   ship_address, ship_zip, subtotal, shipping_fee, platform_fee,
		                   tax, bottle_deposit, tip, total, stock_released)
		VALUES ($1,$2,$3,'pending',$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,false)`,
		d.ID, d.ExternalID, d.UserID, d.PayMethod, string(t.Mode),
		d.Shipping.Address, d.Shipping.ZIP, t.Subtotal, t.ShippingFee, t.PlatformFee,
		t.Tax, t.BottleDeposit, t.Tip, t.Total); err != nil {
		return err
	}

	for _, l := range d.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, variant_key, name, image_url, qty, unit_count, unit_price)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			d.ID, l.ProductID, l.VariantKey, l.Name, l.ImageURL, l.Qty, l.UnitCount, l.UnitPrice); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
