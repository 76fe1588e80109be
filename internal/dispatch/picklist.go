package dispatch

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/orders"
)

// PicklistLine is one aggregated row of the shoppers' pick sheet: total base
// units of a product to pull for a run date.
type PicklistLine struct {
	RunDate   time.Time `json:"run_date"`
	ProductID string    `json:"product_id"`
	Units     int       `json:"units"`
	Orders    int       `json:"orders"`
}

type PicklistRepo struct{ DB *pgxpool.Pool }

// AddOrder folds an order's lines into the given run date's picklist.
func (r *PicklistRepo) AddOrder(ctx context.Context, runDate time.Time, items []orders.ItemUnits) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, it := range items {
		if it.Units <= 0 {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO picklist_items(run_date, product_id, units, orders)
			VALUES ($1, $2, $3, 1)
			ON CONFLICT (run_date, product_id) DO UPDATE
			SET units  = picklist_items.units + EXCLUDED.units,
			    orders = picklist_items.orders + 1`,
			runDate, it.ProductID, it.Units); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// RemoveOrder backs a cancelled order's lines out again. Units never go
// negative even if the add event was lost.
func (r *PicklistRepo) RemoveOrder(ctx context.Context, runDate time.Time, items []orders.ItemUnits) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, it := range items {
		if it.Units <= 0 {
			continue
		}
		if _, err := tx.Exec(ctx, `
			UPDATE picklist_items
			SET units = GREATEST(units - $3, 0), orders = GREATEST(orders - 1, 0)
			WHERE run_date = $1 AND product_id = $2`,
			runDate, it.ProductID, it.Units); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PicklistRepo) ForDate(ctx context.Context, runDate time.Time) ([]PicklistLine, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT run_date, product_id, units, orders
		FROM picklist_items WHERE run_date=$1 AND units > 0
		ORDER BY product_id`, runDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PicklistLine
	for rows.Next() {
		var l PicklistLine
		if err := rows.Scan(&l.RunDate, &l.ProductID, &l.Units, &l.Orders); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
