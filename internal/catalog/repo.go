package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// FindByIDs loads products with their variants, keyed by id. Missing ids are
// simply absent from the map; the caller decides whether that is an error.
func (r *Repo) FindByIDs(ctx context.Context, ids []string) (map[string]*Product, error) {
	if len(ids) == 0 {
		return map[string]*Product{}, nil
	}

	params := ""
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, sku, name, COALESCE(image_url,''), price, stock,
		       allow_oos, flash_sale, bottle_deposit, created_at, updated_at
		FROM products WHERE id IN (`+params+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]*Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.ImageURL, &p.Price, &p.Stock,
			&p.AllowOOS, &p.FlashSale, &p.BottleDeposit, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vrows, err := r.DB.Query(ctx, `
		SELECT product_id, key, label, unit_count, COALESCE(price, 0), enabled
		FROM product_variants WHERE product_id IN (`+params+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()

	for vrows.Next() {
		var pid string
		var v Variant
		if err := vrows.Scan(&pid, &v.Key, &v.Label, &v.UnitCount, &v.Price, &v.Enabled); err != nil {
			return nil, err
		}
		if p, ok := out[pid]; ok {
			p.Variants = append(p.Variants, v)
		}
	}
	return out, vrows.Err()
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, sku, name, COALESCE(image_url,''), price, stock,
		       allow_oos, flash_sale, bottle_deposit, created_at, updated_at
		FROM products ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.ImageURL, &p.Price, &p.Stock,
			&p.AllowOOS, &p.FlashSale, &p.BottleDeposit, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
