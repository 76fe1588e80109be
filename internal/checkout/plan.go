package checkout

import (
	"fmt"

	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/catalog"
	"github.com/shopspring/decimal"
)

type LineInput struct {
	ProductID  string `json:"product_id" validate:"required"`
	VariantKey string `json:"variant_key"`
	Qty        int    `json:"qty" validate:"gt=0"`
}

// Reservation is one planned stock decrement plus the snapshot fields the
// order keeps once catalog prices move on.
type Reservation struct {
	ProductID  string          `json:"product_id"`
	VariantKey string          `json:"variant_key"`
	Name       string          `json:"name"`
	ImageURL   string          `json:"image_url,omitempty"`
	UnitCount  int             `json:"unit_count"`
	Qty        int             `json:"qty"`
	NeedUnits  int             `json:"need_units"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Deposit    decimal.Decimal `json:"-"` // per base unit
	FlashSale  bool            `json:"-"`
}

// BuildPlan resolves variants and stock requirements for every line item.
// Any invalid line rejects the whole cart; the transactional repo re-checks
// stock under row locks, so this pre-check only produces early, friendly
// failures.
func BuildPlan(products map[string]*catalog.Product, items []LineInput) ([]Reservation, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty cart", ErrValidation)
	}

	out := make([]Reservation, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if it.ProductID == "" {
			return nil, fmt.Errorf("%w: missing product id", ErrValidation)
		}
		if it.Qty <= 0 {
			return nil, fmt.Errorf("%w: non-positive quantity for product %s", ErrValidation, it.ProductID)
		}
		p, ok := products[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
		}

		v := p.ResolveVariant(it.VariantKey)

		// duplicate (product, variant) lines fold into one reservation, so
		// every stock decrement has exactly one row to credit back on release
		if i, dup := index[p.ID+"\x00"+v.Key]; dup {
			out[i].Qty += it.Qty
			out[i].NeedUnits += it.Qty * v.UnitCount
			continue
		}

		name := p.Name
		if v.Key != catalog.VariantKeySingle {
			name = fmt.Sprintf("%s (%s)", p.Name, v.Label)
		}
		out = append(out, Reservation{
			ProductID:  p.ID,
			VariantKey: v.Key,
			Name:       name,
			ImageURL:   p.ImageURL,
			UnitCount:  v.UnitCount,
			Qty:        it.Qty,
			NeedUnits:  it.Qty * v.UnitCount,
			UnitPrice:  p.LinePrice(v),
			Deposit:    p.BottleDeposit,
			FlashSale:  p.FlashSale,
		})
		index[p.ID+"\x00"+v.Key] = len(out) - 1
	}

	// stock check runs on the merged totals
	for i := range out {
		r := &out[i]
		if p := products[r.ProductID]; p.Stock < r.NeedUnits && !p.AllowOOS {
			return nil, &InsufficientStockError{ProductID: p.ID, Required: r.NeedUnits, Available: p.Stock}
		}
	}
	return out, nil
}
