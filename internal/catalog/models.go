package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariantKeySingle is the implicit single-unit packaging every product has,
// whether or not the catalog configures explicit variants.
const VariantKeySingle = "single"

// Variant is a purchasable packaging option: one base unit, or a pack that
// consumes UnitCount base units of inventory per purchased quantity.
type Variant struct {
	Key       string          `json:"key"`
	Label     string          `json:"label"`
	UnitCount int             `json:"unit_count"`
	Price     decimal.Decimal `json:"price"` // zero means inherit the product price
	Enabled   bool            `json:"enabled"`
}

type Product struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	ImageURL      string          `json:"image_url,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	AllowOOS      bool            `json:"allow_oos"` // sale permitted at zero stock
	FlashSale     bool            `json:"flash_sale"`
	BottleDeposit decimal.Decimal `json:"bottle_deposit"` // per base unit
	Variants      []Variant       `json:"variants,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ResolveVariant returns the variant for key, falling back to the implicit
// single-unit variant when the key is empty, unknown or disabled.
func (p *Product) ResolveVariant(key string) Variant {
	if key != "" && key != VariantKeySingle {
		for _, v := range p.Variants {
			if v.Key == key && v.Enabled {
				return v
			}
		}
	}
	return Variant{Key: VariantKeySingle, Label: p.Name, UnitCount: 1, Enabled: true}
}

// LinePrice is the unit price charged for the variant: the variant override
// when set, else the product price.
func (p *Product) LinePrice(v Variant) decimal.Decimal {
	if v.Price.IsPositive() {
		return v.Price
	}
	return p.Price
}
