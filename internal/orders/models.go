package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            string          `json:"id"`
	ExternalID    string          `json:"external_id"`
	UserID        string          `json:"user_id"`
	Status        Status          `json:"status"`
	PayMethod     string          `json:"pay_method"`
	PaymentRef    string          `json:"payment_ref,omitempty"`
	DeliveryMode  string          `json:"delivery_mode"`
	ShipAddress   string          `json:"ship_address,omitempty"`
	ShipZIP       string          `json:"ship_zip"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	PlatformFee   decimal.Decimal `json:"platform_fee"`
	Tax           decimal.Decimal `json:"tax"`
	BottleDeposit decimal.Decimal `json:"bottle_deposit"`
	Tip           decimal.Decimal `json:"tip"`
	Total         decimal.Decimal `json:"total"`
	StockReleased bool            `json:"stock_released"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []Item          `json:"items,omitempty"`
}

// Item is the denormalized snapshot taken at checkout; later catalog price
// changes do not touch historical orders.
type Item struct {
	OrderID    string          `json:"order_id"`
	ProductID  string          `json:"product_id"`
	VariantKey string          `json:"variant_key"`
	Name       string          `json:"name"`
	ImageURL   string          `json:"image_url,omitempty"`
	Qty        int             `json:"qty"`
	UnitCount  int             `json:"unit_count"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}
