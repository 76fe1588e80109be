package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderPaid      = "OrderPaid"
	EventOrderCancelled = "OrderCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// RunDate maps an order timestamp onto its delivery-run day. Consumers use
// the payload's run date rather than their own clock, so an event handled
// after midnight still lands on the day the order belongs to.
func RunDate(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// ItemUnits carries what a line consumed in base inventory units; the
// dispatch picklist aggregates over Units.
type ItemUnits struct {
	ProductID  string `json:"product_id"`
	VariantKey string `json:"variant_key"`
	Qty        int    `json:"qty"`
	Units      int    `json:"units"`
}

type OrderCreatedPayload struct {
	OrderID    string          `json:"order_id"`
	ExternalID string          `json:"external_id"`
	UserID     string          `json:"user_id"`
	ShipZIP    string          `json:"ship_zip"`
	Mode       string          `json:"delivery_mode"`
	RunDate    time.Time       `json:"run_date"`
	Items      []ItemUnits     `json:"items"`
	Total      decimal.Decimal `json:"total"`
}

type OrderPaidPayload struct {
	OrderID    string          `json:"order_id"`
	PayMethod  string          `json:"pay_method"`
	PaymentRef string          `json:"payment_ref,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
}

type OrderCancelledPayload struct {
	OrderID string      `json:"order_id"`
	RunDate time.Time   `json:"run_date"`
	Items   []ItemUnits `json:"items"`
}
