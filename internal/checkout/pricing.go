package checkout

import (
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/config"
	"github.com/shopspring/decimal"
)

type DeliveryMode string

const (
	// ModeNextDay is the flat-fee scheduled delivery.
	ModeNextDay DeliveryMode = "next_day"
	// ModeAreaGroup batches orders per delivery area; free above the
	// configured minimum spend.
	ModeAreaGroup DeliveryMode = "area_group"
	// ModeFlash is forced (and free) when the cart is flash-sale items only.
	ModeFlash DeliveryMode = "flash"
)

type Totals struct {
	Mode          DeliveryMode    `json:"mode"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	PlatformFee   decimal.Decimal `json:"platform_fee"`
	Tax           decimal.Decimal `json:"tax"`
	BottleDeposit decimal.Decimal `json:"bottle_deposit"`
	Tip           decimal.Decimal `json:"tip"`
	Total         decimal.Decimal `json:"total"`
}

func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// SelectMode picks the effective delivery mode. A cart of flash-sale items
// only always ships in flash mode; otherwise an explicit next_day request is
// honored and everything else rides the area-group batch.
func SelectMode(requested DeliveryMode, lines []Reservation) DeliveryMode {
	allFlash := len(lines) > 0
	for _, l := range lines {
		if !l.FlashSale {
			allFlash = false
			break
		}
	}
	if allFlash {
		return ModeFlash
	}
	if requested == ModeNextDay {
		return ModeNextDay
	}
	return ModeAreaGroup
}

func shippingFee(mode DeliveryMode, subtotal decimal.Decimal, cfg config.Pricing) decimal.Decimal {
	switch mode {
	case ModeFlash:
		return decimal.Zero
	case ModeAreaGroup:
		if subtotal.GreaterThanOrEqual(cfg.AreaGroupMinSpend) {
			return decimal.Zero
		}
		return cfg.NextDayFee
	default:
		return cfg.NextDayFee
	}
}

// ComputeTotals is pure: line items plus injected fee constants in, money
// out. Every accumulation step rounds to cents so repeated fractional rates
// cannot drift.
func ComputeTotals(lines []Reservation, mode DeliveryMode, tip decimal.Decimal, cfg config.Pricing) Totals {
	subtotal := decimal.Zero
	deposit := decimal.Zero
	for _, l := range lines {
		subtotal = round2(subtotal.Add(round2(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty))))))
		deposit = round2(deposit.Add(round2(l.Deposit.Mul(decimal.NewFromInt(int64(l.NeedUnits))))))
	}

	if tip.IsNegative() {
		tip = decimal.Zero
	}
	tip = round2(tip)

	t := Totals{
		Mode:          mode,
		Subtotal:      subtotal,
		ShippingFee:   shippingFee(mode, subtotal, cfg),
		PlatformFee:   round2(cfg.PlatformFeeBase.Add(subtotal.Mul(cfg.PlatformFeeRate))),
		Tax:           round2(subtotal.Mul(cfg.TaxRate)),
		BottleDeposit: deposit,
		Tip:           tip,
	}
	t.Total = round2(t.Subtotal.
		Add(t.ShippingFee).
		Add(t.PlatformFee).
		Add(t.Tax).
		Add(t.BottleDeposit).
		Add(t.Tip))
	return t
}
