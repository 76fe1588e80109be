package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/catalog"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/config"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/orders"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/wallet"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/zones"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Request struct {
	ExternalID string
	UserID     string
	Items      []LineInput
	Shipping   Shipping
	PayMethod  string
	Tip        decimal.Decimal
}

type Result struct {
	OrderID      string
	Totals       Totals
	Lines        []Reservation
	Paid         bool
	ClientSecret string
	Idempotent   bool
}

type ProductFinder interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*catalog.Product, error)
}

type OrderWriter interface {
	FindByExternalID(ctx context.Context, externalID string) (string, decimal.Decimal, bool, error)
	CreateOrder(ctx context.Context, d *OrderDraft) error
}

// Payments covers the wallet path and the failure compensation; the card
// gateway itself lives behind the webhook endpoint, not here.
type Payments interface {
	MarkPaidWallet(ctx context.Context, orderID string) error
	Cancel(ctx context.Context, orderID string) ([]orders.ItemUnits, error)
}

type AreaMatcher interface {
	Match(zip string, lat, lng float64) (*zones.Zone, bool)
}

// Service is the checkout sequencer: validate, match the delivery area,
// plan the reservation, price the cart, persist order + stock decrement in
// one transaction, then settle wallet payments.
type Service struct {
	Products ProductFinder
	Orders   OrderWriter
	Payments Payments
	Zones    AreaMatcher
	Pricing  config.Pricing
	Logger   *zap.Logger
}

func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	if req.ExternalID == "" || req.UserID == "" {
		return nil, fmt.Errorf("%w: missing external_id or user_id", ErrValidation)
	}
	switch req.PayMethod {
	case "", "wallet", "stripe":
	default:
		return nil, fmt.Errorf("%w: unknown pay method %q", ErrValidation, req.PayMethod)
	}

	if s.Zones != nil {
		if _, ok := s.Zones.Match(req.Shipping.ZIP, req.Shipping.Lat, req.Shipping.Lng); !ok {
			return nil, ErrOutsideDeliveryArea
		}
	}

	// idempotent replay: same external id returns the existing order
	if id, total, found, err := s.Orders.FindByExternalID(ctx, req.ExternalID); err != nil {
		return nil, err
	} else if found {
		return &Result{OrderID: id, Totals: Totals{Total: total}, Idempotent: true}, nil
	}

	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID != "" {
			ids = append(ids, it.ProductID)
		}
	}
	products, err := s.Products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	plan, err := BuildPlan(products, req.Items)
	if err != nil {
		return nil, err
	}

	mode := SelectMode(req.Shipping.Mode, plan)
	totals := ComputeTotals(plan, mode, req.Tip, s.Pricing)

	draft := &OrderDraft{
		ID:         uuid.NewString(),
		ExternalID: req.ExternalID,
		UserID:     req.UserID,
		Lines:      plan,
		Totals:     totals,
		PayMethod:  req.PayMethod,
		Shipping:   req.Shipping,
	}
	draft.Shipping.Mode = mode

	if err := s.Orders.CreateOrder(ctx, draft); err != nil {
		return nil, err
	}

	res := &Result{OrderID: draft.ID, Totals: totals, Lines: plan}

	switch req.PayMethod {
	case "wallet":
		if err := s.Payments.MarkPaidWallet(ctx, draft.ID); err != nil {
			if errors.Is(err, wallet.ErrInsufficientFunds) {
				// payment failed after reservation: cancel releases the stock
				if _, cerr := s.Payments.Cancel(ctx, draft.ID); cerr != nil {
					s.Logger.Error("release after failed wallet debit",
						zap.String("order_id", draft.ID), zap.Error(cerr))
				}
			}
			return nil, err
		}
		res.Paid = true
	default:
		// card payments confirm later via the gateway webhook; the secret is
		// an opaque handle for the client-side confirmation step
		res.ClientSecret = "cs_" + uuid.NewString()
	}

	s.Logger.Info("checkout complete",
		zap.String("order_id", draft.ID),
		zap.String("user_id", req.UserID),
		zap.String("mode", string(mode)),
		zap.String("total", totals.Total.StringFixed(2)),
		zap.Bool("paid", res.Paid))
	return res, nil
}
