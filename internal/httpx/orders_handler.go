package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/catalog"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/checkout"
	kafkax "github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/kafka"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/orders"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/redisx"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/wallet"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CheckoutReq struct {
	ExternalID string               `json:"external_id" validate:"required"`
	UserID     string               `json:"user_id" validate:"required"`
	Items      []checkout.LineInput `json:"items" validate:"required,min=1,dive"`
	Shipping   checkout.Shipping    `json:"shipping"`
	PayMethod  string               `json:"pay_method" validate:"omitempty,oneof=wallet stripe"`
	TipAmount  decimal.Decimal      `json:"tip_amount"`
}

type CheckoutResp struct {
	OrderID      string          `json:"order_id"`
	Total        decimal.Decimal `json:"total"`
	Paid         bool            `json:"paid"`
	ClientSecret string          `json:"client_secret,omitempty"`
	Idempotent   bool            `json:"idempotent"`
}

type PayReq struct {
	Method     string `json:"method" validate:"required,oneof=wallet stripe"`
	PaymentRef string `json:"payment_ref"`
}

// CheckoutRunner is checkout.Service behind an interface for handler tests.
type CheckoutRunner interface {
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

// OrderStore is the slice of orders.Repo the handlers use.
type OrderStore interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
	GetStatus(ctx context.Context, id string) (orders.Status, error)
	MarkPaid(ctx context.Context, id, payMethod, paymentRef string) error
	MarkPaidWallet(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) ([]orders.ItemUnits, error)
}

// Cache is satisfied by *redis.Client.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type OrdersHandler struct {
	Checkout     CheckoutRunner
	Orders       OrderStore
	Catalog      *catalog.Repo
	Redis        Cache
	PubCreated   *kafkax.Producer
	PubPaid      *kafkax.Producer
	PubCancelled *kafkax.Producer
	Service      string
	Logger       *zap.Logger
	Validate     *validator.Validate
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/api/orders/checkout", h.checkout)
	r.Post("/api/orders/{id}/pay", h.pay)
	r.Post("/api/orders/{id}/cancel", h.cancel)
	r.Get("/api/orders/{id}", h.getOrder)
	r.Get("/api/products", h.listProducts)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var stockErr *checkout.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      stockErr.Error(),
			"product_id": stockErr.ProductID,
			"required":   stockErr.Required,
			"available":  stockErr.Available,
		})
	case errors.Is(err, checkout.ErrValidation), errors.Is(err, checkout.ErrOutsideDeliveryArea):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, checkout.ErrProductNotFound), errors.Is(err, orders.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, wallet.ErrInsufficientFunds):
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// replay fast path: the idem key points at the already-created order;
	// FindByExternalID inside the service stays the fallback truth
	idemKey := fmt.Sprintf(redisx.KeyIdemCheckout, req.ExternalID)
	if id, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && id != "" {
		if o, oerr := h.Orders.Get(ctx, id); oerr == nil {
			writeJSON(w, http.StatusOK, CheckoutResp{
				OrderID:    id,
				Total:      o.Total,
				Paid:       o.Status == orders.StatusPaid,
				Idempotent: true,
			})
			return
		}
	}

	res, err := h.Checkout.Checkout(ctx, checkout.Request{
		ExternalID: req.ExternalID,
		UserID:     req.UserID,
		Items:      req.Items,
		Shipping:   req.Shipping,
		PayMethod:  req.PayMethod,
		Tip:        req.TipAmount,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := CheckoutResp{
		OrderID:      res.OrderID,
		Total:        res.Totals.Total,
		Paid:         res.Paid,
		ClientSecret: res.ClientSecret,
		Idempotent:   res.Idempotent,
	}
	if res.Idempotent {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	_ = h.Redis.Set(ctx, idemKey, res.OrderID, redisx.TTLIdempotency).Err()
	h.cacheStatus(ctx, res.OrderID, orders.StatusPending)

	items := make([]orders.ItemUnits, 0, len(res.Lines))
	for _, l := range res.Lines {
		items = append(items, orders.ItemUnits{
			ProductID:  l.ProductID,
			VariantKey: l.VariantKey,
			Qty:        l.Qty,
			Units:      l.NeedUnits,
		})
	}
	h.publish(h.PubCreated, r, orders.EventOrderCreated, res.OrderID, orders.OrderCreatedPayload{
		OrderID:    res.OrderID,
		ExternalID: req.ExternalID,
		UserID:     req.UserID,
		ShipZIP:    req.Shipping.ZIP,
		Mode:       string(res.Totals.Mode),
		RunDate:    orders.RunDate(time.Now()),
		Items:      items,
		Total:      res.Totals.Total,
	})

	if res.Paid {
		h.cacheStatus(ctx, res.OrderID, orders.StatusPaid)
		h.publish(h.PubPaid, r, orders.EventOrderPaid, res.OrderID, orders.OrderPaidPayload{
			OrderID:   res.OrderID,
			PayMethod: "wallet",
			Amount:    res.Totals.Total,
		})
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *OrdersHandler) pay(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req PayReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var err error
	if req.Method == "wallet" {
		err = h.Orders.MarkPaidWallet(ctx, orderID)
	} else {
		err = h.Orders.MarkPaid(ctx, orderID, req.Method, req.PaymentRef)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	o, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(ctx, orderID, orders.StatusPaid)
	h.publish(h.PubPaid, r, orders.EventOrderPaid, orderID, orders.OrderPaidPayload{
		OrderID:    orderID,
		PayMethod:  req.Method,
		PaymentRef: req.PaymentRef,
		Amount:     o.Total,
	})

	writeJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "status": orders.StatusPaid})
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.Orders.Cancel(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	// the picklist entry lives under the order's creation day
	runDate := orders.RunDate(time.Now())
	if o, err := h.Orders.Get(ctx, orderID); err == nil {
		runDate = orders.RunDate(o.CreatedAt)
	}

	h.cacheStatus(ctx, orderID, orders.StatusCancelled)
	h.publish(h.PubCancelled, r, orders.EventOrderCancelled, orderID, orders.OrderCancelledPayload{
		OrderID: orderID,
		RunDate: runDate,
		Items:   items,
	})

	writeJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "status": orders.StatusCancelled})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// ?view=status is the lightweight polling view: cache first, DB fallback,
	// always the {"status": ...} shape. The default view is always the full
	// order document.
	if r.URL.Query().Get("view") == "status" {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
		s, err := h.Orders.GetStatus(ctx, orderID)
		if err != nil {
			writeError(w, err)
			return
		}
		h.cacheStatus(ctx, orderID, s)
		writeJSON(w, http.StatusOK, map[string]orders.Status{"status": s})
		return
	}

	o, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, orderID, o.Status)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.List(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID string, s orders.Status) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = h.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, s), redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) publish(p *kafkax.Producer, r *http.Request, eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
