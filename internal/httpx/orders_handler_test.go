package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/checkout"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/orders"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/redisx"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/wallet"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCache struct {
	vals map[string]string
	set  map[string]string
}

func (f *fakeCache) Get(_ context.Context, key string) *redis.StringCmd {
	if v, ok := f.vals[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if f.set == nil {
		f.set = map[string]string{}
	}
	f.set[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

type fakeStore struct {
	order  *orders.Order
	status orders.Status
}

func (f *fakeStore) Get(_ context.Context, id string) (*orders.Order, error) {
	if f.order != nil && f.order.ID == id {
		return f.order, nil
	}
	return nil, orders.ErrOrderNotFound
}

func (f *fakeStore) GetStatus(_ context.Context, _ string) (orders.Status, error) {
	if f.status == "" {
		return "", orders.ErrOrderNotFound
	}
	return f.status, nil
}

func (f *fakeStore) MarkPaid(_ context.Context, _, _, _ string) error   { return nil }
func (f *fakeStore) MarkPaidWallet(_ context.Context, _ string) error   { return nil }
func (f *fakeStore) Cancel(_ context.Context, _ string) ([]orders.ItemUnits, error) {
	return nil, nil
}

type fakeRunner struct {
	calls int
	res   *checkout.Result
	err   error
}

func (f *fakeRunner) Checkout(_ context.Context, _ checkout.Request) (*checkout.Result, error) {
	f.calls++
	return f.res, f.err
}

func newHandler(runner CheckoutRunner, store OrderStore, cache Cache) *chi.Mux {
	h := &OrdersHandler{
		Checkout: runner,
		Orders:   store,
		Redis:    cache,
		Service:  "test",
		Logger:   zap.NewNop(),
		Validate: validator.New(),
	}
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func checkoutBody() *bytes.Buffer {
	return bytes.NewBufferString(`{
		"external_id": "ext-1",
		"user_id": "u-1",
		"items": [{"product_id": "seltzer", "qty": 1}],
		"shipping": {"zip": "11201"}
	}`)
}

func TestCheckoutRedisFastPath(t *testing.T) {
	runner := &fakeRunner{}
	store := &fakeStore{order: &orders.Order{
		ID: "ord-9", Status: orders.StatusPaid, Total: decimal.RequireFromString("12.34"),
	}}
	cache := &fakeCache{vals: map[string]string{
		fmt.Sprintf(redisx.KeyIdemCheckout, "ext-1"): "ord-9",
	}}
	router := newHandler(runner, store, cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders/checkout", checkoutBody()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"order_id":"ord-9"`)
	assert.Contains(t, rec.Body.String(), `"idempotent":true`)
	assert.Contains(t, rec.Body.String(), `"paid":true`)
	assert.Zero(t, runner.calls, "a replay hit must not run checkout again")
}

func TestCheckoutFastPathMissRunsCheckout(t *testing.T) {
	runner := &fakeRunner{res: &checkout.Result{
		OrderID: "ord-1",
		Totals:  checkout.Totals{Mode: checkout.ModeAreaGroup, Total: decimal.RequireFromString("9.99")},
	}}
	cache := &fakeCache{}
	router := newHandler(runner, &fakeStore{}, cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders/checkout", checkoutBody()))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, "ord-1", cache.set[fmt.Sprintf(redisx.KeyIdemCheckout, "ext-1")])
}

func TestGetOrderStatusView(t *testing.T) {
	store := &fakeStore{status: orders.StatusPending}
	cache := &fakeCache{vals: map[string]string{
		fmt.Sprintf(redisx.KeyOrderStatus, "ord-1"): `{"status":"paid"}`,
	}}
	router := newHandler(&fakeRunner{}, store, cache)

	// cache hit serves the cached status shape
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/ord-1?view=status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"paid"}`, rec.Body.String())

	// cache miss falls back to the DB and returns the same shape
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/ord-2?view=status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"pending"}`, rec.Body.String())
}

func TestGetOrderDefaultViewIsFullDocument(t *testing.T) {
	store := &fakeStore{order: &orders.Order{
		ID: "ord-1", ExternalID: "ext-1", Status: orders.StatusPaid,
		Total: decimal.RequireFromString("12.34"),
	}}
	// a populated status cache must not change the default response shape
	cache := &fakeCache{vals: map[string]string{
		fmt.Sprintf(redisx.KeyOrderStatus, "ord-1"): `{"status":"paid"}`,
	}}
	router := newHandler(&fakeRunner{}, store, cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/ord-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"external_id":"ext-1"`)
	assert.Contains(t, rec.Body.String(), `"status":"paid"`)
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", fmt.Errorf("%w: empty cart", checkout.ErrValidation), http.StatusBadRequest},
		{"outside area", checkout.ErrOutsideDeliveryArea, http.StatusBadRequest},
		{"product missing", fmt.Errorf("%w: p1", checkout.ErrProductNotFound), http.StatusNotFound},
		{"order missing", orders.ErrOrderNotFound, http.StatusNotFound},
		{"state conflict", orders.ErrConflict, http.StatusConflict},
		{"stock", &checkout.InsufficientStockError{ProductID: "p1", Required: 6, Available: 5}, http.StatusConflict},
		{"wallet", wallet.ErrInsufficientFunds, http.StatusPaymentRequired},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWriteErrorStockDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, &checkout.InsufficientStockError{ProductID: "seltzer", Required: 6, Available: 5})

	body := rec.Body.String()
	assert.Contains(t, body, `"product_id":"seltzer"`)
	assert.Contains(t, body, `"required":6`)
	assert.Contains(t, body, `"available":5`)
}
