package dispatch

import (
	"context"
	"testing"
	"time"

	kafkax "github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/kafka"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePicklist struct {
	added   [][]orders.ItemUnits
	removed [][]orders.ItemUnits
	dates   []time.Time
}

func (f *fakePicklist) AddOrder(_ context.Context, d time.Time, items []orders.ItemUnits) error {
	f.dates = append(f.dates, d)
	f.added = append(f.added, items)
	return nil
}

func (f *fakePicklist) RemoveOrder(_ context.Context, d time.Time, items []orders.ItemUnits) error {
	f.dates = append(f.dates, d)
	f.removed = append(f.removed, items)
	return nil
}

func envelope(eventType string, payload any) kafkago.Message {
	ev := orders.Envelope{
		EventID:      "ev-1",
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload:      kafkax.MustMarshal(payload),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(ev)}
}

func newTestService(pl *fakePicklist) *Service {
	fixed := time.Date(2025, 6, 2, 15, 4, 5, 0, time.UTC)
	return &Service{
		Picklist: pl,
		Logger:   zap.NewNop(),
		Name:     "dispatch-test",
		Now:      func() time.Time { return fixed },
	}
}

func TestHandleOrderCreatedAggregates(t *testing.T) {
	pl := &fakePicklist{}
	svc := newTestService(pl)

	m := envelope(orders.EventOrderCreated, orders.OrderCreatedPayload{
		OrderID: "ord-1",
		Items: []orders.ItemUnits{
			{ProductID: "seltzer", VariantKey: "box12", Qty: 2, Units: 24},
			{ProductID: "oat-milk", VariantKey: "single", Qty: 1, Units: 1},
		},
		Total: decimal.RequireFromString("31.50"),
	})

	require.NoError(t, svc.HandleOrderCreated(context.Background(), m))
	require.Len(t, pl.added, 1)
	assert.Equal(t, 24, pl.added[0][0].Units)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), pl.dates[0])
}

func TestHandleOrderCreatedIgnoresOtherEvents(t *testing.T) {
	pl := &fakePicklist{}
	svc := newTestService(pl)

	m := envelope(orders.EventOrderPaid, orders.OrderPaidPayload{OrderID: "ord-1"})
	require.NoError(t, svc.HandleOrderCreated(context.Background(), m))
	assert.Empty(t, pl.added)
}

func TestHandleOrderCancelledBacksOut(t *testing.T) {
	pl := &fakePicklist{}
	svc := newTestService(pl)

	m := envelope(orders.EventOrderCancelled, orders.OrderCancelledPayload{
		OrderID: "ord-1",
		Items:   []orders.ItemUnits{{ProductID: "seltzer", VariantKey: "box12", Qty: 2, Units: 24}},
	})

	require.NoError(t, svc.HandleOrderCancelled(context.Background(), m))
	require.Len(t, pl.removed, 1)
	assert.Equal(t, "seltzer", pl.removed[0][0].ProductID)
}

func TestHandlersUseStampedRunDate(t *testing.T) {
	pl := &fakePicklist{}
	svc := newTestService(pl) // clock fixed on June 2

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	items := []orders.ItemUnits{{ProductID: "seltzer", VariantKey: "single", Qty: 1, Units: 1}}

	created := envelope(orders.EventOrderCreated, orders.OrderCreatedPayload{
		OrderID: "ord-1", RunDate: day.Add(23 * time.Hour), Items: items,
	})
	require.NoError(t, svc.HandleOrderCreated(context.Background(), created))

	// a cancel consumed after midnight still hits the day the order was added to
	cancelled := envelope(orders.EventOrderCancelled, orders.OrderCancelledPayload{
		OrderID: "ord-1", RunDate: day.Add(23 * time.Hour), Items: items,
	})
	require.NoError(t, svc.HandleOrderCancelled(context.Background(), cancelled))

	require.Len(t, pl.dates, 2)
	assert.Equal(t, day, pl.dates[0])
	assert.Equal(t, day, pl.dates[1])
}

func TestHandleOrderCreatedBadJSON(t *testing.T) {
	svc := newTestService(&fakePicklist{})
	err := svc.HandleOrderCreated(context.Background(), kafkago.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}
