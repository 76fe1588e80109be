package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkax "github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/kafka"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/orders"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Picklister keeps the service testable without postgres.
type Picklister interface {
	AddOrder(ctx context.Context, runDate time.Time, items []orders.ItemUnits) error
	RemoveOrder(ctx context.Context, runDate time.Time, items []orders.ItemUnits) error
}

// Service consumes post-commit order facts and maintains the daily picklist.
// Checkout correctness never depends on this path.
type Service struct {
	Picklist Picklister
	Redis    *redis.Client
	Logger   *zap.Logger
	Name     string

	// Now is swappable in tests; nil means time.Now.
	Now func() time.Time
}

// eventRunDate prefers the run date the producer stamped on the payload; a
// cancel consumed after midnight must back out of the day the order was
// added to, not the consumer's current day. Zero means an event from before
// run dates were stamped; only then does the local clock decide.
func (s *Service) eventRunDate(stamped time.Time) time.Time {
	if !stamped.IsZero() {
		return orders.RunDate(stamped)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return orders.RunDate(now())
}

func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	env, done, err := s.decode(ctx, m, orders.EventOrderCreated)
	if err != nil || done {
		return err
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	if err := s.Picklist.AddOrder(ctx, s.eventRunDate(p.RunDate), p.Items); err != nil {
		return err
	}
	s.Logger.Info("picklist add",
		zap.String("order_id", p.OrderID), zap.Int("lines", len(p.Items)))
	return nil
}

func (s *Service) HandleOrderCancelled(ctx context.Context, m kafkago.Message) error {
	env, done, err := s.decode(ctx, m, orders.EventOrderCancelled)
	if err != nil || done {
		return err
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCancelledPayload](env.Payload)
	if err != nil {
		return err
	}

	if err := s.Picklist.RemoveOrder(ctx, s.eventRunDate(p.RunDate), p.Items); err != nil {
		return err
	}
	s.Logger.Info("picklist remove",
		zap.String("order_id", p.OrderID), zap.Int("lines", len(p.Items)))
	return nil
}

// decode unwraps the envelope and applies redis event dedup. done=true means
// the message should be committed without further processing.
func (s *Service) decode(ctx context.Context, m kafkago.Message, wantType string) (orders.Envelope, bool, error) {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return env, false, err
	}
	if env.EventType != wantType {
		return env, true, nil
	}

	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, s.Name, env.EventID)
		exists, _ := redisx.Exists(ctx, s.Redis, dkey)
		if exists {
			return env, true, nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	return env, false, nil
}
