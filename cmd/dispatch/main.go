package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/config"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/dispatch"
	kafkax "github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/kafka"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/orders"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/postgres"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := config.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &dispatch.Service{
		Picklist: &dispatch.PicklistRepo{DB: db},
		Redis:    rdb,
		Logger:   logger,
		Name:     cfg.ServiceName + "-dispatch",
	}

	group := getenv("DISPATCH_GROUP", "dispatch-svc")
	workers := mustAtoi(os.Getenv("DISPATCH_WORKERS"), "4")

	created := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderCreated, workers)
	cancelled := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderCancelled, workers)

	go func() {
		log.Printf("dispatch consumer started: group=%s topic=%s workers=%d", group, orders.TopicOrderCreated, workers)
		if err := created.Start(ctx, svc.HandleOrderCreated); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()
	go func() {
		log.Printf("dispatch consumer started: group=%s topic=%s workers=%d", group, orders.TopicOrderCancelled, workers)
		if err := cancelled.Start(ctx, svc.HandleOrderCancelled); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumers...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
