package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/catalog"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/checkout"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/config"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/httpx"
	kafkax "github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/kafka"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/orders"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/postgres"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/redisx"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/wallet"
	"github.com/nyfreshbuy/freshbuy-v0.1-sub000/internal/zones"
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

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pPaid := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPaid, 1024)
	pPaid.Start(ctx)
	pCancelled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024)
	pCancelled.Start(ctx)

	// Repos
	catalogRepo := &catalog.Repo{DB: db}
	checkoutRepo := &checkout.Repo{DB: db}
	ordersRepo := &orders.Repo{DB: db, Wallet: &wallet.Repo{DB: db}}

	// Delivery areas are admin-curated and small; load once at boot
	zoneList, err := (&zones.Repo{DB: db}).Load(ctx)
	if err != nil {
		log.Fatalf("load zones: %v", err)
	}
	var matcher checkout.AreaMatcher
	if len(zoneList) > 0 {
		matcher = zones.NewMatcher(zoneList)
	}

	svc := &checkout.Service{
		Products: catalogRepo,
		Orders:   checkoutRepo,
		Payments: ordersRepo,
		Zones:    matcher,
		Pricing:  cfg.Pricing,
		Logger:   logger,
	}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Checkout:     svc,
		Orders:       ordersRepo,
		Catalog:      catalogRepo,
		Redis:        rdb,
		PubCreated:   pCreated,
		PubPaid:      pPaid,
		PubCancelled: pCancelled,
		Service:      cfg.ServiceName,
		Logger:       logger,
		Validate:     validator.New(),
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{pCreated, pPaid, pCancelled} {
		p.Close()
	}
	cancel()
	for _, p := range []*kafkax.Producer{pCreated, pPaid, pCancelled} {
		p.WaitClosed()
	}
}
