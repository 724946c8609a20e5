package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/topolina/flipbook-orders/internal/catalog"
	"github.com/topolina/flipbook-orders/internal/config"
	"github.com/topolina/flipbook-orders/internal/httpx"
	kafkax "github.com/topolina/flipbook-orders/internal/kafka"
	"github.com/topolina/flipbook-orders/internal/orders"
	"github.com/topolina/flipbook-orders/internal/postgres"
	"github.com/topolina/flipbook-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	placed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	rejected := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderRejected, 1024)
	updated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderUpdated, 1024)
	producers := []*kafkax.Producer{placed, rejected, updated}
	for _, p := range producers {
		p.Start(ctx)
	}

	orderRepo := &orders.Repo{DB: db}
	orderSvc := &orders.Service{
		DB:          db,
		Repo:        orderRepo,
		IDs:         &orders.IDGenerator{},
		Placed:      placed,
		Rejected:    rejected,
		Updated:     updated,
		ServiceName: cfg.ServiceName,
		LockTimeout: cfg.LockTimeout,
		StrictLines: cfg.StrictOrderLines,
	}
	catalogSvc := &catalog.Service{
		Repo:  &catalog.Repo{DB: db},
		Cache: &catalog.Cache{Redis: rdb, TTL: cfg.CatalogCacheTTL},
	}

	router := httpx.NewRouter(cfg.OrderTimeout)
	admin := &httpx.Admin{Password: cfg.AdminPassword}
	admin.Register(router)
	(&httpx.OrdersHandler{
		Orders:  orderSvc,
		Status:  &orders.StatusCache{Redis: rdb, TTL: redisx.TTLStatusCache},
		Redis:   rdb,
		Timeout: cfg.OrderTimeout,
	}).Register(router, admin.Require)
	(&httpx.CatalogHandler{Catalog: catalogSvc}).Register(router, admin.Require)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

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

	// in-flight submissions run on their own deadline, so give them that long
	ctx2, cancel2 := context.WithTimeout(context.Background(), cfg.OrderTimeout+time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close()
	}
	for _, p := range producers {
		p.WaitClosed()
	}
}
