package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/topolina/flipbook-orders/internal/catalog"
	"github.com/topolina/flipbook-orders/internal/config"
	kafkax "github.com/topolina/flipbook-orders/internal/kafka"
	"github.com/topolina/flipbook-orders/internal/orders"
	"github.com/topolina/flipbook-orders/internal/redisx"
	"github.com/topolina/flipbook-orders/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &worker.Service{
		Redis:       rdb,
		Status:      &orders.StatusCache{Redis: rdb, TTL: redisx.TTLStatusCache},
		Catalog:     &catalog.Cache{Redis: rdb, TTL: cfg.CatalogCacheTTL},
		ServiceName: cfg.ServiceName + "-worker",
	}

	var wg sync.WaitGroup
	for _, topic := range []string{orders.TopicOrderPlaced, orders.TopicOrderUpdated} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup, topic, cfg.WorkerCount)
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			log.Printf("consumer started: group=%s topic=%s workers=%d", cfg.WorkerGroup, topic, cfg.WorkerCount)
			if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
				log.Printf("consumer %s exit: %v", topic, err)
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Println("shutting down consumers...")
	case <-ctx.Done():
	}
	cancel()
	wg.Wait()
}
