package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mycafe-pos/api/internal/cache"
	"github.com/mycafe-pos/api/internal/config"
	"github.com/mycafe-pos/api/internal/database"
	"github.com/mycafe-pos/api/internal/events"
	"github.com/mycafe-pos/api/internal/router"
	"github.com/mycafe-pos/api/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	queries := database.New(pool)

	// Redis (KPI cache)
	kpiCache := cache.New(cfg.RedisAddr)
	defer kpiCache.Close()
	if err := kpiCache.Ping(ctx); err != nil {
		log.Printf("WARNING: redis unreachable, dashboard cache disabled: %v", err)
	}

	// Kafka producer
	producer := events.NewProducer(cfg.KafkaBrokers, 1024)
	producer.Start(ctx)

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, queries, pool, hub, kpiCache, producer)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Printf("HTTP listening at :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: server shutdown: %v", err)
	}

	cancel()              // stop the producer loop
	producer.WaitClosed() // flush queued events
}
