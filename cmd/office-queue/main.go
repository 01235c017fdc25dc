package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"office-queue/internal/board"
	"office-queue/internal/config"
	"office-queue/internal/dispatch"
	"office-queue/internal/httpapi"
	"office-queue/internal/store/postgres"
	"office-queue/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()

	shutdownTelemetry := telemetry.Setup(telemetry.Config{
		ServiceName: "office-queue",
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if cfg.MigrationsDir != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := postgres.ApplyMigrations(ctx, pool, cfg.MigrationsDir)
		cancel()
		if err != nil {
			log.Fatalf("migrations: %v", err)
		}
	}

	store := postgres.NewStore(pool)
	hub := board.NewHub(cfg.BoardRecentLimit)
	engine := dispatch.New(store, hub)
	aggregator := board.NewAggregator(store, cfg.BoardRecentLimit)

	handler := httpapi.NewHandler(store, engine, aggregator, httpapi.NewStreamHandler(hub))
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		PerMinute: cfg.RateLimitPerMinute,
		Burst:     cfg.RateLimitBurst,
	})

	routes := limiter.Middleware(httpapi.LoggingMiddleware(handler.Routes()))
	otelHandler := otelhttp.NewHandler(routes, "office-queue")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("office-queue listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
