package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/botstore/internal/catalog"
	"github.com/fjod/botstore/internal/config"
	h "github.com/fjod/botstore/internal/http"
	"github.com/fjod/botstore/internal/invoice"
	"github.com/fjod/botstore/internal/logger"
	"github.com/fjod/botstore/internal/metrics"
	"github.com/fjod/botstore/internal/nowpayments"
	"github.com/fjod/botstore/internal/publisher"
	"github.com/fjod/botstore/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service:   "storefront",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
	})

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otel.SetTextMapPropagator(propagation.TraceContext{})

	repo, err := catalog.NewRepository(cfg.CatalogDSN)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("catalog migrations completed", "dsn", cfg.CatalogDSN)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = redisClient.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	var pub publisher.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		pub = publisher.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		log.Info("publishing payment events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		pub = publisher.NewLogPublisher(log)
		log.Warn("KAFKA_BROKERS not set, payment events are only logged")
	}
	defer pub.Close()

	if cfg.NOWPaymentsAPIKey == "" || cfg.SiteURL == "" {
		log.Warn("NOWPAYMENTS_API_KEY or SITE_URL not set, invoice requests will fail")
	}
	provider := nowpayments.NewClient(cfg.NOWPaymentsAPIURL, cfg.NOWPaymentsAPIKey, nowpayments.WithClientLogger(log))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := h.NewRouter(h.Deps{
		Catalog:   repo,
		Carts:     storage.NewRedisStorage(redisClient, cfg.CartTTL),
		Invoices:  invoice.NewService(provider, cfg.SiteURL, log),
		Publisher: pub,
		IPNSecret: cfg.NOWPaymentsIPNSecret,

		Metrics:  metrics.NewServerMetrics(reg, "storefront"),
		Gatherer: reg,
		Limiter:  h.NewClientLimiter(rate.Limit(float64(cfg.InvoiceRatePerMin)/60), cfg.InvoiceBurst, time.Hour),
		Log:      log,

		CartTTL:            cfg.CartTTL,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           otelhttp.NewHandler(router, "storefront"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("storefront starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info("server exited")
	return err
}
