package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/idempotency"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("storefront stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, closePool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePool()

	hub := notify.NewHub()
	defer hub.Close()

	notifier, closeTransports, err := buildNotifier(cfg, pool, hub, logger)
	if err != nil {
		return err
	}
	defer closeTransports()

	products := catalog.NewPostgresRepository(pool)
	cartManager := cart.NewManager(cart.NewPostgresRepository(pool), catalog.NewResolver(products), notifier, logger)
	orderRepo := order.NewPostgresRepository(pool)

	deps := httpapi.Deps{
		Cart:           cartManager,
		Assembler:      order.NewAssembler(orderRepo, notifier, logger),
		Orders:         order.NewLifecycle(orderRepo, products, notifier, logger),
		Feed:           hub,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
		AllowOrigins:   cfg.CORSAllowOrigins,
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		deps.Guard = idempotency.NewGuard(rdb, cfg.IdempotencyTTL)
		logger.Info("checkout idempotency enabled", zap.String("redis_addr", cfg.RedisAddr))
	}

	router := httpapi.NewRouter(httpapi.NewHandler(deps), logger, httpapi.RouterConfig{
		AdminRole:    cfg.AdminRole,
		AllowOrigins: cfg.CORSAllowOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// feeds are hijacked connections that Shutdown does not wait for
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	return nil
}

func openPool(ctx context.Context, cfg config.Config) (db.DBPool, func(), error) {
	if cfg.DBLazyConnect {
		lazy := db.NewLazyPool(cfg.DatabaseDSN)
		return lazy, lazy.Close, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := db.NewPool(connectCtx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}
	return pool, pool.Close, nil
}

// buildNotifier fans changes out to the in-process hub and to each broker
// listed in CHANGE_FEED_TRANSPORTS.
func buildNotifier(cfg config.Config, pool db.DBPool, hub *notify.Hub, logger *zap.Logger) (notify.Notifier, func(), error) {
	var (
		targets notify.Multi
		closers []func() error
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close change transport", zap.Error(err))
			}
		}
	}

	if cfg.TransportEnabled(config.TransportHub) {
		targets = append(targets, hub)
	}

	seq := events.NewSequenceRepository(pool)

	if cfg.TransportEnabled(config.TransportAMQP) {
		if cfg.RabbitMQURL == "" {
			closeAll()
			return nil, nil, errors.New("amqp transport enabled but RABBITMQ_URL is empty")
		}
		conn, err := events.DialRabbit(cfg.RabbitMQURL)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		closers = append(closers, conn.Close)

		pub, err := events.NewPublisher(conn, seq)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("create amqp publisher: %w", err)
		}
		closers = append(closers, pub.Close)
		targets = append(targets, pub)
		logger.Info("amqp change feed enabled", zap.String("exchange", events.EventsExchange))
	}

	if cfg.TransportEnabled(config.TransportKafka) {
		if len(cfg.KafkaBrokers) == 0 {
			closeAll()
			return nil, nil, errors.New("kafka transport enabled but KAFKA_BROKERS is empty")
		}
		pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, seq, logger)
		closers = append(closers, pub.Close)
		targets = append(targets, pub)
		logger.Info("kafka change feed enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	return targets, closeAll, nil
}
