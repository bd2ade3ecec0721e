package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/rafian-git/storefront-state/internal/catalog"
	"github.com/rafian-git/storefront-state/internal/config"
	"github.com/rafian-git/storefront-state/internal/httpserver"
	"github.com/rafian-git/storefront-state/internal/logging"
	"github.com/rafian-git/storefront-state/internal/money"
	"github.com/rafian-git/storefront-state/internal/queue"
	"github.com/rafian-git/storefront-state/internal/session"
	"github.com/rafian-git/storefront-state/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("open keyed store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeBackend()

	opts := []session.Option{
		session.WithShippingFee(cfg.ShippingFee),
		session.WithFormatter(money.NewFormatter(cfg.Locale, cfg.CurrencySuffix)),
		session.WithIdleTTL(cfg.SessionIdleTTL),
		session.WithLogger(logger),
	}
	loadCtx, cancelLoad := context.WithTimeout(ctx, 30*time.Second)
	items, err := catalog.NewLoader(cfg.CatalogSources, nil, logger).Load(loadCtx)
	cancelLoad()
	if err != nil {
		// The cart and favorites keep working; listing routes report the failure.
		logger.Error("catalog unavailable", zap.Error(err))
		opts = append(opts, session.WithCatalogError(err))
	} else {
		opts = append(opts, session.WithCatalog(items))
	}

	// Workers outlive the signal so queued events can drain.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	q := queue.New(cfg.Workers, cfg.QueueSize, logger)
	wg := q.StartWorkers(workerCtx)
	sessions := session.NewManager(backend, q, opts...)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpserver.New(sessions,
			httpserver.WithLogger(logger),
			httpserver.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", srv.Addr),
			zap.Int("workers", cfg.Workers),
			zap.Int("queue", cfg.QueueSize),
			zap.String("store", cfg.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// drain queue (up to 10s)
	drainDeadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(drainDeadline) && q.Len() > 0 {
		logger.Info("draining queue", zap.Int("remaining", q.Len()))
		time.Sleep(50 * time.Millisecond)
	}

	q.Close()
	wg.Wait()
	logger.Info("graceful shutdown complete")
}

// openBackend selects the durable store the collections live in.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return store.NewMemory(), func() {}, nil
	case config.DriverRedis:
		r := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, nil, errors.Wrap(err, "ping redis")
		}
		return r, func() { _ = r.Close() }, nil
	default:
		s, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}
