package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/logger"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"drips/internal/config"
	"drips/internal/handlers"
	"drips/internal/kafka"
	"drips/internal/ledger"
	"drips/internal/services"
	"drips/internal/store"
)

// App centralizes dependency wiring for the raffle client.
type App struct {
	cfg config.Config

	ledger    *ledger.Client
	redis     *redis.Client
	registry  services.KnownRaffles
	publisher *kafka.RaffleEventPublisher
	service   *services.RaffleService

	httpServer *http.Server
}

// NewApp dials the ledger and builds every component. Redis and Kafka are
// only wired when configured.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	client, err := ledger.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, ledger: client}

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.registry = store.NewRaffleRegistry(a.redis, cfg.Redis.RegistryKey)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		a.publisher = kafka.NewRaffleEventPublisher(cfg)
	}
	a.service = services.NewRaffleService(cfg, client, a.registry, services.LogDiagnostics)
	return a, nil
}

// Config returns the configuration the App was built with.
func (a *App) Config() config.Config {
	return a.cfg
}

// Service returns the raffle service.
func (a *App) Service() *services.RaffleService {
	return a.service
}

// NewWatcher builds an event watcher publishing to Kafka, or to the log
// when no brokers are configured.
func (a *App) NewWatcher() *services.EventWatcher {
	var sink services.EventSink = services.LogSink{}
	if a.publisher != nil {
		sink = a.publisher
	}
	return services.NewEventWatcher(a.cfg, a.ledger, sink, a.registry, services.LogDiagnostics)
}

// Run starts the HTTP API and, when watch is set, the event watcher. It
// blocks until ctx cancellation or a fatal error.
func (a *App) Run(ctx context.Context, watch bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if watch {
		watcher := a.NewWatcher()
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("event watcher: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return a.runHTTPServer(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (a *App) runHTTPServer(ctx context.Context) error {
	r, srv := handlers.NewServer(a.cfg)
	a.httpServer = srv
	handlers.NewHTTPHandler(a.service).RegisterRoutes(r)

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server started at: %s", srv.Addr)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	// App context shutdown:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		err := <-serverErr
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	// HTTP server error:
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Close releases the ledger, Kafka and Redis connections.
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			logger.Warningf("error closing Kafka publisher: %v", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warningf("error closing Redis client: %v", err)
		}
	}
	a.ledger.Close()
}
