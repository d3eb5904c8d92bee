package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/kaushiksanil12/ECOMBackend/internal/cache"
	"github.com/kaushiksanil12/ECOMBackend/internal/config"
	"github.com/kaushiksanil12/ECOMBackend/internal/messaging"
	"github.com/kaushiksanil12/ECOMBackend/internal/messaging/gochannel"
	"github.com/kaushiksanil12/ECOMBackend/internal/messaging/kafka"
	"github.com/kaushiksanil12/ECOMBackend/internal/ordernumber"
	"github.com/kaushiksanil12/ECOMBackend/internal/pricing"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository/memory"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository/postgres"
	"github.com/kaushiksanil12/ECOMBackend/internal/service"
)

// broker is what the wiring needs from either event transport.
type broker interface {
	messaging.Publisher
	messaging.Subscriber
}

// app holds every long-lived dependency of a running process.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	db         *sql.DB
	store      repository.Store
	cache      cache.Cache
	redis      *cache.RedisCache
	broker     broker
	products   *service.ProductService
	categories *service.CategoryService
	orders     *service.OrderService
}

func loadConfig(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.StringSlice("env-file")...)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.Store != config.StorePostgres {
		return nil, fmt.Errorf("store %q has no database", cfg.Store)
	}
	return postgres.InitDB(ctx, cfg.DatabaseURL)
}

// newApp connects the store, cache and broker and builds the services.
// When migrate is set the postgres schema is brought up to date first.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	switch cfg.Store {
	case config.StorePostgres:
		db, err := openDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.db = db
		if migrate {
			if err := postgres.MigrateUp(db); err != nil {
				a.Close()
				return nil, err
			}
		}
		a.store = postgres.NewStore(db)
	default:
		slog.Warn("Using in-memory store, data is lost on exit")
		a.store = memory.NewStore()
	}

	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), "storefront:", cfg.CacheTTL)
		if err := rc.Ping(ctx); err != nil {
			slog.Warn("Redis unreachable, category cache disabled", "addr", cfg.RedisAddr, "err", err)
			rc.Close()
			a.cache = cache.Noop{}
		} else {
			a.redis = rc
			a.cache = rc
		}
	} else {
		a.cache = cache.Noop{}
	}

	if len(cfg.KafkaBrokers) > 0 {
		a.broker = kafka.NewKafkaBroker(cfg.KafkaBrokers)
	} else {
		slog.Info("No Kafka brokers configured, using in-process event bus")
		a.broker = gochannel.NewBus(logger)
	}

	ledger := service.NewInventoryLedger(a.store)
	a.products = service.NewProductService(a.store, ledger)
	a.categories = service.NewCategoryService(a.store, a.cache)
	a.orders = service.NewOrderService(
		a.store,
		ledger,
		pricing.NewCalculator(cfg.PricingPolicy()),
		ordernumber.New(cfg.OrderNumberPrefix),
		a.broker,
	)
	return a, nil
}

// Close releases the broker, cache and database in that order.
func (a *app) Close() error {
	var errs []error
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close broker: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
