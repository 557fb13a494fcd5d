package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"fx-margin-guard/internal/application"
	"fx-margin-guard/internal/config"
	"fx-margin-guard/internal/domain"
	"fx-margin-guard/internal/infrastructure/dynamo"
	"fx-margin-guard/internal/infrastructure/httpx"
	"fx-margin-guard/internal/infrastructure/memory"
	"fx-margin-guard/internal/infrastructure/pg"
	"fx-margin-guard/internal/infrastructure/provider"
	redisstore "fx-margin-guard/internal/infrastructure/redis"
	"fx-margin-guard/internal/infrastructure/worker"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrMissingDBURL   = errors.New("DATABASE_URL is required for STORAGE=pg")
	ErrMissingFixer   = errors.New("FIXER_API_KEY is required for PROVIDER=fixer")
	ErrUnknownStorage = errors.New("unknown STORAGE")
)

// Stores groups the persistence adapters selected by STORAGE.
type Stores struct {
	Rates  application.RateStore
	Orders application.OrderImpactStore
	UoW    application.UnitOfWork
	Sweeps []worker.Sweep
	Ping   func(ctx context.Context) error
}

func ProvideStores(ctx context.Context, cfg config.Config, log *zap.Logger) (Stores, func(), error) {
	switch cfg.Storage {
	case "pg":
		return providePGStores(ctx, cfg, log)
	case "dynamodb":
		return provideDynamoStores(ctx, cfg)
	case "memory":
		rates, orders := memory.NewRateStore(), memory.NewOrderImpactStore()
		return Stores{
			Rates:  rates,
			Orders: orders,
			UoW:    application.NoopUoW{},
			Sweeps: []worker.Sweep{{Store: "rates", Expirer: rates}, {Store: "order_impacts", Expirer: orders}},
		}, func() {}, nil
	default:
		return Stores{}, func() {}, fmt.Errorf("%w %q", ErrUnknownStorage, cfg.Storage)
	}
}

func providePGStores(ctx context.Context, cfg config.Config, log *zap.Logger) (Stores, func(), error) {
	if cfg.DatabaseURL == "" {
		return Stores{}, func() {}, ErrMissingDBURL
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return Stores{}, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return Stores{}, func() {}, err
	}
	rates, orders := pg.NewRateStore(db), pg.NewOrderImpactStore(db)
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return Stores{
		Rates:  rates,
		Orders: orders,
		UoW:    &pg.UnitOfWork{Pool: db.Pool},
		Sweeps: []worker.Sweep{{Store: "rates", Expirer: rates}, {Store: "order_impacts", Expirer: orders}},
		Ping:   db.Ping,
	}, cleanup, nil
}

func provideDynamoStores(ctx context.Context, cfg config.Config) (Stores, func(), error) {
	client, err := dynamo.NewClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
	if err != nil {
		return Stores{}, func() {}, err
	}
	tables := dynamo.Tables{Rates: cfg.RatesTableName, Orders: cfg.OrdersTableName, StoreIndex: cfg.OrdersStoreIndex}
	if cfg.DynamoEndpoint != "" {
		if err := dynamo.EnsureTables(ctx, client, tables); err != nil {
			return Stores{}, func() {}, err
		}
	}
	ping := func(ctx context.Context) error {
		_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tables.Rates)})
		return err
	}
	// Expiry is native TTL; writes are not transactional across the two items.
	return Stores{
		Rates:  dynamo.NewRateStore(client, tables.Rates),
		Orders: dynamo.NewOrderImpactStore(client, tables.Orders, tables.StoreIndex),
		UoW:    application.NoopUoW{},
		Ping:   ping,
	}, func() {}, nil
}

// ProvideRateProviders returns the primary and fallback providers. Both share
// one throttled HTTP client.
func ProvideRateProviders(cfg config.Config) (primary, secondary application.RateProvider, err error) {
	switch cfg.Provider {
	case "fake":
		return provider.NewFake("fake", cfg.FakeRate), provider.NewFake("fake-fallback", cfg.FakeRate), nil
	case "fixer", "":
	default:
		return nil, nil, fmt.Errorf("unknown PROVIDER %q", cfg.Provider)
	}
	if cfg.FixerAPIKey == "" {
		return nil, nil, ErrMissingFixer
	}
	client := &httpx.Client{
		HTTP:       &http.Client{Timeout: cfg.ProviderTimeout},
		Limiter:    rate.NewLimiter(rate.Limit(cfg.ProviderRatePerSec), 1),
		MaxElapsed: cfg.ProviderTimeout,
	}
	primary = &provider.FixerProvider{
		BaseURL: cfg.FixerAPIBase,
		APIKey:  cfg.FixerAPIKey,
		Mode:    cfg.FixerMode,
		Client:  client,
	}
	secondary = &provider.ExchangeRateAPIProvider{
		BaseURL: cfg.FallbackAPIBase,
		Client:  client,
	}
	return primary, secondary, nil
}

// ProvideSlotGuard returns a redis-backed guard, or NoopGuard when
// GUARD_BACKEND=none. Slots live for one fetch interval.
func ProvideSlotGuard(cfg config.Config) (application.SlotGuard, func(), error) {
	if cfg.GuardBackend != "redis" {
		return application.NoopGuard{}, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return redisstore.New(client, cfg.FetchInterval), func() { _ = client.Close() }, nil
}

// ProvidePairs parses the comma-separated RATE_PAIR list.
func ProvidePairs(cfg config.Config) ([]domain.Pair, error) {
	var pairs []domain.Pair
	for _, raw := range strings.Split(cfg.Pair, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		p, err := domain.ParsePair(raw)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 {
		return []domain.Pair{domain.DefaultPair}, nil
	}
	return pairs, nil
}
