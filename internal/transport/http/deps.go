package http

import (
	"context"
	"fmt"
	"time"

	"github.com/go-shop-nosql/internal/application/notification"
	"github.com/go-shop-nosql/internal/config"
	"github.com/go-shop-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-shop-nosql/internal/infrastructure/jwt"
	"github.com/go-shop-nosql/internal/pkg/metrics"
	"github.com/go-shop-nosql/internal/pkg/password"
	"github.com/go-shop-nosql/internal/pkg/retry"
	"go.uber.org/zap"
)

const maxStoreBackoff = 2 * time.Second

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	ProductRepo *dynamo.ProductRepo
	CartRepo    *dynamo.CartRepo
	OrderRepo   *dynamo.OrderRepo
	JWTProvider *jwtinfra.Provider
	Hasher      *password.Hasher
	Mailer      notification.Transport
	Metrics     *metrics.Collector
	Logger      *zap.Logger
}

// NewDeps connects to DynamoDB (creating tables when enabled) and the configured
// email transport. It is shared by the HTTP server and the Lambda entrypoint.
func NewDeps(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Deps, error) {
	client, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dynamodb client: %w", err)
	}
	if cfg.DynamoBootstrap {
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables, log)
	}
	store := dynamo.NewStore(client,
		dynamo.WithRetry(cfg.DynamoMaxAttempts, retry.Exponential(cfg.DynamoRetryBaseDelay, maxStoreBackoff)),
		dynamo.WithLogger(log),
	)

	mailer, err := notification.NewTransport(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("email transport: %w", err)
	}

	return &Deps{
		UserRepo:    dynamo.NewUserRepo(store, cfg.DynamoTables.Users),
		ProductRepo: dynamo.NewProductRepo(store, cfg.DynamoTables.Products),
		CartRepo:    dynamo.NewCartRepo(store, cfg.DynamoTables.Carts),
		OrderRepo:   dynamo.NewOrderRepo(store, cfg.DynamoTables.Orders),
		JWTProvider: jwtinfra.NewProvider(cfg),
		Hasher:      password.NewHasher(cfg.BcryptCost),
		Mailer:      mailer,
		Metrics:     metrics.New("shop"),
		Logger:      log,
	}, nil
}
