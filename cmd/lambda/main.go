package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-shop-nosql/internal/config"
	"github.com/go-shop-nosql/internal/pkg/logging"
	transporthttp "github.com/go-shop-nosql/internal/transport/http"
	"go.uber.org/zap"
)

var chiLambda *chiadapter.ChiLambdaV2

// init runs once per cold start; the router and its caches survive warm invocations.
func init() {
	cfg := config.Load()

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	zap.ReplaceGlobals(logger)

	deps, err := transporthttp.NewDeps(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("cold_start_failed", zap.Error(err))
	}
	router := transporthttp.NewRouter(cfg, deps)
	chiLambda = chiadapter.NewV2(router.Mux)
	logger.Info("lambda_ready", zap.String("env", cfg.AppEnv))
}

// handler is the API Gateway HTTP API (v2) entrypoint.
func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return chiLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(handler)
}
