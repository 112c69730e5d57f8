package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-shop-nosql/internal/config"
	"go.uber.org/zap"
)

// Bootstrap creates the shop tables if they don't already exist.
// Safe to call on every startup; existing tables are skipped.
func Bootstrap(ctx context.Context, api API, tables config.DynamoTables, log *zap.Logger) {
	createTable(ctx, api, log, table(tables.Users, fieldUserID, ""))
	createTable(ctx, api, log, table(tables.Products, fieldProductID, ""))
	createTable(ctx, api, log, table(tables.Carts, fieldUserID, fieldProductID))
	createTable(ctx, api, log, table(tables.Orders, fieldUserID, fieldOrderID))
}

// table builds a pay-per-request table with string keys. If sortKey is empty, only a hash key is added.
func table(name, hashKey, sortKey string) *dynamodb.CreateTableInput {
	in := &dynamodb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(hashKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
		},
	}
	if sortKey != "" {
		in.AttributeDefinitions = append(in.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(sortKey), AttributeType: types.ScalarAttributeTypeS,
		})
		in.KeySchema = append(in.KeySchema, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return in
}

func createTable(ctx context.Context, api API, log *zap.Logger, input *dynamodb.CreateTableInput) {
	_, err := api.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			log.Warn("could not create table", zap.String("table", *input.TableName), zap.Error(err))
		}
		return
	}
	log.Info("created table", zap.String("table", *input.TableName))
}
