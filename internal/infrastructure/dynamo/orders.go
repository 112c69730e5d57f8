package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/go-shop-nosql/internal/domain"
)

// OrderRepo stores orders under (user_id, order_id). Order ids are ULIDs, so the sort key
// orders a user's history chronologically.
type OrderRepo struct {
	store     *Store
	tableName string
}

func NewOrderRepo(store *Store, tableName string) *OrderRepo {
	return &OrderRepo{store: store, tableName: tableName}
}

// Create writes the order once. A duplicate order id yields ErrConflict.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	cond := expression.AttributeNotExists(expression.Name(fieldOrderID))
	err := r.store.Put(ctx, r.tableName, o, &cond)
	if errors.Is(err, ErrConditionFailed) {
		return fmt.Errorf("order %s: %w", o.OrderID, domain.ErrConflict)
	}
	return err
}

func (r *OrderRepo) Get(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	var o domain.Order
	found, err := r.store.Get(ctx, r.tableName, compositeKey(fieldUserID, userID, fieldOrderID, orderID), &o)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	return &o, nil
}

// ListByUser returns one page of the user's orders, newest first. A cursor from another
// user's history is rejected with ErrInvalidCursor.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string, limit int, cursor string) ([]domain.Order, string, error) {
	if err := checkCursorKey(cursor, []string{fieldUserID, fieldOrderID}, map[string]string{fieldUserID: userID}); err != nil {
		return nil, "", err
	}
	page, err := r.store.Query(ctx, QueryParams{
		Table:        r.tableName,
		KeyCondition: expression.Key(fieldUserID).Equal(expression.Value(userID)),
		Limit:        int32(limit),
		Cursor:       cursor,
		Descending:   true,
	})
	if err != nil {
		return nil, "", err
	}
	orders := make([]domain.Order, 0, len(page.Items))
	if err := attributevalue.UnmarshalListOfMaps(page.Items, &orders); err != nil {
		return nil, "", fmt.Errorf("unmarshal orders: %w", err)
	}
	return orders, page.Cursor, nil
}
