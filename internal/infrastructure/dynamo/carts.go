package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/go-shop-nosql/internal/domain"
)

// CartRepo stores one row per (user_id, product_id).
type CartRepo struct {
	store     *Store
	tableName string
}

func NewCartRepo(store *Store, tableName string) *CartRepo {
	return &CartRepo{store: store, tableName: tableName}
}

// ListByUser reads every line of the user's cart, following cursors until the partition is exhausted.
func (r *CartRepo) ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error) {
	var (
		lines  []domain.CartLine
		cursor string
	)
	for {
		page, err := r.store.Query(ctx, QueryParams{
			Table:          r.tableName,
			KeyCondition:   expression.Key(fieldUserID).Equal(expression.Value(userID)),
			Cursor:         cursor,
			ConsistentRead: true,
		})
		if err != nil {
			return nil, err
		}
		var batch []domain.CartLine
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal cart lines: %w", err)
		}
		lines = append(lines, batch...)
		if page.Cursor == "" {
			return lines, nil
		}
		cursor = page.Cursor
	}
}

// AddQuantity atomically adds qty to the line, creating it if absent. price and added_at
// are only written on creation so the first-add price snapshot is never overwritten.
func (r *CartRepo) AddQuantity(ctx context.Context, userID, productID string, qty int, price float64, now time.Time) (*domain.CartLine, error) {
	update := expression.
		Set(expression.Name(fieldQuantity),
			expression.Plus(expression.IfNotExists(expression.Name(fieldQuantity), expression.Value(0)), expression.Value(qty))).
		Set(expression.Name(fieldPriceAtAdd),
			expression.IfNotExists(expression.Name(fieldPriceAtAdd), expression.Value(price))).
		Set(expression.Name(fieldAddedAt),
			expression.IfNotExists(expression.Name(fieldAddedAt), expression.Value(now.UTC()))).
		Set(expression.Name(fieldUpdatedAt), expression.Value(now.UTC()))

	var line domain.CartLine
	if err := r.store.Update(ctx, r.tableName, compositeKey(fieldUserID, userID, fieldProductID, productID), update, nil, &line); err != nil {
		return nil, err
	}
	return &line, nil
}

// SetQuantity overwrites the quantity of an existing line. An absent line yields ErrNotFound.
func (r *CartRepo) SetQuantity(ctx context.Context, userID, productID string, qty int, now time.Time) (*domain.CartLine, error) {
	update := expression.
		Set(expression.Name(fieldQuantity), expression.Value(qty)).
		Set(expression.Name(fieldUpdatedAt), expression.Value(now.UTC()))
	cond := expression.AttributeExists(expression.Name(fieldUserID))

	var line domain.CartLine
	err := r.store.Update(ctx, r.tableName, compositeKey(fieldUserID, userID, fieldProductID, productID), update, &cond, &line)
	if errors.Is(err, ErrConditionFailed) {
		return nil, fmt.Errorf("cart line %s: %w", productID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// Delete removes a line. Removing a line that does not exist is not an error.
func (r *CartRepo) Delete(ctx context.Context, userID, productID string) error {
	return r.store.Delete(ctx, r.tableName, compositeKey(fieldUserID, userID, fieldProductID, productID))
}

// DeleteLines batch-deletes the given products from the user's cart.
func (r *CartRepo) DeleteLines(ctx context.Context, userID string, productIDs []string) (BatchResult, error) {
	keys := make([]Item, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, compositeKey(fieldUserID, userID, fieldProductID, id))
	}
	return r.store.BatchWrite(ctx, r.tableName, nil, keys)
}
