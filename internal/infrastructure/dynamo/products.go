package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/go-shop-nosql/internal/domain"
	"go.uber.org/zap"
)

// ProductRepo provides read access to the products table. Products are seeded externally.
type ProductRepo struct {
	store     *Store
	tableName string
}

func NewProductRepo(store *Store, tableName string) *ProductRepo {
	return &ProductRepo{store: store, tableName: tableName}
}

func (r *ProductRepo) Get(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	found, err := r.store.Get(ctx, r.tableName, strKey(fieldProductID, productID), &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}
	return &p, nil
}

// BatchGet returns the products found among ids, keyed by id. Missing ids are absent from the map.
// If some keys stay unprocessed after retries the partial map is returned without error.
func (r *ProductRepo) BatchGet(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	seen := make(map[string]struct{}, len(ids))
	keys := make([]Item, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, strKey(fieldProductID, id))
	}

	proj := expression.NamesList(
		expression.Name(fieldProductID), expression.Name(fieldName), expression.Name(fieldImage),
		expression.Name(fieldPrice), expression.Name(fieldStock),
	)
	items, err := r.store.BatchGet(ctx, r.tableName, keys, &proj)
	if err != nil && !errors.Is(err, ErrPartialBatch) {
		return nil, err
	}
	if err != nil {
		r.store.log.Warn("product_batch_get_partial", zap.Int("requested", len(keys)), zap.Int("found", len(items)))
	}
	for _, item := range items {
		var p domain.Product
		if err := attributevalue.UnmarshalMap(item, &p); err != nil {
			return nil, fmt.Errorf("unmarshal product: %w", err)
		}
		out[p.ProductID] = p
	}
	return out, nil
}

// ScanPage returns one page of products matching q. Sorting is left to the caller.
func (r *ProductRepo) ScanPage(ctx context.Context, q domain.ProductQuery) ([]domain.Product, string, error) {
	if err := checkCursorKey(q.Cursor, []string{fieldProductID}, nil); err != nil {
		return nil, "", err
	}
	proj := expression.NamesList(
		expression.Name(fieldProductID), expression.Name(fieldName), expression.Name(fieldPrice),
		expression.Name(fieldCategory), expression.Name(fieldImage), expression.Name(fieldStock),
	)
	page, err := r.store.Scan(ctx, ScanParams{
		Table:      r.tableName,
		Filter:     productFilter(q),
		Projection: &proj,
		Limit:      int32(q.PageSize),
		Cursor:     q.Cursor,
	})
	if err != nil {
		return nil, "", err
	}
	products := make([]domain.Product, 0, len(page.Items))
	if err := attributevalue.UnmarshalListOfMaps(page.Items, &products); err != nil {
		return nil, "", fmt.Errorf("unmarshal products: %w", err)
	}
	return products, page.Cursor, nil
}

// productFilter ANDs every filter present in q. nil means no filter.
func productFilter(q domain.ProductQuery) *expression.ConditionBuilder {
	var conds []expression.ConditionBuilder
	if q.Search != "" {
		conds = append(conds, expression.Name(fieldName).Contains(q.Search))
	}
	if q.Category != "" {
		conds = append(conds, expression.Name(fieldCategory).Equal(expression.Value(q.Category)))
	}
	if q.Min != nil {
		conds = append(conds, expression.Name(fieldPrice).GreaterThanEqual(expression.Value(*q.Min)))
	}
	if q.Max != nil {
		conds = append(conds, expression.Name(fieldPrice).LessThanEqual(expression.Value(*q.Max)))
	}
	switch len(conds) {
	case 0:
		return nil
	case 1:
		return &conds[0]
	default:
		c := expression.And(conds[0], conds[1], conds[2:]...)
		return &c
	}
}
