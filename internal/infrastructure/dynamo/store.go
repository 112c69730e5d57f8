package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-shop-nosql/internal/pkg/retry"
	"go.uber.org/zap"
)

// DynamoDB per-request item limits.
const (
	maxBatchWrite = 25
	maxBatchGet   = 100
)

var (
	// ErrConditionFailed is the typed outcome of a put or update whose precondition did not hold.
	ErrConditionFailed = errors.New("dynamo: condition failed")
	// ErrPartialBatch is returned when unprocessed batch items remain after the last retry.
	ErrPartialBatch = errors.New("dynamo: batch partially processed")
)

// Item is a raw DynamoDB item or key.
type Item = map[string]types.AttributeValue

// Page is one slice of a query or scan. Cursor is "" on the last page.
type Page struct {
	Items  []Item
	Cursor string
}

// QueryParams describes a key-condition query against one partition.
type QueryParams struct {
	Table          string
	KeyCondition   expression.KeyConditionBuilder
	Filter         *expression.ConditionBuilder
	Projection     *expression.ProjectionBuilder
	Limit          int32
	Cursor         string
	Descending     bool
	ConsistentRead bool
}

// ScanParams describes a filtered table scan.
type ScanParams struct {
	Table      string
	Filter     *expression.ConditionBuilder
	Projection *expression.ProjectionBuilder
	Limit      int32
	Cursor     string
}

// BatchResult reports how many write requests were applied and which were left over.
type BatchResult struct {
	Processed   int
	Unprocessed []types.WriteRequest
}

// Store is the typed adapter every repo goes through.
type Store struct {
	api      API
	attempts int
	backoff  retry.Backoff
	log      *zap.Logger
}

type StoreOption func(*Store)

// WithRetry sets the attempt cap and backoff used for unprocessed batch items.
func WithRetry(attempts int, backoff retry.Backoff) StoreOption {
	return func(s *Store) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if backoff != nil {
			s.backoff = backoff
		}
	}
}

func WithLogger(log *zap.Logger) StoreOption {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

func NewStore(api API, opts ...StoreOption) *Store {
	s := &Store{
		api:      api,
		attempts: 5,
		backoff:  retry.Exponential(50*time.Millisecond, 2*time.Second),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get performs a strongly consistent key lookup. found is false when the item is absent.
func (s *Store) Get(ctx context.Context, table string, key Item, out interface{}) (found bool, err error) {
	res, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("get %s: %w", table, err)
	}
	if res.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal %s item: %w", table, err)
	}
	return true, nil
}

// Put writes item, optionally guarded by cond. A failed guard returns ErrConditionFailed.
func (s *Store) Put(ctx context.Context, table string, item interface{}, cond *expression.ConditionBuilder) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal %s item: %w", table, err)
	}
	input := &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      av,
	}
	if cond != nil {
		expr, err := expression.NewBuilder().WithCondition(*cond).Build()
		if err != nil {
			return fmt.Errorf("build condition: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	if _, err := s.api.PutItem(ctx, input); err != nil {
		return conditionErr("put", table, err)
	}
	return nil
}

// Update applies update to the item at key and unmarshals the new item into out (if non-nil).
// A failed cond returns ErrConditionFailed.
func (s *Store) Update(ctx context.Context, table string, key Item, update expression.UpdateBuilder, cond *expression.ConditionBuilder, out interface{}) error {
	b := expression.NewBuilder().WithUpdate(update)
	if cond != nil {
		b = b.WithCondition(*cond)
	}
	expr, err := b.Build()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return conditionErr("update", table, err)
	}
	if out == nil {
		return nil
	}
	if err := attributevalue.UnmarshalMap(res.Attributes, out); err != nil {
		return fmt.Errorf("unmarshal %s item: %w", table, err)
	}
	return nil
}

// Delete removes the item at key. Deleting an absent item succeeds.
func (s *Store) Delete(ctx context.Context, table string, key Item) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, p QueryParams) (Page, error) {
	start, err := DecodeCursor(p.Cursor)
	if err != nil {
		return Page{}, err
	}
	b := expression.NewBuilder().WithKeyCondition(p.KeyCondition)
	if p.Filter != nil {
		b = b.WithFilter(*p.Filter)
	}
	if p.Projection != nil {
		b = b.WithProjection(*p.Projection)
	}
	expr, err := b.Build()
	if err != nil {
		return Page{}, fmt.Errorf("build query: %w", err)
	}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(p.Table),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ExclusiveStartKey:         start,
		ScanIndexForward:          aws.Bool(!p.Descending),
	}
	if p.ConsistentRead {
		input.ConsistentRead = aws.Bool(true)
	}
	if p.Limit > 0 {
		input.Limit = aws.Int32(p.Limit)
	}
	out, err := s.api.Query(ctx, input)
	if err != nil {
		return Page{}, fmt.Errorf("query %s: %w", p.Table, err)
	}
	cursor, err := EncodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: out.Items, Cursor: cursor}, nil
}

// Scan reads one page of the table. Scans are eventually consistent.
func (s *Store) Scan(ctx context.Context, p ScanParams) (Page, error) {
	start, err := DecodeCursor(p.Cursor)
	if err != nil {
		return Page{}, err
	}
	input := &dynamodb.ScanInput{
		TableName:         aws.String(p.Table),
		ExclusiveStartKey: start,
	}
	if p.Limit > 0 {
		input.Limit = aws.Int32(p.Limit)
	}
	if p.Filter != nil || p.Projection != nil {
		b := expression.NewBuilder()
		if p.Filter != nil {
			b = b.WithFilter(*p.Filter)
		}
		if p.Projection != nil {
			b = b.WithProjection(*p.Projection)
		}
		expr, err := b.Build()
		if err != nil {
			return Page{}, fmt.Errorf("build scan: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ProjectionExpression = expr.Projection()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	out, err := s.api.Scan(ctx, input)
	if err != nil {
		return Page{}, fmt.Errorf("scan %s: %w", p.Table, err)
	}
	cursor, err := EncodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: out.Items, Cursor: cursor}, nil
}

// BatchGet fetches keys in chunks of 100, retrying unprocessed keys with backoff.
// On ErrPartialBatch the items fetched so far are still returned.
func (s *Store) BatchGet(ctx context.Context, table string, keys []Item, projection *expression.ProjectionBuilder) ([]Item, error) {
	var (
		names   map[string]string
		projExp *string
	)
	if projection != nil {
		expr, err := expression.NewBuilder().WithProjection(*projection).Build()
		if err != nil {
			return nil, fmt.Errorf("build projection: %w", err)
		}
		names, projExp = expr.Names(), expr.Projection()
	}

	items := make([]Item, 0, len(keys))
	partial := false
	for _, chunk := range chunks(keys, maxBatchGet) {
		pending := chunk
		err := retry.Do(ctx, s.attempts, s.backoff, func(ctx context.Context, attempt int) (bool, error) {
			out, err := s.api.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
				RequestItems: map[string]types.KeysAndAttributes{
					table: {
						Keys:                     pending,
						ProjectionExpression:     projExp,
						ExpressionAttributeNames: names,
						ConsistentRead:           aws.Bool(true),
					},
				},
			})
			if err != nil {
				return false, fmt.Errorf("batch get %s: %w", table, err)
			}
			items = append(items, out.Responses[table]...)
			pending = out.UnprocessedKeys[table].Keys
			if len(pending) > 0 {
				s.log.Debug("batch_get_unprocessed",
					zap.String("table", table), zap.Int("attempt", attempt), zap.Int("pending", len(pending)))
			}
			return len(pending) == 0, nil
		})
		if errors.Is(err, retry.ErrExhausted) {
			partial = true
			continue
		}
		if err != nil {
			return items, err
		}
	}
	if partial {
		return items, ErrPartialBatch
	}
	return items, nil
}

// BatchWrite applies puts and deletes in chunks of 25. Unprocessed requests are retried
// with capped exponential backoff; whatever remains is reported in the result with ErrPartialBatch.
func (s *Store) BatchWrite(ctx context.Context, table string, puts []interface{}, deletes []Item) (BatchResult, error) {
	reqs := make([]types.WriteRequest, 0, len(puts)+len(deletes))
	for _, p := range puts {
		av, err := attributevalue.MarshalMap(p)
		if err != nil {
			return BatchResult{}, fmt.Errorf("marshal %s item: %w", table, err)
		}
		reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}
	for _, k := range deletes {
		reqs = append(reqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: k}})
	}

	var res BatchResult
	for _, chunk := range chunks(reqs, maxBatchWrite) {
		pending := chunk
		err := retry.Do(ctx, s.attempts, s.backoff, func(ctx context.Context, attempt int) (bool, error) {
			out, err := s.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{table: pending},
			})
			if err != nil {
				return false, fmt.Errorf("batch write %s: %w", table, err)
			}
			left := out.UnprocessedItems[table]
			res.Processed += len(pending) - len(left)
			pending = left
			if len(pending) > 0 {
				s.log.Debug("batch_write_unprocessed",
					zap.String("table", table), zap.Int("attempt", attempt), zap.Int("pending", len(pending)))
			}
			return len(pending) == 0, nil
		})
		if errors.Is(err, retry.ErrExhausted) {
			res.Unprocessed = append(res.Unprocessed, pending...)
			continue
		}
		if err != nil {
			res.Unprocessed = append(res.Unprocessed, pending...)
			return res, err
		}
	}
	if len(res.Unprocessed) > 0 {
		return res, fmt.Errorf("%d of %d requests left: %w", len(res.Unprocessed), len(reqs), ErrPartialBatch)
	}
	return res, nil
}

func conditionErr(op, table string, err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrConditionFailed
	}
	return fmt.Errorf("%s %s: %w", op, table, err)
}

func chunks[T any](s []T, size int) [][]T {
	var out [][]T
	for size < len(s) {
		s, out = s[size:], append(out, s[:size:size])
	}
	if len(s) > 0 {
		out = append(out, s)
	}
	return out
}
