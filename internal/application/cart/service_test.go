package cart

import (
	"context"
	"testing"
	"time"

	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCartStore struct{ mock.Mock }

func (m *mockCartStore) ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error) {
	args := m.Called(ctx, userID)
	lines, _ := args.Get(0).([]domain.CartLine)
	return lines, args.Error(1)
}
func (m *mockCartStore) AddQuantity(ctx context.Context, userID, productID string, qty int, price float64, now time.Time) (*domain.CartLine, error) {
	args := m.Called(ctx, userID, productID, qty, price, now)
	line, _ := args.Get(0).(*domain.CartLine)
	return line, args.Error(1)
}
func (m *mockCartStore) SetQuantity(ctx context.Context, userID, productID string, qty int, now time.Time) (*domain.CartLine, error) {
	args := m.Called(ctx, userID, productID, qty, now)
	line, _ := args.Get(0).(*domain.CartLine)
	return line, args.Error(1)
}
func (m *mockCartStore) Delete(ctx context.Context, userID, productID string) error {
	return m.Called(ctx, userID, productID).Error(0)
}

type mockProducts struct{ mock.Mock }

func (m *mockProducts) Get(ctx context.Context, productID string) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	p, _ := args.Get(0).(*domain.Product)
	return p, args.Error(1)
}
func (m *mockProducts) BatchGet(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	args := m.Called(ctx, ids)
	ps, _ := args.Get(0).(map[string]domain.Product)
	return ps, args.Error(1)
}

type countingObserver struct{ hits, misses int }

func (o *countingObserver) CacheLookup(_ string, hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

// --- builder ---

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(cs *mockCartStore, ps *mockProducts, c *cache.TTL[string, domain.Cart], obs cacheObserver) *service {
	svc := NewService(ServiceDeps{CartRepo: cs, ProductRepo: ps, Cache: c, Metrics: obs}).(*service)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func intPtr(i int) *int { return &i }

// --- Get ---

func TestGet_EnrichesAndTotalsFromSnapshotPrice(t *testing.T) {
	cs := &mockCartStore{}
	cs.On("ListByUser", mock.Anything, "u1").Return([]domain.CartLine{
		{UserID: "u1", ProductID: "futbol-0001", Quantity: 2, PriceAtAdd: 50},
		{UserID: "u1", ProductID: "gone", Quantity: 1, PriceAtAdd: 9.99},
	}, nil)
	ps := &mockProducts{}
	ps.On("BatchGet", mock.Anything, []string{"futbol-0001", "gone"}).Return(map[string]domain.Product{
		"futbol-0001": {ProductID: "futbol-0001", Name: "Balón", Price: 65, Stock: 3, Image: "b.png"},
	}, nil)

	cart, err := newService(cs, ps, nil, nil).Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 109.99, cart.Total)

	first := cart.Items[0]
	assert.Equal(t, "Balón", first.Name)
	assert.Equal(t, 65.0, *first.CurrentPrice)
	assert.Equal(t, 3, *first.Stock)
	assert.Equal(t, 50.0, first.PriceAtAdd)

	assert.Nil(t, cart.Items[1].CurrentPrice)
}

func TestGet_EmptyCart(t *testing.T) {
	cs := &mockCartStore{}
	cs.On("ListByUser", mock.Anything, "u1").Return(nil, nil)
	ps := &mockProducts{}
	ps.On("BatchGet", mock.Anything, []string{}).Return(map[string]domain.Product{}, nil)

	cart, err := newService(cs, ps, nil, nil).Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.NotNil(t, cart.Items)
	assert.Zero(t, cart.Total)
}

func TestGet_CachedUntilMutation(t *testing.T) {
	cs := &mockCartStore{}
	cs.On("ListByUser", mock.Anything, "u1").Return([]domain.CartLine{
		{UserID: "u1", ProductID: "p1", Quantity: 1, PriceAtAdd: 10},
	}, nil)
	cs.On("Delete", mock.Anything, "u1", "p1").Return(nil)
	ps := &mockProducts{}
	ps.On("BatchGet", mock.Anything, mock.Anything).Return(map[string]domain.Product{}, nil)
	obs := &countingObserver{}
	svc := newService(cs, ps, cache.New[string, domain.Cart](time.Minute, 100), obs)

	_, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	cs.AssertNumberOfCalls(t, "ListByUser", 1)
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)

	require.NoError(t, svc.Remove(context.Background(), "u1", "p1"))
	_, err = svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	cs.AssertNumberOfCalls(t, "ListByUser", 2)
}

// --- Add ---

func TestAdd_DefaultsQuantityToOneAndUsesCatalogPrice(t *testing.T) {
	cs := &mockCartStore{}
	line := &domain.CartLine{UserID: "u1", ProductID: "p1", Quantity: 1, PriceAtAdd: 50}
	cs.On("AddQuantity", mock.Anything, "u1", "p1", 1, 50.0, fixedNow).Return(line, nil)
	ps := &mockProducts{}
	ps.On("Get", mock.Anything, "p1").Return(&domain.Product{ProductID: "p1", Price: 50}, nil)

	got, err := newService(cs, ps, nil, nil).Add(context.Background(), "u1", domain.AddCartItemRequest{ProductID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, line, got)
}

func TestAdd_UnknownProduct(t *testing.T) {
	ps := &mockProducts{}
	ps.On("Get", mock.Anything, "nope").Return(nil, domain.ErrNotFound)
	cs := &mockCartStore{}

	_, err := newService(cs, ps, nil, nil).Add(context.Background(), "u1", domain.AddCartItemRequest{ProductID: "nope", Quantity: intPtr(2)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	cs.AssertNotCalled(t, "AddQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdd_InvalidQuantity(t *testing.T) {
	_, err := newService(&mockCartStore{}, &mockProducts{}, nil, nil).
		Add(context.Background(), "u1", domain.AddCartItemRequest{ProductID: "p1", Quantity: intPtr(0)})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestAdd_InvalidatesCache(t *testing.T) {
	c := cache.New[string, domain.Cart](time.Minute, 10)
	c.Set("u1", domain.Cart{Total: 1})
	cs := &mockCartStore{}
	cs.On("AddQuantity", mock.Anything, "u1", "p1", 3, 10.0, fixedNow).Return(&domain.CartLine{}, nil)
	ps := &mockProducts{}
	ps.On("Get", mock.Anything, "p1").Return(&domain.Product{ProductID: "p1", Price: 10}, nil)

	_, err := newService(cs, ps, c, nil).Add(context.Background(), "u1", domain.AddCartItemRequest{ProductID: "p1", Quantity: intPtr(3)})
	require.NoError(t, err)
	_, ok := c.Get("u1")
	assert.False(t, ok)
}

// --- Update ---

func TestUpdate_ZeroDeletesLine(t *testing.T) {
	cs := &mockCartStore{}
	cs.On("Delete", mock.Anything, "u1", "p1").Return(nil)

	res, err := newService(cs, &mockProducts{}, nil, nil).Update(context.Background(), "u1", "p1", domain.UpdateCartItemRequest{Quantity: intPtr(0)})
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	cs.AssertNotCalled(t, "SetQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_NegativeDeletesLine(t *testing.T) {
	cs := &mockCartStore{}
	cs.On("Delete", mock.Anything, "u1", "p1").Return(nil)

	res, err := newService(cs, &mockProducts{}, nil, nil).Update(context.Background(), "u1", "p1", domain.UpdateCartItemRequest{Quantity: intPtr(-4)})
	require.NoError(t, err)
	assert.True(t, res.Deleted)
}

func TestUpdate_SetsQuantity(t *testing.T) {
	cs := &mockCartStore{}
	line := &domain.CartLine{ProductID: "p1", Quantity: 7, PriceAtAdd: 5}
	cs.On("SetQuantity", mock.Anything, "u1", "p1", 7, fixedNow).Return(line, nil)

	res, err := newService(cs, &mockProducts{}, nil, nil).Update(context.Background(), "u1", "p1", domain.UpdateCartItemRequest{Quantity: intPtr(7)})
	require.NoError(t, err)
	assert.False(t, res.Deleted)
	assert.Equal(t, line, res.Line)
}

func TestUpdate_MissingLine(t *testing.T) {
	cs := &mockCartStore{}
	cs.On("SetQuantity", mock.Anything, "u1", "p1", 2, fixedNow).Return(nil, domain.ErrNotFound)

	_, err := newService(cs, &mockProducts{}, nil, nil).Update(context.Background(), "u1", "p1", domain.UpdateCartItemRequest{Quantity: intPtr(2)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate_QuantityRequired(t *testing.T) {
	_, err := newService(&mockCartStore{}, &mockProducts{}, nil, nil).Update(context.Background(), "u1", "p1", domain.UpdateCartItemRequest{})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

// --- Remove ---

func TestRemove_Idempotent(t *testing.T) {
	cs := &mockCartStore{}
	cs.On("Delete", mock.Anything, "u1", "missing").Return(nil)
	assert.NoError(t, newService(cs, &mockProducts{}, nil, nil).Remove(context.Background(), "u1", "missing"))
}
