package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/infrastructure/dynamo"
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
func (m *mockCartStore) DeleteLines(ctx context.Context, userID string, productIDs []string) (dynamo.BatchResult, error) {
	args := m.Called(ctx, userID, productIDs)
	return args.Get(0).(dynamo.BatchResult), args.Error(1)
}

type mockOrderStore struct{ mock.Mock }

func (m *mockOrderStore) Create(ctx context.Context, o *domain.Order) error {
	return m.Called(ctx, o).Error(0)
}
func (m *mockOrderStore) Get(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, userID, orderID)
	o, _ := args.Get(0).(*domain.Order)
	return o, args.Error(1)
}
func (m *mockOrderStore) ListByUser(ctx context.Context, userID string, limit int, cursor string) ([]domain.Order, string, error) {
	args := m.Called(ctx, userID, limit, cursor)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.String(1), args.Error(2)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) OrderConfirmed(ctx context.Context, buyer domain.Identity, o domain.Order) error {
	return m.Called(ctx, buyer, o).Error(0)
}

type counter struct{ n int }

func (c *counter) OrderCreated() { c.n++ }

// --- builder ---

var (
	buyer    = domain.Identity{UserID: "alice@example.com", Email: "alice@example.com", Name: "Alice"}
	fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

func newService(cs *mockCartStore, os *mockOrderStore, n *mockNotifier, c *cache.TTL[string, domain.Cart], m orderMetrics) *service {
	deps := ServiceDeps{CartRepo: cs, OrderRepo: os, CartCache: c, Metrics: m}
	if n != nil {
		deps.Notifier = n
	}
	svc := NewService(deps).(*service)
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "01HZXORDER" }
	return svc
}

// --- Checkout ---

func TestCheckout_SnapshotsCartIntoOrder(t *testing.T) {
	cs := &mockCartStore{}
	cs.On("ListByUser", mock.Anything, buyer.UserID).Return([]domain.CartLine{
		{ProductID: "futbol-0001", Quantity: 2, PriceAtAdd: 50},
		{ProductID: "tenis-0002", Quantity: 3, PriceAtAdd: 19.99},
	}, nil)
	cs.On("DeleteLines", mock.Anything, buyer.UserID, []string{"futbol-0001", "tenis-0002"}).
		Return(dynamo.BatchResult{Processed: 2}, nil)
	os := &mockOrderStore{}
	os.On("Create", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.OrderID == "01HZXORDER" && o.Status == domain.OrderStatusCreated && o.Total == 159.97
	})).Return(nil)
	n := &mockNotifier{}
	n.On("OrderConfirmed", mock.Anything, buyer, mock.AnythingOfType("domain.Order")).Return(nil)
	c := cache.New[string, domain.Cart](time.Minute, 10)
	c.Set(buyer.UserID, domain.Cart{Total: 159.97})
	m := &counter{}

	svc := newService(cs, os, n, c, m)
	o, err := svc.Checkout(context.Background(), buyer)
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, 159.97, o.Total)
	require.Len(t, o.Items, 2)
	assert.Equal(t, 59.97, o.Items[1].Subtotal)
	assert.Equal(t, fixedNow, o.CreatedAt)
	assert.Equal(t, 1, m.n)
	_, cached := c.Get(buyer.UserID)
	assert.False(t, cached)
	cs.AssertExpectations(t)
	os.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestCheckout_EmptyCart(t *testing.T) {
	cs := &mockCartStore{}
	cs.On("ListByUser", mock.Anything, buyer.UserID).Return([]domain.CartLine{}, nil)
	os := &mockOrderStore{}

	_, err := newService(cs, os, nil, nil, nil).Checkout(context.Background(), buyer)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	os.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckout_OrderWriteFailureKeepsCart(t *testing.T) {
	cs := &mockCartStore{}
	cs.On("ListByUser", mock.Anything, buyer.UserID).Return([]domain.CartLine{{ProductID: "p1", Quantity: 1, PriceAtAdd: 1}}, nil)
	os := &mockOrderStore{}
	os.On("Create", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	_, err := newService(cs, os, nil, nil, nil).Checkout(context.Background(), buyer)
	require.Error(t, err)
	cs.AssertNotCalled(t, "DeleteLines", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckout_PartialCartClearDoesNotFail(t *testing.T) {
	cs := &mockCartStore{}
	cs.On("ListByUser", mock.Anything, buyer.UserID).Return([]domain.CartLine{{ProductID: "p1", Quantity: 1, PriceAtAdd: 1}}, nil)
	cs.On("DeleteLines", mock.Anything, buyer.UserID, []string{"p1"}).
		Return(dynamo.BatchResult{}, dynamo.ErrPartialBatch)
	os := &mockOrderStore{}
	os.On("Create", mock.Anything, mock.Anything).Return(nil)

	o, err := newService(cs, os, nil, nil, nil).Checkout(context.Background(), buyer)
	require.NoError(t, err)
	assert.Equal(t, "01HZXORDER", o.OrderID)
}

func TestCheckout_NotificationFailureDoesNotFail(t *testing.T) {
	cs := &mockCartStore{}
	cs.On("ListByUser", mock.Anything, buyer.UserID).Return([]domain.CartLine{{ProductID: "p1", Quantity: 1, PriceAtAdd: 1}}, nil)
	cs.On("DeleteLines", mock.Anything, mock.Anything, mock.Anything).Return(dynamo.BatchResult{Processed: 1}, nil)
	os := &mockOrderStore{}
	os.On("Create", mock.Anything, mock.Anything).Return(nil)
	n := &mockNotifier{}
	n.On("OrderConfirmed", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newService(cs, os, n, nil, nil)
	_, err := svc.Checkout(context.Background(), buyer)
	require.NoError(t, err)
	svc.Wait()
	n.AssertExpectations(t)
}

func TestCheckout_NotificationOutlivesRequestContext(t *testing.T) {
	cs := &mockCartStore{}
	cs.On("ListByUser", mock.Anything, buyer.UserID).Return([]domain.CartLine{{ProductID: "p1", Quantity: 1, PriceAtAdd: 1}}, nil)
	cs.On("DeleteLines", mock.Anything, mock.Anything, mock.Anything).Return(dynamo.BatchResult{Processed: 1}, nil)
	os := &mockOrderStore{}
	os.On("Create", mock.Anything, mock.Anything).Return(nil)
	n := &mockNotifier{}
	n.On("OrderConfirmed", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	svc := newService(cs, os, n, nil, nil)
	svc.notifier = slowNotifier{inner: n}
	_, err := svc.Checkout(ctx, buyer)
	require.NoError(t, err)
	cancel()
	svc.Wait()
	n.AssertExpectations(t)
}

func TestCheckout_ClientDisconnectStillClearsCart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cs := &mockCartStore{}
	cs.On("ListByUser", mock.Anything, buyer.UserID).Return([]domain.CartLine{{ProductID: "p1", Quantity: 1, PriceAtAdd: 1}}, nil)
	var clearErr error
	cs.On("DeleteLines", mock.Anything, buyer.UserID, []string{"p1"}).
		Run(func(args mock.Arguments) { clearErr = args.Get(0).(context.Context).Err() }).
		Return(dynamo.BatchResult{Processed: 1}, nil)
	os := &mockOrderStore{}
	os.On("Create", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil)

	_, err := newService(cs, os, nil, nil, nil).Checkout(ctx, buyer)
	require.NoError(t, err)
	assert.NoError(t, clearErr)
	cs.AssertExpectations(t)
}

// slowNotifier delays so the request context is cancelled before the send.
type slowNotifier struct{ inner *mockNotifier }

func (s slowNotifier) OrderConfirmed(ctx context.Context, b domain.Identity, o domain.Order) error {
	time.Sleep(20 * time.Millisecond)
	return s.inner.OrderConfirmed(ctx, b, o)
}

// --- ListOrders / GetOrder ---

func TestListOrders_PageSize(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"default", 0, 20},
		{"within range", 5, 5},
		{"clamped", 500, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os := &mockOrderStore{}
			os.On("ListByUser", mock.Anything, "u1", tt.want, "cur").Return(nil, "next", nil)

			page, err := newService(&mockCartStore{}, os, nil, nil, nil).ListOrders(context.Background(), "u1", tt.requested, "cur")
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.PageSize)
			assert.Equal(t, "next", page.CursorNext)
			assert.NotNil(t, page.Items)
		})
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	os := &mockOrderStore{}
	os.On("Get", mock.Anything, "u1", "nope").Return(nil, domain.ErrNotFound)

	_, err := newService(&mockCartStore{}, os, nil, nil, nil).GetOrder(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
