package order

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/infrastructure/dynamo"
	"github.com/go-shop-nosql/internal/pkg/cache"
	"github.com/go-shop-nosql/internal/pkg/id"
	"github.com/go-shop-nosql/internal/pkg/logging"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50

	defaultNotifyTimeout = 10 * time.Second
)

type Service interface {
	Checkout(ctx context.Context, buyer domain.Identity) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string, pageSize int, cursor string) (*domain.OrderPage, error)
	GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error)
	// Wait blocks until in-flight confirmation emails have been attempted.
	Wait()
}

type cartStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error)
	DeleteLines(ctx context.Context, userID string, productIDs []string) (dynamo.BatchResult, error)
}

type orderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, userID, orderID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, limit int, cursor string) ([]domain.Order, string, error)
}

type notifier interface {
	OrderConfirmed(ctx context.Context, buyer domain.Identity, o domain.Order) error
}

type orderMetrics interface {
	OrderCreated()
}

type service struct {
	carts         cartStore
	orders        orderStore
	notifier      notifier
	cartCache     *cache.TTL[string, domain.Cart]
	metrics       orderMetrics
	notifyTimeout time.Duration
	now           func() time.Time
	newID         func() string

	wg sync.WaitGroup
}

type ServiceDeps struct {
	CartRepo  cartStore
	OrderRepo orderStore
	Notifier  notifier
	// CartCache is the cart service's cache; checkout invalidates the buyer's entry.
	CartCache     *cache.TTL[string, domain.Cart]
	Metrics       orderMetrics
	NotifyTimeout time.Duration
}

func NewService(deps ServiceDeps) Service {
	timeout := deps.NotifyTimeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &service{
		carts:         deps.CartRepo,
		orders:        deps.OrderRepo,
		notifier:      deps.Notifier,
		cartCache:     deps.CartCache,
		metrics:       deps.Metrics,
		notifyTimeout: timeout,
		now:           time.Now,
		newID:         id.New,
	}
}

// Checkout snapshots the cart into an order priced at each line's PriceAtAdd, then clears the cart.
// The order is written before the cart is cleared; a failure while clearing is logged, not returned.
// Store calls run detached from the caller: a client that disconnects mid-checkout does not
// leave an order behind with its cart still full.
func (s *service) Checkout(ctx context.Context, buyer domain.Identity) (*domain.Order, error) {
	ctx = context.WithoutCancel(ctx)
	log := logging.FromContext(ctx)

	lines, err := s.carts.ListByUser(ctx, buyer.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	o := &domain.Order{
		UserID:    buyer.UserID,
		OrderID:   s.newID(),
		Items:     make([]domain.OrderItem, 0, len(lines)),
		Status:    domain.OrderStatusCreated,
		CreatedAt: s.now().UTC(),
	}
	productIDs := make([]string, 0, len(lines))
	for _, l := range lines {
		subtotal := roundCents(float64(l.Quantity) * l.PriceAtAdd)
		o.Items = append(o.Items, domain.OrderItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.PriceAtAdd,
			Subtotal:  subtotal,
		})
		o.Total += subtotal
		productIDs = append(productIDs, l.ProductID)
	}
	o.Total = roundCents(o.Total)

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.OrderCreated()
	}
	log.Info("order_created", zap.String("orderId", o.OrderID), zap.Float64("total", o.Total), zap.Int("items", len(o.Items)))

	res, err := s.carts.DeleteLines(ctx, buyer.UserID, productIDs)
	if err != nil {
		log.Error("cart_clear_incomplete",
			zap.String("orderId", o.OrderID),
			zap.Int("processed", res.Processed),
			zap.Int("unprocessed", len(res.Unprocessed)),
			zap.Error(err))
	}
	s.cartCache.Delete(buyer.UserID)

	s.notify(ctx, buyer, *o)
	return o, nil
}

// notify sends the confirmation in the background. The send outlives the request
// but is bounded by notifyTimeout.
func (s *service) notify(ctx context.Context, buyer domain.Identity, o domain.Order) {
	if s.notifier == nil {
		return
	}
	log := logging.FromContext(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.OrderConfirmed(nctx, buyer, o); err != nil {
			log.Warn("order_confirmation_email_failed", zap.String("orderId", o.OrderID), zap.Error(err))
			return
		}
		log.Info("order_confirmation_email_sent", zap.String("orderId", o.OrderID))
	}()
}

func (s *service) Wait() { s.wg.Wait() }

func (s *service) ListOrders(ctx context.Context, userID string, pageSize int, cursor string) (*domain.OrderPage, error) {
	pageSize = clampPageSize(pageSize)
	orders, next, err := s.orders.ListByUser(ctx, userID, pageSize, cursor)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &domain.OrderPage{Items: orders, PageSize: pageSize, CursorNext: next}, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	return s.orders.Get(ctx, userID, orderID)
}

func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
