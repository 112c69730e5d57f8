package cart

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/pkg/cache"
	"github.com/go-shop-nosql/internal/pkg/logging"
	"github.com/go-shop-nosql/internal/pkg/validate"
	"go.uber.org/zap"
)

// CacheName labels the cart cache in metrics.
const CacheName = "cart"

type Service interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Add(ctx context.Context, userID string, req domain.AddCartItemRequest) (*domain.CartLine, error)
	Update(ctx context.Context, userID, productID string, req domain.UpdateCartItemRequest) (*domain.CartUpdate, error)
	Remove(ctx context.Context, userID, productID string) error
}

type cartStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error)
	AddQuantity(ctx context.Context, userID, productID string, qty int, price float64, now time.Time) (*domain.CartLine, error)
	SetQuantity(ctx context.Context, userID, productID string, qty int, now time.Time) (*domain.CartLine, error)
	Delete(ctx context.Context, userID, productID string) error
}

type productReader interface {
	Get(ctx context.Context, productID string) (*domain.Product, error)
	BatchGet(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

type cacheObserver interface {
	CacheLookup(cache string, hit bool)
}

type service struct {
	repo     cartStore
	products productReader
	cache    *cache.TTL[string, domain.Cart]
	metrics  cacheObserver
	now      func() time.Time
}

type ServiceDeps struct {
	CartRepo    cartStore
	ProductRepo productReader
	// Cache is keyed by user id and shared with checkout, which invalidates it. nil disables caching.
	Cache   *cache.TTL[string, domain.Cart]
	Metrics cacheObserver
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:     deps.CartRepo,
		products: deps.ProductRepo,
		cache:    deps.Cache,
		metrics:  deps.Metrics,
		now:      time.Now,
	}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	if s.cache.Enabled() {
		cached, ok := s.cache.Get(userID)
		s.observe(ok)
		if ok {
			logging.FromContext(ctx).Debug("cart_cache_hit", zap.String("userId", userID))
			return &cached, nil
		}
	}

	lines, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.BatchGet(ctx, ids)
	if err != nil {
		return nil, err
	}

	cart := domain.Cart{Items: make([]domain.CartItem, 0, len(lines))}
	for _, l := range lines {
		item := domain.CartItem{CartLine: l}
		if p, ok := products[l.ProductID]; ok {
			price, stock := p.Price, p.Stock
			item.Name, item.Image = p.Name, p.Image
			item.CurrentPrice, item.Stock = &price, &stock
		}
		cart.Items = append(cart.Items, item)
		cart.Total += float64(l.Quantity) * l.PriceAtAdd
	}
	cart.Total = roundCents(cart.Total)

	s.cache.Set(userID, cart)
	return &cart, nil
}

func (s *service) Add(ctx context.Context, userID string, req domain.AddCartItemRequest) (*domain.CartLine, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	defer s.cache.Delete(userID)

	p, err := s.products.Get(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}
	return s.repo.AddQuantity(ctx, userID, p.ProductID, qty, p.Price, s.now())
}

// Update sets the line quantity. A quantity <= 0 removes the line.
func (s *service) Update(ctx context.Context, userID, productID string, req domain.UpdateCartItemRequest) (*domain.CartUpdate, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	defer s.cache.Delete(userID)

	if *req.Quantity <= 0 {
		if err := s.repo.Delete(ctx, userID, productID); err != nil {
			return nil, err
		}
		return &domain.CartUpdate{Deleted: true}, nil
	}
	line, err := s.repo.SetQuantity(ctx, userID, productID, *req.Quantity, s.now())
	if err != nil {
		return nil, err
	}
	return &domain.CartUpdate{Line: line}, nil
}

func (s *service) Remove(ctx context.Context, userID, productID string) error {
	defer s.cache.Delete(userID)
	return s.repo.Delete(ctx, userID, productID)
}

func (s *service) observe(hit bool) {
	if s.metrics != nil {
		s.metrics.CacheLookup(CacheName, hit)
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
