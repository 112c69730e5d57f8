package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/pkg/cache"
	"github.com/go-shop-nosql/internal/pkg/validate"
)

const (
	DefaultPageSize = 12

	listCacheName = "products_list"
	itemCacheName = "products_item"
)

type Service interface {
	List(ctx context.Context, q domain.ProductQuery) (*domain.ProductPage, error)
	GetByID(ctx context.Context, productID string) (*domain.Product, error)
}

type productStore interface {
	Get(ctx context.Context, productID string) (*domain.Product, error)
	ScanPage(ctx context.Context, q domain.ProductQuery) ([]domain.Product, string, error)
}

type cacheObserver interface {
	CacheLookup(cache string, hit bool)
}

type service struct {
	repo      productStore
	listCache *cache.TTL[string, domain.ProductPage]
	itemCache *cache.TTL[string, domain.Product]
	metrics   cacheObserver
}

type ServiceDeps struct {
	ProductRepo productStore
	ListCache   *cache.TTL[string, domain.ProductPage]
	ItemCache   *cache.TTL[string, domain.Product]
	Metrics     cacheObserver
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:      deps.ProductRepo,
		listCache: deps.ListCache,
		itemCache: deps.ItemCache,
		metrics:   deps.Metrics,
	}
}

// List returns one scan page matching q. Sort applies within the page only.
func (s *service) List(ctx context.Context, q domain.ProductQuery) (*domain.ProductPage, error) {
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if err := validate.Struct(&q); err != nil {
		return nil, err
	}
	if q.Min != nil && q.Max != nil && *q.Min > *q.Max {
		return nil, domain.NewValidationError("invalid query", domain.FieldIssue{Field: "min", Rule: "ltefield", Param: "max"})
	}

	key := cacheKey(q)
	if page, ok := s.listCache.Get(key); ok {
		s.observe(listCacheName, true)
		return &page, nil
	}
	s.observe(listCacheName, false)

	items, next, err := s.repo.ScanPage(ctx, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Product{}
	}
	sortPage(items, q.Sort)

	page := domain.ProductPage{Items: items, PageSize: q.PageSize, CursorNext: next}
	s.listCache.Set(key, page)
	return &page, nil
}

func (s *service) GetByID(ctx context.Context, productID string) (*domain.Product, error) {
	if p, ok := s.itemCache.Get(productID); ok {
		s.observe(itemCacheName, true)
		return &p, nil
	}
	s.observe(itemCacheName, false)

	p, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	s.itemCache.Set(productID, *p)
	return p, nil
}

func (s *service) observe(name string, hit bool) {
	if s.metrics != nil && (s.listCache.Enabled() || s.itemCache.Enabled()) {
		s.metrics.CacheLookup(name, hit)
	}
}

// cacheKey covers every parameter that changes the result.
func cacheKey(q domain.ProductQuery) string {
	intOrEmpty := func(p *int) string {
		if p == nil {
			return ""
		}
		return fmt.Sprint(*p)
	}
	return strings.Join([]string{
		q.Search, q.Category, intOrEmpty(q.Min), intOrEmpty(q.Max), q.Sort, fmt.Sprint(q.PageSize), q.Cursor,
	}, "|")
}

func sortPage(items []domain.Product, order string) {
	var cmp func(a, b domain.Product) int
	switch order {
	case domain.SortPriceAsc:
		cmp = func(a, b domain.Product) int { return compareFloat(a.Price, b.Price) }
	case domain.SortPriceDesc:
		cmp = func(a, b domain.Product) int { return compareFloat(b.Price, a.Price) }
	case domain.SortNameAsc:
		cmp = func(a, b domain.Product) int { return compareName(a.Name, b.Name) }
	case domain.SortNameDesc:
		cmp = func(a, b domain.Product) int { return compareName(b.Name, a.Name) }
	default:
		return
	}
	slices.SortStableFunc(items, cmp)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareName(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
