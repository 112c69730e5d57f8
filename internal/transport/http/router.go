package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-shop-nosql/internal/application/auth"
	"github.com/go-shop-nosql/internal/application/cart"
	"github.com/go-shop-nosql/internal/application/catalog"
	"github.com/go-shop-nosql/internal/application/notification"
	"github.com/go-shop-nosql/internal/application/order"
	"github.com/go-shop-nosql/internal/config"
	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/pkg/cache"
	"github.com/go-shop-nosql/internal/transport/http/handler"
	appmiddleware "github.com/go-shop-nosql/internal/transport/http/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	cartCacheEntries    = 10000
	productCacheEntries = 5000
	notifyTimeout       = 10 * time.Second
)

// Router is the assembled HTTP surface plus the pieces shutdown has to drain.
type Router struct {
	*chi.Mux
	orders  order.Service
	limiter *appmiddleware.RateLimiter
}

// Close stops the rate limiter's janitor and waits for in-flight confirmation emails.
func (r *Router) Close() {
	r.limiter.Stop()
	r.orders.Wait()
}

// NewRouter builds the services and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) *Router {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	cartCache := cache.New[string, domain.Cart](cfg.CartCacheTTL, cartCacheEntries)

	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:      deps.UserRepo,
		TokenProvider: deps.JWTProvider,
		Hasher:        deps.Hasher,
	})
	catalogSvc := catalog.NewService(catalog.ServiceDeps{
		ProductRepo: deps.ProductRepo,
		ListCache:   cache.New[string, domain.ProductPage](cfg.ProductsCacheTTL, productCacheEntries),
		ItemCache:   cache.New[string, domain.Product](cfg.ProductsCacheTTL, productCacheEntries),
		Metrics:     deps.Metrics,
	})
	cartSvc := cart.NewService(cart.ServiceDeps{
		CartRepo:    deps.CartRepo,
		ProductRepo: deps.ProductRepo,
		Cache:       cartCache,
		Metrics:     deps.Metrics,
	})
	notifySvc := notification.NewService(notification.ServiceDeps{
		Transport:     deps.Mailer,
		TransportName: transportName(cfg.EmailTransport),
		From:          cfg.EmailFrom,
		Metrics:       deps.Metrics,
		Logger:        log,
	})
	orderSvc := order.NewService(order.ServiceDeps{
		CartRepo:      deps.CartRepo,
		OrderRepo:     deps.OrderRepo,
		Notifier:      notifySvc,
		CartCache:     cartCache,
		Metrics:       deps.Metrics,
		NotifyTimeout: notifyTimeout,
	})

	pipe := appmiddleware.NewPipeline(authSvc, log, deps.Metrics)
	authRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.AuthRateLimit), cfg.AuthRateBurst, cfg.TrustedProxyHops)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	productH := handler.NewProductHandler(catalogSvc)
	cartH := handler.NewCartHandler(cartSvc)
	orderH := handler.NewOrderHandler(orderSvc)

	optional := func(h appmiddleware.Handler) http.Handler { return pipe.Handle(h, appmiddleware.AuthOptional) }
	required := func(h appmiddleware.Handler) http.Handler { return pipe.Handle(h, appmiddleware.AuthRequired) }

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appmiddleware.CorrelationHeader},
		ExposedHeaders:   []string{appmiddleware.CorrelationHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Method(http.MethodGet, "/health", optional(healthH.Check))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(authRL.Limit)
		r.Method(http.MethodPost, "/register", optional(authH.Register))
		r.Method(http.MethodPost, "/login", optional(authH.Login))
	})

	r.Method(http.MethodGet, "/products", optional(productH.List))
	r.Method(http.MethodGet, "/products/{id}", optional(productH.Get))

	r.Method(http.MethodGet, "/cart", required(cartH.Get))
	r.Method(http.MethodPost, "/cart/items", required(cartH.Add))
	r.Method(http.MethodPatch, "/cart/items/{productId}", required(cartH.Update))
	r.Method(http.MethodDelete, "/cart/items/{productId}", required(cartH.Remove))

	r.Method(http.MethodPost, "/checkout", required(orderH.Checkout))
	r.Method(http.MethodGet, "/orders", required(orderH.List))
	r.Method(http.MethodGet, "/orders/{orderId}", required(orderH.Get))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		appmiddleware.WriteJSON(w, http.StatusNotFound, appmiddleware.ErrorBody{Message: "route not found"})
	})

	return &Router{Mux: r, orders: orderSvc, limiter: authRL}
}

func transportName(name string) string {
	if name == "" {
		return "console"
	}
	return name
}
