// Package api exposes the order service over HTTP.
package api

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/metric"

	"github.com/oakmart/orderd/internal/domain/auth"
	"github.com/oakmart/orderd/internal/domain/order"
)

// OrderService is the slice of the order service the HTTP layer needs.
type OrderService interface {
	Create(ctx context.Context, userID int64, req order.CreateRequest) (*order.Order, error)
	CreateFromCart(ctx context.Context, userID int64, req order.CreateFromCartRequest) (*order.Order, error)
	Cancel(ctx context.Context, userID, orderID int64, reason string) (*order.Order, error)
	List(ctx context.Context, userID int64, q order.ListQuery) (*order.Page, error)
	Get(ctx context.Context, userID, orderID int64) (*order.Order, error)
}

// Handler routes order API requests, delegating business logic to the
// injected service.
type Handler struct {
	orders  OrderService
	apikeys auth.Repository
	pepper  string
	metrics metrics
}

// NewHandler constructs a Handler. pepper is the HMAC secret for API key
// hashing.
func NewHandler(orders OrderService, apikeys auth.Repository, pepper string, meter metric.Meter) (*Handler, error) {
	m, err := newMetrics(meter)
	if err != nil {
		return nil, err
	}
	return &Handler{
		orders:  orders,
		apikeys: apikeys,
		pepper:  pepper,
		metrics: m,
	}, nil
}

// Routes returns the API route tree with authentication applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("POST /api/orders/from-cart", h.createOrderFromCart)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/cancel", h.cancelOrder)
	return h.authenticate(mux)
}
