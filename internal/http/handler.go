package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

type CartService interface {
	AddOrIncrement(ctx context.Context, userID, productID string, delta int) (cart.Line, error)
	SetQuantity(ctx context.Context, lineID string, quantity int) (*cart.Line, error)
	Remove(ctx context.Context, lineID string) error
	ListForUser(ctx context.Context, userID string) ([]cart.Entry, error)
	Lines(ctx context.Context, userID string) ([]cart.Line, error)
	Line(ctx context.Context, lineID string) (cart.Line, error)
	Clear(ctx context.Context, userID string) (int64, error)
	Count(ctx context.Context, userID string) (int, error)
}

type OrderAssembler interface {
	CreateOrder(ctx context.Context, userID, phone, address string, lines []cart.Line) (*order.Order, error)
}

type OrderLifecycle interface {
	ListForUser(ctx context.Context, userID string) ([]order.Order, error)
	ListAll(ctx context.Context) ([]order.Order, error)
	Get(ctx context.Context, orderID string) (order.Order, error)
	GetItems(ctx context.Context, orderID string) ([]order.ItemView, error)
	DeleteOrder(ctx context.Context, orderID string) error
	SetStatus(ctx context.Context, orderID string, fulfilled bool) (order.Order, error)
	CountForUser(ctx context.Context, userID string) (int, error)
	CountAll(ctx context.Context) (int, error)
}

type IdempotencyGuard interface {
	Key(scope, userID, key string) string
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type ChangeFeed interface {
	Subscribe(f notify.Filter, buffer int) *notify.Subscription
}

type Deps struct {
	Cart      CartService
	Assembler OrderAssembler
	Orders    OrderLifecycle
	// Guard is optional; without it Idempotency-Key headers are ignored.
	Guard IdempotencyGuard
	Feed  ChangeFeed

	Logger         *zap.Logger
	RequestTimeout time.Duration
	AllowOrigins   []string
}

type Handler struct {
	cart      CartService
	assembler OrderAssembler
	orders    OrderLifecycle
	guard     IdempotencyGuard
	feed      ChangeFeed

	logger   *zap.Logger
	timeout  time.Duration
	tracer   trace.Tracer
	upgrader websocket.Upgrader
}

func NewHandler(d Deps) *Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cart:      d.Cart,
		assembler: d.Assembler,
		orders:    d.Orders,
		guard:     d.Guard,
		feed:      d.Feed,
		logger:    logger,
		timeout:   timeout,
		tracer:    otel.Tracer("storefront-http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(d.AllowOrigins),
		},
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "storefront-go",
	})
}

func (h *Handler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}
