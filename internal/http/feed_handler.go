package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
)

const (
	feedBuffer    = 16
	feedWriteWait = 5 * time.Second
)

// feedMessage is one badge update pushed to the client.
type feedMessage struct {
	Table string `json:"table"`
	Count int    `json:"count"`
}

type feedCounter struct {
	table string
	count func(ctx context.Context) (int, error)
}

// UserFeed streams the caller's cart and order counts over a WebSocket. The
// counts are sent once on connect and again after every change to the
// caller's rows.
func (h *Handler) UserFeed(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	h.serveFeed(w, r, notify.Filter{UserID: userID}, []feedCounter{
		{table: notify.TableCart, count: func(ctx context.Context) (int, error) { return h.cart.Count(ctx, userID) }},
		{table: notify.TableOrders, count: func(ctx context.Context) (int, error) { return h.orders.CountForUser(ctx, userID) }},
	})
}

// AdminFeed streams the total order count.
func (h *Handler) AdminFeed(w http.ResponseWriter, r *http.Request) {
	h.serveFeed(w, r, notify.Filter{Table: notify.TableOrders}, []feedCounter{
		{table: notify.TableOrders, count: h.orders.CountAll},
	})
}

func (h *Handler) serveFeed(w http.ResponseWriter, r *http.Request, filter notify.Filter, counters []feedCounter) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Debug("feed upgrade failed", zap.Error(err))
		return
	}

	sub := h.feed.Subscribe(filter, feedBuffer)

	// The client never sends anything we use; reading only detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		sub.Close()
		_ = conn.Close()
		<-gone
	}()

	send := func(c feedCounter) error {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		n, err := c.count(ctx)
		cancel()
		if err != nil {
			// a failed recount skips one update; the next change retries
			h.logger.Warn("feed count failed", zap.String("table", c.table), zap.Error(err))
			return nil
		}
		_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
		return conn.WriteJSON(feedMessage{Table: c.table, Count: n})
	}

	for _, c := range counters {
		if err := send(c); err != nil {
			return
		}
	}

	for {
		select {
		case <-gone:
			return
		case change, ok := <-sub.C():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(feedWriteWait))
				return
			}
			for _, c := range counters {
				if c.table != change.Table {
					continue
				}
				if err := send(c); err != nil {
					return
				}
			}
		}
	}
}

func checkOrigin(allow []string) func(r *http.Request) bool {
	allowAll := len(allow) == 0 || (len(allow) == 1 && allow[0] == "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, a := range allow {
			a = strings.TrimSpace(a)
			if strings.EqualFold(a, origin) || strings.EqualFold(a, u.Host) {
				return true
			}
		}
		return false
	}
}
