package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/salle-pos/api/internal/logger"
	"go.uber.org/zap"
)

// pushEvent mirrors the server's broadcast envelope.
type pushEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Pusher keeps the order cache current over a WebSocket instead of polling.
// It satisfies Synchronizer and applies the same attention semantics as the
// Poller. The initial snapshot still comes from one list call; the socket
// then patches the cache event by event.
type Pusher struct {
	api     OrdersLister
	cache   *OrderCache
	dishes  *DishCache
	role    string
	baseURL string
	token   string

	tracker attentionTracker
	notify  func(count int)
}

// NewPusher creates a Pusher. baseURL is the API's HTTP base URL; the
// WebSocket endpoint is derived from it.
func NewPusher(api OrdersLister, cache *OrderCache, dishes *DishCache, role, baseURL, token string) *Pusher {
	return &Pusher{
		api:     api,
		cache:   cache,
		dishes:  dishes,
		role:    role,
		baseURL: baseURL,
		token:   token,
	}
}

// OnAttention registers a callback for rising attention counts.
func (p *Pusher) OnAttention(fn func(count int)) {
	p.notify = fn
}

// Run connects and consumes events until ctx is cancelled, reconnecting
// with a flat backoff on failure.
func (p *Pusher) Run(ctx context.Context) {
	for {
		if err := p.runOnce(ctx); err != nil {
			logger.Warn("push sync", zap.String("role", p.role), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
	}
}

func (p *Pusher) runOnce(ctx context.Context) error {
	// Seed the cache with a full snapshot before trusting the event stream.
	orders, err := fetchAllOrders(ctx, p.api)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.cache.ReplaceAll(orders)
	p.observeAttention()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.wsURL(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		// Events may arrive batched, newline-separated.
		for _, raw := range strings.Split(string(data), "\n") {
			if raw == "" {
				continue
			}
			p.handle([]byte(raw))
		}
	}
}

func (p *Pusher) handle(data []byte) {
	var event pushEvent
	if err := json.Unmarshal(data, &event); err != nil {
		logger.Warn("decode push event", zap.Error(err))
		return
	}

	switch event.Type {
	case "order.created", "order.updated":
		var order Order
		if err := json.Unmarshal(event.Payload, &order); err != nil {
			logger.Warn("decode order event", zap.Error(err))
			return
		}
		p.cache.Upsert(order)
		p.observeAttention()

	case "dish.updated":
		if p.dishes == nil {
			return
		}
		var dish Dish
		if err := json.Unmarshal(event.Payload, &dish); err != nil {
			logger.Warn("decode dish event", zap.Error(err))
			return
		}
		p.dishes.Upsert(dish)
	}
}

func (p *Pusher) observeAttention() {
	status := AttentionStatus(p.role)
	if status == "" {
		return
	}
	count := p.cache.CountByStatus(status)
	if p.tracker.observe(count) && p.notify != nil {
		p.notify(count)
	}
}

func (p *Pusher) wsURL() string {
	u := strings.TrimRight(p.baseURL, "/")
	u = strings.Replace(u, "http://", "ws://", 1)
	u = strings.Replace(u, "https://", "wss://", 1)
	return u + "/ws/orders?token=" + url.QueryEscape(p.token)
}
