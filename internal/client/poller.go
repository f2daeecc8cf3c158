package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/salle-pos/api/internal/enum"
	"github.com/salle-pos/api/internal/logger"
	"go.uber.org/zap"
)

// Synchronizer keeps the local order cache aligned with the server until its
// context is cancelled. Poller and Pusher both satisfy it.
type Synchronizer interface {
	Run(ctx context.Context)
}

// OrdersLister is the remote surface a poller reads through.
// Satisfied by *Client.
type OrdersLister interface {
	ListOrders(ctx context.Context, opts ListOrdersOptions) ([]Order, error)
}

// pollPageSize is the page size used when refreshing the full order set.
const pollPageSize = 200

// fetchAllOrders pages through the listing until a short page. Relying on the
// server's default page would silently cap the cache and the attention counts.
func fetchAllOrders(ctx context.Context, api OrdersLister) ([]Order, error) {
	var all []Order
	for offset := 0; ; offset += pollPageSize {
		page, err := api.ListOrders(ctx, ListOrdersOptions{Limit: pollPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pollPageSize {
			return all, nil
		}
	}
}

// PollInterval returns the refresh cadence for a role. The kitchen sees new
// work soonest; the manager view is the most relaxed.
func PollInterval(role string) time.Duration {
	switch role {
	case enum.RoleCook:
		return 3 * time.Second
	case enum.RoleWaiter:
		return 5 * time.Second
	case enum.RoleDiner:
		return 10 * time.Second
	case enum.RoleManager:
		return 20 * time.Second
	default:
		return 10 * time.Second
	}
}

// AttentionStatus returns the order status that demands the role's attention,
// or "" when the role has none. Waiters act on orders awaiting validation,
// cooks on validated orders, diners on served ones.
func AttentionStatus(role string) string {
	switch role {
	case enum.RoleWaiter:
		return enum.OrderStatusPendingValidation
	case enum.RoleCook:
		return enum.OrderStatusValidated
	case enum.RoleDiner:
		return enum.OrderStatusServed
	default:
		return ""
	}
}

// attentionTracker decides when to notify about pending work. It fires only
// when the count rises above what was last seen; the first observation primes
// the baseline silently, and a falling count never notifies.
type attentionTracker struct {
	mu     sync.Mutex
	primed bool
	last   int
}

// observe records a count and reports whether to notify.
func (t *attentionTracker) observe(count int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	notify := t.primed && count > t.last
	t.primed = true
	t.last = count
	return notify
}

// Poller refreshes the order cache on a fixed cadence. Ticks that arrive
// while a refresh is still running are skipped rather than queued, and a
// response landing after cancellation is discarded.
type Poller struct {
	api      OrdersLister
	cache    *OrderCache
	role     string
	interval time.Duration

	busy    atomic.Bool
	tracker attentionTracker

	// notify is called with the attention count when it rises. Optional.
	notify func(count int)
}

// NewPoller creates a Poller for the role, using the role's default interval.
func NewPoller(api OrdersLister, cache *OrderCache, role string) *Poller {
	return &Poller{
		api:      api,
		cache:    cache,
		role:     role,
		interval: PollInterval(role),
	}
}

// OnAttention registers a callback for rising attention counts.
func (p *Poller) OnAttention(fn func(count int)) {
	p.notify = fn
}

// SetInterval overrides the role's default cadence.
func (p *Poller) SetInterval(d time.Duration) {
	p.interval = d
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (p *Poller) Run(ctx context.Context) {
	p.PollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce performs a single refresh. It returns immediately if a previous
// refresh is still in flight.
func (p *Poller) PollOnce(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		return
	}
	defer p.busy.Store(false)

	orders, err := fetchAllOrders(ctx, p.api)
	if ctx.Err() != nil {
		// Torn down mid-request; a late response must not repopulate the cache.
		return
	}
	if err != nil {
		logger.Warn("poll orders", zap.String("role", p.role), zap.Error(err))
		return
	}

	p.cache.ReplaceAll(orders)

	status := AttentionStatus(p.role)
	if status == "" {
		return
	}
	count := p.cache.CountByStatus(status)
	if p.tracker.observe(count) && p.notify != nil {
		p.notify(count)
	}
}
