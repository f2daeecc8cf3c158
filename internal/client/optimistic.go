package client

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/salle-pos/api/internal/lifecycle"
)

var (
	// ErrMutationPending means another mutation for the same entity is still
	// in flight; the caller should wait for it to settle.
	ErrMutationPending = errors.New("mutation already in flight for this entity")

	// ErrOrderNotCached means the order is unknown locally; sync first.
	ErrOrderNotCached = errors.New("order not in local cache")
)

// OrderAPI is the remote surface the controller mutates through.
// Satisfied by *Client; narrow interface for testability.
type OrderAPI interface {
	CreateOrder(ctx context.Context, payload CreateOrderPayload) (*Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	Transition(ctx context.Context, orderID uuid.UUID, action lifecycle.Action, opts TransitionOptions) (*Order, error)
	SetDishAvailability(ctx context.Context, dishID uuid.UUID, available bool) (*Dish, error)
}

// Controller applies mutations optimistically: the local cache moves first,
// then the server either confirms with the canonical record or the cache is
// rolled back to the pre-mutation snapshot. At most one mutation per entity
// is in flight at a time.
type Controller struct {
	api    OrderAPI
	orders *OrderCache
	dishes *DishCache
	role   string

	mu       sync.Mutex
	inflight map[uuid.UUID]bool

	// onStale is called after a conflict rollback, once the fresh record has
	// been refetched into the cache. Optional.
	onStale func(orderID uuid.UUID)
}

// NewController creates a Controller acting as the given role.
func NewController(api OrderAPI, orders *OrderCache, dishes *DishCache, role string) *Controller {
	return &Controller{
		api:      api,
		orders:   orders,
		dishes:   dishes,
		role:     role,
		inflight: make(map[uuid.UUID]bool),
	}
}

// OnStale registers a callback invoked after a conflict is resolved by
// refetching the order.
func (c *Controller) OnStale(fn func(orderID uuid.UUID)) {
	c.onStale = fn
}

// EnabledActions returns the actions this controller's role can currently
// offer for the cached order, derived from the transition table. An order
// not in the cache has no actions.
func (c *Controller) EnabledActions(orderID uuid.UUID) []lifecycle.Action {
	order, ok := c.orders.Get(orderID)
	if !ok {
		return nil
	}
	return lifecycle.EnabledActions(order.Status, c.role)
}

func (c *Controller) acquire(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[id] {
		return false
	}
	c.inflight[id] = true
	return true
}

func (c *Controller) release(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)
}

// Transition performs one action on an order. The cache is moved to the
// predicted next status immediately; the server response then replaces it
// with the canonical record, or the snapshot is restored on failure. A 409
// additionally refetches the order so the UI re-derives actions from the
// real status.
func (c *Controller) Transition(ctx context.Context, orderID uuid.UUID, action lifecycle.Action, opts TransitionOptions) (*Order, error) {
	snapshot, ok := c.orders.Get(orderID)
	if !ok {
		return nil, ErrOrderNotCached
	}

	// Predict locally before touching the network. A prediction failure
	// (wrong role, wrong status) means the server would refuse too.
	next, err := lifecycle.Apply(snapshot.Status, c.role, action)
	if err != nil {
		return nil, err
	}

	if !c.acquire(orderID) {
		return nil, ErrMutationPending
	}
	defer c.release(orderID)

	optimistic := snapshot
	optimistic.Status = next
	c.orders.Upsert(optimistic)

	canonical, err := c.api.Transition(ctx, orderID, action, opts)
	if err != nil {
		c.orders.Upsert(snapshot)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsConflict() {
			c.refetch(ctx, orderID)
		}
		return nil, err
	}

	c.orders.Upsert(*canonical)
	return canonical, nil
}

// SubmitOrder creates an order from the basket. The basket is cleared only
// after the server confirms; a failed submission keeps it intact.
func (c *Controller) SubmitOrder(ctx context.Context, basket *Basket, tableID, orderType, note string) (*Order, error) {
	payload, err := basket.ToOrderPayload(tableID, orderType, note)
	if err != nil {
		return nil, err
	}

	order, err := c.api.CreateOrder(ctx, payload)
	if err != nil {
		return nil, err
	}

	basket.Clear()
	c.orders.Upsert(*order)
	return order, nil
}

// ToggleDishAvailability flips a dish's availability optimistically.
func (c *Controller) ToggleDishAvailability(ctx context.Context, dishID uuid.UUID, available bool) (*Dish, error) {
	snapshot, ok := c.dishes.Get(dishID)
	if !ok {
		return nil, ErrOrderNotCached
	}

	if !c.acquire(dishID) {
		return nil, ErrMutationPending
	}
	defer c.release(dishID)

	optimistic := snapshot
	optimistic.Available = available
	c.dishes.Upsert(optimistic)

	canonical, err := c.api.SetDishAvailability(ctx, dishID, available)
	if err != nil {
		c.dishes.Upsert(snapshot)
		return nil, err
	}

	c.dishes.Upsert(*canonical)
	return canonical, nil
}

func (c *Controller) refetch(ctx context.Context, orderID uuid.UUID) {
	fresh, err := c.api.GetOrder(ctx, orderID)
	if err != nil {
		return
	}
	c.orders.Upsert(*fresh)
	if c.onStale != nil {
		c.onStale(orderID)
	}
}
