package client

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// OrderCache is the client-side view of orders, replaced wholesale on each
// sync and patched in place by optimistic mutations.
type OrderCache struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]Order
}

// NewOrderCache creates an empty cache.
func NewOrderCache() *OrderCache {
	return &OrderCache{orders: make(map[uuid.UUID]Order)}
}

// ReplaceAll swaps the cache contents for a fresh server snapshot.
func (c *OrderCache) ReplaceAll(orders []Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.orders = make(map[uuid.UUID]Order, len(orders))
	for _, o := range orders {
		c.orders[o.ID] = o
	}
}

// Upsert inserts or replaces a single order.
func (c *OrderCache) Upsert(o Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[o.ID] = o
}

// Get returns the cached order and whether it is present.
func (c *OrderCache) Get(id uuid.UUID) (Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.orders[id]
	return o, ok
}

// List returns all cached orders, newest first.
func (c *OrderCache) List() []Order {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Order, 0, len(c.orders))
	for _, o := range c.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// CountByStatus returns how many cached orders are in the given status.
func (c *OrderCache) CountByStatus(status string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, o := range c.orders {
		if o.Status == status {
			n++
		}
	}
	return n
}

// DishCache is the client-side view of the menu.
type DishCache struct {
	mu     sync.RWMutex
	dishes map[uuid.UUID]Dish
}

// NewDishCache creates an empty cache.
func NewDishCache() *DishCache {
	return &DishCache{dishes: make(map[uuid.UUID]Dish)}
}

// ReplaceAll swaps the cache contents for a fresh server snapshot.
func (c *DishCache) ReplaceAll(dishes []Dish) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dishes = make(map[uuid.UUID]Dish, len(dishes))
	for _, d := range dishes {
		c.dishes[d.ID] = d
	}
}

// Upsert inserts or replaces a single dish.
func (c *DishCache) Upsert(d Dish) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dishes[d.ID] = d
}

// Get returns the cached dish and whether it is present.
func (c *DishCache) Get(id uuid.UUID) (Dish, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.dishes[id]
	return d, ok
}

// List returns all cached dishes sorted by name.
func (c *DishCache) List() []Dish {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Dish, 0, len(c.dishes))
	for _, d := range c.dishes {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
