package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/salle-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

var (
	ErrDishUnavailable = errors.New("dish is not available")
	ErrInvalidQuantity = errors.New("quantity must be >= 1")
	ErrEmptyBasket     = errors.New("basket is empty")
	ErrTableRequired   = errors.New("table is required for dine-in orders")
)

// BasketLine is one dish in the basket with the price seen at add time.
// The server re-snapshots prices at order creation; this one is for display.
type BasketLine struct {
	DishID    uuid.UUID       `json:"dish_id"`
	DishName  string          `json:"dish_name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int32           `json:"quantity"`
	Note      string          `json:"note,omitempty"`
}

// Basket aggregates dishes before order submission. Adding a dish already
// present merges into the existing line. Safe for concurrent use.
type Basket struct {
	mu    sync.Mutex
	lines []BasketLine
}

// NewBasket creates an empty basket.
func NewBasket() *Basket {
	return &Basket{}
}

// Add puts qty of the dish in the basket, merging with an existing line for
// the same dish. Unavailable dishes are rejected here so the problem surfaces
// at selection time rather than at submission.
func (b *Basket) Add(dish Dish, qty int32, note string) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if !dish.Available {
		return ErrDishUnavailable
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.lines {
		if b.lines[i].DishID == dish.ID {
			b.lines[i].Quantity += qty
			if note != "" {
				b.lines[i].Note = note
			}
			return nil
		}
	}

	b.lines = append(b.lines, BasketLine{
		DishID:    dish.ID,
		DishName:  dish.Name,
		UnitPrice: dish.Price,
		Quantity:  qty,
		Note:      note,
	})
	return nil
}

// Remove decrements the dish's quantity by one, dropping the line at zero.
// Removing a dish not in the basket is a no-op.
func (b *Basket) Remove(dishID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.lines {
		if b.lines[i].DishID == dishID {
			b.lines[i].Quantity--
			if b.lines[i].Quantity < 1 {
				b.lines = append(b.lines[:i], b.lines[i+1:]...)
			}
			return
		}
	}
}

// RemoveAll drops the dish's line entirely regardless of quantity.
func (b *Basket) RemoveAll(dishID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.lines {
		if b.lines[i].DishID == dishID {
			b.lines = append(b.lines[:i], b.lines[i+1:]...)
			return
		}
	}
}

// Lines returns a copy of the basket contents.
func (b *Basket) Lines() []BasketLine {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]BasketLine, len(b.lines))
	copy(out, b.lines)
	return out
}

// Count returns the total number of items (sum of quantities).
func (b *Basket) Count() int32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int32
	for _, l := range b.lines {
		n += l.Quantity
	}
	return n
}

// Total returns the basket total as a decimal.
func (b *Basket) Total() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := decimal.Zero
	for _, l := range b.lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity)))
	}
	return total
}

// Clear empties the basket.
func (b *Basket) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
}

// ToOrderPayload converts the basket into an order creation request.
// Dine-in orders need a table.
func (b *Basket) ToOrderPayload(tableID, orderType, note string) (CreateOrderPayload, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) == 0 {
		return CreateOrderPayload{}, ErrEmptyBasket
	}
	if orderType == "" {
		orderType = enum.OrderTypeDineIn
	}
	// Caught here so the mistake never reaches the network.
	if orderType == enum.OrderTypeDineIn && tableID == "" {
		return CreateOrderPayload{}, ErrTableRequired
	}

	payload := CreateOrderPayload{
		TableID:   tableID,
		OrderType: orderType,
		Note:      note,
		Lines:     make([]CreateOrderLineInput, len(b.lines)),
	}
	for i, l := range b.lines {
		payload.Lines[i] = CreateOrderLineInput{
			DishID:   l.DishID.String(),
			Quantity: l.Quantity,
			Note:     l.Note,
		}
	}
	return payload, nil
}

// BasketStore persists baskets across client restarts, keyed by session so
// concurrent sessions never see each other's basket.
type BasketStore interface {
	Load(session string) (*Basket, error)
	Save(session string, b *Basket) error
	Delete(session string) error
}

// FileStore persists baskets as JSON files under a directory, one per
// session. Suitable for a single-user terminal client.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(session string) string {
	return filepath.Join(s.dir, session+".json")
}

// Load reads the session's basket; a missing file yields an empty basket.
func (s *FileStore) Load(session string) (*Basket, error) {
	data, err := os.ReadFile(s.path(session))
	if err != nil {
		if os.IsNotExist(err) {
			return NewBasket(), nil
		}
		return nil, err
	}

	var lines []BasketLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, err
	}
	return &Basket{lines: lines}, nil
}

// Save writes the session's basket to disk.
func (s *FileStore) Save(session string, b *Basket) error {
	data, err := json.Marshal(b.Lines())
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(session), data, 0o644)
}

// Delete removes the session's persisted basket.
func (s *FileStore) Delete(session string) error {
	err := os.Remove(s.path(session))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemoryStore keeps baskets in memory, keyed by session. Used in tests and
// for short-lived clients.
type MemoryStore struct {
	mu      sync.Mutex
	baskets map[string][]BasketLine
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{baskets: make(map[string][]BasketLine)}
}

func (s *MemoryStore) Load(session string) (*Basket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.baskets[session]
	if !ok {
		return NewBasket(), nil
	}
	lines := make([]BasketLine, len(stored))
	copy(lines, stored)
	return &Basket{lines: lines}, nil
}

func (s *MemoryStore) Save(session string, b *Basket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baskets[session] = b.Lines()
	return nil
}

func (s *MemoryStore) Delete(session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.baskets, session)
	return nil
}
