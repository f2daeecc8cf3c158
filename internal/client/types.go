package client

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order mirrors the order resource as served by the API. Money fields are
// decimals on the wire (quoted strings) and stay decimals in memory.
type Order struct {
	ID            uuid.UUID       `json:"id"`
	OrderNumber   string          `json:"order_number"`
	TableID       *uuid.UUID      `json:"table_id"`
	DinerID       *uuid.UUID      `json:"diner_id"`
	OrderType     string          `json:"order_type"`
	Status        string          `json:"status"`
	Note          *string         `json:"note"`
	RefusalReason *string         `json:"refusal_reason"`
	PaymentMethod *string         `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Lines         []OrderLine     `json:"lines"`
}

// OrderLine is a single dish entry on an order with its price snapshot.
type OrderLine struct {
	ID        uuid.UUID       `json:"id"`
	DishID    uuid.UUID       `json:"dish_id"`
	DishName  string          `json:"dish_name"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Note      *string         `json:"note"`
}

// Dish is a menu entry.
type Dish struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Available   bool            `json:"available"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Category groups dishes on the menu.
type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Table is a dining table.
type Table struct {
	ID       uuid.UUID `json:"id"`
	Number   string    `json:"number"`
	Capacity int32     `json:"capacity"`
	Status   string    `json:"status"`
}

// User is an account as returned by the API (no password material).
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResult carries the token and the authenticated user.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}
