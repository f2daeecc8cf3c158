package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Order struct {
	ID            uuid.UUID
	OrderNumber   string
	TableID       pgtype.UUID
	DinerID       pgtype.UUID
	OrderType     string
	Status        string
	Note          pgtype.Text
	RefusalReason pgtype.Text
	PaymentMethod pgtype.Text
	TotalAmount   pgtype.Numeric
	CreatedBy     uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderLine struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	DishID    uuid.UUID
	DishName  string
	Quantity  int32
	UnitPrice pgtype.Numeric
	Note      pgtype.Text
}

type Dish struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	Available   bool
	CategoryID  pgtype.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Category struct {
	ID   uuid.UUID
	Name string
}

type Table struct {
	ID       uuid.UUID
	Number   string
	Capacity int32
	Status   string
}

type User struct {
	ID             uuid.UUID
	Username       string
	FullName       string
	HashedPassword string
	Role           string
	Active         bool
	CreatedAt      time.Time
}
