package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/salle-pos/api/internal/database"
	"github.com/salle-pos/api/internal/enum"
	"github.com/salle-pos/api/internal/lifecycle"
	"github.com/shopspring/decimal"
)

// maxOrderNumberRetries bounds attempts when concurrent orders race for the
// same daily sequence number.
const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyLines         = errors.New("lines are required")
	ErrInvalidOrderType   = errors.New("invalid order_type")
	ErrInvalidQuantity    = errors.New("quantity must be >= 1")
	ErrDishNotFound       = errors.New("dish not found")
	ErrDishUnavailable    = errors.New("dish is not available")
	ErrTableRequired      = errors.New("table_id is required for dine-in orders")
	ErrInvalidDishID      = errors.New("invalid dish_id")
	ErrInvalidTableID     = errors.New("invalid table_id")
	ErrReasonRequired     = errors.New("reason is required to refuse an order")
	ErrInvalidPayMethod   = errors.New("invalid payment_method")
	ErrOrderNotFound      = errors.New("order not found")
	ErrRoleNotAllowed     = errors.New("role may not perform this action")
	ErrTransitionConflict = errors.New("order status changed, transition no longer valid")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the service needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context) (int32, error)
	GetDishForOrder(ctx context.Context, id uuid.UUID) (database.GetDishForOrderRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderLine(ctx context.Context, arg database.CreateOrderLineParams) (database.OrderLine, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderLinesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderLine, error)
	UpdateOrderStatusFrom(ctx context.Context, arg database.UpdateOrderStatusFromParams) (database.Order, error)
	RefuseOrder(ctx context.Context, arg database.RefuseOrderParams) (database.Order, error)
	PayOrder(ctx context.Context, arg database.PayOrderParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	TableID   string
	DinerID   string
	OrderType string
	Note      string
	CreatedBy uuid.UUID
	Lines     []CreateOrderLineRequest
}

// CreateOrderLineRequest is a single line in the order.
type CreateOrderLineRequest struct {
	DishID   string
	Quantity int32
	Note     string
}

// CreateOrderResult is the full created order with lines.
type CreateOrderResult struct {
	Order database.Order
	Lines []database.OrderLine
}

// TransitionRequest asks the status machine to move an order.
type TransitionRequest struct {
	OrderID       uuid.UUID
	Action        lifecycle.Action
	Role          string
	Reason        string
	PaymentMethod string
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService. store runs non-transactional
// queries; newStore builds a store bound to a transaction.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore}
}

// CreateOrder validates lines, snapshots unit prices, computes the total and
// inserts the order atomically. Unit prices are captured from the dish at
// creation time and never change afterwards, whatever happens to the menu.
// Retries up to maxOrderNumberRetries times on order_number unique constraint
// violations (race condition where concurrent transactions get the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if req.OrderType != enum.OrderTypeDineIn && req.OrderType != enum.OrderTypeTakeaway {
		return nil, ErrInvalidOrderType
	}
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	tableID := pgtype.UUID{}
	if req.TableID != "" {
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, ErrInvalidTableID
		}
		tableID = pgtype.UUID{Bytes: tid, Valid: true}
	} else if req.OrderType == enum.OrderTypeDineIn {
		return nil, ErrTableRequired
	}

	dinerID := pgtype.UUID{}
	if req.DinerID != "" {
		did, err := uuid.Parse(req.DinerID)
		if err != nil {
			return nil, fmt.Errorf("invalid diner_id: %w", err)
		}
		dinerID = pgtype.UUID{Bytes: did, Valid: true}
	}

	// Retry loop: handles order_number unique constraint race condition.
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, tableID, dinerID)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, tableID, dinerID pgtype.UUID) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	nextNum, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	// The date component keeps numbers unique across days; the sequence
	// restarts at 001 each morning.
	orderNumber := fmt.Sprintf("SAL-%s-%03d", time.Now().Format("20060102"), nextNum)

	// --- Validate lines and compute the total ---
	total := decimal.Zero
	type preparedLine struct {
		dishID    uuid.UUID
		quantity  int32
		unitPrice decimal.Decimal
		note      string
	}
	var prepared []preparedLine

	for i, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("lines[%d]: %w", i, ErrInvalidQuantity)
		}
		dishID, err := uuid.Parse(line.DishID)
		if err != nil {
			return nil, fmt.Errorf("lines[%d]: %w", i, ErrInvalidDishID)
		}

		dish, err := store.GetDishForOrder(ctx, dishID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("lines[%d]: %w", i, ErrDishNotFound)
			}
			return nil, fmt.Errorf("lines[%d]: get dish: %w", i, err)
		}
		if !dish.Available {
			return nil, fmt.Errorf("lines[%d]: %w", i, ErrDishUnavailable)
		}

		unitPrice := numericToDecimal(dish.Price)
		total = total.Add(unitPrice.Mul(decimal.NewFromInt32(line.Quantity)))

		prepared = append(prepared, preparedLine{
			dishID:    dishID,
			quantity:  line.Quantity,
			unitPrice: unitPrice,
			note:      line.Note,
		})
	}

	note := pgtype.Text{}
	if req.Note != "" {
		note = pgtype.Text{String: req.Note, Valid: true}
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber: orderNumber,
		TableID:     tableID,
		DinerID:     dinerID,
		OrderType:   req.OrderType,
		Note:        note,
		TotalAmount: decimalToNumeric(total),
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert lines ---
	var lines []database.OrderLine
	for _, pl := range prepared {
		lineNote := pgtype.Text{}
		if pl.note != "" {
			lineNote = pgtype.Text{String: pl.note, Valid: true}
		}
		l, err := store.CreateOrderLine(ctx, database.CreateOrderLineParams{
			OrderID:   order.ID,
			DishID:    pl.dishID,
			Quantity:  pl.quantity,
			UnitPrice: decimalToNumeric(pl.unitPrice),
			Note:      lineNote,
		})
		if err != nil {
			return nil, fmt.Errorf("create order line: %w", err)
		}
		lines = append(lines, l)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Lines: lines}, nil
}

// Transition moves an order through the status machine on behalf of a role.
// The role gate is checked up front; the from-status gate is enforced by a
// compare-and-swap update so a stale view can never clobber a transition that
// raced ahead of it. A swap miss surfaces as ErrTransitionConflict.
func (s *OrderService) Transition(ctx context.Context, req TransitionRequest) (*database.Order, error) {
	rule, ok := lifecycle.Lookup(req.Action)
	if !ok {
		return nil, lifecycle.ErrUnknownAction
	}
	if !lifecycle.RoleAllowed(req.Role, req.Action) {
		return nil, ErrRoleNotAllowed
	}

	store := s.store
	var (
		order database.Order
		err   error
	)

	switch req.Action {
	case lifecycle.ActionRefuse:
		if req.Reason == "" {
			return nil, ErrReasonRequired
		}
		order, err = store.RefuseOrder(ctx, database.RefuseOrderParams{
			ID:     req.OrderID,
			Reason: req.Reason,
		})
	case lifecycle.ActionPay:
		method := req.PaymentMethod
		if method == "" {
			method = enum.PaymentMethodCash
		}
		if !isValidPaymentMethod(method) {
			return nil, ErrInvalidPayMethod
		}
		order, err = store.PayOrder(ctx, database.PayOrderParams{
			ID:            req.OrderID,
			PaymentMethod: method,
			FromStatus:    rule.From,
		})
	default:
		order, err = store.UpdateOrderStatusFrom(ctx, database.UpdateOrderStatusFromParams{
			ID:         req.OrderID,
			Status:     rule.To,
			FromStatus: rule.From,
		})
	}

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The swap missed: either the order is unknown or its status
			// advanced between the client's read and this write.
			if _, getErr := store.GetOrder(ctx, req.OrderID); getErr != nil {
				if errors.Is(getErr, pgx.ErrNoRows) {
					return nil, ErrOrderNotFound
				}
				return nil, fmt.Errorf("get order after conflict: %w", getErr)
			}
			return nil, ErrTransitionConflict
		}
		return nil, fmt.Errorf("transition %s: %w", req.Action, err)
	}

	return &order, nil
}

// --- Helpers ---

func isValidPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodCash, enum.PaymentMethodCard, enum.PaymentMethodOnline:
		return true
	}
	return false
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
