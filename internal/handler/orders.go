package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/salle-pos/api/internal/database"
	"github.com/salle-pos/api/internal/enum"
	"github.com/salle-pos/api/internal/lifecycle"
	"github.com/salle-pos/api/internal/logger"
	"github.com/salle-pos/api/internal/middleware"
	"github.com/salle-pos/api/internal/service"
	"go.uber.org/zap"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	Transition(ctx context.Context, req service.TransitionRequest) (*database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderLinesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderLine, error)
}

// EventBroadcaster pushes order events to connected clients. Satisfied by
// *ws.Hub; nil disables broadcasting.
type EventBroadcaster interface {
	Broadcast(eventType string, payload interface{})
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	store  OrderStore
	events EventBroadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, events EventBroadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, events: events}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// One POST route per status-machine transition: the wire contract mirrors the
// transition table rather than exposing a raw status setter.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Post("/{id}/approve", h.transition(lifecycle.ActionApprove))
	r.Post("/{id}/refuse", h.transition(lifecycle.ActionRefuse))
	r.Post("/{id}/start-preparation", h.transition(lifecycle.ActionStartPreparation))
	r.Post("/{id}/mark-ready", h.transition(lifecycle.ActionMarkReady))
	r.Post("/{id}/serve", h.transition(lifecycle.ActionServe))
	r.Post("/{id}/confirm-receipt", h.transition(lifecycle.ActionConfirmReceipt))
	r.Post("/{id}/pay", h.transition(lifecycle.ActionPay))
	r.Post("/{id}/cancel", h.transition(lifecycle.ActionCancel))
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableID   string                   `json:"table_id"`
	OrderType string                   `json:"order_type"`
	Note      string                   `json:"note"`
	Lines     []createOrderLineRequest `json:"lines"`
}

type createOrderLineRequest struct {
	DishID   string `json:"dish_id"`
	Quantity int32  `json:"quantity"`
	Note     string `json:"note"`
}

type transitionRequest struct {
	Reason        string `json:"reason"`
	PaymentMethod string `json:"payment_method"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	TableID       *uuid.UUID          `json:"table_id"`
	DinerID       *uuid.UUID          `json:"diner_id"`
	OrderType     string              `json:"order_type"`
	Status        string              `json:"status"`
	Note          *string             `json:"note"`
	RefusalReason *string             `json:"refusal_reason"`
	PaymentMethod *string             `json:"payment_method"`
	TotalAmount   string              `json:"total_amount"`
	CreatedBy     uuid.UUID           `json:"created_by"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Lines         []orderLineResponse `json:"lines"`
}

type orderLineResponse struct {
	ID        uuid.UUID `json:"id"`
	DishID    uuid.UUID `json:"dish_id"`
	DishName  string    `json:"dish_name"`
	Quantity  int32     `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	Note      *string   `json:"note"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OrderType == "" {
		req.OrderType = enum.OrderTypeDineIn
	}
	if len(req.Lines) == 0 {
		writeError(w, http.StatusBadRequest, "lines are required")
		return
	}
	for i, line := range req.Lines {
		if line.DishID == "" {
			writeError(w, http.StatusBadRequest, formatLineError(i, "dish_id is required"))
			return
		}
		if line.Quantity < 1 {
			writeError(w, http.StatusBadRequest, formatLineError(i, "quantity must be >= 1"))
			return
		}
	}

	svcLines := make([]service.CreateOrderLineRequest, len(req.Lines))
	for i, line := range req.Lines {
		svcLines[i] = service.CreateOrderLineRequest{
			DishID:   line.DishID,
			Quantity: line.Quantity,
			Note:     line.Note,
		}
	}

	// Diners own their orders; staff create walk-in orders with no diner.
	dinerID := ""
	if claims.Role == enum.RoleDiner {
		dinerID = claims.UserID.String()
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		TableID:   req.TableID,
		DinerID:   dinerID,
		OrderType: req.OrderType,
		Note:      req.Note,
		CreatedBy: claims.UserID,
		Lines:     svcLines,
	})
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("create order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := dbOrderToResponse(result.Order)
	resp.Lines = make([]orderLineResponse, len(result.Lines))
	for i, l := range result.Lines {
		resp.Lines[i] = dbOrderLineToResponse(l)
	}

	h.broadcast("order.created", resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /orders. Supports ?status= filtering and pagination; this
// is the endpoint the polling synchronizers hit.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 200 {
		limit = 200
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		logger.Error("list orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
		lines, err := h.store.ListOrderLinesByOrder(r.Context(), o.ID)
		if err != nil {
			logger.Error("list order lines", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		resp[i].Lines = make([]orderLineResponse, len(lines))
		for j, l := range lines {
			resp[i].Lines[j] = dbOrderLineToResponse(l)
		}
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		logger.Error("get order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	lines, err := h.store.ListOrderLinesByOrder(r.Context(), orderID)
	if err != nil {
		logger.Error("list order lines", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := dbOrderToResponse(order)
	resp.Lines = make([]orderLineResponse, len(lines))
	for i, l := range lines {
		resp.Lines[i] = dbOrderLineToResponse(l)
	}

	writeJSON(w, http.StatusOK, resp)
}

// transition builds the handler for one status-machine action. The acting
// role comes from the session claims, never from the request body.
func (h *OrderHandler) transition(action lifecycle.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid order ID")
			return
		}

		// Body is optional for most transitions.
		var req transitionRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		order, err := h.svc.Transition(r.Context(), service.TransitionRequest{
			OrderID:       orderID,
			Action:        action,
			Role:          claims.Role,
			Reason:        req.Reason,
			PaymentMethod: req.PaymentMethod,
		})
		if err != nil {
			switch {
			case errors.Is(err, service.ErrRoleNotAllowed):
				writeError(w, http.StatusForbidden, err.Error())
			case errors.Is(err, service.ErrOrderNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, service.ErrTransitionConflict):
				writeError(w, http.StatusConflict, err.Error())
			case errors.Is(err, service.ErrReasonRequired), errors.Is(err, service.ErrInvalidPayMethod):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, lifecycle.ErrUnknownAction):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				logger.Error("transition order", zap.String("action", string(action)), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		resp := dbOrderToResponse(*order)
		lines, err := h.store.ListOrderLinesByOrder(r.Context(), order.ID)
		if err == nil {
			resp.Lines = make([]orderLineResponse, len(lines))
			for i, l := range lines {
				resp.Lines[i] = dbOrderLineToResponse(l)
			}
		}

		h.broadcast("order.updated", resp)
		writeJSON(w, http.StatusOK, resp)
	}
}

// --- Helpers ---

func (h *OrderHandler) broadcast(eventType string, payload interface{}) {
	if h.events != nil {
		h.events.Broadcast(eventType, payload)
	}
}

func formatLineError(idx int, msg string) string {
	return "lines[" + strconv.Itoa(idx) + "]: " + msg
}

// isValidationError checks if the error is a known validation error from the
// service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyLines) ||
		errors.Is(err, service.ErrInvalidOrderType) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrDishNotFound) ||
		errors.Is(err, service.ErrDishUnavailable) ||
		errors.Is(err, service.ErrTableRequired) ||
		errors.Is(err, service.ErrInvalidDishID) ||
		errors.Is(err, service.ErrInvalidTableID)
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		OrderType:   o.OrderType,
		Status:      o.Status,
		TotalAmount: numericToString(o.TotalAmount),
		CreatedBy:   o.CreatedBy,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		Lines:       []orderLineResponse{},
	}

	if o.TableID.Valid {
		id := uuid.UUID(o.TableID.Bytes)
		resp.TableID = &id
	}
	if o.DinerID.Valid {
		id := uuid.UUID(o.DinerID.Bytes)
		resp.DinerID = &id
	}
	if o.Note.Valid {
		resp.Note = &o.Note.String
	}
	if o.RefusalReason.Valid {
		resp.RefusalReason = &o.RefusalReason.String
	}
	if o.PaymentMethod.Valid {
		resp.PaymentMethod = &o.PaymentMethod.String
	}

	return resp
}

func dbOrderLineToResponse(l database.OrderLine) orderLineResponse {
	resp := orderLineResponse{
		ID:        l.ID,
		DishID:    l.DishID,
		DishName:  l.DishName,
		Quantity:  l.Quantity,
		UnitPrice: numericToString(l.UnitPrice),
	}
	if l.Note.Valid {
		resp.Note = &l.Note.String
	}
	return resp
}
