package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/salle-pos/api/internal/database"
	"github.com/salle-pos/api/internal/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DishStore defines the database methods needed by dish handlers.
type DishStore interface {
	ListDishes(ctx context.Context) ([]database.Dish, error)
	CreateDish(ctx context.Context, arg database.CreateDishParams) (database.Dish, error)
	UpdateDishAvailability(ctx context.Context, arg database.UpdateDishAvailabilityParams) (database.Dish, error)
	ListCategories(ctx context.Context) ([]database.Category, error)
}

// DishHandler handles dish and category endpoints.
type DishHandler struct {
	store  DishStore
	events EventBroadcaster
}

// NewDishHandler creates a new DishHandler.
func NewDishHandler(store DishStore, events EventBroadcaster) *DishHandler {
	return &DishHandler{store: store, events: events}
}

// RegisterCategoryRoutes registers category endpoints.
func (h *DishHandler) RegisterCategoryRoutes(r chi.Router) {
	r.Get("/", h.ListCategories)
}

// --- Request / Response types ---

type createDishRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	CategoryID  string `json:"category_id"`
}

type updateAvailabilityRequest struct {
	Available *bool `json:"available"`
}

type dishResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Price       string     `json:"price"`
	Available   bool       `json:"available"`
	CategoryID  *uuid.UUID `json:"category_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type categoryResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// --- Handlers ---

// List handles GET /dishes. Unavailable dishes are included: historical order
// lines may still reference them and staff need to see what is toggled off.
func (h *DishHandler) List(w http.ResponseWriter, r *http.Request) {
	dishes, err := h.store.ListDishes(r.Context())
	if err != nil {
		logger.Error("list dishes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]dishResponse, len(dishes))
	for i, d := range dishes {
		resp[i] = dbDishToResponse(d)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"dishes": resp})
}

// Create handles POST /dishes (manager only, enforced by route middleware).
func (h *DishHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	categoryID := pgtype.UUID{}
	if req.CategoryID != "" {
		cid, err := uuid.Parse(req.CategoryID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		categoryID = pgtype.UUID{Bytes: cid, Valid: true}
	}

	description := pgtype.Text{}
	if req.Description != "" {
		description = pgtype.Text{String: req.Description, Valid: true}
	}

	var priceNumeric pgtype.Numeric
	_ = priceNumeric.Scan(price.StringFixed(2))

	dish, err := h.store.CreateDish(r.Context(), database.CreateDishParams{
		Name:        req.Name,
		Description: description,
		Price:       priceNumeric,
		CategoryID:  categoryID,
	})
	if err != nil {
		logger.Error("create dish", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, dbDishToResponse(dish))
}

// UpdateAvailability handles PATCH /dishes/{id}/availability.
// Kitchen toggles a dish off when it runs out; new basket additions of an
// unavailable dish are rejected client-side and again at order creation.
func (h *DishHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	dishID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dish ID")
		return
	}

	var req updateAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Available == nil {
		writeError(w, http.StatusBadRequest, "available is required")
		return
	}

	dish, err := h.store.UpdateDishAvailability(r.Context(), database.UpdateDishAvailabilityParams{
		ID:        dishID,
		Available: *req.Available,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "dish not found")
			return
		}
		logger.Error("update dish availability", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := dbDishToResponse(dish)
	if h.events != nil {
		h.events.Broadcast("dish.updated", resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListCategories handles GET /categories.
func (h *DishHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		logger.Error("list categories", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]categoryResponse, len(cats))
	for i, c := range cats {
		resp[i] = categoryResponse{ID: c.ID, Name: c.Name}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": resp})
}

func dbDishToResponse(d database.Dish) dishResponse {
	resp := dishResponse{
		ID:        d.ID,
		Name:      d.Name,
		Price:     numericToString(d.Price),
		Available: d.Available,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Description.Valid {
		resp.Description = &d.Description.String
	}
	if d.CategoryID.Valid {
		id := uuid.UUID(d.CategoryID.Bytes)
		resp.CategoryID = &id
	}
	return resp
}
