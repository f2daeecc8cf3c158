package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/salle-pos/api/internal/database"
	"github.com/salle-pos/api/internal/enum"
	"github.com/salle-pos/api/internal/logger"
	"go.uber.org/zap"
)

// TableStore defines the database methods needed by table handlers.
type TableStore interface {
	ListTables(ctx context.Context) ([]database.Table, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
}

// TableHandler handles table endpoints.
type TableHandler struct {
	store TableStore
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore) *TableHandler {
	return &TableHandler{store: store}
}

type tableResponse struct {
	ID       uuid.UUID `json:"id"`
	Number   string    `json:"number"`
	Capacity int32     `json:"capacity"`
	Status   string    `json:"status"`
}

type updateTableStatusRequest struct {
	Status string `json:"status"`
}

// List handles GET /tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		logger.Error("list tables", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = tableResponse{ID: t.ID, Number: t.Number, Capacity: t.Capacity, Status: t.Status}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tables": resp})
}

// UpdateStatus handles PATCH /tables/{id}/status. Occupancy is set manually
// by staff; it is correlated with open orders but not coupled to them.
func (h *TableHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	var req updateTableStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !isValidTableStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	table, err := h.store.UpdateTableStatus(r.Context(), database.UpdateTableStatusParams{
		ID:     tableID,
		Status: req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		logger.Error("update table status", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, tableResponse{ID: table.ID, Number: table.Number, Capacity: table.Capacity, Status: table.Status})
}

func isValidTableStatus(s string) bool {
	switch s {
	case enum.TableStatusFree, enum.TableStatusOccupied, enum.TableStatusReserved:
		return true
	}
	return false
}
