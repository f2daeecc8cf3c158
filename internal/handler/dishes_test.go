package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/salle-pos/api/internal/database"
	"github.com/salle-pos/api/internal/enum"
	"github.com/salle-pos/api/internal/handler"
	"github.com/salle-pos/api/internal/middleware"
)

type mockDishStore struct {
	listDishesFn             func(ctx context.Context) ([]database.Dish, error)
	createDishFn             func(ctx context.Context, arg database.CreateDishParams) (database.Dish, error)
	updateDishAvailabilityFn func(ctx context.Context, arg database.UpdateDishAvailabilityParams) (database.Dish, error)
	listCategoriesFn         func(ctx context.Context) ([]database.Category, error)
}

func (m *mockDishStore) ListDishes(ctx context.Context) ([]database.Dish, error) {
	if m.listDishesFn != nil {
		return m.listDishesFn(ctx)
	}
	return []database.Dish{}, nil
}

func (m *mockDishStore) CreateDish(ctx context.Context, arg database.CreateDishParams) (database.Dish, error) {
	if m.createDishFn != nil {
		return m.createDishFn(ctx, arg)
	}
	return database.Dish{}, pgx.ErrNoRows
}

func (m *mockDishStore) UpdateDishAvailability(ctx context.Context, arg database.UpdateDishAvailabilityParams) (database.Dish, error) {
	if m.updateDishAvailabilityFn != nil {
		return m.updateDishAvailabilityFn(ctx, arg)
	}
	return database.Dish{}, pgx.ErrNoRows
}

func (m *mockDishStore) ListCategories(ctx context.Context) ([]database.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return []database.Category{}, nil
}

func setupDishRouter(store *mockDishStore, events *mockBroadcaster) *chi.Mux {
	h := handler.NewDishHandler(store, events)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/dishes", func(r chi.Router) {
		r.Get("/", h.List)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(enum.RoleManager))
			r.Post("/", h.Create)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(enum.RoleCook, enum.RoleManager))
			r.Patch("/{id}/availability", h.UpdateAvailability)
		})
	})
	return r
}

func TestDishList_IncludesUnavailable(t *testing.T) {
	store := &mockDishStore{
		listDishesFn: func(ctx context.Context) ([]database.Dish, error) {
			return []database.Dish{
				{ID: uuid.New(), Name: "Burger", Price: testNumeric("12.00"), Available: true},
				{ID: uuid.New(), Name: "Special", Price: testNumeric("20.00"), Available: false},
			}, nil
		},
	}

	router := setupDishRouter(store, nil)
	rr := doAuthRequest(t, router, "GET", "/dishes", nil, testClaims(enum.RoleDiner))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	dishes, ok := resp["dishes"].([]interface{})
	if !ok || len(dishes) != 2 {
		t.Fatalf("expected 2 dishes, got %v", resp["dishes"])
	}
}

func TestDishCreate_RequiresManager(t *testing.T) {
	router := setupDishRouter(&mockDishStore{}, nil)

	rr := doAuthRequest(t, router, "POST", "/dishes", map[string]string{
		"name":  "Soup",
		"price": "7.50",
	}, testClaims(enum.RoleWaiter))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestDishCreate_BadPrice(t *testing.T) {
	router := setupDishRouter(&mockDishStore{}, nil)

	rr := doAuthRequest(t, router, "POST", "/dishes", map[string]string{
		"name":  "Soup",
		"price": "free",
	}, testClaims(enum.RoleManager))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestDishAvailability_CookCanToggle(t *testing.T) {
	dishID := uuid.New()
	store := &mockDishStore{
		updateDishAvailabilityFn: func(ctx context.Context, arg database.UpdateDishAvailabilityParams) (database.Dish, error) {
			if arg.ID != dishID {
				t.Errorf("dish id: got %v, want %v", arg.ID, dishID)
			}
			if arg.Available {
				t.Error("expected toggle to unavailable")
			}
			return database.Dish{ID: dishID, Name: "Special", Price: testNumeric("20.00"), Available: false}, nil
		},
	}

	events := &mockBroadcaster{}
	router := setupDishRouter(store, events)
	rr := doAuthRequest(t, router, "PATCH", "/dishes/"+dishID.String()+"/availability",
		map[string]bool{"available": false}, testClaims(enum.RoleCook))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	got := events.Events()
	if len(got) != 1 || got[0] != "dish.updated" {
		t.Errorf("expected one dish.updated broadcast, got %v", got)
	}
}

func TestDishAvailability_DinerForbidden(t *testing.T) {
	router := setupDishRouter(&mockDishStore{}, nil)

	rr := doAuthRequest(t, router, "PATCH", "/dishes/"+uuid.New().String()+"/availability",
		map[string]bool{"available": false}, testClaims(enum.RoleDiner))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestDishAvailability_MissingField(t *testing.T) {
	router := setupDishRouter(&mockDishStore{}, nil)

	rr := doAuthRequest(t, router, "PATCH", "/dishes/"+uuid.New().String()+"/availability",
		map[string]string{}, testClaims(enum.RoleCook))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
