package client

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/salle-pos/api/internal/enum"
	"github.com/salle-pos/api/internal/lifecycle"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOrderAPI struct {
	createOrderFn         func(ctx context.Context, payload CreateOrderPayload) (*Order, error)
	getOrderFn            func(ctx context.Context, id uuid.UUID) (*Order, error)
	transitionFn          func(ctx context.Context, orderID uuid.UUID, action lifecycle.Action, opts TransitionOptions) (*Order, error)
	setDishAvailabilityFn func(ctx context.Context, dishID uuid.UUID, available bool) (*Dish, error)
}

func (m *mockOrderAPI) CreateOrder(ctx context.Context, payload CreateOrderPayload) (*Order, error) {
	return m.createOrderFn(ctx, payload)
}

func (m *mockOrderAPI) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return m.getOrderFn(ctx, id)
}

func (m *mockOrderAPI) Transition(ctx context.Context, orderID uuid.UUID, action lifecycle.Action, opts TransitionOptions) (*Order, error) {
	return m.transitionFn(ctx, orderID, action, opts)
}

func (m *mockOrderAPI) SetDishAvailability(ctx context.Context, dishID uuid.UUID, available bool) (*Dish, error) {
	return m.setDishAvailabilityFn(ctx, dishID, available)
}

func cachedOrder(status string) Order {
	return Order{
		ID:          uuid.New(),
		OrderNumber: "SAL-20250101-001",
		Status:      status,
		TotalAmount: decimal.RequireFromString("29.00"),
		CreatedAt:   time.Now(),
	}
}

func TestTransitionAppliesCanonicalResult(t *testing.T) {
	order := cachedOrder(enum.OrderStatusValidated)
	cache := NewOrderCache()
	cache.Upsert(order)

	canonical := order
	canonical.Status = enum.OrderStatusInProgress

	api := &mockOrderAPI{
		transitionFn: func(ctx context.Context, orderID uuid.UUID, action lifecycle.Action, opts TransitionOptions) (*Order, error) {
			assert.Equal(t, order.ID, orderID)
			assert.Equal(t, lifecycle.ActionStartPreparation, action)
			return &canonical, nil
		},
	}

	ctrl := NewController(api, cache, NewDishCache(), enum.RoleCook)
	result, err := ctrl.Transition(context.Background(), order.ID, lifecycle.ActionStartPreparation, TransitionOptions{})
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusInProgress, result.Status)

	got, ok := cache.Get(order.ID)
	require.True(t, ok)
	assert.Equal(t, enum.OrderStatusInProgress, got.Status)
}

func TestTransitionRollsBackOnFailure(t *testing.T) {
	order := cachedOrder(enum.OrderStatusInProgress)
	cache := NewOrderCache()
	cache.Upsert(order)

	api := &mockOrderAPI{
		transitionFn: func(ctx context.Context, orderID uuid.UUID, action lifecycle.Action, opts TransitionOptions) (*Order, error) {
			return nil, &APIError{Status: 500, Message: "internal server error"}
		},
	}

	ctrl := NewController(api, cache, NewDishCache(), enum.RoleCook)
	_, err := ctrl.Transition(context.Background(), order.ID, lifecycle.ActionMarkReady, TransitionOptions{})
	require.Error(t, err)

	// Cache must be back at the pre-mutation snapshot so the action can be
	// offered again.
	got, ok := cache.Get(order.ID)
	require.True(t, ok)
	assert.Equal(t, enum.OrderStatusInProgress, got.Status)
	assert.Contains(t, ctrl.EnabledActions(order.ID), lifecycle.ActionMarkReady)
}

func TestTransitionConflictRefetches(t *testing.T) {
	order := cachedOrder(enum.OrderStatusPendingValidation)
	cache := NewOrderCache()
	cache.Upsert(order)

	fresh := order
	fresh.Status = enum.OrderStatusCancelled

	var staleOrderID uuid.UUID
	api := &mockOrderAPI{
		transitionFn: func(ctx context.Context, orderID uuid.UUID, action lifecycle.Action, opts TransitionOptions) (*Order, error) {
			return nil, &APIError{Status: 409, Message: "order status changed"}
		},
		getOrderFn: func(ctx context.Context, id uuid.UUID) (*Order, error) {
			return &fresh, nil
		},
	}

	ctrl := NewController(api, cache, NewDishCache(), enum.RoleWaiter)
	ctrl.OnStale(func(orderID uuid.UUID) { staleOrderID = orderID })

	_, err := ctrl.Transition(context.Background(), order.ID, lifecycle.ActionApprove, TransitionOptions{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsConflict())

	// The cache holds the refetched canonical record, not the snapshot.
	got, ok := cache.Get(order.ID)
	require.True(t, ok)
	assert.Equal(t, enum.OrderStatusCancelled, got.Status)
	assert.Equal(t, order.ID, staleOrderID)
	assert.Empty(t, ctrl.EnabledActions(order.ID))
}

func TestTransitionRejectsLocally(t *testing.T) {
	order := cachedOrder(enum.OrderStatusPendingValidation)
	cache := NewOrderCache()
	cache.Upsert(order)

	api := &mockOrderAPI{
		transitionFn: func(ctx context.Context, orderID uuid.UUID, action lifecycle.Action, opts TransitionOptions) (*Order, error) {
			t.Fatal("remote call should not happen when prediction fails")
			return nil, nil
		},
	}

	// A diner cannot approve; the controller refuses before the network.
	ctrl := NewController(api, cache, NewDishCache(), enum.RoleDiner)
	_, err := ctrl.Transition(context.Background(), order.ID, lifecycle.ActionApprove, TransitionOptions{})
	assert.ErrorIs(t, err, lifecycle.ErrRoleNotAllowed)
}

func TestTransitionRejectsSecondInFlight(t *testing.T) {
	order := cachedOrder(enum.OrderStatusValidated)
	cache := NewOrderCache()
	cache.Upsert(order)

	entered := make(chan struct{})
	release := make(chan struct{})
	api := &mockOrderAPI{
		transitionFn: func(ctx context.Context, orderID uuid.UUID, action lifecycle.Action, opts TransitionOptions) (*Order, error) {
			close(entered)
			<-release
			canonical := order
			canonical.Status = enum.OrderStatusInProgress
			return &canonical, nil
		},
	}

	ctrl := NewController(api, cache, NewDishCache(), enum.RoleCook)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Transition(context.Background(), order.ID, lifecycle.ActionStartPreparation, TransitionOptions{})
		done <- err
	}()

	<-entered
	_, err := ctrl.Transition(context.Background(), order.ID, lifecycle.ActionStartPreparation, TransitionOptions{})
	assert.ErrorIs(t, err, ErrMutationPending)

	close(release)
	require.NoError(t, <-done)
}

func TestTransitionUnknownOrder(t *testing.T) {
	ctrl := NewController(&mockOrderAPI{}, NewOrderCache(), NewDishCache(), enum.RoleWaiter)
	_, err := ctrl.Transition(context.Background(), uuid.New(), lifecycle.ActionApprove, TransitionOptions{})
	assert.ErrorIs(t, err, ErrOrderNotCached)
}

func TestSubmitOrderClearsBasketOnSuccess(t *testing.T) {
	cache := NewOrderCache()
	created := cachedOrder(enum.OrderStatusPendingValidation)

	api := &mockOrderAPI{
		createOrderFn: func(ctx context.Context, payload CreateOrderPayload) (*Order, error) {
			require.Len(t, payload.Lines, 1)
			return &created, nil
		},
	}

	basket := NewBasket()
	require.NoError(t, basket.Add(availableDish("Burger", "12.00"), 2, ""))

	ctrl := NewController(api, cache, NewDishCache(), enum.RoleDiner)
	order, err := ctrl.SubmitOrder(context.Background(), basket, "", "TAKEAWAY", "")
	require.NoError(t, err)

	assert.Equal(t, created.ID, order.ID)
	assert.Empty(t, basket.Lines())
	_, ok := cache.Get(created.ID)
	assert.True(t, ok)
}

func TestSubmitOrderKeepsBasketOnFailure(t *testing.T) {
	api := &mockOrderAPI{
		createOrderFn: func(ctx context.Context, payload CreateOrderPayload) (*Order, error) {
			return nil, &APIError{Status: 400, Message: "lines[0]: dish is not available"}
		},
	}

	basket := NewBasket()
	require.NoError(t, basket.Add(availableDish("Burger", "12.00"), 1, ""))

	ctrl := NewController(api, NewOrderCache(), NewDishCache(), enum.RoleDiner)
	_, err := ctrl.SubmitOrder(context.Background(), basket, "", "TAKEAWAY", "")
	require.Error(t, err)
	assert.Len(t, basket.Lines(), 1)
}

func TestSubmitOrderDineInWithoutTableStaysLocal(t *testing.T) {
	calls := 0
	api := &mockOrderAPI{
		createOrderFn: func(ctx context.Context, payload CreateOrderPayload) (*Order, error) {
			calls++
			return nil, &APIError{Status: 400, Message: "table_id is required for dine-in orders"}
		},
	}

	basket := NewBasket()
	require.NoError(t, basket.Add(availableDish("Burger", "12.00"), 1, ""))

	ctrl := NewController(api, NewOrderCache(), NewDishCache(), enum.RoleDiner)
	_, err := ctrl.SubmitOrder(context.Background(), basket, "", "DINE_IN", "")
	assert.ErrorIs(t, err, ErrTableRequired)

	// Rejected before any request is made; the basket survives for a retry.
	assert.Equal(t, 0, calls)
	assert.Len(t, basket.Lines(), 1)
}

func TestToggleDishAvailabilityRollsBack(t *testing.T) {
	dish := availableDish("Special", "20.00")
	dishes := NewDishCache()
	dishes.Upsert(dish)

	api := &mockOrderAPI{
		setDishAvailabilityFn: func(ctx context.Context, dishID uuid.UUID, available bool) (*Dish, error) {
			return nil, &APIError{Status: 500, Message: "internal server error"}
		},
	}

	ctrl := NewController(api, NewOrderCache(), dishes, enum.RoleCook)
	_, err := ctrl.ToggleDishAvailability(context.Background(), dish.ID, false)
	require.Error(t, err)

	got, ok := dishes.Get(dish.ID)
	require.True(t, ok)
	assert.True(t, got.Available)
}
