package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/salle-pos/api/internal/lifecycle"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionPath(t *testing.T) {
	assert.Equal(t, "approve", actionPath(lifecycle.ActionApprove))
	assert.Equal(t, "start-preparation", actionPath(lifecycle.ActionStartPreparation))
	assert.Equal(t, "mark-ready", actionPath(lifecycle.ActionMarkReady))
	assert.Equal(t, "confirm-receipt", actionPath(lifecycle.ActionConfirmReceipt))
}

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["username"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-123",
			"user":         map[string]interface{}{"username": "alice", "role": "WAITER"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", result.AccessToken)
	assert.Equal(t, "WAITER", result.User.Role)
	assert.Equal(t, "tok-123", c.token)
}

func TestTransitionSendsBearerAndBody(t *testing.T) {
	orderID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/"+orderID.String()+"/refuse", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "out of stock", body["reason"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":           orderID.String(),
			"status":       "CANCELLED",
			"total_amount": "29.00",
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok-123")

	order, err := c.Transition(context.Background(), orderID, lifecycle.ActionRefuse, TransitionOptions{Reason: "out of stock"})
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("29.00")))
}

func TestTransitionConflictError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "order status changed"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Transition(context.Background(), uuid.New(), lifecycle.ActionApprove, TransitionOptions{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsConflict())
	assert.Equal(t, "order status changed", apiErr.Message)
}

func TestListOrdersQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "PENDING_VALIDATION", r.URL.Query().Get("status"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"orders": []map[string]interface{}{
				{"id": uuid.New().String(), "status": "PENDING_VALIDATION", "total_amount": "12.00"},
			},
			"limit":  10,
			"offset": 0,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	orders, err := c.ListOrders(context.Background(), ListOrdersOptions{
		Status: "PENDING_VALIDATION",
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].TotalAmount.Equal(decimal.RequireFromString("12.00")))
}

func TestUnauthorizedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid token"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ListDishes(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsUnauthorized())
}
