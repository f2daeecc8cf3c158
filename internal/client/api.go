package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/salle-pos/api/internal/lifecycle"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsConflict reports whether the error is a 409 from a guarded transition,
// meaning the order moved since the caller last saw it.
func (e *APIError) IsConflict() bool { return e.Status == http.StatusConflict }

// IsUnauthorized reports whether the session token was rejected.
func (e *APIError) IsUnauthorized() bool { return e.Status == http.StatusUnauthorized }

// IsForbidden reports whether the acting role may not perform the action.
func (e *APIError) IsForbidden() bool { return e.Status == http.StatusForbidden }

// IsNotFound reports whether the resource does not exist.
func (e *APIError) IsNotFound() bool { return e.Status == http.StatusNotFound }

// Client is an HTTP client for the order API. It is safe for concurrent use
// once the token is set.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New creates a Client against the given base URL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken sets the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) { c.token = token }

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &result)
	if err != nil {
		return nil, err
	}
	c.token = result.AccessToken
	return &result, nil
}

// CreateOrderPayload is the request body for order creation.
type CreateOrderPayload struct {
	TableID   string                 `json:"table_id,omitempty"`
	OrderType string                 `json:"order_type"`
	Note      string                 `json:"note,omitempty"`
	Lines     []CreateOrderLineInput `json:"lines"`
}

// CreateOrderLineInput is one line of an order creation request.
type CreateOrderLineInput struct {
	DishID   string `json:"dish_id"`
	Quantity int32  `json:"quantity"`
	Note     string `json:"note,omitempty"`
}

// CreateOrder submits a new order. The server snapshots dish prices and
// computes the total; the returned order is canonical.
func (c *Client) CreateOrder(ctx context.Context, payload CreateOrderPayload) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersOptions filters and paginates order listings.
type ListOrdersOptions struct {
	Status string
	Limit  int
	Offset int
}

type orderListPage struct {
	Orders []Order `json:"orders"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// ListOrders fetches orders, newest first.
func (c *Client) ListOrders(ctx context.Context, opts ListOrdersOptions) ([]Order, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		q.Set("limit", fmt.Sprint(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", fmt.Sprint(opts.Offset))
	}
	path := "/orders"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page orderListPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return page.Orders, nil
}

// GetOrder fetches a single order with its lines.
func (c *Client) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+id.String(), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionOptions carries the optional body fields of a transition.
type TransitionOptions struct {
	Reason        string `json:"reason,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

// Transition performs one status-machine action on an order. A 409 means the
// order's status moved out from under the caller; refetch and retry from the
// fresh state.
func (c *Client) Transition(ctx context.Context, orderID uuid.UUID, action lifecycle.Action, opts TransitionOptions) (*Order, error) {
	var order Order
	path := "/orders/" + orderID.String() + "/" + actionPath(action)
	if err := c.do(ctx, http.MethodPost, path, opts, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListDishes fetches the menu, unavailable dishes included.
func (c *Client) ListDishes(ctx context.Context) ([]Dish, error) {
	var page struct {
		Dishes []Dish `json:"dishes"`
	}
	if err := c.do(ctx, http.MethodGet, "/dishes", nil, &page); err != nil {
		return nil, err
	}
	return page.Dishes, nil
}

// SetDishAvailability toggles a dish on or off the menu.
func (c *Client) SetDishAvailability(ctx context.Context, dishID uuid.UUID, available bool) (*Dish, error) {
	var dish Dish
	path := "/dishes/" + dishID.String() + "/availability"
	if err := c.do(ctx, http.MethodPatch, path, map[string]bool{"available": available}, &dish); err != nil {
		return nil, err
	}
	return &dish, nil
}

// ListCategories fetches the menu categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var page struct {
		Categories []Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &page); err != nil {
		return nil, err
	}
	return page.Categories, nil
}

// ListTables fetches the dining tables.
func (c *Client) ListTables(ctx context.Context) ([]Table, error) {
	var page struct {
		Tables []Table `json:"tables"`
	}
	if err := c.do(ctx, http.MethodGet, "/tables", nil, &page); err != nil {
		return nil, err
	}
	return page.Tables, nil
}

// SetTableStatus updates a table's occupancy status.
func (c *Client) SetTableStatus(ctx context.Context, tableID uuid.UUID, status string) (*Table, error) {
	var table Table
	path := "/tables/" + tableID.String() + "/status"
	if err := c.do(ctx, http.MethodPatch, path, map[string]string{"status": status}, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// actionPath converts an action constant to its URL segment,
// e.g. START_PREPARATION -> start-preparation.
func actionPath(action lifecycle.Action) string {
	return strings.ReplaceAll(strings.ToLower(string(action)), "_", "-")
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
			apiErr.Message = envelope.Error
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
