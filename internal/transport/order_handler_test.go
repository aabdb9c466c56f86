package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"goldsmith-supplies/internal/domain"
	"goldsmith-supplies/internal/middleware"
	"goldsmith-supplies/internal/repository"
	"goldsmith-supplies/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockOrderService struct {
	checkout    func(ctx context.Context, userID uuid.UUID, in service.CheckoutInput) (*domain.Order, error)
	get         func(ctx context.Context, caller service.Caller, orderID uuid.UUID) (*domain.Order, error)
	listForUser func(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	listAll     func(ctx context.Context) ([]*domain.AdminOrder, error)
	update      func(ctx context.Context, caller service.Caller, orderID uuid.UUID, update service.OrderUpdate) (*domain.Order, error)
	cancel      func(ctx context.Context, caller service.Caller, orderID uuid.UUID) error
}

func (m *mockOrderService) Checkout(ctx context.Context, userID uuid.UUID, in service.CheckoutInput) (*domain.Order, error) {
	return m.checkout(ctx, userID, in)
}

func (m *mockOrderService) Get(ctx context.Context, caller service.Caller, orderID uuid.UUID) (*domain.Order, error) {
	return m.get(ctx, caller, orderID)
}

func (m *mockOrderService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return m.listForUser(ctx, userID)
}

func (m *mockOrderService) ListAll(ctx context.Context) ([]*domain.AdminOrder, error) {
	return m.listAll(ctx)
}

func (m *mockOrderService) Update(ctx context.Context, caller service.Caller, orderID uuid.UUID, update service.OrderUpdate) (*domain.Order, error) {
	return m.update(ctx, caller, orderID, update)
}

func (m *mockOrderService) Cancel(ctx context.Context, caller service.Caller, orderID uuid.UUID) error {
	return m.cancel(ctx, caller, orderID)
}

// authAs fakes the auth middleware, injecting a fixed identity into context.
func authAs(userID uuid.UUID, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID.String())
			ctx = context.WithValue(ctx, middleware.UserRoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func passThrough(next http.Handler) http.Handler {
	return next
}

func newOrderRouter(svc service.OrderService, userID uuid.UUID, role string) chi.Router {
	r := chi.NewRouter()
	handler := NewOrderHandler(svc, zap.NewNop())
	handler.RegisterRoutes(r, authAs(userID, role), passThrough)
	return r
}

func TestOrderHandlerCheckout(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()

	var captured service.CheckoutInput
	svc := &mockOrderService{
		checkout: func(ctx context.Context, uid uuid.UUID, in service.CheckoutInput) (*domain.Order, error) {
			captured = in
			return &domain.Order{
				ID:         uuid.New(),
				UserID:     uid,
				Status:     domain.StatusPending,
				TotalPrice: 20.0,
			}, nil
		},
	}
	router := newOrderRouter(svc, userID, "customer")

	body := map[string]interface{}{
		"order_items": []map[string]interface{}{
			{"product": productID.String(), "qty": 2},
		},
		"fulfillment_method": "pickup",
		"payment_method":     "cash",
		"customer_note":      "ring before delivery",
	}
	reqBody, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/orders", bytes.NewReader(reqBody))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.Len(t, captured.Items, 1)
	assert.Equal(t, productID, captured.Items[0].ProductID)
	assert.Equal(t, 2, captured.Items[0].Qty)
	assert.Equal(t, domain.FulfillmentPickup, captured.Fulfillment.Method)
	assert.Equal(t, domain.PaymentCash, captured.PaymentMethod)
	assert.Equal(t, "ring before delivery", captured.CustomerNote)

	var resp domain.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 20.0, resp.TotalPrice)
}

func TestOrderHandlerCheckoutInsufficientStock(t *testing.T) {
	svc := &mockOrderService{
		checkout: func(ctx context.Context, uid uuid.UUID, in service.CheckoutInput) (*domain.Order, error) {
			return nil, &domain.InsufficientStockError{ProductName: "Crucible No. 4", Available: 1}
		},
	}
	router := newOrderRouter(svc, uuid.New(), "customer")

	body := map[string]interface{}{
		"order_items":        []map[string]interface{}{{"product": uuid.New().String(), "qty": 5}},
		"fulfillment_method": "pickup",
		"payment_method":     "cash",
	}
	reqBody, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/orders", bytes.NewReader(reqBody))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Crucible No. 4", resp.Error.Details["product"])
	assert.Equal(t, float64(1), resp.Error.Details["available"])
}

func TestOrderHandlerCheckoutRejectsEmptyCart(t *testing.T) {
	svc := &mockOrderService{}
	router := newOrderRouter(svc, uuid.New(), "customer")

	body := map[string]interface{}{
		"fulfillment_method": "pickup",
		"payment_method":     "cash",
	}
	reqBody, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/orders", bytes.NewReader(reqBody))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandlerCheckoutRejectsBadProductID(t *testing.T) {
	svc := &mockOrderService{}
	router := newOrderRouter(svc, uuid.New(), "customer")

	body := map[string]interface{}{
		"order_items":        []map[string]interface{}{{"product": "not-a-uuid", "qty": 1}},
		"fulfillment_method": "pickup",
		"payment_method":     "cash",
	}
	reqBody, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/orders", bytes.NewReader(reqBody))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandlerErrorMapping(t *testing.T) {
	orderID := uuid.New()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"invalid state", domain.ErrInvalidState, http.StatusBadRequest},
		{"not found", repository.ErrOrderNotFound, http.StatusNotFound},
		{"unknown products", repository.ErrProductNotFound, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				get: func(ctx context.Context, caller service.Caller, id uuid.UUID) (*domain.Order, error) {
					return nil, tt.err
				},
			}
			router := newOrderRouter(svc, uuid.New(), "customer")

			req := httptest.NewRequest("GET", "/api/orders/"+orderID.String(), nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestOrderHandlerGetRejectsBadID(t *testing.T) {
	svc := &mockOrderService{}
	router := newOrderRouter(svc, uuid.New(), "customer")

	req := httptest.NewRequest("GET", "/api/orders/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandlerCustomerUpdatePassesWhitelistFields(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()

	var captured service.OrderUpdate
	svc := &mockOrderService{
		update: func(ctx context.Context, caller service.Caller, id uuid.UUID, update service.OrderUpdate) (*domain.Order, error) {
			captured = update
			return &domain.Order{ID: id, UserID: caller.UserID}, nil
		},
	}
	router := newOrderRouter(svc, userID, "customer")

	body := map[string]interface{}{
		"customer_note":   "pack separately",
		"pickup_location": "Gold City Branch",
	}
	reqBody, _ := json.Marshal(body)
	req := httptest.NewRequest("PUT", "/api/orders/"+orderID.String(), bytes.NewReader(reqBody))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured.CustomerNote)
	assert.Equal(t, "pack separately", *captured.CustomerNote)
	require.NotNil(t, captured.PickupLocation)
	assert.Equal(t, "Gold City Branch", *captured.PickupLocation)
	assert.Nil(t, captured.Status)
	assert.Nil(t, captured.IsPaid)
}

func TestOrderHandlerAdminUpdateMapsPaymentFields(t *testing.T) {
	adminID := uuid.New()
	orderID := uuid.New()
	paidAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	var captured service.OrderUpdate
	var capturedCaller service.Caller
	svc := &mockOrderService{
		update: func(ctx context.Context, caller service.Caller, id uuid.UUID, update service.OrderUpdate) (*domain.Order, error) {
			captured = update
			capturedCaller = caller
			return &domain.Order{ID: id}, nil
		},
	}
	router := newOrderRouter(svc, adminID, "admin")

	body := map[string]interface{}{
		"status":  "processing",
		"is_paid": true,
		"payment": map[string]interface{}{
			"status":         "paid",
			"transaction_id": "txn_941",
			"paid_at":        paidAt.Format(time.RFC3339),
		},
	}
	reqBody, _ := json.Marshal(body)
	req := httptest.NewRequest("PATCH", "/api/admin/orders/"+orderID.String(), bytes.NewReader(reqBody))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "admin", capturedCaller.Role)
	require.NotNil(t, captured.Status)
	assert.Equal(t, domain.StatusProcessing, *captured.Status)
	require.NotNil(t, captured.IsPaid)
	assert.True(t, *captured.IsPaid)
	require.NotNil(t, captured.PaymentStatus)
	assert.Equal(t, "paid", *captured.PaymentStatus)
	require.NotNil(t, captured.TransactionID)
	assert.Equal(t, "txn_941", *captured.TransactionID)
	require.NotNil(t, captured.PaidAt)
	assert.True(t, captured.PaidAt.Equal(paidAt))
}

func TestOrderHandlerCancel(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()

	cancelled := false
	svc := &mockOrderService{
		cancel: func(ctx context.Context, caller service.Caller, id uuid.UUID) error {
			cancelled = true
			assert.Equal(t, userID, caller.UserID)
			assert.Equal(t, orderID, id)
			return nil
		},
	}
	router := newOrderRouter(svc, userID, "customer")

	req := httptest.NewRequest("DELETE", "/api/orders/"+orderID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, cancelled)
}

func TestOrderHandlerListMine(t *testing.T) {
	userID := uuid.New()
	svc := &mockOrderService{
		listForUser: func(ctx context.Context, uid uuid.UUID) ([]*domain.Order, error) {
			assert.Equal(t, userID, uid)
			return []*domain.Order{{ID: uuid.New(), UserID: uid}}, nil
		},
	}
	router := newOrderRouter(svc, userID, "customer")

	req := httptest.NewRequest("GET", "/api/orders", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var orders []*domain.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)
}
