package transport

import (
	"errors"
	"net/http"
	"time"

	"goldsmith-supplies/internal/domain"
	"goldsmith-supplies/internal/middleware"
	"goldsmith-supplies/internal/repository"
	"goldsmith-supplies/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutItemRequest is one cart line in a checkout payload.
type CheckoutItemRequest struct {
	Product string `json:"product" validate:"required"`
	Qty     int    `json:"qty"`
}

// ShippingAddressRequest is the delivery destination in a checkout payload.
// Field-level requirements depend on the fulfillment method, so they are
// checked by the workflow rather than by tags.
type ShippingAddressRequest struct {
	FullName   string  `json:"full_name"`
	Phone      string  `json:"phone"`
	Address1   string  `json:"address1"`
	Address2   *string `json:"address2"`
	City       string  `json:"city"`
	Country    string  `json:"country"`
	PostalCode *string `json:"postal_code"`
}

// CheckoutRequest is the cart submission payload.
type CheckoutRequest struct {
	OrderItems        []CheckoutItemRequest   `json:"order_items" validate:"required,min=1"`
	FulfillmentMethod string                  `json:"fulfillment_method" validate:"required"`
	PickupLocation    string                  `json:"pickup_location"`
	ShippingAddress   *ShippingAddressRequest `json:"shipping_address"`
	PaymentMethod     string                  `json:"payment_method" validate:"required"`
	CustomerNote      string                  `json:"customer_note"`
}

// CustomerOrderUpdateRequest carries the only fields a customer may change.
// Anything else in the body is ignored.
type CustomerOrderUpdateRequest struct {
	CustomerNote   *string `json:"customer_note"`
	PickupLocation *string `json:"pickup_location"`
}

// AdminOrderUpdateRequest is the unrestricted admin mutation payload.
type AdminOrderUpdateRequest struct {
	Status         *string                  `json:"status"`
	IsPaid         *bool                    `json:"is_paid"`
	Payment        *AdminPaymentUpdate      `json:"payment"`
	IsDelivered    *bool                    `json:"is_delivered"`
	DeliveredAt    *time.Time               `json:"delivered_at"`
	CustomerNote   *string                  `json:"customer_note"`
	PickupLocation *string                  `json:"pickup_location"`
}

// AdminPaymentUpdate mirrors the payment sub-record fields an admin may set.
type AdminPaymentUpdate struct {
	Status        *string    `json:"status"`
	TransactionID *string    `json:"transaction_id"`
	PaidAt        *time.Time `json:"paid_at"`
}

// OrderHandler handles HTTP requests for checkout and the order lifecycle.
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers customer order routes and the admin surface.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListMine)
		r.Post("/", h.Checkout)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.CustomerUpdate)
		r.Delete("/{id}", h.Cancel)
	})

	r.Route("/api/admin/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(adminMiddleware)
		r.Get("/", h.AdminList)
		r.Patch("/{id}", h.AdminUpdate)
	})
}

// caller resolves the authenticated account from the request context.
func (h *OrderHandler) caller(w http.ResponseWriter, r *http.Request) (service.Caller, bool) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return service.Caller{}, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		h.logger.Error("Invalid user ID in token", zap.String("user_id", userIDStr))
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return service.Caller{}, false
	}
	role, _ := middleware.GetUserRole(r.Context())
	return service.Caller{UserID: userID, Role: role}, true
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return uuid.Nil, false
	}
	return id, true
}

// respondOrderError maps the workflow error taxonomy onto HTTP statuses.
func (h *OrderHandler) respondOrderError(w http.ResponseWriter, err error) {
	var invalidReq *domain.InvalidRequestError
	var noStock *domain.InsufficientStockError

	switch {
	case errors.As(err, &invalidReq):
		middleware.RespondWithError(w, http.StatusBadRequest, invalidReq.Error())
	case errors.As(err, &noStock):
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, noStock.Error(), map[string]interface{}{
			"product":   noStock.ProductName,
			"available": noStock.Available,
		})
	case errors.Is(err, domain.ErrForbidden):
		middleware.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrOrderNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusBadRequest, "one or more products are invalid or inactive")
	default:
		h.logger.Error("Order operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Checkout handles POST /api/orders.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Checkout validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]service.CheckoutItem, 0, len(req.OrderItems))
	for _, item := range req.OrderItems {
		productID, err := uuid.Parse(item.Product)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product in order items")
			return
		}
		items = append(items, service.CheckoutItem{ProductID: productID, Qty: item.Qty})
	}

	in := service.CheckoutInput{
		Items: items,
		Fulfillment: domain.Fulfillment{
			Method:         domain.FulfillmentMethod(req.FulfillmentMethod),
			PickupLocation: req.PickupLocation,
			Address:        shippingAddressFromRequest(req.ShippingAddress),
		},
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		CustomerNote:  req.CustomerNote,
	}

	order, err := h.orderService.Checkout(r.Context(), caller.UserID, in)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	h.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", caller.UserID.String()),
		zap.Float64("total", order.TotalPrice),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// ListMine handles GET /api/orders.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.ListForUser(r.Context(), caller.UserID)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// Get handles GET /api/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.Get(r.Context(), caller, orderID)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// CustomerUpdate handles PUT /api/orders/{id}.
func (h *OrderHandler) CustomerUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req CustomerOrderUpdateRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orderService.Update(r.Context(), caller, orderID, service.OrderUpdate{
		CustomerNote:   req.CustomerNote,
		PickupLocation: req.PickupLocation,
	})
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Cancel handles DELETE /api/orders/{id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	if err := h.orderService.Cancel(r.Context(), caller, orderID); err != nil {
		h.respondOrderError(w, err)
		return
	}

	h.logger.Info("Order cancelled",
		zap.String("order_id", orderID.String()),
		zap.String("user_id", caller.UserID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "order deleted successfully"})
}

// AdminList handles GET /api/admin/orders.
func (h *OrderHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListAll(r.Context())
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// AdminUpdate handles PATCH /api/admin/orders/{id}.
func (h *OrderHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req AdminOrderUpdateRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := service.OrderUpdate{
		IsPaid:         req.IsPaid,
		IsDelivered:    req.IsDelivered,
		DeliveredAt:    req.DeliveredAt,
		CustomerNote:   req.CustomerNote,
		PickupLocation: req.PickupLocation,
	}
	if req.Status != nil {
		status := domain.OrderStatus(*req.Status)
		update.Status = &status
	}
	if req.Payment != nil {
		update.PaymentStatus = req.Payment.Status
		update.TransactionID = req.Payment.TransactionID
		update.PaidAt = req.Payment.PaidAt
	}

	order, err := h.orderService.Update(r.Context(), caller, orderID, update)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func shippingAddressFromRequest(req *ShippingAddressRequest) *domain.ShippingAddress {
	if req == nil {
		return nil
	}
	return &domain.ShippingAddress{
		FullName:   req.FullName,
		Phone:      req.Phone,
		Address1:   req.Address1,
		Address2:   req.Address2,
		City:       req.City,
		Country:    req.Country,
		PostalCode: req.PostalCode,
	}
}
