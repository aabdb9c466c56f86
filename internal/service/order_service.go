package service

import (
	"context"
	"fmt"
	"time"

	"goldsmith-supplies/internal/domain"
	"goldsmith-supplies/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutItem is one requested cart line.
type CheckoutItem struct {
	ProductID uuid.UUID
	Qty       int
}

// CheckoutInput is a cart submission: what to buy, how to fulfill it, how to
// pay. Totals are never part of the input; they are always computed here.
type CheckoutInput struct {
	Items         []CheckoutItem
	Fulfillment   domain.Fulfillment
	PaymentMethod domain.PaymentMethod
	CustomerNote  string
}

// OrderUpdate carries the optional fields of an order mutation; nil means
// "leave unchanged". Which fields actually apply depends on the caller's
// authorization decision.
type OrderUpdate struct {
	Status         *domain.OrderStatus
	IsPaid         *bool
	PaymentStatus  *string
	TransactionID  *string
	PaidAt         *time.Time
	IsDelivered    *bool
	DeliveredAt    *time.Time
	CustomerNote   *string
	PickupLocation *string
}

// EventPublisher emits order lifecycle events for back-office consumers.
// Publishing is best-effort: failures are logged, never surfaced.
type EventPublisher interface {
	OrderCreated(ctx context.Context, order *domain.Order) error
	OrderCancelled(ctx context.Context, order *domain.Order) error
}

// OrderService implements the checkout workflow and the order lifecycle
// operations.
type OrderService interface {
	Checkout(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*domain.Order, error)
	Get(ctx context.Context, caller Caller, orderID uuid.UUID) (*domain.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAll(ctx context.Context) ([]*domain.AdminOrder, error)
	Update(ctx context.Context, caller Caller, orderID uuid.UUID, update OrderUpdate) (*domain.Order, error)
	Cancel(ctx context.Context, caller Caller, orderID uuid.UUID) error
}

type orderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	statusPolicy StatusPolicy
	events       EventPublisher
	logger       *zap.Logger
}

// NewOrderService creates a new instance of OrderService. events may be nil
// when no broker is configured.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	statusPolicy StatusPolicy,
	events EventPublisher,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		statusPolicy: statusPolicy,
		events:       events,
		logger:       logger,
	}
}

// Checkout validates a cart submission against the catalog, snapshots the
// lines, computes totals, and persists the order while decrementing stock.
// Every validation step fails the whole request before anything is written.
func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, &domain.InvalidRequestError{Message: "order must contain at least 1 item"}
	}
	for _, item := range in.Items {
		if item.Qty < 1 {
			return nil, &domain.InvalidRequestError{Message: "each item must have qty >= 1"}
		}
	}

	if !domain.ValidPaymentMethod(in.PaymentMethod) {
		return nil, &domain.InvalidRequestError{Message: "invalid payment method"}
	}

	fulfillment, err := in.Fulfillment.Validate()
	if err != nil {
		return nil, err
	}

	// Resolve the full product set in one lookup.
	distinct := make([]uuid.UUID, 0, len(in.Items))
	seen := make(map[uuid.UUID]bool, len(in.Items))
	for _, item := range in.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			distinct = append(distinct, item.ProductID)
		}
	}

	products, err := s.productRepo.FindActiveByIDs(ctx, distinct)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve products: %w", err)
	}
	if len(products) != len(distinct) {
		return nil, &domain.InvalidRequestError{Message: "one or more products are invalid or inactive"}
	}

	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// Validate stock and build immutable line snapshots from the current
	// product records.
	items := make([]domain.OrderItem, 0, len(in.Items))
	for _, item := range in.Items {
		p := byID[item.ProductID]
		if p.CountInStock < item.Qty {
			return nil, &domain.InsufficientStockError{ProductName: p.Name, Available: p.CountInStock}
		}
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Price:     p.Price,
			Qty:       item.Qty,
		})
	}

	itemsPrice := domain.ItemsTotal(items)
	shippingPrice := domain.ShippingPriceFor(fulfillment.Method)
	taxPrice := domain.TaxPriceFor(itemsPrice)

	now := time.Now()
	order := &domain.Order{
		ID:                uuid.New(),
		UserID:            userID,
		Items:             items,
		FulfillmentMethod: fulfillment.Method,
		ShippingAddress:   fulfillment.Address,
		PaymentMethod:     in.PaymentMethod,
		Payment: domain.Payment{
			Provider: domain.ProviderFor(in.PaymentMethod),
			Status:   domain.PaymentStatusPending,
		},
		ItemsPrice:    itemsPrice,
		ShippingPrice: shippingPrice,
		TaxPrice:      taxPrice,
		TotalPrice:    itemsPrice + shippingPrice + taxPrice,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if fulfillment.Method == domain.FulfillmentPickup {
		loc := fulfillment.PickupLocation
		order.PickupLocation = &loc
	}
	if in.CustomerNote != "" {
		note := in.CustomerNote
		order.CustomerNote = &note
	}

	// Order insert and stock decrements commit or roll back together.
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.publish(ctx, order, "order.created")

	return order, nil
}

// Get returns an order to its owner or to an administrator.
func (s *orderService) Get(ctx context.Context, caller Caller, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !AuthorizeOrder(caller, order, ActionView).Allowed {
		return nil, domain.ErrForbidden
	}

	return order, nil
}

// ListForUser returns the caller's own orders, newest first.
func (s *orderService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

// ListAll returns every order with owner details, newest first.
func (s *orderService) ListAll(ctx context.Context) ([]*domain.AdminOrder, error) {
	return s.orderRepo.ListAllWithOwners(ctx)
}

// Update mutates an order under the authorization policy: owners may touch
// the customer whitelist while the order is still pending, administrators may
// set any recognized field subject to the status policy. Fields outside the
// caller's allowance are ignored, not rejected.
func (s *orderService) Update(ctx context.Context, caller Caller, orderID uuid.UUID, update OrderUpdate) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	decision := AuthorizeOrder(caller, order, ActionUpdate)
	if !decision.Allowed {
		return nil, domain.ErrForbidden
	}

	if decision.UpdatableFields != nil {
		// Customer path: whitelist only, and only while pending.
		if order.Status != domain.StatusPending {
			return nil, domain.ErrInvalidState
		}
		if update.CustomerNote != nil && decision.UpdatableFields["customerNote"] {
			order.CustomerNote = update.CustomerNote
		}
		if update.PickupLocation != nil && decision.UpdatableFields["pickupLocation"] {
			order.PickupLocation = update.PickupLocation
		}
	} else {
		if err := s.applyAdminUpdate(order, update); err != nil {
			return nil, err
		}
	}

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (s *orderService) applyAdminUpdate(order *domain.Order, update OrderUpdate) error {
	if update.Status != nil {
		if !domain.ValidOrderStatus(*update.Status) {
			return &domain.InvalidRequestError{Message: "invalid order status"}
		}
		if !s.statusPolicy.AllowTransition(order.Status, *update.Status) {
			return domain.ErrInvalidState
		}
		order.Status = *update.Status
	}
	if update.CustomerNote != nil {
		order.CustomerNote = update.CustomerNote
	}
	if update.PickupLocation != nil {
		order.PickupLocation = update.PickupLocation
	}
	if update.PaymentStatus != nil {
		order.Payment.Status = *update.PaymentStatus
	}
	if update.TransactionID != nil {
		order.Payment.TransactionID = update.TransactionID
	}
	if update.PaidAt != nil {
		order.Payment.PaidAt = update.PaidAt
	}
	if update.IsPaid != nil {
		order.IsPaid = *update.IsPaid
		if *update.IsPaid {
			if update.PaymentStatus == nil {
				order.Payment.Status = domain.PaymentStatusPaid
			}
			if order.Payment.PaidAt == nil {
				now := time.Now()
				order.Payment.PaidAt = &now
			}
		}
	}
	if update.IsDelivered != nil {
		order.IsDelivered = *update.IsDelivered
		if *update.IsDelivered && update.DeliveredAt == nil && order.DeliveredAt == nil {
			now := time.Now()
			order.DeliveredAt = &now
		}
	}
	if update.DeliveredAt != nil {
		order.DeliveredAt = update.DeliveredAt
	}
	return nil
}

// Cancel removes an order and restores its lines to stock. Customers may only
// cancel their own pending, unpaid orders; administrators may cancel any.
func (s *orderService) Cancel(ctx context.Context, caller Caller, orderID uuid.UUID) error {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	if !AuthorizeOrder(caller, order, ActionCancel).Allowed {
		return domain.ErrForbidden
	}

	if !caller.IsAdmin() {
		if order.Status != domain.StatusPending || order.IsPaid {
			return domain.ErrInvalidState
		}
	}

	if err := s.orderRepo.DeleteWithRestock(ctx, order.ID); err != nil {
		return err
	}

	s.publish(ctx, order, "order.cancelled")

	return nil
}

func (s *orderService) publish(ctx context.Context, order *domain.Order, event string) {
	if s.events == nil {
		return
	}
	var err error
	switch event {
	case "order.created":
		err = s.events.OrderCreated(ctx, order)
	case "order.cancelled":
		err = s.events.OrderCancelled(ctx, order)
	}
	if err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("event", event),
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}
