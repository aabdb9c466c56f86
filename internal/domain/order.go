package domain

import (
	"time"

	"github.com/google/uuid"
)

// FulfillmentMethod determines whether an order is delivered or picked up.
type FulfillmentMethod string

const (
	FulfillmentDelivery FulfillmentMethod = "delivery"
	FulfillmentPickup   FulfillmentMethod = "pickup"
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentCard       PaymentMethod = "card"
	PaymentCash       PaymentMethod = "cash"
	PaymentBenefitPay PaymentMethod = "benefitpay"
)

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusReady      OrderStatus = "ready"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// Payment providers inferred from the payment method.
const (
	ProviderStripe     = "stripe"
	ProviderBenefitPay = "benefitpay"
	ProviderManual     = "manual"
)

// Payment statuses for the payment sub-record.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// DefaultPickupLocation is used when a pickup order names no branch.
const DefaultPickupLocation = "Default Pickup"

// ValidFulfillmentMethod reports whether m is a known fulfillment method.
func ValidFulfillmentMethod(m FulfillmentMethod) bool {
	return m == FulfillmentDelivery || m == FulfillmentPickup
}

// ValidPaymentMethod reports whether m is a known payment method.
func ValidPaymentMethod(m PaymentMethod) bool {
	return m == PaymentCard || m == PaymentCash || m == PaymentBenefitPay
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// statusTransitions is the strict order state machine:
// pending → processing|cancelled, processing → ready|cancelled,
// ready → completed. Completed and cancelled are terminal.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusReady, StatusCancelled},
	StatusReady:      {StatusCompleted},
}

// CanTransition reports whether the strict state machine permits moving an
// order from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ShippingAddress is the destination of a delivery order.
type ShippingAddress struct {
	FullName   string  `json:"full_name" db:"ship_full_name"`
	Phone      string  `json:"phone" db:"ship_phone"`
	Address1   string  `json:"address1" db:"ship_address1"`
	Address2   *string `json:"address2,omitempty" db:"ship_address2"`
	City       string  `json:"city" db:"ship_city"`
	Country    string  `json:"country" db:"ship_country"`
	PostalCode *string `json:"postal_code,omitempty" db:"ship_postal_code"`
}

// MissingFields returns the names of required address fields that are empty.
func (a *ShippingAddress) MissingFields() []string {
	var missing []string
	if a == nil {
		return []string{"fullName", "phone", "address1", "city", "country"}
	}
	if a.FullName == "" {
		missing = append(missing, "fullName")
	}
	if a.Phone == "" {
		missing = append(missing, "phone")
	}
	if a.Address1 == "" {
		missing = append(missing, "address1")
	}
	if a.City == "" {
		missing = append(missing, "city")
	}
	if a.Country == "" {
		missing = append(missing, "country")
	}
	return missing
}

// Fulfillment couples the fulfillment method with the data that method
// requires: a delivery carries a mandatory shipping address, a pickup carries
// an optional branch name and no address.
type Fulfillment struct {
	Method         FulfillmentMethod
	PickupLocation string
	Address        *ShippingAddress
}

// Validate enforces the method/address invariant. On success the returned
// fulfillment is normalized: pickup drops any address and defaults the branch,
// delivery drops any pickup location.
func (f Fulfillment) Validate() (Fulfillment, error) {
	switch f.Method {
	case FulfillmentDelivery:
		if missing := f.Address.MissingFields(); len(missing) > 0 {
			return f, &InvalidRequestError{Message: "missing shipping fields", Fields: missing}
		}
		f.PickupLocation = ""
		return f, nil
	case FulfillmentPickup:
		f.Address = nil
		if f.PickupLocation == "" {
			f.PickupLocation = DefaultPickupLocation
		}
		return f, nil
	default:
		return f, &InvalidRequestError{Message: "invalid fulfillment method"}
	}
}

// OrderItem is an immutable snapshot of a product's display and price data
// captured at checkout time, deliberately decoupled from live product state.
type OrderItem struct {
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Image     string    `json:"image" db:"image"`
	Price     float64   `json:"price" db:"price"`
	Qty       int       `json:"qty" db:"qty"`
}

// Payment is the payment sub-record of an order.
type Payment struct {
	Provider      string     `json:"provider" db:"payment_provider"`
	Status        string     `json:"status" db:"payment_status"`
	TransactionID *string    `json:"transaction_id" db:"payment_transaction_id"`
	PaidAt        *time.Time `json:"paid_at" db:"payment_paid_at"`
}

// ProviderFor maps a payment method to its payment provider.
func ProviderFor(m PaymentMethod) string {
	switch m {
	case PaymentCard:
		return ProviderStripe
	case PaymentBenefitPay:
		return ProviderBenefitPay
	default:
		return ProviderManual
	}
}

// Order is a persisted checkout: a non-empty sequence of line snapshots plus
// fulfillment, payment, and server-computed totals.
type Order struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	UserID            uuid.UUID         `json:"user_id" db:"user_id"`
	Items             []OrderItem       `json:"order_items"`
	FulfillmentMethod FulfillmentMethod `json:"fulfillment_method" db:"fulfillment_method"`
	PickupLocation    *string           `json:"pickup_location" db:"pickup_location"`
	ShippingAddress   *ShippingAddress  `json:"shipping_address,omitempty"`
	PaymentMethod     PaymentMethod     `json:"payment_method" db:"payment_method"`
	Payment           Payment           `json:"payment"`
	ItemsPrice        float64           `json:"items_price" db:"items_price"`
	ShippingPrice     float64           `json:"shipping_price" db:"shipping_price"`
	TaxPrice          float64           `json:"tax_price" db:"tax_price"`
	TotalPrice        float64           `json:"total_price" db:"total_price"`
	Status            OrderStatus       `json:"status" db:"status"`
	IsPaid            bool              `json:"is_paid" db:"is_paid"`
	IsDelivered       bool              `json:"is_delivered" db:"is_delivered"`
	DeliveredAt       *time.Time        `json:"delivered_at" db:"delivered_at"`
	CustomerNote      *string           `json:"customer_note" db:"customer_note"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

// OrderOwner is the owning account data resolved for admin display.
type OrderOwner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AdminOrder is an order joined with its owner, for the admin listing.
type AdminOrder struct {
	Order
	Owner OrderOwner `json:"user"`
}

// ItemsTotal sums price × qty over the given line snapshots.
func ItemsTotal(items []OrderItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price * float64(it.Qty)
	}
	return sum
}

// ShippingPriceFor is the shipping fee hook; both methods currently ship free.
func ShippingPriceFor(m FulfillmentMethod) float64 {
	return 0
}

// TaxPriceFor is the tax hook; no tax is currently charged.
func TaxPriceFor(itemsPrice float64) float64 {
	return 0
}
