package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when an authenticated caller is neither the
	// owner of the entity nor an administrator.
	ErrForbidden = errors.New("not allowed to access this resource")

	// ErrInvalidState is returned when an operation is not permitted in the
	// entity's current status.
	ErrInvalidState = errors.New("operation not permitted in the current order state")
)

// InvalidRequestError reports a malformed or semantically invalid request,
// naming the violated constraint.
type InvalidRequestError struct {
	Message string
	Fields  []string // missing or offending fields, when known
}

func (e *InvalidRequestError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %v", e.Message, e.Fields)
	}
	return e.Message
}

// InsufficientStockError reports a checkout line whose requested quantity
// exceeds the product's available stock.
type InsufficientStockError struct {
	ProductName string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %q, available: %d", e.ProductName, e.Available)
}
