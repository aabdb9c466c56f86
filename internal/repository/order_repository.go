package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"goldsmith-supplies/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository defines the interface for order data access. Create and
// DeleteWithRestock are transactional: the order write and the stock
// adjustment commit or roll back together.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAllWithOwners(ctx context.Context) ([]*domain.AdminOrder, error)
	Update(ctx context.Context, order *domain.Order) error
	DeleteWithRestock(ctx context.Context, id uuid.UUID) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, user_id, fulfillment_method, pickup_location,
	ship_full_name, ship_phone, ship_address1, ship_address2, ship_city, ship_country, ship_postal_code,
	payment_method, payment_provider, payment_status, payment_transaction_id, payment_paid_at,
	items_price, shipping_price, tax_price, total_price,
	status, is_paid, is_delivered, delivered_at, customer_note, created_at, updated_at`

// Create persists an order and decrements each line's product stock in a
// single transaction. A stock guard failing mid-transaction rolls everything
// back and surfaces as InsufficientStockError, so a concurrent checkout can
// never oversell.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checkout transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range order.Items {
		result, err := tx.ExecContext(ctx, `
			UPDATE products
			SET count_in_stock = count_in_stock - $2, updated_at = NOW()
			WHERE id = $1 AND count_in_stock >= $2
		`, item.ProductID, item.Qty)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			var available int
			if err := tx.QueryRowContext(ctx,
				`SELECT count_in_stock FROM products WHERE id = $1`, item.ProductID,
			).Scan(&available); err != nil {
				if err == sql.ErrNoRows {
					return ErrProductNotFound
				}
				return fmt.Errorf("failed to read stock: %w", err)
			}
			return &domain.InsufficientStockError{ProductName: item.Name, Available: available}
		}
	}

	var addr domain.ShippingAddress
	if order.ShippingAddress != nil {
		addr = *order.ShippingAddress
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, fulfillment_method, pickup_location,
			ship_full_name, ship_phone, ship_address1, ship_address2, ship_city, ship_country, ship_postal_code,
			payment_method, payment_provider, payment_status, payment_transaction_id, payment_paid_at,
			items_price, shipping_price, tax_price, total_price,
			status, is_paid, is_delivered, delivered_at, customer_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16,
			$17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27)
	`,
		order.ID,
		order.UserID,
		order.FulfillmentMethod,
		order.PickupLocation,
		nullIfNoAddress(order.ShippingAddress, addr.FullName),
		nullIfNoAddress(order.ShippingAddress, addr.Phone),
		nullIfNoAddress(order.ShippingAddress, addr.Address1),
		addressOptional(order.ShippingAddress, addr.Address2),
		nullIfNoAddress(order.ShippingAddress, addr.City),
		nullIfNoAddress(order.ShippingAddress, addr.Country),
		addressOptional(order.ShippingAddress, addr.PostalCode),
		order.PaymentMethod,
		order.Payment.Provider,
		order.Payment.Status,
		order.Payment.TransactionID,
		order.Payment.PaidAt,
		order.ItemsPrice,
		order.ShippingPrice,
		order.TaxPrice,
		order.TotalPrice,
		order.Status,
		order.IsPaid,
		order.IsDelivered,
		order.DeliveredAt,
		order.CustomerNote,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, name, image, price, qty)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, order.ID, i, item.ProductID, item.Name, item.Image, item.Price, item.Qty)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout transaction: %w", err)
	}

	return nil
}

func nullIfNoAddress(addr *domain.ShippingAddress, value string) interface{} {
	if addr == nil {
		return nil
	}
	return value
}

func addressOptional(addr *domain.ShippingAddress, value *string) interface{} {
	if addr == nil {
		return nil
	}
	return value
}

type rowScanner interface{ Scan(...any) error }

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var (
		fullName, phone, address1, city, country sql.NullString
		address2, postalCode                     sql.NullString
	)

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.FulfillmentMethod,
		&order.PickupLocation,
		&fullName,
		&phone,
		&address1,
		&address2,
		&city,
		&country,
		&postalCode,
		&order.PaymentMethod,
		&order.Payment.Provider,
		&order.Payment.Status,
		&order.Payment.TransactionID,
		&order.Payment.PaidAt,
		&order.ItemsPrice,
		&order.ShippingPrice,
		&order.TaxPrice,
		&order.TotalPrice,
		&order.Status,
		&order.IsPaid,
		&order.IsDelivered,
		&order.DeliveredAt,
		&order.CustomerNote,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if fullName.Valid {
		order.ShippingAddress = &domain.ShippingAddress{
			FullName: fullName.String,
			Phone:    phone.String,
			Address1: address1.String,
			City:     city.String,
			Country:  country.String,
		}
		if address2.Valid {
			order.ShippingAddress.Address2 = &address2.String
		}
		if postalCode.Valid {
			order.ShippingAddress.PostalCode = &postalCode.String
		}
	}

	return order, nil
}

// loadItems fetches line snapshots for a set of orders in one query, keyed by
// order ID and ordered by line position.
func (r *orderRepository) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error) {
	items := make(map[uuid.UUID][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return items, nil
	}

	placeholders := make([]string, len(orderIDs))
	args := make([]interface{}, len(orderIDs))
	for i, id := range orderIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT order_id, product_id, name, image, price, qty
		FROM order_items
		WHERE order_id IN (%s)
		ORDER BY order_id, position
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID uuid.UUID
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Image, &item.Price, &item.Qty); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// FindByID retrieves an order with its line snapshots.
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	items, err := r.loadItems(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return order, nil
}

// ListByUser retrieves a user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	ids := []uuid.UUID{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		order.Items = items[order.ID]
	}

	return orders, nil
}

// ListAllWithOwners retrieves every order, newest first, with the owning
// account's name, email and role resolved for display.
func (r *orderRepository) ListAllWithOwners(ctx context.Context) ([]*domain.AdminOrder, error) {
	query := fmt.Sprintf(`
		SELECT %s, u.name, u.email, u.role
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC
	`, prefixColumns("o", orderColumns))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list all orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.AdminOrder{}
	ids := []uuid.UUID{}
	for rows.Next() {
		admin := &domain.AdminOrder{}
		var (
			fullName, phone, address1, city, country sql.NullString
			address2, postalCode                     sql.NullString
		)
		err := rows.Scan(
			&admin.ID,
			&admin.UserID,
			&admin.FulfillmentMethod,
			&admin.PickupLocation,
			&fullName,
			&phone,
			&address1,
			&address2,
			&city,
			&country,
			&postalCode,
			&admin.PaymentMethod,
			&admin.Payment.Provider,
			&admin.Payment.Status,
			&admin.Payment.TransactionID,
			&admin.Payment.PaidAt,
			&admin.ItemsPrice,
			&admin.ShippingPrice,
			&admin.TaxPrice,
			&admin.TotalPrice,
			&admin.Status,
			&admin.IsPaid,
			&admin.IsDelivered,
			&admin.DeliveredAt,
			&admin.CustomerNote,
			&admin.CreatedAt,
			&admin.UpdatedAt,
			&admin.Owner.Name,
			&admin.Owner.Email,
			&admin.Owner.Role,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if fullName.Valid {
			admin.ShippingAddress = &domain.ShippingAddress{
				FullName: fullName.String,
				Phone:    phone.String,
				Address1: address1.String,
				City:     city.String,
				Country:  country.String,
			}
			if address2.Valid {
				admin.ShippingAddress.Address2 = &address2.String
			}
			if postalCode.Valid {
				admin.ShippingAddress.PostalCode = &postalCode.String
			}
		}
		orders = append(orders, admin)
		ids = append(ids, admin.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		order.Items = items[order.ID]
	}

	return orders, nil
}

// prefixColumns qualifies each column in a comma-separated list with an alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// Update persists the mutable fields of an order. Line snapshots and totals
// are immutable after checkout.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET pickup_location = $2, payment_status = $3, payment_transaction_id = $4,
		    payment_paid_at = $5, status = $6, is_paid = $7, is_delivered = $8,
		    delivered_at = $9, customer_note = $10, updated_at = $11
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.PickupLocation,
		order.Payment.Status,
		order.Payment.TransactionID,
		order.Payment.PaidAt,
		order.Status,
		order.IsPaid,
		order.IsDelivered,
		order.DeliveredAt,
		order.CustomerNote,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// DeleteWithRestock restores every line's quantity to the corresponding
// product's stock and removes the order, in a single transaction.
func (r *orderRepository) DeleteWithRestock(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cancel transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, qty FROM order_items WHERE order_id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to read order items: %w", err)
	}

	type line struct {
		productID uuid.UUID
		qty       int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.qty); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating order items: %w", err)
	}
	rows.Close()

	for _, l := range lines {
		if _, err := tx.ExecContext(ctx, `
			UPDATE products
			SET count_in_stock = count_in_stock + $2, updated_at = NOW()
			WHERE id = $1
		`, l.productID, l.qty); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancel transaction: %w", err)
	}

	return nil
}
