package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"goldsmith-supplies/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// OrderEvent is the wire format for order lifecycle events.
type OrderEvent struct {
	Event      string    `json:"event"`
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	TotalPrice float64   `json:"total_price"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits order events onto a RabbitMQ queue for back-office
// consumers (fulfillment dashboards, notifications).
type Publisher struct {
	conn   *amqp.Connection
	queue  string
	logger *zap.Logger
}

// NewPublisher connects to the broker and declares the queue.
func NewPublisher(url, queue string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Publisher{conn: conn, queue: queue, logger: logger}, nil
}

// OrderCreated publishes an order.created event.
func (p *Publisher) OrderCreated(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, "order.created", order)
}

// OrderCancelled publishes an order.cancelled event.
func (p *Publisher) OrderCancelled(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, "order.cancelled", order)
}

func (p *Publisher) publish(ctx context.Context, event string, order *domain.Order) error {
	body, err := json.Marshal(OrderEvent{
		Event:      event,
		OrderID:    order.ID.String(),
		UserID:     order.UserID.String(),
		Status:     string(order.Status),
		TotalPrice: order.TotalPrice,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Order event published",
		zap.String("event", event),
		zap.String("order_id", order.ID.String()),
	)

	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	return p.conn.Close()
}
