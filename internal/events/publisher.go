package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/marketplace-backend/internal/order"
)

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	// Declare the exchange so publish never fails due to missing infra
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}

	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishOrderCreated(ctx context.Context, o *order.Order) error {
	payload := OrderCreated{
		OrderID:     o.ID,
		UserID:      o.UserID,
		StoreID:     o.StoreID,
		TotalAmount: o.TotalAmount,
		Items:       toLines(o.Items),
	}
	return publishEnvelope(ctx, p.ch, OrderCreatedRoutingKey, NewOrderCreatedEnvelope(payload))
}

func (p *Publisher) PublishOrderCancelled(ctx context.Context, o *order.Order) error {
	payload := OrderCancelled{
		OrderID: o.ID,
		UserID:  o.UserID,
		StoreID: o.StoreID,
		Items:   toLines(o.Items),
	}
	return publishEnvelope(ctx, p.ch, OrderCancelledRoutingKey, NewOrderCancelledEnvelope(payload))
}

// NewOrderCreatedEnvelope wraps an OrderCreated payload in the shared
// envelope. Exposed so tests and future consumers share one contract.
func NewOrderCreatedEnvelope(payload OrderCreated) EventEnvelope[OrderCreated] {
	return EventEnvelope[OrderCreated]{
		EventName:    OrderCreatedName,
		EventVersion: OrderCreatedVersion,
		EventID:      uuid.NewString(),
		Producer:     producerName,
		PartitionKey: payload.StoreID,
		OccurredAt:   time.Now().UTC(),
		Payload:      payload,
	}
}

func NewOrderCancelledEnvelope(payload OrderCancelled) EventEnvelope[OrderCancelled] {
	return EventEnvelope[OrderCancelled]{
		EventName:    OrderCancelledName,
		EventVersion: OrderCancelledVersion,
		EventID:      uuid.NewString(),
		Producer:     producerName,
		PartitionKey: payload.StoreID,
		OccurredAt:   time.Now().UTC(),
		Payload:      payload,
	}
}

func toLines(items []order.Item) []OrderLine {
	lines := make([]OrderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, OrderLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return lines
}

func publishEnvelope[T any](ctx context.Context, ch *amqp.Channel, routingKey string, env EventEnvelope[T]) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.EventName, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    env.EventID,
			Body:         body,
		},
	)
}
