package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange           = "marketplace.events"
	OrderCreatedRoutingKey   = "order.created.v1"
	OrderCancelledRoutingKey = "order.cancelled.v1"
	producerName             = "order-service"
)

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
