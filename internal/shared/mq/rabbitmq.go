package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"taxi-fleet/internal/shared/config"
)

// Connect dials RabbitMQ, opens a channel and declares the dispatch
// topic exchange order and shift events are published to.
func Connect(cfg config.RabbitMQConfig) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(cfg.URL())
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return conn, ch, nil
}
