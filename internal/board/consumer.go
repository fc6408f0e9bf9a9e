package board

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"taxi-fleet/internal/shared/util"
)

// event is the envelope pushed to connected boards.
type event struct {
	RoutingKey string          `json:"routing_key"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Consume binds a private queue to the dispatch exchange for every
// order and shift event and feeds them into the hub.
func Consume(ch *amqp091.Channel, exchange string, hub *Hub, logger *util.Logger) error {
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare board queue: %w", err)
	}

	for _, key := range []string{"order.#", "shift.#"} {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume board queue: %w", err)
	}

	go func() {
		instance := "Board.Consume"
		for d := range deliveries {
			msg, err := json.Marshal(event{
				RoutingKey: d.RoutingKey,
				Payload:    d.Body,
				ReceivedAt: time.Now(),
			})
			if err != nil {
				logger.Warn(instance, fmt.Sprintf("drop %s: %v", d.RoutingKey, err))
				continue
			}
			hub.Broadcast(msg)
		}
		logger.Warn(instance, "delivery channel closed")
	}()

	return nil
}
