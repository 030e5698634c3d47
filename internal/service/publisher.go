// Package service publishes domain events to RabbitMQ. Publish errors are
// logged and returned so callers can ignore them without interrupting the
// request that triggered the event.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/leduoyang/connect-backend/internal/queue"
)

// Publisher sends counter-refresh events. A zero URL disables publishing,
// which keeps handler code unconditional.
type Publisher struct {
	URL string
}

// PublishCounter enqueues one counter-refresh event on the durable counter
// queue. Each publish uses a short-lived connection; counter traffic is low
// enough that connection reuse is not worth the state management.
func (p *Publisher) PublishCounter(ctx context.Context, ev queue.CounterEvent) error {
	if p == nil || p.URL == "" {
		return nil
	}
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("publisher: dial failed: %v", err)
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("publisher: channel open failed: %v", err)
		return err
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue.CounterQueueName, true, false, false, false, nil); err != nil {
		log.Printf("publisher: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.CounterQueueName, false, false, pub); err != nil {
		log.Printf("publisher: publish failed: %v", err)
		return err
	}
	return nil
}
