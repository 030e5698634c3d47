package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/leduoyang/connect-backend/internal/repository"
)

// refreshAttempts bounds how many times one event re-runs the full
// read-check-write sequence before being dropped. The repositories never
// retry on their own; losing a version race here just means another reader
// has already moved the counter forward, so re-reading converges quickly.
const refreshAttempts = 3

// Consumer drains counter-refresh events and applies them through the
// version-guarded repository operations.
type Consumer struct {
	URL      string
	Users    *repository.UserRepo
	Posts    *repository.PostRepo
	Comments *repository.CommentRepo
}

// Start connects to RabbitMQ, declares the durable counter queue and
// consumes it until the context is cancelled. Connection loss triggers a
// reconnect loop with capped exponential backoff.
func (c *Consumer) Start(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("counter-consumer: dial failed: %v; retrying in %s", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consume(ctx, conn); err != nil {
			log.Printf("counter-consumer: consume loop ended: %v; reconnecting", err)
		}
		_ = conn.Close()
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(CounterQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	deliveries, err := ch.Consume(CounterQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			var ev CounterEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				log.Printf("counter-consumer: bad payload: %v", err)
				_ = d.Reject(false)
				continue
			}
			if err := c.apply(ctx, ev); err != nil {
				log.Printf("counter-consumer: refresh %s/%s failed: %v", ev.Entity, ev.Field, err)
				_ = d.Reject(false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// apply re-runs read -> compute -> versioned write until it sticks or the
// attempt budget runs out. ErrNotFound means the record disappeared since
// the event was published; the event is then obsolete, not an error.
func (c *Consumer) apply(ctx context.Context, ev CounterEvent) error {
	var err error
	for i := 0; i < refreshAttempts; i++ {
		err = c.applyOnce(ctx, ev)
		if err == nil || errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if !errors.Is(err, repository.ErrUpdateFailed) {
			return err
		}
	}
	return err
}

func (c *Consumer) applyOnce(ctx context.Context, ev CounterEvent) error {
	switch ev.Entity {
	case EntityUser:
		u, err := c.Users.GetByUserID(ctx, ev.UserID)
		if err != nil {
			return err
		}
		switch ev.Field {
		case FieldViews:
			return c.Users.IncrementViews(ctx, u.UserID, u.Version)
		case FieldFollowers:
			return c.Users.RefreshFollowers(ctx, u.UserID, u.Version, clampCount(u.Followers+ev.Delta))
		case FieldFollowings:
			return c.Users.RefreshFollowings(ctx, u.UserID, u.Version, clampCount(u.Followings+ev.Delta))
		}
	case EntityPost:
		p, err := c.Posts.GetByID(ctx, ev.ID)
		if err != nil {
			return err
		}
		switch ev.Field {
		case FieldViews:
			return c.Posts.IncrementViews(ctx, p.ID, p.Version)
		case FieldStars:
			return c.Posts.RefreshStars(ctx, p.ID, p.Version, clampCount(p.Stars+ev.Delta))
		}
	case EntityComment:
		cm, err := c.Comments.GetByID(ctx, ev.ID)
		if err != nil {
			return err
		}
		switch ev.Field {
		case FieldViews:
			return c.Comments.IncrementViews(ctx, cm.ID, cm.Version)
		case FieldStars:
			return c.Comments.RefreshStars(ctx, cm.ID, cm.Version, clampCount(cm.Stars+ev.Delta))
		}
	}
	return fmt.Errorf("unknown counter event %s/%s", ev.Entity, ev.Field)
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
