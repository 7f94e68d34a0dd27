package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/investa/backoffice-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ChangeNotifier turns RabbitMQ change messages into per-subscription event
// channels for the feed layer. Each subscription gets its own AMQP channel
// and an exclusive auto-delete queue bound to the collection's routing keys,
// so cancelling one feed never disturbs another.
type ChangeNotifier struct {
	conn *amqp.Connection
}

// NewChangeNotifier dials RabbitMQ for consuming change notifications.
func NewChangeNotifier(amqpURL string) (*ChangeNotifier, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(cleanURL)
	if err != nil {
		return nil, err
	}
	return &ChangeNotifier{conn: conn}, nil
}

// Subscribe opens a change stream for one collection, optionally narrowed to
// a scope id. The returned release function drains and closes the AMQP
// channel; it is safe to call more than once.
func (n *ChangeNotifier) Subscribe(ctx context.Context, collection, scopeID string) (<-chan domain.ChangeEvent, func(), error) {
	ch, err := n.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ChangeExchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, nil, err
	}

	// Exclusive auto-delete queue: one per live subscription.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, nil, err
	}

	// A scoped subscription binds its exact key; an unscoped one takes the
	// whole collection.
	bindKey := "change." + collection + ".#"
	if scopeID != "" {
		bindKey = ChangeRoutingKey(collection, scopeID)
	}
	if err := ch.QueueBind(q.Name, bindKey, ChangeExchange, false, nil); err != nil {
		ch.Close()
		return nil, nil, err
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, nil, err
	}

	out := make(chan domain.ChangeEvent, 16)
	release := func() { ch.Close() }

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var event domain.ChangeEvent
				if err := json.Unmarshal(d.Body, &event); err != nil {
					log.Printf("level=warn component=rabbitmq_notifier msg=\"undecodable change event dropped\" routing_key=%s err=%v", d.RoutingKey, err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				default:
					// Feed re-fetches the full result set per event, so a
					// slow consumer can safely coalesce notifications.
				}
			}
		}
	}()

	return out, release, nil
}

// Close shuts down the consuming connection.
func (n *ChangeNotifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}
