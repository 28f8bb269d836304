package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

// ErrNotConfirmed is returned when the broker negatively acknowledges a
// published message.
var ErrNotConfirmed = errors.New("publish not confirmed by broker")

// confirmation is the broker acknowledgement Publish waits for.
// *amqp.DeferredConfirmation implements it.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// Publisher publishes JSON events to the configured exchange.  The
// connection is opened on first use and re-dialled after a failure; all
// publishes share one confirm-mode channel.  The mutex only guards sending
// on the channel: confirms are awaited outside of it, so concurrent
// publishers do not queue behind each other's round trips.  The publisher
// never retries: a failed publish is returned to the caller.
type Publisher struct {
	cfg config.RabbitMQConfig

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel

	send func(ctx context.Context, routingKey string, msg amqp.Publishing) (confirmation, error)
}

func NewPublisher(cfg config.RabbitMQConfig) *Publisher {
	p := &Publisher{cfg: cfg}
	p.send = p.sendOnChannel
	return p
}

// Publish sends payload as JSON with the given routing key.  A retryCount
// greater than zero is attached as the x-retry header.  Publish returns
// once the broker confirmed the message or PublishTimeout elapsed.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any, retryCount int) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", routingKey, err)
	}
	msg := newPublishing(body, retryCount, time.Now())

	if p.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.PublishTimeout)
		defer cancel()
	}

	confirm, err := p.send(ctx, routingKey, msg)
	if err != nil {
		return err
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm for %s: %w", routingKey, err)
	}
	if !acked {
		return fmt.Errorf("%s: %w", routingKey, ErrNotConfirmed)
	}
	logrus.WithFields(logrus.Fields{
		"exchange":    p.cfg.ExchangeName,
		"routing_key": routingKey,
		"retry":       retryCount,
	}).Debug("event published")
	return nil
}

// sendOnChannel hands msg to the broker and returns its pending
// confirmation.
func (p *Publisher) sendOnChannel(ctx context.Context, routingKey string, msg amqp.Publishing) (confirmation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return nil, err
	}
	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		p.cfg.ExchangeName, // exchange
		routingKey,         // routing key
		false,              // mandatory
		false,              // immediate
		msg,
	)
	if err != nil {
		p.reset()
		return nil, fmt.Errorf("publish %s: %w", routingKey, err)
	}
	if confirm == nil {
		// only happens when the channel left confirm mode
		p.reset()
		return nil, fmt.Errorf("%s: %w", routingKey, ErrNotConfirmed)
	}
	return confirm, nil
}

// newPublishing builds a persistent JSON message.  The retry header is
// only present when retryCount is positive.
func newPublishing(body []byte, retryCount int, now time.Time) amqp.Publishing {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    now.UTC(),
		Body:         body,
	}
	if retryCount > 0 {
		msg.Headers = amqp.Table{RetryHeader: int32(retryCount)}
	}
	return msg
}

// channel returns the open confirm-mode channel, dialling when needed.
// The caller must hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open: %w", err)
	}
	if err := declareExchange(ch, p.cfg); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq confirm mode: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// declareExchange declares the durable exchange (idempotent).
func declareExchange(ch *amqp.Channel, cfg config.RabbitMQConfig) error {
	err := ch.ExchangeDeclare(
		cfg.ExchangeName, // name
		cfg.ExchangeType, // kind
		true,             // durable
		false,            // autoDelete
		false,            // internal
		false,            // noWait
		nil,              // args
	)
	if err != nil {
		return fmt.Errorf("exchange declare %s: %w", cfg.ExchangeName, err)
	}
	return nil
}
