package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/log"
)

var errDeliveriesClosed = errors.New("deliveries channel closed")

// Message is a delivery as seen by a Handler.
type Message struct {
	RoutingKey  string
	Body        []byte
	Retry       int // value of the x-retry header, 0 when absent
	DeliveryTag uint64
}

// Decode unmarshals the JSON body into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Body, v); err != nil {
		return fmt.Errorf("unmarshal %s message: %w", m.RoutingKey, err)
	}
	return nil
}

// Handler processes one message.  Returning nil acknowledges the delivery;
// an error rejects it without requeueing, so a handler that wants another
// attempt must republish the message itself.
type Handler func(ctx context.Context, msg Message) error

type binding struct {
	queue      string
	routingKey string
	handler    Handler
}

// Consumer consumes durable queues bound to the configured exchange.
type Consumer struct {
	cfg        config.RabbitMQConfig
	bindings   []binding
	maxBackoff time.Duration
}

func NewConsumer(cfg config.RabbitMQConfig) *Consumer {
	return &Consumer{cfg: cfg, maxBackoff: 30 * time.Second}
}

// Handle registers handler for the queue bound with routingKey.  It must be
// called before Run.
func (c *Consumer) Handle(queue, routingKey string, handler Handler) {
	c.bindings = append(c.bindings, binding{queue: queue, routingKey: routingKey, handler: handler})
}

// Run connects to the broker and consumes every registered queue until ctx
// is cancelled.  Lost connections are re-established with exponential
// backoff.  Run returns nil after ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if len(c.bindings) == 0 {
		return errors.New("consumer: no handlers registered")
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			logrus.WithError(err).Warnf("consumer: failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < c.maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		logrus.WithError(err).Warn("consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.cfg.PrefetchCount, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	if err := declareExchange(ch, c.cfg); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range c.bindings {
		b := b
		if _, err := ch.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", b.queue, err)
		}
		if err := ch.QueueBind(b.queue, b.routingKey, c.cfg.ExchangeName, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", b.queue, err)
		}
		msgs, err := ch.Consume(b.queue, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", b.queue, err)
		}
		logrus.WithFields(logrus.Fields{"queue": b.queue, "routing_key": b.routingKey}).Info("consumer: subscribed")

		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case d, ok := <-msgs:
					if !ok {
						return fmt.Errorf("%s: %w", b.queue, errDeliveriesClosed)
					}
					// In-flight messages finish even when shutdown starts.
					dispatch(context.WithoutCancel(gctx), b, d)
				}
			}
		})
	}
	return g.Wait()
}

// dispatch runs the handler for one delivery and settles it: Ack on
// success, Nack without requeue on error.
func dispatch(ctx context.Context, b binding, d amqp.Delivery) {
	msg := Message{
		RoutingKey:  d.RoutingKey,
		Body:        d.Body,
		Retry:       retryCount(d.Headers),
		DeliveryTag: d.DeliveryTag,
	}
	entry := logrus.WithFields(logrus.Fields{
		"queue":        b.queue,
		"routing_key":  msg.RoutingKey,
		"retry":        msg.Retry,
		"delivery_tag": msg.DeliveryTag,
	})

	if err := b.handler(log.ToContext(ctx, entry), msg); err != nil {
		entry.WithError(err).Error("consumer: handle message failed")
		if nackErr := d.Nack(false, false); nackErr != nil {
			entry.WithError(nackErr).Error("consumer: nack failed")
		}
		return
	}
	if err := d.Ack(false); err != nil {
		entry.WithError(err).Error("consumer: ack failed")
	}
}

// retryCount reads the x-retry header.  Brokers and client libraries encode
// integers with different widths, so every numeric type is accepted.
func retryCount(headers amqp.Table) int {
	switch v := headers[RetryHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// sleep waits for d or until ctx is done.  It reports false when ctx ended
// first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
