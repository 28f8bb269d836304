// Package notification sends purchase confirmation mails.  The Notifier
// handles messages from the purchase queue and its fail queue; a message
// whose confirmation cannot be delivered moves to the fail queue, where it
// is retried until its retry budget runs out.
package notification

import (
	"context"
	"fmt"

	"github.com/iliyamo/cinema-ticketing/internal/log"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

// TicketLoader loads a ticket with its user, session and movie.
type TicketLoader interface {
	GetTicket(ctx context.Context, ticketID string) (*model.Ticket, error)
}

// Publisher republishes failed messages.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any, retryCount int) error
}

// Notifier delivers confirmations for purchase events.
type Notifier struct {
	tickets   TicketLoader
	renderer  *Renderer
	mailer    Mailer
	publisher Publisher
	ledger    Ledger // optional
}

// New returns a Notifier.  ledger may be nil, in which case duplicate
// deliveries are not detected.
func New(tickets TicketLoader, renderer *Renderer, mailer Mailer, publisher Publisher, ledger Ledger) *Notifier {
	return &Notifier{tickets: tickets, renderer: renderer, mailer: mailer, publisher: publisher, ledger: ledger}
}

// Register binds both handlers on c.
func (n *Notifier) Register(c *queue.Consumer) {
	c.Handle(queue.QueueBuyTicket, queue.RoutingKeyBuyTicket, n.HandlePurchase)
	c.Handle(queue.QueueBuyTicketFail, queue.RoutingKeyBuyTicketFail, n.HandlePurchaseFail)
}

// HandlePurchase processes a message from the primary queue.  On failure the
// payload is handed to the fail queue and the original is acknowledged, so
// a broken message never blocks new purchases.  A message without retry
// header starts the fail queue with the full InitialRetryCount budget.
func (n *Notifier) HandlePurchase(ctx context.Context, msg queue.Message) error {
	var ev queue.TicketPurchasedEvent
	if err := msg.Decode(&ev); err != nil {
		return err
	}
	err := n.deliver(ctx, ev)
	if err == nil {
		return nil
	}

	next := msg.Retry - 1
	if msg.Retry <= 0 {
		next = queue.InitialRetryCount
	}
	log.FromContext(ctx).WithError(err).
		WithField("ticket_id", ev.TicketID).
		WithField("next_retry", next).
		Warn("confirmation failed; moving to fail queue")
	if pubErr := n.publisher.Publish(ctx, queue.RoutingKeyBuyTicketFail, ev, next); pubErr != nil {
		return fmt.Errorf("republish ticket %s to fail queue: %w", ev.TicketID, pubErr)
	}
	return nil
}

// HandlePurchaseFail processes a message from the fail queue.  A failed
// attempt is republished with the budget decremented while budget remains
// and dropped otherwise.
func (n *Notifier) HandlePurchaseFail(ctx context.Context, msg queue.Message) error {
	var ev queue.TicketPurchasedEvent
	if err := msg.Decode(&ev); err != nil {
		return err
	}
	err := n.deliver(ctx, ev)
	if err == nil {
		return nil
	}

	entry := log.FromContext(ctx).WithError(err).WithField("ticket_id", ev.TicketID)
	if msg.Retry <= 1 {
		entry.WithField("exhausted", true).Error("confirmation dropped after exhausting retries")
		return nil
	}
	entry.WithField("next_retry", msg.Retry-1).Warn("confirmation failed; retrying")
	if pubErr := n.publisher.Publish(ctx, queue.RoutingKeyBuyTicketFail, ev, msg.Retry-1); pubErr != nil {
		return fmt.Errorf("republish ticket %s to fail queue: %w", ev.TicketID, pubErr)
	}
	return nil
}

// deliver loads the ticket, renders the confirmation and mails it.
func (n *Notifier) deliver(ctx context.Context, ev queue.TicketPurchasedEvent) error {
	logger := log.FromContext(ctx).WithField("ticket_id", ev.TicketID)
	if n.ledger != nil {
		sent, err := n.ledger.Sent(ctx, ev.TicketID)
		if err != nil {
			logger.WithError(err).Warn("notification ledger unavailable")
		} else if sent {
			logger.Info("confirmation already sent; skipping")
			return nil
		}
	}

	ticket, err := n.tickets.GetTicket(ctx, ev.TicketID)
	if err != nil {
		return fmt.Errorf("load ticket: %w", err)
	}
	if ticket.User == nil || ticket.User.Email == "" {
		return fmt.Errorf("ticket %s has no recipient address", ticket.ID)
	}
	conf, err := n.renderer.Render(ticket)
	if err != nil {
		return err
	}
	if err := n.mailer.SendMail(ctx, []string{ticket.User.Email}, conf.Subject, conf.HTML); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	logger.WithField("to", ticket.User.Email).Info("confirmation sent")

	if n.ledger != nil {
		if err := n.ledger.MarkSent(ctx, ev.TicketID); err != nil {
			logger.WithError(err).Warn("could not record sent confirmation")
		}
	}
	return nil
}
