// Package queue carries ticketing events over RabbitMQ.  A Publisher sends
// JSON events to a durable exchange; a Consumer binds durable queues to
// routing keys and dispatches deliveries to handlers with manual
// acknowledgement.
package queue

// Broker topology shared by the API and the notifier.
const (
	RoutingKeyBuyTicket     = "buy-ticket"
	RoutingKeyBuyTicketFail = "buy-ticket-fail"
	QueueBuyTicket          = "buy-ticket-queue"
	QueueBuyTicketFail      = "buy-ticket-fail-queue"

	// RetryHeader carries the remaining retry budget of a message.
	RetryHeader = "x-retry"
	// InitialRetryCount is the retry budget a failed confirmation starts
	// with on the fail queue.
	InitialRetryCount = 5
)

// TicketPurchasedEvent is published once per committed ticket purchase.
type TicketPurchasedEvent struct {
	UserID   string `json:"userId"`
	TicketID string `json:"ticketId"`
}
