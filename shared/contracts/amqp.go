package contracts

import (
	"context"
)

// AMQPMessage represents a message to be published to AMQP
type AMQPMessage struct {
	Exchange   string                 `json:"exchange"`
	RoutingKey string                 `json:"routing_key"`
	Body       []byte                 `json:"body"`
	Headers    map[string]interface{} `json:"headers,omitempty"`
}

// AMQPClient defines the interface for AMQP operations
type AMQPClient interface {
	// Publish publishes a message to the specified exchange
	Publish(ctx context.Context, message AMQPMessage) error

	// Close closes the AMQP connection
	Close() error
}

// Exchange names
const (
	BlinksExchange   = "blinks.events"
	EditionsExchange = "editions.events"
)

// Queue names
const (
	OrdersFulfilledQueue = "notify.orders.fulfilled"
	PrintsMintedQueue    = "notify.editions.minted"
)

// Routing keys
const (
	OrderFulfilledKey = "order.fulfilled"
	PrintMintedKey    = "print.minted"
)
