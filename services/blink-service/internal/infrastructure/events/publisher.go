package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fosterlabs/blink-engine/shared/contracts"
	"github.com/fosterlabs/blink-engine/shared/logging"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
)

// Publisher emits blink domain events over AMQP. Delivery is
// at-least-once; downstream consumers dedupe on the event key.
type Publisher struct {
	client contracts.AMQPClient
	logger *logging.Logger
}

func NewPublisher(client contracts.AMQPClient, logger *logging.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

func (p *Publisher) PublishPrintMinted(ctx context.Context, event *domain.PrintMintedEvent) error {
	return p.publish(ctx, contracts.EditionsExchange, contracts.PrintMintedKey, event)
}

func (p *Publisher) PublishOrderFulfilled(ctx context.Context, event *domain.OrderFulfilledEvent) error {
	return p.publish(ctx, contracts.BlinksExchange, contracts.OrderFulfilledKey, event)
}

func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", routingKey, err)
	}
	err = p.client.Publish(ctx, contracts.AMQPMessage{
		Exchange:   exchange,
		RoutingKey: routingKey,
		Body:       body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", routingKey, err)
	}
	p.logger.WithContext(ctx).WithField("routing_key", routingKey).Debug("event published")
	return nil
}
