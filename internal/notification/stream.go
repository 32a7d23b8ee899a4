package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SettledStream receives one entry per settled order.
	SettledStream = "orders:settled"

	publishTimeout = 2 * time.Second
)

// StreamNotifier publishes settlement events to a Redis stream. Consumers
// (confirmation email worker, analytics) read it with their own consumer
// groups.
type StreamNotifier struct {
	client *redis.Client
}

func NewStreamNotifier(client *redis.Client) *StreamNotifier {
	return &StreamNotifier{client: client}
}

func (n *StreamNotifier) NotifySettled(ctx context.Context, event SettlementEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement event: %w", err)
	}

	// Bounded so a slow Redis never holds up the webhook response.
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: SettledStream,
		Values: map[string]any{
			"order_id":         event.OrderID,
			"transaction_uuid": event.TransactionUUID,
			"payload":          string(payload),
			"timestamp":        time.Now().Unix(),
		},
	}

	if _, err := n.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish settlement event: %w", err)
	}

	return nil
}
