package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	// Redis keys
	queueKey      = "notification_queue"
	processingKey = "notification_processing"

	popTimeout = 5 * time.Second
)

// QueueDispatcher enqueues notifications on a Redis list for an external
// sender to drain. Delivery is at-least-once: a consumer crash leaves the
// item on the processing list, from where the sweeper requeues it.
type QueueDispatcher struct {
	client *redis.Client
}

// NewQueueDispatcher creates a Redis-backed dispatcher.
func NewQueueDispatcher(client *redis.Client) *QueueDispatcher {
	return &QueueDispatcher{client: client}
}

// Dispatch pushes the notification onto the queue.
func (q *QueueDispatcher) Dispatch(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, queueKey, payload).Err(); err != nil {
		return err
	}
	log.Infof("[Notify] enqueued %s notification for %s", n.Kind, n.RecipientPhone)
	return nil
}

// Next blocks for the next notification, moving it to the processing list.
// The caller must Ack it after a successful send.
func (q *QueueDispatcher) Next(ctx context.Context) (*Notification, string, error) {
	raw, err := q.client.BRPopLPush(ctx, queueKey, processingKey, popTimeout).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil
		}
		return nil, "", err
	}

	var n Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		// Malformed entry: drop it from processing so it cannot wedge the queue.
		q.client.LRem(ctx, processingKey, 1, raw)
		return nil, "", err
	}
	return &n, raw, nil
}

// Ack removes a delivered notification from the processing list.
func (q *QueueDispatcher) Ack(ctx context.Context, raw string) error {
	return q.client.LRem(ctx, processingKey, 1, raw).Err()
}

// Requeue returns a failed notification to the queue for another attempt.
func (q *QueueDispatcher) Requeue(ctx context.Context, raw string) error {
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, processingKey, 1, raw)
	pipe.LPush(ctx, queueKey, raw)
	_, err := pipe.Exec(ctx)
	return err
}

// LogDispatcher logs notifications instead of queueing them. Used in dev and
// in tests.
type LogDispatcher struct{}

// Dispatch logs the notification.
func (LogDispatcher) Dispatch(_ context.Context, n Notification) error {
	log.Infof("[Notify] %s notification for %s: %v", n.Kind, n.RecipientPhone, n.Data)
	return nil
}
