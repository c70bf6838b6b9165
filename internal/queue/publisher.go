package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/datapole/go-etl/internal/domain"
)

// Publisher pushes batch references onto the Redis work queue. Collectors
// publish a reference per saved batch; workers pick them up and run the
// pipeline on each.
type Publisher struct {
	client    *redis.Client
	queueName string
}

// NewPublisher creates a queue publisher.
func NewPublisher(client *redis.Client, queueName string) *Publisher {
	if queueName == "" {
		queueName = "etl:batches"
	}
	return &Publisher{
		client:    client,
		queueName: queueName,
	}
}

// Publish pushes a single batch reference onto the queue.
func (p *Publisher) Publish(ctx context.Context, ref *domain.BatchRef) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("marshal batch ref: %w", err)
	}

	if err := p.client.LPush(ctx, p.queueName, data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}

	return nil
}

// PublishBatch pushes multiple references in one pipeline round-trip.
func (p *Publisher) PublishBatch(ctx context.Context, refs []*domain.BatchRef) error {
	if len(refs) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, ref := range refs {
		data, err := json.Marshal(ref)
		if err != nil {
			return fmt.Errorf("marshal batch ref: %w", err)
		}
		pipe.LPush(ctx, p.queueName, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}

	return nil
}

// QueueLength returns the current queue length.
func (p *Publisher) QueueLength(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queueName).Result()
}
