package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/datapole/go-etl/internal/domain"
)

// Consumer pops batch references from the Redis work queue.
type Consumer struct {
	client    *redis.Client
	queueName string
	timeout   time.Duration
}

// NewConsumer creates a queue consumer.
func NewConsumer(client *redis.Client, queueName string, timeout time.Duration) *Consumer {
	if queueName == "" {
		queueName = "etl:batches"
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Consumer{
		client:    client,
		queueName: queueName,
		timeout:   timeout,
	}
}

// Consume blocks until a reference is available or the poll timeout
// passes. A timeout returns nil, nil.
func (c *Consumer) Consume(ctx context.Context) (*domain.BatchRef, error) {
	result, err := c.client.BRPop(ctx, c.timeout, c.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("brpop: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var ref domain.BatchRef
	if err := json.Unmarshal([]byte(result[1]), &ref); err != nil {
		return nil, fmt.Errorf("unmarshal batch ref: %w", err)
	}

	return &ref, nil
}

// ConsumeBatch pops up to maxBatch references. The first pop blocks via
// BRPOP so an idle worker doesn't spin; the rest are drained with RPOP.
func (c *Consumer) ConsumeBatch(ctx context.Context, maxBatch int) ([]*domain.BatchRef, error) {
	refs := make([]*domain.BatchRef, 0, maxBatch)

	result, err := c.client.BRPop(ctx, c.timeout, c.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return refs, nil
		}
		return nil, fmt.Errorf("brpop: %w", err)
	}

	if len(result) >= 2 {
		var ref domain.BatchRef
		if err := json.Unmarshal([]byte(result[1]), &ref); err == nil {
			refs = append(refs, &ref)
		}
	}

	for i := 1; i < maxBatch; i++ {
		result, err := c.client.RPop(ctx, c.queueName).Result()
		if err != nil {
			if err == redis.Nil {
				break
			}
			return refs, fmt.Errorf("rpop: %w", err)
		}

		var ref domain.BatchRef
		if err := json.Unmarshal([]byte(result), &ref); err != nil {
			continue
		}

		refs = append(refs, &ref)
	}

	return refs, nil
}

// Run consumes references until the context is cancelled, passing each to
// the handler. Handler errors are logged and the loop keeps going.
func (c *Consumer) Run(ctx context.Context, handler func(*domain.BatchRef) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ref, err := c.Consume(ctx)
		if err != nil {
			return fmt.Errorf("consume: %w", err)
		}

		if ref == nil {
			continue
		}

		if err := handler(ref); err != nil {
			log.Printf("[Queue] Handler error for %s: %v", ref.Name, err)
		}
	}
}
