package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/metrics"
	rediscommon "github.com/lyzr/colorsort/common/redis"
	"github.com/redis/go-redis/v9"
)

const (
	streamKeyField   = "key"
	streamValueField = "value"
)

// RedisStreamQueue distributes messages to workers in separate processes
// through a Redis stream and one consumer group.
// Messages are acknowledged after one handling attempt, successful or not.
// Messages read by a consumer that died before acknowledging them are claimed
// by another consumer once they have been idle for claimIdle.
type RedisStreamQueue struct {
	client     *rediscommon.Client
	group      string
	block      time.Duration
	claimIdle  time.Duration
	claimEvery time.Duration
	log        *logger.Logger
}

// NewRedisStreamQueue creates a stream queue reading as consumer group `group`.
// A zero claimIdle disables claiming.
func NewRedisStreamQueue(client *rediscommon.Client, group string, claimIdle time.Duration, log *logger.Logger) *RedisStreamQueue {
	return &RedisStreamQueue{
		client:     client,
		group:      group,
		block:      2 * time.Second,
		claimIdle:  claimIdle,
		claimEvery: time.Minute,
		log:        log,
	}
}

// Publish appends a message to the topic stream
func (q *RedisStreamQueue) Publish(ctx context.Context, topic string, key string, message []byte) error {
	_, err := q.client.AddToStream(ctx, topic, map[string]interface{}{
		streamKeyField:   key,
		streamValueField: string(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe starts one consumer of the group on the topic stream
func (q *RedisStreamQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	if err := q.client.CreateStreamGroup(ctx, topic, q.group); err != nil {
		return err
	}

	consumer := fmt.Sprintf("%s-%s", q.group, uuid.NewString()[:8])
	q.log.Info("subscribing to stream", "stream", topic, "group", q.group, "consumer", consumer)

	go q.consume(ctx, topic, consumer, handler)
	return nil
}

func (q *RedisStreamQueue) consume(ctx context.Context, topic, consumer string, handler MessageHandler) {
	var lastClaim time.Time

	for {
		select {
		case <-ctx.Done():
			q.log.Info("stream consumer stopped", "stream", topic, "consumer", consumer)
			return
		default:
		}

		if q.claimIdle > 0 && time.Since(lastClaim) >= q.claimEvery {
			lastClaim = time.Now()
			q.reclaim(ctx, topic, consumer, handler)
		}

		streams, err := q.client.ReadFromStreamGroup(ctx, q.group, consumer, topic, 1, q.block)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			q.log.Error("failed to read from stream", "stream", topic, "error", err)
			time.Sleep(1 * time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.handle(ctx, topic, msg, handler)
			}
		}
	}
}

// reclaim takes over messages abandoned by dead consumers
func (q *RedisStreamQueue) reclaim(ctx context.Context, topic, consumer string, handler MessageHandler) {
	msgs, err := q.client.ClaimIdleMessages(ctx, topic, q.group, consumer, q.claimIdle, 10)
	if err != nil {
		if ctx.Err() == nil {
			q.log.Error("failed to claim idle messages", "stream", topic, "error", err)
		}
		return
	}

	for _, msg := range msgs {
		q.log.Warn("claimed abandoned message", "stream", topic, "consumer", consumer, "message_id", msg.ID)
		metrics.StreamMessagesReclaimed.WithLabelValues(topic).Inc()
		q.handle(ctx, topic, msg, handler)
	}
}

func (q *RedisStreamQueue) handle(ctx context.Context, topic string, msg redis.XMessage, handler MessageHandler) {
	key, _ := msg.Values[streamKeyField].(string)
	value, _ := msg.Values[streamValueField].(string)

	if err := handler(ctx, key, []byte(value)); err != nil {
		q.log.Error("message handler error", "stream", topic, "key", key, "message_id", msg.ID, "error", err)
	}

	if err := q.client.AckStreamMessage(context.WithoutCancel(ctx), topic, q.group, msg.ID); err != nil {
		q.log.Error("failed to ack message", "stream", topic, "message_id", msg.ID, "error", err)
	}
}

// Close is a no-op, the Redis client is owned by bootstrap
func (q *RedisStreamQueue) Close() error {
	return nil
}
