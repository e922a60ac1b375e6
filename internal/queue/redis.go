package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jkorhonen/carrier/internal/config"
	"github.com/jkorhonen/carrier/internal/metrics"
)

// RedisEnqueuer publishes triggers to a Redis stream.
type RedisEnqueuer struct {
	client *redis.Client
	stream string
}

// NewRedisEnqueuer creates a RedisEnqueuer writing to the given stream.
func NewRedisEnqueuer(client *redis.Client, stream string) *RedisEnqueuer {
	return &RedisEnqueuer{client: client, stream: stream}
}

// Enqueue adds a trigger to the stream using XADD and returns the stream
// entry id.
func (e *RedisEnqueuer) Enqueue(ctx context.Context, t *Trigger) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal trigger: %w", err)
	}

	entryID, err := e.client.XAdd(ctx, &redis.XAddArgs{
		Stream: e.stream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd to stream %s: %w", e.stream, err)
	}

	metrics.QueueEnqueuedTotal.WithLabelValues(string(t.Kind)).Inc()

	return entryID, nil
}

// RedisDequeuer manages a pool of worker goroutines that consume triggers
// from a Redis stream using a consumer group.
type RedisDequeuer struct {
	client  *redis.Client
	handler TriggerHandler
	cfg     config.QueueConfig
	log     zerolog.Logger
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewRedisDequeuer creates a RedisDequeuer over the configured stream and
// consumer group.
func NewRedisDequeuer(client *redis.Client, handler TriggerHandler, cfg config.QueueConfig, log zerolog.Logger) *RedisDequeuer {
	return &RedisDequeuer{
		client:  client,
		handler: handler,
		cfg:     cfg,
		log:     log,
	}
}

// Start creates the consumer group (if it does not already exist) and
// launches the configured number of worker goroutines.
func (d *RedisDequeuer) Start(ctx context.Context) error {
	err := d.client.XGroupCreateMkStream(ctx, d.cfg.StreamName, d.cfg.GroupName, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("create consumer group %s on stream %s: %w", d.cfg.GroupName, d.cfg.StreamName, err)
	}

	ctx, d.cancel = context.WithCancel(ctx)

	for i := range d.cfg.WorkerCount {
		d.wg.Add(1)
		go d.runWorker(ctx, fmt.Sprintf("worker-%d", i))
	}

	d.log.Info().
		Int("worker_count", d.cfg.WorkerCount).
		Str("stream", d.cfg.StreamName).
		Msg("redis dequeuer started")

	return nil
}

// Stop signals all workers to stop and waits up to the configured shutdown
// timeout for them to finish.
func (d *RedisDequeuer) Stop(ctx context.Context) error {
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info().Msg("redis dequeuer stopped gracefully")
		return nil
	case <-time.After(d.cfg.ShutdownTimeout):
		d.log.Warn().Msg("redis dequeuer shutdown timed out")
		return fmt.Errorf("shutdown timed out after %s", d.cfg.ShutdownTimeout)
	}
}

// runWorker is the main loop for a single worker goroutine.
func (d *RedisDequeuer) runWorker(ctx context.Context, consumerName string) {
	defer d.wg.Done()

	d.log.Info().Str("consumer", consumerName).Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Str("consumer", consumerName).Msg("worker stopping")
			return
		default:
		}

		xMsgs, err := d.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    d.cfg.GroupName,
			Consumer: consumerName,
			Streams:  []string{d.cfg.StreamName, ">"},
			Count:    1,
			Block:    d.cfg.BlockTimeout,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			d.log.Error().Err(err).Str("consumer", consumerName).Msg("xreadgroup error")
			continue
		}

		for _, stream := range xMsgs {
			for _, xMsg := range stream.Messages {
				d.processEntry(ctx, xMsg)
			}
		}
	}
}

// processEntry handles one stream entry: deserializes the trigger, invokes
// the handler and acknowledges. Handler failures are logged but still
// acknowledged; the periodic sweep retries the underlying message.
func (d *RedisDequeuer) processEntry(ctx context.Context, xMsg redis.XMessage) {
	defer func() {
		if err := d.client.XAck(ctx, d.cfg.StreamName, d.cfg.GroupName, xMsg.ID).Err(); err != nil {
			d.log.Error().Err(err).Str("entry_id", xMsg.ID).Msg("failed to acknowledge entry")
		}
	}()

	data, ok := xMsg.Values["data"].(string)
	if !ok {
		d.log.Error().Str("entry_id", xMsg.ID).Msg("invalid entry data type")
		return
	}

	var t Trigger
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		d.log.Error().Err(err).Str("entry_id", xMsg.ID).Msg("failed to unmarshal trigger")
		return
	}

	metrics.QueueDequeuedTotal.WithLabelValues(string(t.Kind)).Inc()

	processCtx, cancel := context.WithTimeout(ctx, d.cfg.ProcessTimeout)
	defer cancel()

	if err := d.handler.HandleTrigger(processCtx, &t); err != nil {
		d.log.Error().Err(err).
			Stringer("message_id", t.MessageID).
			Str("kind", string(t.Kind)).
			Msg("trigger handling failed, sweep will retry")
	}
}
