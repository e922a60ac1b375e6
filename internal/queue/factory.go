package queue

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jkorhonen/carrier/internal/config"
)

// NewQueue creates an Enqueuer and a Dequeuer for the configured backend.
// The handler defines the trigger processing logic used by the Dequeuer;
// processes that only publish may pass nil and never start the Dequeuer.
func NewQueue(cfg config.QueueConfig, handler TriggerHandler, log zerolog.Logger) (Enqueuer, Dequeuer, error) {
	switch cfg.Type {
	case "redis", "":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisEnqueuer(client, cfg.StreamName), NewRedisDequeuer(client, handler, cfg, log), nil

	case "sqs":
		client, err := newAWSSQSClient(cfg.SQSRegion)
		if err != nil {
			return nil, nil, fmt.Errorf("create sqs client: %w", err)
		}
		return NewSQSEnqueuer(client, cfg.SQSQueueURL), NewSQSDequeuer(client, handler, cfg, log), nil

	default:
		return nil, nil, fmt.Errorf("unknown queue type: %s", cfg.Type)
	}
}
