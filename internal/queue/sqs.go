package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"

	"github.com/jkorhonen/carrier/internal/config"
	"github.com/jkorhonen/carrier/internal/metrics"
)

// sqsAPI abstracts the AWS SQS client for testability.
type sqsAPI interface {
	SendMessage(ctx context.Context, queueURL, body string) (string, error)
	ReceiveMessages(ctx context.Context, queueURL string, max, waitSeconds int32) ([]sqsReceived, error)
	DeleteMessage(ctx context.Context, queueURL, receiptHandle string) error
}

// sqsReceived is one message received from SQS.
type sqsReceived struct {
	MessageID     string
	ReceiptHandle string
	Body          string
}

// awsSQSClient wraps the real AWS SQS SDK client and implements sqsAPI.
type awsSQSClient struct {
	client *sqs.Client
}

// newAWSSQSClient creates an awsSQSClient configured for the given region.
func newAWSSQSClient(region string) (*awsSQSClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &awsSQSClient{client: sqs.NewFromConfig(cfg)}, nil
}

func (c *awsSQSClient) SendMessage(ctx context.Context, queueURL, body string) (string, error) {
	out, err := c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &queueURL,
		MessageBody: &body,
	})
	if err != nil {
		return "", err
	}
	return derefString(out.MessageId), nil
}

func (c *awsSQSClient) ReceiveMessages(ctx context.Context, queueURL string, max, waitSeconds int32) ([]sqsReceived, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &queueURL,
		MaxNumberOfMessages: max,
		WaitTimeSeconds:     waitSeconds,
	})
	if err != nil {
		return nil, err
	}

	messages := make([]sqsReceived, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, sqsReceived{
			MessageID:     derefString(m.MessageId),
			ReceiptHandle: derefString(m.ReceiptHandle),
			Body:          derefString(m.Body),
		})
	}
	return messages, nil
}

func (c *awsSQSClient) DeleteMessage(ctx context.Context, queueURL, receiptHandle string) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &queueURL,
		ReceiptHandle: &receiptHandle,
	})
	return err
}

// derefString safely dereferences a string pointer, returning "" for nil.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SQSEnqueuer publishes triggers to an AWS SQS queue.
type SQSEnqueuer struct {
	client   sqsAPI
	queueURL string
}

// NewSQSEnqueuer creates an SQSEnqueuer targeting the given queue URL.
func NewSQSEnqueuer(client sqsAPI, queueURL string) *SQSEnqueuer {
	return &SQSEnqueuer{client: client, queueURL: queueURL}
}

// Enqueue serializes the trigger to JSON and sends it via SQS SendMessage.
// It returns the SQS message id.
func (e *SQSEnqueuer) Enqueue(ctx context.Context, t *Trigger) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal trigger: %w", err)
	}

	msgID, err := e.client.SendMessage(ctx, e.queueURL, string(data))
	if err != nil {
		return "", fmt.Errorf("sqs send message: %w", err)
	}

	metrics.QueueEnqueuedTotal.WithLabelValues(string(t.Kind)).Inc()

	return msgID, nil
}

// SQSDequeuer manages a pool of worker goroutines that long-poll an AWS SQS
// queue for triggers.
type SQSDequeuer struct {
	client  sqsAPI
	handler TriggerHandler
	cfg     config.QueueConfig
	log     zerolog.Logger
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewSQSDequeuer creates an SQSDequeuer over the configured queue.
func NewSQSDequeuer(client sqsAPI, handler TriggerHandler, cfg config.QueueConfig, log zerolog.Logger) *SQSDequeuer {
	if cfg.SQSWaitTime == 0 {
		cfg.SQSWaitTime = 20
	}
	return &SQSDequeuer{
		client:  client,
		handler: handler,
		cfg:     cfg,
		log:     log,
	}
}

// Start launches the configured number of long-polling workers.
func (d *SQSDequeuer) Start(ctx context.Context) error {
	ctx, d.cancel = context.WithCancel(ctx)

	for i := range d.cfg.WorkerCount {
		d.wg.Add(1)
		go d.runWorker(ctx, fmt.Sprintf("sqs-worker-%d", i))
	}

	d.log.Info().
		Int("worker_count", d.cfg.WorkerCount).
		Str("queue_url", d.cfg.SQSQueueURL).
		Msg("sqs dequeuer started")

	return nil
}

// Stop cancels the workers and waits for them within the shutdown timeout.
func (d *SQSDequeuer) Stop(_ context.Context) error {
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info().Msg("sqs dequeuer stopped gracefully")
		return nil
	case <-time.After(d.cfg.ShutdownTimeout):
		d.log.Warn().Msg("sqs dequeuer shutdown timed out")
		return fmt.Errorf("shutdown timed out after %s", d.cfg.ShutdownTimeout)
	}
}

// runWorker long-polls SQS and processes received messages one at a time.
func (d *SQSDequeuer) runWorker(ctx context.Context, workerName string) {
	defer d.wg.Done()

	d.log.Info().Str("worker", workerName).Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Str("worker", workerName).Msg("worker stopping")
			return
		default:
		}

		received, err := d.client.ReceiveMessages(ctx, d.cfg.SQSQueueURL, 10, d.cfg.SQSWaitTime)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			d.log.Error().Err(err).Str("worker", workerName).Msg("receive error")
			continue
		}

		for _, m := range received {
			d.processMessage(ctx, m)
		}
	}
}

// processMessage handles one received SQS message. The message is deleted
// regardless of handler outcome; the periodic sweep retries failures.
func (d *SQSDequeuer) processMessage(ctx context.Context, m sqsReceived) {
	defer func() {
		if err := d.client.DeleteMessage(ctx, d.cfg.SQSQueueURL, m.ReceiptHandle); err != nil {
			d.log.Error().Err(err).Str("sqs_message_id", m.MessageID).Msg("failed to delete message")
		}
	}()

	var t Trigger
	if err := json.Unmarshal([]byte(m.Body), &t); err != nil {
		d.log.Error().Err(err).Str("sqs_message_id", m.MessageID).Msg("failed to unmarshal trigger")
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
