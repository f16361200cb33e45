// Package queue carries matching jobs over a durable RabbitMQ queue so that
// runs survive an API process restart and can be processed by separate workers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonathan/cofounder-matcher/internal/logging"
	"github.com/jonathan/cofounder-matcher/internal/matching"
)

const publishTimeout = 5 * time.Second

// JobMessage is the body of a queued job
type JobMessage struct {
	JobID uuid.UUID `json:"job_id"`
}

// Encode renders the message body
func Encode(jobID uuid.UUID) ([]byte, error) {
	return json.Marshal(JobMessage{JobID: jobID})
}

// Decode parses a message body
func Decode(body []byte) (uuid.UUID, error) {
	var msg JobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return uuid.Nil, fmt.Errorf("invalid job message: %w", err)
	}
	if msg.JobID == uuid.Nil {
		return uuid.Nil, errors.New("invalid job message: missing job_id")
	}
	return msg.JobID, nil
}

// RabbitMQ publishes and consumes matching jobs on one durable queue
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	log     *logging.Logger

	// amqp channels are not safe for concurrent publishing
	publishMu sync.Mutex
}

// Dial connects to the broker and declares the durable queue
func Dial(url, queueName string, log *logging.Logger) (*RabbitMQ, error) {
	if log == nil {
		log = logging.Nop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName, // queue name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	log = log.Component("queue")
	log.Info("connected to RabbitMQ", "queue", q.Name)
	return &RabbitMQ{conn: conn, channel: ch, queue: q, log: log}, nil
}

// Dispatch publishes jobID as a persistent message
func (r *RabbitMQ) Dispatch(ctx context.Context, jobID uuid.UUID) error {
	body, err := Encode(jobID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	r.publishMu.Lock()
	defer r.publishMu.Unlock()
	err = r.channel.PublishWithContext(
		ctx,
		"",           // exchange
		r.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    jobID.String(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish job %s: %w", jobID, err)
	}
	return nil
}

// Consume runs queued jobs on `workers` goroutines until ctx is done or the
// broker closes the delivery channel. Messages are acked only after RunJob
// returns, so a worker crash redelivers the job. A run interrupted by shutdown
// sees the cancelled ctx, records the job as failed and is acked; it is not
// retried.
func (r *RabbitMQ) Consume(ctx context.Context, runner matching.Runner, workers int) error {
	if workers < 1 {
		workers = 1
	}
	if err := r.channel.Qos(workers, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := r.channel.ConsumeWithContext(
		ctx,
		r.queue.Name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	var wg sync.WaitGroup
	closed := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-msgs:
					if !ok {
						closed <- struct{}{}
						return
					}
					handleDelivery(ctx, runner, d, r.log)
				}
			}
		}()
	}
	r.log.Info("consuming matching jobs", "queue", r.queue.Name, "workers", workers)
	wg.Wait()

	if ctx.Err() == nil && len(closed) > 0 {
		return errors.New("delivery channel closed by broker")
	}
	return nil
}

// handleDelivery runs one delivery. Undecodable messages are dropped, jobs that
// could not be loaded are requeued, and everything else is acked because the
// run has written a terminal state.
func handleDelivery(ctx context.Context, runner matching.Runner, d amqp.Delivery, log *logging.Logger) {
	jobID, err := Decode(d.Body)
	if err != nil {
		log.Warn("dropping invalid message", "delivery_tag", d.DeliveryTag, "error", err)
		_ = d.Nack(false, false)
		return
	}

	err = runner.RunJob(ctx, jobID)
	switch {
	case errors.Is(err, matching.ErrJobUnavailable):
		log.Warn("requeueing job", "job_id", jobID, "error", err)
		_ = d.Nack(false, true)
		return
	case err != nil && ctx.Err() != nil:
		log.Warn("job cancelled by shutdown", "job_id", jobID, "error", err)
	case err != nil:
		log.Info("job ended with error", "job_id", jobID, "error", err)
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error("failed to ack job", "job_id", jobID, "error", ackErr)
	}
}

// Close shuts the channel and connection
func (r *RabbitMQ) Close() {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
}
