package queue

import (
	"context"
	"errors"

	"github.com/OFFIS-RIT/paperkg/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// MaxRetries is the number of retries before a message is dead lettered.
const MaxRetries = 10

const retriesHeader = "x-retries"

// Publisher is the publishing side of *amqp091.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Acknowledger is implemented by amqp091.Delivery.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func retries(headers amqp091.Table) int {
	switch v := headers[retriesHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// route returns the queue a failed message goes to and its new headers.
func route(queueName string, headers amqp091.Table, cause error) (string, amqp091.Table) {
	n := retries(headers)
	if n >= MaxRetries || errors.Is(cause, ErrPermanent) {
		return queueName + dlqSuffix, headers
	}
	next := amqp091.Table{}
	for k, v := range headers {
		next[k] = v
	}
	next[retriesHeader] = int32(n + 1)
	return queueName + retrySuffix, next
}

// HandleProcessingError moves a failed message to the retry queue, or to the
// dead letter queue once retries are exhausted or the failure is permanent.
func HandleProcessingError(ctx context.Context, ch Publisher, msg amqp091.Delivery, queueName string, cause error) {
	handleProcessingError(ctx, ch, msg, msg.Body, msg.Headers, queueName, cause)
}

func handleProcessingError(
	ctx context.Context,
	ch Publisher,
	ack Acknowledger,
	body []byte,
	headers amqp091.Table,
	queueName string,
	cause error,
) {
	target, next := route(queueName, headers, cause)
	logger.Info("[Queue] Rerouting failed message", "queue", queueName, "target", target, "retries", retries(next))

	err := ch.PublishWithContext(ctx, "", target, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		Headers:      next,
		DeliveryMode: amqp091.Persistent,
	})
	if err != nil {
		logger.Error("[Queue] Failed to reroute message", "target", target, "err", err)
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
}
