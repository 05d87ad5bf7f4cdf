// Package messaging defines the queue abstraction events travel through.
package messaging

import (
	"context"
	"errors"
)

// ErrProcessed is returned when a message is acknowledged twice.
var ErrProcessed = errors.New("messaging: message already processed")

// Queue represents an abstract message queue for any payload type
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue
type Message[T any] interface {
	T() *T

	Ack() error

	// Nack indicates failure in processing this message
	Nack(err error) error
}
