// Package queue provides the message transport used to decouple transaction
// ingestion from storage. Four backends implement the same contract: NATS
// JetStream (default), Redis Streams, Kafka, and an in-memory queue for tests.
package queue

import "context"

// Publisher publishes messages to a subject.
type Publisher interface {
	// Publish publishes a single message and waits for the backend to accept it.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishBatch publishes multiple messages and returns how many the
	// backend accepted. A partial batch is not an error unless nothing
	// was accepted.
	PublishBatch(ctx context.Context, messages []BatchMessage) (int, error)

	// Close releases the underlying connection.
	Close() error
}

// BatchMessage pairs a subject with a payload for batch publishing.
type BatchMessage struct {
	Subject string
	Data    []byte
}

// MessageHandler processes a delivered message. Returning an error leaves the
// message unacknowledged so the backend redelivers it.
type MessageHandler func(data []byte) error

// Subscriber consumes messages from a subject.
type Subscriber interface {
	// Subscribe registers a handler for a subject. At most one subscription
	// per subject is allowed on a queue instance.
	Subscribe(subject string, handler MessageHandler) error

	// Unsubscribe stops delivery for a subject.
	Unsubscribe(subject string) error

	// Close stops all subscriptions and releases the connection.
	Close() error
}

// Queue combines Publisher and Subscriber.
type Queue interface {
	Publisher
	Subscriber
}
