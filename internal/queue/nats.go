package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/demandcast/demandcast/internal/utils"
)

const (
	// natsStreamPrefix namespaces the streams this service creates so they
	// are easy to find on a shared NATS cluster.
	natsStreamPrefix = "demandcast-"

	// natsAckWait is how long JetStream waits for an ack before redelivering.
	natsAckWait = 30 * time.Second
)

// NATSQueue implements Queue on NATS JetStream. Each subscribed subject gets
// its own file-backed stream and a durable consumer, so messages survive
// restarts on both sides.
type NATSQueue struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	subscriptions map[string]*nats.Subscription
	mu            sync.RWMutex

	// knownStreams remembers subjects whose stream has been verified so the
	// hot publish path skips the StreamInfo round-trip.
	knownStreams map[string]bool
	streamMu     sync.Mutex
}

func newNATSQueue(url string) (*NATSQueue, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := newNATSQueueWithConn(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

// newNATSQueueWithConn wraps an existing connection. Tests use this to point
// the queue at an embedded server.
func newNATSQueueWithConn(conn *nats.Conn) (*NATSQueue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NATSQueue{
		conn:          conn,
		js:            js,
		subscriptions: make(map[string]*nats.Subscription),
		knownStreams:  make(map[string]bool),
	}, nil
}

// Publish publishes synchronously and returns once JetStream has persisted
// the message. Ingest relies on this: a successful publish means the
// transaction batch will eventually reach the store.
func (q *NATSQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}

	_, err := q.js.Publish(subject, data, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch publishes all messages asynchronously, then waits for the
// server to acknowledge the whole window. Queuing failures skip the message
// rather than aborting the batch.
func (q *NATSQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	for _, msg := range messages {
		if err := q.ensureStream(msg.Subject); err != nil {
			return 0, err
		}
	}

	futures := make([]nats.PubAckFuture, 0, len(messages))
	for _, msg := range messages {
		future, err := q.js.PublishAsync(msg.Subject, msg.Data)
		if err != nil {
			continue
		}
		futures = append(futures, future)
	}

	select {
	case <-q.js.PublishAsyncComplete():
	case <-ctx.Done():
		return 0, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
	}

	accepted := 0
	for _, future := range futures {
		select {
		case <-future.Ok():
			accepted++
		case <-future.Err():
		default:
			// PublishAsyncComplete fired, so anything still pending was acked.
			accepted++
		}
	}

	return accepted, nil
}

// Subscribe attaches a durable consumer to the subject's stream. Delivery is
// at-least-once: the handler's error NAKs the message for immediate
// redelivery, up to the delivery cap.
func (q *NATSQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	if err := q.ensureStream(subject); err != nil {
		return err
	}

	// Durable names share the consumer-name character set: A-Z, a-z, 0-9,
	// dash and underscore.
	durableName := "consumer-" + sanitizeSubject(subject)

	sub, err := q.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durableName),
		nats.ManualAck(),
		nats.MaxAckPending(utils.DefaultBufferSize),
		nats.AckWait(natsAckWait),
		nats.MaxDeliver(utils.DefaultMaxRetries),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	q.subscriptions[subject] = sub
	return nil
}

// ensureStream creates the subject's stream on first use.
func (q *NATSQueue) ensureStream(subject string) error {
	q.streamMu.Lock()
	defer q.streamMu.Unlock()

	if q.knownStreams[subject] {
		return nil
	}

	streamName := natsStreamPrefix + sanitizeSubject(subject)
	if _, err := q.js.StreamInfo(streamName); err != nil {
		_, err = q.js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{subject},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream for subject %s: %w", subject, err)
		}
	}

	q.knownStreams[subject] = true
	return nil
}

// Unsubscribe removes the subscription for a subject.
func (q *NATSQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", subject, err)
	}

	delete(q.subscriptions, subject)
	return nil
}

// Close drops all subscriptions and closes the connection.
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for subject, sub := range q.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			continue
		}
		delete(q.subscriptions, subject)
	}

	q.conn.Close()
	return nil
}

// sanitizeSubject maps a subject to the character set NATS allows in stream
// and consumer names, replacing everything else with an underscore.
func sanitizeSubject(subject string) string {
	result := make([]byte, 0, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}
