package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// StoreQueryTimeout is the timeout for transaction history reads
	StoreQueryTimeout = 10 * time.Second

	// StoreWriteTimeout is the timeout for transaction batch writes
	StoreWriteTimeout = 10 * time.Second

	// ParamsTimeout is the timeout for hyperparameter store operations
	ParamsTimeout = 5 * time.Second

	// FitTimeout is the per-request deadline for a model fit
	FitTimeout = 60 * time.Second
)

// Lifecycle Timeouts
const (
	// ShutdownTimeout is the grace period for draining the HTTP server
	ShutdownTimeout = 10 * time.Second

	// SubscriberStopTimeout is the grace period for the ingest subscriber
	SubscriberStopTimeout = 5 * time.Second
)

// =============================================================================
// Retry and Backoff Constants
// =============================================================================

const (
	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the default backoff duration between retries
	DefaultRetryBackoff = 100 * time.Millisecond

	// MaxRetryBackoff is the maximum backoff duration
	MaxRetryBackoff = 5 * time.Second
)

// =============================================================================
// Buffer and Batch Size Constants
// =============================================================================

const (
	// DefaultBatchSize is the default batch size for bulk transaction writes
	DefaultBatchSize = 1000

	// DefaultBufferSize is the default buffer size for channels
	DefaultBufferSize = 100

	// MaxBatchSize is the maximum allowed transaction batch size
	MaxBatchSize = 10000
)

// =============================================================================
// Queue Type Constants
// =============================================================================
// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue (default)
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (for testing)
	QueueTypeMemory QueueType = "memory"
)
