package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/demandcast/demandcast/internal/ingest"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/queue"
	"github.com/demandcast/demandcast/internal/store"
	"github.com/demandcast/demandcast/internal/utils"
)

// RowError describes one rejected row in a submitted batch
type RowError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// RecordResult reports what happened to a submitted batch: how many rows
// were queued for ingestion and which rows were rejected.
type RecordResult struct {
	RequestID string     `json:"request_id"`
	Accepted  int        `json:"accepted"`
	Rejected  []RowError `json:"rejected,omitempty"`
}

// TransactionService accepts sales transactions and hands them to the
// ingest queue. Validation happens here so callers get per-row feedback;
// the store validates again on the consumer side.
type TransactionService struct {
	logger    *logging.Logger
	publisher queue.Publisher
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(logger *logging.Logger, publisher queue.Publisher) *TransactionService {
	return &TransactionService{
		logger:    logger,
		publisher: publisher,
	}
}

// Record validates a batch, queues the usable rows as one ingest event,
// and reports per-row rejections. A batch with no usable rows is refused.
func (s *TransactionService) Record(ctx context.Context, txns []store.Transaction) (*RecordResult, error) {
	startExec := time.Now()

	if len(txns) == 0 {
		return nil, NewServiceError(CodeInvalidRequest, "no transactions submitted")
	}
	if len(txns) > utils.MaxBatchSize {
		return nil, NewServiceError(CodeInvalidRequest,
			fmt.Sprintf("batch exceeds %d transactions, split the export", utils.MaxBatchSize))
	}

	valid := make([]store.Transaction, 0, len(txns))
	var rejected []RowError
	for i, txn := range txns {
		if reason := validateRow(txn); reason != "" {
			rejected = append(rejected, RowError{Index: i, Reason: reason})
			continue
		}
		valid = append(valid, txn)
	}

	if len(valid) == 0 {
		details := make([]interface{}, len(rejected))
		for i, r := range rejected {
			details[i] = map[string]interface{}{"index": r.Index, "reason": r.Reason}
		}
		return nil, NewServiceErrorWithDetails(CodeInvalidRequest,
			"every transaction in the batch is invalid",
			map[string]interface{}{"rejected": details})
	}

	event := ingest.TransactionEvent{
		RequestID:    uuid.NewString(),
		Transactions: valid,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, NewServiceError(CodeInternalError, fmt.Sprintf("encoding transaction event: %v", err))
	}

	if err := s.publisher.Publish(ctx, ingest.SubjectTransactionsRecorded, data); err != nil {
		s.logger.Error("failed to publish transaction event",
			"error", err,
			"request_id", event.RequestID,
			"transactions", len(valid))
		return nil, NewServiceError(CodeIngestFailed, "failed to queue transactions for ingestion")
	}

	latency := time.Since(startExec)
	s.logger.Info("transactions queued",
		"request_id", event.RequestID,
		"accepted", len(valid),
		"rejected", len(rejected),
		"latency_ms", latency.Milliseconds())

	return &RecordResult{
		RequestID: event.RequestID,
		Accepted:  len(valid),
		Rejected:  rejected,
	}, nil
}

// validateRow mirrors the store's batch validation so the API can report
// rejects per row instead of refusing whole exports on the first bad one.
func validateRow(txn store.Transaction) string {
	if txn.ProductID == "" {
		return "product id is required"
	}
	if txn.Date.IsZero() {
		return "date is required"
	}
	if math.IsNaN(txn.Quantity) || math.IsInf(txn.Quantity, 0) {
		return "quantity must be finite"
	}
	return ""
}
