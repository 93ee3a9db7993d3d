package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/store"
)

// RecordTransaction handles single transaction ingest
// POST /v1/transactions
func (h *Handler) RecordTransaction(c *fiber.Ctx) error {
	var body models.TransactionRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_JSON",
				Message: "Failed to parse JSON body",
				Details: map[string]interface{}{"error": err.Error()},
			},
		})
	}

	return h.recordTransactions(c, []store.Transaction{body.Transaction()})
}

// RecordTransactionsBatch handles batch transaction ingest
// POST /v1/transactions/batch
func (h *Handler) RecordTransactionsBatch(c *fiber.Ctx) error {
	var body models.BatchTransactionsRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_JSON",
				Message: "Failed to parse JSON body",
				Details: map[string]interface{}{"error": err.Error()},
			},
		})
	}

	return h.recordTransactions(c, body.Rows())
}

// recordTransactions queues the rows for ingestion and acknowledges with
// the per-row outcome. Rows are durable only once the ingest consumer
// has stored them, so the acknowledgement is 202 rather than 201.
func (h *Handler) recordTransactions(c *fiber.Ctx, rows []store.Transaction) error {
	result, err := h.transactionService.Record(c.Context(), rows)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(result)
}
