package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/services"
)

// SubmitTuningJob starts a hyperparameter grid search for a category
// POST /v1/tuning/jobs
func (h *Handler) SubmitTuningJob(c *fiber.Ctx) error {
	var body models.TuningJobRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_JSON",
				Message: "Failed to parse JSON body",
				Details: map[string]interface{}{"error": err.Error()},
			},
		})
	}

	if body.Category == "" {
		return h.invalidRequest(c, "category is required")
	}

	granularity, err := forecast.ParseGranularity(body.Granularity)
	if err != nil {
		return h.invalidRequest(c, err.Error())
	}

	job, err := h.tuning.Submit(c.Context(), body.Category, granularity)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(job)
}

// ListTuningJobs lists all tuning jobs, newest first
// GET /v1/tuning/jobs
func (h *Handler) ListTuningJobs(c *fiber.Ctx) error {
	return c.JSON(models.TuningJobListResponse{Jobs: h.tuning.List()})
}

// GetTuningJob returns one tuning job by ID
// GET /v1/tuning/jobs/:job_id
func (h *Handler) GetTuningJob(c *fiber.Ctx) error {
	jobID := c.Params("job_id")

	job, ok := h.tuning.Get(jobID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    services.CodeNotFound,
				Message: "tuning job " + jobID + " not found",
			},
		})
	}

	return c.JSON(job)
}
