package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/models"
)

// ListParameters lists all stored hyperparameter sets
// GET /v1/parameters
func (h *Handler) ListParameters(c *fiber.Ctx) error {
	sets, err := h.params.List(c.Context())
	if err != nil {
		h.logger.Error("failed to list parameters", "error", err)
		return h.serviceError(c, err)
	}
	if sets == nil {
		sets = []forecast.HyperparameterSet{}
	}
	return c.JSON(models.ParameterListResponse{Parameters: sets})
}

// GetParameters returns the hyperparameter set a category resolves to.
// A category without stored parameters resolves to the default set, so
// the response carries the default's category name in that case.
// GET /v1/parameters/:category
func (h *Handler) GetParameters(c *fiber.Ctx) error {
	category := c.Params("category")

	set, err := h.resolver.Resolve(c.Context(), category)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(set)
}

// PutParameters creates or replaces a category's hyperparameter set
// PUT /v1/parameters/:category
func (h *Handler) PutParameters(c *fiber.Ctx) error {
	category := c.Params("category")

	var body models.ParameterUpsertRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_JSON",
				Message: "Failed to parse JSON body",
				Details: map[string]interface{}{"error": err.Error()},
			},
		})
	}

	set := body.Set(category)
	if err := set.Validate(); err != nil {
		return h.invalidRequest(c, err.Error())
	}

	if err := h.params.Put(c.Context(), set); err != nil {
		h.logger.Error("failed to store parameters", "error", err, "category", category)
		return h.serviceError(c, err)
	}

	h.logger.Info("parameters stored", "category", category)

	return c.JSON(set)
}

// DeleteParameters removes a category's hyperparameter set. The default
// set backs every unlisted category and cannot be deleted.
// DELETE /v1/parameters/:category
func (h *Handler) DeleteParameters(c *fiber.Ctx) error {
	category := c.Params("category")

	if category == forecast.DefaultCategory {
		return h.invalidRequest(c, "default parameter set cannot be deleted")
	}

	if err := h.params.Delete(c.Context(), category); err != nil {
		return h.serviceError(c, err)
	}

	h.logger.Info("parameters deleted", "category", category)

	return c.SendStatus(fiber.StatusNoContent)
}
