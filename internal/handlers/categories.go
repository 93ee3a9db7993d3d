package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/models"
)

// Categories handles category listing
// GET /v1/categories
func (h *Handler) Categories(c *fiber.Ctx) error {
	categories, err := h.store.Categories(c.Context())
	if err != nil {
		h.logger.Error("failed to list categories", "error", err)
		return h.serviceError(c, err)
	}
	if categories == nil {
		categories = []string{}
	}
	return c.JSON(models.CategoriesResponse{Categories: categories})
}
