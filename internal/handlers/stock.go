package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/services"
)

// StockLimits handles stock limit requests
// GET /v1/products/:product_id/stock-limits
func (h *Handler) StockLimits(c *fiber.Ctx) error {
	productID := c.Params("product_id")

	var granularity forecast.Granularity
	if granularityStr := c.Query("granularity"); granularityStr != "" {
		g, err := forecast.ParseGranularity(granularityStr)
		if err != nil {
			return h.invalidRequest(c, err.Error())
		}
		granularity = g
	}

	limits, err := h.stockService.StockLimits(c.Context(), &services.ForecastRequest{
		ProductID:   productID,
		Category:    c.Query("category"),
		Granularity: granularity,
		Region:      c.Query("region"),
	})
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(models.NewStockLimitsResponse(limits))
}
