package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/services"
)

// Forecast handles GET forecast requests
// GET /v1/products/:product_id/forecast
func (h *Handler) Forecast(c *fiber.Ctx) error {
	productID := c.Params("product_id")

	// Parse query parameters. Zero values defer to the engine defaults.
	periods := 0
	if periodsStr := c.Query("periods"); periodsStr != "" {
		p, err := strconv.Atoi(periodsStr)
		if err != nil {
			return h.invalidRequest(c, "periods must be an integer")
		}
		periods = p
	}

	var granularity forecast.Granularity
	if granularityStr := c.Query("granularity"); granularityStr != "" {
		g, err := forecast.ParseGranularity(granularityStr)
		if err != nil {
			return h.invalidRequest(c, err.Error())
		}
		granularity = g
	}

	return h.executeForecast(c, &services.ForecastRequest{
		ProductID:   productID,
		Category:    c.Query("category"),
		Periods:     periods,
		Granularity: granularity,
		Region:      c.Query("region"),
	})
}

// ForecastPost handles POST forecast requests
// POST /v1/forecast
func (h *Handler) ForecastPost(c *fiber.Ctx) error {
	var body models.ForecastBodyRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_JSON",
				Message: "Failed to parse JSON body",
				Details: map[string]interface{}{"error": err.Error()},
			},
		})
	}

	var granularity forecast.Granularity
	if body.Granularity != "" {
		g, err := forecast.ParseGranularity(body.Granularity)
		if err != nil {
			return h.invalidRequest(c, err.Error())
		}
		granularity = g
	}

	return h.executeForecast(c, &services.ForecastRequest{
		ProductID:   body.ProductID,
		Category:    body.Category,
		Periods:     body.Periods,
		Granularity: granularity,
		Region:      body.Region,
	})
}

// executeForecast executes the forecast request via the service layer
func (h *Handler) executeForecast(c *fiber.Ctx, req *services.ForecastRequest) error {
	result, err := h.forecastService.Forecast(c.Context(), req)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(models.NewForecastResponse(req.ProductID, req.Category, result))
}
