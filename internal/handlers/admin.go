package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// CachePurge handles forecast cache purge requests. With a product_id
// query parameter only that product's entries are removed, otherwise
// the whole cache is cleared.
// POST /admin/cache/purge
func (h *Handler) CachePurge(c *fiber.Ctx) error {
	if h.cache == nil {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Cache is disabled, nothing to purge",
		})
	}

	if productID := c.Query("product_id"); productID != "" {
		if err := h.cache.InvalidateProduct(c.Context(), productID); err != nil {
			h.logger.Error("failed to invalidate product cache", "error", err, "product_id", productID)
			return h.serviceError(c, err)
		}
		h.logger.Info("cache invalidated", "product_id", productID)
		return c.JSON(fiber.Map{
			"success":    true,
			"message":    "Cache entries purged for product",
			"product_id": productID,
		})
	}

	if err := h.cache.Purge(c.Context()); err != nil {
		h.logger.Error("failed to purge cache", "error", err)
		return h.serviceError(c, err)
	}
	h.logger.Info("cache purged")
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Cache purged",
	})
}

// CacheStats returns cache hit/miss counters and backend details
// GET /admin/cache/stats
func (h *Handler) CacheStats(c *fiber.Ctx) error {
	if h.cache == nil {
		return c.JSON(fiber.Map{"backend": "none"})
	}
	return c.JSON(h.cache.Stats())
}
