package handlers

import (
	"github.com/gofiber/fiber/v2"

	"route-tracker/internal/location"
	"route-tracker/internal/models"
	"route-tracker/internal/utils"
)

// LocationHandler receives fixes reported by the device and feeds them into
// the sample source. Each report is a full replacement fix; delivery order
// on this endpoint is the capture order the session will observe.
type LocationHandler struct {
	Feed    *location.FeedSource
	Metrics *utils.Metrics
}

// NewLocationHandler creates a LocationHandler over the given feed.
func NewLocationHandler(feed *location.FeedSource, metrics *utils.Metrics) *LocationHandler {
	return &LocationHandler{Feed: feed, Metrics: metrics}
}

// ReportFix handles POST /location.
// @Summary Report a location fix
// @Description Delivers one device fix to every active location channel
// @Tags location
// @Accept json
// @Produce json
// @Param fix body models.GeoPoint true "Location fix"
// @Success 202 {object} map[string]interface{} "Fix accepted"
// @Failure 400 {object} map[string]interface{} "Malformed fix"
// @Router /location [post]
func (h *LocationHandler) ReportFix(c *fiber.Ctx) error {
	var fix models.GeoPoint
	if err := c.BodyParser(&fix); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "invalid request body",
		})
	}
	if fix.Latitude < -90 || fix.Latitude > 90 || fix.Longitude < -180 || fix.Longitude > 180 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "coordinates out of range",
		})
	}

	h.Feed.Publish(fix)
	h.Metrics.IncrementFixesReceived()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": true})
}
