package handlers

import (
	"bytes"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"route-tracker/internal/repository"
	"route-tracker/internal/services"
)

// RouteHandler exposes the saved-routes browsing surface.
type RouteHandler struct {
	Store      repository.RouteStore
	Catalog    *services.RouteCatalog
	Controller *services.SessionController
	Export     *services.ExportService
}

// NewRouteHandler creates a RouteHandler with its collaborators.
func NewRouteHandler(store repository.RouteStore, catalog *services.RouteCatalog, controller *services.SessionController, export *services.ExportService) *RouteHandler {
	return &RouteHandler{Store: store, Catalog: catalog, Controller: controller, Export: export}
}

type renameRequest struct {
	Name string `json:"name"`
}

// ListRoutes handles GET /routes.
// @Summary List all saved routes
// @Description Refreshes the catalog and returns every saved route, including unreadable ones
// @Tags routes
// @Produce json
// @Success 200 {array} services.CatalogEntry "Saved routes"
// @Failure 500 {object} map[string]interface{} "Listing failed"
// @Router /routes [get]
func (h *RouteHandler) ListRoutes(c *fiber.Ctx) error {
	if err := h.Catalog.Refresh(); err != nil {
		log.Printf("Error listing routes: %v", err)
		return respondError(c, err)
	}
	entries := h.Catalog.Entries()
	log.Printf("Listed %d saved routes", len(entries))
	return c.JSON(entries)
}

// GetRoute handles GET /routes/:id.
// @Summary Get a saved route by id
// @Tags routes
// @Produce json
// @Param id path string true "Route id"
// @Success 200 {object} models.SavedRoute "Route found"
// @Failure 404 {object} map[string]interface{} "Route not found"
// @Failure 422 {object} map[string]interface{} "Record unreadable"
// @Router /routes/{id} [get]
func (h *RouteHandler) GetRoute(c *fiber.Ctx) error {
	id := c.Params("id")
	route, err := h.Store.Read(id)
	if err != nil {
		log.Printf("Error reading route %s: %v", id, err)
		return respondError(c, err)
	}
	return c.JSON(route)
}

// OpenRoute handles POST /routes/:id/open: it loads the saved route into the
// session for map display.
// @Summary Open a saved route on the map
// @Tags routes
// @Produce json
// @Param id path string true "Route id"
// @Success 200 {object} models.SavedRoute "Route loaded for display"
// @Failure 404 {object} map[string]interface{} "Route not found"
// @Failure 409 {object} map[string]interface{} "A recording is in progress"
// @Router /routes/{id}/open [post]
func (h *RouteHandler) OpenRoute(c *fiber.Ctx) error {
	id := c.Params("id")
	route, err := h.Controller.DisplayRoute(id)
	if err != nil {
		log.Printf("Error opening route %s: %v", id, err)
		return respondError(c, err)
	}
	return c.JSON(route)
}

// RenameRoute handles PUT /routes/:id.
// @Summary Rename a saved route
// @Description Rewrites the full record with the new name; the points are untouched
// @Tags routes
// @Accept json
// @Produce json
// @Param id path string true "Route id"
// @Param request body renameRequest true "New name"
// @Success 200 {object} map[string]interface{} "Route renamed"
// @Failure 400 {object} map[string]interface{} "Empty name"
// @Failure 404 {object} map[string]interface{} "Route not found"
// @Router /routes/{id} [put]
func (h *RouteHandler) RenameRoute(c *fiber.Ctx) error {
	id := c.Params("id")

	var req renameRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "invalid request body",
		})
	}

	if err := h.Store.Rename(id, req.Name); err != nil {
		log.Printf("Error renaming route %s: %v", id, err)
		return respondError(c, err)
	}

	if err := h.Catalog.Refresh(); err != nil {
		log.Printf("Catalog refresh after rename failed: %v", err)
	}
	return c.JSON(fiber.Map{"id": id, "name": req.Name})
}

// DeleteRoute handles DELETE /routes/:id.
// @Summary Delete a saved route
// @Description Removal is permanent; media referenced by the route is not reclaimed
// @Tags routes
// @Produce json
// @Param id path string true "Route id"
// @Success 200 {object} map[string]interface{} "Route deleted"
// @Failure 404 {object} map[string]interface{} "Route not found"
// @Router /routes/{id} [delete]
func (h *RouteHandler) DeleteRoute(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Store.Delete(id); err != nil {
		log.Printf("Error deleting route %s: %v", id, err)
		return respondError(c, err)
	}

	if err := h.Catalog.Refresh(); err != nil {
		log.Printf("Catalog refresh after delete failed: %v", err)
	}
	return c.JSON(fiber.Map{"id": id, "deleted": true})
}

// ExportRoutes handles GET /routes/export.
// @Summary Export all saved routes
// @Description Returns a zip archive of every route file for backup
// @Tags routes
// @Produce application/zip
// @Success 200 {file} binary "Zip archive"
// @Failure 500 {object} map[string]interface{} "Export failed"
// @Router /routes/export [get]
func (h *RouteHandler) ExportRoutes(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.Export.ExportAll(c.Context(), &buf); err != nil {
		log.Printf("Error exporting routes: %v", err)
		return respondError(c, err)
	}

	filename := "routes-" + time.Now().Format("20060102-150405") + ".zip"
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}
