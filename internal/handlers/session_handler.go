package handlers

import (
	"context"
	"log"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"route-tracker/internal/services"
)

// SessionHandler exposes the recording session lifecycle.
type SessionHandler struct {
	Controller *services.SessionController
	Media      services.MediaStore
	Catalog    *services.RouteCatalog
}

// NewSessionHandler creates a SessionHandler with its collaborators.
func NewSessionHandler(controller *services.SessionController, media services.MediaStore, catalog *services.RouteCatalog) *SessionHandler {
	return &SessionHandler{Controller: controller, Media: media, Catalog: catalog}
}

type saveRequest struct {
	Name string `json:"name"`
}

// StartSession handles POST /session/start.
// @Summary Start a recording session
// @Description Begins recording the device path; rejects when a session is already running
// @Tags session
// @Produce json
// @Success 201 {object} map[string]interface{} "Session started"
// @Failure 403 {object} map[string]interface{} "Location permission denied"
// @Failure 409 {object} map[string]interface{} "Session lifecycle conflict"
// @Failure 503 {object} map[string]interface{} "Location source unavailable"
// @Router /session/start [post]
func (h *SessionHandler) StartSession(c *fiber.Ctx) error {
	if err := h.Controller.Start(c.Context()); err != nil {
		log.Printf("Error starting session: %v", err)
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"state": h.Controller.State().String(),
	})
}

// StopSession handles POST /session/stop.
// @Summary Stop the active recording session
// @Description Releases the location channels and reports whether a save decision is pending
// @Tags session
// @Produce json
// @Success 200 {object} map[string]interface{} "Session stopped"
// @Failure 409 {object} map[string]interface{} "No active session"
// @Router /session/stop [post]
func (h *SessionHandler) StopSession(c *fiber.Ctx) error {
	snap, saveRequired, err := h.Controller.Stop(c.Context())
	if err != nil {
		log.Printf("Error stopping session: %v", err)
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"state":                    h.Controller.State().String(),
		"saveRequired":             saveRequired,
		"pointCount":               len(snap.Points),
		"characteristicPointCount": len(snap.CharacteristicPoints),
	})
}

// SaveSession handles POST /session/save.
// @Summary Save the stopped session as a named route
// @Description Persists the pending session; an empty name is rejected and the decision stays pending
// @Tags session
// @Accept json
// @Produce json
// @Param request body saveRequest true "Route name"
// @Success 201 {object} map[string]interface{} "Route saved"
// @Failure 400 {object} map[string]interface{} "Empty name"
// @Failure 409 {object} map[string]interface{} "No session awaiting a decision"
// @Failure 500 {object} map[string]interface{} "Storage failure"
// @Router /session/save [post]
func (h *SessionHandler) SaveSession(c *fiber.Ctx) error {
	var req saveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "invalid request body",
		})
	}

	id, err := h.Controller.Save(req.Name)
	if err != nil {
		log.Printf("Error saving route: %v", err)
		return respondError(c, err)
	}

	if err := h.Catalog.Refresh(); err != nil {
		log.Printf("Catalog refresh after save failed: %v", err)
	}
	log.Printf("Saved route %s (%q)", id, req.Name)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// DiscardSession handles POST /session/discard.
// @Summary Discard the stopped session
// @Tags session
// @Produce json
// @Success 200 {object} map[string]interface{} "Session discarded"
// @Failure 409 {object} map[string]interface{} "No session awaiting a decision"
// @Router /session/discard [post]
func (h *SessionHandler) DiscardSession(c *fiber.Ctx) error {
	if err := h.Controller.Discard(); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"state": h.Controller.State().String()})
}

// AddCharacteristicPoint handles POST /session/points. The photo part is
// optional: a request without one models a cancelled capture and records
// nothing.
// @Summary Record a characteristic point
// @Description Stores the uploaded photo and tags it with the last known location
// @Tags session
// @Accept multipart/form-data
// @Produce json
// @Param photo formData file false "Captured photo"
// @Success 201 {object} map[string]interface{} "Point recorded"
// @Success 200 {object} map[string]interface{} "Capture cancelled, nothing recorded"
// @Failure 409 {object} map[string]interface{} "Not recording or no fix yet"
// @Router /session/points [post]
func (h *SessionHandler) AddCharacteristicPoint(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		fileHeader = nil
	}

	cp, err := h.Controller.RecordCharacteristicPoint(c.Context(), uploadCapture{
		file:  fileHeader,
		media: h.Media,
	})
	if err != nil {
		log.Printf("Error recording characteristic point: %v", err)
		return respondError(c, err)
	}
	if cp == nil {
		return c.JSON(fiber.Map{"recorded": false})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"recorded": true,
		"point":    cp,
	})
}

// LiveSession handles GET /session.
// @Summary Live session state
// @Description Returns the accumulated points and characteristic points for map rendering
// @Tags session
// @Produce json
// @Success 200 {object} services.Live "Current session content"
// @Router /session [get]
func (h *SessionHandler) LiveSession(c *fiber.Ctx) error {
	return c.JSON(h.Controller.LiveView())
}

// uploadCapture adapts one uploaded photo into the capture collaborator
// contract: a missing part is a cancellation, a stored part yields the media
// reference URI.
type uploadCapture struct {
	file  *multipart.FileHeader
	media services.MediaStore
}

func (u uploadCapture) Capture(ctx context.Context) (services.CaptureResult, error) {
	if u.file == nil {
		return services.CaptureResult{Cancelled: true}, nil
	}
	f, err := u.file.Open()
	if err != nil {
		return services.CaptureResult{}, errors.Wrap(err, "open uploaded photo")
	}
	defer f.Close()

	uri, err := u.media.Store(ctx, u.file.Filename, u.file.Header.Get("Content-Type"), f, u.file.Size)
	if err != nil {
		return services.CaptureResult{}, err
	}
	return services.CaptureResult{MediaURI: uri}, nil
}
