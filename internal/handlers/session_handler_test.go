package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"route-tracker/internal/location"
	"route-tracker/internal/models"
	"route-tracker/internal/repository"
	"route-tracker/internal/services"
)

type grantAll struct{}

func (grantAll) RequestForegroundLocation() bool { return true }
func (grantAll) RequestBackgroundLocation() bool { return true }
func (grantAll) RequestCamera() bool             { return true }

// memMedia keeps uploaded photos in memory and hands back stable URIs.
type memMedia struct {
	mu     sync.Mutex
	stored []string
}

func (m *memMedia) Store(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	uri := fmt.Sprintf("mem://media/%d-%s", len(m.stored), filename)
	m.stored = append(m.stored, uri)
	return uri, nil
}

type testEnv struct {
	app   *fiber.App
	store *repository.FileRouteStore
	media *memMedia
	dir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	store, err := repository.NewFileRouteStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	perms := grantAll{}
	feed := location.NewFeedSource(perms)
	catalog := services.NewRouteCatalog(store)
	controller := services.NewSessionController(feed, perms, store, nil, nil, location.Options{})
	export := services.NewExportService(dir)
	media := &memMedia{}

	sessionHandler := NewSessionHandler(controller, media, catalog)
	routeHandler := NewRouteHandler(store, catalog, controller, export)
	locationHandler := NewLocationHandler(feed, nil)

	app := fiber.New()
	api := app.Group("/api/tracker")
	api.Post("/location", locationHandler.ReportFix)
	api.Post("/session/start", sessionHandler.StartSession)
	api.Post("/session/stop", sessionHandler.StopSession)
	api.Post("/session/save", sessionHandler.SaveSession)
	api.Post("/session/discard", sessionHandler.DiscardSession)
	api.Post("/session/points", sessionHandler.AddCharacteristicPoint)
	api.Get("/session", sessionHandler.LiveSession)
	api.Get("/routes/export", routeHandler.ExportRoutes)
	api.Get("/routes", routeHandler.ListRoutes)
	api.Get("/routes/:id", routeHandler.GetRoute)
	api.Post("/routes/:id/open", routeHandler.OpenRoute)
	api.Put("/routes/:id", routeHandler.RenameRoute)
	api.Delete("/routes/:id", routeHandler.DeleteRoute)

	return &testEnv{app: app, store: store, media: media, dir: dir}
}

func (e *testEnv) doJSON(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (e *testEnv) publishFix(t *testing.T, lat, lon float64) {
	t.Helper()
	resp := e.doJSON(t, "POST", "/api/tracker/location", models.GeoPoint{Latitude: lat, Longitude: lon})
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("publish fix: expected 202, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func (e *testEnv) waitForPoints(t *testing.T, n int) services.Live {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var live services.Live
	for time.Now().Before(deadline) {
		resp := e.doJSON(t, "GET", "/api/tracker/session", nil)
		decodeBody(t, resp, &live)
		if len(live.Points) >= n {
			return live
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d points, last view: %+v", n, live)
	return live
}

func TestRecordingLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	// Stopping with nothing running is a lifecycle conflict.
	resp := env.doJSON(t, "POST", "/api/tracker/session/stop", nil)
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("stop without session: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The device must report a fix before a session can start.
	env.publishFix(t, 10.0, 20.0)

	resp = env.doJSON(t, "POST", "/api/tracker/session/start", nil)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("start: expected 201, got %d", resp.StatusCode)
	}
	var started struct {
		State string `json:"state"`
	}
	decodeBody(t, resp, &started)
	if started.State != "active" {
		t.Fatalf("expected active state, got %q", started.State)
	}

	// A second start while recording is rejected.
	resp = env.doJSON(t, "POST", "/api/tracker/session/start", nil)
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("double start: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	env.publishFix(t, 10.001, 20.001)
	live := env.waitForPoints(t, 2)
	if live.State != "active" {
		t.Fatalf("expected active live state, got %q", live.State)
	}

	// No photo part models a cancelled capture: nothing is recorded.
	resp = env.doJSON(t, "POST", "/api/tracker/session/points", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("cancelled capture: expected 200, got %d", resp.StatusCode)
	}
	var cancelled struct {
		Recorded bool `json:"recorded"`
	}
	decodeBody(t, resp, &cancelled)
	if cancelled.Recorded {
		t.Fatalf("cancelled capture must not record a point")
	}

	// A photo upload records a point at the last known location.
	resp = env.postPhoto(t, "snap.jpg", []byte("jpeg-bytes"))
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("photo upload: expected 201, got %d", resp.StatusCode)
	}
	var recorded struct {
		Recorded bool                       `json:"recorded"`
		Point    models.CharacteristicPoint `json:"point"`
	}
	decodeBody(t, resp, &recorded)
	if !recorded.Recorded {
		t.Fatalf("expected a recorded point")
	}
	if recorded.Point.Location != (models.GeoPoint{Latitude: 10.001, Longitude: 20.001}) {
		t.Fatalf("point not at last fix: %+v", recorded.Point.Location)
	}
	if recorded.Point.ImageURI == "" {
		t.Fatalf("expected a media reference on the point")
	}

	resp = env.doJSON(t, "POST", "/api/tracker/session/stop", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("stop: expected 200, got %d", resp.StatusCode)
	}
	var stopped struct {
		State                    string `json:"state"`
		SaveRequired             bool   `json:"saveRequired"`
		PointCount               int    `json:"pointCount"`
		CharacteristicPointCount int    `json:"characteristicPointCount"`
	}
	decodeBody(t, resp, &stopped)
	if !stopped.SaveRequired || stopped.PointCount != 2 || stopped.CharacteristicPointCount != 1 {
		t.Fatalf("unexpected stop summary %+v", stopped)
	}

	// A blank name keeps the decision pending.
	resp = env.doJSON(t, "POST", "/api/tracker/session/save", fiber.Map{"name": "   "})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("blank name: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.doJSON(t, "POST", "/api/tracker/session/save", fiber.Map{"name": "Harbor Loop"})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("save: expected 201, got %d", resp.StatusCode)
	}
	var saved struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &saved)
	if saved.ID == "" {
		t.Fatalf("expected a route id")
	}

	// The saved route shows up in the listing with its name.
	resp = env.doJSON(t, "GET", "/api/tracker/routes", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var entries []services.CatalogEntry
	decodeBody(t, resp, &entries)
	if len(entries) != 1 || entries[0].ID != saved.ID || entries[0].DisplayName != "Harbor Loop" {
		t.Fatalf("unexpected listing %+v", entries)
	}

	// Saving again without a pending session is a conflict.
	resp = env.doJSON(t, "POST", "/api/tracker/session/save", fiber.Map{"name": "again"})
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("save without pending session: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDiscardOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	env.publishFix(t, 48.2, 16.37)
	resp := env.doJSON(t, "POST", "/api/tracker/session/start", nil)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("start: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.doJSON(t, "POST", "/api/tracker/session/stop", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("stop: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.doJSON(t, "POST", "/api/tracker/session/discard", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("discard: expected 200, got %d", resp.StatusCode)
	}
	var state struct {
		State string `json:"state"`
	}
	decodeBody(t, resp, &state)
	if state.State != "idle" {
		t.Fatalf("expected idle after discard, got %q", state.State)
	}

	entries, err := env.store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("discard must leave the store empty, found %d entries", len(entries))
	}
}

func TestReportFixValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doJSON(t, "POST", "/api/tracker/location", models.GeoPoint{Latitude: 91, Longitude: 0})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("out-of-range latitude: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.doJSON(t, "POST", "/api/tracker/location", models.GeoPoint{Latitude: 0, Longitude: -181})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("out-of-range longitude: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func (e *testEnv) postPhoto(t *testing.T, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("photo", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write photo content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/tracker/session/points", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("post photo: %v", err)
	}
	return resp
}
