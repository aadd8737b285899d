package services

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"route-tracker/internal/location"
	"route-tracker/internal/models"
	"route-tracker/internal/repository"
	"route-tracker/internal/session"
	"route-tracker/internal/utils"
)

// State is the lifecycle position of the session controller.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateStopping
	StateAwaitingSaveDecision
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateAwaitingSaveDecision:
		return "awaiting-save-decision"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyRecording = errors.New("a recording session is already active")
	ErrStopInProgress   = errors.New("previous session is still releasing its location channel")
	ErrSavePending      = errors.New("a stopped session is awaiting a save decision")
	ErrNoPendingSession = errors.New("no stopped session awaiting a save decision")
	ErrDisplayWhileBusy = errors.New("cannot display a saved route while recording")
)

// SessionController orchestrates the location source and the recording
// session across the lifecycle idle -> starting -> active -> stopping ->
// (awaiting save decision) -> idle. All session mutation is serialized
// behind one mutex; the location channels are independent producers that
// deliver into it.
type SessionController struct {
	source  location.Source
	perms   PermissionCollaborator
	store   repository.RouteStore
	mapView MapView
	metrics *utils.Metrics
	opts    location.Options

	mu       sync.Mutex
	state    State
	session  *session.Recording
	sub      location.Subscription
	pumpDone chan struct{}
	pending  *session.Snapshot
}

func NewSessionController(
	source location.Source,
	perms PermissionCollaborator,
	store repository.RouteStore,
	mapView MapView,
	metrics *utils.Metrics,
	opts location.Options,
) *SessionController {
	return &SessionController{
		source:  source,
		perms:   perms,
		store:   store,
		mapView: mapView,
		metrics: metrics,
		opts:    opts,
		state:   StateIdle,
		session: session.New(),
	}
}

// State reports the current lifecycle state.
func (c *SessionController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins a new recording session: it requests the foreground
// permission, seeds the session with one current fix, opens the continuous
// stream, and enables background tracking best-effort. On any failure the
// controller returns to idle; permission and sensor errors are surfaced, not
// retried.
func (c *SessionController) Start(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
	case StateStopping:
		c.mu.Unlock()
		return ErrStopInProgress
	case StateAwaitingSaveDecision:
		c.mu.Unlock()
		return ErrSavePending
	default:
		c.mu.Unlock()
		return ErrAlreadyRecording
	}
	c.state = StateStarting
	c.mu.Unlock()

	if !c.perms.RequestForegroundLocation() {
		c.revertToIdle()
		return location.ErrPermissionDenied
	}

	fix, err := c.source.CurrentFix(ctx)
	if err != nil {
		c.revertToIdle()
		return errors.Wrap(err, "acquire initial fix")
	}

	sub, err := c.source.Subscribe(c.opts)
	if err != nil {
		c.revertToIdle()
		return errors.Wrap(err, "open location stream")
	}

	c.mu.Lock()
	c.session.Start()
	c.session.AppendPoint(fix)
	c.sub = sub
	c.pumpDone = make(chan struct{})
	c.state = StateActive
	c.mu.Unlock()

	c.recenter(fix)
	go c.pump(sub, c.pumpDone)

	if err := c.source.EnableBackgroundTracking(c.opts, c.handleBackgroundFix); err != nil {
		// Background tracking is best-effort; the foreground stream carries
		// the session on its own.
		log.Printf("Session controller: background tracking unavailable: %v", err)
	}

	c.metrics.SessionStarted()
	log.Printf("Session controller: recording started at (%f, %f)", fix.Latitude, fix.Longitude)
	return nil
}

// Stop ends the active session. It releases the foreground subscription
// exactly once, disables background tracking best-effort, and reports
// whether the stopped session has points and therefore needs a save
// decision.
func (c *SessionController) Stop(ctx context.Context) (session.Snapshot, bool, error) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return session.Snapshot{}, false, session.ErrNotRecording
	}
	c.state = StateStopping
	sub := c.sub
	c.sub = nil
	pumpDone := c.pumpDone
	c.mu.Unlock()

	// The handle is taken out of the controller above, so this is the only
	// release path; Cancel itself is idempotent.
	sub.Cancel()
	<-pumpDone

	if err := c.source.DisableBackgroundTracking(); err != nil {
		log.Printf("Session controller: disable background tracking: %v", err)
	}

	c.mu.Lock()
	snap := c.session.Stop()
	saveRequired := len(snap.Points) > 0
	if saveRequired {
		c.pending = &snap
		c.state = StateAwaitingSaveDecision
	} else {
		c.pending = nil
		c.state = StateIdle
	}
	c.mu.Unlock()

	c.metrics.SessionStopped()
	log.Printf("Session controller: recording stopped (%d points, save required: %t)", len(snap.Points), saveRequired)
	return snap, saveRequired, nil
}

// Save promotes the stopped session to a saved route. An empty trimmed name
// is rejected locally and the decision state is kept so the caller can
// retry; a storage failure likewise leaves the decision pending.
func (c *SessionController) Save(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingSaveDecision || c.pending == nil {
		return "", ErrNoPendingSession
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", repository.ErrEmptyName
	}

	started := time.Now()
	id, err := c.store.Create(name, c.pending.Points, c.pending.CharacteristicPoints)
	if err != nil {
		c.metrics.IncrementStoreErrors("create")
		return "", errors.Wrap(err, "save route")
	}
	c.metrics.RecordSaveLatency(float64(time.Since(started).Microseconds()) / 1000.0)
	c.metrics.SessionSaved()

	c.pending = nil
	c.state = StateIdle
	return id, nil
}

// Discard drops the stopped session without persisting it.
func (c *SessionController) Discard() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingSaveDecision {
		return ErrNoPendingSession
	}
	c.pending = nil
	c.state = StateIdle
	c.metrics.SessionDiscarded()
	log.Printf("Session controller: stopped session discarded")
	return nil
}

// RecordCharacteristicPoint asks the capture collaborator for a photo and
// attaches the resulting media reference to the last known location. A
// cancelled or failed capture is a no-op, not a session failure; a nil
// result with nil error means nothing was recorded.
func (c *SessionController) RecordCharacteristicPoint(ctx context.Context, capture CaptureCollaborator) (*models.CharacteristicPoint, error) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return nil, session.ErrNotRecording
	}
	c.mu.Unlock()

	if !c.perms.RequestCamera() {
		log.Printf("Session controller: camera permission denied, point not recorded")
		return nil, nil
	}

	result, err := capture.Capture(ctx)
	if err != nil {
		log.Printf("Session controller: capture failed, point not recorded: %v", err)
		return nil, nil
	}
	if result.Cancelled {
		return nil, nil
	}

	c.mu.Lock()
	cp, err := c.session.AppendCharacteristicPoint(result.MediaURI)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c.metrics.IncrementCharacteristicPoints()
	log.Printf("Session controller: characteristic point recorded at (%f, %f)", cp.Location.Latitude, cp.Location.Longitude)
	return &cp, nil
}

// DisplayRoute loads a saved route into the session for map display. It is
// only valid while no recording is in progress and never enables recording.
func (c *SessionController) DisplayRoute(id string) (*models.SavedRoute, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle && c.state != StateAwaitingSaveDecision {
		return nil, ErrDisplayWhileBusy
	}
	route, err := c.store.Read(id)
	if err != nil {
		return nil, err
	}
	c.session.Load(route.Points, route.CharacteristicPoints)
	if n := len(route.Points); n > 0 && c.mapView != nil {
		c.mapView.Recenter(route.Points[n-1], ZoomSpanDegrees)
	}
	return route, nil
}

// Live describes the current session for the map surface.
type Live struct {
	State                string                       `json:"state"`
	Points               []models.GeoPoint            `json:"points"`
	CharacteristicPoints []models.CharacteristicPoint `json:"characteristicPoints"`
	DistanceMeters       float64                      `json:"distanceMeters"`
}

// LiveView returns a copy of the current session content for rendering.
func (c *SessionController) LiveView() Live {
	c.mu.Lock()
	defer c.mu.Unlock()

	points := c.session.Points()
	return Live{
		State:                c.state.String(),
		Points:               points,
		CharacteristicPoints: c.session.CharacteristicPoints(),
		DistanceMeters:       utils.RouteDistance(points),
	}
}

// pump drains the foreground stream into the session until the subscription
// is cancelled.
func (c *SessionController) pump(sub location.Subscription, done chan struct{}) {
	defer close(done)
	for {
		select {
		case fix := <-sub.Fixes():
			c.handleForegroundFix(fix)
		case <-sub.Done():
			return
		}
	}
}

func (c *SessionController) handleForegroundFix(fix models.GeoPoint) {
	c.mu.Lock()
	active := c.state == StateActive
	if active {
		c.session.AppendPoint(fix)
	}
	c.mu.Unlock()

	if active {
		c.recenter(fix)
		c.metrics.IncrementFixesRecorded()
	}
}

// handleBackgroundFix is the background task handler. The two channels are
// independent producers merged into the same append-only sink; no ordering
// across them is assumed.
func (c *SessionController) handleBackgroundFix(fix models.GeoPoint) {
	c.mu.Lock()
	active := c.state == StateActive
	if active {
		c.session.AppendPoint(fix)
	}
	c.mu.Unlock()

	if active {
		c.metrics.IncrementFixesRecorded()
	}
}

func (c *SessionController) recenter(fix models.GeoPoint) {
	if c.mapView != nil {
		c.mapView.Recenter(fix, ZoomSpanDegrees)
	}
}

func (c *SessionController) revertToIdle() {
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
}
