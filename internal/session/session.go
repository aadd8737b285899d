package session

import (
	"errors"

	"route-tracker/internal/models"
)

var (
	// ErrNoActiveFix means no location fix has been recorded yet, so a
	// characteristic point has nothing to attach to.
	ErrNoActiveFix = errors.New("no location fix recorded yet")
	// ErrNotRecording means the session is not currently enabled.
	ErrNotRecording = errors.New("session is not recording")
)

// Recording holds the mutable state of one in-progress route recording:
// the accumulated path, the photo-tagged characteristic points, and the
// enabled flag. It does no I/O and is not safe for concurrent use; the
// owning controller serializes access.
type Recording struct {
	enabled              bool
	points               []models.GeoPoint
	characteristicPoints []models.CharacteristicPoint
	lastKnownLocation    *models.GeoPoint
}

// Snapshot is a copy of a session's content, taken at stop time.
// Later mutation of the session is not visible through it.
type Snapshot struct {
	Points               []models.GeoPoint
	CharacteristicPoints []models.CharacteristicPoint
}

func New() *Recording {
	return &Recording{}
}

// Start clears any leftover content from a previous session and enables
// recording. It always yields empty points and characteristic points before
// the first fix arrives.
func (r *Recording) Start() {
	r.points = nil
	r.characteristicPoints = nil
	r.lastKnownLocation = nil
	r.enabled = true
}

// AppendPoint records one fix and remembers it as the last known location.
// Fixes delivered while the session is disabled are dropped. The points
// sequence is append-only; it is never reordered or mutated in place.
func (r *Recording) AppendPoint(p models.GeoPoint) {
	if !r.enabled {
		return
	}
	r.points = append(r.points, p)
	r.lastKnownLocation = &p
}

// AppendCharacteristicPoint attaches mediaRef to the last known location.
func (r *Recording) AppendCharacteristicPoint(mediaRef string) (models.CharacteristicPoint, error) {
	if r.lastKnownLocation == nil {
		return models.CharacteristicPoint{}, ErrNoActiveFix
	}
	if !r.enabled {
		return models.CharacteristicPoint{}, ErrNotRecording
	}
	cp := models.CharacteristicPoint{Location: *r.lastKnownLocation, ImageURI: mediaRef}
	r.characteristicPoints = append(r.characteristicPoints, cp)
	return cp, nil
}

// Stop disables recording and returns a snapshot of the content. The content
// itself stays readable until the next Start.
func (r *Recording) Stop() Snapshot {
	r.enabled = false
	return Snapshot{
		Points:               append([]models.GeoPoint(nil), r.points...),
		CharacteristicPoints: append([]models.CharacteristicPoint(nil), r.characteristicPoints...),
	}
}

// Load replaces the content wholesale, used when a previously saved route is
// reopened for display. It never enables recording.
func (r *Recording) Load(points []models.GeoPoint, cps []models.CharacteristicPoint) {
	r.points = append([]models.GeoPoint(nil), points...)
	r.characteristicPoints = append([]models.CharacteristicPoint(nil), cps...)
	r.lastKnownLocation = nil
	if n := len(r.points); n > 0 {
		last := r.points[n-1]
		r.lastKnownLocation = &last
	}
}

func (r *Recording) Enabled() bool {
	return r.enabled
}

// Points returns a copy of the accumulated path.
func (r *Recording) Points() []models.GeoPoint {
	return append([]models.GeoPoint(nil), r.points...)
}

// CharacteristicPoints returns a copy of the accumulated characteristic points.
func (r *Recording) CharacteristicPoints() []models.CharacteristicPoint {
	return append([]models.CharacteristicPoint(nil), r.characteristicPoints...)
}

// LastKnownLocation reports the most recent fix, if any was recorded.
func (r *Recording) LastKnownLocation() (models.GeoPoint, bool) {
	if r.lastKnownLocation == nil {
		return models.GeoPoint{}, false
	}
	return *r.lastKnownLocation, true
}
