package services

import (
	"context"
	"io"

	"route-tracker/internal/models"
)

// ZoomSpanDegrees is the map span used when re-centering on a fix.
const ZoomSpanDegrees = 0.01

// CaptureResult is the outcome of asking the capture device for a photo.
// Cancellation is a normal empty result, not an error.
type CaptureResult struct {
	Cancelled bool
	MediaURI  string
}

// CaptureCollaborator produces a media reference for a characteristic point.
type CaptureCollaborator interface {
	Capture(ctx context.Context) (CaptureResult, error)
}

// PermissionCollaborator answers the platform permission prompts. The
// production implementation reflects what the device app already obtained.
type PermissionCollaborator interface {
	RequestForegroundLocation() bool
	RequestBackgroundLocation() bool
	RequestCamera() bool
}

// MapView receives live updates while a session records or a saved route is
// opened for display.
type MapView interface {
	Recenter(p models.GeoPoint, zoomSpanDegrees float64)
}

// MediaStore persists captured media and returns an opaque reference URI.
type MediaStore interface {
	Store(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error)
}
