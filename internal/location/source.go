package location

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"route-tracker/internal/models"
)

var (
	// ErrPermissionDenied means a required location permission was not granted.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrSourceUnavailable means no fix could be acquired from the source.
	ErrSourceUnavailable = errors.New("location source unavailable")
)

// Options controls the cadence of a location channel. Zero values disable
// the corresponding filter.
type Options struct {
	MinInterval time.Duration
	MinDistance float64 // meters
}

// Subscription is one continuous stream of fixes. The stream is lazy,
// infinite, and not restartable. Cancel is idempotent; it is safe to call
// multiple times or after the stream already ended.
type Subscription interface {
	// Fixes delivers full replacement fixes in capture order.
	Fixes() <-chan models.GeoPoint
	// Done is closed once the subscription has been cancelled.
	Done() <-chan struct{}
	Cancel()
}

// Source abstracts one-shot and continuous location acquisition plus the
// background-capable tracking channel. The background channel and the
// foreground stream are independent subscriptions over the same physical
// sensor; callers must not assume both deliver identical cadence.
type Source interface {
	// CurrentFix blocks until a fix is available or ctx expires. A GPS fix
	// may legitimately take seconds; no timeout is imposed here.
	CurrentFix(ctx context.Context) (models.GeoPoint, error)

	Subscribe(opts Options) (Subscription, error)

	// EnableBackgroundTracking registers deliver under the well-known
	// background task name. Re-registration replaces the previous handler
	// rather than duplicating it.
	EnableBackgroundTracking(opts Options, deliver func(models.GeoPoint)) error

	// DisableBackgroundTracking is idempotent.
	DisableBackgroundTracking() error
}

// PermissionGate answers the background-location permission prompt. The
// production gate reflects what the device app already obtained; tests
// substitute a stub.
type PermissionGate interface {
	RequestBackgroundLocation() bool
}
