package location

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"route-tracker/internal/models"
	"route-tracker/internal/utils"
)

// BackgroundTaskName is the single well-known identity of the
// background-capable tracking channel.
const BackgroundTaskName = "background-location-task"

// FeedSource fans externally delivered fixes out to every active channel.
// The device reports fixes over the ingest endpoint; each foreground
// subscription and the background task see them in delivery order. Ordering
// is guaranteed within each channel, not across channels.
type FeedSource struct {
	gate PermissionGate

	// publishMu serializes fan-out so every channel observes fixes in the
	// order they were published.
	publishMu sync.Mutex

	mu      sync.Mutex
	last    *models.GeoPoint
	waiters []chan models.GeoPoint
	subs    []*feedSubscription
	task    *backgroundTask
}

type feedSubscription struct {
	fixes  chan models.GeoPoint
	done   chan struct{}
	cancel sync.Once

	opts     Options
	lastSent time.Time
	lastFix  *models.GeoPoint
}

func (s *feedSubscription) Fixes() <-chan models.GeoPoint { return s.fixes }

func (s *feedSubscription) Done() <-chan struct{} { return s.done }

func (s *feedSubscription) Cancel() {
	s.cancel.Do(func() { close(s.done) })
}

type backgroundTask struct {
	name     string
	opts     Options
	deliver  func(models.GeoPoint)
	active   bool
	lastSent time.Time
	lastFix  *models.GeoPoint
}

func NewFeedSource(gate PermissionGate) *FeedSource {
	return &FeedSource{gate: gate}
}

// CurrentFix returns the most recent fix, blocking until the first one
// arrives when none has been delivered yet.
func (f *FeedSource) CurrentFix(ctx context.Context) (models.GeoPoint, error) {
	f.mu.Lock()
	if f.last != nil {
		fix := *f.last
		f.mu.Unlock()
		return fix, nil
	}
	waiter := make(chan models.GeoPoint, 1)
	f.waiters = append(f.waiters, waiter)
	f.mu.Unlock()

	select {
	case fix := <-waiter:
		return fix, nil
	case <-ctx.Done():
		return models.GeoPoint{}, errors.Wrap(ErrSourceUnavailable, "waiting for first fix")
	}
}

// Subscribe opens a new foreground stream over the feed.
func (f *FeedSource) Subscribe(opts Options) (Subscription, error) {
	sub := &feedSubscription{
		fixes: make(chan models.GeoPoint, 16),
		done:  make(chan struct{}),
		opts:  opts,
	}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, nil
}

// EnableBackgroundTracking registers deliver under BackgroundTaskName and
// activates the channel. Re-registration replaces the previous task.
func (f *FeedSource) EnableBackgroundTracking(opts Options, deliver func(models.GeoPoint)) error {
	if f.gate != nil && !f.gate.RequestBackgroundLocation() {
		return ErrPermissionDenied
	}
	f.mu.Lock()
	f.task = &backgroundTask{
		name:    BackgroundTaskName,
		opts:    opts,
		deliver: deliver,
		active:  true,
	}
	f.mu.Unlock()
	return nil
}

// DisableBackgroundTracking deactivates the background channel. The task
// stays defined; disabling twice is a no-op.
func (f *FeedSource) DisableBackgroundTracking() error {
	f.mu.Lock()
	if f.task != nil {
		f.task.active = false
	}
	f.mu.Unlock()
	return nil
}

// Publish delivers one fix to every active channel. The sender blocks until
// each subscription accepted the fix or was cancelled; a slow consumer delays
// the next fix, which is accepted latency.
func (f *FeedSource) Publish(p models.GeoPoint) {
	f.publishMu.Lock()
	defer f.publishMu.Unlock()

	now := time.Now()

	f.mu.Lock()
	f.last = &p
	waiters := f.waiters
	f.waiters = nil
	subs := f.activeSubsLocked()
	task := f.task
	f.mu.Unlock()

	for _, w := range waiters {
		w <- p
	}

	for _, sub := range subs {
		if !passesFilter(sub.opts, sub.lastSent, sub.lastFix, p, now) {
			continue
		}
		select {
		case sub.fixes <- p:
			sub.lastSent = now
			fix := p
			sub.lastFix = &fix
		case <-sub.done:
		}
	}

	if task != nil && task.active && task.deliver != nil {
		if passesFilter(task.opts, task.lastSent, task.lastFix, p, now) {
			task.deliver(p)
			task.lastSent = now
			fix := p
			task.lastFix = &fix
		}
	}
}

// activeSubsLocked prunes cancelled subscriptions and returns the live ones.
func (f *FeedSource) activeSubsLocked() []*feedSubscription {
	live := f.subs[:0]
	for _, sub := range f.subs {
		select {
		case <-sub.done:
		default:
			live = append(live, sub)
		}
	}
	f.subs = live
	return append([]*feedSubscription(nil), live...)
}

func passesFilter(opts Options, lastSent time.Time, lastFix *models.GeoPoint, p models.GeoPoint, now time.Time) bool {
	if opts.MinInterval > 0 && !lastSent.IsZero() && now.Sub(lastSent) < opts.MinInterval {
		return false
	}
	if opts.MinDistance > 0 && lastFix != nil {
		moved := utils.HaversineDistance(lastFix.Latitude, lastFix.Longitude, p.Latitude, p.Longitude)
		if moved < opts.MinDistance {
			return false
		}
	}
	return true
}
