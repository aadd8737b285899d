package services

import (
	"strings"
	"sync"

	"route-tracker/internal/models"
	"route-tracker/internal/repository"
	"route-tracker/internal/utils"
)

// CatalogEntry is one row of the saved-routes browsing surface.
type CatalogEntry struct {
	ID             string  `json:"id"`
	Name           *string `json:"name"`
	DisplayName    string  `json:"displayName"`
	PointCount     int     `json:"pointCount"`
	DistanceMeters float64 `json:"distanceMeters"`
	Corrupt        bool    `json:"corrupt"`
}

// RouteCatalog is a derived, rebuildable index over the route store. It is
// never a source of truth: it becomes stale immediately after any store
// mutation and must be explicitly refreshed by the caller afterwards.
type RouteCatalog struct {
	store repository.RouteStore

	mu      sync.RWMutex
	entries []CatalogEntry
}

func NewRouteCatalog(store repository.RouteStore) *RouteCatalog {
	return &RouteCatalog{store: store}
}

// Refresh regenerates the index by enumerating the store.
func (c *RouteCatalog) Refresh() error {
	listed, err := c.store.List()
	if err != nil {
		return err
	}

	entries := make([]CatalogEntry, 0, len(listed))
	for _, item := range listed {
		entry := CatalogEntry{
			ID:          item.ID,
			Name:        item.Name,
			DisplayName: DisplayName(item),
			Corrupt:     item.Record == nil,
		}
		if item.Record != nil {
			entry.PointCount = len(item.Record.Route)
			entry.DistanceMeters = utils.RouteDistance(item.Record.Route)
		}
		entries = append(entries, entry)
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// Entries returns a copy of the cached listing.
func (c *RouteCatalog) Entries() []CatalogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]CatalogEntry(nil), c.entries...)
}

// DisplayName falls back to the record id when no name was assigned.
func DisplayName(entry models.RouteListEntry) string {
	if entry.Name != nil && strings.TrimSpace(*entry.Name) != "" {
		return *entry.Name
	}
	return entry.ID
}
