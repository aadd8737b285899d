package repository

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"route-tracker/internal/models"
)

func newStore(t *testing.T) *FileRouteStore {
	t.Helper()
	store, err := NewFileRouteStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func samplePoints() []models.GeoPoint {
	return []models.GeoPoint{
		{Latitude: 48.2082, Longitude: 16.3738},
		{Latitude: 48.2090, Longitude: 16.3745},
		{Latitude: 48.2101, Longitude: 16.3760},
	}
}

func TestCreateReadRoundTrip(t *testing.T) {
	store := newStore(t)

	points := samplePoints()
	cps := []models.CharacteristicPoint{
		{Location: points[1], ImageURI: "minio://media/abc.jpg"},
	}

	id, err := store.Create("Morning Run", points, cps)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	route, err := store.Read(id)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if route.ID != id || route.Name != "Morning Run" {
		t.Fatalf("unexpected record: id=%s name=%q", route.ID, route.Name)
	}
	if len(route.Points) != len(points) {
		t.Fatalf("expected %d points, got %d", len(points), len(route.Points))
	}
	for i := range points {
		if route.Points[i] != points[i] {
			t.Fatalf("point %d changed across round trip", i)
		}
	}
	if len(route.CharacteristicPoints) != 1 || route.CharacteristicPoints[0] != cps[0] {
		t.Fatalf("characteristic points changed across round trip")
	}
	if route.DistanceMeters <= 0 {
		t.Fatalf("expected positive route distance, got %f", route.DistanceMeters)
	}
}

func TestCreateRejectsEmptyRoute(t *testing.T) {
	store := newStore(t)
	if _, err := store.Create("empty", nil, nil); !errors.Is(err, ErrEmptyRoute) {
		t.Fatalf("expected ErrEmptyRoute, got %v", err)
	}
}

func TestCreateGeneratesDistinctIDs(t *testing.T) {
	store := newStore(t)
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		id, err := store.Create("run", samplePoints(), nil)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestRenameLifecycle(t *testing.T) {
	store := newStore(t)

	id, err := store.Create("Morning Run", samplePoints(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.Rename(id, "   "); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	route, err := store.Read(id)
	if err != nil {
		t.Fatalf("read after failed rename: %v", err)
	}
	if route.Name != "Morning Run" {
		t.Fatalf("failed rename must leave the record unchanged, got %q", route.Name)
	}

	if err := store.Rename(id, "Evening Run"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	route, err = store.Read(id)
	if err != nil {
		t.Fatalf("read after rename: %v", err)
	}
	if route.Name != "Evening Run" {
		t.Fatalf("expected renamed record, got %q", route.Name)
	}
	if len(route.Points) != len(samplePoints()) {
		t.Fatalf("rename must not touch the points")
	}
}

func TestRenameUnknownID(t *testing.T) {
	store := newStore(t)
	if err := store.Rename("route_1_ffffffff", "name"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUnknownIDLeavesStoreUnchanged(t *testing.T) {
	store := newStore(t)
	id, err := store.Create("keep me", samplePoints(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.Delete("route_1_ffffffff"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id {
		t.Fatalf("failed delete must leave the store unchanged")
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	store := newStore(t)
	id, err := store.Create("short lived", samplePoints(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Delete(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Read(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListIsolatesCorruptRecord(t *testing.T) {
	store := newStore(t)

	goodID, err := store.Create("good", samplePoints(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	corruptID := "route_9999999999999_deadbeef"
	if err := os.WriteFile(filepath.Join(store.dir, corruptID), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("list must not fail on a corrupt record: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	byID := make(map[string]models.RouteListEntry)
	for _, e := range entries {
		byID[e.ID] = e
	}
	if good := byID[goodID]; good.Name == nil || *good.Name != "good" || good.Record == nil {
		t.Fatalf("well-formed entry not listed correctly: %+v", good)
	}
	if corrupt := byID[corruptID]; corrupt.Name != nil || corrupt.Record != nil {
		t.Fatalf("corrupt entry must be listed with nil name and record: %+v", corrupt)
	}

	if _, err := store.Read(corruptID); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	store := newStore(t)
	if err := os.WriteFile(filepath.Join(store.dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write foreign file: %v", err)
	}
	entries, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected foreign files to be skipped, got %d entries", len(entries))
	}
}

func TestReadToleratesMissingName(t *testing.T) {
	store := newStore(t)

	// Records written by earlier releases may not carry a name field.
	legacyID := "route_1700000000000_cafe0123"
	legacy := `{"route":[{"latitude":1,"longitude":2}],"characteristicPoints":[]}`
	if err := os.WriteFile(filepath.Join(store.dir, legacyID), []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy record: %v", err)
	}

	route, err := store.Read(legacyID)
	if err != nil {
		t.Fatalf("read legacy record: %v", err)
	}
	if route.Name != "" {
		t.Fatalf("expected empty name, got %q", route.Name)
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != nil {
		t.Fatalf("legacy record must list with nil name")
	}
}

func TestIDValidationBlocksPathEscapes(t *testing.T) {
	store := newStore(t)
	for _, id := range []string{"../outside", "route_1/../../outside", "plain"} {
		if _, err := store.Read(id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("id %q: expected ErrNotFound, got %v", id, err)
		}
	}
}
