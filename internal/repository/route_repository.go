package repository

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"route-tracker/internal/models"
	"route-tracker/internal/utils"
)

// FilePrefix namespaces every saved route file inside the data directory.
const FilePrefix = "route_"

var (
	ErrEmptyRoute    = errors.New("route has no points")
	ErrEmptyName     = errors.New("route name must not be empty")
	ErrNotFound      = errors.New("route not found")
	ErrCorruptRecord = errors.New("route record is not parseable")
	ErrStorageWrite  = errors.New("route write failed")
)

// RouteStore is durable CRUD over saved route records.
type RouteStore interface {
	Create(name string, points []models.GeoPoint, cps []models.CharacteristicPoint) (string, error)
	List() ([]models.RouteListEntry, error)
	Read(id string) (*models.SavedRoute, error)
	Rename(id, newName string) error
	Delete(id string) error
}

// FileRouteStore keeps one JSON file per route under a single directory.
// Writes are published atomically (write-temp-then-rename), so a crash
// mid-write never leaves a partial record visible.
type FileRouteStore struct {
	dir string
}

// NewFileRouteStore creates the data directory if needed.
func NewFileRouteStore(dir string) (*FileRouteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create route directory")
	}
	return &FileRouteStore{dir: dir}, nil
}

// newRouteID derives an id from the creation time. The random suffix keeps
// two saves within the same millisecond from colliding.
func newRouteID(now time.Time) string {
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("%s%d_%s", FilePrefix, now.UnixMilli(), suffix)
}

// validID rejects ids that do not look like route file names so a caller can
// never escape the data directory.
func validID(id string) bool {
	return strings.HasPrefix(id, FilePrefix) && !strings.ContainsAny(id, "/\\")
}

// Create serializes a new record and publishes it atomically. The name is
// stored as given; name validation is the caller's concern.
func (s *FileRouteStore) Create(name string, points []models.GeoPoint, cps []models.CharacteristicPoint) (string, error) {
	if len(points) == 0 {
		return "", ErrEmptyRoute
	}
	id := newRouteID(time.Now())
	record := models.RouteRecord{
		Name:                 name,
		Route:                points,
		CharacteristicPoints: cps,
	}
	if err := s.writeRecord(id, &record); err != nil {
		return "", err
	}
	log.Printf("Route store: created %s (%d points, %d characteristic points)", id, len(points), len(cps))
	return id, nil
}

// List enumerates all record files, oldest first. A record whose content
// fails to parse is included with a nil name and record rather than omitted:
// one corrupt file must not hide the rest.
func (s *FileRouteStore) List() ([]models.RouteListEntry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "read route directory")
	}

	entries := make([]models.RouteListEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasPrefix(de.Name(), FilePrefix) {
			continue
		}
		entry := models.RouteListEntry{ID: de.Name()}
		record, err := s.readRecord(de.Name())
		if err != nil {
			log.Printf("Route store: skipping content of unreadable record %s: %v", de.Name(), err)
		} else {
			entry.Record = record
			if strings.TrimSpace(record.Name) != "" {
				name := record.Name
				entry.Name = &name
			}
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// Read loads one full record.
func (s *FileRouteStore) Read(id string) (*models.SavedRoute, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	record, err := s.readRecord(id)
	if err != nil {
		return nil, err
	}
	return &models.SavedRoute{
		ID:                   id,
		Name:                 record.Name,
		Points:               record.Route,
		CharacteristicPoints: record.CharacteristicPoints,
		DistanceMeters:       utils.RouteDistance(record.Route),
	}, nil
}

// Rename rewrites the full record with the new name. This is a pure
// read-modify-write: points and characteristic points are carried over and
// the replacement is atomic, so a crash mid-write cannot destroy them.
func (s *FileRouteStore) Rename(id, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return ErrEmptyName
	}
	if !validID(id) {
		return ErrNotFound
	}
	record, err := s.readRecord(id)
	if err != nil {
		return err
	}
	record.Name = newName
	if err := s.writeRecord(id, record); err != nil {
		return err
	}
	log.Printf("Route store: renamed %s to %q", id, newName)
	return nil
}

// Delete removes a record permanently. Media referenced by the record is not
// touched; dangling media references are accepted behavior.
func (s *FileRouteStore) Delete(id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	path := filepath.Join(s.dir, id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ErrNotFound
	}
	if err := os.Remove(path); err != nil {
		return errors.Wrapf(err, "delete route %s", id)
	}
	log.Printf("Route store: deleted %s", id)
	return nil
}

func (s *FileRouteStore) readRecord(id string) (*models.RouteRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read route %s", id)
	}
	var record models.RouteRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrapf(ErrCorruptRecord, "route %s: %v", id, err)
	}
	return &record, nil
}

func (s *FileRouteStore) writeRecord(id string, record *models.RouteRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrapf(ErrStorageWrite, "serialize route %s: %v", id, err)
	}
	if err := renameio.WriteFile(filepath.Join(s.dir, id), data, 0o644); err != nil {
		return errors.Wrapf(ErrStorageWrite, "publish route %s: %v", id, err)
	}
	return nil
}
