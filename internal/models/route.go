package models

// GeoPoint is a single location fix. Points are immutable once produced;
// consecutive duplicates are allowed.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CharacteristicPoint ties a photo reference to the location it was taken at.
// The media behind ImageURI is owned by the capture subsystem; a route keeps
// the reference only and never deletes the underlying media.
type CharacteristicPoint struct {
	Location GeoPoint `json:"location"`
	ImageURI string   `json:"imageUri"`
}

// RouteRecord is the on-disk shape of one saved route file. Name is optional
// at read time: records written by earlier releases may not carry it.
type RouteRecord struct {
	Name                 string                `json:"name,omitempty"`
	Route                []GeoPoint            `json:"route"`
	CharacteristicPoints []CharacteristicPoint `json:"characteristicPoints"`
}

// SavedRoute is a fully loaded persisted route.
type SavedRoute struct {
	ID                   string                `json:"id"`
	Name                 string                `json:"name"`
	Points               []GeoPoint            `json:"route"`
	CharacteristicPoints []CharacteristicPoint `json:"characteristicPoints"`
	DistanceMeters       float64               `json:"distanceMeters"`
}

// RouteListEntry is one row of the route listing. A file whose content fails
// to parse is still listed, with Name and Record both nil, so one corrupt
// record never hides the rest.
type RouteListEntry struct {
	ID     string       `json:"id"`
	Name   *string      `json:"name"`
	Record *RouteRecord `json:"record,omitempty"`
}
