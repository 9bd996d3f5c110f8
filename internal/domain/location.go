package domain

import "time"

type EntityType string

const (
	TypeCountry EntityType = "country"
	TypeRegion  EntityType = "region"
	TypeCity    EntityType = "city"
	TypeResort  EntityType = "resort"
	TypeSkiArea EntityType = "ski_area"
)

// Entity is one row of a reference collection. Ids are unique within a
// collection only; a city id and a resort id with the same value are
// unrelated.
type Entity struct {
	ID          int64
	Names       map[string]string // language code -> display name
	CountryCode string
	Coords      *Coords
	RegionID    int64
}

// ReferenceDataset is the full provider reference snapshot. It is replaced
// wholesale on refresh, never patched.
type ReferenceDataset struct {
	Countries []Entity
	Regions   []Entity
	Cities    []Entity
	Resorts   []Entity
	SkiAreas  []Entity
	FetchedAt time.Time
}

// LocationMatch is a transient scoring result, recomputed per resolution.
type LocationMatch struct {
	Type        EntityType `json:"type"`
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Confidence  float64    `json:"confidence"`
	CountryCode string     `json:"country_code,omitempty"`
	Coords      *Coords    `json:"coordinates,omitempty"`
}
