package model

import "strings"

// Region is a geographic bounding box in degrees.
// Invariant: South < North and West < East for non-degenerate regions.
type Region struct {
	South float64
	West  float64
	North float64
	East  float64
}

func (r Region) Width() float64  { return r.East - r.West }
func (r Region) Height() float64 { return r.North - r.South }

func (r Region) Valid() bool {
	return r.South < r.North && r.West < r.East
}

// Center returns the midpoint of the region as (lat, lng).
func (r Region) Center() (float64, float64) {
	return (r.South + r.North) / 2, (r.West + r.East) / 2
}

// Tile is a sub-region produced by partitioning a parent Region into a grid.
type Tile struct {
	Region
	Row int
	Col int
}

// TagFilter is a provider-specific attribute predicate, e.g. {"shop", "bakery"}
// or a bare key like {"craft", ""} which matches any value.
type TagFilter struct {
	Key   string
	Value string
}

func (f TagFilter) String() string {
	if f.Value == "" {
		return f.Key
	}
	return f.Key + "=" + f.Value
}

// FilterGroup is a set of tag predicates applied together in one provider
// query. A search that takes several groups matches places satisfying any
// one group.
type FilterGroup []TagFilter

// Place is a normalized business record. Adapters produce it from raw
// provider payloads; after that it only changes through Merge.
type Place struct {
	SourceName  string  `json:"source_name"`
	SourceRef   string  `json:"source_ref,omitempty"`
	Name        string  `json:"name"`
	Website     string  `json:"website,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Email       string  `json:"email,omitempty"`
	Address     string  `json:"address,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lng         float64 `json:"lng,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`
}

func (p Place) HasLocation() bool {
	return p.Lat != 0 || p.Lng != 0
}

// Merge copies fields from other into p, filling only fields that are empty
// on p. A populated field is never overwritten by an empty one.
func (p *Place) Merge(other Place) {
	if p.Website == "" {
		p.Website = other.Website
	}
	if p.Phone == "" {
		p.Phone = other.Phone
	}
	if p.Email == "" {
		p.Email = other.Email
	}
	if p.Address == "" {
		p.Address = other.Address
	}
	if !p.HasLocation() && other.HasLocation() {
		p.Lat = other.Lat
		p.Lng = other.Lng
	}
	if p.Rating == 0 {
		p.Rating = other.Rating
	}
	if p.ReviewCount == 0 {
		p.ReviewCount = other.ReviewCount
	}
	if p.SourceRef == "" {
		p.SourceRef = other.SourceRef
	}
}

// ScanParams holds all configuration for a discovery run.
type ScanParams struct {
	// Mode 1: explicit bounding box
	Bounds Region

	// Mode 2: by coordinates
	Lat    float64
	Lng    float64
	Radius float64 // km

	// Mode 3: by named region (geocoded)
	Area    string
	Country string

	FilterGroups []FilterGroup
	Rows         int
	Cols         int

	CallBudget   int
	ResultBudget int
	Concurrency  int // enrichment worker count
	Enrich       bool

	DBPath string
	Debug  bool
}

func (p *ScanParams) IsCoordMode() bool {
	return p.Lat != 0 || p.Lng != 0
}

// ParseFilters parses a comma-separated list of key=value predicates into a
// single filter group. A bare key matches any value.
func ParseFilters(s string) FilterGroup {
	var group FilterGroup
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		group = append(group, TagFilter{Key: key, Value: value})
	}
	return group
}
