package geo

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/rendis/leadtap/internal/model"
)

// LoadBoundary reads a GeoJSON file and returns the union of its polygon
// geometries as a MultiPolygon usable as a land filter for tiles.
func LoadBoundary(path string) (orb.MultiPolygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading boundary file: %w", err)
	}

	fc := &geojson.FeatureCollection{}
	if err := json.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parsing geojson: %w", err)
	}

	var poly orb.MultiPolygon
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.MultiPolygon:
			poly = append(poly, g...)
		case orb.Polygon:
			poly = append(poly, g)
		}
	}
	if len(poly) == 0 {
		return nil, fmt.Errorf("no polygon features in %s", path)
	}
	return poly, nil
}

// FilterTiles removes tiles whose center falls outside the given polygon,
// e.g. grid cells over open water when scanning a coastal country.
func FilterTiles(tiles []model.Tile, poly orb.MultiPolygon) []model.Tile {
	if len(poly) == 0 {
		return tiles
	}
	var kept []model.Tile
	for _, t := range tiles {
		lat, lng := t.Center()
		point := orb.Point{lng, lat} // orb.Point is [lng, lat]
		if planar.MultiPolygonContains(poly, point) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Bound converts a Region to an orb.Bound.
func Bound(r model.Region) orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.West, r.South},
		Max: orb.Point{r.East, r.North},
	}
}

// Contains reports whether a point lies inside the region.
func Contains(r model.Region, lat, lng float64) bool {
	return Bound(r).Contains(orb.Point{lng, lat})
}
