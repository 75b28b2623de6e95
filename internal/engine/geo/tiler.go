package geo

import (
	"math"

	"github.com/rendis/leadtap/internal/model"
)

// Tile partitions a region into a rows x cols grid of equal sub-regions.
// Tiles are returned row-major (south to north, west to east) and cover the
// parent exactly: no gaps, no overlaps beyond floating-point tolerance.
// The function is pure; calling it twice with the same inputs yields the
// same grid. Degenerate zero-area regions produce zero-area tiles, which
// are valid queries that simply return nothing.
func Tile(region model.Region, rows, cols int) []model.Tile {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}

	latStep := region.Height() / float64(rows)
	lngStep := region.Width() / float64(cols)

	tiles := make([]model.Tile, 0, rows*cols)
	for row := 0; row < rows; row++ {
		south := region.South + float64(row)*latStep
		north := region.North
		if row < rows-1 {
			north = south + latStep
		}
		for col := 0; col < cols; col++ {
			west := region.West + float64(col)*lngStep
			east := region.East
			if col < cols-1 {
				east = west + lngStep
			}
			tiles = append(tiles, model.Tile{
				Region: model.Region{South: south, West: west, North: north, East: east},
				Row:    row,
				Col:    col,
			})
		}
	}
	return tiles
}

// RadiusRegion returns the bounding box covering a circle of radiusKm around
// a center point, with the longitude span widened for Mercator distortion.
func RadiusRegion(centerLat, centerLng, radiusKm float64) model.Region {
	latDeg := radiusKm / 111.0 // ~111 km per degree latitude
	lngDeg := radiusKm / (111.0 * math.Cos(centerLat*math.Pi/180.0))

	return model.Region{
		South: centerLat - latDeg,
		West:  centerLng - lngDeg,
		North: centerLat + latDeg,
		East:  centerLng + lngDeg,
	}
}

// FilterRadius keeps only tiles whose center lies within radiusKm of the
// given point.
func FilterRadius(tiles []model.Tile, centerLat, centerLng, radiusKm float64) []model.Tile {
	var kept []model.Tile
	for _, t := range tiles {
		lat, lng := t.Center()
		if haversineKm(centerLat, centerLng, lat, lng) <= radiusKm {
			kept = append(kept, t)
		}
	}
	return kept
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
