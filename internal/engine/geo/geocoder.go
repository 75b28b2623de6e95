package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rendis/leadtap/internal/model"
)

type nominatimResult struct {
	BoundingBox []string `json:"boundingbox"` // [minLat, maxLat, minLng, maxLng]
	DisplayName string   `json:"display_name"`
}

// GeocodeBaseURL is overridable for tests.
var GeocodeBaseURL = "https://nominatim.openstreetmap.org/search"

// GeocodeArea resolves a named area (optionally qualified by country) to its
// bounding Region using the OSM Nominatim API.
func GeocodeArea(ctx context.Context, area, country string) (model.Region, error) {
	q := area
	if country != "" {
		q = area + ", " + country
	}

	u := GeocodeBaseURL + "?" + url.Values{
		"q":      {q},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.Region{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "leadtap/0.1 (business lead scanner)")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return model.Region{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Region{}, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return model.Region{}, fmt.Errorf("decoding geocoding response: %w", err)
	}
	if len(results) == 0 {
		return model.Region{}, fmt.Errorf("area %q not found", q)
	}

	bb := results[0].BoundingBox
	if len(bb) < 4 {
		return model.Region{}, fmt.Errorf("invalid bounding box from geocoder")
	}

	// Nominatim returns [minLat, maxLat, minLng, maxLng] as strings
	south, _ := strconv.ParseFloat(bb[0], 64)
	north, _ := strconv.ParseFloat(bb[1], 64)
	west, _ := strconv.ParseFloat(bb[2], 64)
	east, _ := strconv.ParseFloat(bb[3], 64)

	region := model.Region{South: south, West: west, North: north, East: east}
	if !region.Valid() {
		return model.Region{}, fmt.Errorf("geocoder returned degenerate bounds for %q", q)
	}
	return region, nil
}
