package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rendis/leadtap/internal/model"
)

const (
	defaultOverpassURL     = "https://overpass-api.de/api/interpreter"
	defaultOverpassTimeout = 25 * time.Second
)

// OverpassConfig configures the Overpass region-search adapter.
type OverpassConfig struct {
	Endpoint string        // defaults to the public overpass-api.de instance
	Timeout  time.Duration // per-call HTTP timeout
}

// Overpass searches OpenStreetMap data by bounding box and tag predicates.
// Elements carry a stable type/id pair used as the place's source ref.
type Overpass struct {
	endpoint string
	http     *http.Client
}

func NewOverpass(cfg OverpassConfig) *Overpass {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOverpassURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOverpassTimeout
	}
	return &Overpass{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// overpassResponse is the typed shape of an Overpass JSON payload.
type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
	Remark   string            `json:"remark"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SearchByRegion issues one Overpass query for the tile and filter group.
// Transport failures and malformed payloads degrade to an empty result;
// HTTP 429 or a "rate"-flavored remark marks the result rate-limited.
func (o *Overpass) SearchByRegion(ctx context.Context, tile model.Tile, filters model.FilterGroup, limit int) Result {
	query := buildOverpassQL(tile.Region, filters, limit)

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.http.Do(req)
	if err != nil {
		return Result{}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return Result{RateLimited: true}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{RateLimited: isRateLimitText(string(body))}
	}

	var payload overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}
	}
	if isRateLimitText(payload.Remark) {
		return Result{RateLimited: true}
	}

	places := make([]model.Place, 0, len(payload.Elements))
	for _, el := range payload.Elements {
		p, ok := normalizeOverpass(el)
		if !ok {
			continue
		}
		places = append(places, p)
		if limit > 0 && len(places) >= limit {
			break
		}
	}
	return Result{Places: places}
}

// isRateLimitText detects the textual overload indicators Overpass uses in
// error bodies and remarks ("rate_limited", "server load too high", ...).
func isRateLimitText(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "rate") || strings.Contains(s, "load too high")
}

// buildOverpassQL renders the QL query for a bbox and one filter group.
// All predicates in the group are applied to a single nwr statement.
func buildOverpassQL(r model.Region, filters model.FilterGroup, limit int) string {
	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n  nwr")
	for _, f := range filters {
		if f.Value == "" {
			fmt.Fprintf(&b, "[%q]", f.Key)
		} else {
			fmt.Fprintf(&b, "[%q=%q]", f.Key, f.Value)
		}
	}
	fmt.Fprintf(&b, "(%g,%g,%g,%g);\n);\n", r.South, r.West, r.North, r.East)
	if limit > 0 {
		fmt.Fprintf(&b, "out center tags %d;", limit)
	} else {
		b.WriteString("out center tags;")
	}
	return b.String()
}

// normalizeOverpass converts one raw element into a Place. Elements without
// a name tag are unusable as leads and are dropped.
func normalizeOverpass(el overpassElement) (model.Place, bool) {
	name := el.Tags["name"]
	if strings.TrimSpace(name) == "" {
		return model.Place{}, false
	}

	lat, lng := el.Lat, el.Lon
	if el.Center != nil {
		lat, lng = el.Center.Lat, el.Center.Lon
	}

	return model.Place{
		SourceName: "overpass",
		SourceRef:  el.Type + "/" + strconv.FormatInt(el.ID, 10),
		Name:       name,
		Website:    firstTag(el.Tags, "website", "contact:website", "url"),
		Phone:      firstTag(el.Tags, "phone", "contact:phone"),
		Email:      firstTag(el.Tags, "email", "contact:email"),
		Address:    overpassAddress(el.Tags),
		Lat:        lat,
		Lng:        lng,
	}, true
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}

func overpassAddress(tags map[string]string) string {
	var parts []string
	if street := tags["addr:street"]; street != "" {
		if num := tags["addr:housenumber"]; num != "" {
			parts = append(parts, street+" "+num)
		} else {
			parts = append(parts, street)
		}
	}
	if zip := tags["addr:postcode"]; zip != "" {
		parts = append(parts, zip)
	}
	if city := tags["addr:city"]; city != "" {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
}
