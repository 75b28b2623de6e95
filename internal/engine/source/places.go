package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/rendis/leadtap/internal/model"
)

const (
	defaultPlacesURL     = "https://maps.googleapis.com/maps/api/place"
	defaultPlacesTimeout = 10 * time.Second

	// The provider rejects a continuation token issued moments ago; a short
	// mandatory pause is required before the follow-up page request.
	defaultPageDelay = 2 * time.Second

	placesPageSize = 20
)

// PlacesConfig configures the free-text business search adapter.
type PlacesConfig struct {
	APIKey    string
	Endpoint  string        // defaults to the Google Places REST base URL
	Timeout   time.Duration // per-call HTTP timeout
	PageDelay time.Duration // wait before requesting a continuation page
}

// Places implements free-text search plus details lookup against a
// Places-style REST provider. Records carry a stable place_id usable as
// the dedup ref across queries.
type Places struct {
	key       string
	endpoint  string
	pageDelay time.Duration
	http      *http.Client
}

// NewPlaces fails fast with a CredentialError when no API key is supplied;
// that is a caller configuration mistake no retry can fix.
func NewPlaces(cfg PlacesConfig) (*Places, error) {
	if cfg.APIKey == "" {
		return nil, &CredentialError{Provider: "places"}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultPlacesURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPlacesTimeout
	}
	pageDelay := cfg.PageDelay
	if pageDelay <= 0 {
		pageDelay = defaultPageDelay
	}
	return &Places{
		key:       cfg.APIKey,
		endpoint:  endpoint,
		pageDelay: pageDelay,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

type placesSearchResponse struct {
	Results       []placeResult `json:"results"`
	NextPageToken string        `json:"next_page_token"`
	Status        string        `json:"status"`
}

type placesDetailsResponse struct {
	Result placeResult `json:"result"`
	Status string      `json:"status"`
}

type placeResult struct {
	PlaceID          string         `json:"place_id"`
	Name             string         `json:"name"`
	FormattedAddress string         `json:"formatted_address"`
	Vicinity         string         `json:"vicinity"`
	PhoneNumber      string         `json:"formatted_phone_number"`
	Website          string         `json:"website"`
	Rating           float64        `json:"rating"`
	UserRatingsTotal int            `json:"user_ratings_total"`
	Geometry         placesGeometry `json:"geometry"`
}

type placesGeometry struct {
	Location placesLocation `json:"location"`
}

type placesLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SearchByText runs a free-text search, following continuation tokens until
// maxResults places are collected or pages run out. Failures mid-pagination
// return whatever was collected so far.
func (p *Places) SearchByText(ctx context.Context, query string, maxResults int) []model.Place {
	if maxResults <= 0 {
		maxResults = placesPageSize
	}

	var places []model.Place
	token := ""
	for len(places) < maxResults {
		params := url.Values{"key": {p.key}}
		if token == "" {
			params.Set("query", query)
		} else {
			params.Set("pagetoken", token)
		}

		var payload placesSearchResponse
		if !p.getJSON(ctx, p.endpoint+"/textsearch/json?"+params.Encode(), &payload) {
			break
		}

		for _, r := range payload.Results {
			place, ok := normalizePlaceResult(r)
			if !ok {
				continue
			}
			places = append(places, place)
			if len(places) >= maxResults {
				return places
			}
		}

		token = payload.NextPageToken
		if token == "" {
			break
		}
		select {
		case <-ctx.Done():
			return places
		case <-time.After(p.pageDelay):
		}
	}
	return places
}

// FetchDetails looks up the contact fields behind a place_id. The second
// return value is false when the provider had nothing usable.
func (p *Places) FetchDetails(ctx context.Context, ref string) (model.Place, bool) {
	params := url.Values{
		"key":      {p.key},
		"place_id": {ref},
		"fields":   {"place_id,name,formatted_address,formatted_phone_number,website,rating,user_ratings_total,geometry"},
	}

	var payload placesDetailsResponse
	if !p.getJSON(ctx, p.endpoint+"/details/json?"+params.Encode(), &payload) {
		return model.Place{}, false
	}
	return normalizePlaceResult(payload.Result)
}

func (p *Places) getJSON(ctx context.Context, u string, out any) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	return json.NewDecoder(resp.Body).Decode(out) == nil
}

func normalizePlaceResult(r placeResult) (model.Place, bool) {
	if r.Name == "" {
		return model.Place{}, false
	}
	address := r.FormattedAddress
	if address == "" {
		address = r.Vicinity
	}
	return model.Place{
		SourceName:  "places",
		SourceRef:   r.PlaceID,
		Name:        r.Name,
		Website:     r.Website,
		Phone:       r.PhoneNumber,
		Address:     address,
		Lat:         r.Geometry.Location.Lat,
		Lng:         r.Geometry.Location.Lng,
		Rating:      r.Rating,
		ReviewCount: r.UserRatingsTotal,
	}, true
}
