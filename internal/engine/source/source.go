// Package source contains the provider adapters that feed the discovery
// pipeline. Each adapter translates abstract search inputs into one
// provider-specific request and normalizes the raw payload into
// model.Place records.
//
// Failure contract: ordinary emptiness (no results, non-2xx, timeout,
// malformed payload) is never an error, it is an empty result. Rate-limit
// signals are reported through Result.RateLimited so the caller's backoff
// can react. Only caller configuration mistakes, such as a missing
// credential, surface as errors.
package source

import (
	"context"
	"fmt"

	"github.com/rendis/leadtap/internal/model"
)

// Result is the outcome of a single region search call.
type Result struct {
	Places      []model.Place
	RateLimited bool
}

// RegionSearcher searches a bounded area for places matching a filter group.
type RegionSearcher interface {
	SearchByRegion(ctx context.Context, tile model.Tile, filters model.FilterGroup, limit int) Result
}

// TextSearcher resolves a free-text business query to places.
type TextSearcher interface {
	SearchByText(ctx context.Context, query string, maxResults int) []model.Place
}

// DetailsFetcher fetches the enriched record behind a stable provider ref.
type DetailsFetcher interface {
	FetchDetails(ctx context.Context, ref string) (model.Place, bool)
}

// CredentialError reports a missing or unusable provider credential. It is
// raised at adapter construction so a misconfigured run fails before the
// first network call.
type CredentialError struct {
	Provider string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s: missing required credential", e.Provider)
}
