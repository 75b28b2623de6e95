package importer

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/leadtap/internal/engine/enrich"
	"github.com/rendis/leadtap/internal/engine/geo"
	"github.com/rendis/leadtap/internal/engine/source"
	"github.com/rendis/leadtap/internal/engine/throttle"
	"github.com/rendis/leadtap/internal/model"
)

// fakeSource serves canned results per tile and records call order.
type fakeSource struct {
	mu      sync.Mutex
	results map[string]source.Result
	calls   []string
}

func (f *fakeSource) SearchByRegion(_ context.Context, tile model.Tile, _ model.FilterGroup, _ int) source.Result {
	key := fmt.Sprintf("%d,%d", tile.Row, tile.Col)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	return f.results[key]
}

type fakeSink struct {
	mu     sync.Mutex
	places []model.Place
}

func (f *fakeSink) Add(p model.Place) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.places = append(f.places, p)
	return nil
}

type fakeEnricher struct {
	mu       sync.Mutex
	contacts map[string]enrich.Contact
	scraped  []string
}

func (f *fakeEnricher) Scrape(_ context.Context, website string) (enrich.Contact, bool) {
	f.mu.Lock()
	f.scraped = append(f.scraped, website)
	f.mu.Unlock()
	c, ok := f.contacts[website]
	return c, ok
}

func fastThrottle() *throttle.Controller {
	return throttle.NewTuned(time.Millisecond, time.Millisecond, 10*time.Millisecond)
}

func place(ref, name string) model.Place {
	return model.Place{SourceName: "overpass", SourceRef: ref, Name: name}
}

func TestRunScenarioFourTilesWithDuplicate(t *testing.T) {
	tiles := geo.Tile(model.Region{South: 48, West: 10, North: 52, East: 14}, 2, 2)
	require.Len(t, tiles, 4)

	src := &fakeSource{results: map[string]source.Result{
		"0,0": {Places: []model.Place{
			place("node/1", "Bakery One"),
			place("node/2", "Bakery Two"),
			place("node/1", "Bakery One Again"), // duplicate ref
		}},
	}}
	sink := &fakeSink{}

	cfg := Config{
		Source:       src,
		Tiles:        tiles,
		FilterGroups: []model.FilterGroup{{{Key: "shop", Value: "bakery"}}},
		Sink:         sink,
		Throttle:     fastThrottle(),
	}

	report, err := cfg.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.CallsMade, "one call per tile")
	assert.Equal(t, 2, report.Admitted, "duplicate ref suppressed")
	assert.Equal(t, 0, report.RateLimits)
	assert.Len(t, sink.places, 2)
	assert.Equal(t, []string{"0,0", "0,1", "1,0", "1,1"}, src.calls, "tiles visited in row-major order")
	// three empty tiles grew the delay past its start
	assert.Greater(t, report.FinalDelay, time.Millisecond)
}

func TestRunCallBudgetStopsEarly(t *testing.T) {
	tiles := geo.Tile(model.Region{South: 0, West: 0, North: 4, East: 4}, 4, 4)
	src := &fakeSource{results: map[string]source.Result{}}

	cfg := Config{
		Source:     src,
		Tiles:      tiles,
		CallBudget: 3,
		Throttle:   fastThrottle(),
	}

	report, err := cfg.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.CallsMade)
}

func TestRunResultBudgetStopsMidBatch(t *testing.T) {
	tiles := geo.Tile(model.Region{South: 0, West: 0, North: 2, East: 2}, 1, 2)
	src := &fakeSource{results: map[string]source.Result{
		"0,0": {Places: []model.Place{
			place("a", "A"), place("b", "B"), place("c", "C"), place("d", "D"),
		}},
		"0,1": {Places: []model.Place{place("e", "E")}},
	}}
	sink := &fakeSink{}

	cfg := Config{
		Source:       src,
		Tiles:        tiles,
		Sink:         sink,
		ResultBudget: 3,
		Throttle:     fastThrottle(),
	}

	report, err := cfg.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Admitted, "admission stops mid-batch at the budget")
	assert.Equal(t, 1, report.CallsMade, "the second tile is never queried")
	assert.Len(t, sink.places, 3)
}

func TestRunFilterGroupsOuterTilesInner(t *testing.T) {
	tiles := geo.Tile(model.Region{South: 0, West: 0, North: 1, East: 2}, 1, 2)
	src := &fakeSource{results: map[string]source.Result{}}

	cfg := Config{
		Source: src,
		Tiles:  tiles,
		FilterGroups: []model.FilterGroup{
			{{Key: "shop", Value: "bakery"}},
			{{Key: "craft"}},
		},
		Throttle: fastThrottle(),
	}

	report, err := cfg.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.CallsMade)
	assert.Equal(t, []string{"0,0", "0,1", "0,0", "0,1"}, src.calls,
		"all tiles of one group before the next group")
}

func TestRunRateLimitFeedsThrottle(t *testing.T) {
	tiles := geo.Tile(model.Region{South: 0, West: 0, North: 1, East: 2}, 1, 2)
	src := &fakeSource{results: map[string]source.Result{
		"0,0": {RateLimited: true},
		"0,1": {Places: []model.Place{place("a", "A")}},
	}}

	ctrl := fastThrottle()
	cfg := Config{
		Source:   src,
		Tiles:    tiles,
		Throttle: ctrl,
	}

	report, err := cfg.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.RateLimits)
	assert.Equal(t, 1, report.Admitted)
	assert.Greater(t, report.FinalDelay, time.Millisecond)
}

func TestRunEnrichmentMergesByIndex(t *testing.T) {
	tiles := geo.Tile(model.Region{South: 0, West: 0, North: 1, East: 1}, 1, 1)

	places := []model.Place{
		{SourceRef: "a", SourceName: "overpass", Name: "A", Website: "https://a.example"},
		{SourceRef: "b", SourceName: "overpass", Name: "B"}, // no website, skipped
		{SourceRef: "c", SourceName: "overpass", Name: "C", Website: "https://c.example", Phone: "already-set"},
		{SourceRef: "d", SourceName: "overpass", Name: "D", Website: "https://d.example"},
	}
	src := &fakeSource{results: map[string]source.Result{
		"0,0": {Places: places},
	}}
	enricher := &fakeEnricher{contacts: map[string]enrich.Contact{
		"https://a.example": {Email: "info@a.example", Phone: "111"},
		"https://c.example": {Email: "info@c.example", Phone: "999"},
		// d.example scrape fails
	}}
	sink := &fakeSink{}

	cfg := Config{
		Source:        src,
		Tiles:         tiles,
		Sink:          sink,
		Enricher:      enricher,
		EnrichWorkers: 2,
		Throttle:      fastThrottle(),
	}

	report, err := cfg.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Enriched)
	require.Len(t, sink.places, 4)

	// output order is admission order regardless of scrape completion order
	assert.Equal(t, "A", sink.places[0].Name)
	assert.Equal(t, "info@a.example", sink.places[0].Email)
	assert.Equal(t, "111", sink.places[0].Phone)

	assert.Empty(t, sink.places[1].Email, "website-less place untouched")

	assert.Equal(t, "info@c.example", sink.places[2].Email)
	assert.Equal(t, "already-set", sink.places[2].Phone, "populated field never overwritten")

	assert.Empty(t, sink.places[3].Email, "failed scrape leaves the place at its pre-enrichment state")
	assert.NotContains(t, enricher.scraped, "", "only places with a website are scraped")
}

func TestRunLogsPeriodicProgress(t *testing.T) {
	tiles := geo.Tile(model.Region{South: 0, West: 0, North: 2, East: 2}, 2, 2)
	slow := sourceFunc(func(ctx context.Context, tile model.Tile, _ model.FilterGroup, _ int) source.Result {
		time.Sleep(20 * time.Millisecond)
		return source.Result{Places: []model.Place{place(fmt.Sprintf("%d/%d", tile.Row, tile.Col), "P")}}
	})

	var buf bytes.Buffer
	cfg := Config{
		Source:           slow,
		Tiles:            tiles,
		Throttle:         fastThrottle(),
		ProgressInterval: 5 * time.Millisecond,
		Logger:           log.New(&buf, "", 0),
	}

	report, err := cfg.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.CallsMade)

	out := buf.String()
	assert.Contains(t, out, "PROGRESS calls=", "a slow run must report while still searching")
	assert.Contains(t, out, "rate_limits=0")

	// the reporter stops with the run, so RUN_DONE is the final line
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, lines[len(lines)-1], "RUN_DONE")
}

func TestRunCancellationReturnsPartialReport(t *testing.T) {
	tiles := geo.Tile(model.Region{South: 0, West: 0, North: 4, East: 4}, 4, 4)
	src := &fakeSource{results: map[string]source.Result{}}

	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	blockingSrc := sourceFunc(func(c context.Context, tile model.Tile, g model.FilterGroup, limit int) source.Result {
		callCount++
		if callCount == 2 {
			cancel()
		}
		return src.SearchByRegion(c, tile, g, limit)
	})

	cfg := Config{
		Source:   blockingSrc,
		Tiles:    tiles,
		Throttle: fastThrottle(),
	}

	report, err := cfg.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, report.CallsMade, "partial progress is reported on cancellation")
}

type sourceFunc func(ctx context.Context, tile model.Tile, g model.FilterGroup, limit int) source.Result

func (f sourceFunc) SearchByRegion(ctx context.Context, tile model.Tile, g model.FilterGroup, limit int) source.Result {
	return f(ctx, tile, g, limit)
}
