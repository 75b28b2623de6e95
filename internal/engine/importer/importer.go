// Package importer drives the discovery loop: tiles times filter groups
// against a region-search provider, paced by the throttle controller,
// deduplicated, optionally enriched from company websites, and handed to
// the result sink.
package importer

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rendis/leadtap/internal/engine/dedupe"
	"github.com/rendis/leadtap/internal/engine/enrich"
	"github.com/rendis/leadtap/internal/engine/source"
	"github.com/rendis/leadtap/internal/engine/throttle"
	"github.com/rendis/leadtap/internal/model"
)

const (
	defaultEnrichWorkers    = 4
	defaultProgressInterval = 10 * time.Second
)

// Enricher scrapes contact details from a place's website.
type Enricher interface {
	Scrape(ctx context.Context, website string) (enrich.Contact, bool)
}

// Sink receives the final deduplicated, enriched places.
type Sink interface {
	Add(place model.Place) error
}

// Config assembles one discovery run. Source, Tiles and FilterGroups are
// required; everything else has workable defaults.
type Config struct {
	Source       source.RegionSearcher
	Tiles        []model.Tile
	FilterGroups []model.FilterGroup
	Sink         Sink

	// PerCallLimit caps results requested per provider call.
	PerCallLimit int
	// CallBudget caps provider calls in this run; 0 means one call per
	// tile x filter-group combination.
	CallBudget int
	// ResultBudget caps admitted places; 0 means unlimited.
	ResultBudget int

	// Enricher, when set, fans out website scrapes over admitted places.
	Enricher      Enricher
	EnrichWorkers int
	// Throttle defaults to a cold-start controller.
	Throttle *throttle.Controller

	// ProgressInterval sets how often a PROGRESS line is logged while the
	// run is live; 0 means every 10 seconds.
	ProgressInterval time.Duration

	Logger *log.Logger
}

// runStats mirrors the Report counters with atomics so the progress
// reporter can read them while the search loop is still mutating them.
type runStats struct {
	calls      atomic.Int64
	admitted   atomic.Int64
	rateLimits atomic.Int64
}

// Report summarizes a run. It is returned even when the run stops early on
// a budget or cancellation; stopping early is a normal outcome.
type Report struct {
	Admitted   int
	CallsMade  int
	RateLimits int
	Enriched   int
	FinalDelay time.Duration
}

// Run executes the discovery loop. Iteration order is filter groups outer,
// tiles inner, both in input order; callers may rely on this for
// reproducibility.
//
// Per-run state (throttle delay, dedup seen-set) lives entirely inside this
// call, so concurrent runs never share backoff or admission state.
func (cfg Config) Run(ctx context.Context) (Report, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ctrl := cfg.Throttle
	if ctrl == nil {
		ctrl = throttle.New()
	}
	groups := cfg.FilterGroups
	if len(groups) == 0 {
		groups = []model.FilterGroup{nil}
	}

	callBudget := cfg.CallBudget
	if callBudget <= 0 {
		callBudget = len(groups) * len(cfg.Tiles)
	}

	seen := dedupe.NewSet()
	var admitted []model.Place
	report := Report{}

	start := time.Now()
	defer func() {
		logger.Printf("RUN_DONE calls=%d admitted=%d rate_limits=%d enriched=%d final_delay=%s elapsed=%s",
			report.CallsMade, report.Admitted, report.RateLimits, report.Enriched,
			report.FinalDelay, time.Since(start).Truncate(time.Millisecond))
	}()

	interval := cfg.ProgressInterval
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	var live runStats
	progressDone := make(chan struct{})
	progressStopped := make(chan struct{})
	defer func() {
		close(progressDone)
		<-progressStopped
	}()
	go func() {
		defer close(progressStopped)
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				logger.Printf("PROGRESS calls=%d admitted=%d rate_limits=%d elapsed=%s",
					live.calls.Load(), live.admitted.Load(), live.rateLimits.Load(),
					time.Since(start).Truncate(time.Second))
			case <-progressDone:
				return
			}
		}
	}()

search:
	for _, group := range groups {
		for _, tile := range cfg.Tiles {
			if report.CallsMade >= callBudget {
				logger.Printf("BUDGET calls=%d reached, stopping", report.CallsMade)
				break search
			}
			if cfg.ResultBudget > 0 && report.Admitted >= cfg.ResultBudget {
				logger.Printf("BUDGET results=%d reached, stopping", report.Admitted)
				break search
			}

			if err := ctrl.Wait(ctx); err != nil {
				report.FinalDelay = ctrl.Delay()
				return report, err
			}

			res := cfg.Source.SearchByRegion(ctx, tile, group, cfg.PerCallLimit)
			report.CallsMade++
			live.calls.Add(1)
			ctrl.Observe(res.RateLimited, len(res.Places))

			if res.RateLimited {
				report.RateLimits++
				live.rateLimits.Add(1)
				logger.Printf("RATE_LIMIT tile=%d,%d delay=%s", tile.Row, tile.Col, ctrl.Delay())
			}

			for _, p := range res.Places {
				if !seen.Admit(p) {
					continue
				}
				admitted = append(admitted, p)
				report.Admitted++
				live.admitted.Add(1)
				if cfg.ResultBudget > 0 && report.Admitted >= cfg.ResultBudget {
					break
				}
			}
		}
	}
	report.FinalDelay = ctrl.Delay()

	if cfg.Enricher != nil {
		report.Enriched = cfg.enrichAll(ctx, admitted, logger)
	}

	if cfg.Sink != nil {
		for _, p := range admitted {
			if err := cfg.Sink.Add(p); err != nil {
				logger.Printf("SINK_ERROR place=%q err=%v", p.Name, err)
			}
		}
	}

	return report, nil
}

// enrichAll scrapes websites of admitted places under a fixed worker pool.
// Workers claim the next unprocessed index, so each slice slot is written
// by exactly one goroutine and output order stays stable regardless of
// completion order. Per-place failures leave the place untouched.
func (cfg Config) enrichAll(ctx context.Context, places []model.Place, logger *log.Logger) int {
	workers := cfg.EnrichWorkers
	if workers <= 0 {
		workers = defaultEnrichWorkers
	}
	if workers > len(places) {
		workers = len(places)
	}
	if workers == 0 {
		return 0
	}

	var next atomic.Int64
	var enriched atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= len(places) {
					return
				}
				select {
				case <-ctx.Done():
					return
				default:
				}

				p := &places[i]
				if p.Website == "" {
					continue
				}
				contact, ok := cfg.Enricher.Scrape(ctx, p.Website)
				if !ok {
					continue
				}
				p.Merge(model.Place{Email: contact.Email, Phone: contact.Phone})
				enriched.Add(1)
			}
		}()
	}
	wg.Wait()

	n := int(enriched.Load())
	logger.Printf("ENRICH done=%d/%d", n, len(places))
	return n
}
