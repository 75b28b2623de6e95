package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rendis/leadtap/internal/engine/enrich"
	"github.com/rendis/leadtap/internal/engine/geo"
	"github.com/rendis/leadtap/internal/engine/importer"
	"github.com/rendis/leadtap/internal/engine/source"
	"github.com/rendis/leadtap/internal/engine/storage"
	"github.com/rendis/leadtap/internal/model"
)

func runScan(args []string) error {
	var params model.ScanParams
	var filtersStr, boundaryPath, outputDir string

	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	fs.StringVar(&outputDir, "output", "", "Output directory for project files (required)")
	fs.Float64Var(&params.Bounds.South, "south", 0, "Bounding box south latitude")
	fs.Float64Var(&params.Bounds.West, "west", 0, "Bounding box west longitude")
	fs.Float64Var(&params.Bounds.North, "north", 0, "Bounding box north latitude")
	fs.Float64Var(&params.Bounds.East, "east", 0, "Bounding box east longitude")
	fs.Float64Var(&params.Lat, "lat", 0, "Center latitude")
	fs.Float64Var(&params.Lng, "lng", 0, "Center longitude")
	fs.Float64Var(&params.Radius, "radius", 10, "Search radius in km")
	fs.StringVar(&params.Area, "area", "", "Named area to geocode (e.g. \"Sachsen\")")
	fs.StringVar(&params.Country, "country", "", "Country qualifier for -area")
	fs.StringVar(&filtersStr, "filters", "", "Comma-separated tag predicates, e.g. \"shop=bakery,craft\" (required)")
	fs.IntVar(&params.Rows, "rows", 4, "Grid rows")
	fs.IntVar(&params.Cols, "cols", 4, "Grid columns")
	fs.IntVar(&params.CallBudget, "call-budget", 0, "Max provider calls (default: one per tile)")
	fs.IntVar(&params.ResultBudget, "result-budget", 500, "Max admitted places")
	fs.IntVar(&params.Concurrency, "concurrency", 4, "Enrichment worker count")
	fs.BoolVar(&params.Enrich, "enrich", false, "Scrape websites of found places for contact details")
	fs.StringVar(&boundaryPath, "boundary", "", "GeoJSON polygon to filter tiles against (optional)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: leadtap scan [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  leadtap scan -filters shop=bakery -lat 52.52 -lng 13.40 -radius 8 -output ./projects\n")
		fmt.Fprintf(os.Stderr, "  leadtap scan -filters \"craft=electrician\" -area Sachsen -country Germany -enrich -output ./projects\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if filtersStr == "" {
		return fmt.Errorf("-filters is required")
	}
	if outputDir == "" {
		return fmt.Errorf("-output is required")
	}

	group := model.ParseFilters(filtersStr)
	if len(group) == 0 {
		return fmt.Errorf("no usable predicates in -filters")
	}
	params.FilterGroups = []model.FilterGroup{group}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	ts := time.Now().Format("20060102_150405")
	baseName := fmt.Sprintf("leadtap_%s", ts)
	params.DBPath = filepath.Join(outputDir, baseName+".db")
	logPath := filepath.Join(outputDir, baseName+".log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logFile.Close()
	logger := log.New(logFile, "", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	// Resolve the scan region
	region := params.Bounds
	switch {
	case params.IsCoordMode():
		region = geo.RadiusRegion(params.Lat, params.Lng, params.Radius)
		fmt.Fprintf(os.Stderr, "Mode: coordinate search (%.4f, %.4f, radius=%.1fkm)\n",
			params.Lat, params.Lng, params.Radius)
	case params.Area != "":
		region, err = geo.GeocodeArea(ctx, params.Area, params.Country)
		if err != nil {
			return fmt.Errorf("geocoding area %q: %w", params.Area, err)
		}
		fmt.Fprintf(os.Stderr, "Mode: area search (%s)\n", params.Area)
	case region.Valid():
		fmt.Fprintf(os.Stderr, "Mode: bounding box\n")
	default:
		return fmt.Errorf("either -south/-west/-north/-east, -lat/-lng or -area is required")
	}
	fmt.Fprintf(os.Stderr, "Bounds: [%.2f, %.2f] - [%.2f, %.2f]\n",
		region.South, region.West, region.North, region.East)

	tiles := geo.Tile(region, params.Rows, params.Cols)
	if params.IsCoordMode() {
		tiles = geo.FilterRadius(tiles, params.Lat, params.Lng, params.Radius)
	}
	if boundaryPath != "" {
		poly, err := geo.LoadBoundary(boundaryPath)
		if err != nil {
			return fmt.Errorf("loading boundary: %w", err)
		}
		before := len(tiles)
		tiles = geo.FilterTiles(tiles, poly)
		fmt.Fprintf(os.Stderr, "Boundary: %d/%d tiles kept\n", len(tiles), before)
	}
	if len(tiles) == 0 {
		return fmt.Errorf("no tiles to scan")
	}
	fmt.Fprintf(os.Stderr, "Grid: %dx%d = %d tiles\n", params.Rows, params.Cols, len(tiles))

	store, err := storage.NewStore(params.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	cfg := importer.Config{
		Source:       source.NewOverpass(source.OverpassConfig{Endpoint: os.Getenv("OVERPASS_URL")}),
		Tiles:        tiles,
		FilterGroups: params.FilterGroups,
		Sink:         store,
		PerCallLimit: 100,
		CallBudget:   params.CallBudget,
		ResultBudget: params.ResultBudget,
		Logger:       logger,
	}
	if params.Enrich {
		cfg.Enricher = enrich.NewScraper(0)
		cfg.EnrichWorkers = params.Concurrency
	}

	logger.Printf("=== Session start: filters=%q tiles=%d call_budget=%d result_budget=%d enrich=%v ===",
		filtersStr, len(tiles), cfg.CallBudget, cfg.ResultBudget, params.Enrich)
	fmt.Fprintf(os.Stderr, "Log: %s\n", logPath)

	startTime := time.Now()
	report, err := cfg.Run(ctx)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("scanning: %w", err)
	}

	total, _ := store.Count()
	duration := time.Since(startTime).Truncate(time.Second)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  LeadTap Complete\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Filters:     %s\n", filtersStr)
	fmt.Fprintf(os.Stderr, "  Calls:       %d\n", report.CallsMade)
	fmt.Fprintf(os.Stderr, "  Admitted:    %d\n", report.Admitted)
	fmt.Fprintf(os.Stderr, "  Enriched:    %d\n", report.Enriched)
	fmt.Fprintf(os.Stderr, "  Rate limits: %d\n", report.RateLimits)
	fmt.Fprintf(os.Stderr, "  Stored:      %d (unique)\n", total)
	fmt.Fprintf(os.Stderr, "  Duration:    %s\n", duration)
	fmt.Fprintf(os.Stderr, "  Database:    %s\n", params.DBPath)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")

	return nil
}
