package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/leadtap/internal/engine/storage"
)

func runExport(args []string) error {
	var dbPath, outputPath, format string

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "Path to .db file (required)")
	fs.StringVar(&outputPath, "output", "", "Output file path (default: same dir as db)")
	fs.StringVar(&format, "format", "csv", "Export format: csv")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: leadtap export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  leadtap export -db ./projects/leadtap_20260830.db\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if dbPath == "" {
		return fmt.Errorf("-db is required")
	}
	if format != "csv" {
		return fmt.Errorf("unsupported format: %s (only csv supported)", format)
	}

	if outputPath == "" {
		dir := filepath.Dir(dbPath)
		base := strings.TrimSuffix(filepath.Base(dbPath), ".db")
		outputPath = filepath.Join(dir, base+".csv")
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening db: %w", err)
	}
	defer store.Close()

	places, err := store.ListPlaces()
	if err != nil {
		return fmt.Errorf("loading places: %w", err)
	}
	if len(places) == 0 {
		return fmt.Errorf("no places found in database")
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{
		"name", "source", "source_ref", "address",
		"lat", "lng", "website", "phone", "email",
		"rating", "review_count",
	})

	for _, p := range places {
		w.Write([]string{
			p.Name,
			p.SourceName,
			p.SourceRef,
			p.Address,
			fmt.Sprintf("%.6f", p.Lat),
			fmt.Sprintf("%.6f", p.Lng),
			p.Website,
			p.Phone,
			p.Email,
			fmt.Sprintf("%.1f", p.Rating),
			fmt.Sprintf("%d", p.ReviewCount),
		})
	}

	fmt.Fprintf(os.Stderr, "Exported %d places to %s\n", len(places), outputPath)
	return nil
}
