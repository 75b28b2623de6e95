package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rendis/leadtap/internal/engine/source"
	"github.com/rendis/leadtap/internal/engine/storage"
)

func runSearch(args []string) error {
	var query, dbPath string
	var maxResults int
	var details bool

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	fs.StringVar(&query, "q", "", "Free-text business query (required)")
	fs.IntVar(&maxResults, "max", 20, "Max results")
	fs.BoolVar(&details, "details", false, "Fetch contact details per result (one extra call each)")
	fs.StringVar(&dbPath, "db", "", "Append results to this scan database (optional)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: leadtap search [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nRequires PLACES_API_KEY in the environment.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  leadtap search -q \"bakeries in dresden\" -details\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if query == "" {
		return fmt.Errorf("-q is required")
	}

	provider, err := source.NewPlaces(source.PlacesConfig{
		APIKey: os.Getenv("PLACES_API_KEY"),
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	places := provider.SearchByText(ctx, query, maxResults)
	if len(places) == 0 {
		return fmt.Errorf("no results for %q", query)
	}

	if details {
		for i := range places {
			if places[i].SourceRef == "" {
				continue
			}
			if full, ok := provider.FetchDetails(ctx, places[i].SourceRef); ok {
				places[i].Merge(full)
			}
		}
	}

	for _, p := range places {
		line := p.Name
		if p.Address != "" {
			line += " | " + p.Address
		}
		if p.Phone != "" {
			line += " | " + p.Phone
		}
		if p.Website != "" {
			line += " | " + p.Website
		}
		fmt.Println(line)
	}

	if dbPath != "" {
		store, err := storage.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer store.Close()

		n, err := store.InsertBatch(places)
		if err != nil {
			return fmt.Errorf("storing results: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Stored %d new places in %s\n", n, dbPath)
	}

	return nil
}
