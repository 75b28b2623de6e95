package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	// .env is optional; real deployments set variables directly
	godotenv.Load()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "scan":
			if err := runScan(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "search":
			if err := runSearch(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "guess":
			if err := runGuess(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "export":
			if err := runExport(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Println("leadtap " + version)
			return
		}
	}

	printUsage()
	os.Exit(2)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `leadtap - geographic B2B lead discovery

Usage:
  leadtap scan [flags]    Run a discovery scan over a region
  leadtap search [flags]  Free-text business search
  leadtap guess [flags]   Guess and rank email addresses for a lead
  leadtap export [flags]  Export a scan database to CSV
  leadtap version         Show version

Run 'leadtap <command> --help' for flags.
`)
}
