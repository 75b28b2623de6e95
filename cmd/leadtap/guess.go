package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rendis/leadtap/internal/email"
)

func runGuess(args []string) error {
	var name, company, domain string
	var limit int
	var verify bool

	fs := flag.NewFlagSet("guess", flag.ExitOnError)
	fs.StringVar(&name, "name", "", "Contact full name, e.g. \"Max Müller\"")
	fs.StringVar(&company, "company", "", "Company name (optional)")
	fs.StringVar(&domain, "domain", "", "Company domain or website URL (required)")
	fs.IntVar(&limit, "limit", 10, "Max candidates")
	fs.BoolVar(&verify, "verify", true, "Check MX and disposable-domain signals")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: leadtap guess [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  leadtap guess -name \"Max Müller\" -domain bäckerei-müller.de\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if domain == "" {
		return fmt.Errorf("-domain is required")
	}

	cands := email.Guess(email.ParseName(name), company, domain, limit)
	if len(cands) == 0 {
		return fmt.Errorf("no candidates could be generated for %q", domain)
	}

	if !verify {
		for _, c := range cands {
			fmt.Printf("%-40s %-12s prior=%d\n", c.Address(), c.Pattern, c.Prior)
		}
		return nil
	}

	ctx := context.Background()
	verifier := email.NewVerifier(email.VerifierConfig{})

	mx := verifier.HasMX(ctx, cands[0].Domain)
	ranked := email.Rank(cands, mx, func(c email.Candidate) bool {
		return verifier.IsDisposable(ctx, c.Address())
	})

	for _, r := range ranked {
		flags := ""
		if !r.MXPresent {
			flags += " no-mx"
		}
		if r.Disposable {
			flags += " disposable"
		}
		fmt.Printf("%-40s %-12s score=%d%s\n", r.Address(), r.Pattern, r.FinalScore, flags)
	}

	if best, ok := email.Best(ranked); ok {
		fmt.Printf("\nbest: %s\n", best.Address())
	}
	return nil
}
