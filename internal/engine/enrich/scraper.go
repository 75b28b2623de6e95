// Package enrich fetches contact details from a discovered business's own
// website by probing a fixed list of likely contact pages.
package enrich

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// contactPaths are probed in order; the root page last since it is the
// least likely to carry contact details.
var contactPaths = []string{
	"/contact",
	"/contact-us",
	"/kontakt",
	"/impressum",
	"/about",
	"/",
}

const defaultScrapeTimeout = 12 * time.Second

// Scraper probes well-known contact-page paths of a company site and
// extracts the first email/phone/owner match. Safe for concurrent use.
type Scraper struct {
	http *http.Client
}

func NewScraper(timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = defaultScrapeTimeout
	}
	return &Scraper{http: newClient(timeout)}
}

// Scrape probes the site's candidate contact pages, including a www. host
// variant, and returns the first non-empty extraction. ok is false when no
// page yielded anything, which callers treat as "keep the place as is".
func (s *Scraper) Scrape(ctx context.Context, website string) (Contact, bool) {
	for _, base := range hostVariants(website) {
		for _, path := range contactPaths {
			select {
			case <-ctx.Done():
				return Contact{}, false
			default:
			}

			body, fetched := fetch(ctx, s.http, base+path)
			if !fetched {
				continue
			}
			if c := extractContact(body); !c.Empty() {
				return c, true
			}
		}
	}
	return Contact{}, false
}

// hostVariants normalizes a raw website value to probe-ready base URLs.
// A bare-host input also gets a www. variant since many sites only resolve
// one of the two.
func hostVariants(website string) []string {
	raw := strings.TrimSpace(website)
	if raw == "" {
		return nil
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}

	host := strings.ToLower(u.Host)
	base := u.Scheme + "://" + host

	if strings.HasPrefix(host, "www.") {
		return []string{base, u.Scheme + "://" + strings.TrimPrefix(host, "www.")}
	}
	return []string{base, u.Scheme + "://www." + host}
}
