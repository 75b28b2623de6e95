package email

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"
)

const disposableAPIDefault = "https://open.kickbox.com/v1/disposable/"

// domains that show up constantly in scraped contact data and are never
// worth writing to
var localBlocklist = map[string]struct{}{
	"mailinator.com":    {},
	"guerrillamail.com": {},
	"10minutemail.com":  {},
	"tempmail.com":      {},
	"temp-mail.org":     {},
	"trashmail.com":     {},
	"yopmail.com":       {},
	"sharklasers.com":   {},
	"getnada.com":       {},
	"dispostable.com":   {},
}

// mxResolver is the slice of net.Resolver the verifier needs; *net.Resolver
// satisfies it.
type mxResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Verifier provides the two domain-level signals the scorer consumes:
// MX presence and disposable-domain membership.
type Verifier struct {
	resolver      mxResolver
	http          *http.Client
	disposableAPI string
}

// VerifierConfig tunes the external lookups; zero values use the defaults.
type VerifierConfig struct {
	Resolver      mxResolver
	Timeout       time.Duration
	DisposableAPI string
}

func NewVerifier(cfg VerifierConfig) *Verifier {
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	api := cfg.DisposableAPI
	if api == "" {
		api = disposableAPIDefault
	}
	return &Verifier{
		resolver:      resolver,
		http:          &http.Client{Timeout: timeout},
		disposableAPI: api,
	}
}

// HasMX reports whether the domain publishes at least one MX record.
// Checked once per domain; the result applies to every candidate at that
// domain.
func (v *Verifier) HasMX(ctx context.Context, domain string) bool {
	mx, err := v.resolver.LookupMX(ctx, domain)
	return err == nil && len(mx) > 0
}

// IsDisposable classifies an address as belonging to a throwaway-email
// provider: the local blocklist is consulted first, then the external
// classifier. Any lookup failure means "not disposable" — rejecting a
// legitimate address over a transient network error is the worse mistake.
func (v *Verifier) IsDisposable(ctx context.Context, address string) bool {
	domain := addressDomain(address)
	if domain == "" {
		return false
	}
	if _, blocked := localBlocklist[domain]; blocked {
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.disposableAPI+domain, nil)
	if err != nil {
		return false
	}
	resp, err := v.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var payload struct {
		Disposable bool `json:"disposable"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false
	}
	return payload.Disposable
}

func addressDomain(address string) string {
	_, domain, ok := strings.Cut(address, "@")
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(domain))
}
