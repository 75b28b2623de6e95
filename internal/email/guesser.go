// Package email generates and ranks candidate contact addresses from
// partial identity information: a person's name, a company name and a
// domain.
package email

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Candidate is an unverified guess at a contact address.
type Candidate struct {
	LocalPart string
	Domain    string
	Pattern   string
	Prior     int
}

func (c Candidate) Address() string {
	return c.LocalPart + "@" + c.Domain
}

// Name holds the split name parts used for pattern generation. Either part
// may be empty; patterns requiring a missing part are skipped.
type Name struct {
	First string
	Last  string
}

// ParseName splits a free-form full name into first and last. Middle parts
// fold into the last name ("Anna Maria Silva" -> first "anna",
// last "maria-silva" after slugging).
func ParseName(full string) Name {
	fields := strings.Fields(strings.TrimSpace(full))
	switch len(fields) {
	case 0:
		return Name{}
	case 1:
		return Name{First: fields[0]}
	default:
		return Name{First: fields[0], Last: strings.Join(fields[1:], " ")}
	}
}

// pattern describes one naming convention with its empirical prior. Priors
// are hard-coded from observed real-world frequency of each convention.
type pattern struct {
	label string
	prior int
	// build returns the local part, or "" when required parts are missing.
	build func(first, last, company string) string
}

var patterns = []pattern{
	{"first.last", 45, func(f, l, _ string) string { return joined(f, ".", l) }},
	{"firstlast", 30, func(f, l, _ string) string { return joined(f, "", l) }},
	{"f.last", 25, func(f, l, _ string) string { return joined(initial(f), ".", l) }},
	{"flast", 20, func(f, l, _ string) string { return joined(initial(f), "", l) }},
	{"first_last", 18, func(f, l, _ string) string { return joined(f, "_", l) }},
	{"first", 15, func(f, _, _ string) string { return f }},
	{"first.l", 12, func(f, l, _ string) string { return joined(f, ".", initial(l)) }},
	{"last.first", 10, func(f, l, _ string) string { return joined(l, ".", f) }},
	{"last", 8, func(_, l, _ string) string { return l }},
	{"company", 5, func(_, _, c string) string { return c }},
	{"role:info", 18, func(_, _, _ string) string { return "info" }},
	{"role:kontakt", 14, func(_, _, _ string) string { return "kontakt" }},
	{"role:contact", 12, func(_, _, _ string) string { return "contact" }},
	{"role:office", 10, func(_, _, _ string) string { return "office" }},
	{"role:hello", 8, func(_, _, _ string) string { return "hello" }},
	{"role:mail", 6, func(_, _, _ string) string { return "mail" }},
}

// Guess produces candidate addresses for a name at a domain, ordered by
// descending prior, deduplicated by address and truncated to limit. An
// input whose domain cannot be normalized yields an empty result.
func Guess(name Name, company, domain string, limit int) []Candidate {
	dom, err := NormalizeDomain(domain)
	if err != nil {
		return nil
	}

	first := Slug(name.First, "")
	last := Slug(name.Last, "-")
	comp := Slug(company, "")

	seen := make(map[string]struct{})
	var cands []Candidate
	for _, p := range patterns {
		local := sanitizeLocal(p.build(first, last, comp))
		if local == "" {
			continue
		}
		addr := local + "@" + dom
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		cands = append(cands, Candidate{
			LocalPart: local,
			Domain:    dom,
			Pattern:   p.label,
			Prior:     p.prior,
		})
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Prior > cands[j].Prior })
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	return cands
}

// NormalizeDomain turns a raw website or domain value into a bare ASCII
// domain: scheme, path and www. prefix stripped, IDN transcoded to
// punycode. Inputs without a dot are rejected.
func NormalizeDomain(input string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(input))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.Index(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	if i := strings.Index(d, ":"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	d = strings.Trim(d, ".")

	if d == "" || !strings.Contains(d, ".") {
		return "", fmt.Errorf("no usable domain in %q", input)
	}

	ascii, err := idna.Lookup.ToASCII(d)
	if err != nil {
		return "", fmt.Errorf("domain %q: %w", d, err)
	}
	return ascii, nil
}

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// germanReplacer transliterates umlauts before diacritic folding so that
// "Müller" becomes "mueller" rather than "muller", matching how German
// addresses are actually written.
var germanReplacer = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"Ä", "ae", "Ö", "oe", "Ü", "ue",
)

var diacriticFolder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Slug lowercases, transliterates, strips remaining diacritics and
// collapses non-alphanumeric runs into sep (which may be empty).
func Slug(s, sep string) string {
	s = germanReplacer.Replace(strings.TrimSpace(s))
	if folded, _, err := transform.String(diacriticFolder, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	s = nonAlnumRun.ReplaceAllString(s, sep)
	return strings.Trim(s, sep)
}

// sanitizeLocal enforces the final local-part alphabet: lowercase
// [a-z0-9._+-] with no leading, trailing or doubled dots.
func sanitizeLocal(local string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '+', r == '-':
			b.WriteRune(r)
		}
	}
	out := b.String()
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	return strings.Trim(out, ".")
}

func initial(s string) string {
	if s == "" {
		return ""
	}
	return s[:1]
}

// joined glues two name parts with a separator, returning "" when either
// part is missing so the pattern is skipped rather than degenerate.
func joined(a, sep, b string) string {
	if a == "" || b == "" {
		return ""
	}
	return a + sep + b
}
