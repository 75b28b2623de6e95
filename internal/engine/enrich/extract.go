package enrich

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)

	// loose international format: optional +country, digit groups with
	// separators, at least 7 digits total
	phoneRe = regexp.MustCompile(`(?:\+\d{1,3}[\s./-]?)?(?:\(?\d{2,5}\)?[\s./-]?)\d{2,4}(?:[\s./-]?\d{2,4}){1,3}`)

	// "Inhaber: Max Mustermann" / "Owner: Jane Doe" / "Geschäftsführer: ..."
	ownerRe = regexp.MustCompile(`(?i:inhaber(?:in)?|gesch\x{00e4}ftsf\x{00fc}hrer(?:in)?|owner|proprietor|managing director)\s*:?\s*([A-Z\x{00c0}-\x{00dd}][\w\x{00c0}-\x{00ff}.-]+(?:\s+[A-Z\x{00c0}-\x{00dd}][\w\x{00c0}-\x{00ff}.-]+){1,2})`)

	// addresses that are page furniture, not contacts
	ignoredEmailPrefixes = []string{"noreply@", "no-reply@", "donotreply@"}
	ignoredEmailDomains  = []string{"example.com", "sentry.io", "wixpress.com", "domain.com"}
)

// Contact holds whatever a contact page yielded. Zero value means the page
// had nothing usable.
type Contact struct {
	Email string
	Phone string
	Owner string
}

func (c Contact) Empty() bool {
	return c.Email == "" && c.Phone == "" && c.Owner == ""
}

// extractContact pulls the first plausible email, phone and owner name out
// of a page body.
func extractContact(body []byte) Contact {
	text := string(body)

	var c Contact
	for _, match := range emailRe.FindAllString(text, 10) {
		email := strings.ToLower(match)
		if usableEmail(email) {
			c.Email = email
			break
		}
	}

	// mailto: links beat emails found in running text. Index and match on
	// the same lowered string: lowering can change byte offsets.
	lower := strings.ToLower(text)
	if idx := strings.Index(lower, "mailto:"); idx >= 0 {
		if m := emailRe.FindString(lower[idx:]); m != "" && usableEmail(m) {
			c.Email = m
		}
	}

	if m := phoneRe.FindString(text); m != "" && digitCount(m) >= 7 {
		c.Phone = strings.TrimSpace(m)
	}

	if m := ownerRe.FindStringSubmatch(text); len(m) > 1 {
		c.Owner = strings.TrimSpace(m[1])
	}

	return c
}

func usableEmail(email string) bool {
	for _, prefix := range ignoredEmailPrefixes {
		if strings.HasPrefix(email, prefix) {
			return false
		}
	}
	for _, domain := range ignoredEmailDomains {
		if strings.HasSuffix(email, "@"+domain) {
			return false
		}
	}
	// image filenames like logo@2x.png match the email pattern
	for _, ext := range []string{".png", ".jpg", ".svg", ".gif", ".webp"} {
		if strings.HasSuffix(email, ext) {
			return false
		}
	}
	return true
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
