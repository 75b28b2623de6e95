// Package dedupe suppresses repeated places within a single discovery run.
// Persistent uniqueness across runs is the storage layer's job; this set
// only guards one run's stream.
package dedupe

import (
	"strings"

	"github.com/rendis/leadtap/internal/model"
)

const addressKeyLen = 32

// Set tracks identity keys seen during one run. It is owned by a single run
// and is not safe for concurrent use.
type Set struct {
	seen map[string]struct{}
}

func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Admit reports whether the place is new to this run, and marks it seen.
// It returns true exactly once per distinct identity key.
func (s *Set) Admit(p model.Place) bool {
	key := Key(p)
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct identities admitted so far.
func (s *Set) Len() int { return len(s.seen) }

// Key derives the identity key for a place. A provider-issued stable ref
// wins; otherwise a composite of name, truncated address and website is
// used so the same business reported by ref-less sources still collapses.
func Key(p model.Place) string {
	if p.SourceRef != "" {
		return "ref:" + p.SourceName + ":" + p.SourceRef
	}

	addr := strings.ToLower(strings.TrimSpace(p.Address))
	if len(addr) > addressKeyLen {
		addr = addr[:addressKeyLen]
	}
	return "cmp:" + strings.ToLower(strings.TrimSpace(p.Name)) +
		"|" + addr +
		"|" + strings.ToLower(strings.TrimSpace(p.Website))
}
