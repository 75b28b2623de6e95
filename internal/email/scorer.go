package email

import "sort"

// Scoring weights. A missing MX record is a much stronger negative signal
// than an unusual naming pattern, and a disposable domain should almost
// never win even when it ranks first by pattern alone.
const (
	mxPresentBonus    = 5
	mxMissingPenalty  = -20
	disposablePenalty = -50
)

// Ranked is a candidate enriched with verification signals and its final
// score.
type Ranked struct {
	Candidate
	MXPresent  bool
	Disposable bool
	FinalScore int
}

// Rank combines each candidate's pattern prior with the domain-level MX
// signal and its disposable flag, and sorts descending by final score.
// mxPresent is computed once per domain, not per candidate.
func Rank(cands []Candidate, mxPresent bool, disposable func(Candidate) bool) []Ranked {
	ranked := make([]Ranked, 0, len(cands))
	for _, c := range cands {
		r := Ranked{Candidate: c, MXPresent: mxPresent}
		if disposable != nil {
			r.Disposable = disposable(c)
		}

		r.FinalScore = c.Prior
		if mxPresent {
			r.FinalScore += mxPresentBonus
		} else {
			r.FinalScore += mxMissingPenalty
		}
		if r.Disposable {
			r.FinalScore += disposablePenalty
		}
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	return ranked
}

// Best picks the top-ranked non-disposable candidate, falling back to the
// top candidate overall when every one is disposable. ok is false for an
// empty input.
func Best(ranked []Ranked) (Ranked, bool) {
	if len(ranked) == 0 {
		return Ranked{}, false
	}
	for _, r := range ranked {
		if !r.Disposable {
			return r, true
		}
	}
	return ranked[0], true
}
