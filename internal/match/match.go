// Package match resolves raw extracted names against fixed canonical
// reference lists despite OCR noise and phrasing variance.
package match

import (
	"errors"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Per-field thresholds. Institution names come from a constrained, well-known
// list so the bar is stricter; officer and team names are free-form and
// noisier.
const (
	ThresholdInstitution = 70
	ThresholdOfficer     = 60
	ThresholdTeam        = 30
)

var ErrNotFound = errors.New("no reference entry at or above threshold")

// Scorer scores the similarity of two lowercased strings on a 0..100 scale.
type Scorer func(a, b string) int

// PartialRatio is the default scorer: substring-aware, so a name embedded in
// a longer extracted phrase still scores high.
func PartialRatio(a, b string) int { return fuzzy.PartialRatio(a, b) }

// List is an ordered, immutable set of canonical strings loaded once at
// process start.
type List struct {
	entries []string
	folded  []string
}

// NewList trims entries and drops empties; original casing is preserved for
// the canonical values, a lowercased copy is kept for scoring.
func NewList(entries []string) *List {
	l := &List{}
	for _, e := range entries {
		t := strings.TrimSpace(e)
		if t == "" {
			continue
		}
		l.entries = append(l.entries, t)
		l.folded = append(l.folded, strings.ToLower(t))
	}
	return l
}

// ParseList builds a List from a semicolon-delimited configuration string.
func ParseList(raw string) *List {
	return NewList(strings.Split(raw, ";"))
}

func (l *List) Len() int          { return len(l.entries) }
func (l *List) Entries() []string { return append([]string(nil), l.entries...) }

type Match struct {
	Canonical string
	Score     int
}

// Resolve scores raw against every list entry and returns the single best
// match when its score is at or above threshold, otherwise ErrNotFound.
// Comparison is case-insensitive; the returned Canonical keeps the list's
// original casing.
func Resolve(raw string, list *List, scorer Scorer, threshold int) (Match, error) {
	q := strings.ToLower(strings.TrimSpace(raw))
	if q == "" || list == nil || len(list.entries) == 0 {
		return Match{}, ErrNotFound
	}
	best := -1
	idx := -1
	for i, cand := range list.folded {
		if s := scorer(q, cand); s > best {
			best, idx = s, i
		}
	}
	if best < threshold {
		return Match{}, ErrNotFound
	}
	return Match{Canonical: list.entries[idx], Score: best}, nil
}
