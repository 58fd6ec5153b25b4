// Package phonetic implements vocabulary matching using Double Metaphone
// phonetic encoding combined with Jaro-Winkler string similarity for ranked
// candidate selection.
//
// The algorithm proceeds in two stages:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     the spoken word and for each vocabulary entry. If any code overlaps,
//     the entry becomes a phonetic candidate.
//
//  2. Jaro-Winkler ranking: among phonetic candidates, the entry with the
//     highest Jaro-Winkler similarity (case-insensitive, on the original
//     strings) is selected — provided its score exceeds the configurable
//     phonetic threshold. When no phonetic candidate exists, a secondary
//     pass tests pure Jaro-Winkler similarity against all entries using a
//     stricter fuzzy threshold.
//
// The vocabulary is the set of words elderly speakers most often slur or
// clip — medication names, family member names — supplied from config.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched entry to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the matcher falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher matches spoken words against a fixed vocabulary. It is read-only
// after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64

	vocabulary []string
	codes      []map[string]struct{} // parallel to vocabulary
}

// New returns a [Matcher] over vocabulary with the supplied options. Entries
// that are empty after trimming are dropped. Phonetic codes are precomputed
// once here so Match stays cheap on the recognition hot path.
func New(vocabulary []string, opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	for _, entry := range vocabulary {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		m.vocabulary = append(m.vocabulary, entry)
		m.codes = append(m.codes, wordCodes(strings.ToLower(entry)))
	}
	return m
}

// Empty reports whether the matcher has no vocabulary to match against.
func (m *Matcher) Empty() bool { return len(m.vocabulary) == 0 }

// Match attempts to find the vocabulary entry most phonetically similar to
// word. When matched is false, corrected equals word unchanged and score
// is 0. Exact matches (case-insensitive) are returned as-is without scoring.
func (m *Matcher) Match(word string) (corrected string, score float64, matched bool) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" || len(m.vocabulary) == 0 {
		return word, 0, false
	}

	inputCodes := wordCodes(w)

	type candidate struct {
		entry    string
		score    float64
		phonetic bool
	}
	var best candidate

	for i, entry := range m.vocabulary {
		entryLower := strings.ToLower(entry)
		if entryLower == w {
			// Already correct; nothing to do.
			return word, 1, false
		}

		jw := matchr.JaroWinkler(w, entryLower, false)

		if codesOverlap(inputCodes, m.codes[i]) {
			if jw >= m.phoneticThreshold && (!best.phonetic || jw > best.score) {
				best = candidate{entry: entry, score: jw, phonetic: true}
			}
		} else if !best.phonetic && jw >= m.fuzzyThreshold && jw > best.score {
			best = candidate{entry: entry, score: jw}
		}
	}

	if best.entry != "" {
		return best.entry, best.score, true
	}
	return word, 0, false
}

// wordCodes returns the set of Double Metaphone codes for a word. Empty codes
// (produced when the word is too short or has no consonants) are excluded.
func wordCodes(word string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
