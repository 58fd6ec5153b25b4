// Package transcript provides the optional correction stage applied to final
// recognition results before they are committed to the transcript.
//
// Only final text is ever corrected. Interim text is transient display-only
// state and is shown exactly as the provider produced it — correcting text
// that may be revised a moment later would make the display jitter.
package transcript

import (
	"strings"
	"unicode"

	"github.com/carevoice/carevoice/internal/transcript/phonetic"
)

// Corrector rewrites words in a final transcript fragment. Implementations
// must be safe for concurrent use.
type Corrector interface {
	// Correct returns text with misrecognised words replaced. It must be
	// deterministic and must return text unchanged when nothing matches.
	Correct(text string) string
}

// VocabularyCorrector corrects words against a configured vocabulary using
// phonetic matching. It implements [Corrector] and is safe for concurrent
// use — the underlying matcher is read-only after construction.
type VocabularyCorrector struct {
	matcher *phonetic.Matcher
}

// Compile-time assertion that VocabularyCorrector satisfies Corrector.
var _ Corrector = (*VocabularyCorrector)(nil)

// NewVocabularyCorrector builds a corrector over vocabulary. Matcher options
// are forwarded to [phonetic.New].
func NewVocabularyCorrector(vocabulary []string, opts ...phonetic.Option) *VocabularyCorrector {
	return &VocabularyCorrector{matcher: phonetic.New(vocabulary, opts...)}
}

// Correct tokenises text on whitespace and replaces each word that matches a
// vocabulary entry. Leading and trailing punctuation on a token is preserved
// around the replacement ("lisinopril." stays terminated). Spacing collapses
// to single spaces; recognition providers do not emit meaningful runs of
// whitespace.
func (c *VocabularyCorrector) Correct(text string) string {
	if c.matcher.Empty() || strings.TrimSpace(text) == "" {
		return text
	}

	fields := strings.Fields(text)
	changed := false
	for i, tok := range fields {
		prefix, core, suffix := splitPunct(tok)
		if core == "" {
			continue
		}
		if replacement, _, ok := c.matcher.Match(core); ok {
			fields[i] = prefix + replacement + suffix
			changed = true
		}
	}
	if !changed {
		return text
	}
	return strings.Join(fields, " ")
}

// splitPunct splits a token into leading punctuation, the word core, and
// trailing punctuation.
func splitPunct(tok string) (prefix, core, suffix string) {
	runes := []rune(tok)
	start, end := 0, len(runes)
	for start < end && !unicode.IsLetter(runes[start]) && !unicode.IsDigit(runes[start]) {
		start++
	}
	for end > start && !unicode.IsLetter(runes[end-1]) && !unicode.IsDigit(runes[end-1]) {
		end--
	}
	return string(runes[:start]), string(runes[start:end]), string(runes[end:])
}
