package phonetic

import "testing"

func TestMatchPhoneticallySimilarWords(t *testing.T) {
	t.Parallel()

	m := New([]string{"Metformin", "Lisinopril", "Dorothy"})

	tests := []struct {
		word string
		want string
	}{
		{"metforman", "Metformin"},
		{"lisinoprel", "Lisinopril"},
		{"dorothee", "Dorothy"},
	}
	for _, tt := range tests {
		got, score, matched := m.Match(tt.word)
		if !matched {
			t.Errorf("Match(%q) matched = false, want %q", tt.word, tt.want)
			continue
		}
		if got != tt.want {
			t.Errorf("Match(%q) = %q, want %q", tt.word, got, tt.want)
		}
		if score <= 0 || score > 1 {
			t.Errorf("Match(%q) score = %v, want within (0, 1]", tt.word, score)
		}
	}
}

func TestExactMatchReturnsUnchanged(t *testing.T) {
	t.Parallel()

	m := New([]string{"Metformin"})
	got, score, matched := m.Match("metformin")
	if matched {
		t.Error("Match() matched = true for an already-correct word")
	}
	if got != "metformin" {
		t.Errorf("Match() = %q, want input preserved", got)
	}
	if score != 1 {
		t.Errorf("score = %v, want 1 for exact match", score)
	}
}

func TestNoMatchForUnrelatedWord(t *testing.T) {
	t.Parallel()

	m := New([]string{"Metformin", "Lisinopril"})
	got, _, matched := m.Match("breakfast")
	if matched {
		t.Errorf("Match(%q) matched = true, want false", "breakfast")
	}
	if got != "breakfast" {
		t.Errorf("Match() = %q, want input unchanged", got)
	}
}

func TestEmptyVocabularyAndBlankInput(t *testing.T) {
	t.Parallel()

	empty := New(nil)
	if !empty.Empty() {
		t.Error("Empty() = false for nil vocabulary")
	}
	if _, _, matched := empty.Match("metformin"); matched {
		t.Error("Match() matched = true with empty vocabulary")
	}

	m := New([]string{"  ", "", "Dorothy"})
	if m.Empty() {
		t.Error("Empty() = true; blank entries should be dropped, not counted")
	}
	if _, _, matched := m.Match("   "); matched {
		t.Error("Match(blank) matched = true, want false")
	}
}

func TestStricterThresholdRejectsLooseMatches(t *testing.T) {
	t.Parallel()

	loose := New([]string{"Dorothy"})
	strict := New([]string{"Dorothy"}, WithPhoneticThreshold(0.99))

	if _, _, matched := loose.Match("dorothee"); !matched {
		t.Fatal("default threshold should accept a close phonetic variant")
	}
	if _, _, matched := strict.Match("dorothee"); matched {
		t.Error("threshold 0.99 should reject an inexact variant")
	}
}

func TestBestOfMultipleCandidatesWins(t *testing.T) {
	t.Parallel()

	// Both entries are phonetically plausible; the ranking stage must pick
	// the closer string.
	m := New([]string{"Marta", "Martha"})
	got, _, matched := m.Match("marthah")
	if !matched || got != "Martha" {
		t.Errorf("Match(%q) = %q (matched=%v), want %q", "marthah", got, matched, "Martha")
	}
}
