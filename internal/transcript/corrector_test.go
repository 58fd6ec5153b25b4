package transcript

import "testing"

func TestCorrectReplacesMisrecognisedWords(t *testing.T) {
	t.Parallel()

	c := NewVocabularyCorrector([]string{"Metformin", "Dorothy"})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"medication name", "time to take my metforman", "time to take my Metformin"},
		{"family name", "call dorothee please", "call Dorothy please"},
		{"multiple corrections", "tell dorothee about metforman", "tell Dorothy about Metformin"},
		{"nothing to correct", "what time is it", "what time is it"},
		{"empty input", "", ""},
		{"whitespace only", "   ", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := c.Correct(tt.in); got != tt.want {
				t.Errorf("Correct(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCorrectPreservesPunctuation(t *testing.T) {
	t.Parallel()

	c := NewVocabularyCorrector([]string{"Lisinopril"})
	got := c.Correct("did I take my lisinoprel?")
	if got != "did I take my Lisinopril?" {
		t.Errorf("Correct() = %q, want trailing punctuation preserved", got)
	}
}

func TestCorrectWithEmptyVocabularyIsIdentity(t *testing.T) {
	t.Parallel()

	c := NewVocabularyCorrector(nil)
	in := "take my metforman now"
	if got := c.Correct(in); got != in {
		t.Errorf("Correct() = %q, want input unchanged with no vocabulary", got)
	}
}

func TestCorrectLeavesUnchangedTextUntouched(t *testing.T) {
	t.Parallel()

	// When no token matches, the original string is returned verbatim,
	// including its original spacing.
	c := NewVocabularyCorrector([]string{"Metformin"})
	in := "good  morning   everyone"
	if got := c.Correct(in); got != in {
		t.Errorf("Correct() = %q, want original spacing preserved when nothing matched", got)
	}
}
