package analyzer

import (
	"testing"

	"p3fes-translator/internal/config"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	a := New(config.DefaultHeuristics())

	tests := []struct {
		name  string
		texts []string
		want  Status
	}{
		{
			name:  "french file",
			texts: []string{"Bonjour, je suis dans la salle.", "Merci pour tout, à bientôt."},
			want:  StatusTranslated,
		},
		{
			name:  "english file",
			texts: []string{"Press start to continue.", "The game will save your progress."},
			want:  StatusUntranslated,
		},
		{
			name:  "mixed file",
			texts: []string{"Bonjour, je suis la nouvelle élève.", "Press start to begin the game now."},
			want:  StatusPartiallyTranslated,
		},
		{
			name:  "short french line",
			texts: []string{"bonjour, ça va bien, merci"},
			want:  StatusTranslated,
		},
		{
			name:  "no text",
			texts: nil,
			want:  StatusNoText,
		},
		{
			name:  "whitespace only",
			texts: []string{"   ", "\t"},
			want:  StatusNoText,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := a.Classify(tt.texts)
			if got.Status != tt.want {
				t.Fatalf("Classify() status = %v, want %v (fr=%d en=%d total=%d)",
					got.Status, tt.want, got.FrenchIndicators, got.EnglishIndicators, got.TotalWords)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()

	a := New(config.DefaultHeuristics())
	texts := []string{"Bonjour, je suis dans la salle.", "Press start to continue."}

	first := a.Classify(texts)
	for i := 0; i < 10; i++ {
		if got := a.Classify(texts); got != first {
			t.Fatalf("run %d: Classify() = %+v, want %+v", i, got, first)
		}
	}
}

func TestClassifyAccentedCountsAsFrench(t *testing.T) {
	t.Parallel()

	a := New(config.DefaultHeuristics())
	c := a.Classify([]string{"héros élève château déjà"})
	if c.FrenchIndicators != 4 {
		t.Fatalf("FrenchIndicators = %d, want 4", c.FrenchIndicators)
	}
	if c.Status != StatusTranslated {
		t.Fatalf("Status = %v, want StatusTranslated", c.Status)
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	a := New(config.DefaultHeuristics())

	tests := []struct {
		name string
		text string
		low  bool // below default MinScore
	}{
		{"readable sentence", "The dark hour approaches swiftly.", false},
		{"short fragment", "ab", true},
		{"no vowels", "xzzt grrk", true},
		{"mostly binary noise", "a\x01\x02\x03\x04\x05\x06e", true},
		{"single word", "Tartarus", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := a.Score(tt.text)
			if tt.low && got >= a.h.MinScore {
				t.Fatalf("Score(%q) = %v, want < %v", tt.text, got, a.h.MinScore)
			}
			if !tt.low && got < a.h.MinScore {
				t.Fatalf("Score(%q) = %v, want >= %v", tt.text, got, a.h.MinScore)
			}
		})
	}
}

func TestShouldSkip(t *testing.T) {
	t.Parallel()

	a := New(config.DefaultHeuristics())

	tests := []struct {
		text string
		want bool
	}{
		{"12345", true},
		{"MSG_0012", true},
		{"SEES", true},
		{"loading", true},
		{"Gekkoukan High", true},
		{"ab", true},
		{"How was your day?", false},
		{"Welcome to the Velvet Room.", false},
	}

	for _, tt := range tests {
		tt := tt
		if got := a.ShouldSkip(tt.text); got != tt.want {
			t.Errorf("ShouldSkip(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestSuspectTruncation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{"I was going to tell you abou", true},
		{"The answer lies some-", true},
		{"How was your day?", false},
		{"Yes", false},
		{"", false},
	}

	for _, tt := range tests {
		tt := tt
		if got := SuspectTruncation(tt.text); got != tt.want {
			t.Errorf("SuspectTruncation(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
