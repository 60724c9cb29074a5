// Package analyzer classifies file content by translation state. It scores
// decoded text against fixed French and English indicator vocabularies and
// derives a per-file verdict: Translated, PartiallyTranslated, Untranslated or
// NoText. All thresholds are tunable via config.Heuristics.
package analyzer

import (
	"regexp"
	"strings"
	"unicode"

	"p3fes-translator/internal/config"
	"p3fes-translator/internal/textutil"
)

// Status is the translation state of a file's text content.
type Status int

const (
	StatusNoText Status = iota
	StatusUntranslated
	StatusPartiallyTranslated
	StatusTranslated
)

func (s Status) String() string {
	switch s {
	case StatusNoText:
		return "no-text"
	case StatusUntranslated:
		return "untranslated"
	case StatusPartiallyTranslated:
		return "partially-translated"
	case StatusTranslated:
		return "translated"
	}
	return "unknown"
}

// Classification is the result of analyzing one file's decoded text. It is
// recomputed on every pass; persisted reports are a derived view.
type Classification struct {
	Status              Status
	Confidence          float64
	FrenchIndicators    int
	EnglishIndicators   int
	TotalWords          int
	SuspectedTruncation bool
}

// frenchWords are common French function words and game vocabulary.
var frenchWords = map[string]bool{
	"le": true, "la": true, "les": true, "un": true, "une": true, "des": true,
	"de": true, "du": true, "et": true, "ou": true, "est": true, "sont": true,
	"je": true, "tu": true, "il": true, "elle": true, "nous": true, "vous": true,
	"ne": true, "pas": true, "que": true, "qui": true, "dans": true, "sur": true,
	"avec": true, "pour": true, "mais": true, "plus": true, "tout": true,
	"bien": true, "merci": true, "bonjour": true, "oui": true, "non": true,
	"être": true, "avoir": true, "faire": true, "aller": true, "voir": true,
	"ça": true, "cette": true, "votre": true, "notre": true, "mon": true,
	"ton": true, "son": true, "aux": true, "chargement": true, "partie": true,
	"continuer": true, "quitter": true, "sauvegarder": true, "réessayer": true,
}

// englishWords are common English stopwords and recurring game keywords.
var englishWords = map[string]bool{
	"the": true, "and": true, "you": true, "your": true, "is": true, "are": true,
	"to": true, "of": true, "in": true, "it": true, "that": true, "this": true,
	"with": true, "for": true, "have": true, "was": true, "will": true,
	"not": true, "what": true, "when": true, "can": true, "do": true,
	"press": true, "start": true, "game": true, "over": true, "loading": true,
	"continue": true, "save": true, "load": true, "quit": true, "try": true,
	"again": true, "welcome": true, "level": true, "new": true, "exit": true,
}

var sentenceTerminators = ".!?…。」』\")"

var (
	numberOnlyRe = regexp.MustCompile(`^[0-9]+$`)
	codeRe       = regexp.MustCompile(`^[A-Z0-9_]+$`)
	acronymRe    = regexp.MustCompile(`^[A-Z]{2,}$`)
	bareLowerRe  = regexp.MustCompile(`^[a-z]+$`)
	properNameRe = regexp.MustCompile(`^[A-Z][a-z]+( [A-Z][a-z]+){0,3}$`)
)

// Analyzer scores and classifies file text. Pure and deterministic for
// identical input.
type Analyzer struct {
	h config.Heuristics
}

func New(h config.Heuristics) *Analyzer {
	return &Analyzer{h: h}
}

// Classify computes the translation state of a file from its decoded spans.
func (a *Analyzer) Classify(texts []string) Classification {
	var c Classification

	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if !c.SuspectedTruncation && SuspectTruncation(text) {
			c.SuspectedTruncation = true
		}
		for _, w := range strings.Fields(text) {
			w = strings.ToLower(strings.Trim(w, ".,!?;:'\"()«»"))
			if w == "" {
				continue
			}
			c.TotalWords++
			switch {
			case frenchWords[w] || textutil.ContainsAccented(w):
				c.FrenchIndicators++
			case englishWords[w]:
				c.EnglishIndicators++
			}
		}
	}

	if c.TotalWords == 0 {
		c.Status = StatusNoText
		return c
	}

	fr := float64(c.FrenchIndicators) / float64(c.TotalWords)
	en := float64(c.EnglishIndicators) / float64(c.TotalWords)

	switch {
	case fr >= a.h.FrenchHigh && en < a.h.EnglishLow:
		c.Status = StatusTranslated
		c.Confidence = fr
	case fr >= a.h.IndicatorFloor && en >= a.h.IndicatorFloor:
		c.Status = StatusPartiallyTranslated
		c.Confidence = (fr + en) / 2
	default:
		c.Status = StatusUntranslated
		c.Confidence = en
	}

	return c
}

// Score rates a candidate span's likelihood of being human-readable text, in
// [0,1]. The heuristic scanner drops candidates below the configured MinScore.
func (a *Analyzer) Score(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < a.h.MinRunLength {
		return 0
	}

	var letters, vowels, specials, total int
	for _, r := range trimmed {
		total++
		switch {
		case unicode.IsLetter(r) || r == ' ':
			letters++
			if strings.ContainsRune("aeiouyAEIOUYéèêàâîôûù", r) {
				vowels++
			}
		case unicode.IsDigit(r) || strings.ContainsRune(".,!?;:'\"-()", r):
			// neutral
		default:
			specials++
		}
	}

	if vowels == 0 {
		return 0
	}
	if float64(specials)/float64(total) > a.h.MaxSpecialRatio {
		return 0
	}

	score := float64(letters) / float64(total)
	if len(strings.Fields(trimmed)) >= 2 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// ShouldSkip filters spans that must not be sent to translation: bare numbers,
// script codes, acronyms, single lowercase words and short proper-name runs.
func (a *Analyzer) ShouldSkip(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 3 {
		return true
	}
	if numberOnlyRe.MatchString(trimmed) ||
		codeRe.MatchString(trimmed) ||
		acronymRe.MatchString(trimmed) ||
		bareLowerRe.MatchString(trimmed) ||
		properNameRe.MatchString(trimmed) {
		return true
	}
	return !isValidSentence(trimmed)
}

// isValidSentence checks for minimal sentence structure: at least two words
// and either punctuation or mixed case.
func isValidSentence(text string) bool {
	if len(strings.Fields(text)) < 2 {
		return false
	}
	hasPunct := strings.ContainsAny(text, ".!?,;:")
	hasUpper := strings.ToLower(text) != text
	allUpper := strings.ToUpper(text) == text
	return hasPunct || (hasUpper && !allUpper)
}

// SuspectTruncation flags text that appears cut off mid-sentence: prose of
// several words ending on a bare letter or hyphen instead of normal sentence
// termination. Reporting only; never affects classification.
func SuspectTruncation(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.HasSuffix(trimmed, "-") {
		return true
	}
	runes := []rune(trimmed)
	last := runes[len(runes)-1]
	if !unicode.IsLetter(last) {
		return false
	}
	if strings.ContainsRune(sentenceTerminators, last) {
		return false
	}
	return len(strings.Fields(trimmed)) >= 4
}
