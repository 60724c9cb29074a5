// Package tokenguard protects non-translatable substrings in extracted game
// text. Control codes, placeholders, engine keywords and proper nouns are
// swapped for {{tok_N}} sentinels before translation and restored verbatim
// afterwards.
package tokenguard

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Token records one protected occurrence so it can be restored after
// translation.
type Token struct {
	// Value is the original protected substring.
	Value string
	// Index is the 1-based sentinel index used in the masked text.
	Index int
	// Start is the byte offset of the occurrence in the original text.
	Start int
}

// RestoreError signals that the translation step corrupted the sentinels
// (dropped, duplicated or rewrote one). Callers must fall back to the
// untranslated original span.
type RestoreError struct {
	Want int
	Got  int
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("token restore: expected %d sentinels, found %d", e.Want, e.Got)
}

// patterns detect the protected token classes of the game's message engine.
var patterns = []*regexp.Regexp{
	// Raw control codes: {F2 08 FF FF}, {F1 3F}, {0A}, {00}. Each field is one
	// hex byte; multi-byte codes carry up to four fields.
	regexp.MustCompile(`\{[0-9A-F]{2}( [0-9A-F]{2}){1,3}\}`),
	regexp.MustCompile(`\{[0-9A-F]{2}\}`),
	// Named engine codes: {NAME1}, {ITEM12}, {COLOR3}, {WAIT10}, ...
	regexp.MustCompile(`\{(?:NAME|ITEM|PERSONA|SKILL|LOCATION|COLOR|SPEED|WAIT|WINDOW|SOUND|VOICE|ANIM|FACE|CHOICE|CURSOR|HP|SP|STATUS|DAMAGE)[0-9]+\}`),
	regexp.MustCompile(`\{(?:CLEAR|YESNO|INPUT)\}`),
	// Bracketed control tokens: [VAR1], [SE 03].
	regexp.MustCompile(`\[[^\[\]\n]+\]`),
	// Script identifiers: MSG_0012, EVT_OPENING.
	regexp.MustCompile(`\b(?:MSG|CMD|EVT|SCENE|BATTLE|QUEST)_[A-Za-z0-9_]+\b`),
	// printf-style placeholders and interpolation variables.
	regexp.MustCompile(`%[-+0-9]*\.?[0-9]*[dsfieEgGxXoubcpq]`),
	regexp.MustCompile(`%%`),
	regexp.MustCompile(`\$\{[a-zA-Z_][a-zA-Z0-9_]*\}`),
	regexp.MustCompile(`\{[0-9]+\}`),
	// ALL-CAPS engine keywords (3+ chars).
	regexp.MustCompile(`\b[A-Z][A-Z0-9_]{2,}\b`),
}

var sentinelRe = regexp.MustCompile(`\{\{tok_([0-9]+)\}\}`)

// Guard masks and unmasks protected tokens. The proper-noun set comes from the
// glossary at construction; a nil set guards only the pattern classes.
type Guard struct {
	nounRe *regexp.Regexp
}

// New creates a Guard protecting the given proper nouns in addition to the
// built-in pattern classes.
func New(nouns []string) *Guard {
	g := &Guard{}
	if len(nouns) > 0 {
		// Longest first so "Velvet Room" wins over a hypothetical "Velvet".
		sorted := make([]string, len(nouns))
		copy(sorted, nouns)
		sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

		escaped := make([]string, len(sorted))
		for i, n := range sorted {
			escaped[i] = regexp.QuoteMeta(n)
		}
		g.nounRe = regexp.MustCompile(`\b(?:` + strings.Join(escaped, "|") + `)\b`)
	}
	return g
}

type match struct {
	start, end int
	value      string
}

// Mask replaces every protected occurrence with an indexed {{tok_N}} sentinel.
// Returned tokens are ordered by position in the original text.
func (g *Guard) Mask(text string) (string, []Token) {
	var all []match
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			all = append(all, match{start: loc[0], end: loc[1], value: text[loc[0]:loc[1]]})
		}
	}
	if g.nounRe != nil {
		for _, loc := range g.nounRe.FindAllStringIndex(text, -1) {
			all = append(all, match{start: loc[0], end: loc[1], value: text[loc[0]:loc[1]]})
		}
	}

	if len(all) == 0 {
		return text, nil
	}

	// Sort by start, longest first, then drop overlaps.
	sort.Slice(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		return all[i].end-all[i].start > all[j].end-all[j].start
	})

	var filtered []match
	lastEnd := -1
	for _, m := range all {
		if m.start >= lastEnd {
			filtered = append(filtered, m)
			lastEnd = m.end
		}
	}

	tokens := make([]Token, len(filtered))
	for i, m := range filtered {
		tokens[i] = Token{Value: m.value, Index: i + 1, Start: m.start}
	}

	// Replace in reverse order to preserve indices.
	result := text
	for i := len(filtered) - 1; i >= 0; i-- {
		m := filtered[i]
		result = result[:m.start] + sentinel(i+1) + result[m.end:]
	}

	return result, tokens
}

// Unmask restores the original protected values positionally. The translated
// text must contain exactly the sentinels Mask produced, each exactly once.
func (g *Guard) Unmask(translated string, tokens []Token) (string, error) {
	found := sentinelRe.FindAllStringSubmatch(translated, -1)
	if len(found) != len(tokens) {
		return "", &RestoreError{Want: len(tokens), Got: len(found)}
	}

	seen := make(map[int]bool, len(found))
	for _, f := range found {
		idx, err := strconv.Atoi(f[1])
		if err != nil || idx < 1 || idx > len(tokens) || seen[idx] {
			return "", &RestoreError{Want: len(tokens), Got: len(found)}
		}
		seen[idx] = true
	}

	result := translated
	for _, t := range tokens {
		result = strings.Replace(result, sentinel(t.Index), t.Value, 1)
	}
	return result, nil
}

// OnlyTokens checks if the masked text carries no translatable content, i.e.
// nothing but sentinels, digits, punctuation and whitespace.
func OnlyTokens(masked string) bool {
	stripped := sentinelRe.ReplaceAllString(masked, "")
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127 {
			return false
		}
	}
	return true
}

func sentinel(n int) string {
	return fmt.Sprintf("{{tok_%d}}", n)
}
