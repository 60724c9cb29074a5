package extract

import (
	"p3fes-translator/internal/analyzer"
	"p3fes-translator/internal/config"
	"p3fes-translator/internal/sjis"
	"p3fes-translator/internal/textutil"
)

// scanner is the format-agnostic fallback: maximal printable runs of at least
// MinRunLength bytes, kept only when the analyzer scores them as likely text.
type scanner struct {
	analyzer *analyzer.Analyzer
	h        config.Heuristics
}

// scan returns the spans passing the score gate and the total number of
// candidate runs that met the length minimum.
func (s *scanner) scan(data []byte) ([]TextSpan, int) {
	var spans []TextSpan
	candidates := 0

	i := 0
	for i < len(data) {
		if !textutil.IsPrintableASCII(data[i]) {
			i++
			continue
		}

		start := i
		for i < len(data) && textutil.IsPrintableASCII(data[i]) {
			i++
		}

		if i-start < s.h.MinRunLength {
			continue
		}
		candidates++

		raw := data[start:i]
		text, err := sjis.Decode(raw)
		if err != nil {
			continue
		}
		if s.analyzer.Score(text) < s.h.MinScore {
			continue
		}

		spans = append(spans, TextSpan{Offset: start, Raw: append([]byte(nil), raw...), Text: text})
	}

	return spans, candidates
}
