// Package report aggregates per-file outcomes into the end-of-run summary.
// Reports are a derived, regenerable view; classification state is always
// recomputed from file content.
package report

import (
	"fmt"
	"io"
	"sync"

	"p3fes-translator/internal/analyzer"

	"github.com/fatih/color"
)

// Outcome is the result of processing one file.
type Outcome struct {
	Path           string
	Classification analyzer.Classification
	Strategy       string
	Spans          int
	Translated     int
	Cached         int
	Degraded       int
	Truncations    int
	// Skipped holds the skip reason; empty when the file was processed.
	Skipped string
	Err     error
}

// Summary collects outcomes from concurrent workers.
type Summary struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func NewSummary() *Summary {
	return &Summary{}
}

func (s *Summary) Add(o Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.mu.Unlock()
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
)

// statusColor maps a classification to its display color.
func statusColor(st analyzer.Status) *color.Color {
	switch st {
	case analyzer.StatusTranslated:
		return okColor
	case analyzer.StatusPartiallyTranslated:
		return warnColor
	case analyzer.StatusUntranslated:
		return failColor
	}
	return dimColor
}

// PrintClassifications writes one line per analyzed file.
func (s *Summary) PrintClassifications(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.outcomes {
		c := o.Classification
		line := fmt.Sprintf("%-22s conf=%.2f fr=%d en=%d words=%d",
			c.Status, c.Confidence, c.FrenchIndicators, c.EnglishIndicators, c.TotalWords)
		if c.SuspectedTruncation {
			line += "  [suspected truncation]"
		}
		statusColor(c.Status).Fprintf(w, "%s", line)
		fmt.Fprintf(w, "  %s\n", o.Path)
	}
}

// Print writes the batch totals and the error summary. A single file's
// failure never fails the batch; it shows up here instead.
func (s *Summary) Print(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var processed, skipped, failed, spans, translated, cached, degraded, truncations int
	for _, o := range s.outcomes {
		switch {
		case o.Err != nil:
			failed++
		case o.Skipped != "":
			skipped++
		default:
			processed++
		}
		spans += o.Spans
		translated += o.Translated
		cached += o.Cached
		degraded += o.Degraded
		truncations += o.Truncations
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Batch summary ===")
	okColor.Fprintf(w, "  processed: %d\n", processed)
	dimColor.Fprintf(w, "  skipped:   %d\n", skipped)
	if failed > 0 {
		failColor.Fprintf(w, "  failed:    %d\n", failed)
	} else {
		fmt.Fprintf(w, "  failed:    %d\n", failed)
	}
	fmt.Fprintf(w, "  spans: %d  translated: %d  cache hits: %d\n", spans, translated, cached)
	if degraded > 0 {
		warnColor.Fprintf(w, "  degraded (kept original): %d\n", degraded)
	}
	if truncations > 0 {
		warnColor.Fprintf(w, "  truncated spans: %d\n", truncations)
	}

	for _, o := range s.outcomes {
		if o.Err != nil {
			failColor.Fprintf(w, "  ✗ %s: %v\n", o.Path, o.Err)
		}
	}
}
