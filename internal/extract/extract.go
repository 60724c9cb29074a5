// Package extract locates translatable text spans inside game asset files.
// Recognized container formats are parsed structurally; anything else goes
// through a heuristic printable-run scanner gated by the analyzer score.
package extract

import (
	"fmt"
	"sort"

	"p3fes-translator/internal/analyzer"
	"p3fes-translator/internal/config"

	"github.com/rs/zerolog/log"
)

// TextSpan is one extractable string within a file.
type TextSpan struct {
	// Offset is the absolute byte offset of the span in the file.
	Offset int
	// Raw holds the original encoded bytes (capacity for conservative edits).
	Raw []byte
	// Text is the decoded string.
	Text string
}

// Length is the span's byte length in the file.
func (s TextSpan) Length() int { return len(s.Raw) }

// Layout describes the structural facts a reinjection strategy needs: whether
// the format tolerates growth, and where its offset-table slots live.
type Layout struct {
	// Format is the name of the parser that produced the spans.
	Format string
	// SupportsGrowth marks formats whose offset table can be rewritten when
	// string lengths change. Growth is refused without it.
	SupportsGrowth bool
	// SlotWidth is the byte width of one offset-table field (2 or 4).
	SlotWidth int
	// Slots are the byte positions of offset-table fields in the file.
	Slots []int
	// MaxSize is the largest file size the format can address (0 = unbounded).
	MaxSize int
}

// ReadSlot reads the offset value stored at slot position pos (little endian).
func (l *Layout) ReadSlot(data []byte, pos int) (int, bool) {
	if pos < 0 || pos+l.SlotWidth > len(data) {
		return 0, false
	}
	v := 0
	for i := l.SlotWidth - 1; i >= 0; i-- {
		v = v<<8 | int(data[pos+i])
	}
	return v, true
}

// WriteSlot stores an offset value at slot position pos (little endian).
// Returns false when the value does not fit the slot width or the slot is out
// of range.
func (l *Layout) WriteSlot(data []byte, pos, value int) bool {
	if pos < 0 || pos+l.SlotWidth > len(data) || value < 0 {
		return false
	}
	if l.SlotWidth < 8 && value >= 1<<(8*l.SlotWidth) {
		return false
	}
	for i := 0; i < l.SlotWidth; i++ {
		data[pos+i] = byte(value >> (8 * i))
	}
	return true
}

// UnsupportedFormatError reports that no parser path could produce spans for
// the input.
type UnsupportedFormatError struct {
	Hint string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("unsupported format: %q", e.Hint)
	}
	return "unsupported format: no parser produced spans"
}

// Format is a structural parser for one container format. Detect is a pure
// predicate; parsers are tried in registration order.
type Format interface {
	Name() string
	Detect(data []byte, ext string) bool
	Extract(data []byte) ([]TextSpan, *Layout, error)
}

// Extractor dispatches file content to the format registry, falling back to
// the heuristic scanner.
type Extractor struct {
	formats []Format
	scanner *scanner
}

// New creates an Extractor with the default format registry.
func New(a *analyzer.Analyzer, h config.Heuristics) *Extractor {
	return &Extractor{
		formats: []Format{
			&pm1Format{minRun: h.MinRunLength},
			&tblFormat{minRun: h.MinRunLength},
			&blockFormat{minRun: h.MinRunLength},
		},
		scanner: &scanner{analyzer: a, h: h},
	}
}

// Extract produces the ordered, non-overlapping spans of a file. An explicit
// hint selects a registered format by name; an unknown hint is an
// UnsupportedFormatError. Without a hint, detection runs in priority order and
// falls back to the heuristic scanner. Low-scoring content yields an empty
// span list, not an error.
func (e *Extractor) Extract(data []byte, ext, hint string) ([]TextSpan, *Layout, error) {
	if hint != "" {
		for _, f := range e.formats {
			if f.Name() == hint {
				spans, layout, err := f.Extract(data)
				if err != nil {
					return nil, nil, err
				}
				return normalize(spans), layout, nil
			}
		}
		return nil, nil, &UnsupportedFormatError{Hint: hint}
	}

	structuralFailed := false
	for _, f := range e.formats {
		if !f.Detect(data, ext) {
			continue
		}
		spans, layout, err := f.Extract(data)
		if err != nil {
			log.Warn().Err(err).Str("format", f.Name()).Msg("Structured parse failed, falling back to scanner")
			structuralFailed = true
			break
		}
		return normalize(spans), layout, nil
	}

	spans, candidates := e.scanner.scan(data)
	if len(spans) == 0 && candidates == 0 && structuralFailed {
		return nil, nil, &UnsupportedFormatError{}
	}

	return normalize(spans), &Layout{Format: "heuristic"}, nil
}

// normalize sorts spans ascending by offset and drops overlaps, the ordering
// contract the reinjector's delta accumulation depends on.
func normalize(spans []TextSpan) []TextSpan {
	sort.Slice(spans, func(i, j int) bool { return spans[i].Offset < spans[j].Offset })

	out := spans[:0]
	lastEnd := -1
	for _, s := range spans {
		if s.Offset < lastEnd {
			continue
		}
		out = append(out, s)
		lastEnd = s.Offset + s.Length()
	}
	return out
}
