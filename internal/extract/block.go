package extract

import (
	"p3fes-translator/internal/sjis"
	"p3fes-translator/internal/textutil"
)

// blockFormat handles the delimiter-based archive formats (.pac, .pak, .bf):
// opaque binary blocks with embedded null-terminated Shift-JIS strings. There
// is no offset table to rewrite, so these files never tolerate growth.
type blockFormat struct {
	minRun int
}

var blockExtensions = map[string]bool{
	".pac": true,
	".pak": true,
	".bf":  true,
}

func (f *blockFormat) Name() string { return "block" }

func (f *blockFormat) Detect(data []byte, ext string) bool {
	return blockExtensions[ext]
}

func (f *blockFormat) Extract(data []byte) ([]TextSpan, *Layout, error) {
	layout := &Layout{Format: "block"}

	var spans []TextSpan
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

		// Only null-terminated runs count: anything else is structure, not a
		// string slot.
		if i-start < f.minRun || i >= len(data) || data[i] != 0x00 {
			continue
		}

		raw := data[start:i]
		text, err := sjis.Decode(raw)
		if err != nil {
			continue
		}

		spans = append(spans, TextSpan{Offset: start, Raw: append([]byte(nil), raw...), Text: text})
	}

	return spans, layout, nil
}
