package extract

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"p3fes-translator/internal/sjis"
)

// pm1Format parses PM1 event message containers: a 16-byte header followed by
// an offset table of 32-bit little-endian entries, each pointing at a
// null-terminated Shift-JIS string.
//
//	0x00  magic   "PM1\x00"
//	0x04  version uint32
//	0x08  count   uint32 (offset-table entries)
//	0x0C  reserved
//	0x10  table   count × uint32 string offsets
type pm1Format struct {
	minRun int
}

var pm1Magic = []byte("PM1\x00")

const pm1HeaderSize = 16

func (f *pm1Format) Name() string { return "pm1" }

func (f *pm1Format) Detect(data []byte, ext string) bool {
	return len(data) >= pm1HeaderSize && bytes.Equal(data[:4], pm1Magic)
}

func (f *pm1Format) Extract(data []byte) ([]TextSpan, *Layout, error) {
	if len(data) < pm1HeaderSize {
		return nil, nil, fmt.Errorf("pm1: header truncated (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:4], pm1Magic) {
		return nil, nil, fmt.Errorf("pm1: bad magic")
	}

	count := int(binary.LittleEndian.Uint32(data[8:12]))
	tableEnd := pm1HeaderSize + count*4
	if count < 0 || tableEnd > len(data) {
		return nil, nil, fmt.Errorf("pm1: offset table (%d entries) exceeds file size %d", count, len(data))
	}

	layout := &Layout{
		Format:         "pm1",
		SupportsGrowth: true,
		SlotWidth:      4,
		MaxSize:        1 << 31,
	}

	var spans []TextSpan
	for i := 0; i < count; i++ {
		pos := pm1HeaderSize + i*4
		layout.Slots = append(layout.Slots, pos)

		off := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		if off < tableEnd || off >= len(data) {
			return nil, nil, fmt.Errorf("pm1: entry %d offset %d out of bounds", i, off)
		}

		end := bytes.IndexByte(data[off:], 0x00)
		if end < 0 {
			end = len(data) - off
		}
		raw := data[off : off+end]
		if len(raw) < f.minRun {
			continue
		}

		text, err := sjis.Decode(raw)
		if err != nil {
			continue
		}

		spans = append(spans, TextSpan{Offset: off, Raw: append([]byte(nil), raw...), Text: text})
	}

	return spans, layout, nil
}
