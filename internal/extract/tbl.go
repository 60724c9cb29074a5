package extract

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"p3fes-translator/internal/sjis"
)

// tblFormat parses TBL name tables: a compact variant of the PM1 layout with
// 16-bit offset-table entries. The narrow slot width caps addressable content
// at 64 KiB, which matters when growth shifts strings toward the end.
//
//	0x00  magic "TBL\x00"
//	0x04  count uint16
//	0x06  reserved uint16
//	0x08  table count × uint16 string offsets
type tblFormat struct {
	minRun int
}

var tblMagic = []byte("TBL\x00")

const tblHeaderSize = 8

func (f *tblFormat) Name() string { return "tbl" }

func (f *tblFormat) Detect(data []byte, ext string) bool {
	return len(data) >= tblHeaderSize && bytes.Equal(data[:4], tblMagic)
}

func (f *tblFormat) Extract(data []byte) ([]TextSpan, *Layout, error) {
	if len(data) < tblHeaderSize {
		return nil, nil, fmt.Errorf("tbl: header truncated (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:4], tblMagic) {
		return nil, nil, fmt.Errorf("tbl: bad magic")
	}

	count := int(binary.LittleEndian.Uint16(data[4:6]))
	tableEnd := tblHeaderSize + count*2
	if tableEnd > len(data) {
		return nil, nil, fmt.Errorf("tbl: offset table (%d entries) exceeds file size %d", count, len(data))
	}

	layout := &Layout{
		Format:         "tbl",
		SupportsGrowth: true,
		SlotWidth:      2,
		MaxSize:        1 << 16,
	}

	var spans []TextSpan
	for i := 0; i < count; i++ {
		pos := tblHeaderSize + i*2
		layout.Slots = append(layout.Slots, pos)

		off := int(binary.LittleEndian.Uint16(data[pos : pos+2]))
		if off < tableEnd || off >= len(data) {
			return nil, nil, fmt.Errorf("tbl: entry %d offset %d out of bounds", i, off)
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
