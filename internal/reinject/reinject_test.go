package reinject

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"p3fes-translator/internal/extract"
)

// buildTableFile lays out a header, a 32-bit offset table and null-terminated
// strings, mirroring the event message containers.
func buildTableFile(headerSize int, strs ...string) ([]byte, *extract.Layout) {
	count := len(strs)
	tableEnd := headerSize + count*4

	var body bytes.Buffer
	offsets := make([]int, count)
	for i, s := range strs {
		offsets[i] = tableEnd + body.Len()
		body.WriteString(s)
		body.WriteByte(0x00)
	}

	data := make([]byte, tableEnd)
	layout := &extract.Layout{
		Format:         "pm1",
		SupportsGrowth: true,
		SlotWidth:      4,
		MaxSize:        1 << 31,
	}
	for i, off := range offsets {
		pos := headerSize + i*4
		layout.Slots = append(layout.Slots, pos)
		binary.LittleEndian.PutUint32(data[pos:], uint32(off))
	}
	return append(data, body.Bytes()...), layout
}

func TestConservativeTruncatesAndPreservesLength(t *testing.T) {
	t.Parallel()

	data, layout := buildTableFile(16, "HelloHello")
	edit := Edit{Offset: 20, Old: []byte("HelloHello"), New: []byte("BonjourBonjour")}

	res, err := Reinject(data, []Edit{edit}, layout, Conservative)
	if err != nil {
		t.Fatalf("Reinject: %v", err)
	}

	if len(res.Bytes) != len(data) {
		t.Fatalf("length changed: %d -> %d", len(data), len(res.Bytes))
	}
	if res.Delta != 0 {
		t.Fatalf("Delta = %d, want 0", res.Delta)
	}
	if got := string(res.Bytes[20:30]); got != "BonjourBon" {
		t.Fatalf("slot content = %q, want the 10-byte truncation", got)
	}
	if len(res.Truncations) != 1 {
		t.Fatalf("Truncations = %+v, want one entry", res.Truncations)
	}
	tr := res.Truncations[0]
	if tr.Offset != 20 || tr.Capacity != 10 || tr.Wanted != 14 {
		t.Fatalf("Truncation = %+v", tr)
	}
}

func TestConservativePadsShortReplacement(t *testing.T) {
	t.Parallel()

	data, layout := buildTableFile(16, "HelloHello")
	edit := Edit{Offset: 20, Old: []byte("HelloHello"), New: []byte("Oui")}

	res, err := Reinject(data, []Edit{edit}, layout, Conservative)
	if err != nil {
		t.Fatalf("Reinject: %v", err)
	}
	if got := res.Bytes[20:30]; !bytes.Equal(got, []byte("Oui       ")) {
		t.Fatalf("slot content = %q, want space padding", got)
	}
}

func TestConservativeNeverSplitsShiftJISChar(t *testing.T) {
	t.Parallel()

	data, layout := buildTableFile(16, "Hello")
	// "Aタ" = 41 83 5E; capacity 5, replacement 7 bytes ending mid-character.
	edit := Edit{Offset: 20, Old: []byte("Hello"), New: []byte{0x41, 0x83, 0x5E, 0x83, 0x8B, 0x83, 0x5E}}

	res, err := Reinject(data, []Edit{edit}, layout, Conservative)
	if err != nil {
		t.Fatalf("Reinject: %v", err)
	}

	// Boundary before 5 keeps 41 83 5E 83 8B (complete chars only).
	want := []byte{0x41, 0x83, 0x5E, 0x83, 0x8B}
	if got := res.Bytes[20:25]; !bytes.Equal(got, want) {
		t.Fatalf("slot content = % x, want % x", got, want)
	}
}

func TestAggressiveShiftsLaterSlots(t *testing.T) {
	t.Parallel()

	data, layout := buildTableFile(16, "Hello!!!", "World!!!")
	edits := []Edit{
		{Offset: 24, Old: []byte("Hello!!!"), New: []byte("Bonjour le monde")},
		{Offset: 33, Old: []byte("World!!!"), New: []byte("Monde")},
	}

	res, err := Reinject(data, edits, layout, Aggressive)
	if err != nil {
		t.Fatalf("Reinject: %v", err)
	}

	if res.Delta != 5 {
		t.Fatalf("Delta = %d, want +8 -3 = 5", res.Delta)
	}
	if got := string(res.Bytes[24:40]); got != "Bonjour le monde" {
		t.Fatalf("first string = %q", got)
	}

	// The second slot moved by the first edit's growth.
	v, ok := layout.ReadSlot(res.Bytes, layout.Slots[1])
	if !ok || v != 41 {
		t.Fatalf("second slot = %d, want 41", v)
	}
	if got := string(res.Bytes[41:46]); got != "Monde" {
		t.Fatalf("second string = %q", got)
	}

	// The first slot points at unshifted content.
	v, ok = layout.ReadSlot(res.Bytes, layout.Slots[0])
	if !ok || v != 24 {
		t.Fatalf("first slot = %d, want 24", v)
	}
}

func TestAggressiveCumulativeDelta(t *testing.T) {
	t.Parallel()

	// Three growing edits; every point after edit k shifts by the sum of the
	// deltas of edits ending at or before it.
	data, layout := buildTableFile(16, "aaaa!", "bbbb!", "cccc!")
	edits := []Edit{
		{Offset: 28, Old: []byte("aaaa!"), New: []byte("aaaa!+1")},
		{Offset: 34, Old: []byte("bbbb!"), New: []byte("bbbb!+22")},
		{Offset: 40, Old: []byte("cccc!"), New: []byte("cccc!")},
	}

	res, err := Reinject(data, edits, layout, Aggressive)
	if err != nil {
		t.Fatalf("Reinject: %v", err)
	}
	if res.Delta != 5 {
		t.Fatalf("Delta = %d, want 2+3+0 = 5", res.Delta)
	}

	wantSlots := []int{28, 34 + 2, 40 + 5}
	for i, pos := range layout.Slots {
		v, ok := layout.ReadSlot(res.Bytes, pos)
		if !ok || v != wantSlots[i] {
			t.Fatalf("slot %d = %d, want %d", i, v, wantSlots[i])
		}
	}
}

func TestAggressiveRefusesGrowthWithoutSupport(t *testing.T) {
	t.Parallel()

	data := []byte("....HelloHello....")
	layout := &extract.Layout{Format: "block"}
	edits := []Edit{{Offset: 4, Old: []byte("HelloHello"), New: []byte("BonjourBonjour")}}

	_, err := Reinject(data, edits, layout, Aggressive)
	if !errors.Is(err, ErrGrowthUnsupported) {
		t.Fatalf("err = %v, want ErrGrowthUnsupported", err)
	}

	// Same-length replacements are fine without growth support.
	res, err := Reinject(data, []Edit{{Offset: 4, Old: []byte("HelloHello"), New: []byte("SalutSalut")}}, layout, Aggressive)
	if err != nil {
		t.Fatalf("same-length Reinject: %v", err)
	}
	if string(res.Bytes) != "....SalutSalut...." {
		t.Fatalf("bytes = %q", res.Bytes)
	}
}

func TestSafeVerifiesResult(t *testing.T) {
	t.Parallel()

	data, layout := buildTableFile(16, "Hello!!!", "World!!!")
	edits := []Edit{
		{Offset: 24, Old: []byte("Hello!!!"), New: []byte("Bonjour le monde")},
	}

	res, err := Reinject(data, edits, layout, Safe)
	if err != nil {
		t.Fatalf("Reinject: %v", err)
	}
	if res.Applied != Safe {
		t.Fatalf("Applied = %v, want Safe", res.Applied)
	}
}

func TestTestFirstPrefersVerifiedGrowth(t *testing.T) {
	t.Parallel()

	// Growth fits and verifies, so the conservative probe loses a truncation
	// point and Safe wins.
	data, layout := buildTableFile(16, "Hello!!!", "World!!!")
	edits := []Edit{
		{Offset: 24, Old: []byte("Hello!!!"), New: []byte("Bonjour le monde")},
	}

	res, err := Reinject(data, edits, layout, TestFirst)
	if err != nil {
		t.Fatalf("Reinject: %v", err)
	}
	if res.Applied != Safe {
		t.Fatalf("Applied = %v, want Safe", res.Applied)
	}
	if len(res.Truncations) != 0 {
		t.Fatalf("Truncations = %+v", res.Truncations)
	}
}

func TestTestFirstTiesFavorConservative(t *testing.T) {
	t.Parallel()

	// A same-length replacement scores every probe equally; the safest
	// strategy must win the tie.
	data, layout := buildTableFile(16, "Hello!!!")
	edits := []Edit{
		{Offset: 20, Old: []byte("Hello!!!"), New: []byte("Salut!!!")},
	}

	res, err := Reinject(data, edits, layout, TestFirst)
	if err != nil {
		t.Fatalf("Reinject: %v", err)
	}
	if res.Applied != Conservative {
		t.Fatalf("Applied = %v, want Conservative", res.Applied)
	}
}

func TestTestFirstRejectsOverflowingGrowth(t *testing.T) {
	t.Parallel()

	// 16-bit offset table near its addressing limit: growth pushes a slot
	// value past 0xFFFF, so only the length-preserving strategy is viable.
	data := make([]byte, 65534)
	layout := &extract.Layout{
		Format:         "tbl",
		SupportsGrowth: true,
		SlotWidth:      2,
		MaxSize:        1 << 16,
		Slots:          []int{0, 2},
	}

	copy(data[100:], "HelloHello")
	copy(data[65520:], "TailText")
	binary.LittleEndian.PutUint16(data[0:2], 100)
	binary.LittleEndian.PutUint16(data[2:4], 65520)

	edits := []Edit{
		{Offset: 100, Old: []byte("HelloHello"), New: []byte("BonjourBonjourBonjourBonjour")},
	}

	res, err := Reinject(data, edits, layout, TestFirst)
	if err != nil {
		t.Fatalf("Reinject: %v", err)
	}
	if res.Applied != Conservative {
		t.Fatalf("Applied = %v, want Conservative fallback", res.Applied)
	}
	if len(res.Bytes) != len(data) {
		t.Fatalf("length changed: %d -> %d", len(data), len(res.Bytes))
	}
	if len(res.Truncations) != 1 {
		t.Fatalf("Truncations = %+v", res.Truncations)
	}
}

func TestValidateRejectsBadEdits(t *testing.T) {
	t.Parallel()

	data, layout := buildTableFile(16, "Hello!!!")

	tests := []struct {
		name string
		edit Edit
	}{
		{"past end", Edit{Offset: len(data) - 2, Old: []byte("Hello!!!"), New: []byte("x")}},
		{"negative offset", Edit{Offset: -1, Old: []byte("H"), New: []byte("x")}},
		{"old mismatch", Edit{Offset: 20, Old: []byte("Goodbye!"), New: []byte("x")}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := Reinject(data, []Edit{tt.edit}, layout, Conservative)
			if err == nil {
				t.Fatalf("Reinject accepted %+v", tt.edit)
			}
			if res != nil {
				t.Fatal("result produced despite validation error")
			}
		})
	}
}

func TestValidateOffsetErrorType(t *testing.T) {
	t.Parallel()

	data, layout := buildTableFile(16, "Hello!!!")
	edit := Edit{Offset: len(data) + 10, Old: []byte("x"), New: []byte("y")}

	_, err := Reinject(data, []Edit{edit}, layout, Aggressive)
	var oe *OffsetError
	if !errors.As(err, &oe) {
		t.Fatalf("err = %v, want OffsetError", err)
	}
	if oe.Offset != len(data)+10 || oe.Size != len(data) {
		t.Fatalf("OffsetError = %+v", oe)
	}
}

func TestReinjectLeavesOriginalUntouched(t *testing.T) {
	t.Parallel()

	data, layout := buildTableFile(16, "Hello!!!", "World!!!")
	before := append([]byte(nil), data...)

	edits := []Edit{
		{Offset: 24, Old: []byte("Hello!!!"), New: []byte("Bonjour le monde")},
	}
	if _, err := Reinject(data, edits, layout, Aggressive); err != nil {
		t.Fatalf("Reinject: %v", err)
	}
	if !bytes.Equal(data, before) {
		t.Fatal("input buffer was modified")
	}
}

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	for _, s := range []Strategy{Conservative, Aggressive, Safe, TestFirst} {
		got, err := ParseStrategy(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseStrategy(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseStrategy("yolo"); err == nil {
		t.Fatal("ParseStrategy accepted an unknown name")
	}
}
