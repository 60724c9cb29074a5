// Package reinject writes translated strings back into a file's original
// binary layout. Four strategies trade translation fidelity against structural
// risk; all of them build the full output buffer in memory and validate it
// before anything touches disk.
package reinject

import (
	"bytes"
	"errors"
	"fmt"

	"p3fes-translator/internal/extract"
	"p3fes-translator/internal/sjis"

	"github.com/rs/zerolog/log"
)

// Strategy selects how translated spans are fitted back into the file.
type Strategy int

const (
	// Conservative truncates oversized replacements to the original slot,
	// never changing file length.
	Conservative Strategy = iota
	// Aggressive grows the file and rewrites offset-table entries by the
	// accumulated delta. Requires a layout that supports growth.
	Aggressive
	// Safe is Aggressive plus a backup copy and post-write verification.
	Safe
	// TestFirst dry-runs the other three in memory, scores them and commits
	// the winner.
	TestFirst
)

func (s Strategy) String() string {
	switch s {
	case Conservative:
		return "conservative"
	case Aggressive:
		return "aggressive"
	case Safe:
		return "safe"
	case TestFirst:
		return "testfirst"
	}
	return "unknown"
}

// ParseStrategy maps a CLI flag value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "conservative":
		return Conservative, nil
	case "aggressive":
		return Aggressive, nil
	case "safe":
		return Safe, nil
	case "testfirst":
		return TestFirst, nil
	}
	return Conservative, fmt.Errorf("unknown strategy %q", s)
}

// Edit replaces one span's encoded bytes. Old must match the original buffer
// at Offset exactly.
type Edit struct {
	Offset int
	Old    []byte
	New    []byte
}

// Truncation records a replacement cut down to its slot capacity.
type Truncation struct {
	Offset   int
	Capacity int
	Wanted   int
}

// Result is a committed reinjection.
type Result struct {
	Bytes []byte
	// Applied is the strategy actually used (TestFirst resolves to one of the
	// other three).
	Applied     Strategy
	Truncations []Truncation
	// Delta is the total length change of the buffer.
	Delta int
}

// OffsetError is fatal for the file: an edit fell outside the byte buffer.
// The file is left completely unmodified.
type OffsetError struct {
	Offset int
	Size   int
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("edit offset %d out of bounds (buffer size %d)", e.Offset, e.Size)
}

// ErrVerificationFailed reports that the post-apply check of a Safe
// reinjection did not find the expected bytes at the expected positions.
var ErrVerificationFailed = errors.New("reinjection verification failed")

// ErrGrowthUnsupported reports a length-changing edit against a format whose
// layout does not declare growth support.
var ErrGrowthUnsupported = errors.New("format does not support length changes")

// Reinject applies edits to a copy of original under the given strategy. The
// original buffer is never modified; on any error no result is produced.
func Reinject(original []byte, edits []Edit, layout *extract.Layout, strategy Strategy) (*Result, error) {
	if err := validate(original, edits); err != nil {
		return nil, err
	}

	switch strategy {
	case Conservative:
		return applyConservative(original, edits), nil
	case Aggressive:
		res, oob, err := applyAggressive(original, edits, layout)
		if err != nil {
			return nil, err
		}
		if oob > 0 {
			return nil, &OffsetError{Offset: -1, Size: len(original)}
		}
		return res, nil
	case Safe:
		return applySafe(original, edits, layout)
	case TestFirst:
		return applyTestFirst(original, edits, layout)
	}
	return nil, fmt.Errorf("unknown strategy %d", strategy)
}

// validate enforces the edit-list preconditions: strictly ascending offsets,
// no overlap, in-bounds spans, and Old matching the original bytes.
func validate(original []byte, edits []Edit) error {
	lastEnd := -1
	for _, e := range edits {
		if e.Offset < 0 || e.Offset+len(e.Old) > len(original) {
			return &OffsetError{Offset: e.Offset, Size: len(original)}
		}
		if e.Offset < lastEnd {
			return fmt.Errorf("edit at offset %d overlaps previous edit", e.Offset)
		}
		if !bytes.Equal(original[e.Offset:e.Offset+len(e.Old)], e.Old) {
			return fmt.Errorf("edit at offset %d does not match original bytes", e.Offset)
		}
		lastEnd = e.Offset + len(e.Old)
	}
	return nil
}

// applyConservative fits each replacement into its original slot: truncate at
// a Shift-JIS character boundary, pad with 0x20. File length never changes.
func applyConservative(original []byte, edits []Edit) *Result {
	out := append([]byte(nil), original...)
	res := &Result{Applied: Conservative}

	for _, e := range edits {
		capacity := len(e.Old)
		nb := e.New
		if len(nb) > capacity {
			n := sjis.BoundaryBefore(nb, capacity)
			res.Truncations = append(res.Truncations, Truncation{
				Offset:   e.Offset,
				Capacity: capacity,
				Wanted:   len(nb),
			})
			log.Debug().Int("offset", e.Offset).Int("capacity", capacity).Int("wanted", len(nb)).
				Msg("Truncated replacement to slot capacity")
			nb = nb[:n]
		}
		copy(out[e.Offset:e.Offset+capacity], nb)
		for i := e.Offset + len(nb); i < e.Offset+capacity; i++ {
			out[i] = 0x20
		}
	}

	res.Bytes = out
	return res
}

// shiftPoint returns p adjusted by the deltas of all edits that end at or
// before p. This cumulative rule is what keeps multiple growing spans in one
// file consistent.
func shiftPoint(edits []Edit, p int) int {
	shifted := p
	for _, e := range edits {
		if e.Offset+len(e.Old) <= p {
			shifted += len(e.New) - len(e.Old)
		}
	}
	return shifted
}

// applyAggressive splices replacements at full length and rewrites the offset
// table. Returns the number of table slots pushed out of valid bounds; the
// caller decides whether that is fatal or a probe score.
func applyAggressive(original []byte, edits []Edit, layout *extract.Layout) (*Result, int, error) {
	grows := false
	for _, e := range edits {
		if len(e.New) != len(e.Old) {
			grows = true
			break
		}
	}
	if grows && (layout == nil || !layout.SupportsGrowth) {
		return nil, 0, ErrGrowthUnsupported
	}

	out := make([]byte, 0, len(original))
	cursor := 0
	for _, e := range edits {
		out = append(out, original[cursor:e.Offset]...)
		out = append(out, e.New...)
		cursor = e.Offset + len(e.Old)
	}
	out = append(out, original[cursor:]...)

	oob := 0
	if layout != nil && len(layout.Slots) > 0 {
		if layout.MaxSize > 0 && len(out) > layout.MaxSize {
			oob++
		}
		for _, pos := range layout.Slots {
			val, ok := layout.ReadSlot(original, pos)
			if !ok {
				oob++
				continue
			}
			newPos := shiftPoint(edits, pos)
			newVal := shiftPoint(edits, val)
			if newVal >= len(out) || !layout.WriteSlot(out, newPos, newVal) {
				oob++
			}
		}
	}

	return &Result{
		Bytes:   out,
		Applied: Aggressive,
		Delta:   len(out) - len(original),
	}, oob, nil
}

// applySafe runs the aggressive transform and verifies the result in memory
// before reporting success. File-level backup handling lives in ReinjectFile.
func applySafe(original []byte, edits []Edit, layout *extract.Layout) (*Result, error) {
	res, oob, err := applyAggressive(original, edits, layout)
	if err != nil {
		return nil, err
	}
	if oob > 0 {
		return nil, &OffsetError{Offset: -1, Size: len(original)}
	}
	if !verify(res.Bytes, edits, layout) {
		return nil, ErrVerificationFailed
	}
	res.Applied = Safe
	return res, nil
}

// applyTestFirst probes all three strategies against in-memory copies, scores
// them and re-executes the winner. Scoring: a passing verification dominates,
// then fewer truncations, then fewer out-of-bounds table slots. Probe order
// breaks ties in favor of the safer strategy.
func applyTestFirst(original []byte, edits []Edit, layout *extract.Layout) (*Result, error) {
	type probe struct {
		strategy Strategy
		score    int
		ok       bool
	}

	probes := make([]probe, 0, 3)

	// Conservative: always length-preserving, verification cannot fail.
	cons := applyConservative(original, edits)
	probes = append(probes, probe{
		strategy: Conservative,
		score:    100 - 10*len(cons.Truncations),
		ok:       true,
	})

	// Safe: aggressive transform + verification.
	if res, oob, err := applyAggressive(original, edits, layout); err == nil {
		verified := oob == 0 && verify(res.Bytes, edits, layout)
		score := -50 * oob
		if verified {
			score += 100
		}
		probes = append(probes, probe{strategy: Safe, score: score, ok: verified})
	}

	// Aggressive: same transform without the verification gate, so it only
	// wins when the table survives intact.
	if res, oob, err := applyAggressive(original, edits, layout); err == nil {
		_ = res
		score := -50 * oob
		if oob == 0 {
			score += 100
		}
		probes = append(probes, probe{strategy: Aggressive, score: score, ok: oob == 0})
	}

	best := probes[0]
	for _, p := range probes[1:] {
		if p.ok && p.score > best.score {
			best = p
		}
	}

	log.Debug().Str("selected", best.strategy.String()).Int("score", best.score).
		Msg("Probe selected reinjection strategy")

	res, err := Reinject(original, edits, layout, best.strategy)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// verify checks the committed buffer: every replacement present at its shifted
// offset, and every offset-table slot pointing at a null-terminated string
// within bounds.
func verify(out []byte, edits []Edit, layout *extract.Layout) bool {
	for _, e := range edits {
		off := shiftPoint(edits, e.Offset)
		if off < 0 || off+len(e.New) > len(out) {
			return false
		}
		if !bytes.Equal(out[off:off+len(e.New)], e.New) {
			return false
		}
	}

	if layout != nil {
		for _, pos := range layout.Slots {
			newPos := shiftPoint(edits, pos)
			val, ok := layout.ReadSlot(out, newPos)
			if !ok || val >= len(out) {
				return false
			}
			if bytes.IndexByte(out[val:], 0x00) < 0 {
				return false
			}
		}
	}

	return true
}
