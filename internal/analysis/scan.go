package analysis

import (
	"context"
	"fmt"

	"x86scope/internal/addr"
	"x86scope/internal/disasm"
)

// LinearScan lists up to count lines starting at start, one after the
// other, until the end of the view's range. A count of 0 means no limit.
// Only file-backed bytes are swept: gaps such as .bss are skipped, and a
// start without file bytes yields a single placeholder line.
func (v *View) LinearScan(ctx context.Context, start addr.Address, count int) (disasm.Stream, error) {
	if !v.Range.Contains(start) {
		return nil, fmt.Errorf("%w: %s not in %s", ErrEntryOutOfRange, start, v.Range)
	}
	var out disasm.Stream
	if len(v.bytesAt(start)) == 0 {
		line := v.DecodeAt(start)
		v.annotate(&line)
		out = append(out, line)
	}
	a := start
	for _, s := range v.fileSpans() {
		if count != 0 && len(out) >= count {
			break
		}
		if s.hi.Less(a) {
			continue
		}
		lo := s.lo
		if lo.Less(a) {
			lo = a
		}
		left := 0
		if count != 0 {
			left = count - len(out)
		}
		lines, err := v.scan(ctx, lo, s.hi, left)
		out = append(out, lines...)
		if err != nil {
			return out, err
		}
		if len(lines) == 0 {
			continue
		}
		end := lines[len(lines)-1].End()
		if end.Less(lo) {
			break
		}
		a = end
	}
	return out, nil
}

// scan decodes sequentially from start while the address is at most last.
func (v *View) scan(ctx context.Context, start, last addr.Address, count int) (disasm.Stream, error) {
	var out disasm.Stream
	a := start
	for count == 0 || len(out) < count {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		line := v.DecodeAt(a)
		v.annotate(&line)
		out = append(out, line)

		next := line.End()
		// Stop at the end of the range, including when it wraps.
		if n := next.Sub(start); n > last.Sub(start) || n <= a.Sub(start) {
			break
		}
		a = next
	}
	v.Log.Debug("linear scan", "start", start, "lines", len(out))
	return out, nil
}
