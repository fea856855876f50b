package analysis

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"x86scope/internal/addr"
	"x86scope/internal/disasm"
)

// DefaultChunk is the number of bytes each ParallelScan task decodes.
const DefaultChunk = 64 << 10

type span struct{ lo, hi addr.Address } // inclusive

// fileSpans are the parts of the view's range backed by file bytes, in
// address order.
func (v *View) fileSpans() []span {
	var out []span
	for _, l := range v.Image.Loads {
		if l.Filesz == 0 {
			continue
		}
		lo := v.Image.Address(l.Vaddr)
		hi := v.Image.Address(l.Vaddr + l.Filesz - 1)
		if hi.Less(v.Range.Low) || v.Range.High.Less(lo) || hi.Less(lo) {
			continue
		}
		if lo.Less(v.Range.Low) {
			lo = v.Range.Low
		}
		if v.Range.High.Less(hi) {
			hi = v.Range.High
		}
		out = append(out, span{lo, hi})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].lo.Less(out[j].lo) })
	return out
}

// ParallelScan lists every file-backed byte of the view's range the way a
// sequential sweep from the start of each segment would. Chunks of chunk
// bytes are decoded by up to workers goroutines, each assuming an
// instruction starts at its chunk; the chunks are then stitched together
// by re-decoding from the previous chunk's end until the two streams meet.
func (v *View) ParallelScan(ctx context.Context, workers int, chunk uint64) (disasm.Stream, error) {
	if workers < 1 {
		workers = 1
	}
	if chunk == 0 {
		chunk = DefaultChunk
	}

	type piece struct {
		span  int
		lo    addr.Address
		hi    addr.Address
		lines disasm.Stream
	}
	spans := v.fileSpans()
	var pieces []*piece
	for i, s := range spans {
		for lo := s.lo; ; {
			hi := s.hi
			if s.hi.Sub(lo) >= chunk {
				hi = lo.Add(chunk - 1)
			}
			pieces = append(pieces, &piece{span: i, lo: lo, hi: hi})
			if hi == s.hi {
				break
			}
			lo = hi.Add(1)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range pieces {
		g.Go(func() error {
			lines, err := v.scan(gctx, p.lo, p.hi, 0)
			p.lines = lines
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out disasm.Stream
	for i, p := range pieces {
		if i == 0 || pieces[i-1].span != p.span {
			out = append(out, p.lines...)
		} else {
			out = v.splice(out, p.lines)
		}
		last := i == len(pieces)-1 || pieces[i+1].span != p.span
		if last {
			out = v.finish(out, spans[p.span].hi)
		}
	}
	v.Log.Info("parallel scan", "spans", len(spans), "chunks", len(pieces), "workers", workers, "lines", len(out))
	return out, nil
}

// splice appends next to out, decoding the gap between the end of out and
// the first line of next that starts exactly there.
func (v *View) splice(out, next disasm.Stream) disasm.Stream {
	for len(out) > 0 {
		end := out[len(out)-1].End()
		i, ok := next.Find(end)
		if ok {
			return append(out, next[i:]...)
		}
		if i == len(next) {
			return out
		}
		line := v.DecodeAt(end)
		v.annotate(&line)
		out = append(out, line)
	}
	return append(out, next...)
}

// finish decodes any bytes left between the end of out and hi.
func (v *View) finish(out disasm.Stream, hi addr.Address) disasm.Stream {
	for len(out) > 0 {
		end := out[len(out)-1].End()
		if hi.Less(end) || end.Less(out[len(out)-1].Addr) {
			return out
		}
		line := v.DecodeAt(end)
		v.annotate(&line)
		out = append(out, line)
	}
	return out
}
