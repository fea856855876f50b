package analysis

import (
	"context"

	"x86scope/internal/addr"
	"x86scope/internal/disasm"
)

// Walk lists the code reachable from roots by following fall-through,
// branch and call edges with known targets. With no roots it starts at
// the entry point. Targets outside the view's range are not followed.
// At most limit lines are decoded; 0 means no limit. The result is in
// address order.
func (v *View) Walk(ctx context.Context, roots []addr.Address, limit int) (disasm.Stream, error) {
	if len(roots) == 0 {
		roots = []addr.Address{v.Entry}
	}
	var (
		out     disasm.Stream
		seen    = make(map[addr.Address]bool)
		pending []addr.Address
	)
	for i := len(roots) - 1; i >= 0; i-- {
		if v.Range.Contains(roots[i]) {
			pending = append(pending, roots[i])
		}
	}

	for len(pending) > 0 && (limit == 0 || len(out) < limit) {
		a := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		for limit == 0 || len(out) < limit {
			if err := ctx.Err(); err != nil {
				out.Sort()
				return out, err
			}
			if seen[a] {
				break
			}
			seen[a] = true

			line := v.DecodeAt(a)
			v.annotate(&line)
			out = append(out, line)
			if line.Err != nil {
				break
			}
			if line.HasTarget && v.Range.Contains(line.Target) && !seen[line.Target] {
				pending = append(pending, line.Target)
			}
			if line.Flow == disasm.FlowJump || line.Flow == disasm.FlowReturn || line.Flow == disasm.FlowStop {
				break
			}
			next := line.End()
			if !v.Range.Contains(next) || next.Less(a) {
				break
			}
			a = next
		}
	}
	out.Sort()
	v.Log.Debug("walk", "roots", len(roots), "lines", len(out))
	return out, nil
}
