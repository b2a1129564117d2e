package borrowcheck

import "github.com/bedoyama/borrowcheck/internal/region"

// ScopesAt returns the lexical scopes enclosing the event at index i,
// outermost first. Scopes that never exit are treated as covering the rest
// of the trace. The index is built once per trace; traces are not meant to
// be mutated after checking begins.
func (t *Trace) ScopesAt(i int) []ScopeID {
	if t.scopeIdx == nil {
		t.scopeIdx = buildScopeIndex(t.Events)
	}
	chain := t.scopeIdx.ChainAt(i)
	if len(chain) == 0 {
		return nil
	}
	out := make([]ScopeID, len(chain))
	for k, id := range chain {
		out[k] = ScopeID(id)
	}
	return out
}

// buildScopeIndex collects scope spans with a balance scan. Mismatched
// exits are skipped here; the checker reports them as violations on its
// own pass.
func buildScopeIndex(events []Event) *region.Index {
	idx := region.NewIndex()
	type frame struct {
		id    ScopeID
		start int
	}
	var open []frame
	for i, ev := range events {
		switch ev.Kind {
		case EnterScope:
			open = append(open, frame{id: ev.Scope, start: i})
		case ExitScope:
			if len(open) == 0 || open[len(open)-1].id != ev.Scope {
				continue
			}
			top := open[len(open)-1]
			open = open[:len(open)-1]
			idx.Add(int(top.id), top.start, i)
		}
	}
	for _, f := range open {
		idx.Add(int(f.id), f.start, len(events)-1)
	}
	return idx
}
