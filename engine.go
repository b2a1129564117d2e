package borrowcheck

import (
	"fmt"

	"github.com/bedoyama/borrowcheck/internal/ledger"
)

// Violation is one rejected event: where it sits in the trace, which rule
// it breaks, and a rendered message. Scopes lists the lexical scopes
// enclosing the event, outermost first.
type Violation struct {
	Index   int
	Rule    Rule
	Event   Event
	Scopes  []ScopeID
	Message string
}

func (v *Violation) String() string {
	return fmt.Sprintf("event %d [%s]: %s", v.Index, v.Rule, v.Message)
}

// scopeFrame tracks one open lexical scope during a scan.
type scopeFrame struct {
	id    ScopeID
	start int

	// creation order of everything declared in this scope, for implicit
	// destruction in reverse order at exit
	owners    []OwnerID
	accessors []AccessorID
}

// engine applies trace events to a ledger and renders violations. It is
// shared by the batch checker and Stream; last-use retirement is the batch
// checker's job and happens outside of apply.
type engine struct {
	trace  *Trace // nil for streams: name resolution falls back to IDs
	led    *ledger.Ledger
	scopes []scopeFrame
	seen   map[ScopeID]struct{}

	// last is the last-use table in batch mode, nil in stream mode. With
	// it, apply can reject an accessor that outlives its scope at the exit
	// event instead of at the later dangling use.
	last map[AccessorID]int
}

func newEngine(trace *Trace, last map[AccessorID]int) *engine {
	return &engine{
		trace: trace,
		led:   ledger.New(),
		seen:  make(map[ScopeID]struct{}),
		last:  last,
	}
}

// apply processes the event at index i. It returns nil when the event is
// fine and the first violation it causes otherwise. The ledger is left
// untouched by rejected operations, so scanning may continue after a
// violation in keep-going mode.
func (e *engine) apply(i int, ev Event) *Violation {
	switch ev.Kind {
	case CreateOwner:
		if st := e.led.CreateOwner(int(ev.Owner)); st != ledger.StatusOK {
			return e.violation(i, ev, st)
		}
		e.noteOwner(ev.Owner)
	case DestroyOwner:
		if st := e.led.DestroyOwner(int(ev.Owner)); st != ledger.StatusOK {
			return e.violation(i, ev, st)
		}
	case MoveOwner:
		if st := e.led.MoveOwner(int(ev.Owner), int(ev.Target)); st != ledger.StatusOK {
			return e.violation(i, ev, st)
		}
		e.noteOwner(ev.Target)
	case MoveOwnerOut:
		if st := e.led.MoveOwner(int(ev.Owner), int(ev.Target)); st != ledger.StatusOK {
			return e.violation(i, ev, st)
		}
		e.noteOwnerOut(ev.Target)
	case CopyOwner:
		if st := e.led.CopyOwner(int(ev.Owner), int(ev.Target)); st != ledger.StatusOK {
			return e.violation(i, ev, st)
		}
		e.noteOwner(ev.Target)
	case CreateShared:
		if st := e.led.Borrow(int(ev.Owner), int(ev.Accessor), ledger.Shared); st != ledger.StatusOK {
			return e.violation(i, ev, st)
		}
		e.noteAccessor(ev.Accessor)
	case CreateExclusive:
		if st := e.led.Borrow(int(ev.Owner), int(ev.Accessor), ledger.Exclusive); st != ledger.StatusOK {
			return e.violation(i, ev, st)
		}
		e.noteAccessor(ev.Accessor)
	case DeriveShared:
		if st := e.led.Derive(int(ev.Parent), int(ev.Accessor), ledger.Shared); st != ledger.StatusOK {
			return e.violation(i, ev, st)
		}
		e.noteAccessor(ev.Accessor)
	case DeriveExclusive:
		if st := e.led.Derive(int(ev.Parent), int(ev.Accessor), ledger.Exclusive); st != ledger.StatusOK {
			return e.violation(i, ev, st)
		}
		e.noteAccessor(ev.Accessor)
	case Use:
		if st := e.led.Use(int(ev.Accessor), ev.Mode == Write); st != ledger.StatusOK {
			return e.violation(i, ev, st)
		}
	case DestroyAccessor:
		if st := e.led.DestroyAccessor(int(ev.Accessor)); st != ledger.StatusOK {
			return e.violation(i, ev, st)
		}
	case ReadOwner:
		if st := e.led.ReadOwner(int(ev.Owner)); st != ledger.StatusOK {
			return e.violation(i, ev, st)
		}
	case WriteOwner:
		if st := e.led.WriteOwner(int(ev.Owner)); st != ledger.StatusOK {
			return e.violation(i, ev, st)
		}
	case EnterScope:
		if _, ok := e.seen[ev.Scope]; ok {
			return e.structural(i, ev, BRW040UnbalancedScope,
				fmt.Sprintf("scope %s reopened", e.scopeName(ev.Scope)))
		}
		e.seen[ev.Scope] = struct{}{}
		e.scopes = append(e.scopes, scopeFrame{id: ev.Scope, start: i})
	case ExitScope:
		return e.exitScope(i, ev)
	default:
		return e.structural(i, ev, BRW060MalformedEvent,
			fmt.Sprintf("event kind %d is not recognized", int(ev.Kind)))
	}
	return nil
}

// exitScope closes the innermost scope and implicitly destroys everything
// declared in it, in reverse creation order.
func (e *engine) exitScope(i int, ev Event) *Violation {
	if len(e.scopes) == 0 {
		return e.structural(i, ev, BRW040UnbalancedScope, "scope exit with no open scope")
	}
	top := e.scopes[len(e.scopes)-1]
	if top.id != ev.Scope {
		return e.structural(i, ev, BRW040UnbalancedScope,
			fmt.Sprintf("scope exit for %s while %s is innermost",
				e.scopeName(ev.Scope), e.scopeName(top.id)))
	}

	// With last-use knowledge, an accessor that is still needed after its
	// scope ends is dangling and gets rejected here. Without it (streams),
	// the later use trips use-after-destroy instead.
	if e.last != nil {
		for _, a := range top.accessors {
			if e.last[a] > i {
				return e.structural(i, ev, BRW240DestroyWhileBorrowed,
					fmt.Sprintf("accessor %s is used after its scope %s exits",
						e.accessorName(a), e.scopeName(top.id)))
			}
		}
	}

	for k := len(top.accessors) - 1; k >= 0; k-- {
		e.led.Retire(int(top.accessors[k]))
	}
	for k := len(top.owners) - 1; k >= 0; k-- {
		id := top.owners[k]
		st := e.led.DestroyOwner(int(id))
		switch st {
		case ledger.StatusOK, ledger.StatusOwnerMoved, ledger.StatusOwnerDestroyed:
			// moved-from and explicitly destroyed owners have nothing left
		default:
			return e.violation(i, Event{Kind: DestroyOwner, Owner: id}, st)
		}
	}

	e.scopes = e.scopes[:len(e.scopes)-1]
	return nil
}

// noteOwner records an owner in the innermost open scope for implicit
// destruction. Top-level owners live until explicitly destroyed.
func (e *engine) noteOwner(id OwnerID) {
	if len(e.scopes) == 0 {
		return
	}
	top := &e.scopes[len(e.scopes)-1]
	top.owners = append(top.owners, id)
}

// noteOwnerOut records a move target one frame out, so the value escapes
// the scope it was produced in. With fewer than two open scopes the
// target belongs to the trace top level and is never implicitly destroyed.
func (e *engine) noteOwnerOut(id OwnerID) {
	if len(e.scopes) < 2 {
		return
	}
	enc := &e.scopes[len(e.scopes)-2]
	enc.owners = append(enc.owners, id)
}

func (e *engine) noteAccessor(id AccessorID) {
	if len(e.scopes) == 0 {
		return
	}
	top := &e.scopes[len(e.scopes)-1]
	top.accessors = append(top.accessors, id)
}

// retire ends the windows of accessors whose last use has passed. Blocked
// retirements (an accessor something is still derived through) resolve
// within the same bucket because descendants never outlive their parent's
// window.
func (e *engine) retire(pending []AccessorID) {
	for len(pending) > 0 {
		progress := false
		var next []AccessorID
		for _, a := range pending {
			if e.led.Retire(int(a)) {
				progress = true
			} else {
				next = append(next, a)
			}
		}
		if !progress {
			return
		}
		pending = next
	}
}

// scopesAt resolves the scopes enclosing event i. Batch scans have the
// whole trace and use its span index; streams only know what is open now.
func (e *engine) scopesAt(i int) []ScopeID {
	if e.trace != nil {
		return e.trace.ScopesAt(i)
	}
	return e.openScopes()
}

// openScopes snapshots the IDs of currently open scopes, outermost first.
func (e *engine) openScopes() []ScopeID {
	if len(e.scopes) == 0 {
		return nil
	}
	out := make([]ScopeID, len(e.scopes))
	for i, f := range e.scopes {
		out[i] = f.id
	}
	return out
}

// --- Violation rendering --------------------------------------------------

func (e *engine) violation(i int, ev Event, st ledger.Status) *Violation {
	r := ruleFor(st)
	return &Violation{
		Index:   i,
		Rule:    r,
		Event:   ev,
		Scopes:  e.scopesAt(i),
		Message: fmt.Sprintf("%s %s: %s", ev.Kind, e.subject(ev), r.Description()),
	}
}

func (e *engine) structural(i int, ev Event, r Rule, msg string) *Violation {
	return &Violation{Index: i, Rule: r, Event: ev, Scopes: e.scopesAt(i), Message: msg}
}

// subject names the IDs an event acts on, for messages.
func (e *engine) subject(ev Event) string {
	switch ev.Kind {
	case CreateOwner, DestroyOwner, ReadOwner, WriteOwner:
		return e.ownerName(ev.Owner)
	case MoveOwner, MoveOwnerOut, CopyOwner:
		return fmt.Sprintf("%s -> %s", e.ownerName(ev.Owner), e.ownerName(ev.Target))
	case CreateShared, CreateExclusive:
		return fmt.Sprintf("%s of %s", e.accessorName(ev.Accessor), e.ownerName(ev.Owner))
	case DeriveShared, DeriveExclusive:
		return fmt.Sprintf("%s through %s", e.accessorName(ev.Accessor), e.accessorName(ev.Parent))
	case Use:
		return fmt.Sprintf("(%s) %s", ev.Mode, e.accessorName(ev.Accessor))
	case DestroyAccessor:
		return e.accessorName(ev.Accessor)
	case EnterScope, ExitScope:
		return e.scopeName(ev.Scope)
	default:
		return "?"
	}
}

func (e *engine) ownerName(id OwnerID) string {
	if e.trace != nil {
		return e.trace.OwnerName(id)
	}
	return fmt.Sprintf("owner#%d", int(id))
}

func (e *engine) accessorName(id AccessorID) string {
	if e.trace != nil {
		return e.trace.AccessorName(id)
	}
	return fmt.Sprintf("accessor#%d", int(id))
}

func (e *engine) scopeName(id ScopeID) string {
	if e.trace != nil {
		return e.trace.ScopeName(id)
	}
	return fmt.Sprintf("scope#%d", int(id))
}

// ruleFor maps a ledger status to the rule it violates.
func ruleFor(st ledger.Status) Rule {
	switch st {
	case ledger.StatusUnknownOwner:
		return BRW000UnknownOwner
	case ledger.StatusUnknownAccessor:
		return BRW010UnknownAccessor
	case ledger.StatusDuplicateOwner:
		return BRW020DuplicateOwner
	case ledger.StatusDuplicateAccessor:
		return BRW030DuplicateAccessor
	case ledger.StatusOwnerMoved:
		return BRW210UseOfMoved
	case ledger.StatusOwnerDestroyed:
		return BRW220UseOfDestroyedOwner
	case ledger.StatusSharedWhileExclusive:
		return BRW110SharedWhileExclusive
	case ledger.StatusExclusiveWhileShared:
		return BRW100ExclusiveWhileShared
	case ledger.StatusSecondExclusive:
		return BRW120SecondExclusive
	case ledger.StatusWriteThroughShared:
		return BRW130WriteThroughShared
	case ledger.StatusOwnerWriteWhileBorrowed:
		return BRW140OwnerWriteWhileBorrowed
	case ledger.StatusOwnerReadWhileExclusive:
		return BRW150OwnerReadWhileExclusive
	case ledger.StatusParentUseWhileDerived:
		return BRW160ParentUseWhileDerived
	case ledger.StatusDeriveFromShared:
		return BRW050DeriveFromShared
	case ledger.StatusUseAfterDestroy:
		return BRW200UseAfterDestroy
	case ledger.StatusMoveWhileBorrowed:
		return BRW230MoveWhileBorrowed
	case ledger.StatusDestroyWhileBorrowed:
		return BRW240DestroyWhileBorrowed
	default:
		return BRW060MalformedEvent
	}
}
