// Package borrowcheck decides whether an ordered trace of ownership and
// borrowing events is well formed. A trace records the creation and
// destruction of owned values, the shared (read-only) and exclusive
// (read/write) accessors taken against them, and the uses of both.
// Checking enforces two invariants: the live accessors of an owner are
// either any number of shared accessors or exactly one exclusive accessor,
// never both; and no accessor may be used outside its owner's lifetime.
//
// An accessor's live window is narrowed to its last use, so an exclusive
// accessor created after a shared accessor's final read does not conflict
// with it.
package borrowcheck

import (
	"fmt"

	"github.com/bedoyama/borrowcheck/internal/region"
)

// OwnerID identifies an owned value within a trace.
type OwnerID int

// AccessorID identifies an accessor (a non-owning view) within a trace.
type AccessorID int

// ScopeID identifies a lexical scope within a trace.
type ScopeID int

// AccessMode says whether a Use event reads or writes through an accessor.
type AccessMode int

const (
	Read AccessMode = iota
	Write
)

func (m AccessMode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// EventKind enumerates the trace event vocabulary.
type EventKind int

const (
	kindInvalid EventKind = iota

	// CreateOwner brings an owned value to life.
	CreateOwner

	// DestroyOwner ends an owner's lifetime. Destroying an owner whose
	// accessors still have uses ahead is a violation.
	DestroyOwner

	// MoveOwner transfers the value of Owner into the fresh owner Target.
	// The source becomes dead; moving while any accessor is live is a
	// violation.
	MoveOwner

	// MoveOwnerOut is MoveOwner with the target held by the enclosing
	// scope, so a value created inside a scope can outlive it.
	MoveOwnerOut

	// CopyOwner duplicates the value of Owner into the fresh owner Target.
	// The source stays live. Copying reads the source, so it conflicts
	// with a live exclusive accessor.
	CopyOwner

	// CreateShared takes a shared (read-only) accessor against Owner.
	CreateShared

	// CreateExclusive takes an exclusive (read/write) accessor against Owner.
	CreateExclusive

	// DeriveShared takes a shared accessor through the exclusive accessor
	// Parent. The parent is suspended until the derived accessor's last use.
	DeriveShared

	// DeriveExclusive takes an exclusive accessor through the exclusive
	// accessor Parent. The parent is suspended until the derived accessor's
	// last use.
	DeriveExclusive

	// Use reads or writes through Accessor, per Mode. Writing through a
	// shared accessor is a violation.
	Use

	// DestroyAccessor explicitly ends an accessor's window. Any later use
	// of it is a violation.
	DestroyAccessor

	// ReadOwner reads the owned value directly. Conflicts with a live
	// exclusive accessor.
	ReadOwner

	// WriteOwner mutates the owned value directly. Conflicts with any live
	// accessor.
	WriteOwner

	// EnterScope opens a lexical scope. Owners and accessors created inside
	// it are implicitly destroyed when it exits.
	EnterScope

	// ExitScope closes the innermost open scope. Scope must match it.
	ExitScope
)

func (k EventKind) String() string {
	switch k {
	case CreateOwner:
		return "create-owner"
	case DestroyOwner:
		return "destroy-owner"
	case MoveOwner:
		return "move-owner"
	case MoveOwnerOut:
		return "move-owner-out"
	case CopyOwner:
		return "copy-owner"
	case CreateShared:
		return "create-shared"
	case CreateExclusive:
		return "create-exclusive"
	case DeriveShared:
		return "derive-shared"
	case DeriveExclusive:
		return "derive-exclusive"
	case Use:
		return "use"
	case DestroyAccessor:
		return "destroy-accessor"
	case ReadOwner:
		return "read-owner"
	case WriteOwner:
		return "write-owner"
	case EnterScope:
		return "enter-scope"
	case ExitScope:
		return "exit-scope"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one step of a trace. Which ID fields are meaningful depends on
// Kind: owner events use Owner (and Target for moves/copies), accessor
// events use Accessor (and Owner on creation, Parent on derivation), scope
// events use Scope.
type Event struct {
	Kind     EventKind
	Owner    OwnerID
	Target   OwnerID
	Accessor AccessorID
	Parent   AccessorID
	Scope    ScopeID
	Mode     AccessMode
}

// Trace is an ordered sequence of events against a set of owned values.
type Trace struct {
	Events []Event

	names    *nameTable // optional, attached by TraceBuilder
	scopeIdx *region.Index
}

// Len returns the number of events in the trace.
func (t *Trace) Len() int { return len(t.Events) }

// OwnerName resolves an owner ID to the name it was declared under, if the
// trace was produced by a TraceBuilder. Falls back to "owner#N".
func (t *Trace) OwnerName(id OwnerID) string {
	if t.names != nil {
		if name, ok := t.names.owners[id]; ok {
			return name
		}
	}
	return fmt.Sprintf("owner#%d", int(id))
}

// AccessorName resolves an accessor ID to its declared name, if available.
func (t *Trace) AccessorName(id AccessorID) string {
	if t.names != nil {
		if name, ok := t.names.accessors[id]; ok {
			return name
		}
	}
	return fmt.Sprintf("accessor#%d", int(id))
}

// ScopeName resolves a scope ID to its declared name, if available.
func (t *Trace) ScopeName(id ScopeID) string {
	if t.names != nil {
		if name, ok := t.names.scopes[id]; ok {
			return name
		}
	}
	return fmt.Sprintf("scope#%d", int(id))
}

// nameTable maps builder-assigned IDs back to their symbolic names for
// diagnostics.
type nameTable struct {
	owners    map[OwnerID]string
	accessors map[AccessorID]string
	scopes    map[ScopeID]string
}
