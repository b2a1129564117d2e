package borrowcheck

import (
	"errors"
	"fmt"
)

// TraceBuilder provides a fluent API for composing traces using string
// names instead of manual integer IDs. IDs are assigned sequentially in
// declaration order, so two builders fed the same calls produce identical
// traces. Misuse (an unknown or redeclared name) is collected and reported
// by Build.
type TraceBuilder struct {
	events []Event

	ownerIDs    map[string]OwnerID
	accessorIDs map[string]AccessorID

	ownerNames    map[OwnerID]string
	accessorNames map[AccessorID]string
	scopeNames    map[ScopeID]string

	nextOwner    OwnerID
	nextAccessor AccessorID
	nextScope    ScopeID

	errs []error
}

// NewTraceBuilder creates an empty trace builder.
func NewTraceBuilder() *TraceBuilder {
	return &TraceBuilder{
		ownerIDs:      make(map[string]OwnerID),
		accessorIDs:   make(map[string]AccessorID),
		ownerNames:    make(map[OwnerID]string),
		accessorNames: make(map[AccessorID]string),
		scopeNames:    make(map[ScopeID]string),
		nextOwner:     1,
		nextAccessor:  1,
		nextScope:     1,
	}
}

// Owner declares a fresh owned value.
func (b *TraceBuilder) Owner(name string) *TraceBuilder {
	id, ok := b.declareOwner(name)
	if !ok {
		return b
	}
	b.events = append(b.events, Event{Kind: CreateOwner, Owner: id})
	return b
}

// Destroy ends an owner's lifetime explicitly.
func (b *TraceBuilder) Destroy(name string) *TraceBuilder {
	id, ok := b.owner(name)
	if !ok {
		return b
	}
	b.events = append(b.events, Event{Kind: DestroyOwner, Owner: id})
	return b
}

// Move transfers from's value into the freshly declared owner to.
func (b *TraceBuilder) Move(from, to string) *TraceBuilder {
	src, ok := b.owner(from)
	if !ok {
		return b
	}
	dst, ok := b.declareOwner(to)
	if !ok {
		return b
	}
	b.events = append(b.events, Event{Kind: MoveOwner, Owner: src, Target: dst})
	return b
}

// MoveOut is Move with the target owned by the enclosing scope. Inside a
// Scope callback this lets the moved value outlive the block, the way a
// function hands its result to the caller.
func (b *TraceBuilder) MoveOut(from, to string) *TraceBuilder {
	src, ok := b.owner(from)
	if !ok {
		return b
	}
	dst, ok := b.declareOwner(to)
	if !ok {
		return b
	}
	b.events = append(b.events, Event{Kind: MoveOwnerOut, Owner: src, Target: dst})
	return b
}

// Copy duplicates from's value into the freshly declared owner to.
func (b *TraceBuilder) Copy(from, to string) *TraceBuilder {
	src, ok := b.owner(from)
	if !ok {
		return b
	}
	dst, ok := b.declareOwner(to)
	if !ok {
		return b
	}
	b.events = append(b.events, Event{Kind: CopyOwner, Owner: src, Target: dst})
	return b
}

// Shared takes a shared accessor with the given name against owner.
func (b *TraceBuilder) Shared(name, owner string) *TraceBuilder {
	return b.borrow(CreateShared, name, owner)
}

// Exclusive takes an exclusive accessor with the given name against owner.
func (b *TraceBuilder) Exclusive(name, owner string) *TraceBuilder {
	return b.borrow(CreateExclusive, name, owner)
}

func (b *TraceBuilder) borrow(kind EventKind, name, owner string) *TraceBuilder {
	oid, ok := b.owner(owner)
	if !ok {
		return b
	}
	aid, ok := b.declareAccessor(name)
	if !ok {
		return b
	}
	b.events = append(b.events, Event{Kind: kind, Owner: oid, Accessor: aid})
	return b
}

// DeriveShared takes a shared accessor through the exclusive accessor
// parent (a reborrow).
func (b *TraceBuilder) DeriveShared(name, parent string) *TraceBuilder {
	return b.derive(DeriveShared, name, parent)
}

// DeriveExclusive takes an exclusive accessor through the exclusive
// accessor parent.
func (b *TraceBuilder) DeriveExclusive(name, parent string) *TraceBuilder {
	return b.derive(DeriveExclusive, name, parent)
}

func (b *TraceBuilder) derive(kind EventKind, name, parent string) *TraceBuilder {
	pid, ok := b.accessor(parent)
	if !ok {
		return b
	}
	aid, ok := b.declareAccessor(name)
	if !ok {
		return b
	}
	b.events = append(b.events, Event{Kind: kind, Accessor: aid, Parent: pid})
	return b
}

// Read reads through an accessor.
func (b *TraceBuilder) Read(accessor string) *TraceBuilder {
	return b.use(accessor, Read)
}

// Write writes through an accessor.
func (b *TraceBuilder) Write(accessor string) *TraceBuilder {
	return b.use(accessor, Write)
}

func (b *TraceBuilder) use(accessor string, mode AccessMode) *TraceBuilder {
	id, ok := b.accessor(accessor)
	if !ok {
		return b
	}
	b.events = append(b.events, Event{Kind: Use, Accessor: id, Mode: mode})
	return b
}

// Drop explicitly ends an accessor's window.
func (b *TraceBuilder) Drop(accessor string) *TraceBuilder {
	id, ok := b.accessor(accessor)
	if !ok {
		return b
	}
	b.events = append(b.events, Event{Kind: DestroyAccessor, Accessor: id})
	return b
}

// ReadValue reads an owned value directly, without an accessor.
func (b *TraceBuilder) ReadValue(owner string) *TraceBuilder {
	id, ok := b.owner(owner)
	if !ok {
		return b
	}
	b.events = append(b.events, Event{Kind: ReadOwner, Owner: id})
	return b
}

// WriteValue mutates an owned value directly.
func (b *TraceBuilder) WriteValue(owner string) *TraceBuilder {
	id, ok := b.owner(owner)
	if !ok {
		return b
	}
	b.events = append(b.events, Event{Kind: WriteOwner, Owner: id})
	return b
}

// Scope runs fn inside a fresh anonymous scope. Everything declared inside
// is implicitly destroyed when the scope exits, so builder traces have
// balanced scopes by construction.
func (b *TraceBuilder) Scope(fn func(*TraceBuilder)) *TraceBuilder {
	return b.scope("", fn)
}

// ScopeNamed is Scope with a name for diagnostics.
func (b *TraceBuilder) ScopeNamed(name string, fn func(*TraceBuilder)) *TraceBuilder {
	return b.scope(name, fn)
}

func (b *TraceBuilder) scope(name string, fn func(*TraceBuilder)) *TraceBuilder {
	id := b.nextScope
	b.nextScope++
	if name == "" {
		name = fmt.Sprintf("scope#%d", int(id))
	}
	b.scopeNames[id] = name
	b.events = append(b.events, Event{Kind: EnterScope, Scope: id})
	fn(b)
	b.events = append(b.events, Event{Kind: ExitScope, Scope: id})
	return b
}

// CaptureShared records a closure capturing owner by shared reference: the
// capture is an ordinary shared accessor held for the closure's lifetime.
func (b *TraceBuilder) CaptureShared(name, owner string) *TraceBuilder {
	return b.Shared(name, owner)
}

// CaptureExclusive records a closure capturing owner by mutable reference.
func (b *TraceBuilder) CaptureExclusive(name, owner string) *TraceBuilder {
	return b.Exclusive(name, owner)
}

// CaptureMove records a closure taking ownership of its capture: the value
// moves into the closure's environment under the name into.
func (b *TraceBuilder) CaptureMove(owner, into string) *TraceBuilder {
	return b.Move(owner, into)
}

// Build returns the composed trace, or an error describing every name
// misuse recorded along the way.
func (b *TraceBuilder) Build() (*Trace, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	events := make([]Event, len(b.events))
	copy(events, b.events)
	return &Trace{
		Events: events,
		names: &nameTable{
			owners:    b.ownerNames,
			accessors: b.accessorNames,
			scopes:    b.scopeNames,
		},
	}, nil
}

// OwnerID returns the ID assigned to an owner name, or 0 if undeclared.
func (b *TraceBuilder) OwnerID(name string) OwnerID { return b.ownerIDs[name] }

// AccessorID returns the ID assigned to an accessor name, or 0 if undeclared.
func (b *TraceBuilder) AccessorID(name string) AccessorID { return b.accessorIDs[name] }

// --- Name bookkeeping -----------------------------------------------------

func (b *TraceBuilder) declareOwner(name string) (OwnerID, bool) {
	if _, exists := b.ownerIDs[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("owner %q redeclared", name))
		return 0, false
	}
	id := b.nextOwner
	b.nextOwner++
	b.ownerIDs[name] = id
	b.ownerNames[id] = name
	return id, true
}

func (b *TraceBuilder) declareAccessor(name string) (AccessorID, bool) {
	if _, exists := b.accessorIDs[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("accessor %q redeclared", name))
		return 0, false
	}
	id := b.nextAccessor
	b.nextAccessor++
	b.accessorIDs[name] = id
	b.accessorNames[id] = name
	return id, true
}

func (b *TraceBuilder) owner(name string) (OwnerID, bool) {
	id, ok := b.ownerIDs[name]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("unknown owner %q", name))
	}
	return id, ok
}

func (b *TraceBuilder) accessor(name string) (AccessorID, bool) {
	id, ok := b.accessorIDs[name]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("unknown accessor %q", name))
	}
	return id, ok
}
