// Package ledger tracks the access state of owned values and their
// accessors while a trace is scanned. Every mutating operation returns a
// Status; anything other than StatusOK names the discipline it would break.
// The ledger itself is order-agnostic: callers decide when an accessor's
// window ends (explicit destruction, scope exit, or last-use retirement).
package ledger

// BorrowKind distinguishes shared (read-only) from exclusive (read/write)
// accessors.
type BorrowKind int

const (
	Shared BorrowKind = iota
	Exclusive
)

func (k BorrowKind) String() string {
	if k == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// Status reports the outcome of a ledger operation.
type Status int

const (
	_ Status = iota

	StatusOK
	StatusUnknownOwner
	StatusUnknownAccessor
	StatusDuplicateOwner
	StatusDuplicateAccessor
	StatusOwnerMoved
	StatusOwnerDestroyed
	StatusSharedWhileExclusive
	StatusExclusiveWhileShared
	StatusSecondExclusive
	StatusWriteThroughShared
	StatusOwnerWriteWhileBorrowed
	StatusOwnerReadWhileExclusive
	StatusParentUseWhileDerived
	StatusDeriveFromShared
	StatusUseAfterDestroy
	StatusMoveWhileBorrowed
	StatusDestroyWhileBorrowed
)

// ownerPhase is the lifecycle position of an owned value.
type ownerPhase int

const (
	ownerLive ownerPhase = iota
	ownerMoved
	ownerDestroyed
)

// ownerState carries the borrow bookkeeping for one live owner.
//
// Exclusive accessors form a chain: deriving an exclusive accessor through
// the active one pushes it onto the chain and suspends everything below.
// Shared accessors derived through the active exclusive live in leaves and
// suspend it while any of them is live. Direct shared accessors (taken
// against the owner itself) are mutually compatible and live in shared.
type ownerState struct {
	phase  ownerPhase
	shared map[int]struct{}
	chain  []int
	leaves map[int]struct{}
}

func (o *ownerState) borrowed() bool {
	return len(o.shared) > 0 || len(o.chain) > 0 || len(o.leaves) > 0
}

func (o *ownerState) activeExclusive() (int, bool) {
	if len(o.chain) == 0 {
		return 0, false
	}
	return o.chain[len(o.chain)-1], true
}

// accessorState carries the bookkeeping for one accessor.
type accessorState struct {
	owner   int
	kind    BorrowKind
	parent  int // accessor it was derived through, -1 for direct borrows
	derived bool
	dead    bool
}

// Ledger is the mutable access-state table for a single trace scan.
type Ledger struct {
	owners    map[int]*ownerState
	accessors map[int]*accessorState

	// IDs are single-assignment for the whole trace, dead or alive.
	seenOwners    map[int]struct{}
	seenAccessors map[int]struct{}
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		owners:        make(map[int]*ownerState),
		accessors:     make(map[int]*accessorState),
		seenOwners:    make(map[int]struct{}),
		seenAccessors: make(map[int]struct{}),
	}
}

// CreateOwner registers a fresh owned value.
func (l *Ledger) CreateOwner(id int) Status {
	if _, ok := l.seenOwners[id]; ok {
		return StatusDuplicateOwner
	}
	l.seenOwners[id] = struct{}{}
	l.owners[id] = &ownerState{
		shared: make(map[int]struct{}),
		leaves: make(map[int]struct{}),
	}
	return StatusOK
}

// liveOwner resolves an owner that must be live, mapping the dead phases to
// their dedicated statuses.
func (l *Ledger) liveOwner(id int) (*ownerState, Status) {
	o, ok := l.owners[id]
	if !ok {
		return nil, StatusUnknownOwner
	}
	switch o.phase {
	case ownerMoved:
		return nil, StatusOwnerMoved
	case ownerDestroyed:
		return nil, StatusOwnerDestroyed
	}
	return o, StatusOK
}

// MoveOwner transfers from's value into the fresh owner to. The source
// becomes dead; its past accessors must already be retired.
func (l *Ledger) MoveOwner(from, to int) Status {
	o, st := l.liveOwner(from)
	if st != StatusOK {
		return st
	}
	if o.borrowed() {
		return StatusMoveWhileBorrowed
	}
	if _, ok := l.seenOwners[to]; ok {
		return StatusDuplicateOwner
	}
	o.phase = ownerMoved
	return l.CreateOwner(to)
}

// CopyOwner duplicates from's value into the fresh owner to. Copying reads
// the source, so a live exclusive chain blocks it.
func (l *Ledger) CopyOwner(from, to int) Status {
	o, st := l.liveOwner(from)
	if st != StatusOK {
		return st
	}
	if len(o.chain) > 0 {
		return StatusOwnerReadWhileExclusive
	}
	if _, ok := l.seenOwners[to]; ok {
		return StatusDuplicateOwner
	}
	return l.CreateOwner(to)
}

// DestroyOwner ends an owner's lifetime.
func (l *Ledger) DestroyOwner(id int) Status {
	o, st := l.liveOwner(id)
	if st != StatusOK {
		return st
	}
	if o.borrowed() {
		return StatusDestroyWhileBorrowed
	}
	o.phase = ownerDestroyed
	return StatusOK
}

// ReadOwner reads the owned value directly, bypassing accessors.
func (l *Ledger) ReadOwner(id int) Status {
	o, st := l.liveOwner(id)
	if st != StatusOK {
		return st
	}
	if len(o.chain) > 0 {
		return StatusOwnerReadWhileExclusive
	}
	return StatusOK
}

// WriteOwner mutates the owned value directly.
func (l *Ledger) WriteOwner(id int) Status {
	o, st := l.liveOwner(id)
	if st != StatusOK {
		return st
	}
	if o.borrowed() {
		return StatusOwnerWriteWhileBorrowed
	}
	return StatusOK
}

// Borrow takes a direct accessor of the given kind against owner.
func (l *Ledger) Borrow(owner, accessor int, kind BorrowKind) Status {
	o, st := l.liveOwner(owner)
	if st != StatusOK {
		return st
	}
	if _, ok := l.seenAccessors[accessor]; ok {
		return StatusDuplicateAccessor
	}
	switch kind {
	case Shared:
		if len(o.chain) > 0 {
			return StatusSharedWhileExclusive
		}
	case Exclusive:
		if len(o.shared) > 0 {
			return StatusExclusiveWhileShared
		}
		if len(o.chain) > 0 {
			return StatusSecondExclusive
		}
	}

	l.seenAccessors[accessor] = struct{}{}
	l.accessors[accessor] = &accessorState{owner: owner, kind: kind, parent: -1}
	if kind == Shared {
		o.shared[accessor] = struct{}{}
	} else {
		o.chain = append(o.chain, accessor)
	}
	return StatusOK
}

// Derive takes an accessor of the given kind through the exclusive accessor
// parent. The parent must be the active end of its owner's exclusive chain;
// deriving through it counts as a use.
func (l *Ledger) Derive(parent, accessor int, kind BorrowKind) Status {
	p, ok := l.accessors[parent]
	if !ok {
		return StatusUnknownAccessor
	}
	if p.dead {
		return StatusUseAfterDestroy
	}
	if p.kind != Exclusive {
		return StatusDeriveFromShared
	}
	o := l.owners[p.owner]
	if active, _ := o.activeExclusive(); active != parent {
		return StatusParentUseWhileDerived
	}
	if _, ok := l.seenAccessors[accessor]; ok {
		return StatusDuplicateAccessor
	}
	if kind == Exclusive && len(o.leaves) > 0 {
		return StatusExclusiveWhileShared
	}

	l.seenAccessors[accessor] = struct{}{}
	l.accessors[accessor] = &accessorState{owner: p.owner, kind: kind, parent: parent, derived: true}
	if kind == Shared {
		o.leaves[accessor] = struct{}{}
	} else {
		o.chain = append(o.chain, accessor)
	}
	return StatusOK
}

// Use reads (write=false) or writes (write=true) through an accessor.
func (l *Ledger) Use(accessor int, write bool) Status {
	a, ok := l.accessors[accessor]
	if !ok {
		return StatusUnknownAccessor
	}
	if a.dead {
		return StatusUseAfterDestroy
	}
	if a.kind == Shared {
		if write {
			return StatusWriteThroughShared
		}
		return StatusOK
	}
	o := l.owners[a.owner]
	if active, _ := o.activeExclusive(); active != accessor || len(o.leaves) > 0 {
		return StatusParentUseWhileDerived
	}
	return StatusOK
}

// DestroyAccessor explicitly ends an accessor's window. An exclusive
// accessor cannot be destroyed while something derived through it is live.
func (l *Ledger) DestroyAccessor(accessor int) Status {
	a, ok := l.accessors[accessor]
	if !ok {
		return StatusUnknownAccessor
	}
	if a.dead {
		return StatusUseAfterDestroy
	}
	if a.kind == Exclusive {
		o := l.owners[a.owner]
		if active, _ := o.activeExclusive(); active != accessor || len(o.leaves) > 0 {
			return StatusParentUseWhileDerived
		}
	}
	l.end(accessor, a)
	return StatusOK
}

// Retire silently ends an accessor's window, used when its last use has
// passed or its scope exits. Returns false when the accessor is blocked by
// live accessors derived through it; the caller retries after retiring
// those. Dead or unknown accessors are a no-op.
func (l *Ledger) Retire(accessor int) bool {
	a, ok := l.accessors[accessor]
	if !ok || a.dead {
		return true
	}
	if a.kind == Exclusive {
		o := l.owners[a.owner]
		if active, _ := o.activeExclusive(); active != accessor || len(o.leaves) > 0 {
			return false
		}
	}
	l.end(accessor, a)
	return true
}

// end removes a live accessor from its owner's borrow bookkeeping.
func (l *Ledger) end(accessor int, a *accessorState) {
	a.dead = true
	o := l.owners[a.owner]
	if a.kind == Shared {
		if a.derived {
			delete(o.leaves, accessor)
		} else {
			delete(o.shared, accessor)
		}
		return
	}
	// Live exclusives are only removable from the active end, so this is a pop.
	o.chain = o.chain[:len(o.chain)-1]
}

// LiveAccessors returns the live accessors of owner, for diagnostics.
// Unknown or dead owners have none.
func (l *Ledger) LiveAccessors(owner int) []int {
	o, ok := l.owners[owner]
	if !ok || o.phase != ownerLive {
		return nil
	}
	var out []int
	for id := range o.shared {
		out = append(out, id)
	}
	out = append(out, o.chain...)
	for id := range o.leaves {
		out = append(out, id)
	}
	return out
}

// AccessorOwner reports which owner an accessor was taken against.
func (l *Ledger) AccessorOwner(accessor int) (int, bool) {
	a, ok := l.accessors[accessor]
	if !ok {
		return 0, false
	}
	return a.owner, true
}
