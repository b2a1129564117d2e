package borrowcheck

import "fmt"

// Rule identifies the invariant a rejected trace breaks (BRW series).
//
// Rule numbering scheme:
//
//	000–099  structural trace validity
//	100–199  aliasing discipline (shared XOR exclusive)
//	200–299  validity windows and lifetimes
type Rule int

const (
	ruleInvalid Rule = iota

	BRW000UnknownOwner
	BRW010UnknownAccessor
	BRW020DuplicateOwner
	BRW030DuplicateAccessor
	BRW040UnbalancedScope
	BRW050DeriveFromShared
	BRW060MalformedEvent

	BRW100ExclusiveWhileShared
	BRW110SharedWhileExclusive
	BRW120SecondExclusive
	BRW130WriteThroughShared
	BRW140OwnerWriteWhileBorrowed
	BRW150OwnerReadWhileExclusive
	BRW160ParentUseWhileDerived

	BRW200UseAfterDestroy
	BRW210UseOfMoved
	BRW220UseOfDestroyedOwner
	BRW230MoveWhileBorrowed
	BRW240DestroyWhileBorrowed
)

// String returns the canonical code and short name of the rule.
// Example: "BRW100: ExclusiveWhileShared"
func (r Rule) String() string {
	switch r {
	case BRW000UnknownOwner:
		return "BRW000: UnknownOwner"
	case BRW010UnknownAccessor:
		return "BRW010: UnknownAccessor"
	case BRW020DuplicateOwner:
		return "BRW020: DuplicateOwner"
	case BRW030DuplicateAccessor:
		return "BRW030: DuplicateAccessor"
	case BRW040UnbalancedScope:
		return "BRW040: UnbalancedScope"
	case BRW050DeriveFromShared:
		return "BRW050: DeriveFromShared"
	case BRW060MalformedEvent:
		return "BRW060: MalformedEvent"
	case BRW100ExclusiveWhileShared:
		return "BRW100: ExclusiveWhileShared"
	case BRW110SharedWhileExclusive:
		return "BRW110: SharedWhileExclusive"
	case BRW120SecondExclusive:
		return "BRW120: SecondExclusive"
	case BRW130WriteThroughShared:
		return "BRW130: WriteThroughShared"
	case BRW140OwnerWriteWhileBorrowed:
		return "BRW140: OwnerWriteWhileBorrowed"
	case BRW150OwnerReadWhileExclusive:
		return "BRW150: OwnerReadWhileExclusive"
	case BRW160ParentUseWhileDerived:
		return "BRW160: ParentUseWhileDerived"
	case BRW200UseAfterDestroy:
		return "BRW200: UseAfterDestroy"
	case BRW210UseOfMoved:
		return "BRW210: UseOfMoved"
	case BRW220UseOfDestroyedOwner:
		return "BRW220: UseOfDestroyedOwner"
	case BRW230MoveWhileBorrowed:
		return "BRW230: MoveWhileBorrowed"
	case BRW240DestroyWhileBorrowed:
		return "BRW240: DestroyWhileBorrowed"
	default:
		return fmt.Sprintf("rule-unknown(%d)", int(r))
	}
}

// Description returns the human-readable explanation of the rule.
func (r Rule) Description() string {
	switch r {
	case BRW000UnknownOwner:
		return "Event references an owner that was never created."
	case BRW010UnknownAccessor:
		return "Event references an accessor that was never created."
	case BRW020DuplicateOwner:
		return "Owner ID is already in use by a live or past owner."
	case BRW030DuplicateAccessor:
		return "Accessor ID is already in use by a live or past accessor."
	case BRW040UnbalancedScope:
		return "Scope exit without a matching enter, or the trace ends with open scopes."
	case BRW050DeriveFromShared:
		return "An accessor can only be derived through an exclusive accessor."
	case BRW060MalformedEvent:
		return "Event kind is not part of the trace vocabulary."
	case BRW100ExclusiveWhileShared:
		return "An exclusive accessor cannot be created while shared accessors are live."
	case BRW110SharedWhileExclusive:
		return "A shared accessor cannot be created while an exclusive accessor is live."
	case BRW120SecondExclusive:
		return "At most one exclusive accessor may be live per owner."
	case BRW130WriteThroughShared:
		return "Shared accessors are read-only."
	case BRW140OwnerWriteWhileBorrowed:
		return "The owned value cannot be mutated while any accessor is live."
	case BRW150OwnerReadWhileExclusive:
		return "The owned value cannot be read while an exclusive accessor is live."
	case BRW160ParentUseWhileDerived:
		return "An exclusive accessor is suspended while an accessor derived from it is live."
	case BRW200UseAfterDestroy:
		return "Accessor used after its window ended."
	case BRW210UseOfMoved:
		return "Owner used after its value was moved out."
	case BRW220UseOfDestroyedOwner:
		return "Owner used after its lifetime ended."
	case BRW230MoveWhileBorrowed:
		return "A value cannot be moved while any accessor is live."
	case BRW240DestroyWhileBorrowed:
		return "An owner cannot be destroyed while an accessor still has uses ahead."
	default:
		return fmt.Sprintf("unknown-rule(%d)", int(r))
	}
}
