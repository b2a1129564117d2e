package borrowcheck_test

import (
	"testing"

	. "github.com/bedoyama/borrowcheck"
)

// A shared accessor's window ends at its last use, so an exclusive
// accessor created after that point does not conflict with it even though
// the shared accessor was never explicitly destroyed.
func TestNarrowingAllowsExclusiveAfterLastSharedUse(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("x").
			Shared("r", "x").
			Read("r"). // last use of r
			Exclusive("w", "x").
			Write("w").
			Destroy("x")
	})

	if verdict := Check(trace); !verdict.OK {
		t.Fatalf("expected acceptance, got %v", verdict.First())
	}
}

// The same trace with the read moved after the exclusive creation makes
// the windows overlap and gets rejected at the exclusive creation.
func TestNarrowingRejectsOverlappingWindows(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("x").
			Shared("r", "x").
			Exclusive("w", "x"). // index 2: r is read later
			Read("r").
			Destroy("x")
	})

	verdict := Check(trace)
	if verdict.OK {
		t.Fatal("expected rejection")
	}
	v := verdict.First()
	if v.Rule != BRW100ExclusiveWhileShared {
		t.Errorf("expected %s, got %s", BRW100ExclusiveWhileShared, v.Rule)
	}
	if v.Index != 2 {
		t.Errorf("expected violation at event 2, got %d", v.Index)
	}
}

// An accessor that is never used expires right after creation and blocks
// nothing.
func TestNarrowingExpiresUnusedAccessors(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("x").
			Shared("r", "x"). // never used
			Exclusive("w", "x").
			Write("w").
			Destroy("x")
	})

	if verdict := Check(trace); !verdict.OK {
		t.Fatalf("expected acceptance, got %v", verdict.First())
	}
}

// An exclusive accessor past its last use stops blocking shared ones.
func TestNarrowingAllowsSharedAfterLastExclusiveUse(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("x").
			Exclusive("w", "x").
			Write("w"). // last use of w
			Shared("r1", "x").
			Shared("r2", "x").
			Read("r1").Read("r2").
			Destroy("x")
	})

	if verdict := Check(trace); !verdict.OK {
		t.Fatalf("expected acceptance, got %v", verdict.First())
	}
}

// An explicit destruction pins the window open: the accessor stays live
// up to its drop even when its last use came earlier.
func TestExplicitDropPinsWindow(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("x").
			Shared("r", "x").
			Read("r").
			Exclusive("w", "x"). // index 3: r lives until its drop
			Drop("r")
	})

	verdict := Check(trace)
	if verdict.OK {
		t.Fatal("expected rejection")
	}
	if v := verdict.First(); v.Rule != BRW100ExclusiveWhileShared || v.Index != 3 {
		t.Errorf("expected %s at event 3, got %s at %d", BRW100ExclusiveWhileShared, v.Rule, v.Index)
	}
}

// A drop after the last use is fine on its own; the window simply runs to
// the drop.
func TestExplicitDropAfterLastUse(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("x").
			Shared("r", "x").
			Read("r").
			Drop("r").
			Exclusive("w", "x").
			Write("w").
			Destroy("x")
	})

	if verdict := Check(trace); !verdict.OK {
		t.Fatalf("expected acceptance, got %v", verdict.First())
	}
}

// Narrowing lets an owner be destroyed once all its accessors are past
// their last use, without explicit drops.
func TestNarrowingUnblocksOwnerDestruction(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("x").
			Shared("r", "x").
			Read("r").
			Destroy("x")
	})

	if verdict := Check(trace); !verdict.OK {
		t.Fatalf("expected acceptance, got %v", verdict.First())
	}
}
