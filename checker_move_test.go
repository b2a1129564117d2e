package borrowcheck_test

import (
	"testing"

	. "github.com/bedoyama/borrowcheck"
)

// Moving transfers the value: the destination works like any fresh owner
// and the source is dead from the move on.
func TestMoveTransfersOwnership(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("a").
			Move("a", "b").
			Exclusive("w", "b").
			Write("w").
			Destroy("b")
	})

	if verdict := Check(trace); !verdict.OK {
		t.Fatalf("expected acceptance, got %v", verdict.First())
	}
}

// Any touch of a moved-from owner is rejected.
func TestMoveSourceIsDead(t *testing.T) {
	tests := []struct {
		name      string
		build     func(b *TraceBuilder)
		wantIndex int
	}{
		{
			name: "read of moved source",
			build: func(b *TraceBuilder) {
				b.Owner("a").Move("a", "b").ReadValue("a")
			},
			wantIndex: 2,
		},
		{
			name: "borrow of moved source",
			build: func(b *TraceBuilder) {
				b.Owner("a").Move("a", "b").Shared("r", "a")
			},
			wantIndex: 2,
		},
		{
			name: "second move of moved source",
			build: func(b *TraceBuilder) {
				b.Owner("a").Move("a", "b").Move("a", "c")
			},
			wantIndex: 2,
		},
		{
			name: "destroy of moved source",
			build: func(b *TraceBuilder) {
				b.Owner("a").Move("a", "b").Destroy("a")
			},
			wantIndex: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := Check(mustBuild(t, tt.build))
			if verdict.OK {
				t.Fatal("expected rejection")
			}
			v := verdict.First()
			if v.Rule != BRW210UseOfMoved {
				t.Errorf("expected %s, got %s", BRW210UseOfMoved, v.Rule)
			}
			if v.Index != tt.wantIndex {
				t.Errorf("expected violation at event %d, got %d", tt.wantIndex, v.Index)
			}
		})
	}
}

// Moving out while an accessor still has uses ahead is rejected at the
// move.
func TestMoveWhileBorrowed(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("a").
			Shared("r", "a").
			Move("a", "b"). // index 2: r is read later
			Read("r")
	})

	verdict := Check(trace)
	if verdict.OK {
		t.Fatal("expected rejection")
	}
	if v := verdict.First(); v.Rule != BRW230MoveWhileBorrowed || v.Index != 2 {
		t.Errorf("expected %s at event 2, got %s at %d", BRW230MoveWhileBorrowed, v.Rule, v.Index)
	}
}

// Once an accessor's window has closed, moving the owner is fine.
func TestMoveAfterWindowCloses(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("a").
			Shared("r", "a").
			Read("r"). // last use of r
			Move("a", "b").
			Destroy("b")
	})

	if verdict := Check(trace); !verdict.OK {
		t.Fatalf("expected acceptance, got %v", verdict.First())
	}
}

// Copying leaves the source live; both owners work afterwards.
func TestCopyKeepsSourceAlive(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("a").
			Copy("a", "b").
			ReadValue("a").
			WriteValue("b").
			Destroy("a").
			Destroy("b")
	})

	if verdict := Check(trace); !verdict.OK {
		t.Fatalf("expected acceptance, got %v", verdict.First())
	}
}

// Copying reads the source, so a live exclusive accessor blocks it. A
// live shared accessor does not.
func TestCopyConflictsWithExclusive(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("a").
			Exclusive("w", "a").
			Copy("a", "b"). // index 2: w is written later
			Write("w")
	})

	verdict := Check(trace)
	if verdict.OK {
		t.Fatal("expected rejection")
	}
	if v := verdict.First(); v.Rule != BRW150OwnerReadWhileExclusive || v.Index != 2 {
		t.Errorf("expected %s at event 2, got %s at %d", BRW150OwnerReadWhileExclusive, v.Rule, v.Index)
	}

	shared := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("a").
			Shared("r", "a").
			Copy("a", "b").
			Read("r").
			Destroy("b")
	})
	if verdict := Check(shared); !verdict.OK {
		t.Fatalf("expected acceptance beside shared accessor, got %v", verdict.First())
	}
}
