package borrowcheck_test

import (
	"testing"

	. "github.com/bedoyama/borrowcheck"
)

// Everything declared inside a scope is implicitly destroyed when it
// exits; the surrounding trace continues untouched.
func TestScopeImplicitDestruction(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("x")
		b.Scope(func(b *TraceBuilder) {
			b.Owner("y").
				Shared("r", "y").
				Read("r")
		})
		b.Destroy("x")
	})

	if verdict := Check(trace); !verdict.OK {
		t.Fatalf("expected acceptance, got %v", verdict.First())
	}
}

// Scopes nest; each level tears down its own declarations.
func TestScopesNest(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("x")
		b.Scope(func(b *TraceBuilder) {
			b.Exclusive("w", "x").Write("w")
			b.Scope(func(b *TraceBuilder) {
				b.Owner("y").
					Shared("r", "y").
					Read("r")
			})
			b.Write("w")
		})
		b.WriteValue("x").Destroy("x")
	})

	if verdict := Check(trace); !verdict.OK {
		t.Fatalf("expected acceptance, got %v", verdict.First())
	}
}

// An accessor that still has uses ahead when its scope exits is dangling;
// the rejection lands on the exit event, not the later use.
func TestScopeExitRejectsDanglingAccessor(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("x") // 0
		b.Scope(func(b *TraceBuilder) {
			b.Shared("r", "x") // 2, inside enter at 1
		}) // exit at 3
		b.Read("r") // 4
	})

	verdict := Check(trace)
	if verdict.OK {
		t.Fatal("expected rejection")
	}
	if v := verdict.First(); v.Rule != BRW240DestroyWhileBorrowed || v.Index != 3 {
		t.Errorf("expected %s at event 3, got %s at %d", BRW240DestroyWhileBorrowed, v.Rule, v.Index)
	}
}

// An owner declared in a scope is dead once the scope exits.
func TestScopeExitDestroysOwners(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Scope(func(b *TraceBuilder) {
			b.Owner("y").WriteValue("y")
		})
		b.ReadValue("y") // 4
	})

	verdict := Check(trace)
	if verdict.OK {
		t.Fatal("expected rejection")
	}
	if v := verdict.First(); v.Rule != BRW220UseOfDestroyedOwner || v.Index != 4 {
		t.Errorf("expected %s at event 4, got %s at %d", BRW220UseOfDestroyedOwner, v.Rule, v.Index)
	}
}

// An owner already destroyed or moved inside its scope is not destroyed
// again at exit.
func TestScopeExitSkipsConsumedOwners(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Scope(func(b *TraceBuilder) {
			b.Owner("y").Destroy("y")
			b.Owner("z").Move("z", "z2")
		})
	})

	if verdict := Check(trace); !verdict.OK {
		t.Fatalf("expected acceptance, got %v", verdict.First())
	}
}

// Structural scope errors are only expressible in raw traces; the builder
// balances by construction.
func TestScopeStructure(t *testing.T) {
	tests := []struct {
		name      string
		events    []Event
		wantIndex int
	}{
		{
			name: "exit with no open scope",
			events: []Event{
				{Kind: ExitScope, Scope: 1},
			},
			wantIndex: 0,
		},
		{
			name: "exit does not match innermost",
			events: []Event{
				{Kind: EnterScope, Scope: 1},
				{Kind: EnterScope, Scope: 2},
				{Kind: ExitScope, Scope: 1},
			},
			wantIndex: 2,
		},
		{
			name: "scope reopened",
			events: []Event{
				{Kind: EnterScope, Scope: 1},
				{Kind: ExitScope, Scope: 1},
				{Kind: EnterScope, Scope: 1},
			},
			wantIndex: 2,
		},
		{
			name: "scope never exits",
			events: []Event{
				{Kind: EnterScope, Scope: 1},
				{Kind: CreateOwner, Owner: 1},
			},
			wantIndex: 0, // reported at the enter event
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := Check(&Trace{Events: tt.events})
			if verdict.OK {
				t.Fatal("expected rejection")
			}
			v := verdict.First()
			if v.Rule != BRW040UnbalancedScope {
				t.Errorf("expected %s, got %s", BRW040UnbalancedScope, v.Rule)
			}
			if v.Index != tt.wantIndex {
				t.Errorf("expected violation at event %d, got %d", tt.wantIndex, v.Index)
			}
		})
	}
}

// Violations carry the chain of scopes enclosing the offending event,
// outermost first.
func TestViolationScopeChain(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Owner("x")
		b.ScopeNamed("outer", func(b *TraceBuilder) {
			b.ScopeNamed("inner", func(b *TraceBuilder) {
				b.Shared("r", "x").
					Write("r") // violation
			})
		})
	})

	verdict := Check(trace)
	if verdict.OK {
		t.Fatal("expected rejection")
	}
	v := verdict.First()
	if len(v.Scopes) != 2 {
		t.Fatalf("expected 2 enclosing scopes, got %d", len(v.Scopes))
	}
	if got := trace.ScopeName(v.Scopes[0]); got != "outer" {
		t.Errorf("expected outermost scope %q, got %q", "outer", got)
	}
	if got := trace.ScopeName(v.Scopes[1]); got != "inner" {
		t.Errorf("expected innermost scope %q, got %q", "inner", got)
	}
}

// A value moved out of its scope survives the exit, the way a function
// hands its result to the caller.
func TestMoveOutEscapesScope(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Scope(func(b *TraceBuilder) {
			b.Owner("s").
				MoveOut("s", "result")
		})
		b.WriteValue("result")
	})

	if verdict := Check(trace); !verdict.OK {
		t.Fatalf("expected acceptance, got %v", verdict.First())
	}
}

// A plain move keeps the target in the innermost scope, so it dies at the
// exit and later uses are rejected.
func TestMoveWithoutOutDiesWithScope(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.Scope(func(b *TraceBuilder) {
			b.Owner("s").
				Move("s", "result")
		})
		b.WriteValue("result") // owner destroyed at the scope exit
	})

	verdict := Check(trace)
	if verdict.OK {
		t.Fatal("expected rejection")
	}
	v := verdict.First()
	if v.Index != 4 || v.Rule != BRW220UseOfDestroyedOwner {
		t.Fatalf("expected %s at event 4, got %s at event %d", BRW220UseOfDestroyedOwner, v.Rule, v.Index)
	}
}

// MoveOut lifts the target exactly one scope; the enclosing scope still
// destroys it on its own exit.
func TestMoveOutLiftsOneScope(t *testing.T) {
	trace := mustBuild(t, func(b *TraceBuilder) {
		b.ScopeNamed("outer", func(b *TraceBuilder) {
			b.Scope(func(b *TraceBuilder) {
				b.Owner("s").
					MoveOut("s", "mid")
			})
			b.WriteValue("mid")
		})
		b.WriteValue("mid") // destroyed when outer exits
	})

	verdict := Check(trace)
	if verdict.OK {
		t.Fatal("expected rejection")
	}
	v := verdict.First()
	if v.Index != 7 || v.Rule != BRW220UseOfDestroyedOwner {
		t.Fatalf("expected %s at event 7, got %s at event %d", BRW220UseOfDestroyedOwner, v.Rule, v.Index)
	}
}
