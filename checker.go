package borrowcheck

import "fmt"

// Verdict is the outcome of checking a trace. A rejected trace carries at
// least one violation; the first one is the rejection point. Rejection is
// fatal: an accepted trace has zero violations, there is no partial
// acceptance.
type Verdict struct {
	OK         bool
	Violations []Violation
}

// First returns the first violation, or nil for an accepted trace.
func (v Verdict) First() *Violation {
	if len(v.Violations) == 0 {
		return nil
	}
	return &v.Violations[0]
}

// Option applies configuration to a Checker.
type Option func(*Checker)

// WithKeepGoing makes Check scan past violations and collect every
// diagnostic instead of stopping at the first. The verdict is the same
// either way; later diagnostics are best-effort since state after a
// violation is an approximation.
func WithKeepGoing() Option {
	return func(c *Checker) { c.keepGoing = true }
}

// Checker decides whether traces are well formed.
//
// Checking is a pure function of the trace: a pre-pass computes each
// accessor's last use so that live windows narrow to it, then a single
// forward scan applies every event against the access ledger and rejects
// at the first event that breaks an invariant.
type Checker struct {
	keepGoing bool
}

// NewChecker creates a Checker.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check scans the trace and returns its verdict.
func (c *Checker) Check(t *Trace) Verdict {
	last := lastUses(t.Events)
	buckets := expiryBuckets(last)
	e := newEngine(t, last)

	var violations []Violation
	stopped := false
	for i, ev := range t.Events {
		if i > 0 {
			e.retire(buckets[i-1])
		}
		if v := e.apply(i, ev); v != nil {
			violations = append(violations, *v)
			if !c.keepGoing {
				stopped = true
				break
			}
		}
	}

	// Scopes that never exit are only detectable once the trace ends.
	if !stopped {
		for _, f := range e.scopes {
			violations = append(violations, Violation{
				Index:  f.start,
				Rule:   BRW040UnbalancedScope,
				Event:  t.Events[f.start],
				Scopes: t.ScopesAt(f.start),
				Message: fmt.Sprintf("scope %s is still open at the end of the trace",
					t.ScopeName(f.id)),
			})
			if !c.keepGoing {
				break
			}
		}
	}

	return Verdict{OK: len(violations) == 0, Violations: violations}
}

// Check runs a default Checker over the trace.
func Check(t *Trace) Verdict {
	return NewChecker().Check(t)
}
