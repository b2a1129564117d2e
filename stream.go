package borrowcheck

import "fmt"

// Stream checks a trace one event at a time, for callers that produce
// events as a program runs instead of recording a full trace first.
//
// A stream has no future knowledge, so it cannot narrow accessor windows
// to their last use: an accessor stays live until it is destroyed or its
// scope exits. A trace the batch Checker accepts thanks to last-use
// narrowing can therefore be rejected by a Stream; the reverse cannot
// happen.
type Stream struct {
	e      *engine
	next   int
	failed *Violation
}

// NewStream starts an empty stream.
func NewStream() *Stream {
	return &Stream{e: newEngine(nil, nil)}
}

// Feed applies the next event. It returns nil when the event is fine and
// the violation otherwise. The first violation is final: every later Feed
// returns it again without applying anything.
func (s *Stream) Feed(ev Event) *Violation {
	if s.failed != nil {
		return s.failed
	}
	i := s.next
	s.next++
	if v := s.e.apply(i, ev); v != nil {
		s.failed = v
		return v
	}
	return nil
}

// Pos returns the index the next event will get.
func (s *Stream) Pos() int { return s.next }

// Close ends the stream and reports scopes left open, which only become
// violations once no more events can arrive.
func (s *Stream) Close() *Violation {
	if s.failed != nil {
		return s.failed
	}
	if len(s.e.scopes) > 0 {
		f := s.e.scopes[0]
		s.failed = &Violation{
			Index:  f.start,
			Rule:   BRW040UnbalancedScope,
			Scopes: s.e.openScopes(),
			Message: fmt.Sprintf("scope %s is still open at the end of the stream",
				s.e.scopeName(f.id)),
		}
		return s.failed
	}
	return nil
}
