// Package refcount provides counted shared ownership of a single value:
// many handles, one destruction, run when the last strong handle releases.
// Ref is plain and meant for a single goroutine; SyncRef pays for atomic
// counters and is safe to clone and release concurrently. Weak handles
// observe the value without keeping it alive.
package refcount

import "sync"

// box is the shared allocation behind a family of Ref handles.
type box[T any] struct {
	value  T
	drop   func(T)
	strong int
	weak   int
	dead   bool
}

// Ref is a counted strong handle to a shared value. The zero value is not
// usable; start with New.
type Ref[T any] struct {
	b        *box[T]
	released bool
}

// New wraps value in a counted allocation. drop, if non-nil, runs exactly
// once, when the last strong handle releases.
func New[T any](value T, drop func(T)) *Ref[T] {
	return &Ref[T]{b: &box[T]{value: value, drop: drop, strong: 1}}
}

// Clone returns a new strong handle to the same value.
func (r *Ref[T]) Clone() *Ref[T] {
	r.b.strong++
	return &Ref[T]{b: r.b}
}

// Get returns the shared value. It panics after Release; a released handle
// is as dead as a moved-from owner.
func (r *Ref[T]) Get() T {
	if r.released {
		panic("refcount: Get after Release")
	}
	return r.b.value
}

// StrongCount reports how many strong handles are alive.
func (r *Ref[T]) StrongCount() int { return r.b.strong }

// WeakCount reports how many weak handles are alive.
func (r *Ref[T]) WeakCount() int { return r.b.weak }

// Release gives this handle up. When it was the last strong handle the
// value is dropped and weak handles can no longer upgrade. Releasing the
// same handle twice panics.
func (r *Ref[T]) Release() {
	if r.released {
		panic("refcount: double Release")
	}
	r.released = true
	r.b.strong--
	if r.b.strong == 0 {
		r.b.dead = true
		if r.b.drop != nil {
			r.b.drop(r.b.value)
		}
	}
}

// Downgrade returns a weak handle that does not keep the value alive.
func (r *Ref[T]) Downgrade() *Weak[T] {
	r.b.weak++
	return &Weak[T]{b: r.b}
}

// Weak is a non-owning handle produced by Ref.Downgrade.
type Weak[T any] struct {
	b *box[T]
}

// Upgrade tries to mint a new strong handle. It fails once the last strong
// handle has released.
func (w *Weak[T]) Upgrade() (*Ref[T], bool) {
	if w.b.dead {
		return nil, false
	}
	w.b.strong++
	return &Ref[T]{b: w.b}, true
}

// Drop gives the weak handle up.
func (w *Weak[T]) Drop() {
	w.b.weak--
}

// --- Atomic flavor --------------------------------------------------------

// syncBox guards the count transitions that decide the value's fate. A
// mutex keeps the drop-vs-upgrade race simple; the counters are small and
// uncontended in practice.
type syncBox[T any] struct {
	mu     sync.Mutex
	value  T
	drop   func(T)
	strong int
	weak   int
	dead   bool
}

// SyncRef is a strong handle safe for concurrent use, the synchronized
// sibling of Ref.
type SyncRef[T any] struct {
	b        *syncBox[T]
	mu       sync.Mutex
	released bool
}

// NewSync wraps value in a concurrency-safe counted allocation.
func NewSync[T any](value T, drop func(T)) *SyncRef[T] {
	return &SyncRef[T]{b: &syncBox[T]{value: value, drop: drop, strong: 1}}
}

// Clone returns a new strong handle to the same value.
func (r *SyncRef[T]) Clone() *SyncRef[T] {
	r.b.mu.Lock()
	r.b.strong++
	r.b.mu.Unlock()
	return &SyncRef[T]{b: r.b}
}

// Get returns the shared value. It panics after Release.
func (r *SyncRef[T]) Get() T {
	r.mu.Lock()
	released := r.released
	r.mu.Unlock()
	if released {
		panic("refcount: Get after Release")
	}
	return r.b.value
}

// StrongCount reports how many strong handles are alive.
func (r *SyncRef[T]) StrongCount() int {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	return r.b.strong
}

// Release gives this handle up, dropping the value when it was the last
// strong handle.
func (r *SyncRef[T]) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		panic("refcount: double Release")
	}
	r.released = true
	r.mu.Unlock()

	r.b.mu.Lock()
	r.b.strong--
	last := r.b.strong == 0
	if last {
		r.b.dead = true
	}
	r.b.mu.Unlock()

	if last && r.b.drop != nil {
		r.b.drop(r.b.value)
	}
}

// Downgrade returns a weak handle that does not keep the value alive.
func (r *SyncRef[T]) Downgrade() *SyncWeak[T] {
	r.b.mu.Lock()
	r.b.weak++
	r.b.mu.Unlock()
	return &SyncWeak[T]{b: r.b}
}

// SyncWeak is a non-owning handle produced by SyncRef.Downgrade.
type SyncWeak[T any] struct {
	b *syncBox[T]
}

// Upgrade tries to mint a new strong handle; it fails once the last strong
// handle has released. The count transition happens under the same lock
// that marks death, so an upgrade never resurrects a dropped value.
func (w *SyncWeak[T]) Upgrade() (*SyncRef[T], bool) {
	w.b.mu.Lock()
	defer w.b.mu.Unlock()
	if w.b.dead {
		return nil, false
	}
	w.b.strong++
	return &SyncRef[T]{b: w.b}, true
}

// Drop gives the weak handle up.
func (w *SyncWeak[T]) Drop() {
	w.b.mu.Lock()
	w.b.weak--
	w.b.mu.Unlock()
}
