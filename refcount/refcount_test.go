package refcount

import (
	"sync"
	"testing"
)

func TestDropRunsOnLastRelease(t *testing.T) {
	var dropped []string
	a := New("value", func(v string) { dropped = append(dropped, v) })
	b := a.Clone()
	c := b.Clone()

	if got := a.StrongCount(); got != 3 {
		t.Fatalf("expected 3 strong handles, got %d", got)
	}

	c.Release()
	b.Release()
	if len(dropped) != 0 {
		t.Fatalf("value dropped while %d strong handles remain", a.StrongCount())
	}

	a.Release()
	if len(dropped) != 1 || dropped[0] != "value" {
		t.Fatalf("expected one drop of %q, got %v", "value", dropped)
	}
}

func TestGetSharesValue(t *testing.T) {
	a := New(42, nil)
	defer a.Release()
	b := a.Clone()
	defer b.Release()

	if a.Get() != 42 || b.Get() != 42 {
		t.Errorf("expected both handles to see 42, got %d and %d", a.Get(), b.Get())
	}
}

func TestGetAfterReleasePanics(t *testing.T) {
	a := New(1, nil)
	a.Release()
	defer func() {
		if recover() == nil {
			t.Fatal("expected Get after Release to panic")
		}
	}()
	a.Get()
}

func TestDoubleReleasePanics(t *testing.T) {
	a := New(1, nil)
	a.Release()
	defer func() {
		if recover() == nil {
			t.Fatal("expected double Release to panic")
		}
	}()
	a.Release()
}

func TestWeakDoesNotKeepAlive(t *testing.T) {
	dropped := false
	a := New("v", func(string) { dropped = true })
	w := a.Downgrade()
	defer w.Drop()

	if got := a.WeakCount(); got != 1 {
		t.Fatalf("expected 1 weak handle, got %d", got)
	}

	b, ok := w.Upgrade()
	if !ok {
		t.Fatal("expected upgrade to succeed while a strong handle lives")
	}
	b.Release()
	a.Release()

	if !dropped {
		t.Fatal("expected the weak handle not to keep the value alive")
	}
	if _, ok := w.Upgrade(); ok {
		t.Error("expected upgrade to fail after the last strong release")
	}
}

func TestSyncConcurrentCloneRelease(t *testing.T) {
	var mu sync.Mutex
	drops := 0
	root := NewSync(7, func(int) {
		mu.Lock()
		drops++
		mu.Unlock()
	})

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		h := root.Clone()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c := h.Clone()
				if c.Get() != 7 {
					t.Error("clone observed wrong value")
				}
				c.Release()
			}
			h.Release()
		}()
	}
	wg.Wait()

	if got := root.StrongCount(); got != 1 {
		t.Fatalf("expected 1 strong handle left, got %d", got)
	}
	root.Release()

	mu.Lock()
	defer mu.Unlock()
	if drops != 1 {
		t.Fatalf("expected exactly one drop, got %d", drops)
	}
}

func TestSyncWeakUpgradeRace(t *testing.T) {
	root := NewSync("v", nil)
	w := root.Downgrade()
	defer w.Drop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		root.Release()
	}()
	go func() {
		defer wg.Done()
		// either outcome is fine; an upgraded handle must see a live value
		if h, ok := w.Upgrade(); ok {
			if h.Get() != "v" {
				t.Error("upgraded handle observed a dead value")
			}
			h.Release()
		}
	}()
	wg.Wait()

	if _, ok := w.Upgrade(); ok {
		t.Error("expected upgrade to fail once every strong handle is gone")
	}
}
