package reflow

import (
	"errors"
	"reflect"
	"testing"
)

func TestMemoLazyAndCached(t *testing.T) {
	rt := New()
	count := NewSignal(rt, 1)

	calls := 0
	doubled := NewMemo(rt, func() int {
		calls++
		return count.Get() * 2
	})

	// Creation does not compute.
	if calls != 0 {
		t.Fatalf("memo must be lazy, computed %d times at creation", calls)
	}

	// Two consecutive reads with no intervening write: one compute.
	if doubled.Get() != 2 {
		t.Errorf("expected 2, got %d", doubled.Get())
	}
	if doubled.Get() != 2 {
		t.Errorf("expected 2 on cache hit, got %d", doubled.Get())
	}
	if calls != 1 {
		t.Errorf("expected 1 compute across two reads, got %d", calls)
	}

	// A write only flips the dirty flag; recompute happens on read.
	count.Set(5)
	if calls != 1 {
		t.Errorf("write must not recompute, got %d computes", calls)
	}
	if doubled.Get() != 10 {
		t.Errorf("expected 10 after write, got %d", doubled.Get())
	}
	if calls != 2 {
		t.Errorf("expected 2 computes after write+read, got %d", calls)
	}
}

func TestMemoMultipleWritesSingleRecompute(t *testing.T) {
	rt := New()
	count := NewSignal(rt, 0)

	calls := 0
	m := NewMemo(rt, func() int {
		calls++
		return count.Get()
	})

	_ = m.Get()
	count.Set(1)
	count.Set(2)
	count.Set(3)
	if got := m.Get(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if calls != 2 {
		t.Errorf("three writes then one read should recompute once, got %d computes", calls)
	}
}

func TestMemoIsASource(t *testing.T) {
	rt := New()
	count := NewSignal(rt, 1)
	doubled := NewMemo(rt, func() int { return count.Get() * 2 })
	quadrupled := NewMemo(rt, func() int { return doubled.Get() * 2 })

	if quadrupled.Get() != 4 {
		t.Errorf("expected 4, got %d", quadrupled.Get())
	}

	count.Set(3)
	if quadrupled.Get() != 12 {
		t.Errorf("dirtiness must propagate through memo chains, got %d", quadrupled.Get())
	}
}

func TestMemoGlitchFree(t *testing.T) {
	rt := New()
	count := NewSignal(rt, 1)
	doubled := NewMemo(rt, func() int { return count.Get() * 2 })

	var observed []int
	NewEffect(rt, func() Cleanup {
		// The memo was marked dirty in the same walk that scheduled this
		// effect, so the read below never sees a pre-write cache.
		observed = append(observed, doubled.Get())
		return nil
	})

	count.Set(5)

	want := []int{2, 10}
	if !reflect.DeepEqual(observed, want) {
		t.Errorf("expected %v, got %v", want, observed)
	}
}

func TestMemoPeek(t *testing.T) {
	rt := New()
	count := NewSignal(rt, 2)
	m := NewMemo(rt, func() int { return count.Get() + 1 })

	runs := 0
	NewEffect(rt, func() Cleanup {
		runs++
		_ = m.Peek()
		return nil
	})

	count.Set(7)
	if runs != 1 {
		t.Errorf("Peek must not subscribe, got %d runs", runs)
	}
	if m.Peek() != 8 {
		t.Errorf("Peek must still recompute a dirty memo, got %d", m.Peek())
	}
}

func TestMemoPanicStaysDirty(t *testing.T) {
	rt := New()
	count := NewSignal(rt, 0)

	boom := errors.New("boom")
	calls := 0
	m := NewMemo(rt, func() int {
		calls++
		if count.Get() == 0 {
			panic(boom)
		}
		return count.Get()
	})

	func() {
		defer func() {
			if r := recover(); r != boom {
				t.Errorf("expected panic to propagate to the reader, got %v", r)
			}
		}()
		_ = m.Get()
	}()

	// The failed compute must not be cached; the next read retries.
	count.Set(9)
	if got := m.Get(); got != 9 {
		t.Errorf("expected 9 after retry, got %d", got)
	}
	if calls != 2 {
		t.Errorf("expected 2 computes (failed + retry), got %d", calls)
	}
}

func TestMemoCycleFailsFast(t *testing.T) {
	rt := New()

	var m *Memo[int]
	m = NewMemo(rt, func() int { return m.Get() })

	defer func() {
		if r := recover(); r != ErrCyclicDependency {
			t.Errorf("expected ErrCyclicDependency, got %v", r)
		}
	}()
	_ = m.Get()
}

func TestMemoDispose(t *testing.T) {
	rt := New()
	count := NewSignal(rt, 1)

	calls := 0
	m := NewMemo(rt, func() int {
		calls++
		return count.Get()
	})
	_ = m.Get()

	m.Dispose()
	m.Dispose() // idempotent

	// A disposed memo no longer observes its sources...
	count.Set(2)
	if len(count.node.subs) != 0 {
		t.Errorf("disposed memo should be unsubscribed, %d subscribers left", len(count.node.subs))
	}
	if calls != 1 {
		t.Errorf("disposed memo must not recompute, got %d computes", calls)
	}
}

func TestMemoConditionalDependencies(t *testing.T) {
	rt := New()
	useA := NewSignal(rt, true)
	a := NewSignal(rt, 10)
	b := NewSignal(rt, 20)

	calls := 0
	m := NewMemo(rt, func() int {
		calls++
		if useA.Get() {
			return a.Get()
		}
		return b.Get()
	})

	if m.Get() != 10 {
		t.Fatalf("expected 10, got %d", m.Get())
	}

	// Not a dependency while on the a-branch.
	b.Set(21)
	if m.Get() != 10 || calls != 1 {
		t.Errorf("write to unread signal dirtied the memo: value %d, %d computes", m.Peek(), calls)
	}

	useA.Set(false)
	if m.Get() != 21 {
		t.Errorf("expected 21 after branch switch, got %d", m.Get())
	}

	// The stale a subscription must have been pruned.
	a.Set(11)
	if calls != 2 {
		t.Errorf("stale dependency leaked into the memo, %d computes", calls)
	}
}
