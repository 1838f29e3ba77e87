package reflow

import (
	"reflect"
	"testing"
)

func TestBatchSingleRun(t *testing.T) {
	rt := New()
	a := NewSignal(rt, 0)
	b := NewSignal(rt, 0)
	c := NewSignal(rt, 0)

	var log [][3]int
	NewEffect(rt, func() Cleanup {
		log = append(log, [3]int{a.Get(), b.Get(), c.Get()})
		return nil
	})

	Batch(rt, func() {
		a.Set(1)
		b.Set(2)
		c.Set(3)
	})

	// One initial run, then exactly one flush run seeing all final values.
	want := [][3]int{{0, 0, 0}, {1, 2, 3}}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("expected %v, got %v", want, log)
	}
}

func TestBatchDeduplicatesRepeatedWrites(t *testing.T) {
	rt := New()
	count := NewSignal(rt, 0)

	runs := 0
	NewEffect(rt, func() Cleanup {
		runs++
		_ = count.Get()
		return nil
	})

	Batch(rt, func() {
		for i := 1; i <= 5; i++ {
			count.Set(i)
		}
	})

	if runs != 2 {
		t.Errorf("expected 1 initial + 1 flush run, got %d", runs)
	}
	if count.Get() != 5 {
		t.Errorf("expected final value 5, got %d", count.Get())
	}
}

func TestBatchNestedFlushesOnlyAtOutermostExit(t *testing.T) {
	rt := New()
	count := NewSignal(rt, 0)

	runs := 0
	NewEffect(rt, func() Cleanup {
		runs++
		_ = count.Get()
		return nil
	})

	Batch(rt, func() {
		count.Set(1)

		Batch(rt, func() {
			count.Set(2)
		})

		// The inner batch exited but we are still inside the outer one.
		if runs != 1 {
			t.Errorf("inner batch must not flush, got %d runs", runs)
		}

		count.Set(3)
	})

	if runs != 2 {
		t.Errorf("expected a single flush at the outermost exit, got %d runs", runs)
	}
	if count.Get() != 3 {
		t.Errorf("expected final value 3, got %d", count.Get())
	}
}

func TestBatchValueReturns(t *testing.T) {
	rt := New()
	a := NewSignal(rt, 2)
	b := NewSignal(rt, 3)

	got := BatchValue(rt, func() int {
		a.Set(5)
		b.Set(7)
		return a.Get() * b.Get()
	})

	if got != 35 {
		t.Errorf("expected 35, got %d", got)
	}
}

func TestBatchWritesVisibleInsideBatch(t *testing.T) {
	rt := New()
	count := NewSignal(rt, 0)

	Batch(rt, func() {
		count.Set(41)
		// The store is immediate; only notification is deferred.
		if count.Get() != 41 {
			t.Errorf("expected 41 inside batch, got %d", count.Get())
		}
		count.Update(func(n int) int { return n + 1 })
	})

	if count.Get() != 42 {
		t.Errorf("expected 42, got %d", count.Get())
	}
}

func TestBatchMemoMarkedDirtyNotRecomputed(t *testing.T) {
	rt := New()
	count := NewSignal(rt, 1)

	calls := 0
	m := NewMemo(rt, func() int {
		calls++
		return count.Get() * 2
	})
	_ = m.Get()

	Batch(rt, func() {
		count.Set(2)
		count.Set(3)
		if calls != 1 {
			t.Errorf("writes inside a batch must not recompute memos, got %d", calls)
		}
	})

	if m.Get() != 6 {
		t.Errorf("expected 6, got %d", m.Get())
	}
	if calls != 2 {
		t.Errorf("expected one recompute after the batch, got %d", calls)
	}
}

func TestBatchOrderIsFirstInsertion(t *testing.T) {
	rt := New()
	a := NewSignal(rt, 0)
	b := NewSignal(rt, 0)

	var order []string
	NewEffect(rt, func() Cleanup {
		_ = a.Get()
		order = append(order, "ea")
		return nil
	})
	NewEffect(rt, func() Cleanup {
		_ = b.Get()
		order = append(order, "eb")
		return nil
	})

	order = nil
	// b is written first, so its effect enters the queue first even though
	// it was created second; later writes to a or b do not reorder it.
	Batch(rt, func() {
		b.Set(1)
		a.Set(1)
		b.Set(2)
	})

	want := []string{"eb", "ea"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected flush order %v, got %v", want, order)
	}
}

func TestBatchPanicDiscardsQueuedEffects(t *testing.T) {
	rt := New()
	count := NewSignal(rt, 0)

	runs := 0
	NewEffect(rt, func() Cleanup {
		runs++
		_ = count.Get()
		return nil
	})

	func() {
		defer func() { _ = recover() }()
		Batch(rt, func() {
			count.Set(1)
			panic("abort")
		})
	}()

	// The write landed but its queued effect died with the batch.
	if count.Peek() != 1 {
		t.Errorf("writes before the panic must persist, got %d", count.Peek())
	}
	if runs != 1 {
		t.Errorf("a panicking batch must not flush, got %d runs", runs)
	}

	// A later, unrelated batch must not replay the stale queue.
	Batch(rt, func() {})
	if runs != 1 {
		t.Errorf("stale effects leaked into an unrelated batch, got %d runs", runs)
	}

	count.Set(2)
	if runs != 2 {
		t.Errorf("runtime should work normally after the unwind, got %d runs", runs)
	}
}

func TestBatchEffectWritingDuringFlush(t *testing.T) {
	rt := New()
	a := NewSignal(rt, 0)
	b := NewSignal(rt, 0)

	var log []string
	NewEffect(rt, func() Cleanup {
		log = append(log, "first")
		b.Set(a.Get())
		return nil
	})
	NewEffect(rt, func() Cleanup {
		_ = b.Get()
		log = append(log, "second")
		return nil
	})

	log = nil
	Batch(rt, func() {
		a.Set(1)
	})

	// The flush happens at depth zero, so the write inside the first
	// effect runs its dependents synchronously and nested.
	want := []string{"first", "second"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("expected %v, got %v", want, log)
	}
}
