// Package reflow is a fine-grained reactive runtime: a dependency-tracking
// dataflow graph giving synchronous, glitch-free, minimal-recomputation
// updates without any global re-diffing.
//
// All state lives on an explicit Runtime instance, so independent graphs
// (one per request, per session, per test) coexist without shared globals:
//
//	rt := reflow.New()
//
// # Core Types
//
// Signal[T] is a reactive cell:
//
//	count := reflow.NewSignal(rt, 0)
//	count.Get()  // read; subscribes the currently running observer
//	count.Set(5) // write; dependent effects run before Set returns
//
// Effect is an eager observer. It runs immediately at creation and re-runs
// synchronously on every write to a dependency:
//
//	handle := reflow.NewEffect(rt, func() reflow.Cleanup {
//	    fmt.Println("count is", count.Get())
//	    return nil
//	})
//	handle.Dispose()
//
// Memo[T] is a lazy cached derivation that is itself a source. Writes only
// mark it dirty; it recomputes on the next read:
//
//	doubled := reflow.NewMemo(rt, func() int { return count.Get() * 2 })
//	doubled.Get()
//
// Dependencies are discovered dynamically: whatever a run actually reads is
// what it depends on, and each run re-subscribes from scratch, so branches
// that read different signals stay correct.
//
// # Batching
//
// Batch coalesces notifications; each dependent effect runs once when the
// outermost batch exits, seeing all final values:
//
//	reflow.Batch(rt, func() {
//	    a.Set(1)
//	    b.Set(2)
//	})
//
// # Lifecycle
//
// Scope owns the observers created under it and runs mount/cleanup callbacks
// in tree order (children torn down before their parent).
//
// # Concurrency
//
// A Runtime's graph is one unit of mutual exclusion behind a
// goroutine-reentrant lock. Effects run on the writer's call stack; there is
// no scheduler and no suspension point anywhere in the core.
package reflow
