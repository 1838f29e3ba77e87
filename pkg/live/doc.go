// Package live broadcasts reactive signals over WebSockets.
//
// A Hub owns one reflow.Runtime and a registry of named channels. A
// Channel[T] wraps a signal; server code writes it with Publish or Update,
// and a broadcast effect fans each new value out to every subscribed peer as
// a JSON update frame. Clients subscribe, unsubscribe, and write channels
// with small JSON frames over a single socket.
//
// Because fan-out is an ordinary effect, it inherits the runtime's
// semantics: writes inside a reflow.Batch coalesce into a single frame per
// subscriber, and by the time Publish returns the frame is queued on every
// peer.
//
//	hub := live.NewHub()
//	counter, _ := live.NewChannel(hub, "counter", 0)
//	srv := live.NewServer(hub, live.DefaultConfig())
//	go http.ListenAndServe(":3000", srv.Handler())
//	counter.Publish(41)
package live
