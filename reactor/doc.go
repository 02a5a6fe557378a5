// Package reactor implements the single-threaded, event-driven dispatcher
// that sits at the center of the server: one goroutine multiplexes file
// descriptor readiness and expiring timers, and every command handler runs
// to completion on that same goroutine.
//
// There are no locks anywhere in this package, and that is intentional: the
// core data structures (intset, listpack, hashtable) assume a single
// mutator, and the reactor is what makes that assumption hold. A handler
// may register or unregister file events, schedule or cancel timers, and
// even recursively drive another round of event processing, but it must
// never block and must never be invoked from another goroutine.
//
// Polling is abstracted behind the poller interface, implemented over
// epoll on Linux, kqueue on Darwin, and a select-based fallback
// elsewhere. All three report readiness through the same Events bitmask.
package reactor
