// Package txn implements optimistic-concurrency transactions over an
// external keyspace: WATCH/MULTI/EXEC/DISCARD/UNWATCH session state and
// the watch-set invalidation that backs it.
//
// The package knows nothing about command parsing, argument validation,
// or how a queued command actually runs — callers supply an Executor
// closure to Exec and call Touch (or TouchAll) themselves whenever a
// mutation, expiry, flush, or database swap needs to invalidate watchers.
package txn
