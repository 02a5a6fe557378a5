// Package keyspace ties the core containers together into the thing a
// command dispatcher actually mutates: a hash table of key to Object,
// each Object tagged with which container backs it, wired to a watch
// registry for WATCH/MULTI/EXEC invalidation and to a reactor sleep-cycle
// hook for a host-supplied persistence step.
//
// Command parsing, RESP framing, and the persistence implementation
// itself (snapshotting, append-only logging) live outside this package;
// it only specifies where they attach.
package keyspace
