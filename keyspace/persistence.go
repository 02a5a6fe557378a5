package keyspace

import "github.com/joeycumines/kvcore/reactor"

// SyncFunc is a host-supplied persistence step — writing a snapshot,
// appending to a log, whatever the host's durability layer does. This
// package only calls it at the right moment; it does not implement one.
type SyncFunc func(dirtyOps int)

// PersistenceHook returns a before-sleep hook that calls sync once per
// reactor iteration with the number of mutations (Set/Delete/Mutate/
// FlushAll/Swap calls) observed since the previous call, skipping the call
// entirely when nothing changed. Install it with (*reactor.Reactor).
// SetBeforeSleep so a host can flush to disk at the same ordering point
// the BARRIER file-event rule exists to protect.
func (k *Keyspace) PersistenceHook(sync SyncFunc) func(*reactor.Reactor) {
	return func(*reactor.Reactor) {
		if k.dirty == 0 {
			return
		}
		n := k.dirty
		k.dirty = 0
		sync(n)
	}
}
