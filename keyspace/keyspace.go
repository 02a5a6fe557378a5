package keyspace

import (
	"github.com/joeycumines/kvcore/hashtable"
	"github.com/joeycumines/kvcore/txn"
)

// Keyspace is one selectable database: a key -> Object hash table plus
// the watch registry that backs optimistic-concurrency transactions over
// it.
type Keyspace struct {
	data  *hashtable.Table[string, *Object]
	watch *txn.Registry
	dirty int
}

// New returns an empty keyspace.
func New() *Keyspace {
	return &Keyspace{
		data:  hashtable.New[string, *Object](hashtable.StringHasher),
		watch: txn.NewRegistry(),
	}
}

// Watches returns the watch registry backing WATCH/MULTI/EXEC for this
// keyspace.
func (k *Keyspace) Watches() *txn.Registry { return k.watch }

// Len reports the number of keys.
func (k *Keyspace) Len() int { return k.data.Len() }

// Get returns the object stored at key, if any.
func (k *Keyspace) Get(key string) (*Object, bool) { return k.data.Find(key) }

// Exists reports whether key is present.
func (k *Keyspace) Exists(key string) bool {
	_, ok := k.data.Find(key)
	return ok
}

// Set stores obj at key, overwriting any existing value, and touches
// every session watching key.
func (k *Keyspace) Set(key string, obj *Object) {
	k.data.Replace(key, obj)
	k.watch.Touch(key)
	k.dirty++
}

// Delete removes key, touching its watchers if it was present.
func (k *Keyspace) Delete(key string) bool {
	_, ok := k.data.Unlink(key)
	if ok {
		k.watch.Touch(key)
		k.dirty++
	}
	return ok
}

// Mutate fetches key (creating and storing it via makeEmpty if absent),
// hands it to fn to mutate in place, touches watchers, and returns the
// object.
func (k *Keyspace) Mutate(key string, makeEmpty func() *Object, fn func(*Object)) *Object {
	obj, ok := k.data.Find(key)
	if !ok {
		obj = makeEmpty()
		k.data.Add(key, obj)
	}
	fn(obj)
	k.watch.Touch(key)
	k.dirty++
	return obj
}

// FlushAll empties the keyspace and touches every watcher of every key,
// per the spec's full-flush invalidation rule.
func (k *Keyspace) FlushAll() {
	k.data.Clear(nil)
	k.watch.TouchAll()
	k.dirty++
}

// Swap exchanges a's and b's data tables in place (the SWAPDB operation),
// invalidating only keys present in either side's data after the swap —
// equivalently, keys that existed in the keyspace that got emptied or the
// one that came in, which is the same set before and after exchanging the
// two references.
func Swap(a, b *Keyspace) {
	a.data, b.data = b.data, a.data
	existsEither := func(key string) bool {
		if _, ok := a.data.Find(key); ok {
			return true
		}
		_, ok := b.data.Find(key)
		return ok
	}
	a.watch.TouchIf(existsEither)
	b.watch.TouchIf(existsEither)
	a.dirty++
	b.dirty++
}

// Scan walks live keys via the underlying table's reverse-bit cursor,
// inheriting its at-least-once-if-stable-across-the-scan guarantee.
func (k *Keyspace) Scan(cursor uint64, fn func(key string, obj *Object)) uint64 {
	return k.data.Scan(cursor, fn)
}
