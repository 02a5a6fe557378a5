package txn

// Registry is a keyspace's key -> watching-sessions map. One Registry
// exists per logical keyspace (e.g. one per selectable database); a
// Session can hold watches spanning several registries at once.
type Registry struct {
	watchers map[string][]*Session
}

// NewRegistry returns an empty watch registry.
func NewRegistry() *Registry {
	return &Registry{watchers: make(map[string][]*Session)}
}

// Len reports how many distinct keys currently have at least one watcher.
func (r *Registry) Len() int { return len(r.watchers) }

func (r *Registry) watch(s *Session, key string) {
	for _, w := range s.watching {
		if w.registry == r && w.key == key {
			return // idempotent per (session, registry, key)
		}
	}
	r.watchers[key] = append(r.watchers[key], s)
	s.watching = append(s.watching, watchedKey{registry: r, key: key})
}

func (r *Registry) unwatch(s *Session, key string) {
	list := r.watchers[key]
	for i, w := range list {
		if w == s {
			list[i] = list[len(list)-1]
			list = list[:len(list)-1]
			break
		}
	}
	if len(list) == 0 {
		delete(r.watchers, key)
	} else {
		r.watchers[key] = list
	}
}

// Touch flags dirty-cas on every session currently watching key. Call it
// on every mutation, deletion, or observed expiry of key.
func (r *Registry) Touch(key string) {
	for _, s := range r.watchers[key] {
		s.dirtyCAS = true
	}
}

// TouchAll flags dirty-cas on every watching session across every key, for
// use on a full keyspace flush.
func (r *Registry) TouchAll() {
	for _, list := range r.watchers {
		for _, s := range list {
			s.dirtyCAS = true
		}
	}
}

// TouchIf flags dirty-cas on every session watching a key for which exists
// reports true. This is the primitive a database-swap invalidates with:
// the spec only invalidates watched keys present in the emptied or the
// incoming keyspace, not every watched key unconditionally.
func (r *Registry) TouchIf(exists func(key string) bool) {
	for key, list := range r.watchers {
		if !exists(key) {
			continue
		}
		for _, s := range list {
			s.dirtyCAS = true
		}
	}
}
