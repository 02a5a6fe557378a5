package hashtable

// GetRandom returns a random live entry: it picks a uniformly random
// non-empty bucket, then a uniformly random entry in that bucket's chain,
// so entries in shorter chains are more likely to come back. intn(n) must return a
// value in [0,n); callers typically pass rand.Intn so tests can inject a
// seeded source. Panics if the table is empty, matching Get-on-empty
// behavior elsewhere in this package family.
func (t *Table[K, V]) GetRandom(intn func(int) int) (K, V) {
	if t.Len() == 0 {
		panic("hashtable: GetRandom on empty table")
	}
	t.rehashStep()

	var head *entry[K, V]
	if t.Rehashing() {
		span := t.ht[0].size() + t.ht[1].size() - t.rehashIdx
		for head == nil {
			h := t.rehashIdx + intn(span)
			if h >= t.ht[0].size() {
				head = t.ht[1].buckets[h-t.ht[0].size()]
			} else {
				head = t.ht[0].buckets[h]
			}
		}
	} else {
		size := t.ht[0].size()
		for head == nil {
			head = t.ht[0].buckets[intn(size)]
		}
	}

	n := 0
	for e := head; e != nil; e = e.next {
		n++
	}
	pick := intn(n)
	e := head
	for ; pick > 0; pick-- {
		e = e.next
	}
	return e.key, e.val
}

// sample pairs a key and value for GetSome/GetFairRandom results.
type sample[K comparable, V any] struct {
	Key K
	Val V
}

// GetSome walks a bounded window of buckets collecting up to count
// entries, best-effort: fewer than count may come back even when the
// table holds more, and the distribution is biased toward buckets with
// longer chains. It is the building block for GetFairRandom, not a
// substitute for Scan when completeness matters.
func (t *Table[K, V]) GetSome(count int, intn func(int) int) []sample[K, V] {
	if count > t.Len() {
		count = t.Len()
	}
	if count <= 0 {
		return nil
	}

	for i := 0; i < count && t.Rehashing(); i++ {
		t.rehashStep()
	}

	tables := 1
	if t.Rehashing() {
		tables = 2
	}
	maxMask := t.ht[0].mask()
	if tables > 1 && t.ht[1].mask() > maxMask {
		maxMask = t.ht[1].mask()
	}

	i := uint64(intn(int(maxMask) + 1))
	emptylen := 0
	maxSteps := count * 10
	var out []sample[K, V]

	for len(out) < count && maxSteps > 0 {
		maxSteps--
		for j := 0; j < tables; j++ {
			if tables == 2 && j == 0 && int(i) < t.rehashIdx {
				if int(i) >= t.ht[1].size() {
					i = uint64(t.rehashIdx)
				} else {
					continue
				}
			}
			if int(i) >= t.ht[j].size() {
				continue
			}
			head := t.ht[j].buckets[i]
			if head == nil {
				emptylen++
				if emptylen >= 5 && emptylen > count {
					i = uint64(intn(int(maxMask) + 1))
					emptylen = 0
				}
				continue
			}
			emptylen = 0
			for e := head; e != nil; e = e.next {
				out = append(out, sample[K, V]{e.key, e.val})
				if len(out) == count {
					return out
				}
			}
		}
		i = (i + 1) & maxMask
	}
	return out
}

// GetFairRandom samples via GetSome(15) and returns a uniformly random
// element of that sample, giving a far less chain-length-biased result
// than GetRandom at the cost of extra work. Falls back to GetRandom when
// the sample comes back empty (a table with very few, very long chains).
func (t *Table[K, V]) GetFairRandom(intn func(int) int) (K, V) {
	samples := t.GetSome(15, intn)
	if len(samples) == 0 {
		return t.GetRandom(intn)
	}
	s := samples[intn(len(samples))]
	return s.Key, s.Val
}
