// Package hashtable implements a chained hash map with two-table
// incremental rehashing and a reverse-bit scan cursor that tolerates
// concurrent resizes between calls.
//
// A Table never blocks to rehash all at once: every mutating or
// lookup operation drives at most one migration step, amortizing the
// cost of growing or shrinking across whatever traffic the table
// already receives. Callers needing a full migration in one shot can
// use RehashAll, or RehashMillis, which batches steps under a time budget.
package hashtable
