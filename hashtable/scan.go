package hashtable

import "math/bits"

// Visitor is called once per entry encountered by Scan.
type Visitor func(e *Entry)

// Scan visits buckets starting at cursor and returns the cursor to resume
// from. A full traversal is done by calling Scan repeatedly, starting at 0,
// until the returned cursor is again 0. The reverse-binary-increment order
// this walks in guarantees every entry that is present for the whole scan
// is visited at least once, even across intervening growths and shrinks;
// entries inserted or removed mid-scan may be seen zero or more times.
func (ht *HashTable) Scan(cursor uint64, visit Visitor) uint64 {
	if ht.tables[0].size == 0 {
		return 0
	}
	if !ht.IsRehashing() {
		t0 := &ht.tables[0]
		m0 := t0.mask
		for e := t0.buckets[cursor&m0]; e != nil; e = e.next {
			visit(e)
		}
		return nextCursor(cursor, m0)
	}

	t0, t1 := &ht.tables[0], &ht.tables[1]
	if t0.size > t1.size {
		t0, t1 = t1, t0
	}
	m0, m1 := t0.mask, t1.mask

	for e := t0.buckets[cursor&m0]; e != nil; e = e.next {
		visit(e)
	}
	for {
		for e := t1.buckets[cursor&m1]; e != nil; e = e.next {
			visit(e)
		}
		cursor = nextCursor(cursor, m1)
		if cursor&(m0^m1) == 0 {
			break
		}
	}
	return cursor
}

// nextCursor implements the classic reverse-binary-increment step: set all
// bits above mask, reverse, increment, reverse again. Stepping with the
// larger table's mask walks every larger-table expansion of one
// smaller-table bucket; when those bits wrap to zero, the carry has already
// advanced the smaller table's cursor.
func nextCursor(cursor, mask uint64) uint64 {
	cursor |= ^mask
	cursor = bits.Reverse64(cursor)
	cursor++
	cursor = bits.Reverse64(cursor)
	return cursor
}
