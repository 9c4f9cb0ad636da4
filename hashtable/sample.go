package hashtable

import "math/rand"

// SomeEntries collects up to n entries by walking a randomly-started run of
// buckets, used by the eviction engine to draw a sample without paying for
// a full scan. During rehash it visits the same raw bucket index in both
// tables each step, which -- because each table's index is masked to its
// own size -- naturally weights the sample toward whichever table holds
// more entries.
func (ht *HashTable) SomeEntries(n int) []*Entry {
	if n <= 0 || ht.Len() == 0 {
		return nil
	}
	result := make([]*Entry, 0, n)
	maxSteps := n * 10
	t0 := &ht.tables[0]
	t1 := &ht.tables[1]
	start := uint64(rand.Int63())
	for step := 0; step < maxSteps && len(result) < n; step++ {
		idx := start + uint64(step)
		for e := t0.buckets[idx&t0.mask]; e != nil; e = e.next {
			result = append(result, e)
		}
		if ht.IsRehashing() {
			for e := t1.buckets[idx&t1.mask]; e != nil; e = e.next {
				result = append(result, e)
			}
		}
	}
	if len(result) > n {
		result = result[:n]
	}
	return result
}
