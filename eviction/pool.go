package eviction

// poolSize is the fixed candidate-pool capacity: EVPOOL_SIZE in the C
// source.
const poolSize = 16

// cachedKeyScratch bounds the key length the pool stages through its
// reused scratch buffer. Every inserted key, short or long, is still
// copied into a newly allocated slice of its own.
const cachedKeyScratch = 255

// PoolEntry is one candidate slot: a key, the database it lives in, and its
// eviction score. A higher score is a better eviction candidate regardless
// of policy (idle time, inverse frequency, or inverse time-to-expiry all
// get folded into this single ascending-ordered scale).
type PoolEntry struct {
	Key   []byte
	DBID  int
	Score uint64
	live  bool
}

// Pool is the fixed-size, ascending-by-score candidate list that
// populate/evict draws from. Slot 0 holds the weakest candidate still
// tracked; slot poolSize-1 holds the strongest.
type Pool struct {
	entries [poolSize]PoolEntry
	scratch []byte
}

// NewPool returns an empty candidate pool.
func NewPool() *Pool {
	return &Pool{scratch: make([]byte, cachedKeyScratch)}
}

// Insert attempts to place (key, dbid, score) into the pool, maintaining
// ascending order. It is a no-op if the pool is full and score does not
// exceed the current minimum.
func (p *Pool) Insert(key []byte, dbid int, score uint64) {
	k := 0
	for k < poolSize && p.entries[k].live && p.entries[k].Score < score {
		k++
	}
	if k == 0 && p.entries[poolSize-1].live {
		return
	}

	if k < poolSize && !p.entries[k].live {
		// Empty slot at k: no shift needed.
	} else if !p.entries[poolSize-1].live {
		copy(p.entries[k+1:], p.entries[k:poolSize-1])
		p.entries[k] = PoolEntry{}
	} else {
		k--
		copy(p.entries[0:k], p.entries[1:k+1])
	}

	var stored []byte
	if len(key) <= cachedKeyScratch {
		if cap(p.scratch) < len(key) {
			p.scratch = make([]byte, len(key))
		}
		p.scratch = append(p.scratch[:0], key...)
		stored = append([]byte(nil), p.scratch...)
	} else {
		stored = append([]byte(nil), key...)
	}

	p.entries[k] = PoolEntry{Key: stored, DBID: dbid, Score: score, live: true}
}

// PopBest removes and returns the highest-scored live entry, scanning from
// the tail (largest score) toward the head, or ok=false if the pool is
// empty.
func (p *Pool) PopBest() (entry PoolEntry, ok bool) {
	for k := poolSize - 1; k >= 0; k-- {
		if p.entries[k].live {
			entry = p.entries[k]
			p.entries[k] = PoolEntry{}
			return entry, true
		}
	}
	return PoolEntry{}, false
}

// Clear empties the pool without freeing the backing array.
func (p *Pool) Clear() {
	for k := range p.entries {
		p.entries[k] = PoolEntry{}
	}
}

// Scores returns the live entries' scores in slot order, ascending; used
// to check the pool-stays-sorted invariant in tests.
func (p *Pool) Scores() []uint64 {
	var out []uint64
	for _, e := range p.entries {
		if e.live {
			out = append(out, e.Score)
		}
	}
	return out
}
