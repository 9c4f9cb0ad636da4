package hashtable

// accessMetaMask keeps Entry.accessMeta to the 24 bits the LRU/LFU policies
// are allowed to use; the top 8 bits of the backing uint32 are always zero.
const accessMetaMask = 0x00FFFFFF

// Entry is a live key/value pair owned by a HashTable. Entries are never
// shared between two tables: a key appears in exactly one table at a time,
// even mid-rehash.
type Entry struct {
	key        []byte
	value      interface{}
	next       *Entry
	accessMeta uint32
}

// Key returns the entry's key. Callers must not mutate the returned slice.
func (e *Entry) Key() []byte { return e.key }

// Value returns the entry's current value.
func (e *Entry) Value() interface{} { return e.value }

// SetValue replaces the entry's value in place, without going through the
// table's TypeOps.ValueDup/ValueDestroy. Used by callers (e.g. the root
// package's Database.Set, which releases the old value itself) that have
// already taken ownership decisions.
func (e *Entry) SetValue(v interface{}) { e.value = v }

// AccessMeta returns the entry's 24-bit access-meta word.
func (e *Entry) AccessMeta() uint32 { return e.accessMeta }

// SetAccessMeta stores an access-meta word, masking to 24 bits.
func (e *Entry) SetAccessMeta(meta uint32) { e.accessMeta = meta & accessMetaMask }
