package arinc665

import (
	"encoding/binary"
	"fmt"

	"github.com/dchest/siphash"
)

// handleSeed keys the siphash scramble used to derive opaque Handle
// tokens. It only needs to be stable within one process; it is not a
// security boundary.
var handleSeed = [16]byte{0x41, 0x52, 0x49, 0x4e, 0x43, 0x36, 0x36, 0x35}

// Handle is a generational, non-owning reference into the file arena (§9
// design note "Cyclic ownership"). It backs Load→File / Batch→Load
// cross-references: dereferencing a Handle whose generation no longer
// matches the arena slot reads as "empty" rather than risking a dangling
// pointer or requiring reference counting. Parent/upward links use plain
// pointers instead, since Go's collector already makes those cycles safe;
// only the weak cross-references carry a spec-mandated "goes empty on
// removal" behavior that a plain pointer cannot express.
type Handle struct {
	index      int
	generation uint32
}

// Valid reports whether h refers to any slot at all (the zero Handle is
// always invalid).
func (h Handle) Valid() bool {
	return h.generation != 0
}

// token returns an opaque, process-local scramble of the handle's
// (index, generation) pair. Used only for stable map keys/debug display;
// never compared for equality in place of the Handle itself.
func (h Handle) token() uint64 {
	var b [8]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(h.index))
	binary.BigEndian.PutUint32(b[4:8], h.generation)
	k0 := binary.BigEndian.Uint64(handleSeed[0:8])
	k1 := binary.BigEndian.Uint64(handleSeed[8:16])
	return siphash.Hash(k0, k1, b[:])
}

// String renders h as its opaque token, hex-encoded, for log fields and
// other debug output that should not leak the arena index directly.
func (h Handle) String() string {
	return fmt.Sprintf("%016x", h.token())
}

// arena holds a slice of T indexed by Handle, with tombstoned slots
// reusable after removal. Generalizes the flat map[id]value lookups
// desync uses in place of back-pointers (index.go's results map,
// assemble.go's fileChunks) to an arbitrary value type with O(1)
// removal-by-generation-bump.
type arena[T any] struct {
	slots       []T
	generations []uint32
	free        []int
}

func newArena[T any]() *arena[T] {
	return &arena[T]{}
}

// alloc stores v in a fresh or recycled slot and returns its Handle.
func (a *arena[T]) alloc(v T) Handle {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx] = v
		a.generations[idx]++
		if a.generations[idx] == 0 {
			a.generations[idx] = 1
		}
		return Handle{index: idx, generation: a.generations[idx]}
	}
	a.slots = append(a.slots, v)
	a.generations = append(a.generations, 1)
	return Handle{index: len(a.slots) - 1, generation: 1}
}

// get resolves h to its value. ok is false if h is stale or out of range.
func (a *arena[T]) get(h Handle) (T, bool) {
	var zero T
	if !h.Valid() || h.index < 0 || h.index >= len(a.slots) {
		return zero, false
	}
	if a.generations[h.index] != h.generation {
		return zero, false
	}
	return a.slots[h.index], true
}

// set overwrites the value at h, leaving the generation unchanged. ok is
// false if h is stale.
func (a *arena[T]) set(h Handle, v T) bool {
	if !h.Valid() || h.index < 0 || h.index >= len(a.slots) {
		return false
	}
	if a.generations[h.index] != h.generation {
		return false
	}
	a.slots[h.index] = v
	return true
}

// release invalidates h: any outstanding copy of it will miss on get/set,
// and the slot becomes eligible for reuse by a future alloc. The
// generation is bumped immediately (not deferred to the next alloc) so
// that every outstanding copy of h reads as empty the instant the file is
// removed, per §8 "weak reference safety".
func (a *arena[T]) release(h Handle) {
	if !h.Valid() || h.index < 0 || h.index >= len(a.slots) {
		return
	}
	if a.generations[h.index] != h.generation {
		return
	}
	var zero T
	a.slots[h.index] = zero
	a.generations[h.index]++
	if a.generations[h.index] == 0 {
		a.generations[h.index] = 1
	}
	a.free = append(a.free, h.index)
}
