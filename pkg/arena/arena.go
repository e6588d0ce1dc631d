// Package arena provides a generational slab allocator.
//
// An Arena hands out Keys for stored values. A Key stays valid until its
// slot is removed; after that the slot is recycled with a bumped
// generation, so any stale Key held elsewhere fails lookup instead of
// silently aliasing the new occupant.
//
//	a := arena.New[string]()
//	k := a.Insert("hello")
//	v, ok := a.Get(k) // "hello", true
//	a.Remove(k)
//	_, ok = a.Get(k)  // ok == false, even after the slot is reused
//
// The zero Key is never issued and can be used as a "none" sentinel.
package arena

import "fmt"

// Key identifies one occupied slot in an Arena.
type Key struct {
	Index uint32
	Gen   uint32
}

// IsZero reports whether k is the zero Key (never issued by an Arena).
func (k Key) IsZero() bool {
	return k.Gen == 0
}

// Uint64 packs the key into a single integer (generation in the high bits).
func (k Key) Uint64() uint64 {
	return uint64(k.Gen)<<32 | uint64(k.Index)
}

// String returns a compact representation like "7v2".
func (k Key) String() string {
	return fmt.Sprintf("%dv%d", k.Index, k.Gen)
}

// KeyFromUint64 unpacks a key produced by Key.Uint64.
func KeyFromUint64(v uint64) Key {
	return Key{Index: uint32(v), Gen: uint32(v >> 32)}
}

type slot[T any] struct {
	value    T
	gen      uint32
	occupied bool
}

// Arena is a generational slab. It is not safe for concurrent use.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	len   int
}

// New creates an empty Arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Insert stores v and returns its key. Freed slots are reused
// most-recently-freed first.
func (a *Arena[T]) Insert(v T) Key {
	a.len++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.value = v
		s.occupied = true
		return Key{Index: idx, Gen: s.gen}
	}
	a.slots = append(a.slots, slot[T]{value: v, gen: 1, occupied: true})
	return Key{Index: uint32(len(a.slots) - 1), Gen: 1}
}

// Get returns the value for k. ok is false if k is stale or was never issued.
func (a *Arena[T]) Get(k Key) (v T, ok bool) {
	s := a.lookup(k)
	if s == nil {
		return v, false
	}
	return s.value, true
}

// Set replaces the value stored at k. It returns false if k is stale.
func (a *Arena[T]) Set(k Key, v T) bool {
	s := a.lookup(k)
	if s == nil {
		return false
	}
	s.value = v
	return true
}

// Contains reports whether k refers to a live slot.
func (a *Arena[T]) Contains(k Key) bool {
	return a.lookup(k) != nil
}

// Remove frees the slot for k and returns the value it held.
// Removing a stale key is a no-op that returns ok == false.
func (a *Arena[T]) Remove(k Key) (v T, ok bool) {
	s := a.lookup(k)
	if s == nil {
		return v, false
	}
	v = s.value
	var zero T
	s.value = zero
	s.occupied = false
	s.gen++
	if s.gen == 0 {
		// Skip generation 0 so the zero Key is never issued.
		s.gen = 1
	}
	a.free = append(a.free, k.Index)
	a.len--
	return v, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.len
}

// Range calls fn for every live value in slot order until fn returns false.
func (a *Arena[T]) Range(fn func(k Key, v T) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.occupied {
			continue
		}
		if !fn(Key{Index: uint32(i), Gen: s.gen}, s.value) {
			return
		}
	}
}

func (a *Arena[T]) lookup(k Key) *slot[T] {
	if k.Gen == 0 || int(k.Index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[k.Index]
	if !s.occupied || s.gen != k.Gen {
		return nil
	}
	return s
}
