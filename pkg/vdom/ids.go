package vdom

import "github.com/vango-dev/vcore/pkg/arena"

// ElementID identifies one renderer node created by the engine.
// The zero ElementID is the renderer's root container.
type ElementID uint64

// ScopeID identifies one mounted component instance. A ScopeID outlives
// its scope harmlessly: lookups with a torn-down id fail.
type ScopeID uint64

// TaskID identifies one scheduler task.
type TaskID uint64

func (id ElementID) key() arena.Key { return arena.KeyFromUint64(uint64(id)) }
func (id ScopeID) key() arena.Key   { return arena.KeyFromUint64(uint64(id)) }
func (id TaskID) key() arena.Key    { return arena.KeyFromUint64(uint64(id)) }

// String returns the arena form of the id, e.g. "3v1".
func (id ElementID) String() string { return id.key().String() }

// String returns the arena form of the id.
func (id ScopeID) String() string { return id.key().String() }

// String returns the arena form of the id.
func (id TaskID) String() string { return id.key().String() }
