// Package arena provides an allocation scope for values that belong to a
// long-lived state store rather than to the routine that computes them.
//
// Every Vector is bound to the Allocator it was created from. Once the owning
// Arena is released, reading or growing any of its vectors panics: a shared
// value outliving its store is a programming error, not a recoverable
// condition.
package arena

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrReleased is the panic value raised when a vector is used after its
// arena was released.
var ErrReleased = errors.New("arena: use of released allocation")

var arenaSeq uint64

// Arena owns every vector allocated through its Allocator.
type Arena struct {
	id       uint64
	released atomic.Bool
	allocs   atomic.Int64
}

// New creates a live arena.
func New() *Arena {
	return &Arena{id: atomic.AddUint64(&arenaSeq, 1)}
}

// Allocator returns a handle that scopes new vectors to a.
func (a *Arena) Allocator() Allocator {
	return Allocator{arena: a}
}

// Release invalidates every allocation made from the arena. It is safe to
// call more than once.
func (a *Arena) Release() {
	a.released.Store(true)
}

// Valid reports whether the arena has not been released.
func (a *Arena) Valid() bool {
	return !a.released.Load()
}

// Allocations returns the number of vectors allocated from the arena.
func (a *Arena) Allocations() int64 {
	return a.allocs.Load()
}

func (a *Arena) String() string {
	return fmt.Sprintf("Arena{%d released:%v}", a.id, a.released.Load())
}

// Allocator is a cheap, copyable handle to an Arena. The zero value is not
// usable.
type Allocator struct {
	arena *Arena
}

// Valid reports whether the allocator refers to a live arena.
func (al Allocator) Valid() bool {
	return al.arena != nil && al.arena.Valid()
}

// SameArena reports whether two allocators scope to the same arena.
func (al Allocator) SameArena(other Allocator) bool {
	return al.arena == other.arena
}

func (al Allocator) mustBeValid() {
	if al.arena == nil {
		panic(errors.New("arena: zero Allocator"))
	}
	if !al.arena.Valid() {
		panic(ErrReleased)
	}
}
