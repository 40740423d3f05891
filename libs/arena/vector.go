package arena

// Vector is an ordered sequence whose storage is scoped to an Arena.
type Vector[T any] struct {
	alloc Allocator
	items []T
}

// NewVector allocates an empty vector with room for capacity items.
func NewVector[T any](alloc Allocator, capacity int) Vector[T] {
	alloc.mustBeValid()
	alloc.arena.allocs.Add(1)
	return Vector[T]{
		alloc: alloc,
		items: make([]T, 0, capacity),
	}
}

// Allocator returns the allocator the vector was created from.
func (v *Vector[T]) Allocator() Allocator {
	return v.alloc
}

// Append adds x at the end of the vector.
func (v *Vector[T]) Append(x T) {
	v.alloc.mustBeValid()
	v.items = append(v.items, x)
}

// Clear drops every item while keeping the allocation.
func (v *Vector[T]) Clear() {
	v.alloc.mustBeValid()
	v.items = v.items[:0]
}

// Len returns the number of items.
func (v *Vector[T]) Len() int {
	v.alloc.mustBeValid()
	return len(v.items)
}

// At returns the item at index i.
func (v *Vector[T]) At(i int) T {
	v.alloc.mustBeValid()
	return v.items[i]
}

// Range calls fn for every item in order until fn returns false.
func (v *Vector[T]) Range(fn func(i int, x T) bool) {
	v.alloc.mustBeValid()
	for i, x := range v.items {
		if !fn(i, x) {
			return
		}
	}
}
