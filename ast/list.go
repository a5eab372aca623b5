package ast

import "iter"

// Node is implemented by every view. Len is the node's total size in blocks.
type Node interface {
	Len() int
}

// FixedList is a list of fixed-size nodes with random access.
type FixedList[T Node] struct {
	src  []byte
	b    []Block
	size int
	mk   func(src []byte, b []Block) T
}

// Len returns the number of items.
func (l FixedList[T]) Len() int {
	if l.size == 0 {
		return 0
	}
	return len(l.b) / l.size
}

// At returns item i. It panics when i is out of range.
func (l FixedList[T]) At(i int) T {
	return l.mk(l.src, l.b[i*l.size:(i+1)*l.size])
}

// All iterates over the items with their index.
func (l FixedList[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < l.Len(); i++ {
			if !yield(i, l.At(i)) {
				return
			}
		}
	}
}

// Blocks returns the size of the list region.
func (l FixedList[T]) Blocks() int {
	return len(l.b)
}

// List is a forward-only list of variable-size nodes. Each step reads the
// header at the current position and skips by the node's total length.
type List[T Node] struct {
	src []byte
	b   []Block
	mk  func(src []byte, b []Block) T
}

// All iterates over the items in order.
func (l List[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		rest := l.b
		for len(rest) > 0 {
			n := l.mk(l.src, rest)
			size := n.Len()
			if size <= 0 || size > len(rest) {
				return
			}
			if !yield(l.mk(l.src, rest[:size])) {
				return
			}
			rest = rest[size:]
		}
	}
}

// Count walks the list and returns the number of items.
func (l List[T]) Count() int {
	n := 0
	for range l.All() {
		n++
	}
	return n
}

// Empty reports whether the list has no items.
func (l List[T]) Empty() bool {
	return len(l.b) == 0
}

// Blocks returns the size of the list region.
func (l List[T]) Blocks() int {
	return len(l.b)
}
