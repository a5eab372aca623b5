package ast

// Builder is the append-only block buffer the grammar writes into.
type Builder struct {
	blocks []Block
}

// NewBuilder returns an empty builder sized for roughly inputLen bytes of
// source.
func NewBuilder(inputLen int) *Builder {
	return &Builder{blocks: make([]Block, 0, inputLen/4+8)}
}

// Len returns the number of blocks written so far.
func (b *Builder) Len() int {
	return len(b.blocks)
}

// Blocks returns the underlying buffer.
func (b *Builder) Blocks() []Block {
	return b.blocks
}

// Slot names a reserved header position. The type parameter ties the slot
// to the header type it was reserved for, so Write cannot fill it with a
// header of a different size.
type Slot[H Header] struct {
	at int
}

// Pos returns the block index of the reserved header.
func (s Slot[H]) Pos() int {
	return s.at
}

// Blocks returns the size of the reserved header.
func (s Slot[H]) Blocks() int {
	var zero H
	return zero.Blocks()
}

// Reserve appends zeroed blocks for a header of type H.
func Reserve[H Header](b *Builder) Slot[H] {
	var zero H
	at := len(b.blocks)
	for i := 0; i < zero.Blocks(); i++ {
		b.blocks = append(b.blocks, 0)
	}
	return Slot[H]{at: at}
}

// Write overwrites the blocks reserved at s with the encoded header.
func Write[H Header](b *Builder, s Slot[H], h H) {
	h.encode(b.blocks[s.at : s.at+h.Blocks()])
}

// WriteHeader appends a header for a node whose regions are empty or already
// known. It returns the header size in blocks.
func WriteHeader[H Header](b *Builder, h H) int {
	s := Reserve[H](b)
	Write(b, s, h)
	return h.Blocks()
}
