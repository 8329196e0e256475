package workflow

// Buffer keeps captured chunks in arrival order.
type Buffer struct {
	chunks [][]byte
	size   int
}

// Append copies data; capture backends reuse their buffers.
func (b *Buffer) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	b.chunks = append(b.chunks, append([]byte(nil), data...))
	b.size += len(data)
}

func (b *Buffer) Len() int  { return len(b.chunks) }
func (b *Buffer) Size() int { return b.size }

// Assemble concatenates every chunk into one slice of length Size.
func (b *Buffer) Assemble() []byte {
	out := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}
