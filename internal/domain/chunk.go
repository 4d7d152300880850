package domain

// MaxChunkSize is the largest number of bytes read from the inbound stream in
// a single read.
const MaxChunkSize = 16 << 10

// Chunk is one unit of bytes read from the inbound stream.
// A Chunk is never mutated after creation; every delivery queue holds the same
// backing array as a read-only logical copy.
type Chunk struct {
	data []byte
}

// NewChunk copies p into a new Chunk so the caller may reuse its buffer.
func NewChunk(p []byte) Chunk {
	b := make([]byte, len(p))
	copy(b, p)
	return Chunk{data: b}
}

// Bytes returns the chunk payload. Callers must not modify it.
func (c Chunk) Bytes() []byte { return c.data }

// Len returns the payload length in bytes.
func (c Chunk) Len() int { return len(c.data) }

// Empty reports whether the chunk carries no bytes.
func (c Chunk) Empty() bool { return len(c.data) == 0 }
