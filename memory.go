package regionruntime

// PageSize is the granularity linear memory grows by (64 KiB).
const PageSize = 1 << 16

// Memory is a byte-addressed linear memory. Offsets are stable: growing the
// memory never changes what an existing offset refers to.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Grower is implemented by memories that can be extended in whole pages.
type Grower interface {
	// Grow adds deltaPages pages and returns the previous page count.
	// ok is false when the memory cannot grow that far.
	Grow(deltaPages uint32) (previousPages uint32, ok bool)

	// Pages returns the current page count.
	Pages() uint32
}

// GrowableMemory is the memory a region space carves its chunks from.
type GrowableMemory interface {
	Memory
	MemorySizer
	Grower
}

// Allocator allocates memory in linear memory.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
