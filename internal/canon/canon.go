package canon

import "math"

const (
	// PageSize is the linear memory page size (64 KiB).
	PageSize = 1 << 16

	// MaxAlign is the strictest alignment any declared type can require.
	MaxAlign = 8

	// MaxAlloc caps a single region allocation.
	MaxAlloc = 1 << 30
)

func SafeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

func SafeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// ValidAlign reports whether align is a power of two no larger than MaxAlign.
func ValidAlign(align uint32) bool {
	return align != 0 && align <= MaxAlign && align&(align-1) == 0
}

// DiscriminantSize is the tag width for a sum type with numCases alternatives.
func DiscriminantSize(numCases int) uint32 {
	if numCases <= 256 {
		return 1
	} else if numCases <= 65536 {
		return 2
	}
	return 4
}

// PagesFor returns the number of pages needed to hold n bytes.
func PagesFor(n uint32) uint32 {
	return uint32((uint64(n) + PageSize - 1) / PageSize)
}
