package region

import "strconv"

// Handle names a region. The zero Handle names no region.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h names no region.
func (h Handle) IsZero() bool {
	return h.index == 0
}

// Index returns the slot of the region's record.
func (h Handle) Index() uint32 {
	return h.index
}

// Gen returns the generation of the record slot the handle was issued for.
func (h Handle) Gen() uint32 {
	return h.gen
}

// HandleOf rebuilds a handle from its parts, as stored in memory by
// region-qualified pointers.
func HandleOf(index, gen uint32) Handle {
	return Handle{index: index, gen: gen}
}

func (h Handle) String() string {
	if h.index == 0 {
		return "region#none"
	}
	return "region#" + strconv.FormatUint(uint64(h.index), 10) + "." + strconv.FormatUint(uint64(h.gen), 10)
}
