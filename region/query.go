package region

import (
	"sort"

	"github.com/wippyai/region-runtime/errors"
)

// Depth returns the nesting depth of a live region. Roots have depth 0.
func (s *Space) Depth(h Handle) uint32 {
	return s.lookup(h, errors.PhaseCreate).depth
}

// Parent returns the enclosing region. ok is false for a root.
func (s *Space) Parent(h Handle) (parent Handle, ok bool) {
	r := s.lookup(h, errors.PhaseCreate)
	if r.parent == 0 {
		return Handle{}, false
	}
	return s.handle(r.parent), true
}

// Live reports whether h names a region that has not been destroyed.
func (s *Space) Live(h Handle) bool {
	if h.index == 0 || int(h.index) >= len(s.regions) {
		return false
	}
	r := &s.regions[h.index]
	return r.live && r.gen == h.gen
}

// Outlives reports whether a is b or one of b's ancestors, that is, whether
// storage in a stays valid for as long as storage in b.
func (s *Space) Outlives(a, b Handle) bool {
	if !s.Live(a) || !s.Live(b) {
		return false
	}
	ra := &s.regions[a.index]
	idx := b.index
	for idx != 0 {
		r := &s.regions[idx]
		if r.depth < ra.depth {
			return false
		}
		if idx == a.index {
			return true
		}
		idx = r.parent
	}
	return false
}

// Owner returns the live region whose chunk contains addr.
func (s *Space) Owner(addr uint32) (Handle, bool) {
	i := sort.Search(len(s.chunks), func(i int) bool {
		return s.chunks[i].base > addr
	}) - 1
	if i < 0 {
		return Handle{}, false
	}
	c := &s.chunks[i]
	if addr >= c.base+c.cap || c.owner == 0 {
		return Handle{}, false
	}
	h := Handle{index: c.owner, gen: c.gen}
	if !s.Live(h) || !s.owns(h.index, int32(i)) {
		return Handle{}, false
	}
	return h, true
}

// owns reports whether chunk idx is on one of the region's chunk lists.
// Owner stamps go stale once a chunk is freed, so the lists are authoritative.
func (s *Space) owns(region uint32, idx int32) bool {
	r := &s.regions[region]
	head := r.head
	if s.chunks[idx].big {
		head = r.bigHead
	}
	for i := head; i != none; i = s.chunks[i].next {
		if i == idx {
			return true
		}
	}
	return false
}

// Stats is a snapshot of a space's bookkeeping.
type Stats struct {
	Regions     uint32
	Allocations uint64
	Bytes       uint64
	ChunksInUse uint32
	ChunksFree  uint32
	Growths     uint64
	Pages       uint32
	// Reserved is the address space carved into chunks so far.
	Reserved uint32
}

// Stats returns counters over all live regions.
func (s *Space) Stats() Stats {
	return Stats{
		Regions:     s.liveRegions,
		Allocations: s.liveAllocs,
		Bytes:       s.liveBytes,
		ChunksInUse: s.chunksInUse,
		ChunksFree:  s.chunksFree,
		Growths:     s.growths,
		Pages:       s.mem.Pages(),
		Reserved:    s.brk - s.start,
	}
}

// RegionStats describes one live region.
type RegionStats struct {
	Depth       uint32
	Allocations uint64
	Bytes       uint64
	Chunks      uint32
	Growths     uint32
	Children    uint32
}

// RegionStats returns the counters of a live region.
func (s *Space) RegionStats(h Handle) RegionStats {
	r := s.lookup(h, errors.PhaseCreate)
	return RegionStats{
		Depth:       r.depth,
		Allocations: r.allocs,
		Bytes:       r.bytes,
		Chunks:      r.nchunks,
		Growths:     r.growths,
		Children:    r.children,
	}
}

// Walk visits live regions depth first, parents before children and
// siblings in creation order. Returning false from fn stops the walk.
// fn must not create or destroy regions.
func (s *Space) Walk(fn func(h, parent Handle, depth uint32) bool) {
	idx := s.regions[0].firstChild
	for idx != 0 {
		r := &s.regions[idx]
		var parent Handle
		if r.parent != 0 {
			parent = s.handle(r.parent)
		}
		if !fn(s.handle(idx), parent, r.depth) {
			return
		}

		if r.firstChild != 0 {
			idx = r.firstChild
			continue
		}
		for idx != 0 && s.regions[idx].nextSibling == 0 {
			idx = s.regions[idx].parent
		}
		if idx != 0 {
			idx = s.regions[idx].nextSibling
		}
	}
}

// Bytes returns n bytes of memory at addr. Depending on the memory backing
// the slice may alias the memory or be a copy; writes must go through
// Memory().
func (s *Space) Bytes(addr, n uint32) []byte {
	b, err := s.mem.Read(addr, n)
	if err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "read region storage"))
	}
	return b
}
