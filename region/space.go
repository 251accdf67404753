package region

import (
	"go.uber.org/zap"

	regionruntime "github.com/wippyai/region-runtime"
	"github.com/wippyai/region-runtime/errors"
	"github.com/wippyai/region-runtime/internal/canon"
)

const (
	// none terminates chunk lists.
	none = -1

	// zeroBase is the address handed out for zero-sized allocations.
	zeroBase = 8

	// reservedBytes keeps address 0 and zeroBase out of every chunk.
	reservedBytes = 16
)

// ZeroSizeAddr is the address of every zero-size allocation. It is not
// null, and no region owns it.
const ZeroSizeAddr uint32 = zeroBase

// record is one region. Slot 0 is a sentinel whose children are the roots.
type record struct {
	parent      uint32
	firstChild  uint32
	lastChild   uint32
	prevSibling uint32
	nextSibling uint32
	children    uint32

	depth uint32
	gen   uint32
	live  bool

	// standard chunks in allocation order; tail is the current chunk
	head, tail int32
	// dedicated chunks for requests larger than a standard chunk
	bigHead, bigTail int32

	allocs  uint64
	bytes   uint64
	nchunks uint32
	growths uint32
}

// Space owns a tree of regions and the memory their chunks are carved from.
type Space struct {
	mem     regionruntime.GrowableMemory
	cfg     Config
	checked bool

	regions     []record
	freeRegions []uint32

	chunks  []chunk
	freeStd int32
	freeBig int32
	start   uint32
	brk     uint32
	zero    []byte

	liveRegions uint32
	liveAllocs  uint64
	liveBytes   uint64
	chunksInUse uint32
	chunksFree  uint32
	growths     uint64
}

// NewSpace creates a region space over mem. A nil config uses defaults.
func NewSpace(mem regionruntime.GrowableMemory, cfg *Config) *Space {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	c.ChunkSize = canon.AlignTo(c.ChunkSize, canon.MaxAlign)

	s := &Space{
		mem:     mem,
		cfg:     c,
		checked: c.checked(),
		regions: make([]record, 1, 16),
		chunks:  make([]chunk, 0, 8),
		freeStd: none,
		freeBig: none,
		start:   canon.AlignTo(max(c.Base, reservedBytes), canon.MaxAlign),
	}
	s.brk = s.start
	s.regions[0] = record{live: true, head: none, tail: none, bigHead: none, bigTail: none}

	Logger().Debug("region space created",
		zap.Uint32("chunk_size", c.ChunkSize),
		zap.Uint32("base", s.brk),
		zap.Bool("checked", s.checked))

	return s
}

// Memory returns the memory regions are carved from.
func (s *Space) Memory() regionruntime.GrowableMemory {
	return s.mem
}

// Checked reports whether scope discipline is verified.
func (s *Space) Checked() bool {
	return s.checked
}

// ChunkSize returns the capacity of a standard chunk.
func (s *Space) ChunkSize() uint32 {
	return s.cfg.ChunkSize
}

// Create creates a root region at depth 0.
func (s *Space) Create() Handle {
	return s.create(0)
}

// CreateChild creates a region nested inside parent.
func (s *Space) CreateChild(parent Handle) Handle {
	s.lookup(parent, errors.PhaseCreate)
	return s.create(parent.index)
}

func (s *Space) create(parent uint32) Handle {
	var idx uint32
	if n := len(s.freeRegions); n > 0 {
		idx = s.freeRegions[n-1]
		s.freeRegions = s.freeRegions[:n-1]
	} else {
		s.regions = append(s.regions, record{})
		idx = uint32(len(s.regions) - 1)
	}

	p := &s.regions[parent]
	depth := uint32(0)
	if parent != 0 {
		depth = p.depth + 1
	}

	r := &s.regions[idx]
	*r = record{
		parent:      parent,
		prevSibling: p.lastChild,
		depth:       depth,
		gen:         r.gen + 1,
		live:        true,
		head:        none,
		tail:        none,
		bigHead:     none,
		bigTail:     none,
	}

	if p.lastChild != 0 {
		s.regions[p.lastChild].nextSibling = idx
	} else {
		p.firstChild = idx
	}
	p.lastChild = idx
	p.children++
	s.liveRegions++

	h := Handle{index: idx, gen: r.gen}
	if ce := Logger().Check(zap.DebugLevel, "region created"); ce != nil {
		ce.Write(zap.Stringer("region", h), zap.Uint32("depth", depth))
	}
	return h
}

// lookup returns the record for a live handle or raises a stale-region fault.
func (s *Space) lookup(h Handle, phase errors.Phase) *record {
	if h.index == 0 || int(h.index) >= len(s.regions) {
		fatal(errors.StaleRegion(phase, h.String()))
	}
	r := &s.regions[h.index]
	if !r.live || r.gen != h.gen {
		fatal(errors.StaleRegion(phase, h.String()))
	}
	return r
}

func (s *Space) handle(idx uint32) Handle {
	return Handle{index: idx, gen: s.regions[idx].gen}
}

// Destroy reclaims every chunk owned by the region.
//
// Nested regions must already be destroyed. In checked mode a live nested
// region is a fatal fault; in unchecked mode it is destroyed first.
func (s *Space) Destroy(h Handle) {
	r := s.lookup(h, errors.PhaseDestroy)

	if r.children > 0 {
		if s.checked {
			deep := s.deepest(h.index)
			fatal(errors.LiveDescendant(h.String(), r.depth,
				s.handle(deep).String(), s.regions[deep].depth))
		}
		s.destroySubtree(h.index)
		return
	}
	s.release(h.index)
}

// deepest returns the live descendant of idx with the greatest depth.
// Ties go to the one created first among siblings.
func (s *Space) deepest(idx uint32) uint32 {
	best := idx
	stack := []uint32{s.regions[idx].firstChild}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top == 0 {
			continue
		}
		if s.regions[top].depth > s.regions[best].depth {
			best = top
		}
		stack = append(stack, s.regions[top].nextSibling, s.regions[top].firstChild)
	}
	return best
}

// destroySubtree releases idx and all its descendants, innermost first.
func (s *Space) destroySubtree(idx uint32) {
	stack := []uint32{idx}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if child := s.regions[top].firstChild; child != 0 {
			stack = append(stack, child)
			continue
		}
		stack = stack[:len(stack)-1]
		s.release(top)
	}
}

// release returns a leaf region's chunks to the free lists and recycles
// its record.
func (s *Space) release(idx uint32) {
	r := &s.regions[idx]

	if r.head != none {
		s.chunks[r.tail].next = s.freeStd
		s.freeStd = r.head
	}
	if r.bigHead != none {
		s.chunks[r.bigTail].next = s.freeBig
		s.freeBig = r.bigHead
	}

	p := &s.regions[r.parent]
	if r.prevSibling != 0 {
		s.regions[r.prevSibling].nextSibling = r.nextSibling
	} else {
		p.firstChild = r.nextSibling
	}
	if r.nextSibling != 0 {
		s.regions[r.nextSibling].prevSibling = r.prevSibling
	} else {
		p.lastChild = r.prevSibling
	}
	p.children--

	s.liveRegions--
	s.liveAllocs -= r.allocs
	s.liveBytes -= r.bytes
	s.chunksInUse -= r.nchunks
	s.chunksFree += r.nchunks

	if ce := Logger().Check(zap.DebugLevel, "region destroyed"); ce != nil {
		ce.Write(
			zap.Stringer("region", s.handle(idx)),
			zap.Uint32("depth", r.depth),
			zap.Uint64("allocs", r.allocs),
			zap.Uint32("chunks", r.nchunks))
	}

	gen := r.gen
	*r = record{gen: gen, head: none, tail: none, bigHead: none, bigTail: none}
	s.freeRegions = append(s.freeRegions, idx)
}
