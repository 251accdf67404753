package region

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/region-runtime/errors"
	"github.com/wippyai/region-runtime/internal/canon"
)

// chunk is a contiguous address range owned by one region or a free list.
type chunk struct {
	base  uint32
	cap   uint32
	used  uint32
	next  int32
	owner uint32
	gen   uint32
	big   bool
}

// Alloc reserves size bytes aligned to align in the region and returns
// their address. The address stays valid, and keeps naming the same bytes,
// until the region or one of its ancestors is destroyed.
//
// Running out of memory is fatal. Align must be a power of two no larger
// than 8; 0 means 1.
func (s *Space) Alloc(h Handle, size, align uint32) uint32 {
	r := s.lookup(h, errors.PhaseAlloc)

	if align == 0 {
		align = 1
	}
	if !canon.ValidAlign(align) {
		fatal(errors.New(errors.PhaseAlloc, errors.KindInvalidInput).
			Region(h.String(), r.depth).
			Value(align).
			Detail("alignment %d is not a power of two up to %d", align, canon.MaxAlign).
			Build())
	}

	addr := s.alloc(h, r, size, align)

	r.allocs++
	r.bytes += uint64(size)
	s.liveAllocs++
	s.liveBytes += uint64(size)

	return addr
}

func (s *Space) alloc(h Handle, r *record, size, align uint32) uint32 {
	if size == 0 {
		return zeroBase
	}

	if size > canon.MaxAlloc {
		fatal(errors.Exhausted(h.String(), r.depth, size, align,
			fmt.Errorf("request exceeds the %d byte allocation limit", canon.MaxAlloc)))
	}

	if size > s.cfg.ChunkSize {
		return s.allocBig(h, r, size)
	}

	if r.tail != none {
		c := &s.chunks[r.tail]
		off := canon.AlignTo(c.used, align)
		if uint64(off)+uint64(size) <= uint64(c.cap) {
			c.used = off + size
			return c.base + off
		}
	}

	idx := s.takeChunk(h, r)
	if r.tail != none {
		s.chunks[r.tail].next = idx
		r.growths++
		s.growths++
	} else {
		r.head = idx
	}
	r.tail = idx
	r.nchunks++

	// Chunk bases are 8-aligned, so offset 0 satisfies any valid alignment.
	c := &s.chunks[idx]
	c.used = size
	return c.base
}

func (s *Space) allocBig(h Handle, r *record, size uint32) uint32 {
	need := canon.AlignTo(size, canon.MaxAlign)

	idx := int32(none)
	prev := int32(none)
	for i := s.freeBig; i != none; i = s.chunks[i].next {
		if s.chunks[i].cap >= need {
			idx = i
			break
		}
		prev = i
	}

	if idx != none {
		if prev == none {
			s.freeBig = s.chunks[idx].next
		} else {
			s.chunks[prev].next = s.chunks[idx].next
		}
		s.chunksFree--
		s.clear(idx)
	} else {
		idx = s.carve(h, r, need, true)
	}

	c := &s.chunks[idx]
	c.owner, c.gen = h.index, h.gen
	c.used = size
	c.next = none

	if r.bigTail != none {
		s.chunks[r.bigTail].next = idx
	} else {
		r.bigHead = idx
	}
	r.bigTail = idx
	r.nchunks++
	s.chunksInUse++

	return c.base
}

// takeChunk hands out a standard chunk, reusing a freed one when possible.
func (s *Space) takeChunk(h Handle, r *record) int32 {
	var idx int32
	if s.freeStd != none {
		idx = s.freeStd
		s.freeStd = s.chunks[idx].next
		s.chunksFree--
		s.clear(idx)
	} else {
		idx = s.carve(h, r, s.cfg.ChunkSize, false)
	}

	c := &s.chunks[idx]
	c.owner, c.gen = h.index, h.gen
	c.used = 0
	c.next = none
	s.chunksInUse++
	return idx
}

// carve cuts a new chunk from the end of the used address space, growing
// the memory when needed. Chunks are appended in address order, which keeps
// s.chunks sorted by base.
func (s *Space) carve(h Handle, r *record, size uint32, big bool) int32 {
	end := uint64(s.brk) + uint64(size)
	if end > math.MaxUint32 || (s.cfg.MaxBytes > 0 && end > uint64(s.cfg.MaxBytes)) {
		fatal(errors.Exhausted(h.String(), r.depth, size, canon.MaxAlign,
			fmt.Errorf("address space limit reached at %d bytes", s.brk)))
	}

	if have := uint64(s.mem.Size()); end > have {
		pages := canon.PagesFor(uint32(end - have))
		prev, ok := s.mem.Grow(pages)
		if !ok {
			fatal(errors.Exhausted(h.String(), r.depth, size, canon.MaxAlign,
				fmt.Errorf("memory grow of %d pages refused at %d pages", pages, prev)))
		}
		if ce := Logger().Check(zap.DebugLevel, "memory grown"); ce != nil {
			ce.Write(zap.Uint32("from_pages", prev), zap.Uint32("delta", pages))
		}
	}

	s.chunks = append(s.chunks, chunk{base: s.brk, cap: size, next: none, big: big})
	s.brk = uint32(end)
	return int32(len(s.chunks) - 1)
}

// clear zeroes a reused chunk so new allocations never observe the data of
// a destroyed region.
func (s *Space) clear(idx int32) {
	c := s.chunks[idx]
	if s.zero == nil {
		s.zero = make([]byte, s.cfg.ChunkSize)
	}
	for off := uint32(0); off < c.used; {
		n := min(c.used-off, uint32(len(s.zero)))
		if err := s.mem.Write(c.base+off, s.zero[:n]); err != nil {
			fatal(errors.Wrap(errors.PhaseAlloc, errors.KindOutOfBounds, err, "clear reused chunk"))
		}
		off += n
	}
}
