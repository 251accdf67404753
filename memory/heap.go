package memory

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	regionruntime "github.com/wippyai/region-runtime"
	"github.com/wippyai/region-runtime/internal/canon"
)

// MaxPages is the largest page count a 32-bit address space can hold
// while keeping Size representable.
const MaxPages = 1<<16 - 1

// HeapConfig holds configuration for a Go heap memory
type HeapConfig struct {
	// InitialPages is the page count allocated up front.
	InitialPages uint32

	// MaxPages caps growth. 0 means MaxPages (just under 4 GiB).
	MaxPages uint32
}

// Heap is a linear memory backed by Go heap pages. Each page is allocated
// once and never copied, so growth cannot move existing bytes.
type Heap struct {
	pages [][]byte
	max   uint32
}

// NewHeap creates a heap memory. A nil config uses defaults.
func NewHeap(cfg *HeapConfig) *Heap {
	h := &Heap{max: MaxPages}
	if cfg != nil {
		if cfg.MaxPages > 0 && cfg.MaxPages < MaxPages {
			h.max = cfg.MaxPages
		}
		if cfg.InitialPages > 0 {
			h.Grow(min(cfg.InitialPages, h.max))
		}
	}
	return h
}

// Pages returns the current page count.
func (h *Heap) Pages() uint32 {
	return uint32(len(h.pages))
}

// Size returns the memory size in bytes.
func (h *Heap) Size() uint32 {
	return uint32(len(h.pages)) * canon.PageSize
}

// Grow appends deltaPages zeroed pages.
func (h *Heap) Grow(deltaPages uint32) (uint32, bool) {
	prev := uint32(len(h.pages))
	if uint64(prev)+uint64(deltaPages) > uint64(h.max) {
		Logger().Debug("heap grow refused",
			zap.Uint32("pages", prev),
			zap.Uint32("delta", deltaPages),
			zap.Uint32("max", h.max))
		return prev, false
	}
	for i := uint32(0); i < deltaPages; i++ {
		h.pages = append(h.pages, make([]byte, canon.PageSize))
	}
	return prev, true
}

func (h *Heap) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(h.Size()) {
		return fmt.Errorf("access out of bounds: offset=%d, length=%d, size=%d", offset, length, h.Size())
	}
	return nil
}

// Read returns length bytes at offset. Reads inside one page alias the
// memory; reads that straddle pages return a copy.
func (h *Heap) Read(offset uint32, length uint32) ([]byte, error) {
	if err := h.check(offset, length); err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}
	page, off := offset/canon.PageSize, offset%canon.PageSize
	if uint64(off)+uint64(length) <= canon.PageSize {
		return h.pages[page][off : off+length : off+length], nil
	}
	out := make([]byte, length)
	h.copyOut(out, offset)
	return out, nil
}

func (h *Heap) copyOut(dst []byte, offset uint32) {
	for len(dst) > 0 {
		page, off := offset/canon.PageSize, offset%canon.PageSize
		n := copy(dst, h.pages[page][off:])
		dst = dst[n:]
		offset += uint32(n)
	}
}

func (h *Heap) Write(offset uint32, data []byte) error {
	if err := h.check(offset, uint32(len(data))); err != nil {
		return err
	}
	for len(data) > 0 {
		page, off := offset/canon.PageSize, offset%canon.PageSize
		n := copy(h.pages[page][off:], data)
		data = data[n:]
		offset += uint32(n)
	}
	return nil
}

func (h *Heap) ReadU8(offset uint32) (uint8, error) {
	if err := h.check(offset, 1); err != nil {
		return 0, err
	}
	return h.pages[offset/canon.PageSize][offset%canon.PageSize], nil
}

func (h *Heap) ReadU16(offset uint32) (uint16, error) {
	data, err := h.Read(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data), nil
}

func (h *Heap) ReadU32(offset uint32) (uint32, error) {
	data, err := h.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

func (h *Heap) ReadU64(offset uint32) (uint64, error) {
	data, err := h.Read(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

func (h *Heap) WriteU8(offset uint32, value uint8) error {
	if err := h.check(offset, 1); err != nil {
		return err
	}
	h.pages[offset/canon.PageSize][offset%canon.PageSize] = value
	return nil
}

func (h *Heap) WriteU16(offset uint32, value uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	return h.Write(offset, buf[:])
}

func (h *Heap) WriteU32(offset uint32, value uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	return h.Write(offset, buf[:])
}

func (h *Heap) WriteU64(offset uint32, value uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	return h.Write(offset, buf[:])
}

var _ regionruntime.GrowableMemory = (*Heap)(nil)
