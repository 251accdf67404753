package abi

import (
	"go.bytecodealliance.org/wit"

	regionruntime "github.com/wippyai/region-runtime"
	"github.com/wippyai/region-runtime/errors"
	"github.com/wippyai/region-runtime/region"
)

// Encoded sizes of region-qualified pointers.
const (
	PtrSize   = 12
	SliceSize = 16
	PtrAlign  = 4
)

// Ptr is an address together with the region that owns it. The zero Ptr is
// null.
type Ptr struct {
	Addr   uint32
	Region region.Handle
}

// IsNull reports whether p points nowhere.
func (p Ptr) IsNull() bool {
	return p.Addr == 0
}

// Slice is a region-qualified array of Len bytes.
type Slice struct {
	Addr   uint32
	Region region.Handle
	Len    uint32
}

// Ptr returns the start of the slice.
func (s Slice) Ptr() Ptr {
	return Ptr{Addr: s.Addr, Region: s.Region}
}

// StorePtr encodes p at addr as three little-endian u32 words: address,
// region index, region generation.
func StorePtr(mem regionruntime.Memory, addr uint32, p Ptr) {
	StoreU32(mem, addr, p.Addr)
	StoreU32(mem, addr+4, p.Region.Index())
	StoreU32(mem, addr+8, p.Region.Gen())
}

// LoadPtr decodes a pointer written by StorePtr.
func LoadPtr(mem regionruntime.Memory, addr uint32) Ptr {
	return Ptr{
		Addr:   LoadU32(mem, addr),
		Region: region.HandleOf(LoadU32(mem, addr+4), LoadU32(mem, addr+8)),
	}
}

// StoreSlice encodes s at addr as a pointer followed by a u32 length.
func StoreSlice(mem regionruntime.Memory, addr uint32, s Slice) {
	StorePtr(mem, addr, s.Ptr())
	StoreU32(mem, addr+12, s.Len)
}

// LoadSlice decodes a slice written by StoreSlice.
func LoadSlice(mem regionruntime.Memory, addr uint32) Slice {
	p := LoadPtr(mem, addr)
	return Slice{Addr: p.Addr, Region: p.Region, Len: LoadU32(mem, addr+12)}
}

var (
	ptrName   = "region-ptr"
	sliceName = "region-slice"

	ptrType = &wit.TypeDef{
		Name: &ptrName,
		Kind: &wit.Record{Fields: []wit.Field{
			{Name: "addr", Type: wit.U32{}},
			{Name: "region", Type: wit.U32{}},
			{Name: "gen", Type: wit.U32{}},
		}},
	}
	sliceType = &wit.TypeDef{
		Name: &sliceName,
		Kind: &wit.Record{Fields: []wit.Field{
			{Name: "addr", Type: wit.U32{}},
			{Name: "region", Type: wit.U32{}},
			{Name: "gen", Type: wit.U32{}},
			{Name: "len", Type: wit.U32{}},
		}},
	}
)

// PtrType is the WIT record matching the Ptr encoding, for declaring
// pointer-carrying alternatives of a sum type.
func PtrType() *wit.TypeDef { return ptrType }

// SliceType is the WIT record matching the Slice encoding.
func SliceType() *wit.TypeDef { return sliceType }

// StoreU32 writes one little-endian word. An out-of-bounds address is fatal.
func StoreU32(mem regionruntime.Memory, addr, v uint32) {
	if err := mem.WriteU32(addr, v); err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "store word"))
	}
}

// LoadU32 reads one little-endian word. An out-of-bounds address is fatal.
func LoadU32(mem regionruntime.Memory, addr uint32) uint32 {
	v, err := mem.ReadU32(addr)
	if err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "load word"))
	}
	return v
}
