package union

import (
	regionruntime "github.com/wippyai/region-runtime"
	"github.com/wippyai/region-runtime/errors"
)

// Value is a tagged value stored in linear memory at Addr.
//
// Value is a small handle: copying it does not copy the stored value. Use
// CopyTo for a by-value copy into another region.
type Value struct {
	mem  regionruntime.Memory
	typ  *Type
	addr uint32
}

// New allocates a value of typ with alloc and initialises it to tag with a
// zeroed payload.
func New(mem regionruntime.Memory, alloc regionruntime.Allocator, typ *Type, tag uint32) Value {
	typ.checkTag(errors.PhaseCreate, tag)

	addr, err := alloc.Alloc(typ.size, typ.align)
	if err != nil {
		fatal(errors.New(errors.PhaseAlloc, errors.KindExhausted).
			TypeName(typ.name).
			Cause(err).
			Detail("cannot allocate %d bytes", typ.size).
			Build())
	}

	v := Value{mem: mem, typ: typ, addr: addr}
	v.zero(0, typ.size)
	v.writeTag(tag)
	return v
}

// At views the value of typ stored at addr.
func At(mem regionruntime.Memory, typ *Type, addr uint32) Value {
	return Value{mem: mem, typ: typ, addr: addr}
}

func (v Value) Type() *Type                  { return v.typ }
func (v Value) Addr() uint32                 { return v.addr }
func (v Value) Memory() regionruntime.Memory { return v.mem }

// IsZero reports whether v refers to no value.
func (v Value) IsZero() bool {
	return v.typ == nil
}

// Tag reads the discriminant.
func (v Value) Tag() uint32 {
	var (
		tag uint32
		err error
	)
	switch v.typ.discSize {
	case 1:
		var b uint8
		b, err = v.mem.ReadU8(v.addr)
		tag = uint32(b)
	case 2:
		var h uint16
		h, err = v.mem.ReadU16(v.addr)
		tag = uint32(h)
	default:
		tag, err = v.mem.ReadU32(v.addr)
	}
	if err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "read discriminant"))
	}
	return tag
}

// Is reports whether the value currently holds alternative tag.
func (v Value) Is(tag uint32) bool {
	return v.Tag() == tag
}

// Set replaces the value wholesale: the discriminant becomes tag and the
// payload becomes payload followed by zeroes.
func (v Value) Set(tag uint32, payload []byte) {
	v.typ.checkTag(errors.PhaseNarrow, tag)
	c := v.typ.cases[tag]
	if uint32(len(payload)) > c.Size {
		err := errors.OutOfBounds(errors.PhaseNarrow, 0, uint32(len(payload)), c.Size)
		err.TypeName = v.typ.name
		fatal(err)
	}

	off := v.addr + v.typ.payloadOffset
	if len(payload) > 0 {
		if err := v.mem.Write(off, payload); err != nil {
			fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "write payload"))
		}
	}
	v.zero(v.typ.payloadOffset+uint32(len(payload)), v.typ.size)
	v.writeTag(tag)
}

// CopyTo copies the value into storage obtained from alloc, typically
// another region of the same memory.
func (v Value) CopyTo(alloc regionruntime.Allocator) Value {
	addr, err := alloc.Alloc(v.typ.size, v.typ.align)
	if err != nil {
		fatal(errors.New(errors.PhaseAlloc, errors.KindExhausted).
			TypeName(v.typ.name).
			Cause(err).
			Detail("cannot allocate %d bytes", v.typ.size).
			Build())
	}

	src, err := v.mem.Read(v.addr, v.typ.size)
	if err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "read value"))
	}
	if err := v.mem.Write(addr, src); err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "write value"))
	}
	return Value{mem: v.mem, typ: v.typ, addr: addr}
}

// Narrow returns the payload as alternative tag. The caller must have
// established that the value holds tag; unless built with regionrelease the
// claim is asserted.
func (v Value) Narrow(tag uint32) View {
	if narrowChecks {
		return v.NarrowChecked(tag)
	}
	v.typ.checkTag(errors.PhaseNarrow, tag)
	return v.view(tag)
}

// NarrowChecked is Narrow with the tag assertion in every build.
func (v Value) NarrowChecked(tag uint32) View {
	v.typ.checkTag(errors.PhaseNarrow, tag)
	if actual := v.Tag(); actual != tag {
		fatal(errors.TagMismatch(v.typ.name, tag, actual))
	}
	return v.view(tag)
}

func (v Value) view(tag uint32) View {
	return View{
		mem:   v.mem,
		typ:   v.typ,
		tag:   tag,
		addr:  v.addr + v.typ.payloadOffset,
		width: v.typ.cases[tag].Size,
	}
}

func (v Value) writeTag(tag uint32) {
	var err error
	switch v.typ.discSize {
	case 1:
		err = v.mem.WriteU8(v.addr, uint8(tag))
	case 2:
		err = v.mem.WriteU16(v.addr, uint16(tag))
	default:
		err = v.mem.WriteU32(v.addr, tag)
	}
	if err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "write discriminant"))
	}
}

// zero clears bytes [from, to) of the value.
func (v Value) zero(from, to uint32) {
	if from >= to {
		return
	}
	if err := v.mem.Write(v.addr+from, make([]byte, to-from)); err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "clear value"))
	}
}
