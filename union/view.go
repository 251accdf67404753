package union

import (
	"math"

	regionruntime "github.com/wippyai/region-runtime"
	"github.com/wippyai/region-runtime/errors"
	"github.com/wippyai/region-runtime/internal/canon"
)

// View is a narrowed reference to the payload of one alternative. It is
// valid while the value keeps that tag.
type View struct {
	mem   regionruntime.Memory
	typ   *Type
	tag   uint32
	addr  uint32
	width uint32
}

// Width is the declared size of the alternative.
func (v View) Width() uint32 { return v.width }

// Addr is the address of the payload.
func (v View) Addr() uint32 { return v.addr }

// Tag is the alternative the view was narrowed to.
func (v View) Tag() uint32 { return v.tag }

// Case describes the alternative the view was narrowed to.
func (v View) Case() Case { return v.typ.cases[v.tag] }

// Bytes returns the payload bytes. The slice may alias memory; write
// through Write.
func (v View) Bytes() []byte {
	b, err := v.mem.Read(v.addr, v.width)
	if err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "read payload"))
	}
	return b
}

// Write stores data at offset off within the payload.
func (v View) Write(off uint32, data []byte) {
	v.check(off, uint32(len(data)))
	if err := v.mem.Write(v.addr+off, data); err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "write payload"))
	}
}

// Field returns a view of n bytes at offset off within the payload, for
// alternatives whose payload is a record or tuple.
func (v View) Field(off, n uint32) View {
	v.check(off, n)
	return View{mem: v.mem, typ: v.typ, tag: v.tag, addr: v.addr + off, width: n}
}

func (v View) check(off, n uint32) {
	if end, ok := canon.SafeAddU32(off, n); !ok || end > v.width {
		err := errors.OutOfBounds(errors.PhaseNarrow, off, n, v.width)
		err.TypeName = v.typ.name
		fatal(err)
	}
}

// Scalar is a fixed-width number a payload can hold.
type Scalar interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

func widthOf[T Scalar]() uint32 {
	var z T
	switch any(z).(type) {
	case int8, uint8:
		return 1
	case int16, uint16:
		return 2
	case int32, uint32, float32:
		return 4
	default:
		return 8
	}
}

// Load reads a scalar payload.
func Load[T Scalar](v View) T {
	n := widthOf[T]()
	v.check(0, n)

	var (
		bits uint64
		err  error
	)
	switch n {
	case 1:
		var x uint8
		x, err = v.mem.ReadU8(v.addr)
		bits = uint64(x)
	case 2:
		var x uint16
		x, err = v.mem.ReadU16(v.addr)
		bits = uint64(x)
	case 4:
		var x uint32
		x, err = v.mem.ReadU32(v.addr)
		bits = uint64(x)
	default:
		bits, err = v.mem.ReadU64(v.addr)
	}
	if err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "load payload"))
	}

	var z T
	switch any(z).(type) {
	case float32:
		return any(math.Float32frombits(uint32(bits))).(T)
	case float64:
		return any(math.Float64frombits(bits)).(T)
	}
	return T(bits)
}

// Store writes a scalar payload.
func Store[T Scalar](v View, x T) {
	n := widthOf[T]()
	v.check(0, n)

	var bits uint64
	switch f := any(x).(type) {
	case float32:
		bits = uint64(math.Float32bits(f))
	case float64:
		bits = math.Float64bits(f)
	default:
		bits = uint64(x)
	}

	var err error
	switch n {
	case 1:
		err = v.mem.WriteU8(v.addr, uint8(bits))
	case 2:
		err = v.mem.WriteU16(v.addr, uint16(bits))
	case 4:
		err = v.mem.WriteU32(v.addr, uint32(bits))
	default:
		err = v.mem.WriteU64(v.addr, bits)
	}
	if err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "store payload"))
	}
}
