package abi

import (
	"go.uber.org/zap"

	regionruntime "github.com/wippyai/region-runtime"
	"github.com/wippyai/region-runtime/errors"
	"github.com/wippyai/region-runtime/internal/canon"
	"github.com/wippyai/region-runtime/region"
	"github.com/wippyai/region-runtime/union"
)

// Frame is one call under the return-region convention.
type Frame struct {
	space   *region.Space
	ret     region.Handle
	scratch []region.Handle
	left    bool
}

// Enter begins a call whose result must be built in ret.
func Enter(space *region.Space, ret region.Handle) *Frame {
	if !space.Live(ret) {
		fatal(errors.StaleRegion(errors.PhaseReturn, ret.String()))
	}
	return &Frame{space: space, ret: ret}
}

// Space returns the region space the call runs in.
func (f *Frame) Space() *region.Space { return f.space }

// Memory returns the memory all regions of the call live in.
func (f *Frame) Memory() regionruntime.GrowableMemory { return f.space.Memory() }

// Return returns the destination region.
func (f *Frame) Return() region.Handle { return f.ret }

// Alloc allocates result storage in the destination region.
func (f *Frame) Alloc(size, align uint32) Ptr {
	return Ptr{Addr: f.space.Alloc(f.ret, size, align), Region: f.ret}
}

// AllocSlice allocates an array of n elements of elemSize bytes in the
// destination region.
func (f *Frame) AllocSlice(n, elemSize, align uint32) Slice {
	total, ok := canon.SafeMulU32(n, elemSize)
	if !ok {
		fatal(errors.New(errors.PhaseAlloc, errors.KindExhausted).
			Region(f.ret.String(), f.space.Depth(f.ret)).
			Detail("array of %d x %d bytes overflows", n, elemSize).
			Build())
	}
	return Slice{Addr: f.space.Alloc(f.ret, total, align), Region: f.ret, Len: total}
}

// StorePtr writes p into result storage at addr. In checked mode p must
// point into a region that outlives the destination, since the result
// keeps it reachable after Leave.
func (f *Frame) StorePtr(addr uint32, p Ptr) {
	if f.space.Checked() {
		f.checkPtr(p)
	}
	StorePtr(f.space.Memory(), addr, p)
}

// Allocator exposes the destination region as an allocator.
func (f *Frame) Allocator() regionruntime.Allocator {
	return f.space.Allocator(f.ret)
}

// New constructs a tagged value in the destination region.
func (f *Frame) New(typ *union.Type, tag uint32) union.Value {
	return union.New(f.space.Memory(), f.Allocator(), typ, tag)
}

// Scratch opens a local region for the call. Scratch regions nest: each
// one is a child of the previous, the first a child of the destination.
// All are destroyed by Leave.
func (f *Frame) Scratch() region.Handle {
	if f.left {
		fatal(errors.InvalidInput(errors.PhaseReturn, "scratch requested after leave"))
	}
	parent := f.ret
	if n := len(f.scratch); n > 0 {
		parent = f.scratch[n-1]
	}
	h := f.space.CreateChild(parent)
	f.scratch = append(f.scratch, h)
	return h
}

// Leave ends the call: scratch regions are destroyed innermost first, then
// each result is checked to point into storage that outlives the
// destination region.
func (f *Frame) Leave(results ...Ptr) {
	f.finish()
	if !f.space.Checked() {
		return
	}
	for _, p := range results {
		f.checkPtr(p)
	}
}

// LeaveValue is Leave for a tagged-value result. The value's own storage is
// checked along with any pointers it carries.
func (f *Frame) LeaveValue(v union.Value, ptrs ...Ptr) {
	f.finish()
	if !f.space.Checked() {
		return
	}
	owner, ok := f.space.Owner(v.Addr())
	if !ok || !f.space.Outlives(owner, f.ret) {
		f.dangling(v.Addr(), owner)
	}
	for _, p := range ptrs {
		f.checkPtr(p)
	}
}

func (f *Frame) finish() {
	if f.left {
		fatal(errors.InvalidInput(errors.PhaseReturn, "frame left twice"))
	}
	f.left = true
	f.release()
}

// release destroys scratch regions innermost first.
func (f *Frame) release() {
	for i := len(f.scratch) - 1; i >= 0; i-- {
		f.space.Destroy(f.scratch[i])
	}
	if ce := Logger().Check(zap.DebugLevel, "frame left"); ce != nil {
		ce.Write(zap.Stringer("return", f.ret), zap.Int("scratch", len(f.scratch)))
	}
	f.scratch = nil
}

func (f *Frame) checkPtr(p Ptr) {
	if p.IsNull() || p.Addr == region.ZeroSizeAddr {
		return
	}
	if !f.space.Live(p.Region) {
		f.dangling(p.Addr, p.Region)
	}
	owner, ok := f.space.Owner(p.Addr)
	if !ok || owner != p.Region || !f.space.Outlives(p.Region, f.ret) {
		f.dangling(p.Addr, p.Region)
	}
}

func (f *Frame) dangling(addr uint32, owner region.Handle) {
	fatal(errors.Dangling(f.ret.String(), f.space.Depth(f.ret), addr, owner.String()))
}

// Invoke runs fn under a new frame and leaves it with fn's result. If fn
// panics, scratch regions are still destroyed before the panic continues.
func Invoke(space *region.Space, ret region.Handle, fn func(f *Frame) Ptr) Ptr {
	f := Enter(space, ret)
	defer f.abort()
	p := fn(f)
	f.Leave(p)
	return p
}

// InvokeValue is Invoke for routines returning a tagged value.
func InvokeValue(space *region.Space, ret region.Handle, fn func(f *Frame) union.Value) union.Value {
	f := Enter(space, ret)
	defer f.abort()
	v := fn(f)
	f.LeaveValue(v)
	return v
}

func (f *Frame) abort() {
	if f.left {
		return
	}
	f.left = true
	f.release()
}

// CopyBytes copies src into the destination region.
func CopyBytes(f *Frame, src Slice) Slice {
	if src.Len == 0 {
		return Slice{Addr: region.ZeroSizeAddr, Region: f.ret}
	}
	data, err := f.space.Memory().Read(src.Addr, src.Len)
	if err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "read source array"))
	}
	// Read may alias memory that the allocation below grows past.
	data = append([]byte(nil), data...)

	dst := f.Alloc(src.Len, 1)
	if err := f.space.Memory().Write(dst.Addr, data); err != nil {
		fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "write array copy"))
	}
	return Slice{Addr: dst.Addr, Region: f.ret, Len: src.Len}
}
