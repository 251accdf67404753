package testbed

import (
	"sync"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/region-runtime/abi"
	"github.com/wippyai/region-runtime/union"
)

// IntOption tags.
const (
	IntOptionNone  uint32 = 0
	IntOptionSome  uint32 = 1
	IntOptionOther uint32 = 2
)

var intOption = sync.OnceValue(func() *union.Type {
	name := "int-option"
	return union.MustCompile(&wit.TypeDef{
		Name: &name,
		Kind: &wit.Variant{Cases: []wit.Case{
			{Name: "none", Type: wit.S32{}},
			{Name: "some", Type: wit.S32{}},
			{Name: "other", Type: wit.S32{}},
		}},
	})
})

// IntOption is the three-way integer union every alternative of which
// carries an s32.
func IntOption() *union.Type {
	return intOption()
}

// NewIntOption builds an IntOption in the frame's return region.
func NewIntOption(f *abi.Frame, tag uint32, payload int32) union.Value {
	v := f.New(IntOption(), tag)
	union.Store(v.Narrow(tag), payload)
	return v
}

// AddFortyFive returns x with 45 added to its payload when x is some.
// Other alternatives come back unchanged. x is taken by value: the result
// is a copy in the return region and x itself is not modified.
func AddFortyFive(f *abi.Frame, x union.Value) union.Value {
	x = x.CopyTo(f.Allocator())

	if tag := x.Tag(); tag != IntOptionOther && tag != IntOptionNone {
		x1 := x.Narrow(IntOptionSome)
		union.Store(x1, union.Load[int32](x1)+45)
	}

	return x
}
