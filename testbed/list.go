package testbed

import (
	"sync"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/region-runtime/abi"
	"github.com/wippyai/region-runtime/union"
)

// IntList tags.
const (
	IntListEmpty uint32 = 0
	IntListNode  uint32 = 1
)

// Offsets within a node payload.
const (
	nodeValue = 0
	nodeNext  = 4
)

var intList = sync.OnceValue(func() *union.Type {
	name := "int-list"
	node := "int-node"
	return union.MustCompile(&wit.TypeDef{
		Name: &name,
		Kind: &wit.Variant{Cases: []wit.Case{
			{Name: "empty"},
			{Name: "node", Type: &wit.TypeDef{
				Name: &node,
				Kind: &wit.Record{Fields: []wit.Field{
					{Name: "value", Type: wit.S32{}},
					{Name: "next", Type: abi.PtrType()},
				}},
			}},
		}},
	})
})

// IntList is a singly linked list of s32. A node's next pointer names the
// region holding the rest of the list, which must outlive the node.
func IntList() *union.Type {
	return intList()
}

// Empty returns a new empty list in the return region.
func Empty(f *abi.Frame) abi.Ptr {
	v := f.New(IntList(), IntListEmpty)
	return abi.Ptr{Addr: v.Addr(), Region: f.Return()}
}

// Push prepends value to tail. The new node lives in the return region.
func Push(f *abi.Frame, value int32, tail abi.Ptr) abi.Ptr {
	v := f.New(IntList(), IntListNode)
	n := v.Narrow(IntListNode)
	union.Store(n.Field(nodeValue, 4), value)
	f.StorePtr(n.Field(nodeNext, abi.PtrSize).Addr(), tail)
	return abi.Ptr{Addr: v.Addr(), Region: f.Return()}
}

// Sum adds up the list. The result is a scalar, so no region is involved.
func Sum(f *abi.Frame, list abi.Ptr) int32 {
	var total int32
	for {
		v := union.At(f.Memory(), IntList(), list.Addr)
		if v.Tag() != IntListNode {
			return total
		}
		n := v.Narrow(IntListNode)
		total += union.Load[int32](n.Field(nodeValue, 4))
		list = abi.LoadPtr(f.Memory(), n.Addr()+nodeNext)
	}
}

// Values collects the list into an s32 array in the return region.
func Values(f *abi.Frame, list abi.Ptr) abi.Slice {
	n := uint32(0)
	for p := list; ; n++ {
		v := union.At(f.Memory(), IntList(), p.Addr)
		if v.Tag() != IntListNode {
			break
		}
		p = abi.LoadPtr(f.Memory(), v.Narrow(IntListNode).Addr()+nodeNext)
	}

	out := f.AllocSlice(n, 4, 4)
	p := list
	for i := uint32(0); i < n; i++ {
		node := union.At(f.Memory(), IntList(), p.Addr).Narrow(IntListNode)
		value := union.Load[int32](node.Field(nodeValue, 4))
		abi.StoreU32(f.Memory(), out.Addr+4*i, uint32(value))
		p = abi.LoadPtr(f.Memory(), node.Addr()+nodeNext)
	}
	return out
}

// Reverse builds the reversed list in the return region. The input is
// staged in a scratch array first, so only the result survives the call.
func Reverse(f *abi.Frame, list abi.Ptr) abi.Ptr {
	stage := abi.Enter(f.Space(), f.Scratch())
	staged := Values(stage, list)
	stage.Leave(staged.Ptr())

	out := Empty(f)
	for i := uint32(0); i < staged.Len/4; i++ {
		out = Push(f, int32(abi.LoadU32(f.Memory(), staged.Addr+4*i)), out)
	}
	return out
}
