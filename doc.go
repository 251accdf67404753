// Package regionruntime is the memory-management and value-representation
// layer that compiled programs link against: region (arena) allocation with
// caller-chosen result regions, and tagged unions with flow-sensitive
// narrowing.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	regionruntime/       Root package with core Memory, Grower and Allocator interfaces
//	├── memory/          Linear memory backings (paged Go heap, wazero)
//	├── region/          Region tree, chunked bump allocation, LIFO checks
//	├── union/           Tagged-union layout, construction and narrowing
//	├── abi/             Return-region calling convention and region pointers
//	├── errors/          Structured fatal reports
//	├── testbed/         Routines shaped like generated code, end-to-end tests
//	└── cmd/regionscope  Scenario runner and interactive playground
//
// # Quick Start
//
// A generated routine receives its inputs and the region its result must
// live in:
//
//	mem := memory.NewHeap(nil)
//	space := region.NewSpace(mem, nil)
//
//	r0 := space.Create()
//	defer space.Destroy(r0)
//
//	opt := union.MustCompile(intOptionType)
//	x := union.New(mem, space.Allocator(r0), opt, 1)
//	union.Store(x.Narrow(1), int32(10))
//
//	out := abi.InvokeValue(space, r0, func(f *abi.Frame) union.Value {
//	    return addFortyFive(f, x)
//	})
//
// # Memory Model
//
// Regions carve chunks out of one grow-only linear memory. Memory is
// returned to the region space only in bulk, when a region is destroyed;
// its chunks are then reused by later regions. Addresses never move, which
// is what lets generated code hold raw offsets across allocations.
//
// # Failure Model
//
// The runtime trusts generated code. Exhaustion and contract violations
// (destroying a region that still has live nested regions, narrowing under
// the wrong tag, returning a pointer into a dead region) are reported as
// *errors.Error values through panic after a log line; there is no error
// return for generated code to check.
//
// # Thread Safety
//
// Nothing in this module is safe for concurrent use. A region space belongs
// to one goroutine.
package regionruntime
