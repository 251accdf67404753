// Package memory provides the linear memories a region space carves its
// chunks from.
//
// Both backings implement regionruntime.GrowableMemory: byte-addressed,
// little-endian, grow-only in 64 KiB pages, and stable under growth (an
// offset keeps naming the same byte for the life of the memory).
//
//	Heap     - Go heap pages held in a slice; growth appends pages
//	Wazero   - the exported memory of a one-memory wasm module
//
// The wazero backing lets the runtime and code compiled to wasm share one
// address space: regions allocated by the host are directly visible to the
// guest at the same offsets.
package memory
