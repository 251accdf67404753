// Package abi implements the return-region calling convention.
//
// Every routine whose result can hold pointers or a tagged-union payload
// receives the region its result must live in. A call is bracketed by a
// Frame:
//
//	f := abi.Enter(space, ret)
//	tmp := f.Scratch()          // local storage, gone at Leave
//	out := f.Alloc(16, 8)       // result storage in ret
//	...
//	f.Leave(out)
//
// Leave destroys the frame's scratch regions innermost first and, when the
// space is checked, verifies that every result points into ret or into a
// region that outlives it. A result that escapes into scratch, or into any
// region the caller cannot prove live, is a fatal dangling report.
//
// Invoke and InvokeValue wrap the same sequence around a function and
// release scratch even if it panics.
//
// Ptr and Slice are region-qualified: alongside the address they carry the
// region holding the pointee, so storage derived from a pointee can be
// placed next to it.
package abi
