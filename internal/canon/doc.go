// Package canon provides the arithmetic shared by every layout decision in
// the runtime: alignment rounding, discriminant widths and overflow-checked
// size math.
//
// The rules follow the Component Model Canonical ABI so that a value laid
// out by the region runtime is byte-for-byte what a wasm guest compiled from
// the same declarations expects.
//
// This package is internal to the runtime.
package canon
