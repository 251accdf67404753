// Package layout computes sizes, alignments and offsets for declared types.
//
// The region runtime places every value in linear memory, so the code
// generator and the runtime must agree on where each byte of a value lives.
// The rules are the Canonical ABI rules:
//   - Primitives: size equals alignment (u8=1, u32=4, u64=8, etc.)
//   - Records: fields laid out sequentially with padding for alignment
//   - Sum types: discriminant, then one payload area shared by every case,
//     sized to the largest case and starting at the strictest case alignment
//   - Lists/Strings: (pointer, length) pair in memory, content elsewhere
//
// # Usage
//
//	calc := layout.NewCalculator()
//	info := calc.Calculate(witType)
//	// info.Size, info.Align, info.PayloadOffset available
//
// This package is internal to the runtime.
package layout
