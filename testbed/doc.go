// Package testbed holds routines written the way the code generator emits
// them against the region runtime, and the end-to-end tests that drive the
// region, union and abi packages together.
//
// Each routine takes a *abi.Frame as its destination region, inspects and
// narrows tagged values with explicit tag tests, and builds its result in
// the frame's return region.
package testbed
