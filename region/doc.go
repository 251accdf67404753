// Package region implements nested bump-allocated regions carved from a
// grow-only linear memory.
//
// # Regions
//
// A Space owns all allocator state: a table of region records, a table of
// chunks and the memory they live in. Regions form a tree. A root region
// has depth 0; a region created inside another has its parent's depth plus
// one.
//
//	space := region.NewSpace(mem, nil)
//
//	outer := space.Create()             // depth 0
//	inner := space.CreateChild(outer)   // depth 1
//
//	addr := space.Alloc(inner, 24, 8)   // bump allocation
//	space.Destroy(inner)                // bulk reclamation
//	space.Destroy(outer)
//
// # Chunks
//
// A region allocates into its current chunk by bumping a cursor. When the
// chunk is full a new one is appended; allocations already handed out
// never move. Requests larger than a standard chunk get a dedicated chunk.
// Destroying a region splices its chunk lists onto the space's free lists
// in constant time; later regions reuse those chunks before the memory is
// grown again.
//
// # Discipline
//
// Regions must be destroyed innermost first. In checked mode (the default
// unless built with the regionrelease tag) destroying a region that still
// has live nested regions is a fatal fault reporting both regions and their
// depths. In unchecked mode the live nested regions are destroyed with it.
// Using a destroyed handle is always fatal: handles carry a generation, so
// a recycled record is never mistaken for the region that used to live
// there.
//
// Faults are raised with panic; the panic value is an *errors.Error.
//
// # Thread Safety
//
// A Space is not safe for concurrent use.
package region
