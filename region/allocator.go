package region

import (
	regionruntime "github.com/wippyai/region-runtime"
	"github.com/wippyai/region-runtime/errors"
)

// Allocator exposes a region through the generic allocator interface used
// by the union and abi packages.
func (s *Space) Allocator(h Handle) regionruntime.Allocator {
	s.lookup(h, errors.PhaseAlloc)
	return &allocator{space: s, region: h}
}

type allocator struct {
	space  *Space
	region Handle
}

// Alloc never returns an error: exhaustion and stale regions are fatal.
func (a *allocator) Alloc(size, align uint32) (uint32, error) {
	return a.space.Alloc(a.region, size, align), nil
}

// Free is a no-op. Storage is reclaimed when the region is destroyed.
func (a *allocator) Free(ptr, size, align uint32) {}
