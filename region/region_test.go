package region

import (
	"context"
	"math/rand"
	"testing"

	regionruntime "github.com/wippyai/region-runtime"
	"github.com/wippyai/region-runtime/errors"
	"github.com/wippyai/region-runtime/memory"
)

// backings returns one fresh memory per backing the allocator must work on.
func backings(t *testing.T) map[string]regionruntime.GrowableMemory {
	t.Helper()
	w, err := memory.NewWazero(context.Background(), &memory.WazeroConfig{MaxPages: 256})
	if err != nil {
		t.Fatalf("NewWazero: %v", err)
	}
	t.Cleanup(func() { _ = w.Close(context.Background()) })
	return map[string]regionruntime.GrowableMemory{
		"heap":   memory.NewHeap(nil),
		"wazero": w,
	}
}

func mustPanic(t *testing.T, kind errors.Kind, fn func()) *errors.Error {
	t.Helper()
	var got *errors.Error
	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatalf("expected %s fault, got none", kind)
			}
			e, ok := errors.Fatal(r)
			if !ok {
				t.Fatalf("expected *errors.Error, got %T: %v", r, r)
			}
			got = e
		}()
		fn()
	}()
	if got.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, got.Kind, got)
	}
	return got
}

func checkedSpace(mem regionruntime.GrowableMemory, chunk uint32) *Space {
	return NewSpace(mem, &Config{ChunkSize: chunk, Mode: ModeChecked})
}

func TestSpace_CreateDepth(t *testing.T) {
	s := checkedSpace(memory.NewHeap(nil), 0)

	r0 := s.Create()
	r1 := s.CreateChild(r0)
	r2 := s.CreateChild(r1)
	other := s.Create()

	tests := []struct {
		name   string
		h      Handle
		depth  uint32
		parent Handle
		root   bool
	}{
		{"root", r0, 0, Handle{}, true},
		{"child", r1, 1, r0, false},
		{"grandchild", r2, 2, r1, false},
		{"second_root", other, 0, Handle{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := s.Depth(tt.h); d != tt.depth {
				t.Errorf("Depth = %d, want %d", d, tt.depth)
			}
			p, ok := s.Parent(tt.h)
			if ok == tt.root {
				t.Errorf("Parent ok = %v for root=%v", ok, tt.root)
			}
			if p != tt.parent {
				t.Errorf("Parent = %v, want %v", p, tt.parent)
			}
		})
	}

	if s.Stats().Regions != 4 {
		t.Errorf("Regions = %d, want 4", s.Stats().Regions)
	}
	if s.Stats().ChunksInUse != 0 {
		t.Error("creating a region must not take a chunk")
	}
}

func TestSpace_LIFOReturnsAllocationsToZero(t *testing.T) {
	for name, mem := range backings(t) {
		t.Run(name, func(t *testing.T) {
			s := checkedSpace(mem, 256)

			r0 := s.Create()
			r1 := s.CreateChild(r0)
			r2 := s.CreateChild(r1)
			for i := 0; i < 50; i++ {
				s.Alloc(r0, 8, 8)
				s.Alloc(r1, 24, 4)
				s.Alloc(r2, 100, 1)
			}

			if got := s.Stats().Allocations; got != 150 {
				t.Fatalf("Allocations = %d, want 150", got)
			}

			s.Destroy(r2)
			s.Destroy(r1)
			s.Destroy(r0)

			st := s.Stats()
			if st.Regions != 0 || st.Allocations != 0 || st.Bytes != 0 || st.ChunksInUse != 0 {
				t.Fatalf("space not empty after LIFO destroy: %+v", st)
			}
			if st.ChunksFree == 0 {
				t.Fatal("destroyed chunks should be on the free lists")
			}
		})
	}
}

func TestSpace_PointerStability(t *testing.T) {
	for name, mem := range backings(t) {
		t.Run(name, func(t *testing.T) {
			s := checkedSpace(mem, 128)
			r := s.Create()

			type entry struct {
				addr uint32
				val  uint64
			}
			var entries []entry
			for i := 0; i < 200; i++ {
				addr := s.Alloc(r, 8, 8)
				if addr%8 != 0 {
					t.Fatalf("alloc %d: address %d not 8-aligned", i, addr)
				}
				v := uint64(i)*0x9e3779b97f4a7c15 + 1
				if err := mem.WriteU64(addr, v); err != nil {
					t.Fatal(err)
				}
				entries = append(entries, entry{addr, v})
			}

			for i, e := range entries {
				got, err := mem.ReadU64(e.addr)
				if err != nil {
					t.Fatal(err)
				}
				if got != e.val {
					t.Fatalf("alloc %d at %d: got %#x, want %#x", i, e.addr, got, e.val)
				}
				if owner, ok := s.Owner(e.addr); !ok || owner != r {
					t.Fatalf("Owner(%d) = %v, %v", e.addr, owner, ok)
				}
			}
		})
	}
}

func TestSpace_GrowthKeepsAddresses(t *testing.T) {
	tests := []struct {
		chunk uint32
		size  uint32
	}{
		{chunk: 64, size: 8},
		{chunk: 64, size: 10},
		{chunk: 1024, size: 1},
		{chunk: 1024, size: 1000},
		{chunk: 65536, size: 24},
	}
	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			for name, mem := range backings(t) {
				t.Run(name, func(t *testing.T) {
					s := checkedSpace(mem, tt.chunk)
					r := s.Create()

					fit := int(tt.chunk / tt.size)
					addrs := make([]uint32, 0, fit)
					for i := 0; i < fit; i++ {
						a := s.Alloc(r, tt.size, 1)
						if err := mem.WriteU8(a, uint8(i+1)); err != nil {
							t.Fatal(err)
						}
						addrs = append(addrs, a)
					}
					if g := s.RegionStats(r).Growths; g != 0 {
						t.Fatalf("growths before overflow = %d, want 0", g)
					}

					last := s.Alloc(r, tt.size, 1)
					if g := s.RegionStats(r).Growths; g != 1 {
						t.Fatalf("growths after overflow = %d, want 1", g)
					}
					if s.Stats().Growths != 1 {
						t.Fatalf("space growths = %d, want 1", s.Stats().Growths)
					}

					for i, a := range addrs {
						v, err := mem.ReadU8(a)
						if err != nil {
							t.Fatal(err)
						}
						if v != uint8(i+1) {
							t.Fatalf("alloc %d at %d changed: %d", i, a, v)
						}
					}
					for _, a := range addrs {
						if last >= a && last < a+tt.size {
							t.Fatalf("new allocation %d overlaps %d", last, a)
						}
					}
				})
			}
		})
	}
}

func TestSpace_ZeroSize(t *testing.T) {
	s := checkedSpace(memory.NewHeap(nil), 0)
	r := s.Create()

	a := s.Alloc(r, 0, 1)
	b := s.Alloc(r, 0, 8)
	if a == 0 || b == 0 {
		t.Fatal("zero-size allocation returned null")
	}
	if s.RegionStats(r).Chunks != 0 {
		t.Error("zero-size allocation took a chunk")
	}
	if s.RegionStats(r).Allocations != 2 {
		t.Errorf("Allocations = %d, want 2", s.RegionStats(r).Allocations)
	}

	first := s.Alloc(r, 4, 4)
	if first == a {
		t.Error("real allocation aliases the zero-size address")
	}
}

func TestSpace_OutOfOrderDestroy(t *testing.T) {
	s := checkedSpace(memory.NewHeap(nil), 0)
	r0 := s.Create()
	r1 := s.CreateChild(r0)
	r2 := s.CreateChild(r1)

	err := mustPanic(t, errors.KindLiveDescendant, func() { s.Destroy(r0) })
	if err.Depth != 0 || !err.HasDepth {
		t.Errorf("report depth = %d (has %v), want 0", err.Depth, err.HasDepth)
	}
	if err.Value != r2.String() {
		t.Errorf("report names %v, want deepest live descendant %v", err.Value, r2)
	}

	if !s.Live(r0) || !s.Live(r1) || !s.Live(r2) {
		t.Fatal("rejected destroy must leave the tree intact")
	}

	s.Destroy(r2)
	s.Destroy(r1)
	s.Destroy(r0)
}

func TestSpace_OutOfOrderDestroyBranching(t *testing.T) {
	s := checkedSpace(memory.NewHeap(nil), 0)
	r0 := s.Create()
	r1 := s.CreateChild(r0)
	r2 := s.CreateChild(r0)
	r3 := s.CreateChild(r2)

	err := mustPanic(t, errors.KindLiveDescendant, func() { s.Destroy(r0) })
	if err.Value != r3.String() {
		t.Errorf("report names %v, want deepest live descendant %v", err.Value, r3)
	}

	s.Destroy(r1)
	err = mustPanic(t, errors.KindLiveDescendant, func() { s.Destroy(r0) })
	if err.Value != r3.String() {
		t.Errorf("after destroying %v, report names %v, want %v", r1, err.Value, r3)
	}

	s.Destroy(r3)
	s.Destroy(r2)
	s.Destroy(r0)
}

func TestSpace_RandomTreesDetectOutOfOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for tree := 0; tree < 100; tree++ {
		s := checkedSpace(memory.NewHeap(nil), 64)

		live := []Handle{s.Create()}
		n := 2 + rng.Intn(30)
		for i := 1; i < n; i++ {
			parent := live[rng.Intn(len(live))]
			h := s.CreateChild(parent)
			s.Alloc(h, uint32(1+rng.Intn(40)), 4)
			live = append(live, h)
		}

		// Destroy in random order, expecting a fault exactly when the
		// region still has live children.
		for len(live) > 0 {
			i := rng.Intn(len(live))
			h := live[i]
			if s.RegionStats(h).Children > 0 {
				mustPanic(t, errors.KindLiveDescendant, func() { s.Destroy(h) })
				continue
			}
			s.Destroy(h)
			live = append(live[:i], live[i+1:]...)
		}

		if st := s.Stats(); st.Regions != 0 || st.Allocations != 0 {
			t.Fatalf("tree %d: leftover state %+v", tree, st)
		}
	}
}

func TestSpace_UncheckedDestroysSubtree(t *testing.T) {
	s := NewSpace(memory.NewHeap(nil), &Config{ChunkSize: 64, Mode: ModeUnchecked})
	if s.Checked() {
		t.Fatal("ModeUnchecked space reports checked")
	}

	r0 := s.Create()
	r1 := s.CreateChild(r0)
	r2 := s.CreateChild(r1)
	r3 := s.CreateChild(r0)
	keep := s.Create()
	for _, h := range []Handle{r0, r1, r2, r3, keep} {
		s.Alloc(h, 100, 8)
	}

	s.Destroy(r0)

	for _, h := range []Handle{r0, r1, r2, r3} {
		if s.Live(h) {
			t.Errorf("%v still live after subtree destroy", h)
		}
	}
	if !s.Live(keep) {
		t.Fatal("unrelated root destroyed")
	}
	st := s.Stats()
	if st.Regions != 1 || st.Allocations != 1 {
		t.Fatalf("stats after subtree destroy = %+v", st)
	}
}

func TestSpace_StaleHandle(t *testing.T) {
	modes := []Mode{ModeChecked, ModeUnchecked}
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			s := NewSpace(memory.NewHeap(nil), &Config{Mode: mode})
			r := s.Create()
			s.Destroy(r)

			mustPanic(t, errors.KindStaleRegion, func() { s.Destroy(r) })
			mustPanic(t, errors.KindStaleRegion, func() { s.Alloc(r, 8, 8) })
			mustPanic(t, errors.KindStaleRegion, func() { s.CreateChild(r) })
			mustPanic(t, errors.KindStaleRegion, func() { s.Alloc(Handle{}, 8, 8) })

			// The slot is recycled with a new generation.
			r2 := s.Create()
			if r2.Index() != r.Index() || r2.Gen() == r.Gen() {
				t.Fatalf("recycled handle %v vs stale %v", r2, r)
			}
			if s.Live(r) {
				t.Fatal("stale handle reported live after slot reuse")
			}
			mustPanic(t, errors.KindStaleRegion, func() { s.Alloc(r, 8, 8) })
		})
	}
}

func TestSpace_ChunkReuseIsZeroed(t *testing.T) {
	for name, mem := range backings(t) {
		t.Run(name, func(t *testing.T) {
			s := checkedSpace(mem, 64)

			r := s.Create()
			a := s.Alloc(r, 32, 8)
			if err := mem.WriteU64(a, 0xdeadbeef); err != nil {
				t.Fatal(err)
			}
			reserved := s.Stats().Reserved
			s.Destroy(r)

			r2 := s.Create()
			b := s.Alloc(r2, 32, 8)
			if b != a {
				t.Fatalf("freed chunk not reused: got %d, want %d", b, a)
			}
			if s.Stats().Reserved != reserved {
				t.Fatal("reuse carved new address space")
			}
			v, _ := mem.ReadU64(b)
			if v != 0 {
				t.Fatalf("reused chunk not zeroed: %#x", v)
			}
		})
	}
}

func TestSpace_Oversize(t *testing.T) {
	s := checkedSpace(memory.NewHeap(nil), 64)
	r := s.Create()

	small := s.Alloc(r, 16, 8)
	big := s.Alloc(r, 1000, 8)
	after := s.Alloc(r, 16, 8)

	if after != small+16 {
		t.Errorf("oversize request disturbed the bump chunk: %d after %d", after, small)
	}
	if owner, ok := s.Owner(big + 999); !ok || owner != r {
		t.Errorf("Owner of oversize tail = %v, %v", owner, ok)
	}
	if g := s.RegionStats(r).Growths; g != 0 {
		t.Errorf("oversize chunk counted as growth: %d", g)
	}
	if c := s.RegionStats(r).Chunks; c != 2 {
		t.Errorf("Chunks = %d, want 2", c)
	}

	s.Destroy(r)

	// A smaller oversize request reuses the freed dedicated chunk.
	r2 := s.Create()
	again := s.Alloc(r2, 500, 8)
	if again != big {
		t.Errorf("dedicated chunk not reused: %d, want %d", again, big)
	}
}

func TestSpace_Exhaustion(t *testing.T) {
	t.Run("memory_limit", func(t *testing.T) {
		s := checkedSpace(memory.NewHeap(&memory.HeapConfig{MaxPages: 1}), 1<<14)
		r := s.Create()
		s.Alloc(r, 1<<14, 8)
		s.Alloc(r, 1<<14, 8)
		s.Alloc(r, 1<<14, 8)
		err := mustPanic(t, errors.KindExhausted, func() { s.Alloc(r, 1<<14, 8) })
		if err.Phase != errors.PhaseAlloc || err.Cause == nil {
			t.Errorf("unexpected report %v", err)
		}
	})

	t.Run("max_bytes", func(t *testing.T) {
		s := NewSpace(memory.NewHeap(nil), &Config{ChunkSize: 64, MaxBytes: 200, Mode: ModeChecked})
		r := s.Create()
		s.Alloc(r, 64, 8)
		s.Alloc(r, 64, 8)
		mustPanic(t, errors.KindExhausted, func() { s.Alloc(r, 64, 8) })
	})

	t.Run("request_limit", func(t *testing.T) {
		s := checkedSpace(memory.NewHeap(nil), 0)
		r := s.Create()
		mustPanic(t, errors.KindExhausted, func() { s.Alloc(r, 1<<31, 8) })
	})

	t.Run("bad_align", func(t *testing.T) {
		s := checkedSpace(memory.NewHeap(nil), 0)
		r := s.Create()
		mustPanic(t, errors.KindInvalidInput, func() { s.Alloc(r, 8, 3) })
		mustPanic(t, errors.KindInvalidInput, func() { s.Alloc(r, 8, 16) })
	})
}

func TestSpace_Outlives(t *testing.T) {
	s := checkedSpace(memory.NewHeap(nil), 0)
	r0 := s.Create()
	r1 := s.CreateChild(r0)
	r2 := s.CreateChild(r1)
	sib := s.CreateChild(r0)
	other := s.Create()

	tests := []struct {
		name string
		a, b Handle
		want bool
	}{
		{"self", r1, r1, true},
		{"parent", r0, r1, true},
		{"grandparent", r0, r2, true},
		{"child", r2, r1, false},
		{"sibling", sib, r2, false},
		{"other_root", other, r2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Outlives(tt.a, tt.b); got != tt.want {
				t.Errorf("Outlives(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSpace_OwnerAfterDestroy(t *testing.T) {
	s := checkedSpace(memory.NewHeap(nil), 64)
	r := s.Create()
	a := s.Alloc(r, 8, 8)

	if _, ok := s.Owner(4); ok {
		t.Error("reserved address has an owner")
	}
	s.Destroy(r)
	if _, ok := s.Owner(a); ok {
		t.Error("freed chunk still reports an owner")
	}

	r2 := s.Create()
	b := s.Alloc(r2, 8, 8)
	if owner, ok := s.Owner(b); !ok || owner != r2 {
		t.Errorf("Owner after reuse = %v, %v; want %v", owner, ok, r2)
	}
}

func TestSpace_Walk(t *testing.T) {
	s := checkedSpace(memory.NewHeap(nil), 0)
	a := s.Create()
	a1 := s.CreateChild(a)
	a11 := s.CreateChild(a1)
	a2 := s.CreateChild(a)
	b := s.Create()

	var order []Handle
	var depths []uint32
	s.Walk(func(h, parent Handle, depth uint32) bool {
		order = append(order, h)
		depths = append(depths, depth)
		return true
	})

	want := []Handle{a, a1, a11, a2, b}
	wantDepth := []uint32{0, 1, 2, 1, 0}
	if len(order) != len(want) {
		t.Fatalf("visited %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] || depths[i] != wantDepth[i] {
			t.Fatalf("visit %d = %v@%d, want %v@%d", i, order[i], depths[i], want[i], wantDepth[i])
		}
	}

	count := 0
	s.Walk(func(Handle, Handle, uint32) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Errorf("Walk did not stop: %d visits", count)
	}
}

func TestSpace_Allocator(t *testing.T) {
	s := checkedSpace(memory.NewHeap(nil), 0)
	r := s.Create()

	var a regionruntime.Allocator = s.Allocator(r)
	addr, err := a.Alloc(12, 4)
	if err != nil {
		t.Fatal(err)
	}
	a.Free(addr, 12, 4)

	if owner, ok := s.Owner(addr); !ok || owner != r {
		t.Fatalf("Owner = %v, %v", owner, ok)
	}
	if got := a.(*allocator).region; got != r {
		t.Fatalf("allocator region = %v, want %v", got, r)
	}
	if s.RegionStats(r).Allocations != 1 {
		t.Fatal("Free must not reclaim")
	}
}

func TestHandle_String(t *testing.T) {
	if got := (Handle{}).String(); got != "region#none" {
		t.Errorf("zero handle = %q", got)
	}
	if got := HandleOf(3, 7).String(); got != "region#3.7" {
		t.Errorf("HandleOf(3, 7) = %q", got)
	}
}

func BenchmarkAlloc(b *testing.B) {
	s := NewSpace(memory.NewHeap(nil), &Config{Mode: ModeUnchecked})
	r := s.Create()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s.Alloc(r, 16, 8)
		if i%4096 == 4095 {
			s.Destroy(r)
			r = s.Create()
		}
	}
}

func BenchmarkCreateDestroy(b *testing.B) {
	s := NewSpace(memory.NewHeap(nil), nil)
	root := s.Create()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h := s.CreateChild(root)
		s.Alloc(h, 64, 8)
		s.Destroy(h)
	}
}
