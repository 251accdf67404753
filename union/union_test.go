package union

import (
	"bytes"
	"math"
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/region-runtime/errors"
	"github.com/wippyai/region-runtime/memory"
	"github.com/wippyai/region-runtime/region"
)

// bumpAlloc is a minimal allocator over a heap memory.
type bumpAlloc struct {
	next uint32
}

func (a *bumpAlloc) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}
	a.next = (a.next + align - 1) &^ (align - 1)
	p := a.next
	a.next += size
	return p, nil
}

func (a *bumpAlloc) Free(ptr, size, align uint32) {}

func newTestMem(t *testing.T) (*memory.Heap, *bumpAlloc) {
	t.Helper()
	return memory.NewHeap(&memory.HeapConfig{InitialPages: 1}), &bumpAlloc{next: 16}
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

func intOption() *wit.TypeDef {
	name := "int-option"
	return &wit.TypeDef{
		Name: &name,
		Kind: &wit.Variant{Cases: []wit.Case{
			{Name: "none"},
			{Name: "some", Type: wit.S32{}},
			{Name: "other"},
		}},
	}
}

// mixed has alternatives of every scalar width.
func mixed() *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Variant{Cases: []wit.Case{
		{Name: "empty"},
		{Name: "byte", Type: wit.U8{}},
		{Name: "short", Type: wit.S16{}},
		{Name: "int", Type: wit.U32{}},
		{Name: "float", Type: wit.F32{}},
		{Name: "long", Type: wit.S64{}},
		{Name: "double", Type: wit.F64{}},
		{Name: "pair", Type: &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.U8{}, wit.U64{}}}}},
	}}}
}

func TestCompile_Layout(t *testing.T) {
	many := make([]wit.EnumCase, 300)
	for i := range many {
		many[i] = wit.EnumCase{Name: "c" + string(rune('a'+i%26)) + string(rune('a'+i/26))}
	}

	tests := []struct {
		name      string
		typ       wit.Type
		cases     int
		disc      uint32
		payloadAt uint32
		size      uint32
		align     uint32
	}{
		{"int_option", intOption(), 3, 1, 4, 8, 4},
		{"option_u8", &wit.TypeDef{Kind: &wit.Option{Type: wit.U8{}}}, 2, 1, 1, 2, 1},
		{"option_u64", &wit.TypeDef{Kind: &wit.Option{Type: wit.U64{}}}, 2, 1, 8, 16, 8},
		{"result_u32_string", &wit.TypeDef{Kind: &wit.Result{OK: wit.U32{}, Err: wit.String{}}}, 2, 1, 4, 12, 4},
		{"enum", &wit.TypeDef{Kind: &wit.Enum{Cases: []wit.EnumCase{{Name: "a"}, {Name: "b"}}}}, 2, 1, 1, 1, 1},
		{"wide_enum", &wit.TypeDef{Kind: &wit.Enum{Cases: many}}, 300, 2, 2, 2, 2},
		{"mixed", mixed(), 8, 1, 8, 24, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, err := Compile(tt.typ)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			if typ.NumCases() != tt.cases {
				t.Errorf("cases = %d, want %d", typ.NumCases(), tt.cases)
			}
			if typ.DiscriminantSize() != tt.disc {
				t.Errorf("disc = %d, want %d", typ.DiscriminantSize(), tt.disc)
			}
			if typ.PayloadOffset() != tt.payloadAt {
				t.Errorf("payload offset = %d, want %d", typ.PayloadOffset(), tt.payloadAt)
			}
			if typ.Size() != tt.size {
				t.Errorf("size = %d, want %d", typ.Size(), tt.size)
			}
			if typ.Align() != tt.align {
				t.Errorf("align = %d, want %d", typ.Align(), tt.align)
			}
			for _, c := range typ.Cases() {
				if typ.PayloadOffset()+c.Size > typ.Size() {
					t.Errorf("case %s (%d bytes) overflows the value", c.Name, c.Size)
				}
			}
		})
	}
}

func TestCompile_Tags(t *testing.T) {
	typ := MustCompile(intOption())
	if typ.Name() != "int-option" {
		t.Errorf("Name = %q", typ.Name())
	}
	for i, name := range []string{"none", "some", "other"} {
		tag, ok := typ.Tag(name)
		if !ok || tag != uint32(i) {
			t.Errorf("Tag(%q) = %d, %v; want %d", name, tag, ok, i)
		}
		if typ.Case(uint32(i)).Name != name {
			t.Errorf("Case(%d) = %q", i, typ.Case(uint32(i)).Name)
		}
	}
	if _, ok := typ.Tag("missing"); ok {
		t.Error("Tag of unknown alternative succeeded")
	}

	opt := MustCompile(&wit.TypeDef{Kind: &wit.Option{Type: wit.S32{}}})
	if tag, _ := opt.Tag("some"); tag != 1 {
		t.Errorf("option some = %d, want 1", tag)
	}
	if opt.Name() != "option<s32>" {
		t.Errorf("anonymous option name = %q", opt.Name())
	}
	res := MustCompile(&wit.TypeDef{Kind: &wit.Result{OK: wit.U32{}, Err: wit.String{}}})
	if tag, _ := res.Tag("err"); tag != 1 {
		t.Errorf("result err = %d, want 1", tag)
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		typ  wit.Type
	}{
		{"primitive", wit.U32{}},
		{"record", &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{{Name: "a", Type: wit.U8{}}}}}},
		{"empty_variant", &wit.TypeDef{Kind: &wit.Variant{}}},
		{"duplicate", &wit.TypeDef{Kind: &wit.Variant{Cases: []wit.Case{{Name: "a"}, {Name: "a"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.typ)
			if err == nil {
				t.Fatal("expected error")
			}
			var want = &errors.Error{Phase: errors.PhaseLayout, Kind: errors.KindInvalidLayout}
			if e, ok := err.(*errors.Error); !ok || !e.Is(want) {
				t.Fatalf("error = %v, want layout error", err)
			}
		})
	}
}

func TestNew_ZeroesPayload(t *testing.T) {
	mem, alloc := newTestMem(t)
	typ := MustCompile(intOption())

	// Dirty the memory the value will occupy.
	_ = mem.Write(16, bytes.Repeat([]byte{0xff}, 16))

	v := New(mem, alloc, typ, 1)
	if v.Tag() != 1 || !v.Is(1) || v.Is(0) {
		t.Fatalf("Tag = %d, want 1", v.Tag())
	}
	if got := Load[int32](v.Narrow(1)); got != 0 {
		t.Fatalf("payload = %d, want 0", got)
	}
	raw, _ := mem.Read(v.Addr(), typ.Size())
	if !bytes.Equal(raw, []byte{1, 0, 0, 0, 0, 0, 0, 0}) {
		t.Fatalf("raw value = %v", raw)
	}

	mustPanic(t, errors.KindOutOfBounds, func() { New(mem, alloc, typ, 3) })
}

func TestNarrow_EveryAlternative(t *testing.T) {
	mem, alloc := newTestMem(t)
	typ := MustCompile(mixed())

	for tag := uint32(0); tag < uint32(typ.NumCases()); tag++ {
		c := typ.Case(tag)
		t.Run(c.Name, func(t *testing.T) {
			v := New(mem, alloc, typ, tag)
			view := v.Narrow(tag)
			if view.Width() != c.Size {
				t.Fatalf("Width = %d, want %d", view.Width(), c.Size)
			}
			if view.Addr() != v.Addr()+typ.PayloadOffset() {
				t.Fatalf("payload at %d, want shared offset %d", view.Addr()-v.Addr(), typ.PayloadOffset())
			}

			// Write through one narrowing and read through another.
			pattern := make([]byte, c.Size)
			for i := range pattern {
				pattern[i] = byte(0xa0 + i)
			}
			view.Write(0, pattern)
			if got := v.Narrow(tag).Bytes(); !bytes.Equal(got, pattern) {
				t.Fatalf("re-narrowed payload = %v, want %v", got, pattern)
			}

			mustPanic(t, errors.KindOutOfBounds, func() { view.Write(0, make([]byte, c.Size+1)) })
		})
	}
}

func TestLoadStore(t *testing.T) {
	mem, alloc := newTestMem(t)
	typ := MustCompile(mixed())
	tag := func(name string) uint32 {
		tg, _ := typ.Tag(name)
		return tg
	}

	t.Run("u8", func(t *testing.T) {
		x := New(mem, alloc, typ, tag("byte")).Narrow(tag("byte"))
		Store[uint8](x, 200)
		if got := Load[uint8](x); got != 200 {
			t.Fatalf("got %d", got)
		}
		if got := Load[int8](x); got != -56 {
			t.Fatalf("signed reinterpretation = %d", got)
		}
	})
	t.Run("s16", func(t *testing.T) {
		x := New(mem, alloc, typ, tag("short")).Narrow(tag("short"))
		Store[int16](x, -1234)
		if got := Load[int16](x); got != -1234 {
			t.Fatalf("got %d", got)
		}
	})
	t.Run("f32", func(t *testing.T) {
		x := New(mem, alloc, typ, tag("float")).Narrow(tag("float"))
		Store(x, float32(3.5))
		if got := Load[float32](x); got != 3.5 {
			t.Fatalf("got %v", got)
		}
	})
	t.Run("s64", func(t *testing.T) {
		x := New(mem, alloc, typ, tag("long")).Narrow(tag("long"))
		Store[int64](x, math.MinInt64)
		if got := Load[int64](x); got != math.MinInt64 {
			t.Fatalf("got %d", got)
		}
	})
	t.Run("f64", func(t *testing.T) {
		x := New(mem, alloc, typ, tag("double")).Narrow(tag("double"))
		Store(x, math.Pi)
		if got := Load[float64](x); got != math.Pi {
			t.Fatalf("got %v", got)
		}
	})
	t.Run("field", func(t *testing.T) {
		x := New(mem, alloc, typ, tag("pair")).Narrow(tag("pair"))
		Store[uint8](x.Field(0, 1), 7)
		Store[uint64](x.Field(8, 8), 1<<40)
		if Load[uint8](x) != 7 || Load[uint64](x.Field(8, 8)) != 1<<40 {
			t.Fatalf("pair = %v", x.Bytes())
		}
		mustPanic(t, errors.KindOutOfBounds, func() { x.Field(12, 8) })
		mustPanic(t, errors.KindOutOfBounds, func() { x.Field(^uint32(0), 8) })
	})
	t.Run("wider_than_view", func(t *testing.T) {
		x := New(mem, alloc, typ, tag("short")).Narrow(tag("short"))
		err := mustPanic(t, errors.KindOutOfBounds, func() { Load[uint32](x) })
		if err.Phase != errors.PhaseNarrow {
			t.Errorf("phase = %s", err.Phase)
		}
		mustPanic(t, errors.KindOutOfBounds, func() { Store[uint64](x, 1) })

		empty := New(mem, alloc, typ, tag("empty")).Narrow(tag("empty"))
		mustPanic(t, errors.KindOutOfBounds, func() { Load[uint8](empty) })
	})
}

func TestNarrowChecked_TagMismatch(t *testing.T) {
	mem, alloc := newTestMem(t)
	typ := MustCompile(intOption())
	v := New(mem, alloc, typ, 0)

	err := mustPanic(t, errors.KindTagMismatch, func() { v.NarrowChecked(1) })
	if err.TypeName != "int-option" || err.Value != uint32(0) {
		t.Errorf("report = %+v", err)
	}
	mustPanic(t, errors.KindOutOfBounds, func() { v.NarrowChecked(7) })

	if narrowChecks {
		mustPanic(t, errors.KindTagMismatch, func() { v.Narrow(1) })
	} else {
		if got := v.Narrow(1).Width(); got != 4 {
			t.Errorf("unchecked Narrow width = %d", got)
		}
	}
}

func TestSet(t *testing.T) {
	mem, alloc := newTestMem(t)
	typ := MustCompile(intOption())
	v := New(mem, alloc, typ, 1)
	Store[int32](v.Narrow(1), 99)

	v.Set(0, nil)
	if v.Tag() != 0 {
		t.Fatalf("Tag = %d after Set", v.Tag())
	}
	raw, _ := mem.Read(v.Addr()+typ.PayloadOffset(), 4)
	if !bytes.Equal(raw, []byte{0, 0, 0, 0}) {
		t.Fatalf("payload not cleared: %v", raw)
	}

	v.Set(1, []byte{55, 0})
	if got := Load[int32](v.Narrow(1)); got != 55 {
		t.Fatalf("payload = %d, want 55", got)
	}

	mustPanic(t, errors.KindOutOfBounds, func() { v.Set(1, make([]byte, 5)) })
	mustPanic(t, errors.KindOutOfBounds, func() { v.Set(0, []byte{1}) })
	mustPanic(t, errors.KindOutOfBounds, func() { v.Set(3, nil) })
}

func TestCopyTo_AcrossRegions(t *testing.T) {
	mem := memory.NewHeap(nil)
	space := region.NewSpace(mem, &region.Config{Mode: region.ModeChecked})
	typ := MustCompile(intOption())

	outer := space.Create()
	inner := space.CreateChild(outer)

	src := New(mem, space.Allocator(inner), typ, 1)
	Store[int32](src.Narrow(1), 10)

	dst := src.CopyTo(space.Allocator(outer))
	if owner, _ := space.Owner(dst.Addr()); owner != outer {
		t.Fatalf("copy owned by %v, want %v", owner, outer)
	}

	Store[int32](src.Narrow(1), 11)
	space.Destroy(inner)

	if dst.Tag() != 1 || Load[int32](dst.Narrow(1)) != 10 {
		t.Fatal("copy is not independent of the source")
	}
	space.Destroy(outer)
}

func TestAt(t *testing.T) {
	mem, alloc := newTestMem(t)
	typ := MustCompile(intOption())
	v := New(mem, alloc, typ, 1)
	Store[int32](v.Narrow(1), -5)

	w := At(mem, typ, v.Addr())
	if w.Type() != typ || w.Tag() != 1 || Load[int32](w.Narrow(1)) != -5 {
		t.Fatal("At does not view the same value")
	}
	if !(Value{}).IsZero() || w.IsZero() {
		t.Fatal("IsZero")
	}
}

func BenchmarkNarrowAdd(b *testing.B) {
	mem := memory.NewHeap(&memory.HeapConfig{InitialPages: 1})
	typ := MustCompile(intOption())
	v := New(mem, &bumpAlloc{next: 16}, typ, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if v.Tag() == 1 {
			x := v.Narrow(1)
			Store(x, Load[int32](x)+45)
		}
	}
}
