package main

import (
	"fmt"

	"github.com/wippyai/region-runtime/abi"
	"github.com/wippyai/region-runtime/region"
	"github.com/wippyai/region-runtime/testbed"
	"github.com/wippyai/region-runtime/union"
)

type scenario struct {
	name  string
	title string
	run   func(space *region.Space) ([]string, error)
}

var scenarios = []scenario{
	{"a", "add-forty-five on some(10), result in the root region", scenarioA},
	{"b", "add-forty-five on none(10) and other(10) leaves them untouched", scenarioB},
	{"c", "chunk growth keeps earlier allocations in place", scenarioC},
}

func scenarioA(space *region.Space) (lines []string, err error) {
	var fail error
	_, err = guard(func() string {
		r0 := space.Create()
		lines = append(lines, fmt.Sprintf("created %s at depth %d", r0, space.Depth(r0)))

		x := testbed.NewIntOption(abi.Enter(space, r0), testbed.IntOptionSome, 10)
		y := abi.InvokeValue(space, r0, func(f *abi.Frame) union.Value {
			return testbed.AddFortyFive(f, x)
		})
		got := union.Load[int32](y.Narrow(testbed.IntOptionSome))
		lines = append(lines, fmt.Sprintf("some(10) -> tag %d payload %d", y.Tag(), got))
		if y.Tag() != testbed.IntOptionSome || got != 55 {
			fail = fmt.Errorf("want some(55)")
			return ""
		}

		space.Destroy(r0)
		live := space.Stats().Allocations
		lines = append(lines, fmt.Sprintf("destroyed %s, %d live allocations", r0, live))
		if live != 0 {
			fail = fmt.Errorf("allocations left after destroy")
		}
		return ""
	})
	if err != nil {
		return lines, err
	}
	return lines, fail
}

func scenarioB(space *region.Space) (lines []string, err error) {
	var fail error
	_, err = guard(func() string {
		r0 := space.Create()
		for _, tag := range []uint32{testbed.IntOptionNone, testbed.IntOptionOther} {
			x := testbed.NewIntOption(abi.Enter(space, r0), tag, 10)
			y := abi.InvokeValue(space, r0, func(f *abi.Frame) union.Value {
				return testbed.AddFortyFive(f, x)
			})
			got := union.Load[int32](y.Narrow(y.Tag()))
			name := testbed.IntOption().Case(tag).Name
			lines = append(lines, fmt.Sprintf("%s(10) -> tag %d payload %d", name, y.Tag(), got))
			if y.Tag() != tag || got != 10 {
				fail = fmt.Errorf("want %s(10) unchanged", name)
				return ""
			}
		}
		space.Destroy(r0)
		return ""
	})
	if err != nil {
		return lines, err
	}
	return lines, fail
}

func scenarioC(space *region.Space) (lines []string, err error) {
	// Chunks hold at least 8 bytes, room for the u32 marker.
	size := min(uint32(24), space.ChunkSize())

	var fail error
	_, err = guard(func() string {
		r := space.Create()
		fit := space.ChunkSize() / size
		lines = append(lines, fmt.Sprintf("chunk %d bytes, allocation %d bytes, %d fit", space.ChunkSize(), size, fit))

		mem := space.Memory()
		addrs := make([]uint32, 0, fit)
		for i := uint32(0); i < fit; i++ {
			a := space.Alloc(r, size, 1)
			abi.StoreU32(mem, a, i)
			addrs = append(addrs, a)
		}
		last := space.Alloc(r, size, 1)

		st := space.RegionStats(r)
		lines = append(lines, fmt.Sprintf("%d allocations, %d chunks, %d growths, last at 0x%x",
			st.Allocations, st.Chunks, st.Growths, last))
		if st.Growths != 1 {
			fail = fmt.Errorf("want exactly one growth, got %d", st.Growths)
			return ""
		}
		for i, a := range addrs {
			if v := abi.LoadU32(mem, a); v != uint32(i) {
				fail = fmt.Errorf("allocation %d at 0x%x changed to %d", i, a, v)
				return ""
			}
		}
		lines = append(lines, fmt.Sprintf("all %d earlier allocations unchanged", len(addrs)))
		return ""
	})
	if err != nil {
		return lines, err
	}
	return lines, fail
}
