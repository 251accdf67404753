package main

import (
	"context"
	"fmt"
	"strconv"

	regionruntime "github.com/wippyai/region-runtime"
	"github.com/wippyai/region-runtime/abi"
	"github.com/wippyai/region-runtime/errors"
	"github.com/wippyai/region-runtime/memory"
	"github.com/wippyai/region-runtime/region"
	"github.com/wippyai/region-runtime/testbed"
	"github.com/wippyai/region-runtime/union"
)

type options struct {
	chunk  uint32
	wazero bool
	mode   region.Mode
}

// session is a region space together with the memory it runs on.
type session struct {
	space *region.Space
	close func()
}

func newSession(opts options) (*session, error) {
	var (
		mem     regionruntime.GrowableMemory
		closeFn = func() {}
	)
	if opts.wazero {
		ctx := context.Background()
		w, err := memory.NewWazero(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("wazero memory: %w", err)
		}
		mem = w
		closeFn = func() { _ = w.Close(ctx) }
	} else {
		mem = memory.NewHeap(nil)
	}

	space := region.NewSpace(mem, &region.Config{ChunkSize: opts.chunk, Mode: opts.mode})
	return &session{space: space, close: closeFn}, nil
}

// guard runs fn and turns a fatal runtime report into an error.
func guard(fn func() string) (res string, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := errors.Fatal(r)
			if !ok {
				panic(r)
			}
			err = e
		}
	}()
	return fn(), nil
}

type param struct {
	name string
	kind string // "region", "u32" or "s32"
}

// op is one routine the playground can call.
type op struct {
	name   string
	params []param
	run    func(s *session, args []string) (string, error)
}

var ops = []op{
	{
		name: "create-root",
		run: func(s *session, _ []string) (string, error) {
			return guard(func() string {
				return s.space.Create().String()
			})
		},
	},
	{
		name:   "create-child",
		params: []param{{"parent", "region"}},
		run: func(s *session, args []string) (string, error) {
			parent, err := s.resolve(args[0])
			if err != nil {
				return "", err
			}
			return guard(func() string {
				return s.space.CreateChild(parent).String()
			})
		},
	},
	{
		name:   "destroy",
		params: []param{{"region", "region"}},
		run: func(s *session, args []string) (string, error) {
			h, err := s.resolve(args[0])
			if err != nil {
				return "", err
			}
			return guard(func() string {
				s.space.Destroy(h)
				return "destroyed " + h.String()
			})
		},
	},
	{
		name:   "alloc",
		params: []param{{"region", "region"}, {"size", "u32"}, {"align", "u32"}},
		run: func(s *session, args []string) (string, error) {
			h, err := s.resolve(args[0])
			if err != nil {
				return "", err
			}
			size, err := parseU32(args[1])
			if err != nil {
				return "", err
			}
			align, err := parseU32(args[2])
			if err != nil {
				return "", err
			}
			return guard(func() string {
				return fmt.Sprintf("0x%x", s.space.Alloc(h, size, align))
			})
		},
	},
	{
		name:   "add-forty-five",
		params: []param{{"return", "region"}, {"tag", "u32"}, {"payload", "s32"}},
		run: func(s *session, args []string) (string, error) {
			h, err := s.resolve(args[0])
			if err != nil {
				return "", err
			}
			tag, err := parseU32(args[1])
			if err != nil {
				return "", err
			}
			payload, err := strconv.ParseInt(args[2], 10, 32)
			if err != nil {
				return "", fmt.Errorf("payload: %w", err)
			}
			return guard(func() string {
				return addFortyFive(s.space, h, tag, int32(payload))
			})
		},
	},
	{
		name:   "reverse-list",
		params: []param{{"return", "region"}, {"length", "u32"}},
		run: func(s *session, args []string) (string, error) {
			h, err := s.resolve(args[0])
			if err != nil {
				return "", err
			}
			n, err := parseU32(args[1])
			if err != nil {
				return "", err
			}
			return guard(func() string {
				return reverseList(s.space, h, n)
			})
		},
	},
}

// addFortyFive builds an IntOption in ret and calls the add routine on it
// with ret as the destination.
func addFortyFive(space *region.Space, ret region.Handle, tag uint32, payload int32) string {
	x := testbed.NewIntOption(abi.Enter(space, ret), tag, payload)
	y := abi.InvokeValue(space, ret, func(f *abi.Frame) union.Value {
		return testbed.AddFortyFive(f, x)
	})
	c := testbed.IntOption().Case(y.Tag())
	return fmt.Sprintf("%s(%d) at 0x%x", c.Name, union.Load[int32](y.Narrow(y.Tag())), y.Addr())
}

// reverseList builds the list 1..n in ret and reverses it into ret.
func reverseList(space *region.Space, ret region.Handle, n uint32) string {
	f := abi.Enter(space, ret)
	list := testbed.Empty(f)
	for i := uint32(1); i <= n; i++ {
		list = testbed.Push(f, int32(i), list)
	}
	f.Leave(list)

	rev := abi.Invoke(space, ret, func(f *abi.Frame) abi.Ptr {
		return testbed.Reverse(f, list)
	})
	return fmt.Sprintf("sum %d, reversed head at 0x%x", testbed.Sum(abi.Enter(space, ret), rev), rev.Addr)
}

// resolve finds the live region with the given record index.
func (s *session) resolve(arg string) (region.Handle, error) {
	idx, err := parseU32(arg)
	if err != nil {
		return region.Handle{}, fmt.Errorf("region: %w", err)
	}
	var found region.Handle
	s.space.Walk(func(h, _ region.Handle, _ uint32) bool {
		if h.Index() == idx {
			found = h
			return false
		}
		return true
	})
	if found.IsZero() {
		return found, fmt.Errorf("no live region #%d", idx)
	}
	return found, nil
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
