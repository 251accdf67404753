package memory

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	regionruntime "github.com/wippyai/region-runtime"
	"github.com/wippyai/region-runtime/errors"
)

// WazeroConfig holds configuration for a wazero-backed memory
type WazeroConfig struct {
	// Runtime hosts the memory module. nil creates a private runtime that
	// Close also closes.
	Runtime wazero.Runtime

	// ExportName is the name the memory is exported under. Default "memory".
	ExportName string

	// InitialPages is the module's declared minimum. Default 1.
	InitialPages uint32

	// MaxPages is the module's declared maximum. 0 means MaxPages.
	MaxPages uint32
}

// Wazero wraps the exported memory of a wasm module to implement
// regionruntime.GrowableMemory. wazero may reallocate the backing slice on
// growth, but offsets keep their meaning, which is all regions rely on.
type Wazero struct {
	mem        api.Memory
	module     api.Module
	runtime    wazero.Runtime
	ownRuntime bool
}

// NewWazero instantiates a module that declares and exports a single memory
// and wraps that memory.
func NewWazero(ctx context.Context, cfg *WazeroConfig) (*Wazero, error) {
	var c WazeroConfig
	if cfg != nil {
		c = *cfg
	}
	if c.ExportName == "" {
		c.ExportName = "memory"
	}
	if c.InitialPages == 0 {
		c.InitialPages = 1
	}
	if c.MaxPages == 0 || c.MaxPages > MaxPages {
		c.MaxPages = MaxPages
	}
	if c.InitialPages > c.MaxPages {
		return nil, errors.InvalidInput(errors.PhaseMemory,
			fmt.Sprintf("initial pages %d exceed max pages %d", c.InitialPages, c.MaxPages))
	}

	w := &Wazero{runtime: c.Runtime}
	if w.runtime == nil {
		w.runtime = wazero.NewRuntimeWithConfig(ctx,
			wazero.NewRuntimeConfig().WithMemoryLimitPages(c.MaxPages))
		w.ownRuntime = true
	}

	bin := memoryModule(c.ExportName, c.InitialPages, c.MaxPages)
	mod, err := w.runtime.InstantiateWithConfig(ctx, bin, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		if w.ownRuntime {
			_ = w.runtime.Close(ctx)
		}
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindUnsupported, err, "instantiate memory module")
	}

	mem := mod.ExportedMemory(c.ExportName)
	if mem == nil {
		_ = mod.Close(ctx)
		if w.ownRuntime {
			_ = w.runtime.Close(ctx)
		}
		return nil, errors.InvalidInput(errors.PhaseMemory, fmt.Sprintf("memory %q not exported", c.ExportName))
	}

	w.mem = mem
	w.module = mod

	Logger().Debug("wazero memory ready",
		zap.String("export", c.ExportName),
		zap.Uint32("pages", c.InitialPages),
		zap.Uint32("max_pages", c.MaxPages))

	return w, nil
}

// Close releases the module and, when owned, the runtime.
func (w *Wazero) Close(ctx context.Context) error {
	var firstErr error
	if w.module != nil {
		if err := w.module.Close(ctx); err != nil {
			firstErr = err
		}
		w.module = nil
	}
	if w.ownRuntime && w.runtime != nil {
		if err := w.runtime.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.runtime = nil
	w.mem = nil
	return firstErr
}

func (w *Wazero) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := w.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (w *Wazero) Write(offset uint32, data []byte) error {
	if !w.mem.Write(offset, data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (w *Wazero) ReadU8(offset uint32) (uint8, error) {
	val, ok := w.mem.ReadByte(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (w *Wazero) ReadU16(offset uint32) (uint16, error) {
	val, ok := w.mem.ReadUint16Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (w *Wazero) ReadU32(offset uint32) (uint32, error) {
	val, ok := w.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (w *Wazero) ReadU64(offset uint32) (uint64, error) {
	val, ok := w.mem.ReadUint64Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (w *Wazero) WriteU8(offset uint32, value uint8) error {
	if !w.mem.WriteByte(offset, value) {
		return fmt.Errorf("write out of bounds: offset=%d", offset)
	}
	return nil
}

func (w *Wazero) WriteU16(offset uint32, value uint16) error {
	if !w.mem.WriteUint16Le(offset, value) {
		return fmt.Errorf("write out of bounds: offset=%d", offset)
	}
	return nil
}

func (w *Wazero) WriteU32(offset uint32, value uint32) error {
	if !w.mem.WriteUint32Le(offset, value) {
		return fmt.Errorf("write out of bounds: offset=%d", offset)
	}
	return nil
}

func (w *Wazero) WriteU64(offset uint32, value uint64) error {
	if !w.mem.WriteUint64Le(offset, value) {
		return fmt.Errorf("write out of bounds: offset=%d", offset)
	}
	return nil
}

func (w *Wazero) Size() uint32 {
	if w.mem == nil {
		return 0
	}
	return w.mem.Size()
}

func (w *Wazero) Pages() uint32 {
	return w.Size() / regionruntime.PageSize
}

func (w *Wazero) Grow(deltaPages uint32) (uint32, bool) {
	return w.mem.Grow(deltaPages)
}

var _ regionruntime.GrowableMemory = (*Wazero)(nil)
