package region

import "github.com/wippyai/region-runtime/internal/canon"

// DefaultChunkSize is the capacity of a standard chunk.
const DefaultChunkSize = canon.PageSize

// Mode selects whether scope discipline is verified.
type Mode uint8

const (
	// ModeDefault follows the build: checked unless built with -tags regionrelease.
	ModeDefault Mode = iota
	ModeChecked
	ModeUnchecked
)

func (m Mode) String() string {
	switch m {
	case ModeChecked:
		return "checked"
	case ModeUnchecked:
		return "unchecked"
	default:
		return "default"
	}
}

// Config holds configuration for a region space
type Config struct {
	// ChunkSize is the capacity of a standard chunk in bytes, rounded up to
	// a multiple of 8. 0 means DefaultChunkSize.
	ChunkSize uint32

	// MaxBytes caps the address space the space may carve from memory.
	// 0 means only the memory's own limit applies.
	MaxBytes uint32

	// Base is the first address the space may use. Addresses below it are
	// left to other users of the memory. The first 16 bytes are always
	// reserved so that no allocation has address 0.
	Base uint32

	Mode Mode
}

func (c *Config) checked() bool {
	switch c.Mode {
	case ModeChecked:
		return true
	case ModeUnchecked:
		return false
	default:
		return defaultChecked
	}
}
