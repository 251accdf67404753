package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates which runtime operation detected the error
type Phase string

const (
	PhaseCreate  Phase = "create"  // region creation
	PhaseAlloc   Phase = "alloc"   // bump allocation and chunk growth
	PhaseDestroy Phase = "destroy" // region reclamation
	PhaseNarrow  Phase = "narrow"  // tagged-union access
	PhaseReturn  Phase = "return"  // return-region protocol checks
	PhaseLayout  Phase = "layout"  // sum type compilation
	PhaseMemory  Phase = "memory"  // linear memory backing
)

// Kind categorizes the error
type Kind string

const (
	KindExhausted      Kind = "exhausted"
	KindLiveDescendant Kind = "live_descendant"
	KindStaleRegion    Kind = "stale_region"
	KindTagMismatch    Kind = "tag_mismatch"
	KindDangling       Kind = "dangling"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindInvalidLayout  Kind = "invalid_layout"
	KindInvalidInput   Kind = "invalid_input"
	KindUnsupported    Kind = "unsupported"
)

// Error is the structured error type used throughout the runtime.
//
// Fatal conditions carry one of these as their panic value, so a test or a
// supervising process can recover it and inspect Phase and Kind.
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Region   string
	TypeName string
	Detail   string
	Depth    uint32
	HasDepth bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Region != "" {
		b.WriteString(" at ")
		b.WriteString(e.Region)
		if e.HasDepth {
			b.WriteString(" (depth ")
			b.WriteString(strconv.FormatUint(uint64(e.Depth), 10))
			b.WriteByte(')')
		}
	}

	if e.TypeName != "" {
		b.WriteString(": type ")
		b.WriteString(e.TypeName)
	}

	if e.Detail != "" {
		if e.TypeName != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Region sets the region identity and its depth
func (b *Builder) Region(name string, depth uint32) *Builder {
	b.err.Region = name
	b.err.Depth = depth
	b.err.HasDepth = true
	return b
}

// TypeName sets the name of the type involved
func (b *Builder) TypeName(t string) *Builder {
	b.err.TypeName = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the runtime's failure modes

// Exhausted creates an allocation failure error
func Exhausted(region string, depth uint32, size, align uint32, cause error) *Error {
	return New(PhaseAlloc, KindExhausted).
		Region(region, depth).
		Value(size).
		Cause(cause).
		Detail("cannot allocate %d bytes (align %d)", size, align).
		Build()
}

// LiveDescendant creates the error for destroying a region out of LIFO order
func LiveDescendant(region string, depth uint32, descendant string, descendantDepth uint32) *Error {
	return New(PhaseDestroy, KindLiveDescendant).
		Region(region, depth).
		Value(descendant).
		Detail("%s at depth %d is still live; nested regions must be destroyed first", descendant, descendantDepth).
		Build()
}

// StaleRegion creates the error for using a destroyed or unknown region handle
func StaleRegion(phase Phase, region string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStaleRegion,
		Region: region,
		Detail: "region is not live",
	}
}

// TagMismatch creates the error for narrowing under the wrong discriminant
func TagMismatch(typeName string, expected, actual uint32) *Error {
	return &Error{
		Phase:    PhaseNarrow,
		Kind:     KindTagMismatch,
		TypeName: typeName,
		Value:    actual,
		Detail:   fmt.Sprintf("narrowed to tag %d but value holds tag %d", expected, actual),
	}
}

// InvalidTag creates the error for a tag outside the declared alternatives
func InvalidTag(phase Phase, typeName string, tag uint32, numCases int) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOutOfBounds,
		TypeName: typeName,
		Value:    tag,
		Detail:   fmt.Sprintf("tag %d out of range (%d alternatives)", tag, numCases),
	}
}

// Dangling creates the error for a result that outlives the storage it points into
func Dangling(dest string, destDepth uint32, addr uint32, owner string) *Error {
	return New(PhaseReturn, KindDangling).
		Region(dest, destDepth).
		Value(addr).
		Detail("result points at 0x%x in %s, which does not outlive the return region", addr, owner).
		Build()
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, offset, length, limit uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Value:  offset,
		Detail: fmt.Sprintf("access of %d bytes at %d exceeds %d", length, offset, limit),
	}
}

// InvalidLayout creates a layout compilation error
func InvalidLayout(typeName, detail string) *Error {
	return &Error{
		Phase:    PhaseLayout,
		Kind:     KindInvalidLayout,
		TypeName: typeName,
		Detail:   detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Fatal reports whether v, a recovered panic value, is a runtime fatal
// report, and returns it.
func Fatal(v any) (*Error, bool) {
	e, ok := v.(*Error)
	return e, ok
}
