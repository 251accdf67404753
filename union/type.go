package union

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/region-runtime/errors"
	"github.com/wippyai/region-runtime/internal/layout"
)

// Case is one alternative of a sum type.
type Case struct {
	Name string
	// Type is nil for an alternative without payload.
	Type  wit.Type
	Size  uint32
	Align uint32
}

// Type is a compiled sum type.
type Type struct {
	name  string
	cases []Case
	index map[string]uint32

	size          uint32
	align         uint32
	discSize      uint32
	payloadOffset uint32
}

// Compile lays out a WIT variant, option, result or enum.
func Compile(t wit.Type) (*Type, error) {
	name := typeName(t)

	payloads, names, ok := layout.Payloads(t)
	if !ok {
		return nil, errors.InvalidLayout(name, "not a sum type")
	}
	if len(payloads) == 0 {
		return nil, errors.InvalidLayout(name, "sum type has no alternatives")
	}

	calc := layout.NewCalculator()
	info := calc.Calculate(t)

	typ := &Type{
		name:          name,
		cases:         make([]Case, len(payloads)),
		index:         make(map[string]uint32, len(payloads)),
		size:          info.Size,
		align:         info.Align,
		discSize:      info.DiscSize,
		payloadOffset: info.PayloadOffset,
	}

	for i, p := range payloads {
		c := Case{Name: names[i], Type: p, Align: 1}
		if p != nil {
			ci := calc.Calculate(p)
			c.Size, c.Align = ci.Size, ci.Align
		}
		if _, dup := typ.index[c.Name]; dup {
			return nil, errors.InvalidLayout(name, fmt.Sprintf("duplicate alternative %q", c.Name))
		}
		typ.cases[i] = c
		typ.index[c.Name] = uint32(i)
	}

	return typ, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(t wit.Type) *Type {
	typ, err := Compile(t)
	if err != nil {
		panic(err)
	}
	return typ
}

// Name returns the declared name, or a structural description for
// anonymous types.
func (t *Type) Name() string { return t.name }

// Cases returns the alternatives in tag order.
func (t *Type) Cases() []Case {
	out := make([]Case, len(t.cases))
	copy(out, t.cases)
	return out
}

// NumCases returns the number of alternatives.
func (t *Type) NumCases() int { return len(t.cases) }

// Case returns the alternative selected by tag.
func (t *Type) Case(tag uint32) Case {
	t.checkTag(errors.PhaseNarrow, tag)
	return t.cases[tag]
}

// Tag returns the tag of the named alternative.
func (t *Type) Tag(name string) (uint32, bool) {
	tag, ok := t.index[name]
	return tag, ok
}

func (t *Type) Size() uint32             { return t.size }
func (t *Type) Align() uint32            { return t.align }
func (t *Type) PayloadOffset() uint32    { return t.payloadOffset }
func (t *Type) DiscriminantSize() uint32 { return t.discSize }

func (t *Type) checkTag(phase errors.Phase, tag uint32) {
	if tag >= uint32(len(t.cases)) {
		fatal(errors.InvalidTag(phase, t.name, tag, len(t.cases)))
	}
}

func typeName(t wit.Type) string {
	switch v := t.(type) {
	case nil:
		return "_"
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		switch k := v.Kind.(type) {
		case *wit.Option:
			return "option<" + typeName(k.Type) + ">"
		case *wit.Result:
			return "result<" + typeName(k.OK) + ", " + typeName(k.Err) + ">"
		case *wit.Variant:
			names := make([]string, len(k.Cases))
			for i, c := range k.Cases {
				names[i] = c.Name
			}
			return "variant{" + strings.Join(names, ", ") + "}"
		case *wit.Enum:
			names := make([]string, len(k.Cases))
			for i, c := range k.Cases {
				names[i] = c.Name
			}
			return "enum{" + strings.Join(names, ", ") + "}"
		case *wit.Record:
			return "record"
		case *wit.List:
			return "list<" + typeName(k.Type) + ">"
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}
