package layout

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/region-runtime/internal/canon"
)

// Info is the memory shape of one type.
type Info struct {
	FieldOffs map[string]uint32

	Size  uint32
	Align uint32

	// Sum types only.
	DiscSize      uint32
	PayloadOffset uint32
}

type Calculator struct {
	cache map[*wit.TypeDef]Info
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*wit.TypeDef]Info),
	}
}

func (c *Calculator) Calculate(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	case wit.String:
		return Info{Size: 8, Align: 4} // [ptr: u32, len: u32]
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Info{Size: 0, Align: 1}
	}
}

// Payloads returns the payload types of a sum type in tag order, nil for
// payload-less cases. ok is false when t is not a sum type.
func Payloads(t wit.Type) (payloads []wit.Type, names []string, ok bool) {
	td, isDef := t.(*wit.TypeDef)
	if !isDef {
		return nil, nil, false
	}
	switch kind := td.Kind.(type) {
	case *wit.Variant:
		for _, cs := range kind.Cases {
			payloads = append(payloads, cs.Type)
			names = append(names, cs.Name)
		}
		return payloads, names, true
	case *wit.Option:
		return []wit.Type{nil, kind.Type}, []string{"none", "some"}, true
	case *wit.Result:
		return []wit.Type{kind.OK, kind.Err}, []string{"ok", "err"}, true
	case *wit.Enum:
		for _, cs := range kind.Cases {
			payloads = append(payloads, nil)
			names = append(names, cs.Name)
		}
		return payloads, names, true
	case wit.Type:
		return Payloads(kind)
	}
	return nil, nil, false
}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Info {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info

	switch kind := t.Kind.(type) {
	case *wit.Record:
		info = c.calculateRecord(kind)
	case *wit.Variant, *wit.Option, *wit.Result, *wit.Enum:
		payloads, _, _ := Payloads(t)
		info = c.calculateSum(payloads)
	case *wit.List:
		info = Info{Size: 8, Align: 4}
	case *wit.Tuple:
		info = c.calculateTuple(kind)
	case *wit.Flags:
		info = c.calculateFlags(kind)
	case wit.Type:
		info = c.Calculate(kind)
	default:
		info = Info{Size: 0, Align: 1}
	}

	c.cache[t] = info
	return info
}

func (c *Calculator) calculateRecord(r *wit.Record) Info {
	if len(r.Fields) == 0 {
		return Info{Size: 0, Align: 1}
	}

	fieldOffs := make(map[string]uint32)
	maxAlign := uint32(1)
	offset := uint32(0)

	for _, field := range r.Fields {
		fieldLayout := c.Calculate(field.Type)

		offset = canon.AlignTo(offset, fieldLayout.Align)
		fieldOffs[field.Name] = offset

		if fieldLayout.Align > maxAlign {
			maxAlign = fieldLayout.Align
		}

		offset += fieldLayout.Size
	}

	return Info{
		Size:      canon.AlignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: fieldOffs,
	}
}

// calculateSum lays out a discriminant followed by the shared payload area.
// The payload starts at the strictest alignment of any case so every case
// sees the same offset.
func (c *Calculator) calculateSum(payloads []wit.Type) Info {
	if len(payloads) == 0 {
		return Info{Size: 0, Align: 1}
	}

	discSize := canon.DiscriminantSize(len(payloads))

	maxAlign := discSize
	maxSize := uint32(0)

	for _, p := range payloads {
		if p == nil {
			continue
		}
		caseLayout := c.Calculate(p)
		if caseLayout.Align > maxAlign {
			maxAlign = caseLayout.Align
		}
		if caseLayout.Size > maxSize {
			maxSize = caseLayout.Size
		}
	}

	payloadOffset := canon.AlignTo(discSize, maxAlign)

	return Info{
		Size:          canon.AlignTo(payloadOffset+maxSize, maxAlign),
		Align:         maxAlign,
		DiscSize:      discSize,
		PayloadOffset: payloadOffset,
	}
}

func (c *Calculator) calculateTuple(t *wit.Tuple) Info {
	if len(t.Types) == 0 {
		return Info{Size: 0, Align: 1}
	}

	maxAlign := uint32(1)
	offset := uint32(0)

	for _, typ := range t.Types {
		elemLayout := c.Calculate(typ)
		offset = canon.AlignTo(offset, elemLayout.Align)

		if elemLayout.Align > maxAlign {
			maxAlign = elemLayout.Align
		}

		offset += elemLayout.Size
	}

	return Info{
		Size:  canon.AlignTo(offset, maxAlign),
		Align: maxAlign,
	}
}

func (c *Calculator) calculateFlags(f *wit.Flags) Info {
	numFlags := len(f.Flags)

	switch {
	case numFlags == 0:
		return Info{Size: 0, Align: 1}
	case numFlags <= 8:
		return Info{Size: 1, Align: 1}
	case numFlags <= 16:
		return Info{Size: 2, Align: 2}
	default:
		numU32s := (numFlags + 31) / 32
		return Info{Size: uint32(numU32s * 4), Align: 4}
	}
}
