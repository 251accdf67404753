// Package union implements tagged unions in linear memory.
//
// A sum type is declared as a WIT variant, option, result or enum and
// compiled once into a Type:
//
//	intOption := union.MustCompile(&wit.TypeDef{Kind: &wit.Variant{
//		Cases: []wit.Case{{Name: "none"}, {Name: "some", Type: wit.S32{}}},
//	}})
//
// Every value of the type has the same shape: a discriminant of 1, 2 or 4
// bytes, then a payload area at one offset shared by all alternatives and
// sized to the widest of them. Tags number the alternatives in declaration
// order from 0.
//
// A payload is read or written only through a View obtained by narrowing:
//
//	if v.Tag() == some {
//		x := v.Narrow(some)
//		union.Store(x, union.Load[int32](x)+45)
//	}
//
// Narrow asserts the tag unless the module is built with the regionrelease
// tag; NarrowChecked always asserts. A failed assertion, or a load or store
// wider than the alternative, is a fatal report from the errors package.
package union
