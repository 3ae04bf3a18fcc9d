// Package ir implements the compiler's typed, SSA-ish intermediate
// representation: types, instructions, blocks, functions, and modules,
// per spec.md §4.5. Grounded directly on original_source's src/ir/ir.h.
package ir

import "fmt"

// TypeKind tags the variant of an ir.Type.
type TypeKind int

const (
	BasicTypeKind TypeKind = iota
	PointerTypeKind
	FunctionTypeKind
	ArrayTypeKind
	StructTypeKind
	UnionTypeKind
)

// Type is the IR's own type system, distinct from (but derived 1:1 from)
// types.Type — lowering produces these, the backend consumes them.
type Type interface {
	Kind() TypeKind
	String() string
}

// Basic is a primitive type named by its source-language spelling (e.g.
// "int32", "bool", "void").
type Basic struct {
	Name string
}

func (t *Basic) Kind() TypeKind { return BasicTypeKind }
func (t *Basic) String() string { return t.Name }

var signedInts = map[string]bool{"int": true, "int8": true, "int16": true, "int32": true, "int64": true}
var unsignedInts = map[string]bool{"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true}
var floats = map[string]bool{"float32": true, "float64": true}

func (t *Basic) IsInteger() bool         { return signedInts[t.Name] || unsignedInts[t.Name] }
func (t *Basic) IsSignedInteger() bool   { return signedInts[t.Name] }
func (t *Basic) IsUnsignedInteger() bool { return unsignedInts[t.Name] }
func (t *Basic) IsFloatingPoint() bool   { return floats[t.Name] }
func (t *Basic) IsChar() bool            { return t.Name == "char" }
func (t *Basic) IsBool() bool            { return t.Name == "bool" }
func (t *Basic) IsVoid() bool            { return t.Name == "void" }

// Pointer is a pointer-to type.
type Pointer struct {
	Pointee Type
}

func (t *Pointer) Kind() TypeKind { return PointerTypeKind }
func (t *Pointer) String() string { return t.Pointee.String() + "*" }

// FuncType is a function signature type (used for function pointer
// values, not the function declaration itself — see Function in
// value.go for that).
type FuncType struct {
	ReturnType Type
	ParamTypes []Type
	Variadic   bool
}

func (t *FuncType) Kind() TypeKind { return FunctionTypeKind }
func (t *FuncType) String() string {
	s := t.ReturnType.String() + "("
	for i, p := range t.ParamTypes {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	if t.Variadic {
		s += ", ..."
	}
	return s + ")"
}

// Array is a fixed-size element array; Size is -1 for runtime-sized
// arrays lowered to pointer-plus-length pairs by the caller.
type Array struct {
	ElementType Type
	Size        int
}

func (t *Array) Kind() TypeKind { return ArrayTypeKind }
func (t *Array) String() string { return fmt.Sprintf("[%d x %s]", t.Size, t.ElementType.String()) }

// Struct is a (possibly named) aggregate with ordered fields; named
// structs are cached by identity (pointer equality of the *Struct), per
// spec.md §4.7's "caching named structs by IR struct identity".
type Struct struct {
	Name   string // empty for an anonymous struct
	Fields []Type
}

func (t *Struct) Kind() TypeKind { return StructTypeKind }
func (t *Struct) String() string {
	if t.Name != "" {
		return "%" + t.Name
	}
	s := "{"
	for i, f := range t.Fields {
		if i > 0 {
			s += ", "
		}
		s += f.String()
	}
	return s + "}"
}

// Union is emitted as a single-field struct sized by its largest
// variant (spec.md §4.5/§4.7); Fields records the original variant types
// so the backend can compute that size.
type Union struct {
	Name   string
	Fields []Type
}

func (t *Union) Kind() TypeKind { return UnionTypeKind }
func (t *Union) String() string { return "%union." + t.Name }

var (
	Void  = &Basic{Name: "void"}
	Bool  = &Basic{Name: "bool"}
	Int   = &Basic{Name: "int"}
	Int8  = &Basic{Name: "int8"}
	Int32 = &Basic{Name: "int32"}
	Int64 = &Basic{Name: "int64"}
)
