package lower

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/ir"
	"github.com/cxlang/cxc/types"
)

// lowerType maps a resolved types.Type onto its IR counterpart, per
// spec.md §4.6. An invalid Type (the sentinel FunctionProto.ReturnType
// carries for constructors/destructors) lowers to ir.Void.
func (g *Generator) lowerType(t types.Type) ir.Type {
	if !t.IsValid() {
		return ir.Void
	}
	switch t.Kind() {
	case types.Basic:
		return g.lowerBasicType(t)
	case types.Pointer:
		pointee := t.Pointee()
		if g.isReferenceType(pointee) {
			// Classes/interfaces already lower to a pointer (see
			// lowerTypeDecl); a pointer to one — notably `this`'s type,
			// Pointer(receiver.Type()) from ast.MethodDecl.ThisType —
			// collapses to that same single pointer rather than doubling
			// up, the same way lowerOptionalType collapses Optional(T*).
			return g.lowerType(pointee)
		}
		return &ir.Pointer{Pointee: g.lowerType(pointee)}
	case types.Optional:
		return g.lowerOptionalType(t)
	case types.Array:
		return g.lowerArrayType(t)
	case types.Tuple:
		return g.lowerTupleType(t)
	case types.Function:
		params := make([]ir.Type, len(t.ParamTypes()))
		for i, p := range t.ParamTypes() {
			params[i] = g.lowerType(p)
		}
		return &ir.FuncType{ReturnType: g.lowerType(t.ReturnType()), ParamTypes: params, Variadic: t.IsVariadic()}
	}
	g.fail("lower: unhandled type kind %d", t.Kind())
	return ir.Void
}

// lowerBasicType dispatches a Basic type either to its resolved
// declaration's aggregate lowering, or to the builtin-scalar table.
func (g *Generator) lowerBasicType(t types.Type) ir.Type {
	decl := t.Decl()
	if decl == nil {
		return g.lowerBuiltinScalar(t.Name())
	}
	switch d := decl.(type) {
	case *ast.TypeDecl:
		return g.lowerTypeDecl(d)
	case *ast.EnumDecl:
		return g.lowerEnumDecl(d)
	}
	g.fail("lower: unrecognized types.Decl implementation for %q", t.Name())
	return ir.Void
}

// isReferenceType reports whether t is a Basic type resolving to a class
// or interface declaration, i.e. a type lowerTypeDecl already represents
// as a pointer.
func (g *Generator) isReferenceType(t types.Type) bool {
	if !t.IsValid() || t.Kind() != types.Basic {
		return false
	}
	d, ok := t.Decl().(*ast.TypeDecl)
	return ok && (d.IsClass() || d.IsInterface())
}

func (g *Generator) lowerBuiltinScalar(name string) ir.Type {
	switch name {
	case "void":
		return ir.Void
	case "String":
		// Strings are a length-prefixed byte buffer behind a pointer,
		// mirroring the runtime representation a C-compatible ABI
		// needs for cxc's small-string builtin.
		return &ir.Pointer{Pointee: &ir.Struct{Name: "String", Fields: []ir.Type{
			&ir.Pointer{Pointee: &ir.Basic{Name: "char"}},
			&ir.Basic{Name: "int"},
		}}}
	case "null", "undefined":
		// Neither names a storable type on its own: "null" only ever
		// appears wrapped in an Optional, and "undefined" is an
		// initializer sentinel, so this case is unreachable from
		// lowerType's Basic branch on well-typed input.
		return ir.Void
	default:
		return &ir.Basic{Name: name}
	}
}

// lowerTypeDecl lowers a struct/class/interface/union declaration,
// caching the result by the TypeDecl's identity so repeated references
// share one *ir.Struct, per spec.md §4.7's "caching named structs by IR
// struct identity". Classes and interfaces are reference types
// (TypeDecl.PassByValue is false for both), so their IR type is a
// pointer to the field layout; structs and unions lower to the bare
// aggregate. This keeps the `this` receiver exactly one pointer level
// deep regardless of struct vs class, mirroring original_source's
// getFunctionProto applying a single explicit pointerTo() uniformly over
// getIRType(receiver-type).
func (g *Generator) lowerTypeDecl(d *ast.TypeDecl) ir.Type {
	if cached, ok := g.structCache[d]; ok {
		if d.IsClass() || d.IsInterface() {
			return &ir.Pointer{Pointee: cached}
		}
		return cached
	}

	st := &ir.Struct{Name: d.Name}
	g.structCache[d] = st // register before lowering fields, to break self-referential types

	fields := make([]ir.Type, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = g.lowerType(f.Type)
	}
	st.Fields = fields

	if d.IsClass() || d.IsInterface() {
		return &ir.Pointer{Pointee: st}
	}
	return st
}

// lowerEnumDecl lowers an enum with associated values to `{ tag int,
// payload union }`, per spec.md §4.5's sum-type IR model: a tag field
// selects the active case, and a payload large enough for the biggest
// case's associated type backs every case's value.
func (g *Generator) lowerEnumDecl(d *ast.EnumDecl) ir.Type {
	if cached, ok := g.structCache[d]; ok {
		return cached
	}
	st := &ir.Struct{Name: d.Name}
	g.structCache[d] = st

	var payloadFields []ir.Type
	for _, c := range d.Cases {
		if c.AssociatedType.IsValid() {
			payloadFields = append(payloadFields, g.lowerType(c.AssociatedType))
		}
	}
	st.Fields = []ir.Type{
		&ir.Basic{Name: "int"},
		&ir.Union{Name: d.Name + ".Payload", Fields: payloadFields},
	}
	return st
}

func (g *Generator) lowerArrayType(t types.Type) ir.Type {
	elem := g.lowerType(t.ElementType())
	switch t.ArraySize() {
	case types.RuntimeSize, types.UnknownSize:
		// Dynamically sized arrays lower to a pointer-plus-length
		// pair, per ir.Array's doc comment.
		return &ir.Struct{Fields: []ir.Type{&ir.Pointer{Pointee: elem}, &ir.Basic{Name: "int"}}}
	default:
		return &ir.Array{ElementType: elem, Size: int(t.ArraySize())}
	}
}

func (g *Generator) lowerTupleType(t types.Type) ir.Type {
	elems := t.TupleElements()
	fields := make([]ir.Type, len(elems))
	for i, e := range elems {
		fields[i] = g.lowerType(e.Type)
	}
	return &ir.Struct{Fields: fields}
}

// lowerOptionalType lowers `T?`: a pointer or function type is already
// nilable, so the optional collapses to the wrapped type itself, per
// spec.md §4.6's "conditions of pointer type lower to null comparisons";
// every other wrapped type gets an explicit discriminator field, per
// spec.md §4.6's "conditions of optional-of-non-pointer type extract the
// discriminator/has-value field".
func (g *Generator) lowerOptionalType(t types.Type) ir.Type {
	wrapped := t.WrappedType()
	if wrapped.IsPointerType() || wrapped.IsFunctionType() {
		return g.lowerType(wrapped)
	}
	return &ir.Struct{Fields: []ir.Type{&ir.Basic{Name: "bool"}, g.lowerType(wrapped)}}
}

// irSizeBytes estimates the byte size of a lowered IR type, used by the
// SRet decision in decl.go (spec.md §4.6: "return types whose size
// exceeds 16 bytes ... are returned via a hidden first pointer
// parameter"). Pointers and scalars are assumed machine-word sized
// (8 bytes); this is an estimate for the ABI decision, not the exact
// target-dependent layout computation the backend eventually owns.
func irSizeBytes(t ir.Type) int {
	switch t := t.(type) {
	case *ir.Basic:
		return basicSizeBytes(t.Name)
	case *ir.Pointer, *ir.FuncType:
		return 8
	case *ir.Array:
		return t.Size * irSizeBytes(t.ElementType)
	case *ir.Struct:
		total := 0
		for _, f := range t.Fields {
			total += irSizeBytes(f)
		}
		return total
	case *ir.Union:
		max := 0
		for _, f := range t.Fields {
			if s := irSizeBytes(f); s > max {
				max = s
			}
		}
		return max
	}
	return 8
}

func basicSizeBytes(name string) int {
	switch name {
	case "void":
		return 0
	case "bool", "int8", "uint8", "char":
		return 1
	case "int16", "uint16":
		return 2
	case "int32", "uint32", "float32":
		return 4
	case "int64", "uint64", "float64", "int", "uint", "float":
		return 8
	case "float80":
		return 16
	default:
		return 8
	}
}
