// Package types implements the compiler's interned structural type system:
// basic (possibly generic) types, pointers, optionals, arrays, tuples, and
// function types, canonicalized so that structural equality reduces to
// pointer equality (spec.md §4.1, grounded on original_source's
// ast/type.cpp Type::get* / Type::resolve family).
package types

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cxlang/cxc/token"
)

// Mutability qualifies a Type handle independently of its interned base.
type Mutability int

const (
	// Mutable is the default qualifier: `var` bindings and non-const
	// pointees.
	Mutable Mutability = iota
	// Immutable marks a `const`-qualified handle.
	Immutable
)

// ArraySize encodes the three array-size flavors from spec.md §3: a
// non-negative constant, a runtime-determined size, or an unknown size.
type ArraySize int64

const (
	// RuntimeSize marks `T[]`, a dynamically sized array.
	RuntimeSize ArraySize = -1
	// UnknownSize marks `T[?]`, an array whose size is not yet resolved.
	UnknownSize ArraySize = -2
)

// Kind tags the structural shape of a type base.
type Kind int

const (
	Basic Kind = iota
	Pointer
	Optional
	Array
	Tuple
	Function
)

// Decl is the minimal surface the types package needs from a declaration,
// satisfied by ast.TypeDecl. Kept as an interface here to avoid an import
// cycle between types and ast: a Basic type optionally resolves to the
// declaration that defines it.
type Decl interface {
	TypeDeclName() string
	IsEnumDecl() bool
	PassByValue() bool
	ConformsTo(interfaceName string) bool
}

// base is the interned, structurally-compared payload of a Type. Two Type
// handles compare equal (ignoring top-level mutability) iff they point at
// the same base, which is guaranteed by Interner deduplication.
type base struct {
	kind Kind

	// Basic
	name         string
	genericArgs  []Type
	decl         Decl
	resolvedDecl bool

	// Pointer / Optional
	elem Type

	// Array
	arrayElem Type
	arraySize ArraySize

	// Tuple
	tupleNames []string
	tupleElems []Type

	// Function
	retType  Type
	params   []Type
	variadic bool
}

// Type is a handle (base, mutability, source-location) as specified in
// spec.md §3. The zero Type is invalid; construct handles only through an
// Interner.
type Type struct {
	b    *base
	mut  Mutability
	loc  token.Position
	kind Kind
}

// IsValid reports whether t refers to an interned base.
func (t Type) IsValid() bool { return t.b != nil }

// Location returns the source location this particular handle was created
// at (not the base's, since the same base may be referenced from many
// locations).
func (t Type) Location() token.Position { return t.loc }

// WithLocation returns a copy of t tagged with a different source location.
func (t Type) WithLocation(loc token.Position) Type {
	t2 := t
	t2.loc = loc
	return t2
}

// IsMutable reports whether t is not `const`-qualified.
func (t Type) IsMutable() bool { return t.mut == Mutable }

// WithMutability returns a copy of t qualified with mut.
func (t Type) WithMutability(mut Mutability) Type {
	t2 := t
	t2.mut = mut
	return t2
}

func (t Type) Kind() Kind { return t.kind }

func (t Type) IsBasicType() bool    { return t.kind == Basic }
func (t Type) IsPointerType() bool  { return t.kind == Pointer }
func (t Type) IsOptionalType() bool { return t.kind == Optional }
func (t Type) IsArrayType() bool    { return t.kind == Array }
func (t Type) IsTupleType() bool    { return t.kind == Tuple }
func (t Type) IsFunctionType() bool { return t.kind == Function }

// Name returns the basic type's name. Panics on non-basic types, mirroring
// the teacher's llvm::cast-style accessors.
func (t Type) Name() string {
	mustKind(t, Basic)
	return t.b.name
}

func (t Type) GenericArgs() []Type {
	mustKind(t, Basic)
	return t.b.genericArgs
}

// Decl returns the declaration this basic type resolved to, or nil if
// unresolved (e.g. a generic-parameter placeholder or a builtin scalar).
func (t Type) Decl() Decl {
	if t.kind != Basic {
		return nil
	}
	return t.b.decl
}

func (t Type) Pointee() Type {
	mustKind(t, Pointer)
	return t.b.elem.WithLocation(t.loc)
}

func (t Type) WrappedType() Type {
	mustKind(t, Optional)
	return t.b.elem.WithLocation(t.loc)
}

func (t Type) ElementType() Type {
	mustKind(t, Array)
	return t.b.arrayElem.WithLocation(t.loc)
}

func (t Type) ArraySize() ArraySize {
	mustKind(t, Array)
	return t.b.arraySize
}

func (t Type) IsArrayWithConstantSize() bool {
	return t.kind == Array && t.b.arraySize >= 0
}

type TupleElement struct {
	Name string
	Type Type
}

func (t Type) TupleElements() []TupleElement {
	mustKind(t, Tuple)
	out := make([]TupleElement, len(t.b.tupleElems))
	for i, e := range t.b.tupleElems {
		out[i] = TupleElement{Name: t.b.tupleNames[i], Type: e}
	}
	return out
}

func (t Type) ReturnType() Type {
	mustKind(t, Function)
	return t.b.retType.WithLocation(t.loc)
}

func (t Type) ParamTypes() []Type {
	mustKind(t, Function)
	return t.b.params
}

func (t Type) IsVariadic() bool {
	mustKind(t, Function)
	return t.b.variadic
}

func mustKind(t Type, k Kind) {
	if t.kind != k {
		panic("types: wrong accessor for type kind")
	}
}

// builtin scalar name tables, mirrored from original_source's type.cpp
// signedInts/unsignedInts constants.
var signedInts = map[string]bool{"int": true, "int8": true, "int16": true, "int32": true, "int64": true}
var unsignedInts = map[string]bool{"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true}
var floats = map[string]bool{"float": true, "float32": true, "float64": true, "float80": true}

func (t Type) IsInteger() bool {
	return t.kind == Basic && (signedInts[t.b.name] || unsignedInts[t.b.name])
}

func (t Type) IsSigned() bool   { return t.kind == Basic && signedInts[t.b.name] }
func (t Type) IsUnsigned() bool { return t.kind == Basic && unsignedInts[t.b.name] }
func (t Type) IsFloat() bool    { return t.kind == Basic && floats[t.b.name] }
func (t Type) IsBool() bool     { return t.kind == Basic && t.b.name == "bool" }
func (t Type) IsVoid() bool     { return t.kind == Basic && t.b.name == "void" }

// IsEnumType reports whether t resolves to an enum declaration (spec.md
// §3: "a basic type is enum iff its resolved declaration is an enum").
func (t Type) IsEnumType() bool {
	return t.kind == Basic && t.b.decl != nil && t.b.decl.IsEnumDecl()
}

// IsImplicitlyCopyable is decidable from structure plus Copyable
// conformance, per spec.md §3. Mirrors original_source's
// Type::isImplicitlyCopyable.
func (t Type) IsImplicitlyCopyable() bool {
	switch t.kind {
	case Basic:
		return t.b.decl == nil || t.b.decl.PassByValue() || t.b.decl.ConformsTo("Copyable")
	case Array:
		return false
	case Tuple:
		for _, e := range t.b.tupleElems {
			if !e.IsImplicitlyCopyable() {
				return false
			}
		}
		return true
	case Function, Pointer:
		return true
	case Optional:
		return t.b.elem.IsImplicitlyCopyable()
	}
	panic("types: unhandled kind in IsImplicitlyCopyable")
}

// EqualsIgnoreTopLevelMutable reports structural equality of t and other,
// disregarding their top-level Mutability qualifiers. This is the relation
// the Interner uses to deduplicate bases (spec.md invariant 2, §8).
func (t Type) EqualsIgnoreTopLevelMutable(other Type) bool {
	if t.kind != other.kind {
		return false
	}
	switch t.kind {
	case Basic:
		if t.b.name != other.b.name || len(t.b.genericArgs) != len(other.b.genericArgs) {
			return false
		}
		for i := range t.b.genericArgs {
			if t.b.genericArgs[i] != other.b.genericArgs[i] {
				return false
			}
		}
		return true
	case Pointer, Optional:
		return t.b.elem == other.b.elem
	case Array:
		return t.b.arrayElem == other.b.arrayElem && t.b.arraySize == other.b.arraySize
	case Tuple:
		if len(t.b.tupleElems) != len(other.b.tupleElems) {
			return false
		}
		for i := range t.b.tupleElems {
			if t.b.tupleElems[i] != other.b.tupleElems[i] || t.b.tupleNames[i] != other.b.tupleNames[i] {
				return false
			}
		}
		return true
	case Function:
		if t.b.retType != other.b.retType || t.b.variadic != other.b.variadic || len(t.b.params) != len(other.b.params) {
			return false
		}
		for i := range t.b.params {
			if t.b.params[i] != other.b.params[i] {
				return false
			}
		}
		return true
	}
	panic("types: unhandled kind in EqualsIgnoreTopLevelMutable")
}

// Equal reports full equality, including top-level mutability, matching
// original_source's operator==(Type, Type).
func Equal(a, b Type) bool {
	if a.mut != b.mut {
		return false
	}
	return a.EqualsIgnoreTopLevelMutable(b)
}

// String renders t deterministically, per spec.md §4.1: `const` prefix
// unless elided, `<T, U>` generic args, postfix `*`/`?`, `[N]`/`[]`/`[?]`.
func (t Type) String() string { return t.stringOmitTopLevel(true) }

func (t Type) stringOmitTopLevel(omitConst bool) string {
	var sb strings.Builder
	t.printTo(&sb, omitConst)
	return sb.String()
}

func (t Type) printTo(sb *strings.Builder, omitTopLevelConst bool) {
	if t.b == nil {
		sb.WriteString("<invalid>")
		return
	}
	switch t.kind {
	case Basic:
		if !t.IsMutable() && !omitTopLevelConst {
			sb.WriteString("const ")
		}
		sb.WriteString(t.b.name)
		if len(t.b.genericArgs) > 0 {
			sb.WriteString("<")
			for i, a := range t.b.genericArgs {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(a.stringOmitTopLevel(false))
			}
			sb.WriteString(">")
		}
	case Array:
		sb.WriteString(t.ElementType().stringOmitTopLevel(omitTopLevelConst))
		sb.WriteString("[")
		switch t.b.arraySize {
		case RuntimeSize:
		case UnknownSize:
			sb.WriteString("?")
		default:
			sb.WriteString(strconv.FormatInt(int64(t.b.arraySize), 10))
		}
		sb.WriteString("]")
	case Tuple:
		sb.WriteString("(")
		for i, e := range t.TupleElements() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e.Type.stringOmitTopLevel(omitTopLevelConst))
			if e.Name != "" {
				sb.WriteString(" ")
				sb.WriteString(e.Name)
			}
		}
		sb.WriteString(")")
	case Function:
		sb.WriteString(t.ReturnType().stringOmitTopLevel(true))
		sb.WriteString("(")
		for i, p := range t.b.params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.String())
		}
		sb.WriteString(")")
	case Pointer:
		pointee := t.Pointee()
		wrap := pointee.IsFunctionType()
		if wrap {
			sb.WriteString("(")
		}
		pointee.printTo(sb, false)
		if !t.IsMutable() && !omitTopLevelConst {
			sb.WriteString(" const")
		}
		if wrap {
			sb.WriteString(")")
		}
		sb.WriteString("*")
	case Optional:
		wrapped := t.WrappedType()
		wrap := wrapped.IsFunctionType()
		if wrap {
			sb.WriteString("(")
		}
		wrapped.printTo(sb, false)
		if !t.IsMutable() && !omitTopLevelConst {
			sb.WriteString(" const")
		}
		if wrap {
			sb.WriteString(")")
		}
		sb.WriteString("?")
	}
}

// Resolve deep-substitutes generic-parameter placeholders named in
// replacements, re-interning the result, per spec.md §4.1. Resolve is a
// pure function of (t, replacements).
func (in *Interner) Resolve(t Type, replacements map[string]Type) Type {
	if t.b == nil {
		return t
	}
	switch t.kind {
	case Basic:
		if repl, ok := replacements[t.b.name]; ok {
			out := repl.WithMutability(t.mut)
			out.loc = t.loc
			return out
		}
		args := make([]Type, len(t.b.genericArgs))
		for i, a := range t.b.genericArgs {
			args[i] = in.Resolve(a, replacements)
		}
		return in.GetBasic(t.b.name, args, t.mut, t.loc)
	case Array:
		return in.GetArray(in.Resolve(t.ElementType(), replacements), t.b.arraySize, t.mut, t.loc)
	case Tuple:
		elems := t.TupleElements()
		names := make([]string, len(elems))
		tys := make([]Type, len(elems))
		for i, e := range elems {
			names[i] = e.Name
			tys[i] = in.Resolve(e.Type, replacements)
		}
		return in.GetTuple(names, tys, t.mut, t.loc)
	case Function:
		params := make([]Type, len(t.b.params))
		for i, p := range t.b.params {
			params[i] = in.Resolve(p, replacements)
		}
		ret := in.Resolve(t.ReturnType(), replacements)
		return in.GetFunction(ret, params, t.b.variadic, t.mut, t.loc)
	case Pointer:
		return in.GetPointer(in.Resolve(t.Pointee(), replacements), t.mut, t.loc)
	case Optional:
		return in.GetOptional(in.Resolve(t.WrappedType(), replacements), t.mut, t.loc)
	}
	panic("types: unhandled kind in Resolve")
}

// Interner canonicalizes structural type bases so that two handles compare
// equal (ignoring top-level mutability) iff they share the same base
// pointer, per spec.md §4.1. The zero Interner is usable; it is not
// process-wide by default (see spec.md's design-notes open question),
// letting a Compiler context own one per compilation for reentrancy.
type Interner struct {
	bases []*base
}

// NewInterner returns an empty Interner pre-seeded with nothing; callers
// typically call SeedBuiltins to register the builtin scalar types.
func NewInterner() *Interner {
	return &Interner{}
}

func (in *Interner) intern(candidate *base, mut Mutability, loc token.Position) Type {
	cand := Type{b: candidate, mut: mut, loc: loc, kind: candidate.kind}
	for _, existing := range in.bases {
		existingType := Type{b: existing, mut: mut, loc: loc, kind: existing.kind}
		if existingType.EqualsIgnoreTopLevelMutable(cand) {
			return existingType
		}
	}
	in.bases = append(in.bases, candidate)
	return cand
}

func (in *Interner) GetBasic(name string, genericArgs []Type, mut Mutability, loc token.Position) Type {
	return in.intern(&base{kind: Basic, name: name, genericArgs: genericArgs}, mut, loc)
}

// GetBasicDecl is GetBasic but attaches a resolved declaration, used once
// name resolution has located the declaring TypeDecl/EnumDecl.
func (in *Interner) GetBasicDecl(name string, genericArgs []Type, decl Decl, mut Mutability, loc token.Position) Type {
	return in.intern(&base{kind: Basic, name: name, genericArgs: genericArgs, decl: decl, resolvedDecl: decl != nil}, mut, loc)
}

func (in *Interner) GetPointer(pointee Type, mut Mutability, loc token.Position) Type {
	return in.intern(&base{kind: Pointer, elem: pointee}, mut, loc)
}

func (in *Interner) GetOptional(wrapped Type, mut Mutability, loc token.Position) Type {
	return in.intern(&base{kind: Optional, elem: wrapped}, mut, loc)
}

func (in *Interner) GetArray(elem Type, size ArraySize, mut Mutability, loc token.Position) Type {
	return in.intern(&base{kind: Array, arrayElem: elem, arraySize: size}, mut, loc)
}

func (in *Interner) GetTuple(names []string, elems []Type, mut Mutability, loc token.Position) Type {
	return in.intern(&base{kind: Tuple, tupleNames: append([]string(nil), names...), tupleElems: append([]Type(nil), elems...)}, mut, loc)
}

func (in *Interner) GetFunction(ret Type, params []Type, variadic bool, mut Mutability, loc token.Position) Type {
	return in.intern(&base{kind: Function, retType: ret, params: append([]Type(nil), params...), variadic: variadic}, mut, loc)
}

// builtin scalar names, used by SeedBuiltins and by name resolution to
// short-circuit declaration lookup for primitive types.
var BuiltinScalarNames = []string{
	"void", "bool",
	"int", "int8", "int16", "int32", "int64",
	"uint", "uint8", "uint16", "uint32", "uint64",
	"float", "float32", "float64", "float80",
	"char", "String", "null", "undefined",
}

// IsBuiltinScalar reports whether name names a builtin scalar type,
// mirroring original_source's Type::isBuiltinScalar.
func IsBuiltinScalar(name string) bool {
	switch name {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64",
		"float", "float32", "float64", "float80", "bool", "char":
		return true
	}
	return false
}

// Builtins is a handle to commonly used builtin types, filled in by
// SeedBuiltins so callers don't repeatedly re-resolve them.
type Builtins struct {
	Void, Bool              Type
	Int, Int8, Int16, Int32, Int64 Type
	UInt, UInt8, UInt16, UInt32, UInt64 Type
	Float, Float32, Float64, Float80 Type
	Char, StringT, Null, Undefined Type
}

// SeedBuiltins interns every builtin scalar type at an invalid location and
// returns quick-access handles to them.
func (in *Interner) SeedBuiltins() Builtins {
	get := func(name string) Type { return in.GetBasic(name, nil, Mutable, token.Position{}) }
	return Builtins{
		Void: get("void"), Bool: get("bool"),
		Int: get("int"), Int8: get("int8"), Int16: get("int16"), Int32: get("int32"), Int64: get("int64"),
		UInt: get("uint"), UInt8: get("uint8"), UInt16: get("uint16"), UInt32: get("uint32"), UInt64: get("uint64"),
		Float: get("float"), Float32: get("float32"), Float64: get("float64"), Float80: get("float80"),
		Char: get("char"), StringT: get("String"), Null: get("null"), Undefined: get("undefined"),
	}
}

// SortedTypeNames is a small helper that renders a deterministic ordering
// of the basic type names appearing in bases, by the caller's less,
// mirroring the teacher's use of rickypai/natsort for typeDefs ordering
// before emission (lower.Generator.Lower).
func (in *Interner) SortedTypeNames(less func(a, b string) bool) []string {
	seen := map[string]bool{}
	var names []string
	for _, b := range in.bases {
		if b.kind == Basic && !seen[b.name] {
			seen[b.name] = true
			names = append(names, b.name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return less(names[i], names[j]) })
	return names
}
