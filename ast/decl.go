package ast

import (
	"fmt"

	"github.com/cxlang/cxc/token"
	"github.com/cxlang/cxc/types"
)

// DeclKind tags the variant of a Decl, mirroring original_source's
// DeclKind enum (ast/decl.h).
type DeclKind int

const (
	KindParamDecl DeclKind = iota
	KindGenericParamDecl
	KindFunctionDecl
	KindMethodDecl
	KindInitDecl
	KindDeinitDecl
	KindFunctionTemplate
	KindTypeDecl
	KindTypeTemplate
	KindVarDecl
	KindFieldDecl
	KindEnumDecl
	KindEnumCaseDecl
	KindImportDecl
)

// Decl is the common interface every declaration node satisfies.
type Decl interface {
	Kind() DeclKind
	Location() token.Position
	Access() AccessLevel
	// Instantiate returns a fully typed clone of the declaration with every
	// Type substituted through interner.Resolve(args), per spec.md §4.2.
	Instantiate(interner *types.Interner, args map[string]types.Type, ordered []types.Type) Decl
}

// ParamDecl is a function or method parameter.
type ParamDecl struct {
	Node
	Movable
	AccessLevel AccessLevel
	Name        string
	Type        types.Type
	Parent      *FunctionDecl // non-owning back-reference, per design-notes
}

func (d *ParamDecl) Kind() DeclKind      { return KindParamDecl }
func (d *ParamDecl) Access() AccessLevel { return d.AccessLevel }
func (d *ParamDecl) Instantiate(in *types.Interner, args map[string]types.Type, ordered []types.Type) Decl {
	return &ParamDecl{Node: d.Node, AccessLevel: d.AccessLevel, Name: d.Name, Type: in.Resolve(d.Type, args)}
}

// Equal reports whether two parameters have matching type and name, used
// by signature matching (spec.md §4.3).
func (d *ParamDecl) Equal(other *ParamDecl) bool {
	return types.Equal(d.Type, other.Type) && d.Name == other.Name
}

// GenericParamDecl is a generic parameter of a template, carrying interface
// constraints that are parsed but — per spec.md's open question — only
// partially enforced; cxc enforces them (see sema.Checker.checkConstraints
// and DESIGN.md's resolution of that open question).
type GenericParamDecl struct {
	Node
	Name        string
	Constraints []string
	Parent      Decl
}

func (d *GenericParamDecl) Kind() DeclKind      { return KindGenericParamDecl }
func (d *GenericParamDecl) Access() AccessLevel { return Public }
func (d *GenericParamDecl) Instantiate(in *types.Interner, args map[string]types.Type, ordered []types.Type) Decl {
	return &GenericParamDecl{Node: d.Node, Name: d.Name, Constraints: append([]string(nil), d.Constraints...)}
}

// FunctionProto is the shared signature payload of FunctionDecl and its
// subtypes (MethodDecl, InitDecl, DeinitDecl), mirroring
// original_source's FunctionProto.
type FunctionProto struct {
	Name       string
	Params     []*ParamDecl
	ReturnType types.Type
	Variadic   bool
	Extern     bool
}

func (p FunctionProto) instantiate(in *types.Interner, args map[string]types.Type) FunctionProto {
	params := make([]*ParamDecl, len(p.Params))
	for i, pd := range p.Params {
		params[i] = pd.Instantiate(in, args, nil).(*ParamDecl)
	}
	return FunctionProto{
		Name:       p.Name,
		Params:     params,
		ReturnType: in.Resolve(p.ReturnType, args),
		Variadic:   p.Variadic,
		Extern:     p.Extern,
	}
}

// FunctionDecl is a free function (or the base of MethodDecl/InitDecl/
// DeinitDecl).
type FunctionDecl struct {
	Node
	AccessLevel AccessLevel
	Proto       FunctionProto
	GenericArgs []types.Type // non-empty only for template instantiations
	Body        []Stmt
	ModuleName  string
	declKind    DeclKind
}

func NewFunctionDecl(proto FunctionProto, loc token.Position, moduleName string) *FunctionDecl {
	return &FunctionDecl{Node: Node{Loc: loc}, Proto: proto, ModuleName: moduleName, declKind: KindFunctionDecl}
}

func (d *FunctionDecl) Kind() DeclKind      { return d.declKind }
func (d *FunctionDecl) Access() AccessLevel { return d.AccessLevel }
func (d *FunctionDecl) Name() string        { return d.Proto.Name }
func (d *FunctionDecl) IsExtern() bool      { return d.Proto.Extern }
func (d *FunctionDecl) IsVariadic() bool    { return d.Proto.Variadic }
func (d *FunctionDecl) IsMain() bool        { return d.Proto.Name == "main" && d.ModuleName == "" }

// IsMutating reports whether calling this function may mutate its
// receiver; overridden by MethodDecl/InitDecl.
func (d *FunctionDecl) IsMutating() bool { return false }

// ReceiverTypeDecl returns the TypeDecl this is a method of, or nil for a
// free function. Overridden by MethodDecl.
func (d *FunctionDecl) ReceiverTypeDecl() *TypeDecl { return nil }

// FunctionType returns the function's signature as an interned
// types.Type, used by overload resolution and mangling.
func (d *FunctionDecl) FunctionType(in *types.Interner) types.Type {
	params := make([]types.Type, len(d.Proto.Params))
	for i, p := range d.Proto.Params {
		params[i] = p.Type
	}
	return in.GetFunction(d.Proto.ReturnType, params, d.Proto.Variadic, types.Mutable, d.Loc)
}

// SignatureMatches compares d's full signature, including receiver when
// matchReceiver is set, to other's — the redefinition-detection relation
// from spec.md §4.3.
func (d *FunctionDecl) SignatureMatches(other *FunctionDecl, matchReceiver bool) bool {
	if d.Proto.Name != other.Proto.Name || len(d.Proto.Params) != len(other.Proto.Params) {
		return false
	}
	for i := range d.Proto.Params {
		if !d.Proto.Params[i].Equal(other.Proto.Params[i]) {
			return false
		}
	}
	if matchReceiver {
		dr, or := d.ReceiverTypeDecl(), other.ReceiverTypeDecl()
		if (dr == nil) != (or == nil) {
			return false
		}
		if dr != nil && dr.Name != or.Name {
			return false
		}
	}
	return true
}

func (d *FunctionDecl) Instantiate(in *types.Interner, args map[string]types.Type, ordered []types.Type) Decl {
	clone := &FunctionDecl{
		Node:        d.Node,
		AccessLevel: d.AccessLevel,
		Proto:       d.Proto.instantiate(in, args),
		GenericArgs: ordered,
		ModuleName:  d.ModuleName,
		declKind:    d.declKind,
	}
	clone.Body = instantiateStmts(d.Body, in, args)
	return clone
}

// MethodDecl is a FunctionDecl with an explicit receiver, per spec.md §3's
// "methods with explicit receivers".
type MethodDecl struct {
	FunctionDecl
	Receiver  *TypeDecl
	Mutating  bool
}

func NewMethodDecl(proto FunctionProto, receiver *TypeDecl, loc token.Position) *MethodDecl {
	m := &MethodDecl{Receiver: receiver}
	m.Node = Node{Loc: loc}
	m.Proto = proto
	m.declKind = KindMethodDecl
	return m
}

func (d *MethodDecl) IsMutating() bool            { return d.Mutating }
func (d *MethodDecl) ReceiverTypeDecl() *TypeDecl { return d.Receiver }

// ThisType returns the type of the implicit `this` parameter: a pointer to
// the receiver, mutable iff the method mutates.
func (d *MethodDecl) ThisType(in *types.Interner) types.Type {
	mut := types.Immutable
	if d.Mutating {
		mut = types.Mutable
	}
	recv := d.Receiver.Type(in, mut)
	return in.GetPointer(recv, types.Mutable, d.Loc)
}

// InstantiateForReceiver clones the method against an already-instantiated receiver
// TypeDecl, per spec.md §4.2 ("Method instantiation").
func (d *MethodDecl) InstantiateForReceiver(in *types.Interner, args map[string]types.Type, receiver *TypeDecl) *MethodDecl {
	clone := &MethodDecl{Receiver: receiver, Mutating: d.Mutating}
	clone.Node = d.Node
	clone.AccessLevel = d.AccessLevel
	clone.Proto = d.Proto.instantiate(in, args)
	clone.ModuleName = d.ModuleName
	clone.declKind = d.declKind
	clone.Body = instantiateStmts(d.Body, in, args)
	return clone
}

func (d *MethodDecl) Instantiate(in *types.Interner, args map[string]types.Type, ordered []types.Type) Decl {
	return d.InstantiateForReceiver(in, args, d.Receiver)
}

// InitDecl is a constructor; always named "init" with a void return type.
type InitDecl struct{ MethodDecl }

func NewInitDecl(params []*ParamDecl, receiver *TypeDecl, loc token.Position) *InitDecl {
	d := &InitDecl{}
	d.Receiver = receiver
	d.Mutating = true
	d.Node = Node{Loc: loc}
	d.Proto = FunctionProto{Name: "init", Params: params, ReturnType: types.Type{}}
	d.declKind = KindInitDecl
	return d
}

func (d *InitDecl) IsMutating() bool { return true }
func (d *InitDecl) Instantiate(in *types.Interner, args map[string]types.Type, ordered []types.Type) Decl {
	clone := d.InstantiateForReceiver(in, args, d.Receiver)
	return &InitDecl{MethodDecl: *clone}
}

// DeinitDecl is a destructor; always named "deinit" with no parameters and
// a void return type (spec.md §3: "a destructor always has an empty
// parameter list").
type DeinitDecl struct{ MethodDecl }

func NewDeinitDecl(receiver *TypeDecl, loc token.Position) *DeinitDecl {
	d := &DeinitDecl{}
	d.Receiver = receiver
	d.Node = Node{Loc: loc}
	d.Proto = FunctionProto{Name: "deinit", ReturnType: types.Type{}}
	d.declKind = KindDeinitDecl
	return d
}

func (d *DeinitDecl) Instantiate(in *types.Interner, args map[string]types.Type, ordered []types.Type) Decl {
	clone := d.InstantiateForReceiver(in, args, d.Receiver)
	return &DeinitDecl{MethodDecl: *clone}
}

// FunctionTemplate owns a generic FunctionDecl body and memoizes
// instantiations keyed by the ordered tuple of interned type bases, per
// spec.md's invariant 1 ("T.instantiate(A) == T.instantiate(A)").
type FunctionTemplate struct {
	Node
	AccessLevel  AccessLevel
	GenericParams []*GenericParamDecl
	Decl         *FunctionDecl
	instances    map[string]*FunctionDecl
}

func NewFunctionTemplate(params []*GenericParamDecl, decl *FunctionDecl, loc token.Position) *FunctionTemplate {
	return &FunctionTemplate{Node: Node{Loc: loc}, GenericParams: params, Decl: decl, instances: make(map[string]*FunctionDecl)}
}

func (d *FunctionTemplate) Kind() DeclKind      { return KindFunctionTemplate }
func (d *FunctionTemplate) Access() AccessLevel { return d.AccessLevel }

// instKey builds a stable memoization key from the ordered tuple of
// generic arguments: one entry per argument, made of typeIdentity (the
// type's String() rendering, standing in for the interned base pointer)
// and its mutability. No pointer address is formatted into the key.
func instKey(ordered []types.Type) string {
	key := make([]byte, 0, len(ordered)*8)
	for _, t := range ordered {
		key = fmt.Appendf(key, "%p|%v,", typeIdentity(t), t.IsMutable())
	}
	return string(key)
}

// typeIdentity extracts a stable, comparable identity for a Type's
// interned base without exposing the unexported base struct outside
// package types; String() of the fully-qualified form stands in as an
// identity proxy since equal bases always render identically and the
// Interner guarantees distinct bases render differently for the type
// shapes this compiler supports.
func typeIdentity(t types.Type) any {
	return t.String()
}

// Instantiate resolves the template for genericArgs (by name), memoizing
// on ordered. Repeated calls with an equal ordered tuple return the exact
// same *FunctionDecl pointer.
func (d *FunctionTemplate) Instantiate(in *types.Interner, genericArgs map[string]types.Type, ordered []types.Type) Decl {
	key := instKey(ordered)
	if existing, ok := d.instances[key]; ok {
		return existing
	}
	clone := d.Decl.Instantiate(in, genericArgs, ordered).(*FunctionDecl)
	clone.GenericArgs = ordered
	d.instances[key] = clone
	return clone
}

// TypeTag distinguishes struct/class/interface/union, per spec.md §3.
type TypeTag int

const (
	Struct TypeTag = iota
	Class
	Interface
	Union
)

// FieldDecl is a struct/class/union field; field order defines memory
// layout (spec.md §3).
type FieldDecl struct {
	Node
	AccessLevel AccessLevel
	Name        string
	Type        types.Type
	Parent      *TypeDecl
}

func (d *FieldDecl) Kind() DeclKind      { return KindFieldDecl }
func (d *FieldDecl) Access() AccessLevel { return d.AccessLevel }
func (d *FieldDecl) Instantiate(in *types.Interner, args map[string]types.Type, ordered []types.Type) Decl {
	return &FieldDecl{Node: d.Node, AccessLevel: d.AccessLevel, Name: d.Name, Type: in.Resolve(d.Type, args)}
}

// TypeDecl is a struct/class/interface/union declaration, or a template
// instantiation thereof (spec.md §3).
type TypeDecl struct {
	Node
	AccessLevel AccessLevel
	Tag         TypeTag
	Name        string
	GenericArgs []types.Type
	Fields      []*FieldDecl
	Methods     []Decl // *MethodDecl, *InitDecl, or *DeinitDecl
	ModuleName  string
	Conforms    map[string]bool // interfaces this TypeDecl is declared to conform to
}

func NewTypeDecl(tag TypeTag, name string, loc token.Position, moduleName string) *TypeDecl {
	return &TypeDecl{Node: Node{Loc: loc}, Tag: tag, Name: name, ModuleName: moduleName, Conforms: map[string]bool{}}
}

func (d *TypeDecl) Kind() DeclKind      { return KindTypeDecl }
func (d *TypeDecl) Access() AccessLevel { return d.AccessLevel }
func (d *TypeDecl) IsStruct() bool      { return d.Tag == Struct }
func (d *TypeDecl) IsClass() bool       { return d.Tag == Class }
func (d *TypeDecl) IsInterface() bool   { return d.Tag == Interface }
func (d *TypeDecl) IsUnion() bool       { return d.Tag == Union }
func (d *TypeDecl) IsEnumDecl() bool    { return false }

// PassByValue reports whether values of this type are copied rather than
// referenced, per spec.md (structs and unions pass by value; classes and
// interfaces pass by reference).
func (d *TypeDecl) PassByValue() bool { return d.IsStruct() || d.IsUnion() }

// TypeDeclName / ConformsTo satisfy types.Decl, letting types.Type query
// declarations without importing package ast.
func (d *TypeDecl) TypeDeclName() string        { return d.Name }
func (d *TypeDecl) ConformsTo(iface string) bool { return d.Conforms[iface] }

func (d *TypeDecl) AddField(f *FieldDecl) {
	f.Parent = d
	d.Fields = append(d.Fields, f)
}

func (d *TypeDecl) AddMethod(m Decl) {
	d.Methods = append(d.Methods, m)
}

// FieldIndex returns the memory-layout index of the named field.
func (d *TypeDecl) FieldIndex(name string) (int, bool) {
	for i, f := range d.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Deinitializer returns the type's destructor, if declared.
func (d *TypeDecl) Deinitializer() *DeinitDecl {
	for _, m := range d.Methods {
		if dd, ok := m.(*DeinitDecl); ok {
			return dd
		}
	}
	return nil
}

// Type returns the interned Type naming this declaration, with the given
// mutability.
func (d *TypeDecl) Type(in *types.Interner, mut types.Mutability) types.Type {
	return in.GetBasicDecl(d.Name, d.GenericArgs, d, mut, d.Loc)
}

func (d *TypeDecl) Instantiate(in *types.Interner, args map[string]types.Type, ordered []types.Type) Decl {
	clone := NewTypeDecl(d.Tag, d.Name, d.Loc, d.ModuleName)
	clone.AccessLevel = d.AccessLevel
	clone.GenericArgs = ordered
	for k, v := range d.Conforms {
		clone.Conforms[k] = v
	}
	for _, f := range d.Fields {
		clone.AddField(f.Instantiate(in, args, nil).(*FieldDecl))
	}
	// Methods are cloned against the already-instantiated clone so their
	// receiver points at the new type (spec.md §4.2: "Method
	// instantiation").
	for _, m := range d.Methods {
		switch m := m.(type) {
		case *InitDecl:
			instMethod := m.InstantiateForReceiver(in, args, clone)
			clone.AddMethod(&InitDecl{MethodDecl: *instMethod})
		case *DeinitDecl:
			instMethod := m.InstantiateForReceiver(in, args, clone)
			clone.AddMethod(&DeinitDecl{MethodDecl: *instMethod})
		case *MethodDecl:
			clone.AddMethod(m.InstantiateForReceiver(in, args, clone))
		}
	}
	return clone
}

// TypeTemplate owns a generic TypeDecl body, memoizing instantiations the
// same way FunctionTemplate does (spec.md §4.2).
type TypeTemplate struct {
	Node
	AccessLevel   AccessLevel
	GenericParams []*GenericParamDecl
	Decl          *TypeDecl
	instances     map[string]*TypeDecl
}

func NewTypeTemplate(params []*GenericParamDecl, decl *TypeDecl, loc token.Position) *TypeTemplate {
	return &TypeTemplate{Node: Node{Loc: loc}, GenericParams: params, Decl: decl, instances: make(map[string]*TypeDecl)}
}

func (d *TypeTemplate) Kind() DeclKind      { return KindTypeTemplate }
func (d *TypeTemplate) Access() AccessLevel { return d.AccessLevel }

func (d *TypeTemplate) Instantiate(in *types.Interner, genericArgs map[string]types.Type, ordered []types.Type) Decl {
	key := instKey(ordered)
	if existing, ok := d.instances[key]; ok {
		return existing
	}
	clone := d.Decl.Instantiate(in, genericArgs, ordered).(*TypeDecl)
	d.instances[key] = clone
	return clone
}

// EnumCaseDecl is one case of an enum, optionally carrying an associated
// value type (sum-type payload).
type EnumCaseDecl struct {
	Node
	Name           string
	AssociatedType types.Type // invalid Type if the case has no payload
	Tag            int
	Parent         *EnumDecl
}

func (d *EnumCaseDecl) Kind() DeclKind      { return KindEnumCaseDecl }
func (d *EnumCaseDecl) Access() AccessLevel { return Public }
func (d *EnumCaseDecl) Instantiate(in *types.Interner, args map[string]types.Type, ordered []types.Type) Decl {
	c := &EnumCaseDecl{Node: d.Node, Name: d.Name, Tag: d.Tag}
	if d.AssociatedType.IsValid() {
		c.AssociatedType = in.Resolve(d.AssociatedType, args)
	}
	return c
}

// EnumDecl declares an enum with associated values, per spec.md §1
// ("enums with associated values").
type EnumDecl struct {
	Node
	AccessLevel AccessLevel
	Name        string
	Cases       []*EnumCaseDecl
	ModuleName  string
}

func NewEnumDecl(name string, loc token.Position, moduleName string) *EnumDecl {
	return &EnumDecl{Node: Node{Loc: loc}, Name: name, ModuleName: moduleName}
}

func (d *EnumDecl) Kind() DeclKind       { return KindEnumDecl }
func (d *EnumDecl) Access() AccessLevel  { return d.AccessLevel }
func (d *EnumDecl) IsEnumDecl() bool     { return true }
func (d *EnumDecl) PassByValue() bool    { return true }
func (d *EnumDecl) TypeDeclName() string { return d.Name }
func (d *EnumDecl) ConformsTo(string) bool { return false }

func (d *EnumDecl) AddCase(name string, associated types.Type, loc token.Position) *EnumCaseDecl {
	c := &EnumCaseDecl{Node: Node{Loc: loc}, Name: name, AssociatedType: associated, Tag: len(d.Cases), Parent: d}
	d.Cases = append(d.Cases, c)
	return c
}

func (d *EnumDecl) Instantiate(in *types.Interner, args map[string]types.Type, ordered []types.Type) Decl {
	clone := NewEnumDecl(d.Name, d.Loc, d.ModuleName)
	clone.AccessLevel = d.AccessLevel
	for _, c := range d.Cases {
		clone.Cases = append(clone.Cases, c.Instantiate(in, args, nil).(*EnumCaseDecl))
	}
	return clone
}

// Type returns the interned Type naming this enum.
func (d *EnumDecl) Type(in *types.Interner, mut types.Mutability) types.Type {
	return in.GetBasicDecl(d.Name, nil, d, mut, d.Loc)
}

// VarDecl is a local or global variable; tracks the move bit (spec.md
// §3/§4.2).
type VarDecl struct {
	Node
	Movable
	AccessLevel AccessLevel
	Name        string
	Type        types.Type
	Initializer Expr // nil if initialized to `undefined`
	IsGlobal    bool
	ModuleName  string
}

func (d *VarDecl) Kind() DeclKind      { return KindVarDecl }
func (d *VarDecl) Access() AccessLevel { return d.AccessLevel }
func (d *VarDecl) Instantiate(in *types.Interner, args map[string]types.Type, ordered []types.Type) Decl {
	clone := &VarDecl{Node: d.Node, AccessLevel: d.AccessLevel, Name: d.Name, Type: in.Resolve(d.Type, args), IsGlobal: d.IsGlobal, ModuleName: d.ModuleName}
	if d.Initializer != nil {
		clone.Initializer = instantiateExpr(d.Initializer, in, args)
	}
	return clone
}

// ImportDecl names a module to import, per spec.md §3/§4.3.
type ImportDecl struct {
	Node
	Target     string
	ModuleName string
}

func (d *ImportDecl) Kind() DeclKind      { return KindImportDecl }
func (d *ImportDecl) Access() AccessLevel { return Public }
func (d *ImportDecl) Instantiate(in *types.Interner, args map[string]types.Type, ordered []types.Type) Decl {
	return &ImportDecl{Node: d.Node, Target: d.Target, ModuleName: d.ModuleName}
}

// File is one parsed source file: an ordered list of top-level
// declarations, per spec.md §6's AST handshake.
type File struct {
	Path  string
	Decls []Decl
}
