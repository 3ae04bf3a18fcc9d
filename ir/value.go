package ir

import "github.com/cxlang/cxc/token"

// ValueKind tags every IR node that can be used as an operand, per
// original_source's ValueKind enum.
type ValueKind int

const (
	AllocaInstKind ValueKind = iota
	ReturnInstKind
	BranchInstKind
	CondBranchInstKind
	PhiInstKind
	SwitchInstKind
	LoadInstKind
	StoreInstKind
	InsertInstKind
	ExtractInstKind
	CallInstKind
	BinaryInstKind
	UnaryInstKind
	GEPInstKind
	CastInstKind
	UnreachableInstKind
	SizeofInstKind
	BlockKind
	FunctionKind
	ParameterKind
	GlobalVariableKind
	ConstantStringKind
	ConstantIntKind
	ConstantFPKind
	ConstantBoolKind
	ConstantNullKind
	UndefinedKind
)

// Value is the common interface every IR node usable as an instruction
// operand satisfies: instructions, constants, globals, params, blocks.
type Value interface {
	ValueKind() ValueKind
	Type() Type
	Name() string
}

// IsTerminator reports whether v ends a basic block (spec.md §4.5:
// "every terminator ends a block").
func IsTerminator(v Value) bool {
	switch v.ValueKind() {
	case ReturnInstKind, BranchInstKind, CondBranchInstKind, SwitchInstKind, UnreachableInstKind:
		return true
	}
	return false
}

// base is the shared header for every concrete Value implementation,
// analogous to original_source's Value base struct.
type base struct {
	typ  Type
	name string
}

func (b *base) Type() Type   { return b.typ }
func (b *base) Name() string { return b.name }

// BinaryOp enumerates the IR's binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLogicalAnd
	OpLogicalOr
)

// UnaryOp enumerates the IR's unary operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
	OpComplement
)

// AllocaInst allocates stack storage for a value of AllocatedType.
type AllocaInst struct {
	base
	AllocatedType Type
}

func NewAlloca(name string, allocatedType Type) *AllocaInst {
	return &AllocaInst{base: base{typ: &Pointer{Pointee: allocatedType}, name: name}, AllocatedType: allocatedType}
}
func (i *AllocaInst) ValueKind() ValueKind { return AllocaInstKind }

// ReturnInst returns Value (nil for a void return).
type ReturnInst struct {
	base
	Value Value
}

func NewReturn(value Value) *ReturnInst { return &ReturnInst{base: base{typ: Void}, Value: value} }
func (i *ReturnInst) ValueKind() ValueKind { return ReturnInstKind }

// BranchInst is an unconditional jump.
type BranchInst struct {
	base
	Destination *Block
}

func NewBranch(dst *Block) *BranchInst { return &BranchInst{base: base{typ: Void}, Destination: dst} }
func (i *BranchInst) ValueKind() ValueKind { return BranchInstKind }

// CondBranchInst is a conditional jump.
type CondBranchInst struct {
	base
	Condition Value
	TrueBlock *Block
	FalseBlock *Block
}

func NewCondBranch(cond Value, t, f *Block) *CondBranchInst {
	return &CondBranchInst{base: base{typ: Void}, Condition: cond, TrueBlock: t, FalseBlock: f}
}
func (i *CondBranchInst) ValueKind() ValueKind { return CondBranchInstKind }

// PhiIncoming pairs an incoming value with the predecessor block it
// arrives from.
type PhiIncoming struct {
	Value Value
	Pred  *Block
}

// PhiInst stands in for a block parameter's incoming-value set (spec.md
// §4.5/§4.7). The lowerer fills Incoming through AddIncoming; the backend
// copies those pairs into the LLVM phi, and backend.Verify checks them
// against the predecessors it finds by scanning terminators.
type PhiInst struct {
	base
	Incoming []PhiIncoming
}

func NewPhi(name string, typ Type) *PhiInst { return &PhiInst{base: base{typ: typ, name: name}} }
func (i *PhiInst) ValueKind() ValueKind     { return PhiInstKind }
func (i *PhiInst) AddIncoming(v Value, pred *Block) {
	i.Incoming = append(i.Incoming, PhiIncoming{Value: v, Pred: pred})
}

// SwitchCase is one `value -> block` arm of a SwitchInst.
type SwitchCase struct {
	Value Value
	Block *Block
}

// SwitchInst dispatches on Condition's integer value, per spec.md §4.6's
// switch-on-sum-type lowering (Condition is the extracted tag).
type SwitchInst struct {
	base
	Condition    Value
	DefaultBlock *Block
	Cases        []SwitchCase
}

func NewSwitch(cond Value, def *Block) *SwitchInst {
	return &SwitchInst{base: base{typ: Void}, Condition: cond, DefaultBlock: def}
}
func (i *SwitchInst) ValueKind() ValueKind { return SwitchInstKind }
func (i *SwitchInst) AddCase(v Value, b *Block) {
	i.Cases = append(i.Cases, SwitchCase{Value: v, Block: b})
}

// LoadInst loads through Pointer.
type LoadInst struct {
	base
	Pointer Value
}

func NewLoad(name string, pointer Value, elemType Type) *LoadInst {
	return &LoadInst{base: base{typ: elemType, name: name}, Pointer: pointer}
}
func (i *LoadInst) ValueKind() ValueKind { return LoadInstKind }

// StoreInst stores Value through Pointer.
type StoreInst struct {
	base
	Value   Value
	Pointer Value
}

func NewStore(value, pointer Value) *StoreInst {
	return &StoreInst{base: base{typ: Void}, Value: value, Pointer: pointer}
}
func (i *StoreInst) ValueKind() ValueKind { return StoreInstKind }

// InsertInst produces a new aggregate with Value placed at Index.
type InsertInst struct {
	base
	Aggregate Value
	Value     Value
	Index     int
}

func NewInsert(name string, aggregate, value Value, index int) *InsertInst {
	return &InsertInst{base: base{typ: aggregate.Type(), name: name}, Aggregate: aggregate, Value: value, Index: index}
}
func (i *InsertInst) ValueKind() ValueKind { return InsertInstKind }

// ExtractInst reads element Index out of Aggregate.
type ExtractInst struct {
	base
	Aggregate Value
	Index     int
}

func NewExtract(name string, aggregate Value, index int, fieldType Type) *ExtractInst {
	return &ExtractInst{base: base{typ: fieldType, name: name}, Aggregate: aggregate, Index: index}
}
func (i *ExtractInst) ValueKind() ValueKind { return ExtractInstKind }

// CallInst calls Callee with Args.
type CallInst struct {
	base
	Callee Value
	Args   []Value
}

func NewCall(name string, callee Value, args []Value, resultType Type) *CallInst {
	return &CallInst{base: base{typ: resultType, name: name}, Callee: callee, Args: args}
}
func (i *CallInst) ValueKind() ValueKind { return CallInstKind }

// BinaryInst applies Op to Left and Right.
type BinaryInst struct {
	base
	Op    BinaryOp
	Left  Value
	Right Value
}

func NewBinary(name string, op BinaryOp, left, right Value, resultType Type) *BinaryInst {
	return &BinaryInst{base: base{typ: resultType, name: name}, Op: op, Left: left, Right: right}
}
func (i *BinaryInst) ValueKind() ValueKind { return BinaryInstKind }

// UnaryInst applies Op to Operand.
type UnaryInst struct {
	base
	Op      UnaryOp
	Operand Value
}

func NewUnary(name string, op UnaryOp, operand Value) *UnaryInst {
	return &UnaryInst{base: base{typ: operand.Type(), name: name}, Op: op, Operand: operand}
}
func (i *UnaryInst) ValueKind() ValueKind { return UnaryInstKind }

// GEPInst computes a pointer offset by Indexes, per spec.md §4.5 ("GEP
// pointee types are computed from the pointer's declared pointee").
type GEPInst struct {
	base
	Pointer Value
	Indexes []Value
}

func NewGEP(name string, pointer Value, indexes []Value, resultType Type) *GEPInst {
	return &GEPInst{base: base{typ: resultType, name: name}, Pointer: pointer, Indexes: indexes}
}
func (i *GEPInst) ValueKind() ValueKind { return GEPInstKind }

// CastInst converts Value to Type, per spec.md §4.7 ("casts are
// specialized by source and target kind").
type CastInst struct {
	base
	Value Value
}

func NewCast(name string, value Value, to Type) *CastInst {
	return &CastInst{base: base{typ: to, name: name}, Value: value}
}
func (i *CastInst) ValueKind() ValueKind { return CastInstKind }

// UnreachableInst marks a program point the compiler proved unreachable.
type UnreachableInst struct{ base }

func NewUnreachable() *UnreachableInst           { return &UnreachableInst{base: base{typ: Void}} }
func (i *UnreachableInst) ValueKind() ValueKind { return UnreachableInstKind }

// SizeofInst yields the byte size of Type.
type SizeofInst struct {
	base
	SizeofType Type
}

func NewSizeof(name string, t Type, resultType Type) *SizeofInst {
	return &SizeofInst{base: base{typ: resultType, name: name}, SizeofType: t}
}
func (i *SizeofInst) ValueKind() ValueKind { return SizeofInstKind }

// Parameter is a function formal parameter.
type Parameter struct {
	base
}

func NewParameter(name string, typ Type) *Parameter { return &Parameter{base: base{typ: typ, name: name}} }
func (p *Parameter) ValueKind() ValueKind           { return ParameterKind }

// GlobalVariable is a module-level variable with a constant initializer.
type GlobalVariable struct {
	base
	Value Value
}

func NewGlobalVariable(name string, typ Type, value Value) *GlobalVariable {
	return &GlobalVariable{base: base{typ: &Pointer{Pointee: typ}, name: name}, Value: value}
}
func (g *GlobalVariable) ValueKind() ValueKind { return GlobalVariableKind }

// Constant string/int/fp/bool/null/undefined literals.
type ConstantString struct {
	base
	Value string
}

func NewConstantString(value string) *ConstantString {
	return &ConstantString{base: base{typ: &Pointer{Pointee: Int8}}, Value: value}
}
func (c *ConstantString) ValueKind() ValueKind { return ConstantStringKind }

type ConstantInt struct {
	base
	Value int64
}

func NewConstantInt(typ Type, value int64) *ConstantInt {
	return &ConstantInt{base: base{typ: typ}, Value: value}
}
func (c *ConstantInt) ValueKind() ValueKind { return ConstantIntKind }

type ConstantFP struct {
	base
	Value float64
}

func NewConstantFP(typ Type, value float64) *ConstantFP {
	return &ConstantFP{base: base{typ: typ}, Value: value}
}
func (c *ConstantFP) ValueKind() ValueKind { return ConstantFPKind }

type ConstantBool struct {
	base
	Value bool
}

func NewConstantBool(value bool) *ConstantBool { return &ConstantBool{base: base{typ: Bool}, Value: value} }
func (c *ConstantBool) ValueKind() ValueKind   { return ConstantBoolKind }

type ConstantNull struct{ base }

func NewConstantNull(typ Type) *ConstantNull { return &ConstantNull{base: base{typ: typ}} }
func (c *ConstantNull) ValueKind() ValueKind { return ConstantNullKind }

type Undefined struct{ base }

func NewUndefined(typ Type) *Undefined      { return &Undefined{base: base{typ: typ}} }
func (u *Undefined) ValueKind() ValueKind   { return UndefinedKind }

// Block is a basic block: an ordered instruction list ending in exactly
// one terminator, per spec.md §4.5/§8 invariant 4.
type Block struct {
	base
	Parent *Function
	Insts  []Value // every element implements an instruction ValueKind
}

func NewBlock(name string, parent *Function) *Block {
	return &Block{base: base{typ: Void, name: name}, Parent: parent}
}
func (b *Block) ValueKind() ValueKind { return BlockKind }

// Append adds inst to the block. Panics if the block already has a
// terminator, guarding spec.md §8 invariant 4 at construction time.
func (b *Block) Append(inst Value) {
	if len(b.Insts) > 0 && IsTerminator(b.Insts[len(b.Insts)-1]) {
		panic("ir: appending after a terminator in block " + b.name)
	}
	b.Insts = append(b.Insts, inst)
}

// HasTerminator reports whether the block already ends in a terminator.
func (b *Block) HasTerminator() bool {
	return len(b.Insts) > 0 && IsTerminator(b.Insts[len(b.Insts)-1])
}

// Terminator returns the block's terminator instruction, or nil.
func (b *Block) Terminator() Value {
	if !b.HasTerminator() {
		return nil
	}
	return b.Insts[len(b.Insts)-1]
}

// Function is a compiled function: its signature, parameters, and body
// blocks.
type Function struct {
	base
	MangledName string
	ReturnType  Type
	Params      []*Parameter
	Blocks      []*Block
	IsExtern    bool
	IsVariadic  bool
	Location    token.Position
	nameCounter int

	// SRetParam is non-nil when this function returns via a hidden first
	// pointer parameter instead of ReturnType, per spec.md §4.6's SRet
	// calling convention for return types over 16 bytes. It is always
	// Params[0] when set.
	SRetParam *Parameter
}

func NewFunction(mangledName string, returnType Type, params []*Parameter) *Function {
	paramTypes := make([]Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type()
	}
	return &Function{
		base:        base{typ: &FuncType{ReturnType: returnType, ParamTypes: paramTypes}, name: mangledName},
		MangledName: mangledName,
		ReturnType:  returnType,
		Params:      params,
	}
}

// NewBlock allocates and appends a fresh block with a disambiguated name.
func (f *Function) NewBlock(name string) *Block {
	f.nameCounter++
	b := NewBlock(disambiguate(name, f.nameCounter), f)
	f.Blocks = append(f.Blocks, b)
	return b
}

func disambiguate(name string, counter int) string {
	if counter == 1 {
		return name
	}
	return name + "." + itoa(counter)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func (f *Function) ValueKind() ValueKind { return FunctionKind }

// Module is the top-level IR container produced by lowering one
// compiled module (spec.md §4.5's "IRModule").
type Module struct {
	Name            string
	Functions       []*Function
	GlobalVariables []*GlobalVariable
}

func NewModule(name string) *Module { return &Module{Name: name} }

func (m *Module) AddFunction(f *Function) { m.Functions = append(m.Functions, f) }
func (m *Module) AddGlobal(g *GlobalVariable) {
	m.GlobalVariables = append(m.GlobalVariables, g)
}
