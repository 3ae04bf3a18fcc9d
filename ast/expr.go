package ast

import (
	"github.com/cxlang/cxc/token"
	"github.com/cxlang/cxc/types"
)

// ExprKind tags the variant of an Expr node.
type ExprKind int

const (
	KindVarExpr ExprKind = iota
	KindIntLiteralExpr
	KindFloatLiteralExpr
	KindBoolLiteralExpr
	KindStringLiteralExpr
	KindCharLiteralExpr
	KindNullLiteralExpr
	KindUndefinedLiteralExpr
	KindArrayLiteralExpr
	KindTupleExpr
	KindPrefixExpr
	KindBinaryExpr
	KindCallExpr
	KindCastExpr
	KindSizeofExpr
	KindAddressofExpr
	KindMemberExpr
	KindSubscriptExpr
	KindUnwrapExpr
	KindLambdaExpr
	KindIfExpr
	KindImplicitCastExpr
)

// Expr is the common interface every expression node satisfies. After
// typechecking, Type() returns the expression's resolved type (spec.md
// §3: "Expressions carry their resolved type after typechecking").
type Expr interface {
	ExprKind() ExprKind
	Location() token.Position
	Type() types.Type
	SetType(types.Type)
}

// exprHeader is embedded by every concrete Expr, providing the cached
// resolved type slot the typechecker fills in.
type exprHeader struct {
	Node
	typ types.Type
}

func (e *exprHeader) Type() types.Type   { return e.typ }
func (e *exprHeader) SetType(t types.Type) { e.typ = t }

// ExprBox lets statements hold a pointer-to-interface so the typechecker
// can replace an expression in place with an implicit-cast wrapper, per
// spec.md §4.4 ("the typechecker may replace an expression in place with
// an implicit-cast wrapper"). Every field in the AST that holds a
// sub-expression is an *ExprBox rather than a bare Expr.
type ExprBox struct {
	X Expr
}

func Box(e Expr) *ExprBox { return &ExprBox{X: e} }

func (b *ExprBox) Wrap(kind ImplicitCastKind, to types.Type) {
	b.X = &ImplicitCastExpr{exprHeader: exprHeader{Node: Node{Loc: b.X.Location()}, typ: to}, Inner: b.X, CastKind: kind}
}

type VarExpr struct {
	exprHeader
	Name string
	// Decl is filled in by name resolution; left nil until then.
	Decl Decl
}

func (e *VarExpr) ExprKind() ExprKind { return KindVarExpr }

type IntLiteralExpr struct {
	exprHeader
	Value int64
	Text  string // original textual form, to support bases/underscores
}

func (e *IntLiteralExpr) ExprKind() ExprKind { return KindIntLiteralExpr }

type FloatLiteralExpr struct {
	exprHeader
	Value float64
}

func (e *FloatLiteralExpr) ExprKind() ExprKind { return KindFloatLiteralExpr }

type BoolLiteralExpr struct {
	exprHeader
	Value bool
}

func (e *BoolLiteralExpr) ExprKind() ExprKind { return KindBoolLiteralExpr }

type StringLiteralExpr struct {
	exprHeader
	Value string
}

func (e *StringLiteralExpr) ExprKind() ExprKind { return KindStringLiteralExpr }

type CharLiteralExpr struct {
	exprHeader
	Value rune
}

func (e *CharLiteralExpr) ExprKind() ExprKind { return KindCharLiteralExpr }

type NullLiteralExpr struct{ exprHeader }

func (e *NullLiteralExpr) ExprKind() ExprKind { return KindNullLiteralExpr }

type UndefinedLiteralExpr struct{ exprHeader }

func (e *UndefinedLiteralExpr) ExprKind() ExprKind { return KindUndefinedLiteralExpr }

type ArrayLiteralExpr struct {
	exprHeader
	Elements []*ExprBox
}

func (e *ArrayLiteralExpr) ExprKind() ExprKind { return KindArrayLiteralExpr }

type TupleExpr struct {
	exprHeader
	Names    []string
	Elements []*ExprBox
}

func (e *TupleExpr) ExprKind() ExprKind { return KindTupleExpr }

// PrefixOp enumerates unary prefix operators.
type PrefixOp int

const (
	OpPlus PrefixOp = iota
	OpMinus
	OpNot
	OpComplement
	OpIncrementPrefix
	OpDecrementPrefix
)

type PrefixExpr struct {
	exprHeader
	Op       PrefixOp
	Operand  *ExprBox
}

func (e *PrefixExpr) ExprKind() ExprKind { return KindPrefixExpr }

// BinaryOp enumerates binary operators, covering arithmetic, comparison,
// bitwise, and logical operations from spec.md §6.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor
	OpAndNot
	OpLAnd
	OpLOr
	OpEq
	OpNeq
	OpLt
	OpLeq
	OpGt
	OpGeq
)

type BinaryExpr struct {
	exprHeader
	Op          BinaryOp
	Left, Right *ExprBox
}

func (e *BinaryExpr) ExprKind() ExprKind { return KindBinaryExpr }

// Arg is a (possibly named) call argument.
type Arg struct {
	Name string // empty if positional
	Expr *ExprBox
}

type CallExpr struct {
	exprHeader
	Callee      string
	GenericArgs []types.Type // explicit `<T>` arguments, if any
	Receiver    *ExprBox     // non-nil for method calls (`recv.method(...)`)
	Args        []Arg
	// ResolvedCallee is filled in by overload resolution.
	ResolvedCallee Decl
}

func (e *CallExpr) ExprKind() ExprKind { return KindCallExpr }

type CastExpr struct {
	exprHeader
	Operand  *ExprBox
	TargetType types.Type
}

func (e *CastExpr) ExprKind() ExprKind { return KindCastExpr }

type SizeofExpr struct {
	exprHeader
	Operand types.Type
}

func (e *SizeofExpr) ExprKind() ExprKind { return KindSizeofExpr }

type AddressofExpr struct {
	exprHeader
	Operand *ExprBox
}

func (e *AddressofExpr) ExprKind() ExprKind { return KindAddressofExpr }

type MemberExpr struct {
	exprHeader
	Base  *ExprBox
	Field string
}

func (e *MemberExpr) ExprKind() ExprKind { return KindMemberExpr }

type SubscriptExpr struct {
	exprHeader
	Base  *ExprBox
	Index *ExprBox
}

func (e *SubscriptExpr) ExprKind() ExprKind { return KindSubscriptExpr }

// UnwrapExpr is the `expr!` postfix force-unwrap of an optional.
type UnwrapExpr struct {
	exprHeader
	Operand *ExprBox
}

func (e *UnwrapExpr) ExprKind() ExprKind { return KindUnwrapExpr }

type LambdaExpr struct {
	exprHeader
	Params []*ParamDecl
	Body   []Stmt
}

func (e *LambdaExpr) ExprKind() ExprKind { return KindLambdaExpr }

// IfExpr is the ternary-like `if (cond) a else b` expression form.
type IfExpr struct {
	exprHeader
	Condition *ExprBox
	Then, Else *ExprBox
}

func (e *IfExpr) ExprKind() ExprKind { return KindIfExpr }

// ImplicitCastKind enumerates the implicit conversions spec.md §4.4
// allows the typechecker to insert.
type ImplicitCastKind int

const (
	CastValueToOptional ImplicitCastKind = iota
	CastPointerToOptional
	CastIntWiden
	CastFloatWiden
	CastIntToFloat
	CastArrayToPointer
	CastCopyableCopy
)

// ImplicitCastExpr wraps an expression the typechecker rewrote in place
// (spec.md §3/§4.4), recording which conversion was applied so lowering
// and diagnostics can both explain it.
type ImplicitCastExpr struct {
	exprHeader
	Inner    Expr
	CastKind ImplicitCastKind
}

func (e *ImplicitCastExpr) ExprKind() ExprKind { return KindImplicitCastExpr }

func instantiateExpr(e Expr, in *types.Interner, args map[string]types.Type) Expr {
	if e == nil {
		return nil
	}
	instBox := func(b *ExprBox) *ExprBox {
		if b == nil {
			return nil
		}
		return Box(instantiateExpr(b.X, in, args))
	}
	switch e := e.(type) {
	case *VarExpr:
		return &VarExpr{exprHeader: exprHeader{Node: e.Node}, Name: e.Name}
	case *IntLiteralExpr:
		return &IntLiteralExpr{exprHeader: exprHeader{Node: e.Node}, Value: e.Value, Text: e.Text}
	case *FloatLiteralExpr:
		return &FloatLiteralExpr{exprHeader: exprHeader{Node: e.Node}, Value: e.Value}
	case *BoolLiteralExpr:
		return &BoolLiteralExpr{exprHeader: exprHeader{Node: e.Node}, Value: e.Value}
	case *StringLiteralExpr:
		return &StringLiteralExpr{exprHeader: exprHeader{Node: e.Node}, Value: e.Value}
	case *CharLiteralExpr:
		return &CharLiteralExpr{exprHeader: exprHeader{Node: e.Node}, Value: e.Value}
	case *NullLiteralExpr:
		return &NullLiteralExpr{exprHeader: exprHeader{Node: e.Node}}
	case *UndefinedLiteralExpr:
		return &UndefinedLiteralExpr{exprHeader: exprHeader{Node: e.Node}}
	case *ArrayLiteralExpr:
		clone := &ArrayLiteralExpr{exprHeader: exprHeader{Node: e.Node}}
		for _, el := range e.Elements {
			clone.Elements = append(clone.Elements, instBox(el))
		}
		return clone
	case *TupleExpr:
		clone := &TupleExpr{exprHeader: exprHeader{Node: e.Node}, Names: append([]string(nil), e.Names...)}
		for _, el := range e.Elements {
			clone.Elements = append(clone.Elements, instBox(el))
		}
		return clone
	case *PrefixExpr:
		return &PrefixExpr{exprHeader: exprHeader{Node: e.Node}, Op: e.Op, Operand: instBox(e.Operand)}
	case *BinaryExpr:
		return &BinaryExpr{exprHeader: exprHeader{Node: e.Node}, Op: e.Op, Left: instBox(e.Left), Right: instBox(e.Right)}
	case *CallExpr:
		clone := &CallExpr{exprHeader: exprHeader{Node: e.Node}, Callee: e.Callee, Receiver: instBox(e.Receiver)}
		for _, a := range e.GenericArgs {
			clone.GenericArgs = append(clone.GenericArgs, in.Resolve(a, args))
		}
		for _, a := range e.Args {
			clone.Args = append(clone.Args, Arg{Name: a.Name, Expr: instBox(a.Expr)})
		}
		return clone
	case *CastExpr:
		return &CastExpr{exprHeader: exprHeader{Node: e.Node}, Operand: instBox(e.Operand), TargetType: in.Resolve(e.TargetType, args)}
	case *SizeofExpr:
		return &SizeofExpr{exprHeader: exprHeader{Node: e.Node}, Operand: in.Resolve(e.Operand, args)}
	case *AddressofExpr:
		return &AddressofExpr{exprHeader: exprHeader{Node: e.Node}, Operand: instBox(e.Operand)}
	case *MemberExpr:
		return &MemberExpr{exprHeader: exprHeader{Node: e.Node}, Base: instBox(e.Base), Field: e.Field}
	case *SubscriptExpr:
		return &SubscriptExpr{exprHeader: exprHeader{Node: e.Node}, Base: instBox(e.Base), Index: instBox(e.Index)}
	case *UnwrapExpr:
		return &UnwrapExpr{exprHeader: exprHeader{Node: e.Node}, Operand: instBox(e.Operand)}
	case *LambdaExpr:
		clone := &LambdaExpr{exprHeader: exprHeader{Node: e.Node}}
		for _, p := range e.Params {
			clone.Params = append(clone.Params, p.Instantiate(in, args, nil).(*ParamDecl))
		}
		clone.Body = instantiateStmts(e.Body, in, args)
		return clone
	case *IfExpr:
		return &IfExpr{exprHeader: exprHeader{Node: e.Node}, Condition: instBox(e.Condition), Then: instBox(e.Then), Else: instBox(e.Else)}
	case *ImplicitCastExpr:
		// Implicit casts are re-derived by a fresh typecheck pass of the
		// instantiation; dropping them here is correct because
		// typechecking an instantiated template body always re-runs.
		return instantiateExpr(e.Inner, in, args)
	}
	panic("ast: unhandled expr kind in instantiateExpr")
}
