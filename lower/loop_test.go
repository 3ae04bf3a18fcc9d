package lower_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/ir"
	"github.com/cxlang/cxc/lower"
	"github.com/cxlang/cxc/module"
	"github.com/cxlang/cxc/types"
)

// newRangeType returns an Iterator-conforming struct type with
// hasValue/increment/value methods, standing in for spec.md §8 scenario
// 6's "0..3" range — conformsToIterator only needs TypeDecl.Conforms to
// carry "Iterator", so desugarOneForIn never emits the `.iterator()` call.
func newRangeType(in *types.Interner, b types.Builtins) (types.Type, *ast.TypeDecl, *ast.MethodDecl, *ast.MethodDecl, *ast.MethodDecl) {
	decl := ast.NewTypeDecl(ast.Struct, "Range", loc(), "main")
	decl.Conforms["Iterator"] = true
	decl.AddField(&ast.FieldDecl{Name: "cur", Type: b.Int})
	decl.AddField(&ast.FieldDecl{Name: "end", Type: b.Int})

	hasValue := ast.NewMethodDecl(ast.FunctionProto{Name: "hasValue", ReturnType: b.Bool}, decl, loc())
	hasValue.Body = []ast.Stmt{&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: boolLit(true, b)}}
	decl.AddMethod(hasValue)

	increment := ast.NewMethodDecl(ast.FunctionProto{Name: "increment", ReturnType: b.Void}, decl, loc())
	increment.Body = []ast.Stmt{&ast.ReturnStmt{Node: ast.Node{Loc: loc()}}}
	decl.AddMethod(increment)

	value := ast.NewMethodDecl(ast.FunctionProto{Name: "value", ReturnType: b.Int}, decl, loc())
	value.Body = []ast.Stmt{&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: intLit(0, b.Int)}}
	decl.AddMethod(value)

	return decl.Type(in, types.Mutable), decl, hasValue, increment, value
}

func methodCall(name string, receiver *ast.ExprBox, decl *ast.MethodDecl, ret types.Type) *ast.CallExpr {
	c := &ast.CallExpr{Callee: name, Receiver: receiver, ResolvedCallee: decl}
	c.SetType(ret)
	return c
}

// TestForInLowersToSameShapeAsManualIteratorLoop exercises spec.md §8
// scenario 6: `for x in range { sum += 1; }` must lower (up to block
// naming) to the same instruction shape as the manually-unrolled iterator
// loop `for (var i = range; i.hasValue(); i.increment()) { var x = i.value(); sum += 1; }`.
func TestForInLowersToSameShapeAsManualIteratorLoop(t *testing.T) {
	in, b := newInterner()
	rangeType, _, hasValue, increment, value := newRangeType(in, b)

	buildForIn := func() *ir.Module {
		rangeParam := &ast.ParamDecl{Name: "r", Type: rangeType}
		sum := &ast.VarDecl{Name: "sum", Type: b.Int, Initializer: &ast.IntLiteralExpr{Value: 0}}
		sum.Initializer.SetType(b.Int)

		fn := ast.NewFunctionDecl(ast.FunctionProto{
			Name:       "sumRange",
			Params:     []*ast.ParamDecl{rangeParam},
			ReturnType: b.Int,
		}, loc(), "main")
		forIn := &ast.ForInStmt{
			Node:    ast.Node{Loc: loc()},
			VarName: "x",
			Range:   varExpr(rangeParam, "r", rangeType),
			Body: []ast.Stmt{
				&ast.AssignStmt{Node: ast.Node{Loc: loc()}, Op: ast.AssignAdd,
					Target: varExpr(sum, "sum", b.Int), Value: intLit(1, b.Int)},
			},
		}
		fn.Body = []ast.Stmt{
			&ast.VarStmt{Node: ast.Node{Loc: loc()}, Decl: sum},
			forIn,
			&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: varExpr(sum, "sum", b.Int)},
		}

		mod := module.NewModule("main")
		mod.Files = append(mod.Files, &ast.File{Path: "forin.cx", Decls: []ast.Decl{fn}})
		var failed []error
		irMod := lower.NewGenerator(in, b, "main", func(err error) { failed = append(failed, err) }).Lower(mod)
		require.Empty(t, failed, "%v", failed)
		return irMod
	}

	buildManual := func() *ir.Module {
		rangeParam := &ast.ParamDecl{Name: "r", Type: rangeType}
		sum := &ast.VarDecl{Name: "sum", Type: b.Int, Initializer: &ast.IntLiteralExpr{Value: 0}}
		sum.Initializer.SetType(b.Int)

		iter := &ast.VarDecl{Name: "i", Type: rangeType, Initializer: varExpr(rangeParam, "r", rangeType).X}
		iterRef := func() *ast.ExprBox { return varExpr(iter, "i", rangeType) }

		x := &ast.VarDecl{Name: "x", Type: b.Int, Initializer: methodCall("value", iterRef(), value, b.Int)}

		fn := ast.NewFunctionDecl(ast.FunctionProto{
			Name:       "sumRange",
			Params:     []*ast.ParamDecl{rangeParam},
			ReturnType: b.Int,
		}, loc(), "main")
		forStmt := &ast.ForStmt{
			Node:      ast.Node{Loc: loc()},
			Init:      &ast.VarStmt{Node: ast.Node{Loc: loc()}, Decl: iter},
			Condition: ast.Box(methodCall("hasValue", iterRef(), hasValue, b.Bool)),
			Increment: ast.Box(methodCall("increment", iterRef(), increment, b.Void)),
			Body: []ast.Stmt{
				&ast.VarStmt{Node: ast.Node{Loc: loc()}, Decl: x},
				&ast.AssignStmt{Node: ast.Node{Loc: loc()}, Op: ast.AssignAdd,
					Target: varExpr(sum, "sum", b.Int), Value: intLit(1, b.Int)},
			},
		}
		fn.Body = []ast.Stmt{
			&ast.VarStmt{Node: ast.Node{Loc: loc()}, Decl: sum},
			forStmt,
			&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: varExpr(sum, "sum", b.Int)},
		}

		mod := module.NewModule("main")
		mod.Files = append(mod.Files, &ast.File{Path: "manual.cx", Decls: []ast.Decl{fn}})
		var failed []error
		irMod := lower.NewGenerator(in, b, "main", func(err error) { failed = append(failed, err) }).Lower(mod)
		require.Empty(t, failed, "%v", failed)
		return irMod
	}

	forInMod := buildForIn()
	manualMod := buildManual()

	require.Len(t, forInMod.Functions, 1)
	require.Len(t, manualMod.Functions, 1)

	assert.Equal(t, blockShape(manualMod.Functions[0]), blockShape(forInMod.Functions[0]),
		"for-in desugaring should produce the same block/instruction shape as the manual iterator loop")
}

// blockShape reduces fn to the sequence, per block, of instruction kinds —
// the "up to block naming" comparison spec.md §8 scenario 6 calls for.
func blockShape(fn *ir.Function) [][]ir.ValueKind {
	shape := make([][]ir.ValueKind, len(fn.Blocks))
	for i, blk := range fn.Blocks {
		kinds := make([]ir.ValueKind, len(blk.Insts))
		for j, inst := range blk.Insts {
			kinds[j] = inst.ValueKind()
		}
		shape[i] = kinds
	}
	return shape
}
