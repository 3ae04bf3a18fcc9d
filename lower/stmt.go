package lower

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/ir"
)

// lowerStmt dispatches one statement into fg.cur, grounded on
// original_source's irgen-stmt.cpp emitStmt. WhileStmt and ForInStmt never
// reach here: lower.CanonicalizeLoops/DesugarForIn rewrite both into
// ForStmt before statement lowering runs.
func (fg *funcGen) lowerStmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.ReturnStmt:
		fg.lowerReturnStmt(s)
	case *ast.VarStmt:
		fg.lowerVarStmt(s)
	case *ast.ExprStmt:
		fg.lowerExprForEffect(s.Value)
	case *ast.DeferStmt:
		fg.deferExpr(s.Value)
	case *ast.IfStmt:
		fg.lowerIfStmt(s)
	case *ast.SwitchStmt:
		fg.lowerSwitchStmt(s)
	case *ast.ForStmt:
		fg.lowerForStmt(s)
	case *ast.BreakStmt:
		fg.lowerBreakStmt()
	case *ast.ContinueStmt:
		fg.lowerContinueStmt()
	case *ast.CompoundStmt:
		fg.beginScope()
		fg.emitStmts(s.Body)
		fg.endScope()
	case *ast.AssignStmt:
		fg.lowerAssignStmt(s)
	case *ast.IncrementStmt:
		fg.incDecLValue(s.Target, 1, false)
	case *ast.DecrementStmt:
		fg.incDecLValue(s.Target, -1, false)
	case *ast.WhileStmt, *ast.ForInStmt:
		fg.gen.fail("lower: %T reached statement lowering undesugared", s)
	default:
		fg.gen.fail("lower: unhandled stmt kind %T", s)
	}
}

// emitStmts lowers stmts in order, stopping after the first terminating
// statement (return/break/continue) so no dead code follows it into the
// block, per original_source's emitStmts.
func (fg *funcGen) emitStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		fg.lowerStmt(s)
		if ast.IsTerminating(s) {
			return
		}
	}
}

// emitBlock lowers stmts into an already-created block b, branching to
// continuation unless b's own control flow already terminated it.
func (fg *funcGen) emitBlock(b *ir.Block, stmts []ast.Stmt, continuation *ir.Block) {
	fg.setBlock(b)
	fg.beginScope()
	fg.emitStmts(stmts)
	fg.endScope()
	if !fg.cur.HasTerminator() {
		fg.emit(ir.NewBranch(continuation))
	}
}

// lowerCondition evaluates box and produces a bool value suitable for a
// CondBranchInst: a pointer-typed condition lowers to a null comparison,
// a non-pointer-wrapped optional condition extracts its has-value
// discriminator, and every other condition is assumed already bool-typed.
func (fg *funcGen) lowerCondition(box *ast.ExprBox) ir.Value {
	val := fg.lowerExpr(box)
	t := box.X.Type()
	if t.IsValid() && t.IsPointerType() {
		irType := fg.gen.lowerType(t)
		return fg.emit(ir.NewBinary(fg.temp("nullcheck"), ir.OpNe, val, ir.NewConstantNull(irType), ir.Bool))
	}
	if t.IsValid() && t.IsOptionalType() {
		wrapped := t.WrappedType()
		if wrapped.IsPointerType() || wrapped.IsFunctionType() {
			irType := fg.gen.lowerType(t)
			return fg.emit(ir.NewBinary(fg.temp("nullcheck"), ir.OpNe, val, ir.NewConstantNull(irType), ir.Bool))
		}
		return fg.emit(ir.NewExtract(fg.temp("hasvalue"), val, 0, ir.Bool))
	}
	return val
}

// lowerReturnStmt evaluates the return value first, then discharges every
// active scope's defers/destructors, then emits the return instruction,
// per spec.md §4.6: "defer expressions and destructor calls execute after
// the return value is computed but before the return instruction, because
// the return value may reference storage those runs would reclaim." This
// deliberately does not follow original_source's irgen-stmt.cpp literal
// (TODO-flagged) ordering, which discharges before evaluating the value.
func (fg *funcGen) lowerReturnStmt(s *ast.ReturnStmt) {
	if s.Value == nil {
		fg.dischargeForReturn()
		fg.emit(ir.NewReturn(nil))
		return
	}

	val := fg.lowerExpr(s.Value)
	if fg.sretParam != nil {
		fg.emit(ir.NewStore(val, fg.sretParam))
		fg.dischargeForReturn()
		fg.emit(ir.NewReturn(nil))
		return
	}

	fg.dischargeForReturn()
	fg.emit(ir.NewReturn(val))
}

func (fg *funcGen) lowerVarStmt(s *ast.VarStmt) {
	alloca := fg.bindLocal(s.Decl, s.Decl.Type)
	if s.Decl.Initializer != nil {
		val := fg.lowerExprNode(s.Decl.Initializer)
		fg.emit(ir.NewStore(val, alloca))
	}
}

func (fg *funcGen) lowerIfStmt(s *ast.IfStmt) {
	cond := fg.lowerCondition(s.Condition)
	thenBlock := fg.fn.NewBlock("if.then")
	var elseBlock *ir.Block
	contBlock := fg.fn.NewBlock("if.cont")

	if len(s.Else) > 0 {
		elseBlock = fg.fn.NewBlock("if.else")
		fg.emit(ir.NewCondBranch(cond, thenBlock, elseBlock))
	} else {
		fg.emit(ir.NewCondBranch(cond, thenBlock, contBlock))
	}

	fg.emitBlock(thenBlock, s.Then, contBlock)
	if elseBlock != nil {
		fg.emitBlock(elseBlock, s.Else, contBlock)
	}
	fg.setBlock(contBlock)
}

// lowerForStmt lowers the canonical `for (init; cond; increment) body`
// shape every loop desugars into, pushing break/continue targets that
// record the scope depth active when the body began so that breaking or
// continuing out of nested scopes discharges all of them first.
func (fg *funcGen) lowerForStmt(s *ast.ForStmt) {
	fg.beginScope() // scope for Init, lives across the whole loop
	if s.Init != nil {
		fg.lowerStmt(s.Init)
	}

	condBlock := fg.fn.NewBlock("for.cond")
	bodyBlock := fg.fn.NewBlock("for.body")
	incBlock := fg.fn.NewBlock("for.inc")
	contBlock := fg.fn.NewBlock("for.cont")

	fg.emit(ir.NewBranch(condBlock))

	fg.setBlock(condBlock)
	if s.Condition != nil {
		cond := fg.lowerCondition(s.Condition)
		fg.emit(ir.NewCondBranch(cond, bodyBlock, contBlock))
	} else {
		fg.emit(ir.NewBranch(bodyBlock))
	}

	fg.breakTargets = append(fg.breakTargets, loopFrame{block: contBlock, scopeDepth: len(fg.scopes)})
	fg.continueTargets = append(fg.continueTargets, loopFrame{block: incBlock, scopeDepth: len(fg.scopes)})

	fg.setBlock(bodyBlock)
	fg.beginScope()
	fg.emitStmts(s.Body)
	fg.endScope()
	if !fg.cur.HasTerminator() {
		fg.emit(ir.NewBranch(incBlock))
	}

	fg.breakTargets = fg.breakTargets[:len(fg.breakTargets)-1]
	fg.continueTargets = fg.continueTargets[:len(fg.continueTargets)-1]

	fg.setBlock(incBlock)
	if s.Increment != nil {
		fg.lowerExprForEffect(s.Increment)
	}
	if !fg.cur.HasTerminator() {
		fg.emit(ir.NewBranch(condBlock))
	}

	fg.setBlock(contBlock)
	fg.endScope() // Init's scope
}

func (fg *funcGen) lowerBreakStmt() {
	top := fg.breakTargets[len(fg.breakTargets)-1]
	fg.dischargeUpTo(top.scopeDepth)
	fg.emit(ir.NewBranch(top.block))
}

func (fg *funcGen) lowerContinueStmt() {
	top := fg.continueTargets[len(fg.continueTargets)-1]
	fg.dischargeUpTo(top.scopeDepth)
	fg.emit(ir.NewBranch(top.block))
}

// lowerSwitchTag lowers the switch condition once, extracting the tag
// field out of an enum's `{tag, payload}` representation, or using the
// scalar value directly for a plain scalar switch. condVal is returned
// separately so bindSwitchAssociatedValue can extract a case's payload out
// of the same already-lowered aggregate without re-evaluating the switch
// condition expression.
func (fg *funcGen) lowerSwitchTag(box *ast.ExprBox, isEnum bool) (tag ir.Value, condVal ir.Value) {
	val := fg.lowerExpr(box)
	if isEnum {
		return fg.emit(ir.NewExtract(fg.temp("tag"), val, 0, ir.Int)), val
	}
	return val, val
}

// lowerConstCaseValue resolves a switch case's label: an enum case label
// lowers to that case's integer Tag, and every other scalar case label
// lowers like any other expression.
func (fg *funcGen) lowerConstCaseValue(box *ast.ExprBox, isEnum bool) ir.Value {
	if isEnum {
		if ve, ok := box.X.(*ast.VarExpr); ok {
			if ec, ok := ve.Decl.(*ast.EnumCaseDecl); ok {
				return ir.NewConstantInt(ir.Int, int64(ec.Tag))
			}
		}
	}
	return fg.lowerExpr(box)
}

// lowerSwitchStmt lowers a switch over a scalar or sum-typed condition,
// per spec.md §4.6. break targets the switch's own continuation, since a
// `break` inside a case body exits the switch, not an enclosing loop.
func (fg *funcGen) lowerSwitchStmt(s *ast.SwitchStmt) {
	condType := s.Condition.X.Type()
	isEnum := condType.IsValid() && condType.IsEnumType()
	tag, condVal := fg.lowerSwitchTag(s.Condition, isEnum)

	contBlock := fg.fn.NewBlock("switch.cont")
	defaultBlock := contBlock

	type arm struct {
		block *ir.Block
		c     ast.SwitchCase
	}
	var arms []arm
	for _, c := range s.Cases {
		var b *ir.Block
		if c.Value == nil {
			b = fg.fn.NewBlock("switch.default")
			defaultBlock = b
		} else {
			b = fg.fn.NewBlock("switch.case")
		}
		arms = append(arms, arm{block: b, c: c})
	}

	sw := ir.NewSwitch(tag, defaultBlock)
	for _, a := range arms {
		if a.c.Value == nil {
			continue
		}
		sw.AddCase(fg.lowerConstCaseValue(a.c.Value, isEnum), a.block)
	}
	fg.emit(sw)

	fg.breakTargets = append(fg.breakTargets, loopFrame{block: contBlock, scopeDepth: len(fg.scopes)})
	for _, a := range arms {
		fg.setBlock(a.block)
		fg.beginScope()
		if a.c.AssociatedVar != "" {
			fg.bindSwitchAssociatedValue(condVal, a.c)
		}
		fg.emitStmts(a.c.Body)
		fg.endScope()
		if !fg.cur.HasTerminator() {
			fg.emit(ir.NewBranch(contBlock))
		}
	}
	fg.breakTargets = fg.breakTargets[:len(fg.breakTargets)-1]

	fg.setBlock(contBlock)
}

// bindSwitchAssociatedValue binds `case .success(let v):`'s v to the
// matched case's associated payload, extracted out of the enum's union
// field. condVal is the already-lowered switch condition; reusing it here
// (rather than re-lowering the condition expression) is safe since
// lowerSwitchTag evaluates the condition exactly once per switch.
//
// SwitchCase carries no persistent *ast.VarDecl the case body's VarExpr
// references could already point at, unlike every other local — so this
// registers the binding in funcGen.namedLocals by name instead, and
// lowerVarExpr falls back to that table when a VarExpr's Decl doesn't
// resolve through fg.locals.
func (fg *funcGen) bindSwitchAssociatedValue(condVal ir.Value, c ast.SwitchCase) {
	payload := fg.emit(ir.NewExtract(fg.temp("payload"), condVal, 1, fg.gen.lowerType(c.AssociatedType)))
	alloca := ir.NewAlloca(fg.temp("local"), fg.gen.lowerType(c.AssociatedType))
	fg.emit(alloca)
	fg.emit(ir.NewStore(payload, alloca))
	fg.namedLocals[c.AssociatedVar] = &localBinding{alloca: alloca, typ: c.AssociatedType}
}

func (fg *funcGen) lowerAssignStmt(s *ast.AssignStmt) {
	addr := fg.lowerLValueAddr(s.Target)
	rhs := fg.lowerExpr(s.Value)
	if s.Op == ast.AssignPlain {
		fg.emit(ir.NewStore(rhs, addr))
		return
	}
	elemType := fg.gen.lowerType(s.Target.X.Type())
	old := fg.emit(ir.NewLoad(fg.temp("old"), addr, elemType))
	op, ok := compoundAssignOpTable[s.Op]
	if !ok {
		fg.gen.fail("lower: unhandled compound assign op %d", s.Op)
		return
	}
	next := fg.emit(ir.NewBinary(fg.temp("assign"), op, old, rhs, elemType))
	fg.emit(ir.NewStore(next, addr))
}

var compoundAssignOpTable = map[ast.AssignOp]ir.BinaryOp{
	ast.AssignAdd: ir.OpAdd,
	ast.AssignSub: ir.OpSub,
	ast.AssignMul: ir.OpMul,
	ast.AssignDiv: ir.OpDiv,
	ast.AssignMod: ir.OpRem,
	ast.AssignAnd: ir.OpAnd,
	ast.AssignOr:  ir.OpOr,
	ast.AssignXor: ir.OpXor,
	ast.AssignShl: ir.OpShl,
	ast.AssignShr: ir.OpShr,
}
