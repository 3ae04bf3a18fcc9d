package backend

import (
	"fmt"

	llvmir "github.com/llir/llvm/ir"
	llconstant "github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	llvalue "github.com/llir/llvm/ir/value"

	"github.com/cxlang/cxc/ir"
)

// funcGen translates one ir.Function's body. It pre-creates every block
// and phi stub before filling any instruction, so a branch or phi that
// targets a block appearing later in fn.Blocks (a loop back edge)
// resolves on first use rather than requiring a second translation
// pass over the whole function.
type funcGen struct {
	t    *translator
	fn   *ir.Function
	llFn *llvmir.Func

	blocks map[*ir.Block]*llvmir.Block
	values map[ir.Value]llvalue.Value

	// pendingPhis records each original PhiInst alongside the LLVM phi
	// stub standing in for it, so their Incoming pairs can be wired once
	// every block's instructions (and therefore every possible incoming
	// value) has been translated.
	pendingPhis []pendingPhi

	cur *llvmir.Block
}

type pendingPhi struct {
	orig  *ir.PhiInst
	stub  *llvmir.InstPhi
}

func (t *translator) defineFunc(fn *ir.Function) {
	llFn := t.funcCache[fn]
	fg := &funcGen{
		t:      t,
		fn:     fn,
		llFn:   llFn,
		blocks: make(map[*ir.Block]*llvmir.Block, len(fn.Blocks)),
		values: make(map[ir.Value]llvalue.Value),
	}

	for i, p := range fn.Params {
		fg.values[p] = llFn.Params[i]
	}
	for _, b := range fn.Blocks {
		fg.blocks[b] = llFn.NewBlock(b.Name())
	}

	// Pre-create every phi stub (type only, no incoming pairs yet) so a
	// block's instructions can reference a phi defined in a block that
	// comes later in fn.Blocks.
	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			if phi, ok := inst.(*ir.PhiInst); ok {
				stub := fg.blocks[b].NewPhi()
				fg.values[phi] = stub
				fg.pendingPhis = append(fg.pendingPhis, pendingPhi{orig: phi, stub: stub})
			}
		}
	}

	for _, b := range fn.Blocks {
		fg.fillBlock(b)
	}

	// Now that every instruction in every block has a translated value,
	// wire each phi's incoming pairs.
	for _, pp := range fg.pendingPhis {
		for _, inc := range pp.orig.Incoming {
			pred, ok := fg.blocks[inc.Pred]
			if !ok {
				t.errs = append(t.errs, fmt.Errorf("backend: function %s: phi incoming from unknown predecessor block", fn.MangledName))
				continue
			}
			pp.stub.Incs = append(pp.stub.Incs, llvmir.NewIncoming(fg.resolveValue(inc.Value), pred))
		}
	}
}

func (fg *funcGen) fillBlock(b *ir.Block) {
	fg.cur = fg.blocks[b]
	for _, inst := range b.Insts {
		if _, ok := inst.(*ir.PhiInst); ok {
			// Already stubbed above; its incoming pairs are wired after
			// every block has been filled.
			continue
		}
		fg.translateInst(inst)
	}
}

// resolveValue returns v's LLVM translation, resolving per-function
// values (params, instructions, phi stubs) before falling back to the
// translator's module-wide constant/global/function resolution.
func (fg *funcGen) resolveValue(v ir.Value) llvalue.Value {
	if v == nil {
		return nil
	}
	if cached, ok := fg.values[v]; ok {
		return cached
	}
	return fg.t.resolveConstant(v)
}

func (fg *funcGen) translateInst(inst ir.Value) {
	var result llvalue.Value
	switch v := inst.(type) {
	case *ir.AllocaInst:
		result = fg.cur.NewAlloca(fg.t.llType(v.AllocatedType))
	case *ir.ReturnInst:
		if v.Value == nil {
			fg.cur.NewRet(nil)
		} else {
			fg.cur.NewRet(fg.resolveValue(v.Value))
		}
		return
	case *ir.BranchInst:
		fg.cur.NewBr(fg.blocks[v.Destination])
		return
	case *ir.CondBranchInst:
		fg.cur.NewCondBr(fg.resolveValue(v.Condition), fg.blocks[v.TrueBlock], fg.blocks[v.FalseBlock])
		return
	case *ir.SwitchInst:
		cases := make([]*llvmir.Case, len(v.Cases))
		for i, c := range v.Cases {
			cc, ok := fg.resolveValue(c.Value).(llconstant.Constant)
			if !ok {
				fg.t.errs = append(fg.t.errs, fmt.Errorf("backend: switch case value is not a constant"))
				continue
			}
			cases[i] = llvmir.NewCase(cc, fg.blocks[c.Block])
		}
		fg.cur.NewSwitch(fg.resolveValue(v.Condition), fg.blocks[v.DefaultBlock], cases...)
		return
	case *ir.LoadInst:
		result = fg.cur.NewLoad(fg.t.llType(v.Type()), fg.resolveValue(v.Pointer))
	case *ir.StoreInst:
		fg.cur.NewStore(fg.resolveValue(v.Value), fg.resolveValue(v.Pointer))
		return
	case *ir.InsertInst:
		result = fg.cur.NewInsertValue(fg.resolveValue(v.Aggregate), fg.resolveValue(v.Value), uint64(v.Index))
	case *ir.ExtractInst:
		result = fg.cur.NewExtractValue(fg.resolveValue(v.Aggregate), uint64(v.Index))
	case *ir.CallInst:
		args := make([]llvalue.Value, len(v.Args))
		for i, a := range v.Args {
			args[i] = fg.resolveValue(a)
		}
		result = fg.cur.NewCall(fg.resolveValue(v.Callee), args...)
	case *ir.BinaryInst:
		result = fg.translateBinary(v)
	case *ir.UnaryInst:
		result = fg.translateUnary(v)
	case *ir.GEPInst:
		result = fg.translateGEP(v)
	case *ir.CastInst:
		result = fg.translateCast(v)
	case *ir.UnreachableInst:
		fg.cur.NewUnreachable()
		return
	case *ir.SizeofInst:
		it, ok := fg.t.llType(v.Type()).(*lltypes.IntType)
		if !ok {
			it = lltypes.I64
		}
		result = llconstant.NewInt(it, int64(byteSizeOf(v.SizeofType)))
	default:
		fg.t.errs = append(fg.t.errs, fmt.Errorf("backend: unhandled instruction %T in function %s", inst, fg.fn.MangledName))
		return
	}
	fg.values[inst] = result
}

func (fg *funcGen) translateGEP(g *ir.GEPInst) llvalue.Value {
	ptrType, ok := g.Pointer.Type().(*ir.Pointer)
	if !ok {
		fg.t.errs = append(fg.t.errs, fmt.Errorf("backend: GEP base is not a pointer type in function %s", fg.fn.MangledName))
		return llconstant.NewUndef(fg.t.llType(g.Type()))
	}
	elemType := fg.t.llType(ptrType.Pointee)
	indices := make([]llvalue.Value, len(g.Indexes))
	for i, idx := range g.Indexes {
		indices[i] = fg.resolveValue(idx)
	}
	return fg.cur.NewGetElementPtr(elemType, fg.resolveValue(g.Pointer), indices...)
}

func (fg *funcGen) translateBinary(b *ir.BinaryInst) llvalue.Value {
	lhs := fg.resolveValue(b.Left)
	rhs := fg.resolveValue(b.Right)
	isFloat := isFloatType(b.Left.Type()) || isFloatType(b.Right.Type())
	isUnsigned := isUnsignedType(b.Left.Type())

	switch b.Op {
	case ir.OpAdd:
		if isFloat {
			return fg.cur.NewFAdd(lhs, rhs)
		}
		return fg.cur.NewAdd(lhs, rhs)
	case ir.OpSub:
		if isFloat {
			return fg.cur.NewFSub(lhs, rhs)
		}
		return fg.cur.NewSub(lhs, rhs)
	case ir.OpMul:
		if isFloat {
			return fg.cur.NewFMul(lhs, rhs)
		}
		return fg.cur.NewMul(lhs, rhs)
	case ir.OpDiv:
		switch {
		case isFloat:
			return fg.cur.NewFDiv(lhs, rhs)
		case isUnsigned:
			return fg.cur.NewUDiv(lhs, rhs)
		default:
			return fg.cur.NewSDiv(lhs, rhs)
		}
	case ir.OpRem:
		switch {
		case isFloat:
			return fg.cur.NewFRem(lhs, rhs)
		case isUnsigned:
			return fg.cur.NewURem(lhs, rhs)
		default:
			return fg.cur.NewSRem(lhs, rhs)
		}
	case ir.OpAnd:
		return fg.cur.NewAnd(lhs, rhs)
	case ir.OpOr:
		return fg.cur.NewOr(lhs, rhs)
	case ir.OpXor:
		return fg.cur.NewXor(lhs, rhs)
	case ir.OpShl:
		return fg.cur.NewShl(lhs, rhs)
	case ir.OpShr:
		if isUnsigned {
			return fg.cur.NewLShr(lhs, rhs)
		}
		return fg.cur.NewAShr(lhs, rhs)
	case ir.OpEq:
		if isFloat {
			return fg.cur.NewFCmp(enum.FPredOEQ, lhs, rhs)
		}
		return fg.cur.NewICmp(enum.IPredEQ, lhs, rhs)
	case ir.OpNe:
		if isFloat {
			return fg.cur.NewFCmp(enum.FPredONE, lhs, rhs)
		}
		return fg.cur.NewICmp(enum.IPredNE, lhs, rhs)
	case ir.OpLt:
		switch {
		case isFloat:
			return fg.cur.NewFCmp(enum.FPredOLT, lhs, rhs)
		case isUnsigned:
			return fg.cur.NewICmp(enum.IPredULT, lhs, rhs)
		default:
			return fg.cur.NewICmp(enum.IPredSLT, lhs, rhs)
		}
	case ir.OpLe:
		switch {
		case isFloat:
			return fg.cur.NewFCmp(enum.FPredOLE, lhs, rhs)
		case isUnsigned:
			return fg.cur.NewICmp(enum.IPredULE, lhs, rhs)
		default:
			return fg.cur.NewICmp(enum.IPredSLE, lhs, rhs)
		}
	case ir.OpGt:
		switch {
		case isFloat:
			return fg.cur.NewFCmp(enum.FPredOGT, lhs, rhs)
		case isUnsigned:
			return fg.cur.NewICmp(enum.IPredUGT, lhs, rhs)
		default:
			return fg.cur.NewICmp(enum.IPredSGT, lhs, rhs)
		}
	case ir.OpGe:
		switch {
		case isFloat:
			return fg.cur.NewFCmp(enum.FPredOGE, lhs, rhs)
		case isUnsigned:
			return fg.cur.NewICmp(enum.IPredUGE, lhs, rhs)
		default:
			return fg.cur.NewICmp(enum.IPredSGE, lhs, rhs)
		}
	case ir.OpLogicalAnd:
		return fg.cur.NewAnd(lhs, rhs)
	case ir.OpLogicalOr:
		return fg.cur.NewOr(lhs, rhs)
	}
	fg.t.errs = append(fg.t.errs, fmt.Errorf("backend: unhandled binary op %d in function %s", b.Op, fg.fn.MangledName))
	return lhs
}

func (fg *funcGen) translateUnary(u *ir.UnaryInst) llvalue.Value {
	operand := fg.resolveValue(u.Operand)
	switch u.Op {
	case ir.OpNeg:
		if isFloatType(u.Operand.Type()) {
			return fg.cur.NewFNeg(operand)
		}
		it, ok := fg.t.llType(u.Operand.Type()).(*lltypes.IntType)
		if !ok {
			it = lltypes.I64
		}
		return fg.cur.NewSub(llconstant.NewInt(it, 0), operand)
	case ir.OpNot:
		return fg.cur.NewXor(operand, llconstant.NewBool(true))
	case ir.OpComplement:
		it, ok := fg.t.llType(u.Operand.Type()).(*lltypes.IntType)
		if !ok {
			it = lltypes.I64
		}
		return fg.cur.NewXor(operand, llconstant.NewInt(it, -1))
	}
	fg.t.errs = append(fg.t.errs, fmt.Errorf("backend: unhandled unary op %d in function %s", u.Op, fg.fn.MangledName))
	return operand
}

func (fg *funcGen) translateCast(c *ir.CastInst) llvalue.Value {
	v := fg.resolveValue(c.Value)
	from, to := c.Value.Type(), c.Type()
	llTo := fg.t.llType(to)

	switch {
	case isIntType(from) && isIntType(to):
		fromBits, toBits := byteSizeOf(from)*8, byteSizeOf(to)*8
		switch {
		case toBits < fromBits:
			return fg.cur.NewTrunc(v, llTo)
		case toBits > fromBits:
			if isUnsignedType(from) {
				return fg.cur.NewZExt(v, llTo)
			}
			return fg.cur.NewSExt(v, llTo)
		default:
			return v
		}
	case isFloatType(from) && isFloatType(to):
		if byteSizeOf(to) > byteSizeOf(from) {
			return fg.cur.NewFPExt(v, llTo)
		}
		if byteSizeOf(to) < byteSizeOf(from) {
			return fg.cur.NewFPTrunc(v, llTo)
		}
		return v
	case isIntType(from) && isFloatType(to):
		if isUnsignedType(from) {
			return fg.cur.NewUIToFP(v, llTo)
		}
		return fg.cur.NewSIToFP(v, llTo)
	case isFloatType(from) && isIntType(to):
		if isUnsignedType(to) {
			return fg.cur.NewFPToUI(v, llTo)
		}
		return fg.cur.NewFPToSI(v, llTo)
	case isPointerType(from) && isPointerType(to):
		return fg.cur.NewBitCast(v, llTo)
	case isPointerType(from) && isIntType(to):
		return fg.cur.NewPtrToInt(v, llTo)
	case isIntType(from) && isPointerType(to):
		return fg.cur.NewIntToPtr(v, llTo)
	default:
		return fg.cur.NewBitCast(v, llTo)
	}
}

func isIntType(t ir.Type) bool {
	b, ok := t.(*ir.Basic)
	return ok && b.IsInteger()
}

func isFloatType(t ir.Type) bool {
	b, ok := t.(*ir.Basic)
	return ok && b.IsFloatingPoint()
}

func isUnsignedType(t ir.Type) bool {
	b, ok := t.(*ir.Basic)
	return ok && b.IsUnsignedInteger()
}

func isPointerType(t ir.Type) bool {
	_, ok := t.(*ir.Pointer)
	return ok
}
