package jit

import (
	"fmt"

	"github.com/cxlang/cxc/ir"
)

// trapError marks an interpreter-side invariant violation — IR that
// frame.eval can't make sense of — as opposed to a fault in the
// interpreted program itself, which is reported as a plain error instead.
type trapError struct{ msg string }

func (e *trapError) Error() string { return e.msg }

// frame is one call's activation record: bound parameters plus the
// per-instruction result table an SSA value looks itself up in.
type frame struct {
	engine *Engine
	params map[*ir.Parameter]Value
	vals   map[ir.Value]Value
}

// eval resolves v to a runtime Value: a constant, a bound parameter, a
// global's storage address, or a previously-computed instruction result.
// Anything else means the interpreter was handed IR it doesn't recognize.
func (f *frame) eval(v ir.Value) Value {
	if cv, ok := constantValue(v); ok {
		return cv
	}
	switch vv := v.(type) {
	case *ir.Parameter:
		return f.params[vv]
	case *ir.GlobalVariable:
		return Value{Kind: PointerValue, Ptr: f.engine.globals[vv]}
	}
	if val, ok := f.vals[v]; ok {
		return val
	}
	panic(&trapError{msg: fmt.Sprintf("jit: no recorded value for %T", v)})
}

// constantValue reports the runtime Value a constant IR node denotes, or
// ok=false for anything that isn't a constant.
func constantValue(v ir.Value) (Value, bool) {
	switch c := v.(type) {
	case *ir.ConstantInt:
		return Value{Kind: IntValue, Int: c.Value}, true
	case *ir.ConstantFP:
		return Value{Kind: FPValue, FP: c.Value}, true
	case *ir.ConstantBool:
		return Value{Kind: BoolValue, Bool: c.Value}, true
	case *ir.ConstantString:
		return Value{Kind: StringValue, Str: c.Value}, true
	case *ir.ConstantNull:
		return Value{Kind: PointerValue}, true
	case *ir.Undefined:
		return zeroValue(c.Type()), true
	}
	return Value{}, false
}

// run interprets fn from its entry block until a ReturnInst is reached,
// dispatching one instruction at a time the same way
// backend.funcGen.translateInst does for llir/llvm emission, except it
// produces runtime Values instead of emitted instructions.
func (f *frame) run(fn *ir.Function) (Value, error) {
	if len(fn.Blocks) == 0 {
		return Value{Kind: VoidValue}, nil
	}
	block := fn.Blocks[0]
	var prev *ir.Block

blocks:
	for {
		for _, inst := range block.Insts {
			switch in := inst.(type) {
			case *ir.AllocaInst:
				f.vals[in] = Value{Kind: PointerValue, Ptr: &Cell{Value: zeroValue(in.AllocatedType)}}

			case *ir.StoreInst:
				ptr := f.eval(in.Pointer)
				if ptr.Ptr == nil {
					return Value{}, fmt.Errorf("jit: store through a nil pointer")
				}
				ptr.Ptr.Value = f.eval(in.Value)

			case *ir.LoadInst:
				ptr := f.eval(in.Pointer)
				if ptr.Ptr == nil {
					return Value{}, fmt.Errorf("jit: load through a nil pointer")
				}
				f.vals[in] = ptr.Ptr.Value

			case *ir.BinaryInst:
				res, err := evalBinary(in.Op, f.eval(in.Left), f.eval(in.Right))
				if err != nil {
					return Value{}, err
				}
				f.vals[in] = res

			case *ir.UnaryInst:
				f.vals[in] = evalUnary(in.Op, f.eval(in.Operand))

			case *ir.CastInst:
				f.vals[in] = evalCast(f.eval(in.Value), in.Type())

			case *ir.CallInst:
				callee, ok := in.Callee.(*ir.Function)
				if !ok {
					return Value{}, fmt.Errorf("jit: call target is not a function")
				}
				args := make([]Value, len(in.Args))
				for i, a := range in.Args {
					args[i] = f.eval(a)
				}
				res, err := f.engine.call(callee, args)
				if err != nil {
					return Value{}, err
				}
				f.vals[in] = res

			case *ir.InsertInst:
				agg := f.eval(in.Aggregate)
				next := append([]Value(nil), agg.Aggregate...)
				for len(next) <= in.Index {
					next = append(next, Value{Kind: VoidValue})
				}
				next[in.Index] = f.eval(in.Value)
				f.vals[in] = Value{Kind: AggregateValue, Aggregate: next}

			case *ir.ExtractInst:
				agg := f.eval(in.Aggregate)
				if in.Index >= len(agg.Aggregate) {
					return Value{}, fmt.Errorf("jit: extract index %d out of range", in.Index)
				}
				f.vals[in] = agg.Aggregate[in.Index]

			case *ir.GEPInst:
				// The interpreter has no flat address space to offset into;
				// field access goes through Extract/Insert on the
				// aggregate value itself, so a GEP just forwards the base
				// pointer unchanged.
				f.vals[in] = f.eval(in.Pointer)

			case *ir.SizeofInst:
				f.vals[in] = Value{Kind: IntValue, Int: int64(sizeOf(in.SizeofType))}

			case *ir.PhiInst:
				f.vals[in] = evalPhi(f, in, prev)

			case *ir.ReturnInst:
				if in.Value == nil {
					return Value{Kind: VoidValue}, nil
				}
				return f.eval(in.Value), nil

			case *ir.BranchInst:
				prev, block = block, in.Destination
				continue blocks

			case *ir.CondBranchInst:
				cond := f.eval(in.Condition)
				prev = block
				if truthy(cond) {
					block = in.TrueBlock
				} else {
					block = in.FalseBlock
				}
				continue blocks

			case *ir.SwitchInst:
				cond := f.eval(in.Condition)
				prev = block
				block = in.DefaultBlock
				for _, c := range in.Cases {
					if f.eval(c.Value).Int == cond.Int {
						block = c.Block
						break
					}
				}
				continue blocks

			case *ir.UnreachableInst:
				return Value{}, fmt.Errorf("jit: reached an unreachable instruction")

			default:
				return Value{}, fmt.Errorf("jit: unsupported instruction %T", inst)
			}
		}
		return Value{}, fmt.Errorf("jit: block %q falls through without a terminator", block.Name())
	}
}

func evalPhi(f *frame, phi *ir.PhiInst, pred *ir.Block) Value {
	for _, inc := range phi.Incoming {
		if inc.Pred == pred {
			return f.eval(inc.Value)
		}
	}
	return zeroValue(phi.Type())
}

func truthy(v Value) bool {
	switch v.Kind {
	case BoolValue:
		return v.Bool
	case IntValue:
		return v.Int != 0
	case FPValue:
		return v.FP != 0
	case PointerValue:
		return v.Ptr != nil
	default:
		return false
	}
}

func asFloat(v Value) float64 {
	switch v.Kind {
	case FPValue:
		return v.FP
	case IntValue:
		return float64(v.Int)
	case BoolValue:
		if v.Bool {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func asInt(v Value) int64 {
	switch v.Kind {
	case IntValue:
		return v.Int
	case FPValue:
		return int64(v.FP)
	case BoolValue:
		if v.Bool {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func evalBinary(op ir.BinaryOp, l, r Value) (Value, error) {
	if l.Kind == FPValue || r.Kind == FPValue {
		return evalFloatBinary(op, asFloat(l), asFloat(r))
	}
	if l.Kind == BoolValue && r.Kind == BoolValue {
		return evalBoolBinary(op, l.Bool, r.Bool)
	}
	return evalIntBinary(op, asInt(l), asInt(r))
}

func evalFloatBinary(op ir.BinaryOp, l, r float64) (Value, error) {
	switch op {
	case ir.OpAdd:
		return Value{Kind: FPValue, FP: l + r}, nil
	case ir.OpSub:
		return Value{Kind: FPValue, FP: l - r}, nil
	case ir.OpMul:
		return Value{Kind: FPValue, FP: l * r}, nil
	case ir.OpDiv:
		if r == 0 {
			return Value{}, fmt.Errorf("jit: floating-point division by zero")
		}
		return Value{Kind: FPValue, FP: l / r}, nil
	case ir.OpEq:
		return Value{Kind: BoolValue, Bool: l == r}, nil
	case ir.OpNe:
		return Value{Kind: BoolValue, Bool: l != r}, nil
	case ir.OpLt:
		return Value{Kind: BoolValue, Bool: l < r}, nil
	case ir.OpLe:
		return Value{Kind: BoolValue, Bool: l <= r}, nil
	case ir.OpGt:
		return Value{Kind: BoolValue, Bool: l > r}, nil
	case ir.OpGe:
		return Value{Kind: BoolValue, Bool: l >= r}, nil
	default:
		return Value{}, fmt.Errorf("jit: operator %d is not defined over floating-point operands", op)
	}
}

func evalBoolBinary(op ir.BinaryOp, l, r bool) (Value, error) {
	switch op {
	case ir.OpLogicalAnd, ir.OpAnd:
		return Value{Kind: BoolValue, Bool: l && r}, nil
	case ir.OpLogicalOr, ir.OpOr:
		return Value{Kind: BoolValue, Bool: l || r}, nil
	case ir.OpXor:
		return Value{Kind: BoolValue, Bool: l != r}, nil
	case ir.OpEq:
		return Value{Kind: BoolValue, Bool: l == r}, nil
	case ir.OpNe:
		return Value{Kind: BoolValue, Bool: l != r}, nil
	default:
		return Value{}, fmt.Errorf("jit: operator %d is not defined over boolean operands", op)
	}
}

func evalIntBinary(op ir.BinaryOp, l, r int64) (Value, error) {
	switch op {
	case ir.OpAdd:
		return Value{Kind: IntValue, Int: l + r}, nil
	case ir.OpSub:
		return Value{Kind: IntValue, Int: l - r}, nil
	case ir.OpMul:
		return Value{Kind: IntValue, Int: l * r}, nil
	case ir.OpDiv:
		if r == 0 {
			return Value{}, fmt.Errorf("jit: integer division by zero")
		}
		return Value{Kind: IntValue, Int: l / r}, nil
	case ir.OpRem:
		if r == 0 {
			return Value{}, fmt.Errorf("jit: integer division by zero")
		}
		return Value{Kind: IntValue, Int: l % r}, nil
	case ir.OpAnd:
		return Value{Kind: IntValue, Int: l & r}, nil
	case ir.OpOr:
		return Value{Kind: IntValue, Int: l | r}, nil
	case ir.OpXor:
		return Value{Kind: IntValue, Int: l ^ r}, nil
	case ir.OpShl:
		return Value{Kind: IntValue, Int: l << uint(r)}, nil
	case ir.OpShr:
		return Value{Kind: IntValue, Int: l >> uint(r)}, nil
	case ir.OpEq:
		return Value{Kind: BoolValue, Bool: l == r}, nil
	case ir.OpNe:
		return Value{Kind: BoolValue, Bool: l != r}, nil
	case ir.OpLt:
		return Value{Kind: BoolValue, Bool: l < r}, nil
	case ir.OpLe:
		return Value{Kind: BoolValue, Bool: l <= r}, nil
	case ir.OpGt:
		return Value{Kind: BoolValue, Bool: l > r}, nil
	case ir.OpGe:
		return Value{Kind: BoolValue, Bool: l >= r}, nil
	case ir.OpLogicalAnd:
		return Value{Kind: BoolValue, Bool: l != 0 && r != 0}, nil
	case ir.OpLogicalOr:
		return Value{Kind: BoolValue, Bool: l != 0 || r != 0}, nil
	default:
		return Value{}, fmt.Errorf("jit: unknown binary operator %d", op)
	}
}

func evalUnary(op ir.UnaryOp, v Value) Value {
	switch op {
	case ir.OpNeg:
		if v.Kind == FPValue {
			return Value{Kind: FPValue, FP: -v.FP}
		}
		return Value{Kind: IntValue, Int: -v.Int}
	case ir.OpNot:
		return Value{Kind: BoolValue, Bool: !truthy(v)}
	case ir.OpComplement:
		return Value{Kind: IntValue, Int: ^v.Int}
	default:
		return v
	}
}

func evalCast(v Value, to ir.Type) Value {
	basic, ok := to.(*ir.Basic)
	if !ok {
		return v
	}
	switch {
	case basic.IsVoid():
		return Value{Kind: VoidValue}
	case basic.IsBool():
		return Value{Kind: BoolValue, Bool: truthy(v)}
	case basic.IsFloatingPoint():
		return Value{Kind: FPValue, FP: asFloat(v)}
	default:
		return Value{Kind: IntValue, Int: asInt(v)}
	}
}

// sizeOf approximates a type's byte size the way backend.byteSizeOf does
// for llir/llvm emission, giving SizeofInst a value to report without
// requiring the interpreter to depend on the backend package.
func sizeOf(t ir.Type) int {
	switch typ := t.(type) {
	case *ir.Basic:
		return basicSize(typ.Name)
	case *ir.Pointer:
		return 8
	case *ir.Array:
		if typ.Size <= 0 {
			return 16 // pointer + length, for a runtime-sized array
		}
		return typ.Size * sizeOf(typ.ElementType)
	case *ir.Struct:
		total := 0
		for _, f := range typ.Fields {
			total += sizeOf(f)
		}
		return total
	case *ir.Union:
		max := 0
		for _, f := range typ.Fields {
			if s := sizeOf(f); s > max {
				max = s
			}
		}
		return max
	default:
		return 0
	}
}

func basicSize(name string) int {
	switch name {
	case "bool", "int8", "uint8", "char":
		return 1
	case "int16", "uint16":
		return 2
	case "int32", "uint32", "float32":
		return 4
	case "int", "int64", "uint", "uint64", "float", "float64":
		return 8
	default:
		return 0
	}
}
