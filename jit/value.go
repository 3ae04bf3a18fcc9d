// Package jit implements a small tree-walking interpreter over *ir.Function
// bodies, standing in for a real LLVM JIT (spec.md §6's "retrieve a named
// function ... as an opaque pointer suitable for JIT invocation"). Grounded
// structurally on backend.Translate's instruction dispatch
// (backend/funcgen.go's translateInst), but interpreting values instead of
// emitting llir/llvm IR.
package jit

import (
	"fmt"

	"github.com/cxlang/cxc/ir"
)

// Value is one interpreter-level runtime value: exactly one of the Kind
// tag's fields is meaningful.
type Value struct {
	Kind ValueKind
	Int  int64
	FP   float64
	Bool bool
	Str  string
	// Ptr holds an interpreter-owned address for Alloca/GEP/pointer
	// values; Aggregate holds a struct/union/array's field values.
	Ptr       *Cell
	Aggregate []Value
}

// ValueKind tags the variant of a Value.
type ValueKind int

const (
	IntValue ValueKind = iota
	FPValue
	BoolValue
	StringValue
	PointerValue
	AggregateValue
	VoidValue
)

// Cell is a unit of interpreter-owned storage, the runtime counterpart of
// an AllocaInst: Load/Store instructions read and write through it.
type Cell struct {
	Value Value
}

func (v Value) String() string {
	switch v.Kind {
	case IntValue:
		return fmt.Sprintf("%d", v.Int)
	case FPValue:
		return fmt.Sprintf("%g", v.FP)
	case BoolValue:
		return fmt.Sprintf("%t", v.Bool)
	case StringValue:
		return v.Str
	case PointerValue:
		if v.Ptr == nil {
			return "<nil>"
		}
		return "<pointer>"
	case AggregateValue:
		return fmt.Sprintf("%v", v.Aggregate)
	default:
		return "<void>"
	}
}

// zeroValue returns the interpreter's zero representation for an IR type,
// used for freshly-allocated Alloca storage and uninitialized Undefined
// values.
func zeroValue(t ir.Type) Value {
	switch typ := t.(type) {
	case *ir.Basic:
		switch {
		case typ.IsVoid():
			return Value{Kind: VoidValue}
		case typ.IsBool():
			return Value{Kind: BoolValue}
		case typ.IsFloatingPoint():
			return Value{Kind: FPValue}
		default:
			return Value{Kind: IntValue}
		}
	case *ir.Pointer:
		return Value{Kind: PointerValue}
	case *ir.Struct:
		agg := make([]Value, len(typ.Fields))
		for i, f := range typ.Fields {
			agg[i] = zeroValue(f)
		}
		return Value{Kind: AggregateValue, Aggregate: agg}
	case *ir.Union:
		return Value{Kind: AggregateValue, Aggregate: make([]Value, 1)}
	case *ir.Array:
		agg := make([]Value, max(typ.Size, 0))
		for i := range agg {
			agg[i] = zeroValue(typ.ElementType)
		}
		return Value{Kind: AggregateValue, Aggregate: agg}
	default:
		return Value{Kind: VoidValue}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
