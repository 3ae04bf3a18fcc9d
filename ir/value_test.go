package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxlang/cxc/ir"
)

func TestBlockRejectsAppendAfterTerminator(t *testing.T) {
	fn := ir.NewFunction("fact", ir.Int, nil)
	b := fn.NewBlock("entry")
	b.Append(ir.NewReturn(ir.NewConstantInt(ir.Int, 1)))

	assert.True(t, b.HasTerminator())
	assert.Panics(t, func() {
		b.Append(ir.NewUnreachable())
	})
}

func TestFunctionBlockNamesAreDisambiguated(t *testing.T) {
	fn := ir.NewFunction("f", ir.Void, nil)
	a := fn.NewBlock("loop")
	b := fn.NewBlock("loop")
	assert.Equal(t, "loop", a.Name())
	assert.Equal(t, "loop.2", b.Name())
}

func TestPhiCollectsIncomingFromPredecessors(t *testing.T) {
	fn := ir.NewFunction("f", ir.Int, nil)
	thenBlock := fn.NewBlock("then")
	elseBlock := fn.NewBlock("else")
	phi := ir.NewPhi("result", ir.Int)
	phi.AddIncoming(ir.NewConstantInt(ir.Int, 1), thenBlock)
	phi.AddIncoming(ir.NewConstantInt(ir.Int, 0), elseBlock)

	require.Len(t, phi.Incoming, 2)
	assert.Equal(t, thenBlock, phi.Incoming[0].Pred)
}

func TestGlobalVariableTypeIsPointerToValueType(t *testing.T) {
	g := ir.NewGlobalVariable("counter", ir.Int, ir.NewConstantInt(ir.Int, 0))
	ptr, ok := g.Type().(*ir.Pointer)
	require.True(t, ok)
	assert.Equal(t, ir.Int, ptr.Pointee)
}

func TestUnionStringIsDistinctFromStruct(t *testing.T) {
	u := &ir.Union{Name: "Maybe", Fields: []ir.Type{ir.Int, ir.Bool}}
	s := &ir.Struct{Name: "Maybe", Fields: []ir.Type{ir.Int, ir.Bool}}
	assert.NotEqual(t, u.String(), s.String())
}
