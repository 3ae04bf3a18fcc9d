package backend

import (
	"fmt"

	"github.com/cxlang/cxc/ir"
)

// Verify checks one lowered function's structural invariants before its
// LLVM text is considered trustworthy, per SPEC_FULL.md §3.2's
// "per-function verification." Two things are checked:
//
//   - every block ends in exactly one terminator (spec.md §8 invariant
//     4; ir.Block.Append already panics against a second terminator, so
//     this check instead catches the complementary defect, a block with
//     none at all);
//   - every phi's declared Incoming set exactly matches the block's
//     actual predecessors, computed fresh by scanning every other
//     block's terminator operands. lower/expr.go already builds each
//     phi's Incoming list directly via AddIncoming as it desugars
//     short-circuit/if-expressions, so this is an independent
//     cross-check rather than the sole source of truth for phi wiring,
//     giving spec.md §4.7's "installed by the backend by scanning
//     predecessor terminators" language real teeth against a future
//     lowering bug that populates Incoming incorrectly.
func Verify(fn *ir.Function) []error {
	var errs []error

	preds := predecessors(fn)

	for _, b := range fn.Blocks {
		if !b.HasTerminator() {
			errs = append(errs, fmt.Errorf("block %s has no terminator", b.Name()))
		}
		for _, inst := range b.Insts {
			phi, ok := inst.(*ir.PhiInst)
			if !ok {
				continue
			}
			want := preds[b]
			got := make(map[*ir.Block]bool, len(phi.Incoming))
			for _, inc := range phi.Incoming {
				got[inc.Pred] = true
			}
			for _, p := range want {
				if !got[p] {
					errs = append(errs, fmt.Errorf("block %s: phi missing incoming value from predecessor %s", b.Name(), p.Name()))
				}
			}
			for p := range got {
				if !containsBlock(want, p) {
					errs = append(errs, fmt.Errorf("block %s: phi has incoming value from non-predecessor %s", b.Name(), p.Name()))
				}
			}
		}
	}
	return errs
}

// predecessors computes, for every block in fn, the set of blocks whose
// terminator can jump to it.
func predecessors(fn *ir.Function) map[*ir.Block][]*ir.Block {
	preds := make(map[*ir.Block][]*ir.Block, len(fn.Blocks))
	for _, b := range fn.Blocks {
		term := b.Terminator()
		switch t := term.(type) {
		case *ir.BranchInst:
			preds[t.Destination] = append(preds[t.Destination], b)
		case *ir.CondBranchInst:
			preds[t.TrueBlock] = append(preds[t.TrueBlock], b)
			preds[t.FalseBlock] = append(preds[t.FalseBlock], b)
		case *ir.SwitchInst:
			preds[t.DefaultBlock] = append(preds[t.DefaultBlock], b)
			for _, c := range t.Cases {
				preds[c.Block] = append(preds[c.Block], b)
			}
		}
	}
	return preds
}

func containsBlock(blocks []*ir.Block, b *ir.Block) bool {
	for _, x := range blocks {
		if x == b {
			return true
		}
	}
	return false
}
