// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package irmodel

import "github.com/llir/llvm/ir"

// Successors returns a block's terminator successors, in a deterministic
// order (default branch/target last for conditional branches and switches,
// matching how LLVM textual IR lists them).
func Successors(b *ir.Block) []*ir.Block {
	if b == nil || b.Term == nil {
		return nil
	}
	switch term := b.Term.(type) {
	case *ir.TermBr:
		return []*ir.Block{term.Target}
	case *ir.TermCondBr:
		return []*ir.Block{term.TargetTrue, term.TargetFalse}
	case *ir.TermSwitch:
		succs := make([]*ir.Block, 0, len(term.Cases)+1)
		for _, c := range term.Cases {
			succs = append(succs, c.Target)
		}
		succs = append(succs, term.TargetDefault)
		return succs
	default:
		return nil
	}
}

// LoopEntryBlocks computes the set of blocks that are the target of a back
// edge during a depth-first walk from the function's entry block. This is
// a coarse notion of "loop-entry block" for the block-trace enumerator and
// executor to bound how many times a loop body is revisited — it does not
// attempt natural-loop analysis, just back-edge targets reachable from
// entry.
func LoopEntryBlocks(f *ir.Func) map[*ir.Block]bool {
	entries := map[*ir.Block]bool{}
	if f == nil || len(f.Blocks) == 0 {
		return entries
	}
	entry := f.Blocks[0]

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[*ir.Block]int, len(f.Blocks))

	var visit func(b *ir.Block)
	visit = func(b *ir.Block) {
		color[b] = gray
		for _, succ := range Successors(b) {
			if succ == nil {
				continue
			}
			switch color[succ] {
			case gray:
				entries[succ] = true
			case white:
				visit(succ)
			}
		}
		color[b] = black
	}
	visit(entry)
	return entries
}

// EntryBlock returns a function's first block, if any.
func EntryBlock(f *ir.Func) (*ir.Block, bool) {
	if f == nil || len(f.Blocks) == 0 {
		return nil, false
	}
	return f.Blocks[0], true
}
