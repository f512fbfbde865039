// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blocktrace

import (
	"math/rand"

	"github.com/llir/llvm/ir"

	"github.com/aleutian-oss/bcminer/internal/irmodel"
)

// Iterator drives the executor's conditional-branch preference along one
// chosen BlockTrace : as the executor steps into calls and
// crosses block boundaries, it reports each move here so the iterator can
// tell it whether the move stays on the pre-computed path.
type Iterator struct {
	Trace        BlockTrace
	FunctionID   int
	BlockID      int
	MaxTracesNum int
	NotRandom    bool
	rng          *rand.Rand
}

// NewIterator builds an Iterator positioned at the start of trace.
func NewIterator(trace BlockTrace, maxTracesNum int, notRandom bool) *Iterator {
	return &Iterator{
		Trace:        trace,
		MaxTracesNum: maxTracesNum,
		NotRandom:    notRandom,
		rng:          newRNG(),
	}
}

// VisitCall reports whether instr is the call the iterator expects next;
// if so it advances to the next function hop in the chain.
func (it *Iterator) VisitCall(instr *ir.InstCall) bool {
	if it.FunctionID >= len(it.Trace) {
		return false
	}
	if it.Trace[it.FunctionID].CallInstr != instr {
		return false
	}
	it.FunctionID++
	it.BlockID = 0
	return true
}

// VisitBlock reports whether moving from prev to next stays on the
// pre-computed block path for the current function hop; when visit is
// true and the move is on-path, the iterator's position advances.
func (it *Iterator) VisitBlock(prev, next *ir.Block, visit bool) bool {
	if it.FunctionID >= len(it.Trace) {
		return false
	}
	blocks := it.Trace[it.FunctionID].Blocks
	if len(blocks) == 0 || it.BlockID >= len(blocks)-1 {
		return false
	}
	if blocks[it.BlockID] != prev || blocks[it.BlockID+1] != next {
		return false
	}
	if visit {
		it.BlockID++
	}
	return true
}

// GetJuncBlk searches forward from startBlk for the first block that
// rejoins the remaining pre-computed path for the current function hop,
// returning that junction block and the newly discovered intermediate
// nodes leading to it. This backs CorrectBlkPaths's infeasible-path repair
// .
func (it *Iterator) GetJuncBlk(f *ir.Func, startBlk *ir.Block) (*ir.Block, []*ir.Block) {
	added := map[*ir.Block]int{startBlk: 0}
	remaining := it.Trace[it.FunctionID].Blocks[it.BlockID+2:]
	loopEntries := irmodel.LoopEntryBlocks(f)

	type item struct {
		block *ir.Block
		nodes []*ir.Block
	}
	fringe := []item{{block: startBlk}}
	for len(fringe) > 0 {
		idx := len(fringe) - 1
		if !it.NotRandom {
			idx = it.rng.Intn(len(fringe))
		}
		cur := fringe[idx]
		fringe[idx] = fringe[len(fringe)-1]
		fringe = fringe[:len(fringe)-1]

		for _, blk := range irmodel.Successors(cur.block) {
			if blk == nil {
				continue
			}
			count := added[blk]
			if count < it.MaxTracesNum || loopEntries[blk] {
				added[blk] = count + 1
				if containsBlock(remaining, blk) {
					return blk, cur.nodes
				}
				newNodes := make([]*ir.Block, len(cur.nodes), len(cur.nodes)+1)
				copy(newNodes, cur.nodes)
				newNodes = append(newNodes, blk)
				fringe = append([]item{{block: blk, nodes: newNodes}}, fringe...)
			}
		}
	}
	return startBlk, nil
}

// CorrectBlkPaths repairs the current function hop's pre-computed block
// path in place when newBlock is an infeasible successor of the current
// position: it splices in a fresh route to the nearest block the original
// path still agrees on. Returns false (no repair made) when the iterator
// is already within the last two blocks of the hop, or when no route from
// newBlock rejoins the remaining path.
func (it *Iterator) CorrectBlkPaths(newBlock *ir.Block, f *ir.Func) bool {
	if it.FunctionID > len(it.Trace) {
		return false
	}
	blocks := it.Trace[it.FunctionID].Blocks
	if it.BlockID >= len(blocks)-2 {
		return false
	}

	juncBlk, newNodes := it.GetJuncBlk(f, newBlock)
	if juncBlk == newBlock {
		return false
	}
	index := it.BlockID + 1
	blocks[index] = newBlock

	for index < len(blocks)-2 {
		if blocks[index+1] != juncBlk {
			blocks = append(blocks[:index+1], blocks[index+2:]...)
		} else {
			break
		}
	}
	for _, node := range newNodes {
		index++
		tail := append([]*ir.Block{node}, blocks[index:]...)
		blocks = append(blocks[:index], tail...)
	}
	it.Trace[it.FunctionID].Blocks = blocks
	return true
}
