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

// blockGraph is a function's control-flow graph, built once per call to
// blockTracesToInstr so reverseSearchBlkTraces can walk it backwards from
// the target block to the entry block.
type blockGraph struct {
	incoming     map[*ir.Block][]*ir.Block
	loopEntries  map[*ir.Block]bool
	entry        *ir.Block
	maxTracesNum int
	rng          *rand.Rand
	notRandom    bool
}

func buildBlockGraph(f *ir.Func, maxTracesNum int, notRandom bool) *blockGraph {
	incoming := make(map[*ir.Block][]*ir.Block)
	for _, b := range f.Blocks {
		for _, succ := range irmodel.Successors(b) {
			if succ == nil {
				continue
			}
			incoming[succ] = append(incoming[succ], b)
		}
	}
	entry, _ := irmodel.EntryBlock(f)
	return &blockGraph{
		incoming:     incoming,
		loopEntries:  irmodel.LoopEntryBlocks(f),
		entry:        entry,
		maxTracesNum: maxTracesNum,
		rng:          newRNG(),
		notRandom:    notRandom,
	}
}

type fringeItem struct {
	block *ir.Block
	trace []*ir.Block
}

// reverseSearchBlkTraces performs a randomized (unless notRandom) reverse
// BFS/DFS from targetBlock back to entry : a block may appear
// in up to maxTracesNum distinct traces, loop-entry blocks are exempt from
// that cap so loops are not silently dropped from every candidate path,
// and a trace is accepted as soon as the walk reaches entry.
func (bg *blockGraph) reverseSearchBlkTraces(entry, targetBlock *ir.Block) [][]*ir.Block {
	var traces [][]*ir.Block
	visited := map[*ir.Block]int{targetBlock: bg.maxTracesNum}

	fringe := []fringeItem{{block: targetBlock, trace: []*ir.Block{targetBlock}}}
	for len(fringe) > 0 && len(traces) < bg.maxTracesNum {
		idx := len(fringe) - 1
		if !bg.notRandom {
			idx = bg.rng.Intn(len(fringe))
		}
		cur := fringe[idx]
		fringe[idx] = fringe[len(fringe)-1]
		fringe = fringe[:len(fringe)-1]

		for _, pred := range bg.incoming[cur.block] {
			count := visited[pred]
			if count < bg.maxTracesNum || bg.loopEntries[pred] {
				visited[pred] = count + 1
				if !containsBlock(cur.trace, pred) || bg.loopEntries[pred] {
					newTrace := make([]*ir.Block, 0, len(cur.trace)+1)
					newTrace = append(newTrace, pred)
					newTrace = append(newTrace, cur.trace...)
					if pred == entry {
						if !containsTrace(traces, newTrace) {
							traces = append(traces, newTrace)
						}
						continue
					}
					fringe = append(fringe, fringeItem{block: pred, trace: newTrace})
				}
			}
		}
	}
	return traces
}

func containsBlock(trace []*ir.Block, b *ir.Block) bool {
	for _, x := range trace {
		if x == b {
			return true
		}
	}
	return false
}

func containsTrace(traces [][]*ir.Block, t []*ir.Block) bool {
	for _, x := range traces {
		if len(x) != len(t) {
			continue
		}
		same := true
		for i := range x {
			if x[i] != t[i] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}
