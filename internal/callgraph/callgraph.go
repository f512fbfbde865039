// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package callgraph builds the static call graph of a module: which
// function calls which, and at what instruction. Construction is a single
// linear pass over every non-intrinsic function's instructions; the graph
// is never mutated afterwards.
package callgraph

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"github.com/aleutian-oss/bcminer/internal/irmodel"
)

// CallEdge is one direct call site: caller invokes callee at the given
// instruction, inside block blk.
type CallEdge struct {
	Caller *ir.Func
	Callee *ir.Func
	Block  *ir.Block
	Inst   *ir.InstCall
}

// CallGraph is the full set of direct call edges in a module, indexed both
// by caller and by callee for the two traversal directions related-function
// enumeration needs (forward from a target to its callers, and the reverse
// when resolving wrapper chains).
type CallGraph struct {
	Edges []CallEdge

	byCaller map[*ir.Func][]CallEdge
	byCallee map[*ir.Func][]CallEdge
}

// Build walks every function's blocks and instructions in native order
// (for deterministic output) and records one CallEdge per direct call
// instruction. Calls through a function pointer, to inline asm, or to an
// intrinsic are skipped; intrinsic functions never appear as either
// caller or callee.
func Build(m *ir.Module) *CallGraph {
	cg := &CallGraph{
		byCaller: make(map[*ir.Func][]CallEdge),
		byCallee: make(map[*ir.Func][]CallEdge),
	}
	for _, fn := range irmodel.Functions(m) {
		if irmodel.IsIntrinsicFunc(fn) {
			continue
		}
		for _, blk := range fn.Blocks {
			for _, inst := range blk.Insts {
				call, ok := inst.(*ir.InstCall)
				if !ok {
					continue
				}
				callee, ok := irmodel.CalleeFunction(call)
				if !ok || irmodel.IsIntrinsicFunc(callee) {
					continue
				}
				edge := CallEdge{Caller: fn, Callee: callee, Block: blk, Inst: call}
				cg.Edges = append(cg.Edges, edge)
				cg.byCaller[fn] = append(cg.byCaller[fn], edge)
				cg.byCallee[callee] = append(cg.byCallee[callee], edge)
			}
		}
	}
	return cg
}

// CalleesOf returns the edges where fn is the caller, in native order.
func (cg *CallGraph) CalleesOf(fn *ir.Func) []CallEdge {
	return cg.byCaller[fn]
}

// CallersOf returns the edges where fn is the callee, in native order.
func (cg *CallGraph) CallersOf(fn *ir.Func) []CallEdge {
	return cg.byCallee[fn]
}

// CallGraphPath is a sequence of edges from an entry function down to (and
// including) a target call edge, used by the slicer's related-function
// enumeration step 5).
type CallGraphPath struct {
	Edges []CallEdge
}

// String renders a path as "caller1 -> caller2 -> ... -> callee", for
// diagnostic and log output.
func (p CallGraphPath) String() string {
	if len(p.Edges) == 0 {
		return ""
	}
	s := p.Edges[0].Caller.Name()
	for _, e := range p.Edges {
		s += fmt.Sprintf(" -> %s", e.Callee.Name())
	}
	return s
}

// Paths enumerates every simple call-graph path (no repeated function) that
// ends in an edge whose callee is target, by a bounded reverse depth-first
// walk over byCallee. Every such path is emitted, including each shorter
// suffix of a longer one; a path holds at most maxDepth+1 edges (maxDepth
// hops above the edge into target).
func (cg *CallGraph) Paths(target *ir.Func, maxDepth int) []CallGraphPath {
	var out []CallGraphPath
	var walk func(callee *ir.Func, tail []CallEdge, visited map[*ir.Func]bool)
	walk = func(callee *ir.Func, tail []CallEdge, visited map[*ir.Func]bool) {
		if len(tail) > maxDepth {
			return
		}
		for _, e := range cg.CallersOf(callee) {
			if visited[e.Caller] {
				continue
			}
			path := append([]CallEdge{e}, tail...)
			out = append(out, CallGraphPath{Edges: path})
			next := make(map[*ir.Func]bool, len(visited)+1)
			for k := range visited {
				next[k] = true
			}
			next[e.Caller] = true
			walk(e.Caller, path, next)
		}
	}
	walk(target, nil, map[*ir.Func]bool{target: true})
	return out
}
