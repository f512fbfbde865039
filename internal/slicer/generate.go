// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package slicer

import (
	"context"
	"runtime"

	"github.com/llir/llvm/ir"
	"golang.org/x/sync/errgroup"

	"github.com/aleutian-oss/bcminer/internal/callgraph"
	"github.com/aleutian-oss/bcminer/internal/irmodel"
)

// calleeIndex returns the position of edge among the edges fanning out of
// its caller, counted from the start, which is the left-to-right order in
// which directRelatedFuncs collects a caller's calls: its index argument
// must line up with that same order.
func calleeIndex(cg *callgraph.CallGraph, edge callgraph.CallEdge) int {
	callees := cg.CalleesOf(edge.Caller)
	index := 0
	for _, e := range callees {
		if e.Inst == edge.Inst {
			break
		}
		index++
	}
	return index
}

// fringeEntry is one pending call-chain expansion in the breadth-first
// walk up the call graph from a target edge's caller.
type fringeEntry struct {
	funcID  *ir.Func
	depth   int
	chain   callgraph.CallGraphPath
	callers map[*ir.Func]bool
}

// Generate builds every slice rooted at one target call edge: it climbs
// the call graph from the edge's caller up to slice_depth hops (extended
// by one for every wrapper function encountered along the way), recording
// one Slice per maximal call chain, each annotated with the related
// functions found in the immediate caller.
func Generate(cg *callgraph.CallGraph, edge callgraph.CallEdge, opts Options) []Slice {
	if edge.Caller == edge.Callee || irmodel.DebugLoc(edge.Inst) == "" {
		return nil
	}

	index := calleeIndex(cg, edge)
	related, _ := directRelatedFuncs(edge.Caller, index)

	initDepth := opts.SliceDepth
	if IsWrapperFunction(edge.Caller) {
		initDepth++
	}

	var chains []callgraph.CallGraphPath
	fringe := []fringeEntry{{
		funcID:  edge.Caller,
		depth:   initDepth,
		chain:   callgraph.CallGraphPath{Edges: []callgraph.CallEdge{edge}},
		callers: map[*ir.Func]bool{edge.Caller: true},
	}}
	for len(fringe) > 0 {
		cur := fringe[0]
		fringe = fringe[1:]
		if cur.depth == 0 {
			chains = append(chains, cur.chain)
			continue
		}
		containsParent := false
		for _, in := range cg.CallersOf(cur.funcID) {
			if cur.callers[in.Caller] {
				continue
			}
			containsParent = true
			depth := cur.depth
			if IsWrapperFunction(in.Caller) {
				depth++
			}
			newEdges := make([]callgraph.CallEdge, 0, len(cur.chain.Edges)+1)
			newEdges = append(newEdges, in)
			newEdges = append(newEdges, cur.chain.Edges...)
			newCallers := make(map[*ir.Func]bool, len(cur.callers)+1)
			for k := range cur.callers {
				newCallers[k] = true
			}
			newCallers[in.Caller] = true
			fringe = append(fringe, fringeEntry{
				funcID:  in.Caller,
				depth:   depth - 1,
				chain:   callgraph.CallGraphPath{Edges: newEdges},
				callers: newCallers,
			})
		}
		if !containsParent {
			chains = append(chains, cur.chain)
		}
	}

	slices := make([]Slice, 0, len(chains))
	for _, chain := range chains {
		entry := edge.Caller
		if len(chain.Edges) > 0 {
			entry = chain.Edges[0].Caller
		}
		s := Slice{
			Entry:     entry,
			Caller:    edge.Caller,
			Callee:    edge.Callee,
			Instr:     edge.Inst,
			CallChain: chain,
			Functions: related,
		}
		if opts.MaxNumBlocks > 0 && blockCount(s) > opts.MaxNumBlocks {
			continue
		}
		slices = append(slices, s)
	}
	return slices
}

// SlicesOfCallEdges runs Generate over every edge, fanning out across
// runtime.NumCPU() goroutines unless opts.UseSerial collapses the fan-out
// to the calling goroutine, the same parallel/serial switch used for
// bounded worker pools elsewhere in this codebase.
func SlicesOfCallEdges(ctx context.Context, cg *callgraph.CallGraph, edges []callgraph.CallEdge, opts Options) ([]Slice, error) {
	if opts.UseSerial || len(edges) <= 1 {
		var out []Slice
		for _, e := range edges {
			out = append(out, Generate(cg, e, opts)...)
		}
		return out, nil
	}

	results := make([][]Slice, len(edges))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, e := range edges {
		i, e := i, e
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = Generate(cg, e, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []Slice
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
