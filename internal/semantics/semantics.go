// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package semantics implements the Semantics event model, TraceNode and
// Trace types of plus the trace-walking helpers the feature
// extractors in internal/feature depend on.
package semantics

import "github.com/aleutian-oss/bcminer/internal/value"

// Branch distinguishes the taken arm of a conditional branch.
type Branch int

const (
	BranchThen Branch = iota
	BranchElse
)

func (b Branch) String() string {
	if b == BranchThen {
		return "then"
	}
	return "else"
}

// EventKind tags the Semantics variant.
type EventKind int

const (
	EventCall EventKind = iota
	EventICmp
	EventCondBr
	EventSwitch
	EventRet
	EventStore
	EventLoad
	EventGEP
	EventUna
	EventBin
)

// Semantics is a single abstract instruction event.
type Semantics struct {
	Kind EventKind

	// Call
	Func *value.Value
	Args []*value.Value

	// ICmp
	Pred value.ICmpPred
	Op0  *value.Value
	Op1  *value.Value

	// CondBr
	Cond   *value.Value
	Branch Branch

	// Switch: Cond reused.

	// Ret
	RetOp *value.Value // nil means void return

	// Store / Load / GEP: Loc reused; Store additionally uses Val;
	// GEP additionally uses Indices.
	Loc     *value.Value
	Val     *value.Value
	Indices []*value.Value

	// Una
	UnaOp value.UnaOp

	// Bin reuses Op0/Op1 above plus BinOp.
	BinOp value.BinOp
}

func NewCall(fn *value.Value, args []*value.Value) Semantics {
	return Semantics{Kind: EventCall, Func: fn, Args: args}
}

func NewICmp(pred value.ICmpPred, op0, op1 *value.Value) Semantics {
	return Semantics{Kind: EventICmp, Pred: pred, Op0: op0, Op1: op1}
}

func NewCondBr(cond *value.Value, br Branch) Semantics {
	return Semantics{Kind: EventCondBr, Cond: cond, Branch: br}
}

func NewSwitch(cond *value.Value) Semantics {
	return Semantics{Kind: EventSwitch, Cond: cond}
}

func NewRet(op *value.Value) Semantics {
	return Semantics{Kind: EventRet, RetOp: op}
}

func NewStore(loc, val *value.Value) Semantics {
	return Semantics{Kind: EventStore, Loc: loc, Val: val}
}

func NewLoad(loc *value.Value) Semantics {
	return Semantics{Kind: EventLoad, Loc: loc}
}

func NewGEP(loc *value.Value, indices []*value.Value) Semantics {
	return Semantics{Kind: EventGEP, Loc: loc, Indices: indices}
}

func NewUna(op value.UnaOp, op0 *value.Value) Semantics {
	return Semantics{Kind: EventUna, UnaOp: op, Op0: op0}
}

func NewBin(op value.BinOp, op0, op1 *value.Value) Semantics {
	return Semantics{Kind: EventBin, BinOp: op, Op0: op0, Op1: op1}
}

// CallArgs panics if sem is not a Call event, mirroring the original
// analyzer's Semantics::call_args (only ever invoked on the target node,
// whose kind is guaranteed by construction).
func (s Semantics) CallArgs() []*value.Value {
	if s.Kind != EventCall {
		panic("semantics: CallArgs called on non-Call event")
	}
	return s.Args
}

// TraceNode pairs one executed instruction's semantics with its debug
// location and (if it produced one) abstract result.
type TraceNode struct {
	Loc    string
	Sem    Semantics
	Result *value.Value // nil if the instruction has no result (e.g. void call, store)
}

// Trace is the ordered event sequence produced by one completed Work, plus
// the index of the node corresponding to the slice's target call.
type Trace struct {
	Instrs []TraceNode
	Target int
}

// TargetNode returns the trace node at the target index.
func (t *Trace) TargetNode() TraceNode {
	return t.Instrs[t.Target]
}

// TargetArgs returns the target call's evaluated arguments.
func (t *Trace) TargetArgs() []*value.Value {
	return t.TargetNode().Sem.CallArgs()
}

// TargetResult returns the target call's result value, or nil if the
// callee has no return type (so the retval extractor should emit {}).
func (t *Trace) TargetResult() *value.Value {
	return t.TargetNode().Result
}

// Direction selects which way a feature extractor walks a trace relative
// to the target node.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// IterFromTarget walks the trace from (but excluding) the target node in
// the given direction, invoking visit(index, node) until visit returns
// false or the trace is exhausted.
func (t *Trace) IterFromTarget(dir Direction, visit func(i int, n TraceNode) bool) {
	t.IterFrom(dir, t.Target, visit)
}

// IterFrom walks the trace from (but excluding) index start, in the given
// direction.
func (t *Trace) IterFrom(dir Direction, start int, visit func(i int, n TraceNode) bool) {
	if dir == Forward {
		for i := start + 1; i < len(t.Instrs); i++ {
			if !visit(i, t.Instrs[i]) {
				return
			}
		}
	} else {
		for i := start - 1; i >= 0; i-- {
			if !visit(i, t.Instrs[i]) {
				return
			}
		}
	}
}
