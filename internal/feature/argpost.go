// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package feature

import (
	"github.com/aleutian-oss/bcminer/internal/semantics"
	"github.com/aleutian-oss/bcminer/internal/slicer"
	"github.com/aleutian-oss/bcminer/internal/value"
)

// ArgumentPostcondition extracts, for every argument of the target call,
// what happens to it afterwards: whether it is checked, read or written
// through, or returned (directly or via a tracked alias).
type ArgumentPostcondition struct{}

func (ArgumentPostcondition) Name() string                   { return "arg.post" }
func (ArgumentPostcondition) Filter(hasReturnType bool) bool { return true }

type argPostFeature struct {
	UsedInCheck   bool `json:"used_in_check"`
	DerefedRead   bool `json:"derefed_read"`
	DerefedWrite  bool `json:"derefed_write"`
	Returned      bool `json:"returned"`
	IndirReturned bool `json:"indir_returned"`
}

type argPostResult struct {
	Feature []argPostFeature `json:"feature"`
	ArgNum  int              `json:"arg_num"`
}

func (ArgumentPostcondition) Extract(_ int, _ *slicer.Slice, trace *semantics.Trace) any {
	args := trace.TargetArgs()
	n := len(args)

	usedInCheck := make([]bool, n)
	derefedRead := make([]bool, n)
	derefedWrite := make([]bool, n)
	returned := make([]bool, n)
	indirReturned := make([]bool, n)

	// hadUsed is tracked per-argument but never incremented; kept only as
	// dead bookkeeping for parity with the per-argument slices above it.
	hadUsed := make([]int, n)
	childPtrs := make([]map[string]*value.Value, n)
	trackedValues := make([]map[string]*value.Value, n)
	for i := range args {
		childPtrs[i] = make(map[string]*value.Value)
		trackedValues[i] = make(map[string]*value.Value)
	}

	argsToCheck := getArgsToCheck(args, 3)

	trace.IterFromTarget(semantics.Forward, func(_ int, node semantics.TraceNode) bool {
		switch node.Sem.Kind {
		case semantics.EventICmp:
			op0, op1 := node.Sem.Op0, node.Sem.Op1
			for i, group := range argsToCheck {
				if hadUsed[i] > 1 || derefedWrite[i] || derefedRead[i] {
					continue
				}
				for _, arg := range group {
					if usedInCheck[i] {
						continue
					}
					if value.Equal(op0, arg) || value.Equal(op1, arg) ||
						containsKey(trackedValues[i], op0) || containsKey(trackedValues[i], op1) ||
						containsKey(childPtrs[i], op0) || containsKey(childPtrs[i], op1) {
						usedInCheck[i] = true
					}
				}
			}
		case semantics.EventRet:
			if node.Sem.RetOp == nil {
				break
			}
			op := node.Sem.RetOp
			for i, group := range argsToCheck {
				for _, arg := range group {
					if value.Equal(arg, op) {
						returned[i] = true
					} else if value.Contains(op, arg) || containsKey(trackedValues[i], op) || containsKey(childPtrs[i], op) {
						indirReturned[i] = true
					}
				}
			}
		case semantics.EventStore:
			loc, val := node.Sem.Loc, node.Sem.Val
			for i, group := range argsToCheck {
				for _, arg := range group {
					if value.Equal(loc, arg) {
						derefedWrite[i] = true
					} else if value.Equal(val, arg) || containsKey(childPtrs[i], val) {
						switch loc.Kind {
						case value.KindArg, value.KindSym, value.KindGlob, value.KindAlloc, value.KindGlobSym:
							trackedValues[i][value.Key(loc)] = loc
						case value.KindGEP:
							trackedValues[i][value.Key(loc.Loc)] = loc.Loc
						}
					} else if containsKey(childPtrs[i], loc) {
						derefedWrite[i] = true
					}
				}
			}
		case semantics.EventLoad:
			loc := node.Sem.Loc
			for i, group := range argsToCheck {
				for _, arg := range group {
					if value.Equal(loc, arg) || containsKey(childPtrs[i], loc) {
						derefedRead[i] = true
					}
				}
			}
		case semantics.EventGEP:
			loc := node.Sem.Loc
			for i, group := range argsToCheck {
				for _, arg := range group {
					if value.Equal(loc, arg) {
						childPtrs[i][value.Key(node.Result)] = node.Result
					}
				}
			}
		}
		return true
	})

	feat := make([]argPostFeature, n)
	for i := range feat {
		feat[i] = argPostFeature{
			UsedInCheck:   usedInCheck[i],
			DerefedRead:   derefedRead[i],
			DerefedWrite:  derefedWrite[i],
			Returned:      returned[i],
			IndirReturned: indirReturned[i],
		}
	}
	_ = hadUsed

	return argPostResult{Feature: feat, ArgNum: n}
}
