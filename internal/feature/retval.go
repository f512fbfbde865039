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

// ReturnValue extracts how the target call's own return value is checked
// and subsequently used. It only applies to callees that actually return
// something.
type ReturnValue struct{}

func (ReturnValue) Name() string                   { return "retval" }
func (ReturnValue) Filter(hasReturnType bool) bool { return hasReturnType }

type retvalCheck struct {
	Checked              bool   `json:"checked"`
	IndirChecked         bool   `json:"indir_checked"`
	CheckCond            string `json:"check_cond"`
	ComparedWithConst    int64  `json:"compared_with_const"`
	ComparedWithNonConst bool   `json:"compared_with_non_const"`
}

type retvalCtx struct {
	UsedInCall     bool `json:"used_in_call"`
	UsedInBin      bool `json:"used_in_bin"`
	StoredNotLocal bool `json:"stored_not_local"`
	DerefedRead    bool `json:"derefed_read"`
	DerefedWrite   bool `json:"derefed_write"`
	Returned       bool `json:"returned"`
	IndirReturned  bool `json:"indir_returned"`
}

type retvalResult struct {
	Check retvalCheck `json:"check"`
	Ctx   retvalCtx   `json:"ctx"`
}

func (ReturnValue) Extract(_ int, _ *slicer.Slice, trace *semantics.Trace) any {
	retval := trace.TargetResult()
	if retval == nil {
		return map[string]any{}
	}

	var checked, indirChecked bool
	var brCond string
	var comparedConst int64
	var comparedNonConst bool

	var usedInCall, usedInBin, storedNotLocal, derefedRead, derefedWrite, returned, indirReturned bool

	childPtrs := make(map[string]*value.Value)
	trackedValues := make(map[string]*value.Value)
	var icmp *value.Value
	hadUsed := 0

	trace.IterFromTarget(semantics.Forward, func(_ int, node semantics.TraceNode) bool {
		switch node.Sem.Kind {
		case semantics.EventICmp:
			if hadUsed <= 1 && !derefedWrite && !derefedRead {
				op0, op1 := node.Sem.Op0, node.Sem.Op1
				retvalIsOp0 := value.Equal(op0, retval)
				retvalIsOp1 := value.Equal(op1, retval)
				if !checked && (retvalIsOp0 || retvalIsOp1) {
					checked = true
					icmp = node.Result
				} else if containsKey(trackedValues, op0) || containsKey(trackedValues, op1) ||
					containsKey(childPtrs, op0) || containsKey(childPtrs, op1) {
					indirChecked = true
				}
			}
		case semantics.EventCondBr:
			if icmp != nil && value.Equal(node.Sem.Cond, icmp) {
				if icmp.Kind == value.KindICmp {
					op0Num, ok0 := value.NumOfValue(icmp.Op0)
					op1Num, ok1 := value.NumOfValue(icmp.Op1)
					if ok0 || ok1 {
						num := op0Num
						if !ok0 {
							num = op1Num
						}
						comparedConst = num
					} else {
						comparedNonConst = true
					}
					brCond = getBrCond(icmp.Pred, node.Sem.Branch)
				}
			}
		case semantics.EventCall:
			for _, a := range node.Sem.Args {
				if value.Equal(a, retval) || containsKey(childPtrs, a) {
					usedInCall = true
					hadUsed++
					break
				}
			}
		case semantics.EventLoad:
			if value.Equal(node.Sem.Loc, retval) || containsKey(childPtrs, node.Sem.Loc) {
				derefedRead = true
			}
		case semantics.EventStore:
			loc, val := node.Sem.Loc, node.Sem.Val
			if value.Equal(loc, retval) || containsKey(childPtrs, loc) {
				derefedWrite = true
			} else if value.Equal(val, retval) || containsKey(childPtrs, val) {
				switch loc.Kind {
				case value.KindSym, value.KindAlloc:
					trackedValues[value.Key(loc)] = loc
				case value.KindArg, value.KindGlob, value.KindGlobSym:
					trackedValues[value.Key(loc)] = loc
					storedNotLocal = true
				case value.KindGEP:
					trackedValues[value.Key(loc.Loc)] = loc.Loc
					storedNotLocal = trackedNotLocal(loc.Loc)
				}
			}
		case semantics.EventGEP:
			if value.Equal(node.Sem.Loc, retval) || containsKey(childPtrs, node.Sem.Loc) {
				childPtrs[value.Key(node.Result)] = node.Result
			}
		case semantics.EventRet:
			if node.Sem.RetOp != nil {
				if value.Equal(retval, node.Sem.RetOp) {
					returned = true
				} else if containsKey(trackedValues, node.Sem.RetOp) || containsKey(childPtrs, node.Sem.RetOp) {
					indirReturned = true
				}
			}
		case semantics.EventBin:
			op0, op1 := node.Sem.Op0, node.Sem.Op1
			if value.Equal(op0, retval) || value.Equal(op1, retval) {
				usedInBin = true
				childPtrs[value.Key(node.Result)] = node.Result
			}
		}
		return true
	})

	return retvalResult{
		Check: retvalCheck{
			Checked:              checked,
			IndirChecked:         indirChecked,
			CheckCond:            brCond,
			ComparedWithConst:    comparedConst,
			ComparedWithNonConst: comparedNonConst,
		},
		Ctx: retvalCtx{
			UsedInCall:     usedInCall,
			UsedInBin:      usedInBin,
			StoredNotLocal: storedNotLocal,
			DerefedRead:    derefedRead,
			DerefedWrite:   derefedWrite,
			Returned:       returned,
			IndirReturned:  indirReturned,
		},
	}
}

func containsKey(set map[string]*value.Value, v *value.Value) bool {
	if v == nil {
		return false
	}
	_, ok := set[value.Key(v)]
	return ok
}

// getBrCond maps an ICmp predicate plus the branch arm that was taken to
// the "eq"/"ne"/"ge"/"gt"/"le"/"lt" vocabulary, flipping the sense when
// the else arm was taken.
func getBrCond(pred value.ICmpPred, br semantics.Branch) string {
	if br == semantics.BranchThen {
		switch pred {
		case value.PredEQ:
			return "eq"
		case value.PredNE:
			return "ne"
		case value.PredSGE, value.PredUGE:
			return "ge"
		case value.PredSGT, value.PredUGT:
			return "gt"
		case value.PredSLE, value.PredULE:
			return "le"
		case value.PredSLT, value.PredULT:
			return "lt"
		}
		return ""
	}
	switch pred {
	case value.PredEQ:
		return "ne"
	case value.PredNE:
		return "eq"
	case value.PredSGE, value.PredUGE:
		return "lt"
	case value.PredSGT, value.PredUGT:
		return "le"
	case value.PredSLE, value.PredULE:
		return "gt"
	case value.PredSLT, value.PredULT:
		return "ge"
	}
	return ""
}

// trackedNotLocal recurses through a GEP base to classify whether the
// ultimate base is not-local: an argument or a module global, as opposed
// to a stack allocation or a value with no known origin.
func trackedNotLocal(v *value.Value) bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case value.KindArg, value.KindGlob, value.KindGlobSym:
		return true
	case value.KindGEP:
		return trackedNotLocal(v.Loc)
	default:
		return false
	}
}
