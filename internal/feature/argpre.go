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

// ArgumentPrecondition extracts, for every argument of the target call,
// what the caller already knows about it before the call runs: whether it
// is a literal constant, a stack allocation, or module-global, whether it
// is compared against something before the call, and whether two
// arguments share a common sub-value.
type ArgumentPrecondition struct{}

func (ArgumentPrecondition) Name() string                   { return "arg.pre" }
func (ArgumentPrecondition) Filter(hasReturnType bool) bool { return true }

type argPreCheck struct {
	Checked              bool   `json:"checked"`
	ComparedWithConst    int64  `json:"compared_with_const"`
	ComparedWithNonConst bool   `json:"compared_with_non_const"`
	CheckCond            string `json:"check_cond"`
}

type argPreFeature struct {
	Check      argPreCheck `json:"check"`
	IsConstant bool        `json:"is_constant"`
	IsAlloca   bool        `json:"is_alloca"`
	IsGlobal   bool        `json:"is_global"`
	ArgValue   int64       `json:"arg_value"`
}

type argPreResult struct {
	HasRelation bool            `json:"has_relation"`
	Relations   [][]int         `json:"relations"`
	ArgNum      int             `json:"arg_num"`
	Feature     []argPreFeature `json:"feature"`
}

func (ArgumentPrecondition) Extract(_ int, _ *slicer.Slice, trace *semantics.Trace) any {
	args := trace.TargetArgs()
	n := len(args)

	checked := make([]bool, n)
	comparedConst := make([]int64, n)
	comparedNonConst := make([]bool, n)
	checkCond := make([]string, n)
	isConstant := make([]bool, n)
	isAlloca := make([]bool, n)
	isGlobal := make([]bool, n)
	argValue := make([]int64, n)
	for i := range argValue {
		argValue[i] = -1
	}

	argsToCheck := getArgsToCheck(args, 3)

	var hasRelation bool
	var relations [][]int
	getArgRelations(argsToCheck, &hasRelation, &relations)

	for i, group := range argsToCheck {
		for _, arg := range group {
			getArgType(arg, &isConstant[i], &isAlloca[i], &isGlobal[i], &argValue[i], 3)
			if isConstant[i] && isAlloca[i] {
				break
			}
		}
	}

	trace.IterFromTarget(semantics.Backward, func(instrI int, node semantics.TraceNode) bool {
		if node.Sem.Kind != semantics.EventICmp {
			return true
		}
		op0, op1, pred := node.Sem.Op0, node.Sem.Op1, node.Sem.Pred
		for i, group := range argsToCheck {
			if isConstant[i] {
				continue
			}
			for _, arg := range group {
				argIsOp0 := value.Equal(op0, arg)
				argIsOp1 := value.Equal(op1, arg)
				if !argIsOp0 && !argIsOp1 {
					continue
				}
				checked[i] = true
				op0Num, ok0 := value.NumOfValue(op0)
				op1Num, ok1 := value.NumOfValue(op1)
				if ok0 || ok1 {
					num := op0Num
					if !ok0 {
						num = op1Num
					}
					comparedConst[i] = num

					steps := 0
					trace.IterFrom(semantics.Forward, instrI, func(_ int, maybeBr semantics.TraceNode) bool {
						if steps >= 5 {
							return false
						}
						steps++
						if maybeBr.Sem.Kind == semantics.EventCondBr && value.Equal(maybeBr.Sem.Cond, node.Result) {
							checkCond[i] = getBrCond(pred, maybeBr.Sem.Branch)
						}
						return true
					})
				} else {
					comparedNonConst[i] = true
				}
			}
		}
		return true
	})

	feat := make([]argPreFeature, n)
	for i := range feat {
		feat[i] = argPreFeature{
			Check: argPreCheck{
				Checked:              checked[i],
				ComparedWithConst:    comparedConst[i],
				ComparedWithNonConst: comparedNonConst[i],
				CheckCond:            checkCond[i],
			},
			IsConstant: isConstant[i],
			IsAlloca:   isAlloca[i],
			IsGlobal:   isGlobal[i],
			ArgValue:   argValue[i],
		}
	}

	return argPreResult{
		HasRelation: hasRelation,
		Relations:   relations,
		ArgNum:      n,
		Feature:     feat,
	}
}

// getArgsToCheck groups arguments for the shared-subvalue relation check.
// Despite taking a depth parameter it is not recursive: each argument is
// always returned unchanged as the sole member of its own group, and
// depth==0 yields no groups at all.
func getArgsToCheck(args []*value.Value, depth int) [][]*value.Value {
	if depth == 0 {
		return nil
	}
	out := make([][]*value.Value, len(args))
	for i, a := range args {
		out[i] = []*value.Value{a}
	}
	return out
}

// getArgType classifies arg into the coarse constant/alloca/global kinds
// the argument-precondition feature names, recursing only through a GEP's
// base pointer.
func getArgType(arg *value.Value, isConstant, isAlloca, isGlobal *bool, argValue *int64, depth int) {
	if depth <= 0 || arg == nil {
		return
	}
	switch arg.Kind {
	case value.KindConstSym, value.KindFunc, value.KindAsm:
		*isConstant = true
	case value.KindNull:
		*isConstant = true
		*argValue = -12345
	case value.KindInt:
		*isConstant = true
		*argValue = arg.Int
	case value.KindGEP:
		getArgType(arg.Loc, isConstant, isAlloca, isGlobal, argValue, depth-1)
	case value.KindAlloc:
		*isAlloca = true
	case value.KindArg, value.KindGlob, value.KindGlobSym:
		*isGlobal = true
	}
}

// getArgVal recursively collects the set of sub-values reachable from arg
// through GEP/Bin/ICmp/Call, used only to detect when two arguments share
// a common sub-value (get_arg_relations) — not by getArgType, which only
// ever recurses through GEP.
func getArgVal(arg *value.Value, depth int, out map[string]*value.Value) {
	if depth <= 0 || arg == nil {
		return
	}
	switch arg.Kind {
	case value.KindGEP:
		getArgVal(arg.Loc, depth-1, out)
	case value.KindBin:
		getArgVal(arg.Op0, depth-1, out)
		getArgVal(arg.Op1, depth-1, out)
	case value.KindICmp:
		getArgVal(arg.Op0, depth-1, out)
		getArgVal(arg.Op1, depth-1, out)
	case value.KindCall:
		for _, a := range arg.Args {
			getArgVal(a, depth-1, out)
		}
	case value.KindUnknown:
	default:
		out[value.Key(arg)] = arg
	}
}

func getArgVals(args []*value.Value) map[string]*value.Value {
	out := make(map[string]*value.Value)
	for _, a := range args {
		getArgVal(a, 3, out)
	}
	return out
}

// getArgRelations reports whether any two distinct arguments' sub-value
// sets intersect, recording every such pair's index (i < j) in relations.
func getArgRelations(argsToCheck [][]*value.Value, hasRelation *bool, relations *[][]int) {
	n := len(argsToCheck)
	if n <= 1 {
		return
	}
	argvals := make([]map[string]*value.Value, n)
	argvals[0] = getArgVals(argsToCheck[0])
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			if j <= i+1 || argvals[j] == nil {
				argvals[j] = getArgVals(argsToCheck[j])
			}
			if intersects(argvals[i], argvals[j]) {
				*hasRelation = true
				*relations = append(*relations, []int{i, j})
			}
		}
	}
}

func intersects(a, b map[string]*value.Value) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
