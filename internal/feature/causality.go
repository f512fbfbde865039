// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package feature

import (
	"strings"

	"github.com/aleutian-oss/bcminer/internal/irmodel"
	"github.com/aleutian-oss/bcminer/internal/semantics"
	"github.com/aleutian-oss/bcminer/internal/slicer"
	"github.com/aleutian-oss/bcminer/internal/value"
)

// Causality extracts, for every other call reachable from the target call
// in the trace, whether it shares an argument value with the target call or
// is chained through it (the target's result feeds it, or it feeds the
// target).
type Causality struct{}

func (Causality) Name() string                   { return "causality" }
func (Causality) Filter(hasReturnType bool) bool { return true }

type causalityEntry struct {
	UsedAsArg     bool `json:"used_as_arg"`
	ShareArgument bool `json:"share_argument"`
}

func (Causality) Extract(_ int, slice *slicer.Slice, trace *semantics.Trace) any {
	funcLocs := make(map[string]bool)
	if slice != nil {
		for fc := range slice.Functions {
			funcLocs[irmodel.DebugLoc(fc.Call)] = true
		}
	}

	return map[string]any{
		"pre.call":  findRelatedFunctions(funcLocs, trace, semantics.Backward),
		"post.call": findRelatedFunctions(funcLocs, trace, semantics.Forward),
	}
}

func findRelatedFunctions(funcLocs map[string]bool, trace *semantics.Trace, dir semantics.Direction) map[string]causalityEntry {
	result := make(map[string]causalityEntry)
	target := trace.TargetNode()

	trace.IterFromTarget(dir, func(_ int, node semantics.TraceNode) bool {
		if node.Sem.Kind != semantics.EventCall {
			return true
		}
		fn := node.Sem.Func
		if fn == nil || fn.Kind != value.KindFunc {
			return true
		}
		name := fn.Name
		if strings.Contains(name, "__asan") || strings.Contains(name, "__sanitizer") ||
			strings.Contains(name, "__kasan") || strings.Contains(name, "print") {
			return true
		}
		if _, ok := result[name]; ok {
			return true
		}

		var entry causalityEntry
		entry.ShareArgument = shareArguments(node, target)
		if dir == semantics.Forward {
			entry.UsedAsArg = isArgOf(target, node)
		} else {
			entry.UsedAsArg = isArgOf(node, target)
		}

		if entry.ShareArgument || entry.UsedAsArg || funcLocs[node.Loc] {
			result[name] = entry
		}
		return true
	})
	return result
}

// shareArguments reports whether a and b's call arguments have any
// structurally-equal value in common.
func shareArguments(a, b semantics.TraceNode) bool {
	argsA := trackedArgs(a)
	argsB := trackedArgs(b)
	for _, x := range argsA {
		for _, y := range argsB {
			if value.Equal(x, y) {
				return true
			}
		}
	}
	return false
}

// isArgOf reports whether a's result is passed as one of b's call
// arguments.
func isArgOf(a, b semantics.TraceNode) bool {
	res := trackedRes(a)
	if res == nil {
		return false
	}
	args := trackedArgs(b)
	for _, arg := range args {
		if value.Equal(res, arg) {
			return true
		}
	}
	return false
}

// trackedRes returns a's result, or nil if it has none or is Unknown/Null.
func trackedRes(n semantics.TraceNode) *value.Value {
	if n.Result == nil {
		return nil
	}
	if n.Result.Kind == value.KindUnknown || n.Result.Kind == value.KindNull {
		return nil
	}
	return n.Result
}

// trackedArgs returns n's call arguments, dropping Unknown/Null entries.
func trackedArgs(n semantics.TraceNode) []*value.Value {
	var out []*value.Value
	for _, a := range n.Sem.CallArgs() {
		if a == nil || a.Kind == value.KindUnknown || a.Kind == value.KindNull {
			continue
		}
		out = append(out, a)
	}
	return out
}
