// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package occurrence computes, for every defined function in a module, how
// many call sites invoke it, keyed by a coarse C-ish rendering of its
// signature rather than its raw symbol name standalone
// occurrence tool.
package occurrence

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/aleutian-oss/bcminer/internal/callgraph"
	"github.com/aleutian-oss/bcminer/internal/irmodel"
)

// Count maps a function signature (see Signature) to the number of call
// sites that invoke it anywhere in the module.
type Count map[string]int

// Compute builds the occurrence count for every non-intrinsic, defined
// function in the module: for each, the number of incoming call edges in
// cg. Functions are keyed by Signature rather than symbol name, so two
// distinct functions sharing a signature are merged into one count.
func Compute(m *ir.Module, cg *callgraph.CallGraph) Count {
	counts := make(Count)
	for _, fn := range irmodel.Functions(m) {
		if irmodel.IsIntrinsicFunc(fn) || irmodel.IsDeclaration(fn) {
			continue
		}
		counts[Signature(fn)] += len(cg.CallersOf(fn))
	}
	return counts
}

// Signature renders a function's coarse type signature as "<ret>
// <name>(<args>)", e.g. "int foo(*, int)". Types are reduced to the coarse
// symbol set tyStr uses, since recovering full type information is out of
// scope: two functions differing only in, say, pointee type or integer
// width collide under the same signature intentionally.
func Signature(f *ir.Func) string {
	if f == nil || f.Sig == nil {
		return ""
	}
	args := make([]string, len(f.Sig.Params))
	for i, p := range f.Sig.Params {
		args[i] = tyStr(p)
	}
	return fmt.Sprintf("%s %s(%s)", tyStr(f.Sig.RetType), irmodel.SimplifiedName(f.Name()), strings.Join(args, ", "))
}

// tyStr maps an LLVM type to a coarse single-token symbol, used in place
// of full type names.
func tyStr(t types.Type) string {
	switch t.(type) {
	case *types.ArrayType:
		return "[]"
	case *types.FloatType:
		return "float"
	case *types.IntType:
		return "int"
	case *types.PointerType:
		return "*"
	case *types.StructType:
		return "{}"
	case *types.VectorType:
		return "()"
	case *types.VoidType:
		return "void"
	default:
		return ""
	}
}
