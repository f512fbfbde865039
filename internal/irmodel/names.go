// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package irmodel adapts github.com/llir/llvm's IR model to the handful of
// derived facts the rest of bcminer needs: simplified names, intrinsic
// detection, debug locations, loop-entry blocks and direct-call resolution.
//
// The adapter is deliberately thin. Functions, blocks, instructions,
// operands and constants are the real github.com/llir/llvm types
// (*ir.Func, *ir.Block, ir.Instruction, value.Value, constant.Constant);
// bcminer treats them as the opaque, identity-comparable handles // describes and never copies them.
package irmodel

import (
	"strings"

	"github.com/llir/llvm/ir"
)

// SimplifiedName strips the first "."-suffix from a function name: for
// "llvm.memcpy.p0i8.p0i8.i64" it keeps "memcpy", the second dot-separated
// segment, because the first segment is always the "llvm" namespace
// marker.
func SimplifiedName(name string) string {
	i := strings.IndexByte(name, '.')
	if i < 0 {
		return name
	}
	if name[:i] != "llvm" {
		return name[:i]
	}
	rest := name[i+1:]
	j := strings.IndexByte(rest, '.')
	if j < 0 {
		return rest
	}
	return rest[:j]
}

// IsIntrinsicName reports whether a raw function name should be excluded
// from the call graph: the "llvm." namespace or a "__sanitizer" prefix.
func IsIntrinsicName(name string) bool {
	return strings.HasPrefix(name, "llvm.") || strings.HasPrefix(name, "__sanitizer")
}

// IsIntrinsicFunc reports whether a function should be filtered out of the
// call graph entirely.
func IsIntrinsicFunc(f *ir.Func) bool {
	if f == nil {
		return true
	}
	return IsIntrinsicName(f.Name())
}

// HasReturnType reports whether a function's signature declares a non-void
// return type.
func HasReturnType(f *ir.Func) bool {
	if f == nil || f.Sig == nil {
		return false
	}
	return !f.Sig.RetType.Equal(voidType)
}

// IsDeclaration reports whether a function has no body (a declaration-only
// external symbol), which disqualifies it as a symbolic-execution step-in
// target.
func IsDeclaration(f *ir.Func) bool {
	return f == nil || len(f.Blocks) == 0
}
