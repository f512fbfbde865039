// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package irmodel

import "github.com/llir/llvm/ir"

// SignatureCompatible reports whether callee's signature (return type and
// argument type set) is compatible with caller's — the test
// IsWrapperFunction uses to decide whether a tail call is "transparent".
func SignatureCompatible(caller, callee *ir.Func) bool {
	if caller == nil || callee == nil || caller.Sig == nil || callee.Sig == nil {
		return false
	}
	if !caller.Sig.RetType.Equal(callee.Sig.RetType) {
		return false
	}
	if len(caller.Sig.Params) != len(callee.Sig.Params) {
		return false
	}
	for i, p := range caller.Sig.Params {
		if !p.Equal(callee.Sig.Params[i]) {
			return false
		}
	}
	return true
}
