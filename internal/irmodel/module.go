// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package irmodel

import (
	"fmt"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"

	"github.com/aleutian-oss/bcminer/internal/bcerr"
)

// LoadModule parses a bitcode/LLVM-IR file at path through llir/llvm.
//
// llir/llvm's asm package parses textual IR (.ll); bitcode (.bc) inputs are
// expected to have been disassembled to .ll upstream of this tool (e.g. via
// `llvm-dis`). A load failure is always a bcerr.BadInput.
func LoadModule(path string) (*ir.Module, error) {
	m, err := asm.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w: %v", path, bcerr.BadInput, err)
	}
	return m, nil
}

// Functions returns a module's functions in their native declaration order,
// the deterministic iteration order call-graph construction requires.
func Functions(m *ir.Module) []*ir.Func {
	return m.Funcs
}
