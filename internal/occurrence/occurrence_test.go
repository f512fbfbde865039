// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package occurrence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-oss/bcminer/internal/callgraph"
)

func TestSignature_RendersCoarseTypes(t *testing.T) {
	fn := ir.NewFunc("my_func", types.I32,
		ir.NewParam("a", types.I32),
		ir.NewParam("b", types.NewPointer(types.I8)),
	)
	assert.Equal(t, "int my_func(int, *)", Signature(fn))
}

func TestSignature_VoidReturnAndNoArgs(t *testing.T) {
	fn := ir.NewFunc("cleanup", types.Void)
	assert.Equal(t, "void cleanup()", Signature(fn))
}

func TestSignature_NilFuncIsEmpty(t *testing.T) {
	assert.Equal(t, "", Signature(nil))
}

func TestCompute_CountsIncomingCallEdgesPerSignature(t *testing.T) {
	m := ir.NewModule()

	target := m.NewFunc("target", types.I32, ir.NewParam("x", types.I32))
	target.NewBlock("entry").NewRet(target.Params[0])

	helper := m.NewFunc("helper", types.Void)
	helper.NewBlock("entry").NewRet(nil)

	caller := m.NewFunc("caller", types.Void)
	entry := caller.NewBlock("entry")
	entry.NewCall(target, constant.NewInt(types.I32, 1))
	entry.NewCall(target, constant.NewInt(types.I32, 2))
	entry.NewCall(helper)
	entry.NewRet(nil)

	cg := callgraph.Build(m)
	counts := Compute(m, cg)

	assert.Equal(t, 2, counts[Signature(target)])
	assert.Equal(t, 1, counts[Signature(helper)])
}

func TestDump_WritesOccurrencesFile(t *testing.T) {
	dir := t.TempDir()
	counts := Count{"int foo(int)": 3}

	require.NoError(t, Dump(counts, dir, "mylib.bc"))

	data, err := os.ReadFile(filepath.Join(dir, "occurrences", "mylib.bc.json"))
	require.NoError(t, err)

	var got Count
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 3, got["int foo(int)"])
}
