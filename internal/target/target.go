// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package target implements target-function selection : given
// a module's call graph and a user-supplied filter, it picks the callee
// functions to mine and collects the call edges that invoke them.
package target

import (
	"regexp"
	"strings"

	"github.com/llir/llvm/ir"

	"github.com/aleutian-oss/bcminer/internal/bcerr"
	"github.com/aleutian-oss/bcminer/internal/callgraph"
	"github.com/aleutian-oss/bcminer/internal/irmodel"
)

// Filter selects target functions by simplified name. A literal list and a
// regular expression are both optional; when both are empty every declared,
// non-intrinsic function with a body is a candidate // `--target` / `--target-regex` options). Exclude removes names (literal)
// from whatever Include/Regex already selected.
type Filter struct {
	Include []string
	Exclude []string
	Regex   string

	compiled *regexp.Regexp
}

// Compile validates the regex, if any, once up front so every subsequent
// Matches call is just a map/regex lookup. An invalid pattern is a
// bcerr.InvalidFilter, the only place target selection can fail outright.
func (f *Filter) Compile() error {
	if f.Regex == "" {
		return nil
	}
	re, err := regexp.Compile(f.Regex)
	if err != nil {
		return &filterError{err}
	}
	f.compiled = re
	return nil
}

type filterError struct{ err error }

func (e *filterError) Error() string {
	return e.err.Error()
}

func (e *filterError) Unwrap() error { return bcerr.InvalidFilter }

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Matches reports whether a simplified function name is selected by f.
func (f *Filter) Matches(simpName string) bool {
	if contains(f.Exclude, simpName) {
		return false
	}
	if len(f.Include) == 0 && f.compiled == nil {
		return true
	}
	if contains(f.Include, simpName) {
		return true
	}
	if f.compiled != nil && f.compiled.MatchString(simpName) {
		return true
	}
	return false
}

// Target is one selected function together with every call edge that
// invokes it.
type Target struct {
	Func  *ir.Func
	Edges []callgraph.CallEdge
}

// Select walks every non-intrinsic, defined function in the module, keeps
// the ones Filter.Matches accepts (by simplified name), and pairs each
// with its incoming call edges from cg. Functions with zero incoming
// edges are still returned — they simply yield zero slices downstream
// rather than being treated as an error.
func Select(m *ir.Module, cg *callgraph.CallGraph, f *Filter) []Target {
	var targets []Target
	for _, fn := range irmodel.Functions(m) {
		if irmodel.IsIntrinsicFunc(fn) || irmodel.IsDeclaration(fn) {
			continue
		}
		simp := irmodel.SimplifiedName(fn.Name())
		if !f.Matches(simp) {
			continue
		}
		targets = append(targets, Target{Func: fn, Edges: cg.CallersOf(fn)})
	}
	return targets
}

// SimplifiedNames renders a comma-separated diagnostic of a target set's
// simplified names, used in log lines to report the selected symbol set.
func SimplifiedNames(targets []Target) string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = irmodel.SimplifiedName(t.Func.Name())
	}
	return strings.Join(names, ", ")
}
