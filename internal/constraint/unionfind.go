// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package constraint

// unionFind merges symbolic slots the path condition has asserted equal,
// and tracks which slots are pinned to a concrete constant plus which
// constants a slot is forbidden from equaling. It backs Solve's equality
// reasoning.
type unionFind struct {
	parent    map[string]string
	bound     map[string]int64
	forbidden map[string]map[int64]bool
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent:    make(map[string]string),
		bound:     make(map[string]int64),
		forbidden: make(map[string]map[int64]bool),
	}
}

func (u *unionFind) find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
	}
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	u.parent[ra] = rb
	if v, ok := u.bound[ra]; ok {
		u.bound[rb] = v
	}
	for k := range u.forbidden[ra] {
		u.forbid(rb, k)
	}
}

func (u *unionFind) forbid(root string, k int64) {
	if u.forbidden[root] == nil {
		u.forbidden[root] = make(map[int64]bool)
	}
	u.forbidden[root][k] = true
}

// bindConst asserts slot == k, returning false if that contradicts an
// earlier forbidConst or a different bound value.
func (u *unionFind) bindConst(slot string, k int64) bool {
	root := u.find(slot)
	if v, ok := u.bound[root]; ok {
		return v == k
	}
	if u.forbidden[root][k] {
		return false
	}
	u.bound[root] = k
	return true
}

// forbidConst asserts slot != k.
func (u *unionFind) forbidConst(slot string, k int64) {
	root := u.find(slot)
	u.forbid(root, k)
}

// connected reports whether a and b have been unioned together.
func (u *unionFind) connected(a, b string) bool {
	return u.find(a) == u.find(b)
}

// conflict reports whether any bound slot's value collides with a
// forbidden value recorded on the same root.
func (u *unionFind) conflict() bool {
	for root, v := range u.bound {
		if u.forbidden[root][v] {
			return true
		}
	}
	return false
}
