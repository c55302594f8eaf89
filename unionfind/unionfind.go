// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package unionfind is an implementation of Union-Find for use in unifying
// rule atoms against facts during evaluation.
package unionfind

import (
	"strings"

	"github.com/pn2/ruleengine/ast"
)

// UnionFind holds a data structure that permits fast unification of
// ast.Term values (variables and constants).
type UnionFind struct {
	parent map[ast.Term]ast.Term
}

// New constructs an empty UnionFind.
func New() UnionFind {
	return UnionFind{parent: make(map[ast.Term]ast.Term)}
}

// String returns a readable debug string, e.g. "{ ?X->alice }".
func (uf UnionFind) String() string {
	var sb strings.Builder
	sb.WriteRune('{')
	for k, v := range uf.parent {
		if k.Equals(v) {
			continue
		}
		sb.WriteRune(' ')
		sb.WriteString(k.String())
		sb.WriteString("->")
		sb.WriteString(v.String())
	}
	sb.WriteString(" }")
	return sb.String()
}

func (uf UnionFind) find(t ast.Term) ast.Term {
	root, ok := uf.parent[t]
	if !ok {
		return nil
	}
	for {
		next, ok := uf.parent[root]
		if !ok || next.Equals(root) {
			break
		}
		root = next
	}
	uf.parent[t] = root // path compression.
	return root
}

func (uf UnionFind) union(s, t ast.Term) {
	sroot := uf.find(s)
	troot := uf.find(t)
	if _, ok := sroot.(ast.Constant); ok {
		uf.parent[troot] = sroot
		return
	}
	uf.parent[sroot] = troot
}

// unify attempts to unify terms s and t, updating the union-find sets.
// It returns false on a constant/constant clash.
func (uf UnionFind) unify(s, t ast.Term) bool {
	sroot := uf.find(s)
	if sroot == nil {
		sroot = s
	}
	troot := uf.find(t)
	if troot == nil {
		troot = t
	}
	if sroot.Equals(troot) {
		return true
	}
	_, sconst := sroot.(ast.Constant)
	_, tconst := troot.(ast.Constant)
	if sconst && tconst {
		return false
	}
	uf.parent[s] = sroot
	uf.parent[t] = troot
	uf.union(sroot, troot)
	return true
}

// Get resolves a term to its representative: the constant it was unified
// with, or itself if no binding was established. It implements the walk a
// caller needs to ground a rule head or a negated atom's arguments.
func (uf UnionFind) Get(t ast.Term) ast.Term {
	if res := uf.find(t); res != nil {
		return res
	}
	return t
}

// UnifyTerms unifies two equal-length term lists from scratch, returning
// the resulting bindings. It fails (ok=false) on any constant/constant
// clash, or on a length mismatch.
func UnifyTerms(xs, ys []ast.Term) (UnionFind, bool) {
	return UnifyTermsExtend(xs, ys, New())
}

// UnifyTermsExtend unifies two equal-length term lists, extending an
// existing set of bindings rather than starting over — this is what lets
// the body matcher carry substitutions across multiple atoms.
func UnifyTermsExtend(xs, ys []ast.Term, base UnionFind) (UnionFind, bool) {
	if len(xs) != len(ys) {
		return UnionFind{}, false
	}
	uf := UnionFind{parent: make(map[ast.Term]ast.Term, len(base.parent)+2*len(xs))}
	for k, v := range base.parent {
		uf.parent[k] = v
	}
	for i, x := range xs {
		y := ys[i]
		if uf.find(x) == nil {
			uf.parent[x] = x
		}
		if uf.find(y) == nil {
			uf.parent[y] = y
		}
		if !uf.unify(x, y) {
			return UnionFind{}, false
		}
	}
	return uf, true
}
