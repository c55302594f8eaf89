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

package analysis

import (
	"fmt"
	"sort"

	"github.com/pn2/ruleengine/ast"
	"github.com/pn2/ruleengine/builtin"
)

// edgeMap represents the dependencies of one predicate: the set of other
// predicate symbols it depends on, and whether any of those dependencies is
// negated. If a predicate is reached both positively and negatively, only
// the negated edge is kept — that's the one stratification cares about.
type edgeMap map[ast.PredicateSym]bool

type depGraph map[ast.PredicateSym]edgeMap

func (dep depGraph) initNode(sym ast.PredicateSym) {
	if _, ok := dep[sym]; !ok {
		dep[sym] = make(edgeMap)
	}
}

func (dep depGraph) addEdge(src, dest ast.PredicateSym, negated bool) {
	dep.initNode(src)
	edges := dep[src]
	if negated {
		edges[dest] = true
		return
	}
	if wasNegated, ok := edges[dest]; !ok || !wasNegated {
		edges[dest] = false
	}
}

func makeDepGraph(rules []ast.Rule) depGraph {
	dep := make(depGraph)
	for _, rule := range rules {
		head := rule.Head.Sym()
		dep.initNode(head)
		for _, atom := range rule.Body {
			sym := atom.Sym()
			if builtin.IsBuiltin(sym) {
				continue
			}
			dep.addEdge(head, sym, atom.Negated)
		}
	}
	return dep
}

// StratificationError reports that a rule set is not stratifiable: it
// names every predicate on the offending negative cycle, per spec.md §4.6.
type StratificationError struct {
	Cycle []ast.PredicateSym
}

func (e *StratificationError) Error() string {
	return fmt.Sprintf("program is not stratifiable: negative dependency cycle through %v", e.Cycle)
}

// Strata maps each predicate symbol to its stratum number (0-based,
// ascending in evaluation order).
type Strata map[ast.PredicateSym]int

// MaxStratum returns the highest stratum number present, or -1 if empty.
func (s Strata) MaxStratum() int {
	max := -1
	for _, n := range s {
		if n > max {
			max = n
		}
	}
	return max
}

// Stratify computes a stratum assignment for every predicate appearing in
// rules (as a head or body atom, builtins excluded), rejecting the program
// if any predicate depends negatively on itself through a cycle.
//
// Predicates are grouped into strongly-connected components of the
// dependency graph (Kosaraju's algorithm); each component's stratum is the
// longest path to it counting only negated edges, so components joined
// only by positive edges may share a stratum. A negated edge within a single
// component means a predicate depends on the negation of itself, directly
// or transitively — exactly the case a stratified program must rule out.
func Stratify(rules []ast.Rule) (Strata, error) {
	dep := makeDepGraph(rules)
	components := dep.sccs()

	compOf := make(map[ast.PredicateSym]int, len(dep))
	for i, comp := range components {
		for sym := range comp {
			compOf[sym] = i
		}
	}

	// condEdges[i][j] is true if component i depends negatively (possibly
	// also positively) on component j; false if the dependency is purely
	// positive. An edge within a single component (i == j) that is
	// negated means the program is not stratifiable.
	condEdges := make([]map[int]bool, len(components))
	for i := range condEdges {
		condEdges[i] = make(map[int]bool)
	}
	for sym, edges := range dep {
		for dest, negated := range edges {
			i, j := compOf[sym], compOf[dest]
			if i == j {
				if negated {
					return nil, &StratificationError{Cycle: sortedSyms(components[i])}
				}
				continue
			}
			condEdges[i][j] = condEdges[i][j] || negated
		}
	}

	// Layer components by longest dependency path: a component's stratum
	// is one more than its highest negatively-depended-on neighbor's
	// stratum, and at least as large as any positively-depended-on
	// neighbor's. The condensation graph is acyclic by construction, so
	// this recursion always terminates.
	stratumOf := make([]int, len(components))
	computed := make([]bool, len(components))
	var computeStratum func(i int) int
	computeStratum = func(i int) int {
		if computed[i] {
			return stratumOf[i]
		}
		computed[i] = true
		max := 0
		for dest, negated := range condEdges[i] {
			s := computeStratum(dest)
			if negated {
				s++
			}
			if s > max {
				max = s
			}
		}
		stratumOf[i] = max
		return max
	}
	for i := range components {
		computeStratum(i)
	}

	strata := make(Strata, len(compOf))
	for sym, i := range compOf {
		strata[sym] = stratumOf[i]
	}
	return strata, nil
}

func sortedSyms(comp nodeset) []ast.PredicateSym {
	out := make([]ast.PredicateSym, 0, len(comp))
	for sym := range comp {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Arity < out[j].Arity
	})
	return out
}

type nodeset map[ast.PredicateSym]struct{}

// sccs partitions the graph into strongly-connected components using
// Kosaraju's algorithm, returned dependents first (a component may depend
// on components appearing later in the slice, never on one appearing
// earlier).
func (dep depGraph) sccs() []nodeset {
	var order []ast.PredicateSym
	seen := make(nodeset)
	var visit func(ast.PredicateSym)
	visit = func(sym ast.PredicateSym) {
		if _, ok := seen[sym]; ok {
			return
		}
		seen[sym] = struct{}{}
		for dest := range dep[sym] {
			visit(dest)
		}
		order = append(order, sym)
	}
	// Iterate over a sorted key list so the result is deterministic.
	for _, sym := range sortedKeys(dep) {
		visit(sym)
	}

	rev := dep.transpose()
	seen = make(nodeset)
	var components []nodeset
	var rvisit func(ast.PredicateSym, nodeset)
	rvisit = func(sym ast.PredicateSym, comp nodeset) {
		if _, ok := seen[sym]; ok {
			return
		}
		seen[sym] = struct{}{}
		comp[sym] = struct{}{}
		for dest := range rev[sym] {
			rvisit(dest, comp)
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		top := order[i]
		if _, ok := seen[top]; ok {
			continue
		}
		comp := make(nodeset)
		rvisit(top, comp)
		components = append(components, comp)
	}
	return components
}

func (dep depGraph) transpose() depGraph {
	rev := make(depGraph)
	for src, edges := range dep {
		rev.initNode(src)
		for dest, negated := range edges {
			rev.initNode(dest)
			rev.addEdge(dest, src, negated)
		}
	}
	return rev
}

func sortedKeys(dep depGraph) []ast.PredicateSym {
	keys := make([]ast.PredicateSym, 0, len(dep))
	for sym := range dep {
		keys = append(keys, sym)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Arity < keys[j].Arity
	})
	return keys
}
